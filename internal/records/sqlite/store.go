// Package sqlite provides the production SQLite-backed record store.
//
// All reconciliation state lives in a single database file: the records
// themselves, their free-text fields, and the append-only audit trail of
// every automated mutation. Text fields and audit entries are stored as
// JSON columns so the open key-value shapes survive schema evolution.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentstation/utc"
	_ "modernc.org/sqlite"

	"github.com/charterops/tripkeeper/pkg/errors"
	"github.com/charterops/tripkeeper/pkg/records"
)

// Store is the SQLite-backed record store. Deletes are soft and cascade to
// dependent children atomically with their parent.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if necessary) the database at path. Pass ":memory:"
// for an ephemeral database in tests.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.WrapIO("create", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.WrapIO("open", path, err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.WrapIO("open", path, err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Put inserts or replaces a record.
func (s *Store) Put(ctx context.Context, rec records.Record) error {
	textFields, audit, err := marshalPayloads(&rec)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, natural_key, kind, display_name, parent_id,
			text_fields, audit, created_at, updated_at, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			natural_key = excluded.natural_key,
			kind = excluded.kind,
			display_name = excluded.display_name,
			parent_id = excluded.parent_id,
			text_fields = excluded.text_fields,
			audit = excluded.audit,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			deleted = excluded.deleted`,
		rec.ID, rec.NaturalKey, string(rec.Kind), rec.DisplayName, rec.ParentID,
		textFields, audit, formatTime(rec.CreatedAt), formatTime(rec.UpdatedAt), boolToInt(rec.Deleted))
	if err != nil {
		return errors.WrapPersistence("put", rec.ID, err)
	}
	return nil
}

// Get returns the record, including soft-deleted ones.
func (s *Store) Get(ctx context.Context, id string) (records.Record, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return records.Record{}, errors.NewNotFoundError("record", id)
	}
	return rec, err
}

// ByNaturalKey returns all non-deleted records sharing the key.
func (s *Store) ByNaturalKey(ctx context.Context, key string) ([]records.Record, error) {
	return s.All(ctx, records.Filter{NaturalKeys: []string{key}})
}

// All returns every record passing the filter, ordered by ID.
func (s *Store) All(ctx context.Context, f records.Filter) ([]records.Record, error) {
	var (
		conds []string
		args  []any
	)
	if !f.IncludeDeleted {
		conds = append(conds, "deleted = 0")
	}
	if f.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if len(f.NaturalKeys) > 0 {
		placeholders := strings.Repeat("?,", len(f.NaturalKeys))
		conds = append(conds, fmt.Sprintf("natural_key IN (%s)", placeholders[:len(placeholders)-1]))
		for _, k := range f.NaturalKeys {
			args = append(args, k)
		}
	}

	query := selectColumns + ` FROM records`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapPersistence("load", "", err)
	}
	defer rows.Close()

	var out []records.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete soft-deletes each record and its dependent children in one
// transaction per record, so a parent is never removed without its
// children. Missing records are reported per ID without stopping the rest
// of the batch.
func (s *Store) Delete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	var errs []error
	for _, id := range ids {
		if err := s.deleteOne(ctx, id); err != nil {
			errs = append(errs, err)
			continue
		}
		deleted++
	}
	return deleted, stderrors.Join(errs...)
}

func (s *Store) deleteOne(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapPersistence("delete", id, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	now := formatTime(utc.Now())
	res, err := tx.ExecContext(ctx,
		`UPDATE records SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`, now, id)
	if err != nil {
		return errors.WrapPersistence("delete", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapPersistence("delete", id, err)
	}
	if affected == 0 {
		return errors.NewNotFoundError("record", id)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET deleted = 1, updated_at = ? WHERE parent_id = ? AND deleted = 0`, now, id); err != nil {
		return errors.WrapPersistence("delete children", id, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapPersistence("delete", id, err)
	}
	return nil
}

// UpdateTextField overwrites one text field and appends the audit entry in
// the same transaction, preserving all prior audit entries.
func (s *Store) UpdateTextField(ctx context.Context, id, field, value string, entry records.AuditEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapPersistence("update", id, err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	var textFieldsJSON, auditJSON string
	err = tx.QueryRowContext(ctx,
		`SELECT text_fields, audit FROM records WHERE id = ?`, id).Scan(&textFieldsJSON, &auditJSON)
	if stderrors.Is(err, sql.ErrNoRows) {
		return errors.NewNotFoundError("record", id)
	}
	if err != nil {
		return errors.WrapPersistence("update", id, err)
	}

	textFields := map[string]string{}
	if err := json.Unmarshal([]byte(textFieldsJSON), &textFields); err != nil {
		return errors.WrapParse("json", "text_fields", err)
	}
	var audit records.AuditTrail
	if err := json.Unmarshal([]byte(auditJSON), &audit); err != nil {
		return errors.WrapParse("json", "audit", err)
	}

	textFields[field] = value
	audit = audit.Append(entry)

	newTextFields, err := json.Marshal(textFields)
	if err != nil {
		return errors.WrapParse("json", "text_fields", err)
	}
	newAudit, err := json.Marshal(audit)
	if err != nil {
		return errors.WrapParse("json", "audit", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE records SET text_fields = ?, audit = ?, updated_at = ? WHERE id = ?`,
		string(newTextFields), string(newAudit), formatTime(utc.Now()), id); err != nil {
		return errors.WrapPersistence("update", id, err)
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapPersistence("update", id, err)
	}
	return nil
}

// ChildCount counts non-deleted records whose parent is id.
func (s *Store) ChildCount(ctx context.Context, id string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE parent_id = ? AND deleted = 0`, id).Scan(&count)
	if err != nil {
		return 0, errors.WrapPersistence("child count", id, err)
	}
	return count, nil
}

// Cascades reports that Delete removes dependent children with their
// parent.
func (s *Store) Cascades() bool {
	return true
}

const selectColumns = `SELECT id, natural_key, kind, display_name, parent_id,
	text_fields, audit, created_at, updated_at, deleted`

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (records.Record, error) {
	var (
		rec                        records.Record
		kind                       string
		textFieldsJSON, auditJSON  string
		createdAtStr, updatedAtStr string
		deleted                    int
	)
	err := row.Scan(&rec.ID, &rec.NaturalKey, &kind, &rec.DisplayName, &rec.ParentID,
		&textFieldsJSON, &auditJSON, &createdAtStr, &updatedAtStr, &deleted)
	if err != nil {
		return rec, err
	}

	rec.Kind = records.Kind(kind)
	rec.Deleted = deleted != 0

	if textFieldsJSON != "" && textFieldsJSON != "{}" {
		if err := json.Unmarshal([]byte(textFieldsJSON), &rec.TextFields); err != nil {
			return rec, errors.WrapParse("json", "text_fields", err)
		}
	}
	if auditJSON != "" && auditJSON != "[]" {
		if err := json.Unmarshal([]byte(auditJSON), &rec.Audit); err != nil {
			return rec, errors.WrapParse("json", "audit", err)
		}
	}

	rec.CreatedAt, err = parseTime(createdAtStr)
	if err != nil {
		return rec, err
	}
	rec.UpdatedAt, err = parseTime(updatedAtStr)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

func marshalPayloads(rec *records.Record) (textFields, audit string, err error) {
	tf := rec.TextFields
	if tf == nil {
		tf = map[string]string{}
	}
	tfJSON, err := json.Marshal(tf)
	if err != nil {
		return "", "", errors.WrapParse("json", "text_fields", err)
	}

	at := rec.Audit
	if at == nil {
		at = records.AuditTrail{}
	}
	atJSON, err := json.Marshal(at)
	if err != nil {
		return "", "", errors.WrapParse("json", "audit", err)
	}
	return string(tfJSON), string(atJSON), nil
}

// formatTime stores timestamps as RFC3339Nano; zero times store as empty
// strings so EffectiveTime fallback survives a round-trip.
func formatTime(t utc.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (utc.Time, error) {
	if s == "" {
		return utc.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return utc.Time{}, errors.WrapParse("time", s, err)
	}
	return utc.Time{Time: t.UTC()}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ records.Store = (*Store)(nil)
