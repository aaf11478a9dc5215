// Package records defines the persisted record model shared by the
// reconciliation engines, together with the store contracts they consume.
//
// Records are created by upstream ingestion and mutated only by the
// canonicalization pass (which may delete non-canonical duplicates) and the
// corruption recovery pass (which may rewrite a text field and always appends
// to the audit trail). Nothing in this module creates new canonical records
// from scratch; it only adjudicates among records that already exist.
package records

import (
	"github.com/agentstation/utc"
)

// Kind identifies the business entity a record represents.
type Kind string

// Record kinds ingested from the marketplace.
const (
	KindRequest Kind = "request" // a flight request
	KindMessage Kind = "message" // a chat message attached to a request
)

// Record is a persisted business entity ingested from the charter
// marketplace. The marketplace does not enforce uniqueness of NaturalKey,
// so zero, one, or many local records may share one.
type Record struct {
	// ID is the opaque local identifier, immutable, assigned at creation.
	ID string `json:"id" yaml:"id"`

	// NaturalKey is the externally supplied identifier (e.g. a marketplace
	// trip code) that is supposed to be unique per logical entity but is
	// not enforced as such upstream.
	NaturalKey string `json:"natural_key" yaml:"natural_key"`

	// Kind distinguishes requests from messages.
	Kind Kind `json:"kind" yaml:"kind"`

	// DisplayName is a human-readable label (e.g. a sender name) used only
	// for fuzzy matching, never as a stable identifier.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// ParentID links a message to its owning request. Empty for requests.
	ParentID string `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`

	// TextFields holds named free-text attributes whose values may have
	// been corrupted during transport or storage.
	TextFields map[string]string `json:"text_fields,omitempty" yaml:"text_fields,omitempty"`

	// Audit records the provenance of every automated mutation. Append only.
	Audit AuditTrail `json:"audit,omitempty" yaml:"audit,omitempty"`

	CreatedAt utc.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt utc.Time `json:"updated_at" yaml:"updated_at"`

	// Deleted marks a soft-deleted record. Soft-deleted records are
	// excluded from loads unless explicitly requested.
	Deleted bool `json:"deleted,omitempty" yaml:"deleted,omitempty"`
}

// EffectiveTime returns the timestamp used for recency ordering:
// UpdatedAt, falling back to CreatedAt when the record has never been
// updated.
func (r *Record) EffectiveTime() utc.Time {
	if r.UpdatedAt.IsZero() {
		return r.CreatedAt
	}
	return r.UpdatedAt
}

// TextField returns the named free-text field and whether it is set.
func (r *Record) TextField(name string) (string, bool) {
	if r.TextFields == nil {
		return "", false
	}
	v, ok := r.TextFields[name]
	return v, ok
}

// SetTextField sets the named free-text field, allocating the map lazily.
func (r *Record) SetTextField(name, value string) {
	if r.TextFields == nil {
		r.TextFields = make(map[string]string)
	}
	r.TextFields[name] = value
}

// Copy returns a deep copy of the record. Engines operate on copies so a
// failed pass never leaves a half-mutated record in a caller's snapshot.
func (r *Record) Copy() Record {
	out := *r
	if r.TextFields != nil {
		out.TextFields = make(map[string]string, len(r.TextFields))
		for k, v := range r.TextFields {
			out.TextFields[k] = v
		}
	}
	out.Audit = r.Audit.Copy()
	return out
}
