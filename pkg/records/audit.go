package records

import (
	"github.com/agentstation/utc"
)

// Audit actions recorded by the automated passes.
const (
	AuditActionRecovery = "recovery"
	AuditActionDedupe   = "dedupe"
)

// AuditEntry records the provenance of a single automated mutation.
// The Data payload is free-form; the recovery pass writes the keys
// "recovered", "method", "shiftApplied", "score" and "originalText".
type AuditEntry struct {
	// At is when the mutation was made.
	At utc.Time `json:"at" yaml:"at"`

	// RunID identifies the batch run that made the mutation.
	RunID string `json:"run_id,omitempty" yaml:"run_id,omitempty"`

	// Action names the pass that mutated the record.
	Action string `json:"action" yaml:"action"`

	// Field is the text field the mutation touched, if any.
	Field string `json:"field,omitempty" yaml:"field,omitempty"`

	// Data is the open key-value payload for forensic review.
	Data map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
}

// AuditTrail is the append-only list of automated mutations applied to a
// record. Prior entries are never modified or removed; consumers that add
// entries must go through Append.
type AuditTrail []AuditEntry

// Append returns a new trail with the entry added, stamping the entry time
// if unset. The receiver is not modified, which keeps prior snapshots of
// the trail valid.
func (t AuditTrail) Append(entry AuditEntry) AuditTrail {
	if entry.At.IsZero() {
		entry.At = utc.Now()
	}
	out := make(AuditTrail, len(t), len(t)+1)
	copy(out, t)
	return append(out, entry)
}

// HasRecovery reports whether the trail already records a recovery attempt
// for the given field. The recovery pass uses this as its idempotence gate:
// a record with a prior terminal outcome is skipped unless re-forced.
func (t AuditTrail) HasRecovery(field string) bool {
	for _, e := range t {
		if e.Action == AuditActionRecovery && e.Field == field {
			return true
		}
	}
	return false
}

// Last returns the most recent entry, or nil for an empty trail.
func (t AuditTrail) Last() *AuditEntry {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// Copy returns a deep copy of the trail.
func (t AuditTrail) Copy() AuditTrail {
	if t == nil {
		return nil
	}
	out := make(AuditTrail, len(t))
	for i, e := range t {
		out[i] = e
		if e.Data != nil {
			data := make(map[string]any, len(e.Data))
			for k, v := range e.Data {
				data[k] = v
			}
			out[i].Data = data
		}
	}
	return out
}
