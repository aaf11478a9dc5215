package recovery

import (
	"os"

	"github.com/goccy/go-yaml"

	"github.com/charterops/tripkeeper/pkg/errors"
)

// policyFilePermissions is the mode used when saving a policy file.
const policyFilePermissions = 0o644

// DefaultPolicyVersion tags the canonical recovery policy. Two incompatible
// scoring variants circulated in the maintenance scripts this engine
// replaces; this version is the stricter of the two: the full 25-shift
// search gated on a minimum 15-point score.
const DefaultPolicyVersion = "rotation-v2"

// DefaultPlaceholder replaces text that could not be recovered. The
// corrupted original is preserved in the audit trail, never discarded.
const DefaultPlaceholder = "[unrecoverable message - original preserved in audit trail]"

// Policy consolidates every tunable of the corruption detector and the
// recovery search into one immutable value passed explicitly into each
// component, so tests can substitute smaller word lists or tighter
// thresholds without touching package state.
type Policy struct {
	// Version tags the policy variant for audit entries.
	Version string `yaml:"version"`

	// MinClassifyLength is the length below which text is always clean:
	// too short to classify reliably.
	MinClassifyLength int `yaml:"min_classify_length"`

	// MaxNonASCIIRatio is the fraction of characters outside printable
	// ASCII above which text is classified corrupted.
	MaxNonASCIIRatio float64 `yaml:"max_non_ascii_ratio"`

	// MinCommonRatio is the common-word ratio below which text with more
	// than MinTokensForRatio tokens is classified corrupted.
	MinCommonRatio float64 `yaml:"min_common_ratio"`

	// CleanCommonRatio is the common-word ratio above which text is
	// classified clean regardless of every other signal.
	CleanCommonRatio float64 `yaml:"clean_common_ratio"`

	// MinTokensForRatio is the token count the common-word heuristic
	// needs before it will classify text as corrupted.
	MinTokensForRatio int `yaml:"min_tokens_for_ratio"`

	// ConfidenceThreshold is the minimum candidate score for a decoding
	// to be applied. A lower-scoring best candidate is treated the same
	// as finding none.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// BonusTokens is the token count above which the scorer adds Bonus,
	// rewarding enough sample size to trust the ratio.
	BonusTokens int `yaml:"bonus_tokens"`

	// Bonus is the score bonus for sufficiently long candidates.
	Bonus float64 `yaml:"bonus"`

	// MinShift and MaxShift bound the rotation search; the identity
	// rotation is never searched.
	MinShift int `yaml:"min_shift"`
	MaxShift int `yaml:"max_shift"`

	// AuditTruncateLength bounds the corrupted original preserved in the
	// audit trail.
	AuditTruncateLength int `yaml:"audit_truncate_length"`

	// Placeholder replaces unrecoverable text.
	Placeholder string `yaml:"placeholder"`

	// Words is the common-word list. Empty means the built-in list.
	Words []string `yaml:"words,omitempty"`
}

// DefaultPolicy returns the canonical strict policy.
func DefaultPolicy() Policy {
	return Policy{
		Version:             DefaultPolicyVersion,
		MinClassifyLength:   10,
		MaxNonASCIIRatio:    0.3,
		MinCommonRatio:      0.10,
		CleanCommonRatio:    0.20,
		MinTokensForRatio:   10,
		ConfidenceThreshold: 15,
		BonusTokens:         10,
		Bonus:               10,
		MinShift:            1,
		MaxShift:            25,
		AuditTruncateLength: 500,
		Placeholder:         DefaultPlaceholder,
	}
}

// Validate checks the policy for values the engine cannot operate with.
func (p Policy) Validate() error {
	if p.MinShift < 1 || p.MaxShift > 25 || p.MinShift > p.MaxShift {
		return errors.NewValidationError("shift range", p, "shifts must satisfy 1 <= min <= max <= 25")
	}
	if p.MaxNonASCIIRatio < 0 || p.MaxNonASCIIRatio > 1 {
		return errors.NewValidationError("max_non_ascii_ratio", p.MaxNonASCIIRatio, "must be within [0, 1]")
	}
	if p.CleanCommonRatio < p.MinCommonRatio {
		return errors.NewValidationError("clean_common_ratio", p.CleanCommonRatio, "must not be below min_common_ratio")
	}
	if p.AuditTruncateLength <= 0 {
		return errors.NewValidationError("audit_truncate_length", p.AuditTruncateLength, "must be positive")
	}
	if p.Placeholder == "" {
		return errors.NewValidationError("placeholder", "", "placeholder text is required")
	}
	return nil
}

// wordList returns the effective word list for this policy.
func (p Policy) wordList() []string {
	if len(p.Words) > 0 {
		return p.Words
	}
	return defaultWords
}

// LoadPolicy reads policy overrides from a YAML file layered over the
// defaults, so an operator file only needs to name the values it changes.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, errors.WrapIO("read", path, err)
	}

	policy := DefaultPolicy()
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return Policy{}, errors.WrapParse("yaml", path, err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// SavePolicy writes the full policy to a YAML file, giving operators a
// complete template to edit rather than a sparse override file.
func SavePolicy(policy Policy, path string) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	data, err := yaml.Marshal(policy)
	if err != nil {
		return errors.WrapParse("yaml", path, err)
	}
	if err := os.WriteFile(path, data, policyFilePermissions); err != nil {
		return errors.WrapIO("write", path, err)
	}
	return nil
}
