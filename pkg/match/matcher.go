// Package match implements the fuzzy join used when an inbound marketplace
// entity (a quote, a chat message) carries no stable foreign key into the
// local store. The join is heuristic by design: the matcher prefers false
// negatives (missed matches, which callers log and skip) over false
// positives (incorrect merges, which are effectively irreversible).
package match

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/charterops/tripkeeper/pkg/records"
)

// DefaultSignificantLength is the token length above which a token counts
// as significant. Shared tokens of this length or shorter ("llc", "air",
// "jet") are too generic to accept a match on their own.
const DefaultSignificantLength = 3

// Matcher joins inbound display names to local records.
type Matcher struct {
	significantLen int
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithSignificantLength overrides the significant-token length threshold.
func WithSignificantLength(n int) Option {
	return func(m *Matcher) {
		if n > 0 {
			m.significantLen = n
		}
	}
}

// New creates a Matcher.
func New(opts ...Option) *Matcher {
	m := &Matcher{significantLen: DefaultSignificantLength}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Match is an accepted join between an inbound name and a local record.
type Match struct {
	RecordID     string   `json:"record_id" yaml:"record_id"`
	DisplayName  string   `json:"display_name" yaml:"display_name"`
	SharedTokens []string `json:"shared_tokens,omitempty" yaml:"shared_tokens,omitempty"`
}

// Result is the outcome of a match attempt. An unmatched result is not an
// error: callers must handle it explicitly, and the default policy is to
// skip and log.
type Result struct {
	Matched bool  `json:"matched" yaml:"matched"`
	Match   Match `json:"match,omitempty" yaml:"match,omitempty"`
}

// Unmatched is the explicit no-match result.
func Unmatched() Result {
	return Result{}
}

// String renders the result for human consumption.
func (r Result) String() string {
	if !r.Matched {
		return "no matching record"
	}
	s := fmt.Sprintf("matched record %s (%q)", r.Match.RecordID, r.Match.DisplayName)
	if len(r.Match.SharedTokens) > 0 {
		s += fmt.Sprintf(", shared tokens: %s", strings.Join(r.Match.SharedTokens, ", "))
	}
	return s
}

// Best returns the best-matching candidate for the inbound display name,
// or an unmatched result when no candidate clears the acceptance rule.
//
// A candidate is acceptable when it shares at least one significant token
// with the inbound name, or when one normalized name contains the other's
// first token as a substring. Acceptable candidates are ranked by shared
// significant token count descending, then by shorter display name, then
// by ID, so the outcome does not depend on iteration order.
func (m *Matcher) Best(inbound string, candidates []records.Record) Result {
	inboundNorm := Normalize(inbound)
	inboundTokens := tokenize(inboundNorm)
	if len(inboundTokens) == 0 {
		return Unmatched()
	}

	type scored struct {
		rec    *records.Record
		shared []string
	}
	var acceptable []scored

	for i := range candidates {
		cand := &candidates[i]
		if cand.Deleted || cand.DisplayName == "" {
			continue
		}
		candNorm := Normalize(cand.DisplayName)
		candTokens := tokenize(candNorm)
		if len(candTokens) == 0 {
			continue
		}

		shared := m.sharedSignificant(inboundTokens, candTokens)
		if len(shared) == 0 && !stemContained(inboundNorm, inboundTokens, candNorm, candTokens) {
			continue
		}
		acceptable = append(acceptable, scored{rec: cand, shared: shared})
	}

	if len(acceptable) == 0 {
		return Unmatched()
	}

	sort.SliceStable(acceptable, func(i, j int) bool {
		if len(acceptable[i].shared) != len(acceptable[j].shared) {
			return len(acceptable[i].shared) > len(acceptable[j].shared)
		}
		li, lj := len(acceptable[i].rec.DisplayName), len(acceptable[j].rec.DisplayName)
		if li != lj {
			return li < lj
		}
		return acceptable[i].rec.ID < acceptable[j].rec.ID
	})

	best := acceptable[0]
	return Result{
		Matched: true,
		Match: Match{
			RecordID:     best.rec.ID,
			DisplayName:  best.rec.DisplayName,
			SharedTokens: best.shared,
		},
	}
}

// sharedSignificant returns the significant tokens present in both sets,
// sorted for deterministic output.
func (m *Matcher) sharedSignificant(a, b []string) []string {
	set := make(map[string]struct{}, len(b))
	for _, t := range b {
		if len(t) > m.significantLen {
			set[t] = struct{}{}
		}
	}

	var shared []string
	seen := make(map[string]struct{})
	for _, t := range a {
		if len(t) <= m.significantLen {
			continue
		}
		if _, ok := set[t]; !ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		shared = append(shared, t)
	}
	sort.Strings(shared)
	return shared
}

// stemContained reports whether one normalized name contains the other's
// first token as a substring.
func stemContained(aNorm string, aTokens []string, bNorm string, bTokens []string) bool {
	return strings.Contains(aNorm, bTokens[0]) || strings.Contains(bNorm, aTokens[0])
}

// Normalize lowercases a display name and strips diacritic marks so that
// "Panoráma" and "Panorama" compare equal.
func Normalize(s string) string {
	stripped, _, err := transform.String(stripMarksTransformer(), s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

// stripMarksTransformer builds a fresh transformer per call; chained
// transformers carry state and are not safe to share.
func stripMarksTransformer() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// tokenize splits a normalized name on whitespace.
func tokenize(s string) []string {
	return strings.Fields(s)
}
