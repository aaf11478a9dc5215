package recovery

// Detector classifies a text field as corrupted or clean using statistical
// heuristics. The first two heuristics (non-ASCII ratio, repeated-pattern
// density) are language independent; the common-word heuristic assumes
// clean content is English prose, which is a documented limitation of this
// engine, not a bug.
type Detector struct {
	policy Policy
	scorer *scorer
}

// NewDetector creates a detector for the policy.
func NewDetector(p Policy) *Detector {
	return &Detector{policy: p, scorer: newScorer(p)}
}

// Corrupted classifies the text. Strings shorter than the policy's minimum
// length are always clean: too short to classify reliably. A common-word
// ratio above the clean threshold dominates every other signal, so genuine
// English prose is never flagged for its punctuation or emoji density.
func (d *Detector) Corrupted(text string) bool {
	runes := []rune(text)
	if len(runes) < d.policy.MinClassifyLength {
		return false
	}

	sc := d.scorer.score(text)
	if sc.Tokens > 0 && sc.Ratio() > d.policy.CleanCommonRatio {
		return false
	}

	if nonASCIIRatio(runes) > d.policy.MaxNonASCIIRatio {
		return true
	}
	if hasRepeatedPattern(text) {
		return true
	}
	if sc.Tokens > d.policy.MinTokensForRatio && sc.Ratio() < d.policy.MinCommonRatio {
		return true
	}
	return false
}

// nonASCIIRatio returns the fraction of characters outside the printable
// ASCII range.
func nonASCIIRatio(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	outside := 0
	for _, r := range runes {
		if r < 0x20 || r > 0x7e {
			outside++
		}
	}
	return float64(outside) / float64(len(runes))
}

// hasRepeatedPattern reports whether a substring of length >= 2 repeats
// three or more times consecutively. Go's regexp has no backreferences, so
// the scripts' captured-group pattern is replaced with a direct scan. The
// pattern length is capped: a corrupted stream repeating a unit longer
// than 16 bytes three times would already trip the other heuristics.
func hasRepeatedPattern(s string) bool {
	const maxUnit = 16
	n := len(s)
	for i := 0; i < n; i++ {
		limit := (n - i) / 3
		if limit > maxUnit {
			limit = maxUnit
		}
		for l := 2; l <= limit; l++ {
			if s[i:i+l] == s[i+l:i+2*l] && s[i:i+l] == s[i+2*l:i+3*l] {
				return true
			}
		}
	}
	return false
}
