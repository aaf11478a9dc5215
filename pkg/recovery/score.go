package recovery

import (
	"regexp"
)

// tokenPattern extracts the alphabetic runs that are scored against the
// common-word list. Runs shorter than three letters carry no signal.
var tokenPattern = regexp.MustCompile(`[a-zA-Z]{3,}`)

// Score measures how English-like a candidate decoding is.
type Score struct {
	// Value is ratio*100 plus the sample-size bonus.
	Value float64

	// Matched is the number of tokens found in the common-word list.
	Matched int

	// Tokens is the total number of scored tokens.
	Tokens int
}

// Ratio returns the matched fraction, zero for tokenless text.
func (s Score) Ratio() float64 {
	if s.Tokens == 0 {
		return 0
	}
	return float64(s.Matched) / float64(s.Tokens)
}

// scorer scores candidate decodings against a fixed word list.
type scorer struct {
	words       map[string]struct{}
	bonusTokens int
	bonus       float64
}

func newScorer(p Policy) *scorer {
	return &scorer{
		words:       wordSet(p.wordList()),
		bonusTokens: p.BonusTokens,
		bonus:       p.Bonus,
	}
}

// score tokenizes the text and computes matchedCommonWords/totalTokens,
// scaled to 100 with a bonus when the sample is large enough to trust the
// ratio.
func (s *scorer) score(text string) Score {
	tokens := tokenPattern.FindAllString(text, -1)
	sc := Score{Tokens: len(tokens)}
	if sc.Tokens == 0 {
		return sc
	}

	for _, tok := range tokens {
		if _, ok := s.words[lower(tok)]; ok {
			sc.Matched++
		}
	}

	sc.Value = sc.Ratio() * 100
	if sc.Tokens > s.bonusTokens {
		sc.Value += s.bonus
	}
	return sc
}
