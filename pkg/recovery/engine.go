// Package recovery implements the corruption detection and recovery
// pipeline: classify a text field, search the bounded rotation space for a
// plausible decoding, and either commit the best candidate or substitute an
// explicit unrecoverable placeholder while preserving the original for
// audit.
package recovery

// Outcome is a terminal state of the recovery state machine:
// Clean -> no action; Corrupted -> Searching -> {Recovered, Unrecoverable}.
type Outcome string

// Recovery outcomes.
const (
	OutcomeClean         Outcome = "clean"
	OutcomeRecovered     Outcome = "recovered"
	OutcomeUnrecoverable Outcome = "unrecoverable"
)

// Candidate is a decoded text paired with the shift that produced it and
// its English-likelihood score. Candidates are ephemeral: only the winning
// candidate's text is ever written back to a record.
type Candidate struct {
	Text  string
	Shift int
	Score Score
}

// Result is the decision produced for one text value. It carries no side
// effects; callers persist Text and the audit payload themselves.
type Result struct {
	Outcome  Outcome
	Original string

	// Text is the replacement value: the winning decoding for Recovered,
	// the placeholder for Unrecoverable, empty for Clean.
	Text string

	// Best is the maximum-scoring candidate from the search, present for
	// both Recovered and Unrecoverable so rejected scores remain
	// observable in diagnose mode.
	Best *Candidate
}

// Engine runs the corruption recovery pipeline over single text values.
// It is pure and CPU-bound; batch drivers own all I/O.
type Engine struct {
	policy   Policy
	detector *Detector
	scorer   *scorer
}

// NewEngine creates an engine with the given policy.
func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		policy:   p,
		detector: NewDetector(p),
		scorer:   newScorer(p),
	}, nil
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Inspect classifies the text and, when corrupted, searches all rotations
// for the most plausible decoding.
func (e *Engine) Inspect(text string) Result {
	if !e.detector.Corrupted(text) {
		return Result{Outcome: OutcomeClean, Original: text}
	}
	return e.Recover(text)
}

// Recover treats the text as corrupted and searches all rotations for the
// most plausible decoding, skipping classification. The best candidate is
// applied only when its score clears the confidence threshold; otherwise
// the outcome is Unrecoverable and Text carries the placeholder.
func (e *Engine) Recover(text string) Result {
	res := Result{Original: text}

	best := e.search(text)
	res.Best = &best

	if best.Score.Value > e.policy.ConfidenceThreshold {
		res.Outcome = OutcomeRecovered
		res.Text = best.Text
		return res
	}

	res.Outcome = OutcomeUnrecoverable
	res.Text = e.policy.Placeholder
	return res
}

// search evaluates every non-identity rotation and keeps the maximum
// scoring candidate. Shift k assumes the text was encoded with a forward
// rotation of k, so the candidate is the text rotated back by k. Ties go
// to the smaller shift for determinism.
func (e *Engine) search(text string) Candidate {
	var best Candidate
	for shift := e.policy.MinShift; shift <= e.policy.MaxShift; shift++ {
		decoded := Rotate(text, -shift)
		sc := e.scorer.score(decoded)
		if best.Shift == 0 || sc.Value > best.Score.Value {
			best = Candidate{Text: decoded, Shift: shift, Score: sc}
		}
	}
	return best
}

// AuditData builds the audit payload for a terminal recovery result. The
// corrupted original is always preserved, truncated to the policy bound.
func (e *Engine) AuditData(res Result) map[string]any {
	data := map[string]any{
		"recovered":    res.Outcome == OutcomeRecovered,
		"originalText": truncate(res.Original, e.policy.AuditTruncateLength),
	}
	if res.Outcome == OutcomeRecovered && res.Best != nil {
		data["method"] = "rotation-search"
		data["shiftApplied"] = res.Best.Shift
		data["score"] = res.Best.Score.Value
	}
	return data
}

// truncate bounds s to n runes.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
