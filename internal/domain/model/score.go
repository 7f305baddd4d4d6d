package model

// Score is the result of evaluating a review's rating against its text.
type Score struct {
	IsIncoherent bool
	Confidence   float64
	// Degraded marks a fail-open result: the scorer could not evaluate the
	// review and returned a neutral score instead of an error.
	Degraded bool
}

// DiffersFrom reports whether persisting s would change the stored flag or
// confidence of r. Any confidence delta counts as a change.
func (s Score) DiffersFrom(r Review) bool {
	return s.IsIncoherent != r.IncoherentFlag || s.Confidence != r.IncoherentConfidence
}
