package model

import "time"

// Review is a user-submitted review of a business listing together with the
// result of its most recent incoherence scoring.
type Review struct {
	ID         int64
	BusinessID int64
	AuthorID   int64
	Rating     int // 1-5
	Text       string
	CreatedAt  time.Time

	IncoherentFlag       bool
	IncoherentConfidence float64    // 0-1, as returned by the last scoring run.
	LastScoredAt         *time.Time // nil until the first scoring run persists a result.
}

// Rating bounds accepted for a review.
const (
	MinRating = 1
	MaxRating = 5
)

// ValidRating reports whether r is within the accepted rating range.
func ValidRating(r int) bool {
	return r >= MinRating && r <= MaxRating
}
