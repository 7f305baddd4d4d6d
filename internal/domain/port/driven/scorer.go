package driven

import "github.com/ericfisherdev/reviewmod/internal/domain/model"

// Scorer judges whether a review's rating is coherent with its text.
//
// Implementations must be safe for concurrent use, must not mutate their
// inputs, and must never fail: a scorer that cannot evaluate a review returns
// a zero-confidence, non-incoherent Score with Degraded set.
type Scorer interface {
	Score(rating int, text string) model.Score
}
