package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// StrikeLedger defines the driven port for per-author strike counters.
type StrikeLedger interface {
	// Get returns the author's counter. Authors without strikes get a zero counter.
	Get(ctx context.Context, authorID int64) (model.StrikeCounter, error)

	// Increment adds one strike for the author at the given time and returns
	// the updated counter.
	Increment(ctx context.Context, authorID int64, at time.Time) (model.StrikeCounter, error)
}
