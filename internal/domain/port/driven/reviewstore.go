package driven

import (
	"context"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// ReviewStore defines the driven port for review persistence.
type ReviewStore interface {
	// Create inserts a review and returns it with its assigned ID.
	Create(ctx context.Context, review model.Review) (model.Review, error)

	// Get returns the review with the given ID, or nil, nil if it does not exist.
	Get(ctx context.Context, id int64) (*model.Review, error)

	// ListAll returns every review ordered by ID.
	ListAll(ctx context.Context) ([]model.Review, error)

	// ListFlagged returns one page of reviews whose incoherent flag is set,
	// highest confidence first, together with the total number of flagged reviews.
	ListFlagged(ctx context.Context, page model.Page) ([]model.Review, int, error)

	// UpdateScore persists a scoring result. The update is conditional on the
	// review still existing: it returns model.ErrNotFound for a deleted review
	// and never recreates it.
	UpdateScore(ctx context.Context, id int64, score model.Score, scoredAt time.Time) error

	// Delete removes the review permanently. It reports false when the review
	// was already gone.
	Delete(ctx context.Context, id int64) (bool, error)
}

// ReviewSource supplies the reviews a reanalysis pass scores. The default
// source scans the full corpus; incremental strategies can be swapped in.
type ReviewSource interface {
	Reviews(ctx context.Context) ([]model.Review, error)
}
