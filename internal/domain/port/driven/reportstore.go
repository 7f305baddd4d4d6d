package driven

import (
	"context"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// ReportStore defines the driven port for review report persistence.
// Reports are never deleted.
type ReportStore interface {
	// Create inserts a pending report and returns it with its assigned ID.
	Create(ctx context.Context, report model.ReviewReport) (model.ReviewReport, error)

	// Get returns the report with the given ID, or nil, nil if it does not exist.
	Get(ctx context.Context, id int64) (*model.ReviewReport, error)

	// List returns one page of reports, oldest first, and the total count.
	// An empty status lists reports in every state.
	List(ctx context.Context, status model.ReportStatus, page model.Page) ([]model.ReviewReport, int, error)

	// MarkResolved applies the resolution only if the report is still pending.
	// It reports false when the report was not pending (or does not exist).
	MarkResolved(ctx context.Context, id int64, res model.ReportResolution) (bool, error)
}
