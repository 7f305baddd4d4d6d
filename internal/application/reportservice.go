package application

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// ReportPage is one page of reports and the total matching count.
type ReportPage struct {
	Reports []model.ReviewReport
	Total   int
	Page    model.Page
}

// ReviewPage is one page of reviews and the total matching count.
type ReviewPage struct {
	Reviews []model.Review
	Total   int
	Page    model.Page
}

// ReportService handles report intake and the read side of the moderation queue.
type ReportService struct {
	reviews  driven.ReviewStore
	reports  driven.ReportStore
	strikes  driven.StrikeLedger
	notifier driven.Notifier
	clock    driven.Clock
	recorder Recorder
}

// NewReportService creates a ReportService. recorder may be nil.
func NewReportService(
	reviews driven.ReviewStore,
	reports driven.ReportStore,
	strikes driven.StrikeLedger,
	notifier driven.Notifier,
	clock driven.Clock,
	recorder Recorder,
) *ReportService {
	return &ReportService{
		reviews:  reviews,
		reports:  reports,
		strikes:  strikes,
		notifier: notifier,
		clock:    clock,
		recorder: recorderOrNop(recorder),
	}
}

// SubmitReport records a user's flag against a review as a pending report.
// The review itself is not modified.
func (s *ReportService) SubmitReport(ctx context.Context, reviewID, reporterID int64, reason string) (model.ReviewReport, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.ReviewReport{}, fmt.Errorf("reason is required: %w", model.ErrInvalidInput)
	}
	if utf8.RuneCountInString(reason) > model.MaxReportReasonLength {
		return model.ReviewReport{}, fmt.Errorf("reason exceeds %d characters: %w", model.MaxReportReasonLength, model.ErrInvalidInput)
	}

	review, err := s.reviews.Get(ctx, reviewID)
	if err != nil {
		return model.ReviewReport{}, err
	}
	if review == nil {
		return model.ReviewReport{}, fmt.Errorf("review %d: %w", reviewID, model.ErrNotFound)
	}

	report, err := s.reports.Create(ctx, model.ReviewReport{
		ReviewID:   reviewID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     model.ReportStatusPending,
		CreatedAt:  s.clock.Now().UTC(),
	})
	if err != nil {
		return model.ReviewReport{}, err
	}
	s.recorder.ReportSubmitted()

	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotificationReportSubmitted,
		Recipient: model.ModerationQueue(),
		Title:     fmt.Sprintf("New report on review %d", reviewID),
		Message:   fmt.Sprintf("Review **%d** was reported: %s", reviewID, reason),
		Payload: map[string]any{
			"report_id":   report.ID,
			"review_id":   reviewID,
			"reporter_id": reporterID,
		},
	})

	return report, nil
}

// GetReport returns a single report or model.ErrNotFound.
func (s *ReportService) GetReport(ctx context.Context, id int64) (model.ReviewReport, error) {
	report, err := s.reports.Get(ctx, id)
	if err != nil {
		return model.ReviewReport{}, err
	}
	if report == nil {
		return model.ReviewReport{}, fmt.Errorf("report %d: %w", id, model.ErrNotFound)
	}
	return *report, nil
}

// ListPendingReports returns the pending moderation queue, oldest first.
func (s *ReportService) ListPendingReports(ctx context.Context, page model.Page) (ReportPage, error) {
	return s.ListReports(ctx, model.ReportStatusPending, page)
}

// ListReports returns reports in the given status, or all reports for an empty status.
func (s *ReportService) ListReports(ctx context.Context, status model.ReportStatus, page model.Page) (ReportPage, error) {
	page = page.Normalize()

	reports, total, err := s.reports.List(ctx, status, page)
	if err != nil {
		return ReportPage{}, err
	}
	if reports == nil {
		reports = []model.ReviewReport{}
	}

	return ReportPage{Reports: reports, Total: total, Page: page}, nil
}

// ListFlaggedReviews returns reviews currently flagged as incoherent.
func (s *ReportService) ListFlaggedReviews(ctx context.Context, page model.Page) (ReviewPage, error) {
	page = page.Normalize()

	reviews, total, err := s.reviews.ListFlagged(ctx, page)
	if err != nil {
		return ReviewPage{}, err
	}
	if reviews == nil {
		reviews = []model.Review{}
	}

	return ReviewPage{Reviews: reviews, Total: total, Page: page}, nil
}

// GetStrikes returns the author's strike counter.
func (s *ReportService) GetStrikes(ctx context.Context, authorID int64) (model.StrikeCounter, error) {
	return s.strikes.Get(ctx, authorID)
}
