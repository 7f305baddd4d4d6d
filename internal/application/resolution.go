package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// DefaultStrikeThreshold is the strike count at which an author is escalated
// as a suspension candidate.
const DefaultStrikeThreshold = 3

// ResolutionPolicy configures the side effects of resolving a report.
type ResolutionPolicy struct {
	// StrikeThreshold is the count at which AUTHOR_SUSPENSION_CANDIDATE is emitted.
	// Non-positive disables escalation.
	StrikeThreshold int
	// OutcomeRecipient is RecipientAuthor or RecipientBusinessOwner.
	OutcomeRecipient model.RecipientKind
	// NotifyReporterOnReject additionally tells the reporter when their report is rejected.
	NotifyReporterOnReject bool
}

// DefaultResolutionPolicy returns the policy used when nothing is configured.
func DefaultResolutionPolicy() ResolutionPolicy {
	return ResolutionPolicy{
		StrikeThreshold:  DefaultStrikeThreshold,
		OutcomeRecipient: model.RecipientAuthor,
	}
}

// ResolveRequest is an admin's decision on a pending report.
type ResolveRequest struct {
	ReportID   int64
	Verdict    model.Verdict
	AdminNotes string
	AdminID    int64
}

// ResolutionService is the report resolution state machine. A report moves
// from pending to accepted or rejected exactly once; the status change and any
// strike it carries commit together.
type ResolutionService struct {
	uow      driven.UnitOfWork
	notifier driven.Notifier
	clock    driven.Clock
	recorder Recorder
	policy   ResolutionPolicy
}

// NewResolutionService creates a ResolutionService. recorder may be nil.
func NewResolutionService(
	uow driven.UnitOfWork,
	notifier driven.Notifier,
	clock driven.Clock,
	recorder Recorder,
	policy ResolutionPolicy,
) *ResolutionService {
	if policy.OutcomeRecipient == "" {
		policy.OutcomeRecipient = model.RecipientAuthor
	}

	return &ResolutionService{
		uow:      uow,
		notifier: notifier,
		clock:    clock,
		recorder: recorderOrNop(recorder),
		policy:   policy,
	}
}

// resolution is what a committed ResolveReport transaction produced.
type resolution struct {
	report model.ReviewReport
	review *model.Review // nil if the review was deleted before resolution
	strike *model.StrikeCounter
}

// ResolveReport applies an admin verdict to a pending report.
//
// It fails with model.ErrNotFound when the report does not exist, or when a
// strike is requested but the reported review no longer exists (the author
// cannot be determined). It fails with model.ErrAlreadyResolved when the report
// is not pending, so retries never apply a second strike. Notifications are
// sent only after the transaction commits.
func (s *ResolutionService) ResolveReport(ctx context.Context, req ResolveRequest) (model.ReviewReport, error) {
	if !req.Verdict.Valid() {
		return model.ReviewReport{}, fmt.Errorf("verdict %d: %w", int(req.Verdict), model.ErrInvalidInput)
	}

	notes := strings.TrimSpace(req.AdminNotes)
	if utf8.RuneCountInString(notes) > model.MaxAdminNotesLength {
		return model.ReviewReport{}, fmt.Errorf("admin notes exceed %d characters: %w", model.MaxAdminNotesLength, model.ErrInvalidInput)
	}

	var out resolution
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		report, err := tx.Reports().Get(ctx, req.ReportID)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("report %d: %w", req.ReportID, model.ErrNotFound)
		}
		if !report.IsPending() {
			return fmt.Errorf("report %d is %s: %w", report.ID, report.Status, model.ErrAlreadyResolved)
		}

		review, err := tx.Reviews().Get(ctx, report.ReviewID)
		if err != nil {
			return err
		}
		if review == nil && req.Verdict.AppliesStrike() {
			return fmt.Errorf("review %d of report %d: %w", report.ReviewID, report.ID, model.ErrNotFound)
		}

		res := model.ReportResolution{
			Status:     req.Verdict.Status(),
			AdminNotes: notes,
			ResolvedAt: s.clock.Now().UTC(),
			ResolvedBy: req.AdminID,
		}

		ok, err := tx.Reports().MarkResolved(ctx, report.ID, res)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("report %d: %w", report.ID, model.ErrAlreadyResolved)
		}
		report.Apply(res)

		out = resolution{report: *report, review: review}

		if req.Verdict.AppliesStrike() {
			counter, err := tx.Strikes().Increment(ctx, review.AuthorID, res.ResolvedAt)
			if err != nil {
				return err
			}
			out.strike = &counter
		}

		return nil
	})
	if err != nil {
		s.recorder.ResolutionFailed(failureReason(err))
		return model.ReviewReport{}, err
	}

	s.recorder.ReportResolved(req.Verdict)
	slog.Info("report resolved",
		"report_id", out.report.ID,
		"review_id", out.report.ReviewID,
		"verdict", req.Verdict.String(),
		"admin_id", req.AdminID,
	)

	s.notifyResolution(ctx, out, req.Verdict)

	return out.report, nil
}

// DeleteReportedReview permanently deletes the review a report refers to.
// The report itself is kept. It fails with model.ErrNotFound for an unknown
// report and model.ErrMismatch when reviewID is not the report's review.
// Deleting an already-deleted review succeeds and reports false.
func (s *ResolutionService) DeleteReportedReview(ctx context.Context, reportID, reviewID int64) (bool, error) {
	var deleted bool
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx driven.Tx) error {
		report, err := tx.Reports().Get(ctx, reportID)
		if err != nil {
			return err
		}
		if report == nil {
			return fmt.Errorf("report %d: %w", reportID, model.ErrNotFound)
		}
		if report.ReviewID != reviewID {
			return fmt.Errorf("review %d, report %d references review %d: %w",
				reviewID, reportID, report.ReviewID, model.ErrMismatch)
		}

		deleted, err = tx.Reviews().Delete(ctx, reviewID)
		return err
	})
	if err != nil {
		s.recorder.ResolutionFailed(failureReason(err))
		return false, err
	}

	s.recorder.ReviewDeleted(deleted)
	if deleted {
		slog.Info("reported review deleted", "report_id", reportID, "review_id", reviewID)
	} else {
		slog.Info("reported review already deleted", "report_id", reportID, "review_id", reviewID)
	}

	return deleted, nil
}

// notifyResolution emits the outcome notification and, when a strike crossed
// the threshold, the suspension-candidate escalation.
func (s *ResolutionService) notifyResolution(ctx context.Context, out resolution, verdict model.Verdict) {
	report := out.report

	if out.review != nil {
		recipient := model.Recipient{Kind: model.RecipientAuthor, ID: out.review.AuthorID}
		if s.policy.OutcomeRecipient == model.RecipientBusinessOwner {
			recipient = model.Recipient{Kind: model.RecipientBusinessOwner, ID: out.review.BusinessID}
		}

		s.notifier.Notify(ctx, model.Notification{
			Type:      model.NotificationReportOutcome,
			Recipient: recipient,
			Title:     fmt.Sprintf("Report on review %d %s", report.ReviewID, report.Status),
			Message:   outcomeMessage(report, verdict),
			Payload: map[string]any{
				"report_id":     report.ID,
				"review_id":     report.ReviewID,
				"status":        string(report.Status),
				"strike_action": strikeActionOf(verdict),
			},
		})
	} else {
		slog.Info("outcome notification skipped, review no longer exists",
			"report_id", report.ID, "review_id", report.ReviewID)
	}

	if verdict == model.VerdictReject && s.policy.NotifyReporterOnReject {
		s.notifier.Notify(ctx, model.Notification{
			Type:      model.NotificationReportOutcome,
			Recipient: model.Recipient{Kind: model.RecipientReporter, ID: report.ReporterID},
			Title:     "Your report was reviewed",
			Message:   fmt.Sprintf("A moderator reviewed your report on review %d and decided no action is needed.", report.ReviewID),
			Payload: map[string]any{
				"report_id": report.ID,
				"review_id": report.ReviewID,
				"status":    string(report.Status),
			},
		})
	}

	if out.strike != nil && out.strike.Crossed(s.policy.StrikeThreshold) {
		slog.Warn("author reached strike threshold",
			"author_id", out.strike.AuthorID,
			"strikes", out.strike.Count,
			"threshold", s.policy.StrikeThreshold,
		)
		s.notifier.Notify(ctx, model.Notification{
			Type:      model.NotificationAuthorSuspensionCandidate,
			Recipient: model.ModerationQueue(),
			Title:     fmt.Sprintf("Author %d is a suspension candidate", out.strike.AuthorID),
			Message: fmt.Sprintf(
				"Author **%d** now has **%d** strikes (threshold %d). Suspension requires a separate admin action.",
				out.strike.AuthorID, out.strike.Count, s.policy.StrikeThreshold,
			),
			Payload: map[string]any{
				"author_id": out.strike.AuthorID,
				"strikes":   out.strike.Count,
				"threshold": s.policy.StrikeThreshold,
				"report_id": report.ID,
			},
		})
	}
}

func outcomeMessage(report model.ReviewReport, verdict model.Verdict) string {
	switch verdict {
	case model.VerdictAcceptWithStrike:
		return fmt.Sprintf("A report on review %d was **accepted** and a strike was recorded against the author.", report.ReviewID)
	case model.VerdictAcceptWithoutStrike:
		return fmt.Sprintf("A report on review %d was **accepted** without a strike.", report.ReviewID)
	case model.VerdictReject:
		return fmt.Sprintf("A report on review %d was **rejected**; no action was taken.", report.ReviewID)
	default:
		return fmt.Sprintf("A report on review %d was resolved.", report.ReviewID)
	}
}

func strikeActionOf(verdict model.Verdict) string {
	if verdict.AppliesStrike() {
		return string(model.StrikeActionWithStrike)
	}
	return string(model.StrikeActionWithoutStrike)
}

// failureReason labels a resolution error for metrics.
func failureReason(err error) string {
	switch {
	case errors.Is(err, model.ErrNotFound):
		return "not_found"
	case errors.Is(err, model.ErrAlreadyResolved):
		return "already_resolved"
	case errors.Is(err, model.ErrMismatch):
		return "mismatch"
	case errors.Is(err, model.ErrTransientStore):
		return "store"
	default:
		return "other"
	}
}
