package application_test

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

type resolutionFixture struct {
	data     *memData
	notifier *recordingNotifier
	rec      *countingRecorder
	svc      *application.ResolutionService
}

func newResolutionFixture(policy application.ResolutionPolicy) *resolutionFixture {
	f := &resolutionFixture{
		data:     newMemData(),
		notifier: &recordingNotifier{},
		rec:      &countingRecorder{},
	}
	f.svc = application.NewResolutionService(f.data, f.notifier, newFakeClock(), f.rec, policy)
	return f
}

// reported adds a review by authorID and a pending report against it.
func (f *resolutionFixture) reported(authorID int64) (model.Review, model.ReviewReport) {
	review := f.data.addReview(model.Review{AuthorID: authorID, BusinessID: 50, Rating: 5, Text: "fine"})
	report := f.data.addReport(model.ReviewReport{ReviewID: review.ID, ReporterID: 99, Reason: "spam"})
	return review, report
}

func TestResolveReport_AcceptWithStrike(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	got, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID:   report.ID,
		Verdict:    model.VerdictAcceptWithStrike,
		AdminNotes: "  confirmed  ",
		AdminID:    1,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReportStatusAccepted, got.Status)
	assert.Equal(t, "confirmed", got.AdminNotes)
	require.NotNil(t, got.ResolvedAt)
	require.NotNil(t, got.ResolvedBy)
	assert.Equal(t, int64(1), *got.ResolvedBy)

	assert.Equal(t, model.ReportStatusAccepted, f.data.report(report.ID).Status)
	assert.Equal(t, 1, f.data.strikeCount(review.AuthorID))

	outcomes := f.notifier.ofType(model.NotificationReportOutcome)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.Recipient{Kind: model.RecipientAuthor, ID: 7}, outcomes[0].Recipient)
	assert.Equal(t, "with_strike", outcomes[0].Payload["strike_action"])
	assert.Empty(t, f.notifier.ofType(model.NotificationAuthorSuspensionCandidate))
	assert.Equal(t, int32(1), f.rec.resolved.Load())
}

func TestResolveReport_AcceptWithoutStrike(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	got, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictAcceptWithoutStrike, AdminID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusAccepted, got.Status)
	assert.Zero(t, f.data.strikeCount(review.AuthorID))
	assert.Len(t, f.notifier.ofType(model.NotificationReportOutcome), 1)
}

func TestResolveReport_SecondResolutionIsAlreadyResolved(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	req := application.ResolveRequest{ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1}
	_, err := f.svc.ResolveReport(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.ResolveReport(context.Background(), req)
	require.ErrorIs(t, err, model.ErrAlreadyResolved)

	_, err = f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictReject, AdminID: 2,
	})
	require.ErrorIs(t, err, model.ErrAlreadyResolved)

	assert.Equal(t, 1, f.data.strikeCount(review.AuthorID), "retry must not apply a second strike")
	assert.Equal(t, model.ReportStatusAccepted, f.data.report(report.ID).Status)
	assert.Len(t, f.notifier.ofType(model.NotificationReportOutcome), 1)
	assert.Equal(t, int32(2), f.rec.resFailed.Load())
}

func TestResolveReport_ConcurrentResolutionsApplyOneStrike(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	const attempts = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		already   int
	)
	for range attempts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
				ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, model.ErrAlreadyResolved) {
				already++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, attempts-1, already)
	assert.Equal(t, 1, f.data.strikeCount(review.AuthorID))
}

func TestResolveReport_StrikesAccumulateAcrossReports(t *testing.T) {
	f := newResolutionFixture(application.ResolutionPolicy{StrikeThreshold: 3})
	review := f.data.addReview(model.Review{AuthorID: 7, BusinessID: 50, Rating: 5, Text: "fine"})

	for i := 1; i <= 5; i++ {
		report := f.data.addReport(model.ReviewReport{ReviewID: review.ID, ReporterID: int64(100 + i), Reason: "spam"})
		_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
			ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, i, f.data.strikeCount(7))
	}

	candidates := f.notifier.ofType(model.NotificationAuthorSuspensionCandidate)
	require.Len(t, candidates, 1, "escalation fires only when the threshold is crossed")
	assert.Equal(t, model.RecipientModerationQueue, candidates[0].Recipient.Kind)
	assert.Equal(t, int64(7), candidates[0].Payload["author_id"])
	assert.Equal(t, 3, candidates[0].Payload["strikes"])
}

func TestResolveReport_ThresholdDisabled(t *testing.T) {
	f := newResolutionFixture(application.ResolutionPolicy{StrikeThreshold: 0})
	_, report := f.reported(7)

	_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
	})
	require.NoError(t, err)
	assert.Empty(t, f.notifier.ofType(model.NotificationAuthorSuspensionCandidate))
}

func TestResolveReport_Reject(t *testing.T) {
	tests := []struct {
		name           string
		notifyOnReject bool
		wantOutcomes   int
	}{
		{name: "author only", notifyOnReject: false, wantOutcomes: 1},
		{name: "author and reporter", notifyOnReject: true, wantOutcomes: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newResolutionFixture(application.ResolutionPolicy{
				StrikeThreshold:        3,
				NotifyReporterOnReject: tt.notifyOnReject,
			})
			review, report := f.reported(7)

			got, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
				ReportID: report.ID, Verdict: model.VerdictReject, AdminID: 1,
			})
			require.NoError(t, err)
			assert.Equal(t, model.ReportStatusRejected, got.Status)
			assert.Zero(t, f.data.strikeCount(review.AuthorID))

			outcomes := f.notifier.ofType(model.NotificationReportOutcome)
			require.Len(t, outcomes, tt.wantOutcomes)
			if tt.notifyOnReject {
				assert.Equal(t, model.Recipient{Kind: model.RecipientReporter, ID: 99}, outcomes[1].Recipient)
			}
		})
	}
}

func TestResolveReport_BusinessOwnerRecipient(t *testing.T) {
	f := newResolutionFixture(application.ResolutionPolicy{
		StrikeThreshold:  3,
		OutcomeRecipient: model.RecipientBusinessOwner,
	})
	_, report := f.reported(7)

	_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictAcceptWithoutStrike, AdminID: 1,
	})
	require.NoError(t, err)

	outcomes := f.notifier.ofType(model.NotificationReportOutcome)
	require.Len(t, outcomes, 1)
	assert.Equal(t, model.Recipient{Kind: model.RecipientBusinessOwner, ID: 50}, outcomes[0].Recipient)
}

func TestResolveReport_StrikeFailureRollsBackStatus(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)
	f.data.incrementErr = errStore

	_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
	})
	require.ErrorIs(t, err, errStore)

	assert.Equal(t, model.ReportStatusPending, f.data.report(report.ID).Status)
	assert.Zero(t, f.data.strikeCount(review.AuthorID))
	assert.Empty(t, f.notifier.all())

	f.data.incrementErr = nil
	_, err = f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
	})
	require.NoError(t, err, "a rolled back resolution can be retried")
	assert.Equal(t, 1, f.data.strikeCount(review.AuthorID))
}

func TestResolveReport_NotFound(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())

	_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: 404, Verdict: model.VerdictReject, AdminID: 1,
	})
	require.ErrorIs(t, err, model.ErrNotFound)
	assert.Empty(t, f.notifier.all())
}

func TestResolveReport_DeletedReview(t *testing.T) {
	t.Run("strike requires the review", func(t *testing.T) {
		f := newResolutionFixture(application.DefaultResolutionPolicy())
		review, report := f.reported(7)
		_, _ = f.data.Reviews().Delete(context.Background(), review.ID)

		_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
			ReportID: report.ID, Verdict: model.VerdictAcceptWithStrike, AdminID: 1,
		})
		require.ErrorIs(t, err, model.ErrNotFound)
		assert.Equal(t, model.ReportStatusPending, f.data.report(report.ID).Status)
	})

	t.Run("no strike resolves without outcome", func(t *testing.T) {
		f := newResolutionFixture(application.DefaultResolutionPolicy())
		review, report := f.reported(7)
		_, _ = f.data.Reviews().Delete(context.Background(), review.ID)

		got, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
			ReportID: report.ID, Verdict: model.VerdictAcceptWithoutStrike, AdminID: 1,
		})
		require.NoError(t, err)
		assert.Equal(t, model.ReportStatusAccepted, got.Status)
		assert.Empty(t, f.notifier.ofType(model.NotificationReportOutcome))
	})
}

func TestResolveReport_InvalidInput(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	_, report := f.reported(7)

	_, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.Verdict(42), AdminID: 1,
	})
	require.ErrorIs(t, err, model.ErrInvalidInput)

	_, err = f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID:   report.ID,
		Verdict:    model.VerdictReject,
		AdminNotes: strings.Repeat("x", model.MaxAdminNotesLength+1),
		AdminID:    1,
	})
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.True(t, f.data.report(report.ID).IsPending())
}

func TestDeleteReportedReview(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	deleted, err := f.svc.DeleteReportedReview(context.Background(), report.ID, review.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, exists := f.data.review(review.ID)
	assert.False(t, exists)
	assert.Equal(t, report.ID, f.data.report(report.ID).ID, "report is kept for audit")

	deleted, err = f.svc.DeleteReportedReview(context.Background(), report.ID, review.ID)
	require.NoError(t, err, "deleting twice is idempotent")
	assert.False(t, deleted)
}

func TestDeleteReportedReview_Mismatch(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)
	other := f.data.addReview(model.Review{AuthorID: 8, Rating: 3, Text: "other"})

	_, err := f.svc.DeleteReportedReview(context.Background(), report.ID, other.ID)
	require.ErrorIs(t, err, model.ErrMismatch)

	_, exists := f.data.review(other.ID)
	assert.True(t, exists)
	_, exists = f.data.review(review.ID)
	assert.True(t, exists)
}

func TestDeleteReportedReview_UnknownReport(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())

	_, err := f.svc.DeleteReportedReview(context.Background(), 404, 1)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestResolveReport_AfterReviewDeletion(t *testing.T) {
	f := newResolutionFixture(application.DefaultResolutionPolicy())
	review, report := f.reported(7)

	_, err := f.svc.DeleteReportedReview(context.Background(), report.ID, review.ID)
	require.NoError(t, err)

	got, err := f.svc.ResolveReport(context.Background(), application.ResolveRequest{
		ReportID: report.ID, Verdict: model.VerdictReject, AdminID: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, model.ReportStatusRejected, got.Status)
}
