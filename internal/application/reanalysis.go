// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

var (
	// ErrReanalysisInProgress is returned when a pass is requested while another
	// pass is still running. The request is dropped, not queued.
	ErrReanalysisInProgress = errors.New("reanalysis pass already in progress")

	// ErrSchedulerStopped is returned for pass requests after shutdown began.
	ErrSchedulerStopped = errors.New("reanalysis scheduler stopped")
)

// DefaultReanalysisInterval is the scheduled pass interval when none is configured.
const DefaultReanalysisInterval = 10 * time.Minute

// PassSummary reports the outcome of one reanalysis pass.
type PassSummary struct {
	ReviewsScanned  int
	IncoherentFound int // reviews whose flag went from false to true during the pass
	Updated         int
	Failed          int
	Degraded        int
	Duration        time.Duration
}

// ReanalysisService periodically re-scores every review for rating/text
// incoherence. At most one pass runs at a time; ticks and manual triggers that
// arrive while a pass is running are dropped.
type ReanalysisService struct {
	source   driven.ReviewSource
	reviews  driven.ReviewStore
	scorer   driven.Scorer
	notifier driven.Notifier
	clock    driven.Clock
	recorder Recorder
	interval time.Duration
	workers  int

	running  atomic.Bool
	mu       sync.Mutex // guards stopped and inflight.Add
	stopped  bool
	inflight sync.WaitGroup
}

// NewReanalysisService creates a ReanalysisService. recorder may be nil.
// A non-positive interval falls back to DefaultReanalysisInterval and a
// non-positive worker count to 1.
func NewReanalysisService(
	source driven.ReviewSource,
	reviews driven.ReviewStore,
	scorer driven.Scorer,
	notifier driven.Notifier,
	clock driven.Clock,
	recorder Recorder,
	interval time.Duration,
	workers int,
) *ReanalysisService {
	if interval <= 0 {
		interval = DefaultReanalysisInterval
	}
	if workers < 1 {
		workers = 1
	}

	return &ReanalysisService{
		source:   source,
		reviews:  reviews,
		scorer:   scorer,
		notifier: notifier,
		clock:    clock,
		recorder: recorderOrNop(recorder),
		interval: interval,
		workers:  workers,
	}
}

// Start runs the scheduling loop until ctx is canceled. Each tick launches a
// pass in the background so that ticks arriving mid-pass are consumed and
// dropped rather than buffered. On cancellation Start stops accepting passes
// and waits for the pass in flight to finish.
func (s *ReanalysisService) Start(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("reanalysis scheduler started", "interval", s.interval, "workers", s.workers)

	for {
		select {
		case <-ctx.Done():
			s.Shutdown()
			slog.Info("reanalysis scheduler stopped")
			return
		case <-ticker.C():
			s.launch(ctx)
		}
	}
}

// TriggerReanalysis runs one pass synchronously. It returns
// ErrReanalysisInProgress without doing anything if a pass is already running,
// and ErrSchedulerStopped after shutdown. Like a scheduled pass, the pass is
// detached from ctx cancellation so a disconnecting caller cannot abort it
// halfway through the corpus.
func (s *ReanalysisService) TriggerReanalysis(ctx context.Context) (PassSummary, error) {
	if err := s.acquire(); err != nil {
		if errors.Is(err, ErrReanalysisInProgress) {
			s.recorder.PassSkipped()
		}
		return PassSummary{}, err
	}
	defer s.release()

	return s.runPass(context.WithoutCancel(ctx))
}

// Running reports whether a pass is currently in flight.
func (s *ReanalysisService) Running() bool {
	return s.running.Load()
}

// Shutdown stops new passes from starting and blocks until the pass in
// flight, if any, has finished. It is safe to call more than once.
func (s *ReanalysisService) Shutdown() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.inflight.Wait()
}

// launch starts a scheduled pass in the background unless one is running.
// The pass is detached from ctx cancellation so shutdown lets it finish.
func (s *ReanalysisService) launch(ctx context.Context) {
	if err := s.acquire(); err != nil {
		if errors.Is(err, ErrReanalysisInProgress) {
			slog.Info("reanalysis tick dropped, pass in flight")
			s.recorder.PassSkipped()
		}
		return
	}

	passCtx := context.WithoutCancel(ctx)
	go func() {
		defer s.release()
		if _, err := s.runPass(passCtx); err != nil {
			slog.Error("scheduled reanalysis pass failed", "error", err)
		}
	}()
}

func (s *ReanalysisService) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return ErrSchedulerStopped
	}
	if !s.running.CompareAndSwap(false, true) {
		return ErrReanalysisInProgress
	}
	s.inflight.Add(1)
	return nil
}

func (s *ReanalysisService) release() {
	s.running.Store(false)
	s.inflight.Done()
}

// rescoreResult is the per-review outcome of a pass.
type rescoreResult int

const (
	rescoreUnchanged rescoreResult = iota
	rescoreUpdated
	rescoreNewlyIncoherent
	rescoreDegraded
	rescoreGone
	rescoreFailed
)

// runPass scores every review from the source. Failing to load the review
// list aborts the pass; a failure on a single review is logged and skipped.
func (s *ReanalysisService) runPass(ctx context.Context) (PassSummary, error) {
	start := s.clock.Now()

	reviews, err := s.source.Reviews(ctx)
	if err != nil {
		s.recorder.PassFailed()
		return PassSummary{}, fmt.Errorf("load reviews for reanalysis: %w", err)
	}

	var updated, found, failed, degraded atomic.Int64

	p := pool.New().WithMaxGoroutines(s.workers)
	for _, review := range reviews {
		p.Go(func() {
			switch s.rescore(ctx, review) {
			case rescoreNewlyIncoherent:
				found.Add(1)
				updated.Add(1)
			case rescoreUpdated:
				updated.Add(1)
			case rescoreDegraded:
				degraded.Add(1)
			case rescoreFailed:
				failed.Add(1)
				s.recorder.ReviewScoreFailed()
			case rescoreUnchanged, rescoreGone:
			}
		})
	}
	p.Wait()

	summary := PassSummary{
		ReviewsScanned:  len(reviews),
		IncoherentFound: int(found.Load()),
		Updated:         int(updated.Load()),
		Failed:          int(failed.Load()),
		Degraded:        int(degraded.Load()),
		Duration:        s.clock.Now().Sub(start),
	}
	s.recorder.PassCompleted(summary)

	slog.Info("reanalysis pass complete",
		"reviews_scanned", summary.ReviewsScanned,
		"incoherent_found", summary.IncoherentFound,
		"updated", summary.Updated,
		"failed", summary.Failed,
		"degraded", summary.Degraded,
		"duration", summary.Duration.Round(time.Millisecond),
	)

	return summary, nil
}

// rescore scores one review and persists the result when it changed. Only a
// false-to-true transition that was actually persisted emits a notification.
func (s *ReanalysisService) rescore(ctx context.Context, review model.Review) (result rescoreResult) {
	defer func() {
		if v := recover(); v != nil {
			slog.Error("scorer panicked", "review_id", review.ID, "panic", v)
			result = rescoreFailed
		}
	}()

	score := s.scorer.Score(review.Rating, review.Text)
	if score.Degraded {
		slog.Warn("scoring degraded, keeping stored result", "review_id", review.ID, "scoring_degraded", true)
		return rescoreDegraded
	}

	if !score.DiffersFrom(review) {
		return rescoreUnchanged
	}

	if err := s.reviews.UpdateScore(ctx, review.ID, score, s.clock.Now()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			slog.Debug("review deleted during pass, skipping", "review_id", review.ID)
			return rescoreGone
		}
		slog.Error("persist review score failed", "review_id", review.ID, "error", err)
		return rescoreFailed
	}

	if review.IncoherentFlag || !score.IsIncoherent {
		return rescoreUpdated
	}

	s.notifier.Notify(ctx, model.Notification{
		Type:      model.NotificationReviewAttention,
		Recipient: model.ModerationQueue(),
		Title:     fmt.Sprintf("Review %d needs attention", review.ID),
		Message: fmt.Sprintf(
			"Review **%d** for business %d was rated **%d/5** but its text reads as incoherent with that rating (confidence %.2f).",
			review.ID, review.BusinessID, review.Rating, score.Confidence,
		),
		Payload: map[string]any{
			"review_id":   review.ID,
			"business_id": review.BusinessID,
			"author_id":   review.AuthorID,
			"rating":      review.Rating,
			"confidence":  score.Confidence,
		},
	})

	return rescoreNewlyIncoherent
}

// FullScanSource is the default ReviewSource: every pass reads the whole corpus.
type FullScanSource struct {
	store driven.ReviewStore
}

// Compile-time interface satisfaction check.
var _ driven.ReviewSource = FullScanSource{}

// NewFullScanSource creates a ReviewSource that lists all reviews from store.
func NewFullScanSource(store driven.ReviewStore) FullScanSource {
	return FullScanSource{store: store}
}

// Reviews returns every stored review.
func (f FullScanSource) Reviews(ctx context.Context) ([]model.Review, error) {
	return f.store.ListAll(ctx)
}
