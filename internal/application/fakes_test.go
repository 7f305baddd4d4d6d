package application_test

import (
	"context"
	"errors"
	"maps"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

var errStore = errors.New("store unavailable")

// --- In-memory stores ---

// memData backs the in-memory store fakes. mu guards the maps; txMu
// serializes units of work the way the SQLite single writer does.
type memData struct {
	mu   sync.Mutex
	txMu sync.Mutex

	reviews map[int64]model.Review
	reports map[int64]model.ReviewReport
	strikes map[int64]model.StrikeCounter

	nextReviewID int64
	nextReportID int64

	listErr      error
	updateErr    map[int64]error
	incrementErr error
	listCalls    atomic.Int32

	// beforeUpdate runs before UpdateScore touches the map.
	beforeUpdate func(id int64)
}

func newMemData() *memData {
	return &memData{
		reviews:   map[int64]model.Review{},
		reports:   map[int64]model.ReviewReport{},
		strikes:   map[int64]model.StrikeCounter{},
		updateErr: map[int64]error{},
	}
}

func (d *memData) addReview(r model.Review) model.Review {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextReviewID++
	r.ID = d.nextReviewID
	d.reviews[r.ID] = r
	return r
}

func (d *memData) addReport(r model.ReviewReport) model.ReviewReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextReportID++
	r.ID = d.nextReportID
	if r.Status == "" {
		r.Status = model.ReportStatusPending
	}
	d.reports[r.ID] = r
	return r
}

func (d *memData) review(id int64) (model.Review, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r, ok := d.reviews[id]
	return r, ok
}

func (d *memData) report(id int64) model.ReviewReport {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.reports[id]
}

func (d *memData) strikeCount(authorID int64) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.strikes[authorID].Count
}

func (d *memData) Reviews() driven.ReviewStore  { return memReviews{d} }
func (d *memData) Reports() driven.ReportStore  { return memReports{d} }
func (d *memData) Strikes() driven.StrikeLedger { return memStrikes{d} }

// WithinTx runs fn under the transaction lock and restores the maps on error.
func (d *memData) WithinTx(ctx context.Context, fn func(ctx context.Context, tx driven.Tx) error) error {
	d.txMu.Lock()
	defer d.txMu.Unlock()

	d.mu.Lock()
	reviews, reports, strikes := maps.Clone(d.reviews), maps.Clone(d.reports), maps.Clone(d.strikes)
	d.mu.Unlock()

	if err := fn(ctx, d); err != nil {
		d.mu.Lock()
		d.reviews, d.reports, d.strikes = reviews, reports, strikes
		d.mu.Unlock()
		return err
	}
	return nil
}

type memReviews struct{ d *memData }

func (m memReviews) Create(_ context.Context, r model.Review) (model.Review, error) {
	return m.d.addReview(r), nil
}

func (m memReviews) Get(_ context.Context, id int64) (*model.Review, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	r, ok := m.d.reviews[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m memReviews) ListAll(_ context.Context) ([]model.Review, error) {
	m.d.listCalls.Add(1)
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if m.d.listErr != nil {
		return nil, m.d.listErr
	}
	out := make([]model.Review, 0, len(m.d.reviews))
	for _, r := range m.d.reviews {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memReviews) ListFlagged(_ context.Context, page model.Page) ([]model.Review, int, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	var out []model.Review
	for _, r := range m.d.reviews {
		if r.IncoherentFlag {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IncoherentConfidence > out[j].IncoherentConfidence })
	total := len(out)
	start := min(page.Offset(), total)
	end := min(start+page.Normalize().Size, total)
	return out[start:end], total, nil
}

func (m memReviews) UpdateScore(ctx context.Context, id int64, score model.Score, scoredAt time.Time) error {
	if m.d.beforeUpdate != nil {
		m.d.beforeUpdate(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if err := m.d.updateErr[id]; err != nil {
		return err
	}
	r, ok := m.d.reviews[id]
	if !ok {
		return model.ErrNotFound
	}
	r.IncoherentFlag = score.IsIncoherent
	r.IncoherentConfidence = score.Confidence
	r.LastScoredAt = &scoredAt
	m.d.reviews[id] = r
	return nil
}

func (m memReviews) Delete(_ context.Context, id int64) (bool, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	_, ok := m.d.reviews[id]
	delete(m.d.reviews, id)
	return ok, nil
}

type memReports struct{ d *memData }

func (m memReports) Create(_ context.Context, r model.ReviewReport) (model.ReviewReport, error) {
	return m.d.addReport(r), nil
}

func (m memReports) Get(_ context.Context, id int64) (*model.ReviewReport, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	r, ok := m.d.reports[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m memReports) List(_ context.Context, status model.ReportStatus, page model.Page) ([]model.ReviewReport, int, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	var out []model.ReviewReport
	for _, r := range m.d.reports {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	total := len(out)
	start := min(page.Offset(), total)
	end := min(start+page.Normalize().Size, total)
	return out[start:end], total, nil
}

func (m memReports) MarkResolved(_ context.Context, id int64, res model.ReportResolution) (bool, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	r, ok := m.d.reports[id]
	if !ok || r.Status != model.ReportStatusPending {
		return false, nil
	}
	r.Apply(res)
	m.d.reports[id] = r
	return true, nil
}

type memStrikes struct{ d *memData }

func (m memStrikes) Get(_ context.Context, authorID int64) (model.StrikeCounter, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	c, ok := m.d.strikes[authorID]
	if !ok {
		return model.StrikeCounter{AuthorID: authorID}, nil
	}
	return c, nil
}

func (m memStrikes) Increment(_ context.Context, authorID int64, at time.Time) (model.StrikeCounter, error) {
	m.d.mu.Lock()
	defer m.d.mu.Unlock()
	if m.d.incrementErr != nil {
		return model.StrikeCounter{}, m.d.incrementErr
	}
	c := m.d.strikes[authorID]
	c.AuthorID = authorID
	c.Count++
	c.LastStrikeAt = &at
	m.d.strikes[authorID] = c
	return c, nil
}

// --- Scorer doubles ---

// fixedScorer returns a preset score per review text, defaulting to coherent.
type fixedScorer struct {
	byText map[string]model.Score
	calls  atomic.Int32
}

func (f *fixedScorer) Score(_ int, text string) model.Score {
	f.calls.Add(1)
	return f.byText[text]
}

// gateScorer blocks every call until release is closed.
type gateScorer struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateScorer() *gateScorer {
	return &gateScorer{entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gateScorer) Score(_ int, _ string) model.Score {
	g.once.Do(func() { close(g.entered) })
	<-g.release
	return model.Score{IsIncoherent: true, Confidence: 0.9}
}

type panicScorer struct{ text string }

func (p panicScorer) Score(_ int, text string) model.Score {
	if text == p.text {
		panic("classifier exploded")
	}
	return model.Score{}
}

// --- Notifier double ---

type recordingNotifier struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingNotifier) all() []model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Notification(nil), r.sent...)
}

func (r *recordingNotifier) ofType(t model.NotificationType) []model.Notification {
	var out []model.Notification
	for _, n := range r.all() {
		if n.Type == t {
			out = append(out, n)
		}
	}
	return out
}

// --- Clock double ---

// fakeClock hands out a single manual ticker. The tick channel is unbuffered,
// so tick() returns once the scheduler loop has received the tick.
type fakeClock struct {
	now    time.Time
	ticker *fakeTicker
	ready  chan struct{}
}

func newFakeClock() *fakeClock {
	return &fakeClock{
		now:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		ready: make(chan struct{}),
	}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) NewTicker(_ time.Duration) driven.Ticker {
	c.ticker = &fakeTicker{ch: make(chan time.Time)}
	close(c.ready)
	return c.ticker
}

func (c *fakeClock) tick() {
	<-c.ready
	c.ticker.ch <- c.now
}

type fakeTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }
func (t *fakeTicker) Stop()               { t.stopped.Store(true) }

// --- Recorder double ---

type countingRecorder struct {
	completed atomic.Int32
	failed    atomic.Int32
	skipped   atomic.Int32
	scoreFail atomic.Int32
	resolved  atomic.Int32
	resFailed atomic.Int32
}

func (r *countingRecorder) PassCompleted(application.PassSummary) { r.completed.Add(1) }
func (r *countingRecorder) PassFailed()                           { r.failed.Add(1) }
func (r *countingRecorder) PassSkipped()                          { r.skipped.Add(1) }
func (r *countingRecorder) ReviewScoreFailed()                    { r.scoreFail.Add(1) }
func (r *countingRecorder) ReportSubmitted()                      {}
func (r *countingRecorder) ReportResolved(model.Verdict)          { r.resolved.Add(1) }
func (r *countingRecorder) ResolutionFailed(string)               { r.resFailed.Add(1) }
func (r *countingRecorder) ReviewDeleted(bool)                    {}
