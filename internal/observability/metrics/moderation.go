// Package metrics provides Prometheus metrics for moderation operations.
package metrics

import (
	"fmt"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ericfisherdev/reviewmod/internal/adapter/driven/notify"
	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// Compile-time interface satisfaction checks.
var (
	_ application.Recorder    = (*ModerationMetrics)(nil)
	_ notify.DeliveryRecorder = (*ModerationMetrics)(nil)
)

// ModerationMetrics records reanalysis passes, report resolutions and
// notification delivery.
type ModerationMetrics struct {
	// Reanalysis
	passesTotal       *prometheus.CounterVec // status: completed, failed, skipped
	passDuration      prometheus.Histogram
	reviewsScanned    prometheus.Counter
	reviewsFlagged    prometheus.Counter
	scoreUpdates      prometheus.Counter
	scoreFailures     prometheus.Counter
	scoresDegraded    prometheus.Counter
	lastPassTimestamp prometheus.Gauge

	// Reports
	reportsSubmitted   prometheus.Counter
	reportsResolved    *prometheus.CounterVec // decision, strike
	resolutionFailures *prometheus.CounterVec // reason
	reviewsDeleted     *prometheus.CounterVec // deleted: true, false

	// Notifications
	notificationsTotal *prometheus.CounterVec // type, status: queued, dropped
	deliveriesTotal    *prometheus.CounterVec // sender, type, status: success, error
}

// NewModerationMetrics creates the moderation metrics and registers them with registry.
func NewModerationMetrics(registry prometheus.Registerer) (*ModerationMetrics, error) {
	m := &ModerationMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register moderation metrics: %w", err)
	}
	return m, nil
}

func (m *ModerationMetrics) initMetrics() {
	m.passesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_reanalysis_passes_total",
			Help: "Reanalysis pass attempts by outcome",
		},
		[]string{"status"},
	)
	m.passDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "reviewmod_reanalysis_pass_duration_seconds",
		Help:    "Wall time of completed reanalysis passes",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300},
	})
	m.reviewsScanned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reanalysis_reviews_scanned_total",
		Help: "Reviews scored by reanalysis passes",
	})
	m.reviewsFlagged = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reanalysis_reviews_flagged_total",
		Help: "Reviews that transitioned to incoherent",
	})
	m.scoreUpdates = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reanalysis_score_updates_total",
		Help: "Persisted score changes",
	})
	m.scoreFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reanalysis_score_failures_total",
		Help: "Reviews skipped in a pass because scoring or persisting failed",
	})
	m.scoresDegraded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reanalysis_scores_degraded_total",
		Help: "Fail-open scores that were not persisted",
	})
	m.lastPassTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "reviewmod_reanalysis_last_pass_timestamp_seconds",
		Help: "Unix time of the last completed reanalysis pass",
	})

	m.reportsSubmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reviewmod_reports_submitted_total",
		Help: "Review reports submitted",
	})
	m.reportsResolved = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_reports_resolved_total",
			Help: "Review reports resolved by decision and whether a strike was applied",
		},
		[]string{"decision", "strike"},
	)
	m.resolutionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_resolution_failures_total",
			Help: "Failed resolution and deletion requests by reason",
		},
		[]string{"reason"},
	)
	m.reviewsDeleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_reported_reviews_deleted_total",
			Help: "Delete requests for reported reviews, by whether a row was removed",
		},
		[]string{"deleted"},
	)

	m.notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_notifications_total",
			Help: "Notifications accepted into or dropped from the dispatch queue",
		},
		[]string{"notification_type", "status"},
	)
	m.deliveriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewmod_notification_deliveries_total",
			Help: "Notification deliveries by sender, type, and status",
		},
		[]string{"sender", "notification_type", "status"},
	)
}

// Describe implements prometheus.Collector.
func (m *ModerationMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors() {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *ModerationMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors() {
		c.Collect(ch)
	}
}

func (m *ModerationMetrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.passesTotal, m.passDuration, m.reviewsScanned, m.reviewsFlagged,
		m.scoreUpdates, m.scoreFailures, m.scoresDegraded, m.lastPassTimestamp,
		m.reportsSubmitted, m.reportsResolved, m.resolutionFailures, m.reviewsDeleted,
		m.notificationsTotal, m.deliveriesTotal,
	}
}

func (m *ModerationMetrics) PassCompleted(s application.PassSummary) {
	m.passesTotal.WithLabelValues("completed").Inc()
	m.passDuration.Observe(s.Duration.Seconds())
	m.reviewsScanned.Add(float64(s.ReviewsScanned))
	m.reviewsFlagged.Add(float64(s.IncoherentFound))
	m.scoreUpdates.Add(float64(s.Updated))
	m.scoresDegraded.Add(float64(s.Degraded))
	m.lastPassTimestamp.SetToCurrentTime()
}

func (m *ModerationMetrics) PassFailed()        { m.passesTotal.WithLabelValues("failed").Inc() }
func (m *ModerationMetrics) PassSkipped()       { m.passesTotal.WithLabelValues("skipped").Inc() }
func (m *ModerationMetrics) ReviewScoreFailed() { m.scoreFailures.Inc() }
func (m *ModerationMetrics) ReportSubmitted()   { m.reportsSubmitted.Inc() }

func (m *ModerationMetrics) ReportResolved(v model.Verdict) {
	m.reportsResolved.WithLabelValues(string(v.Status()), strconv.FormatBool(v.AppliesStrike())).Inc()
}

func (m *ModerationMetrics) ResolutionFailed(reason string) {
	m.resolutionFailures.WithLabelValues(reason).Inc()
}

func (m *ModerationMetrics) ReviewDeleted(deleted bool) {
	m.reviewsDeleted.WithLabelValues(strconv.FormatBool(deleted)).Inc()
}

func (m *ModerationMetrics) NotificationQueued(t model.NotificationType) {
	m.notificationsTotal.WithLabelValues(string(t), "queued").Inc()
}

func (m *ModerationMetrics) NotificationDropped(t model.NotificationType) {
	m.notificationsTotal.WithLabelValues(string(t), "dropped").Inc()
}

func (m *ModerationMetrics) NotificationDelivered(sender string, t model.NotificationType) {
	m.deliveriesTotal.WithLabelValues(sender, string(t), "success").Inc()
}

func (m *ModerationMetrics) NotificationFailed(sender string, t model.NotificationType) {
	m.deliveriesTotal.WithLabelValues(sender, string(t), "error").Inc()
}
