package application

import "github.com/ericfisherdev/reviewmod/internal/domain/model"

// Recorder receives moderation events for metrics. Implementations must be
// safe for concurrent use.
type Recorder interface {
	PassCompleted(summary PassSummary)
	PassFailed()
	PassSkipped()
	ReviewScoreFailed()
	ReportSubmitted()
	ReportResolved(verdict model.Verdict)
	ResolutionFailed(reason string)
	ReviewDeleted(deleted bool)
}

// nopRecorder discards all events. Used when no Recorder is configured.
type nopRecorder struct{}

func (nopRecorder) PassCompleted(PassSummary)    {}
func (nopRecorder) PassFailed()                  {}
func (nopRecorder) PassSkipped()                 {}
func (nopRecorder) ReviewScoreFailed()           {}
func (nopRecorder) ReportSubmitted()             {}
func (nopRecorder) ReportResolved(model.Verdict) {}
func (nopRecorder) ResolutionFailed(string)      {}
func (nopRecorder) ReviewDeleted(bool)           {}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
