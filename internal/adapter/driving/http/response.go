package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// SubmitReportRequest is the JSON body for reporting a review.
type SubmitReportRequest struct {
	Reason string `json:"reason"`
}

// ResolveReportRequest is the JSON body for resolving a report.
// StrikeAction defaults to without_strike.
type ResolveReportRequest struct {
	Decision     string `json:"decision"`
	StrikeAction string `json:"strike_action"`
	AdminNotes   string `json:"admin_notes"`
}

// DeleteReviewResponse reports whether the delete removed a review.
type DeleteReviewResponse struct {
	Deleted bool `json:"deleted"`
}

// ReportResponse is the JSON representation of a review report.
type ReportResponse struct {
	ID         int64   `json:"id"`
	ReviewID   int64   `json:"review_id"`
	ReporterID int64   `json:"reporter_id"`
	Reason     string  `json:"reason"`
	Status     string  `json:"status"`
	AdminNotes string  `json:"admin_notes,omitempty"`
	CreatedAt  string  `json:"created_at"`
	ResolvedAt *string `json:"resolved_at"`
	ResolvedBy *int64  `json:"resolved_by"`
}

// ReportPageResponse is one page of reports.
type ReportPageResponse struct {
	Reports  []ReportResponse `json:"reports"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// ReviewResponse is the JSON representation of a review and its latest score.
type ReviewResponse struct {
	ID                   int64   `json:"id"`
	BusinessID           int64   `json:"business_id"`
	AuthorID             int64   `json:"author_id"`
	Rating               int     `json:"rating"`
	Text                 string  `json:"text"`
	CreatedAt            string  `json:"created_at"`
	IncoherentFlag       bool    `json:"incoherent_flag"`
	IncoherentConfidence float64 `json:"incoherent_confidence"`
	LastScoredAt         *string `json:"last_scored_at"`
}

// ReviewPageResponse is one page of reviews.
type ReviewPageResponse struct {
	Reviews  []ReviewResponse `json:"reviews"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

// PassSummaryResponse is the JSON representation of a reanalysis pass.
type PassSummaryResponse struct {
	ReviewsScanned  int   `json:"reviews_scanned"`
	IncoherentFound int   `json:"incoherent_found"`
	Updated         int   `json:"updated"`
	Failed          int   `json:"failed"`
	Degraded        int   `json:"degraded"`
	DurationMS      int64 `json:"duration_ms"`
}

// StrikeResponse is the JSON representation of an author's strike counter.
type StrikeResponse struct {
	AuthorID     int64   `json:"author_id"`
	Count        int     `json:"count"`
	LastStrikeAt *string `json:"last_strike_at"`
}

// NotificationResponse is the JSON representation of an inbox entry.
type NotificationResponse struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	RecipientKind string         `json:"recipient_kind"`
	RecipientID   int64          `json:"recipient_id,omitempty"`
	Title         string         `json:"title"`
	BodyHTML      string         `json:"body_html"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     string         `json:"created_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toReportResponse(r model.ReviewReport) ReportResponse {
	return ReportResponse{
		ID:         r.ID,
		ReviewID:   r.ReviewID,
		ReporterID: r.ReporterID,
		Reason:     r.Reason,
		Status:     string(r.Status),
		AdminNotes: r.AdminNotes,
		CreatedAt:  formatTime(r.CreatedAt),
		ResolvedAt: formatTimePtr(r.ResolvedAt),
		ResolvedBy: r.ResolvedBy,
	}
}

func toReviewResponse(r model.Review) ReviewResponse {
	return ReviewResponse{
		ID:                   r.ID,
		BusinessID:           r.BusinessID,
		AuthorID:             r.AuthorID,
		Rating:               r.Rating,
		Text:                 r.Text,
		CreatedAt:            formatTime(r.CreatedAt),
		IncoherentFlag:       r.IncoherentFlag,
		IncoherentConfidence: r.IncoherentConfidence,
		LastScoredAt:         formatTimePtr(r.LastScoredAt),
	}
}

func toPassSummaryResponse(s application.PassSummary) PassSummaryResponse {
	return PassSummaryResponse{
		ReviewsScanned:  s.ReviewsScanned,
		IncoherentFound: s.IncoherentFound,
		Updated:         s.Updated,
		Failed:          s.Failed,
		Degraded:        s.Degraded,
		DurationMS:      s.Duration.Milliseconds(),
	}
}

func toStrikeResponse(c model.StrikeCounter) StrikeResponse {
	return StrikeResponse{
		AuthorID:     c.AuthorID,
		Count:        c.Count,
		LastStrikeAt: formatTimePtr(c.LastStrikeAt),
	}
}

func toNotificationResponse(e model.InboxEntry) NotificationResponse {
	return NotificationResponse{
		ID:            e.ID,
		Type:          string(e.Type),
		RecipientKind: string(e.Recipient.Kind),
		RecipientID:   e.Recipient.ID,
		Title:         e.Title,
		BodyHTML:      e.BodyHTML,
		Payload:       e.Payload,
		CreatedAt:     formatTime(e.CreatedAt),
	}
}
