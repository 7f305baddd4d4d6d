package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/application"
	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// ReanalysisTrigger runs an on-demand reanalysis pass.
type ReanalysisTrigger interface {
	TriggerReanalysis(ctx context.Context) (application.PassSummary, error)
}

// Moderator applies admin decisions to reports.
type Moderator interface {
	ResolveReport(ctx context.Context, req application.ResolveRequest) (model.ReviewReport, error)
	DeleteReportedReview(ctx context.Context, reportID, reviewID int64) (bool, error)
}

// ReportQueries covers report intake and the read side of the moderation queue.
type ReportQueries interface {
	SubmitReport(ctx context.Context, reviewID, reporterID int64, reason string) (model.ReviewReport, error)
	GetReport(ctx context.Context, id int64) (model.ReviewReport, error)
	ListPendingReports(ctx context.Context, page model.Page) (application.ReportPage, error)
	ListReports(ctx context.Context, status model.ReportStatus, page model.Page) (application.ReportPage, error)
	ListFlaggedReviews(ctx context.Context, page model.Page) (application.ReviewPage, error)
	GetStrikes(ctx context.Context, authorID int64) (model.StrikeCounter, error)
}

// Inbox lists persisted notifications.
type Inbox interface {
	ListRecent(ctx context.Context, limit int) ([]model.InboxEntry, error)
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	reanalysis ReanalysisTrigger
	moderator  Moderator
	reports    ReportQueries
	inbox      Inbox
	pinger     Pinger
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. pinger may be nil.
func NewHandler(
	reanalysis ReanalysisTrigger,
	moderator Moderator,
	reports ReportQueries,
	inbox Inbox,
	pinger Pinger,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		reanalysis: reanalysis,
		moderator:  moderator,
		reports:    reports,
		inbox:      inbox,
		pinger:     pinger,
		logger:     logger,
	}
}

// MuxOptions configures NewServeMux.
type MuxOptions struct {
	// AdminToken, when set, must be presented in X-Admin-Token on admin routes.
	AdminToken string
	// Metrics is mounted at GET /metrics when non-nil.
	Metrics http.Handler
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware. Admin routes additionally require the
// admin role.
func NewServeMux(h *Handler, opts MuxOptions, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	admin := func(fn http.HandlerFunc) http.Handler {
		return requireAdmin(opts.AdminToken, fn)
	}

	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.Handle("POST /api/v1/reviews/{id}/reports", requireActor(http.HandlerFunc(h.SubmitReport)))

	mux.Handle("POST /api/v1/admin/reanalysis", admin(h.TriggerReanalysis))
	mux.Handle("GET /api/v1/admin/reports", admin(h.ListReports))
	mux.Handle("GET /api/v1/admin/reports/{id}", admin(h.GetReport))
	mux.Handle("POST /api/v1/admin/reports/{id}/resolve", admin(h.ResolveReport))
	mux.Handle("DELETE /api/v1/admin/reports/{id}/reviews/{reviewID}", admin(h.DeleteReportedReview))
	mux.Handle("GET /api/v1/admin/reviews/flagged", admin(h.ListFlaggedReviews))
	mux.Handle("GET /api/v1/admin/authors/{id}/strikes", admin(h.GetStrikes))
	mux.Handle("GET /api/v1/admin/notifications", admin(h.ListNotifications))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// SubmitReport records a report against a review on behalf of the calling user.
func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "id", "invalid review id")
	if !ok {
		return
	}

	var req SubmitReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.reports.SubmitReport(r.Context(), reviewID, actorFrom(r.Context()).ID, req.Reason)
	if err != nil {
		h.writeServiceError(w, "failed to submit report", err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportResponse(report))
}

// TriggerReanalysis runs one reanalysis pass synchronously and returns its summary.
func (h *Handler) TriggerReanalysis(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reanalysis.TriggerReanalysis(r.Context())
	if err != nil {
		h.writeServiceError(w, "failed to run reanalysis", err)
		return
	}

	writeJSON(w, http.StatusOK, toPassSummaryResponse(summary))
}

// ListReports returns a page of reports, pending only unless status is given.
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}

	var (
		result application.ReportPage
		err    error
	)
	switch raw := r.URL.Query().Get("status"); raw {
	case "", string(model.ReportStatusPending):
		result, err = h.reports.ListPendingReports(r.Context(), page)
	case "all":
		result, err = h.reports.ListReports(r.Context(), "", page)
	default:
		status, parseErr := model.ParseReportStatus(raw)
		if parseErr != nil {
			writeError(w, http.StatusBadRequest, "invalid status: expected pending, accepted, rejected or all")
			return
		}
		result, err = h.reports.ListReports(r.Context(), status, page)
	}
	if err != nil {
		h.writeServiceError(w, "failed to list reports", err)
		return
	}

	resp := ReportPageResponse{
		Reports:  make([]ReportResponse, 0, len(result.Reports)),
		Total:    result.Total,
		Page:     result.Page.Number,
		PageSize: result.Page.Size,
	}
	for _, report := range result.Reports {
		resp.Reports = append(resp.Reports, toReportResponse(report))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetReport returns a single report.
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid report id")
	if !ok {
		return
	}

	report, err := h.reports.GetReport(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, "failed to get report", err)
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// ResolveReport applies the admin's decision to a pending report.
func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "invalid report id")
	if !ok {
		return
	}

	var req ResolveReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	verdict, err := model.ParseVerdict(req.Decision, req.StrikeAction)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := h.moderator.ResolveReport(r.Context(), application.ResolveRequest{
		ReportID:   id,
		Verdict:    verdict,
		AdminNotes: req.AdminNotes,
		AdminID:    actorFrom(r.Context()).ID,
	})
	if err != nil {
		h.writeServiceError(w, "failed to resolve report", err)
		return
	}

	writeJSON(w, http.StatusOK, toReportResponse(report))
}

// DeleteReportedReview deletes the review referenced by a report.
func (h *Handler) DeleteReportedReview(w http.ResponseWriter, r *http.Request) {
	reportID, ok := pathID(w, r, "id", "invalid report id")
	if !ok {
		return
	}
	reviewID, ok := pathID(w, r, "reviewID", "invalid review id")
	if !ok {
		return
	}

	deleted, err := h.moderator.DeleteReportedReview(r.Context(), reportID, reviewID)
	if err != nil {
		h.writeServiceError(w, "failed to delete reported review", err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteReviewResponse{Deleted: deleted})
}

// ListFlaggedReviews returns reviews currently flagged as incoherent.
func (h *Handler) ListFlaggedReviews(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFrom(w, r)
	if !ok {
		return
	}

	result, err := h.reports.ListFlaggedReviews(r.Context(), page)
	if err != nil {
		h.writeServiceError(w, "failed to list flagged reviews", err)
		return
	}

	resp := ReviewPageResponse{
		Reviews:  make([]ReviewResponse, 0, len(result.Reviews)),
		Total:    result.Total,
		Page:     result.Page.Number,
		PageSize: result.Page.Size,
	}
	for _, review := range result.Reviews {
		resp.Reviews = append(resp.Reviews, toReviewResponse(review))
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetStrikes returns an author's strike counter.
func (h *Handler) GetStrikes(w http.ResponseWriter, r *http.Request) {
	authorID, ok := pathID(w, r, "id", "invalid author id")
	if !ok {
		return
	}

	counter, err := h.reports.GetStrikes(r.Context(), authorID)
	if err != nil {
		h.writeServiceError(w, "failed to get strikes", err)
		return
	}

	writeJSON(w, http.StatusOK, toStrikeResponse(counter))
}

// ListNotifications returns the most recent inbox entries.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPageSize {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	entries, err := h.inbox.ListRecent(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, "failed to list notifications", err)
		return
	}

	resp := make([]NotificationResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toNotificationResponse(e))
	}

	writeJSON(w, http.StatusOK, resp)
}

// Health reports liveness and, when a pinger is configured, store reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	}

	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			h.logger.Error("health check ping failed", "error", err)
			resp.Status = "unavailable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeServiceError maps the moderation error taxonomy onto HTTP statuses.
// Unexpected errors are logged and hidden behind a generic 500.
func (h *Handler) writeServiceError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrAlreadyResolved),
		errors.Is(err, model.ErrMismatch),
		errors.Is(err, application.ErrReanalysisInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrTransientStore):
		h.logger.Error(msg, "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "temporarily unavailable, retry")
	case errors.Is(err, application.ErrSchedulerStopped):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID parses a positive int64 path parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request, name, msg string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, msg)
		return 0, false
	}
	return id, true
}

// pageFrom reads page and page_size query parameters.
func pageFrom(w http.ResponseWriter, r *http.Request) (model.Page, bool) {
	var page model.Page
	q := r.URL.Query()

	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPageNumber {
			writeError(w, http.StatusBadRequest, "invalid page")
			return model.Page{}, false
		}
		page.Number = n
	}
	if raw := q.Get("page_size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > model.MaxPageSize {
			writeError(w, http.StatusBadRequest, "invalid page_size")
			return model.Page{}, false
		}
		page.Size = n
	}

	return page.Normalize(), true
}
