package model

import "time"

// ReviewReport is a user-submitted flag against a review, adjudicated once by
// an admin. Reports are kept as an audit trail even after the review they
// reference has been deleted.
type ReviewReport struct {
	ID         int64
	ReviewID   int64
	ReporterID int64
	Reason     string
	Status     ReportStatus
	AdminNotes string
	CreatedAt  time.Time
	ResolvedAt *time.Time
	ResolvedBy *int64
}

// IsPending reports whether the report still awaits an admin decision.
func (r ReviewReport) IsPending() bool {
	return r.Status == ReportStatusPending
}

// ReportResolution carries the fields written when a pending report is resolved.
type ReportResolution struct {
	Status     ReportStatus
	AdminNotes string
	ResolvedAt time.Time
	ResolvedBy int64
}

// Apply copies the resolution onto the report.
func (r *ReviewReport) Apply(res ReportResolution) {
	resolvedAt := res.ResolvedAt
	resolvedBy := res.ResolvedBy
	r.Status = res.Status
	r.AdminNotes = res.AdminNotes
	r.ResolvedAt = &resolvedAt
	r.ResolvedBy = &resolvedBy
}

// MaxReportReasonLength bounds the free-text reason a reporter may submit.
const MaxReportReasonLength = 500

// MaxAdminNotesLength bounds the notes an admin may attach to a resolution.
const MaxAdminNotesLength = 2000
