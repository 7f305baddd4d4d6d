package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ReportStore = (*ReportRepo)(nil)

const reportColumns = `id, review_id, reporter_id, reason, status, admin_notes,
	created_at, resolved_at, resolved_by`

// ReportRepo is the SQLite implementation of the ReportStore port interface.
type ReportRepo struct {
	read  querier
	write querier
}

// NewReportRepo creates a new ReportRepo backed by the given DB.
func NewReportRepo(db *DB) *ReportRepo {
	return &ReportRepo{read: db.Reader, write: db.Writer}
}

// Create inserts a pending report and returns it with its assigned ID.
func (r *ReportRepo) Create(ctx context.Context, report model.ReviewReport) (model.ReviewReport, error) {
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now().UTC()
	}
	report.Status = model.ReportStatusPending

	const query = `
		INSERT INTO review_reports (review_id, reporter_id, reason, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	res, err := r.write.ExecContext(ctx, query,
		report.ReviewID, report.ReporterID, report.Reason, string(report.Status), formatTime(report.CreatedAt),
	)
	if err != nil {
		return model.ReviewReport{}, storeError("insert report", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.ReviewReport{}, storeError("insert report id", err)
	}
	report.ID = id

	return report, nil
}

// Get returns the report with the given ID, or nil, nil if it does not exist.
func (r *ReportRepo) Get(ctx context.Context, id int64) (*model.ReviewReport, error) {
	query := `SELECT ` + reportColumns + ` FROM review_reports WHERE id = ?`

	report, err := scanReport(r.read.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("get report %d", id), err)
	}

	return report, nil
}

// List returns one page of reports in the given status, oldest first.
// An empty status lists every report.
func (r *ReportRepo) List(ctx context.Context, status model.ReportStatus, page model.Page) ([]model.ReviewReport, int, error) {
	page = page.Normalize()

	where := ``
	args := []any{}
	if status != "" {
		where = ` WHERE status = ?`
		args = append(args, string(status))
	}

	var total int
	if err := r.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM review_reports`+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, storeError("count reports", err)
	}

	query := `SELECT ` + reportColumns + ` FROM review_reports` + where +
		` ORDER BY created_at, id LIMIT ? OFFSET ?`

	rows, err := r.read.QueryContext(ctx, query, append(args, page.Size, page.Offset())...)
	if err != nil {
		return nil, 0, storeError("list reports", err)
	}
	defer rows.Close()

	var reports []model.ReviewReport
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, 0, storeError("scan report", err)
		}
		reports = append(reports, *report)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError("iterate reports", err)
	}

	return reports, total, nil
}

// MarkResolved applies res only while the report is still pending. It
// reports false when no pending report with that ID exists.
func (r *ReportRepo) MarkResolved(ctx context.Context, id int64, res model.ReportResolution) (bool, error) {
	const query = `
		UPDATE review_reports
		SET status = ?, admin_notes = ?, resolved_at = ?, resolved_by = ?
		WHERE id = ? AND status = 'pending'
	`

	result, err := r.write.ExecContext(ctx, query,
		string(res.Status), res.AdminNotes, formatTime(res.ResolvedAt), res.ResolvedBy, id,
	)
	if err != nil {
		return false, storeError(fmt.Sprintf("resolve report %d", id), err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, storeError(fmt.Sprintf("resolve report %d", id), err)
	}

	return n == 1, nil
}

func scanReport(s scanner) (*model.ReviewReport, error) {
	var report model.ReviewReport
	var status, createdAt string
	var resolvedAt sql.NullString
	var resolvedBy sql.NullInt64

	err := s.Scan(
		&report.ID, &report.ReviewID, &report.ReporterID, &report.Reason, &status, &report.AdminNotes,
		&createdAt, &resolvedAt, &resolvedBy,
	)
	if err != nil {
		return nil, err
	}

	report.Status = model.ReportStatus(status)

	report.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	report.ResolvedAt, err = parseNullTime(resolvedAt)
	if err != nil {
		return nil, fmt.Errorf("parse resolved_at: %w", err)
	}

	if resolvedBy.Valid {
		by := resolvedBy.Int64
		report.ResolvedBy = &by
	}

	return &report, nil
}
