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
var _ driven.ReviewStore = (*ReviewRepo)(nil)

const reviewColumns = `id, business_id, author_id, rating, text, created_at,
	incoherent_flag, incoherent_confidence, last_scored_at`

// ReviewRepo is the SQLite implementation of the ReviewStore port interface.
type ReviewRepo struct {
	read  querier
	write querier
}

// NewReviewRepo creates a new ReviewRepo backed by the given DB.
func NewReviewRepo(db *DB) *ReviewRepo {
	return &ReviewRepo{read: db.Reader, write: db.Writer}
}

// Create inserts a review and returns it with its assigned ID.
func (r *ReviewRepo) Create(ctx context.Context, review model.Review) (model.Review, error) {
	if !model.ValidRating(review.Rating) {
		return model.Review{}, fmt.Errorf("rating %d: %w", review.Rating, model.ErrInvalidInput)
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO reviews (business_id, author_id, rating, text, created_at,
			incoherent_flag, incoherent_confidence, last_scored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.write.ExecContext(ctx, query,
		review.BusinessID, review.AuthorID, review.Rating, review.Text, formatTime(review.CreatedAt),
		boolToInt(review.IncoherentFlag), review.IncoherentConfidence, nullTime(review.LastScoredAt),
	)
	if err != nil {
		return model.Review{}, storeError("insert review", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Review{}, storeError("insert review id", err)
	}
	review.ID = id

	return review, nil
}

// Get returns the review with the given ID, or nil, nil if it does not exist.
func (r *ReviewRepo) Get(ctx context.Context, id int64) (*model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = ?`

	review, err := scanReview(r.read.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(fmt.Sprintf("get review %d", id), err)
	}

	return review, nil
}

// ListAll returns every review ordered by ID.
func (r *ReviewRepo) ListAll(ctx context.Context) ([]model.Review, error) {
	query := `SELECT ` + reviewColumns + ` FROM reviews ORDER BY id`

	rows, err := r.read.QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("list reviews", err)
	}
	defer rows.Close()

	return collectReviews(rows, "list reviews")
}

// ListFlagged returns one page of flagged reviews, highest confidence first.
func (r *ReviewRepo) ListFlagged(ctx context.Context, page model.Page) ([]model.Review, int, error) {
	page = page.Normalize()

	var total int
	if err := r.read.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reviews WHERE incoherent_flag = 1`,
	).Scan(&total); err != nil {
		return nil, 0, storeError("count flagged reviews", err)
	}

	query := `SELECT ` + reviewColumns + ` FROM reviews
		WHERE incoherent_flag = 1
		ORDER BY incoherent_confidence DESC, id
		LIMIT ? OFFSET ?`

	rows, err := r.read.QueryContext(ctx, query, page.Size, page.Offset())
	if err != nil {
		return nil, 0, storeError("list flagged reviews", err)
	}
	defer rows.Close()

	reviews, err := collectReviews(rows, "list flagged reviews")
	if err != nil {
		return nil, 0, err
	}

	return reviews, total, nil
}

// UpdateScore persists a scoring result for an existing review. It returns
// model.ErrNotFound when the review has been deleted and never recreates it.
func (r *ReviewRepo) UpdateScore(ctx context.Context, id int64, score model.Score, scoredAt time.Time) error {
	const query = `
		UPDATE reviews
		SET incoherent_flag = ?, incoherent_confidence = ?, last_scored_at = ?
		WHERE id = ?
	`

	res, err := r.write.ExecContext(ctx, query,
		boolToInt(score.IsIncoherent), score.Confidence, formatTime(scoredAt), id,
	)
	if err != nil {
		return storeError(fmt.Sprintf("update score for review %d", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return storeError(fmt.Sprintf("update score for review %d", id), err)
	}
	if n == 0 {
		return fmt.Errorf("review %d: %w", id, model.ErrNotFound)
	}

	return nil
}

// Delete removes the review permanently. It reports false when the review was already gone.
func (r *ReviewRepo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.write.ExecContext(ctx, `DELETE FROM reviews WHERE id = ?`, id)
	if err != nil {
		return false, storeError(fmt.Sprintf("delete review %d", id), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError(fmt.Sprintf("delete review %d", id), err)
	}

	return n > 0, nil
}

func collectReviews(rows *sql.Rows, op string) ([]model.Review, error) {
	var reviews []model.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, storeError(op, err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(op, err)
	}

	return reviews, nil
}

func scanReview(s scanner) (*model.Review, error) {
	var review model.Review
	var createdAt string
	var flag int
	var lastScoredAt sql.NullString

	err := s.Scan(
		&review.ID, &review.BusinessID, &review.AuthorID, &review.Rating, &review.Text, &createdAt,
		&flag, &review.IncoherentConfidence, &lastScoredAt,
	)
	if err != nil {
		return nil, err
	}

	review.IncoherentFlag = flag != 0

	review.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	review.LastScoredAt, err = parseNullTime(lastScoredAt)
	if err != nil {
		return nil, fmt.Errorf("parse last_scored_at: %w", err)
	}

	return &review, nil
}
