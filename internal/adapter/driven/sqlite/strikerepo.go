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
var _ driven.StrikeLedger = (*StrikeRepo)(nil)

// StrikeRepo is the SQLite implementation of the StrikeLedger port interface.
type StrikeRepo struct {
	read  querier
	write querier
}

// NewStrikeRepo creates a new StrikeRepo backed by the given DB.
func NewStrikeRepo(db *DB) *StrikeRepo {
	return &StrikeRepo{read: db.Reader, write: db.Writer}
}

// Get returns the author's counter, or a zero counter if the author has no strikes.
func (r *StrikeRepo) Get(ctx context.Context, authorID int64) (model.StrikeCounter, error) {
	const query = `SELECT author_id, count, last_strike_at FROM strike_counters WHERE author_id = ?`

	counter, err := scanStrike(r.read.QueryRowContext(ctx, query, authorID))
	if errors.Is(err, sql.ErrNoRows) {
		return model.StrikeCounter{AuthorID: authorID}, nil
	}
	if err != nil {
		return model.StrikeCounter{}, storeError(fmt.Sprintf("get strikes for author %d", authorID), err)
	}

	return counter, nil
}

// Increment adds one strike in a single upsert and returns the new counter.
func (r *StrikeRepo) Increment(ctx context.Context, authorID int64, at time.Time) (model.StrikeCounter, error) {
	const query = `
		INSERT INTO strike_counters (author_id, count, last_strike_at)
		VALUES (?, 1, ?)
		ON CONFLICT(author_id) DO UPDATE SET
			count = count + 1,
			last_strike_at = excluded.last_strike_at
		RETURNING author_id, count, last_strike_at
	`

	counter, err := scanStrike(r.write.QueryRowContext(ctx, query, authorID, formatTime(at)))
	if err != nil {
		return model.StrikeCounter{}, storeError(fmt.Sprintf("increment strikes for author %d", authorID), err)
	}

	return counter, nil
}

func scanStrike(s scanner) (model.StrikeCounter, error) {
	var counter model.StrikeCounter
	var lastStrikeAt sql.NullString

	if err := s.Scan(&counter.AuthorID, &counter.Count, &lastStrikeAt); err != nil {
		return model.StrikeCounter{}, err
	}

	var err error
	counter.LastStrikeAt, err = parseNullTime(lastStrikeAt)
	if err != nil {
		return model.StrikeCounter{}, fmt.Errorf("parse last_strike_at: %w", err)
	}

	return counter, nil
}
