package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/ericfisherdev/reviewmod/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs multi-store operations in one transaction on the single
// writer connection.
type UnitOfWork struct {
	db *DB
}

// NewUnitOfWork creates a UnitOfWork backed by the given DB.
func NewUnitOfWork(db *DB) *UnitOfWork {
	return &UnitOfWork{db: db}
}

// WithinTx begins a transaction, runs fn with transaction-bound stores, and
// commits if fn succeeds. Any error from fn rolls everything back.
func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(ctx context.Context, tx driven.Tx) error) error {
	sqlTx, err := u.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return storeError("begin transaction", err)
	}

	if err := fn(ctx, txStores{tx: sqlTx}); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "error", rbErr)
		}
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storeError("commit transaction", err)
	}

	return nil
}

// txStores binds every repository to the same *sql.Tx.
type txStores struct {
	tx *sql.Tx
}

func (t txStores) Reviews() driven.ReviewStore  { return &ReviewRepo{read: t.tx, write: t.tx} }
func (t txStores) Reports() driven.ReportStore  { return &ReportRepo{read: t.tx, write: t.tx} }
func (t txStores) Strikes() driven.StrikeLedger { return &StrikeRepo{read: t.tx, write: t.tx} }
