package driven

import "context"

// Tx exposes the stores bound to a single transaction.
type Tx interface {
	Reviews() ReviewStore
	Reports() ReportStore
	Strikes() StrikeLedger
}

// UnitOfWork runs multi-store operations atomically. If fn returns an error
// the transaction is rolled back and no effect survives; otherwise it commits.
// Implementations serialize writers so that concurrent units of work on the
// same report never observe each other's partial state.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
