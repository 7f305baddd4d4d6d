package sqlite

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via cache=shared.
// A unique name derived from t.Name() ensures isolation between parallel tests.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	// Percent-encode the test name so it's a safe SQLite URI filename component
	// and cannot be misinterpreted as query parameters in the "file:%s?..." DSN.
	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=cache_size(-64000)",
		safeName,
	)

	db, err := open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// addTestReview inserts a review and returns it with its assigned ID.
func addTestReview(t *testing.T, db *DB, authorID int64, rating int, text string) model.Review {
	t.Helper()
	review, err := NewReviewRepo(db).Create(context.Background(), model.Review{
		BusinessID: 10,
		AuthorID:   authorID,
		Rating:     rating,
		Text:       text,
		CreatedAt:  testTime,
	})
	require.NoError(t, err)
	return review
}

// addTestReport inserts a pending report against reviewID.
func addTestReport(t *testing.T, db *DB, reviewID int64, reason string) model.ReviewReport {
	t.Helper()
	report, err := NewReportRepo(db).Create(context.Background(), model.ReviewReport{
		ReviewID:   reviewID,
		ReporterID: 99,
		Reason:     reason,
		CreatedAt:  testTime,
	})
	require.NoError(t, err)
	return report
}
