package model_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/reviewmod/internal/domain/model"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		decision     string
		strikeAction string
		want         model.Verdict
		wantErr      bool
	}{
		{"accepted", "with_strike", model.VerdictAcceptWithStrike, false},
		{"accepted", "without_strike", model.VerdictAcceptWithoutStrike, false},
		{"accepted", "", model.VerdictAcceptWithoutStrike, false},
		{"rejected", "", model.VerdictReject, false},
		{"rejected", "without_strike", model.VerdictReject, false},
		{"rejected", "with_strike", 0, true},
		{"accepted", "double_strike", 0, true},
		{"pending", "", 0, true},
		{"", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.decision+"/"+tt.strikeAction, func(t *testing.T) {
			got, err := model.ParseVerdict(tt.decision, tt.strikeAction)
			if tt.wantErr {
				require.ErrorIs(t, err, model.ErrInvalidInput)
				assert.False(t, got.Valid())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestVerdict_StatusAndStrike(t *testing.T) {
	assert.Equal(t, model.ReportStatusAccepted, model.VerdictAcceptWithStrike.Status())
	assert.Equal(t, model.ReportStatusAccepted, model.VerdictAcceptWithoutStrike.Status())
	assert.Equal(t, model.ReportStatusRejected, model.VerdictReject.Status())

	assert.True(t, model.VerdictAcceptWithStrike.AppliesStrike())
	assert.False(t, model.VerdictAcceptWithoutStrike.AppliesStrike())
	assert.False(t, model.VerdictReject.AppliesStrike())

	assert.Equal(t, "accepted/with_strike", model.VerdictAcceptWithStrike.String())
	assert.Equal(t, "unknown", model.Verdict(0).String())
}

func TestParseReportStatus(t *testing.T) {
	for _, s := range []string{"pending", "accepted", "rejected"} {
		got, err := model.ParseReportStatus(s)
		require.NoError(t, err)
		assert.Equal(t, model.ReportStatus(s), got)
	}

	_, err := model.ParseReportStatus("")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
	_, err = model.ParseReportStatus("open")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestParseOutcomeRecipient(t *testing.T) {
	got, err := model.ParseOutcomeRecipient("business_owner")
	require.NoError(t, err)
	assert.Equal(t, model.RecipientBusinessOwner, got)

	_, err = model.ParseOutcomeRecipient("reporter")
	assert.ErrorIs(t, err, model.ErrInvalidInput)
}

func TestPage_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         model.Page
		want       model.Page
		wantOffset int
	}{
		{"zero value", model.Page{}, model.Page{Number: 1, Size: model.DefaultPageSize}, 0},
		{"third page", model.Page{Number: 3, Size: 10}, model.Page{Number: 3, Size: 10}, 20},
		{"negative", model.Page{Number: -2, Size: -5}, model.Page{Number: 1, Size: 1}, 0},
		{"oversized", model.Page{Number: 2, Size: 500}, model.Page{Number: 2, Size: model.MaxPageSize}, model.MaxPageSize},
		{
			"huge page number",
			model.Page{Number: math.MaxInt, Size: model.MaxPageSize},
			model.Page{Number: model.MaxPageNumber, Size: model.MaxPageSize},
			(model.MaxPageNumber - 1) * model.MaxPageSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
			assert.Equal(t, tt.wantOffset, tt.in.Offset())
		})
	}
}

func TestStrikeCounter_Crossed(t *testing.T) {
	tests := []struct {
		count     int
		threshold int
		want      bool
	}{
		{2, 3, false},
		{3, 3, true},
		{4, 3, false},
		{1, 1, true},
		{5, 0, false},
		{5, -1, false},
	}

	for _, tt := range tests {
		c := model.StrikeCounter{AuthorID: 1, Count: tt.count}
		assert.Equal(t, tt.want, c.Crossed(tt.threshold), "count=%d threshold=%d", tt.count, tt.threshold)
	}
}

func TestScore_DiffersFrom(t *testing.T) {
	r := model.Review{IncoherentFlag: true, IncoherentConfidence: 0.8}

	assert.False(t, model.Score{IsIncoherent: true, Confidence: 0.8}.DiffersFrom(r))
	assert.True(t, model.Score{IsIncoherent: true, Confidence: 0.81}.DiffersFrom(r))
	assert.True(t, model.Score{IsIncoherent: false, Confidence: 0.8}.DiffersFrom(r))
}

func TestReviewReport_Apply(t *testing.T) {
	report := model.ReviewReport{ID: 1, Status: model.ReportStatusPending}
	require.True(t, report.IsPending())

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	report.Apply(model.ReportResolution{
		Status:     model.ReportStatusRejected,
		AdminNotes: "not abusive",
		ResolvedAt: at,
		ResolvedBy: 7,
	})

	assert.False(t, report.IsPending())
	assert.Equal(t, model.ReportStatusRejected, report.Status)
	assert.Equal(t, "not abusive", report.AdminNotes)
	require.NotNil(t, report.ResolvedAt)
	assert.Equal(t, at, *report.ResolvedAt)
	require.NotNil(t, report.ResolvedBy)
	assert.Equal(t, int64(7), *report.ResolvedBy)
}

func TestValidRating(t *testing.T) {
	assert.False(t, model.ValidRating(0))
	assert.True(t, model.ValidRating(1))
	assert.True(t, model.ValidRating(5))
	assert.False(t, model.ValidRating(6))
}
