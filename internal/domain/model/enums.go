package model

import "fmt"

// ReportStatus represents the lifecycle state of a review report.
type ReportStatus string

const (
	ReportStatusPending  ReportStatus = "pending"
	ReportStatusAccepted ReportStatus = "accepted"
	ReportStatusRejected ReportStatus = "rejected"
)

// ParseReportStatus validates a status string. The empty string is rejected.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch ReportStatus(s) {
	case ReportStatusPending, ReportStatusAccepted, ReportStatusRejected:
		return ReportStatus(s), nil
	default:
		return "", fmt.Errorf("report status %q: %w", s, ErrInvalidInput)
	}
}

// Decision is the admin's ruling on a report.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)

// StrikeAction states whether an accepted report escalates a strike against the author.
type StrikeAction string

const (
	StrikeActionWithStrike    StrikeAction = "with_strike"
	StrikeActionWithoutStrike StrikeAction = "without_strike"
)

// Verdict is the closed set of valid (decision, strike action) combinations.
// Rejecting a report never carries a strike, so that pairing has no value.
type Verdict int

const (
	VerdictAcceptWithStrike Verdict = iota + 1
	VerdictAcceptWithoutStrike
	VerdictReject
)

// ParseVerdict maps loosely-typed decision and strike action strings onto a Verdict.
// An empty strike action means without_strike.
func ParseVerdict(decision, strikeAction string) (Verdict, error) {
	if strikeAction == "" {
		strikeAction = string(StrikeActionWithoutStrike)
	}

	switch Decision(decision) {
	case DecisionAccepted:
		switch StrikeAction(strikeAction) {
		case StrikeActionWithStrike:
			return VerdictAcceptWithStrike, nil
		case StrikeActionWithoutStrike:
			return VerdictAcceptWithoutStrike, nil
		}
	case DecisionRejected:
		if StrikeAction(strikeAction) == StrikeActionWithoutStrike {
			return VerdictReject, nil
		}
		return 0, fmt.Errorf("strike action %q on a rejected report: %w", strikeAction, ErrInvalidInput)
	default:
		return 0, fmt.Errorf("decision %q: %w", decision, ErrInvalidInput)
	}

	return 0, fmt.Errorf("strike action %q: %w", strikeAction, ErrInvalidInput)
}

// Status returns the terminal report status this verdict produces.
func (v Verdict) Status() ReportStatus {
	switch v {
	case VerdictAcceptWithStrike, VerdictAcceptWithoutStrike:
		return ReportStatusAccepted
	case VerdictReject:
		return ReportStatusRejected
	default:
		panic(fmt.Sprintf("unknown verdict %d", int(v)))
	}
}

// AppliesStrike reports whether the verdict increments the author's strike counter.
func (v Verdict) AppliesStrike() bool {
	return v == VerdictAcceptWithStrike
}

// Valid reports whether v is one of the declared verdicts.
func (v Verdict) Valid() bool {
	return v >= VerdictAcceptWithStrike && v <= VerdictReject
}

// String returns the decision/strike pair, e.g. "accepted/with_strike".
func (v Verdict) String() string {
	switch v {
	case VerdictAcceptWithStrike:
		return string(DecisionAccepted) + "/" + string(StrikeActionWithStrike)
	case VerdictAcceptWithoutStrike:
		return string(DecisionAccepted) + "/" + string(StrikeActionWithoutStrike)
	case VerdictReject:
		return string(DecisionRejected)
	default:
		return "unknown"
	}
}

// NotificationType classifies moderation notifications.
type NotificationType string

const (
	NotificationReviewAttention           NotificationType = "REVIEW_ATTENTION"
	NotificationReportSubmitted           NotificationType = "REPORT_SUBMITTED"
	NotificationReportOutcome             NotificationType = "REPORT_OUTCOME"
	NotificationAuthorSuspensionCandidate NotificationType = "AUTHOR_SUSPENSION_CANDIDATE"
)

// RecipientKind selects who a notification is addressed to. The notification
// sink resolves the selector to concrete users.
type RecipientKind string

const (
	RecipientModerationQueue RecipientKind = "moderation_queue"
	RecipientAuthor          RecipientKind = "author"
	RecipientBusinessOwner   RecipientKind = "business_owner"
	RecipientReporter        RecipientKind = "reporter"
)

// ParseOutcomeRecipient validates the configured recipient of resolution outcomes.
func ParseOutcomeRecipient(s string) (RecipientKind, error) {
	switch RecipientKind(s) {
	case RecipientAuthor, RecipientBusinessOwner:
		return RecipientKind(s), nil
	default:
		return "", fmt.Errorf("outcome recipient %q: %w", s, ErrInvalidInput)
	}
}
