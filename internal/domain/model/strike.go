package model

import "time"

// StrikeCounter is the per-author tally of accepted reports that carried a strike.
// Count never decreases through moderation; resets are a separate admin action.
type StrikeCounter struct {
	AuthorID     int64
	Count        int
	LastStrikeAt *time.Time
}

// Crossed reports whether the most recent strike moved the counter from below
// threshold to at-or-above it. A non-positive threshold disables escalation.
func (c StrikeCounter) Crossed(threshold int) bool {
	if threshold <= 0 {
		return false
	}
	return c.Count >= threshold && c.Count-1 < threshold
}
