package driven

import "time"

// Clock is the source of time and periodic ticks. Tests inject a fake to
// simulate ticks without waiting.
type Clock interface {
	Now() time.Time
	NewTicker(d time.Duration) Ticker
}

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}
