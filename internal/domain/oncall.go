package domain

import "time"

// User is the identity a source resolves for the configured credentials.
type User struct {
	ID   string
	Name string
}

// Window is the time range a sync run covers.
type Window struct {
	Since time.Time
	Until time.Time
}

// OnCallPeriod is an on-call shift reported by the scheduling source.
type OnCallPeriod struct {
	Interval
	ScheduleID string
}

// DeduplicateOnCalls collapses periods sharing the same boundaries, keeping
// the first one seen. Periods are identified by (start, end) only, so two
// schedule layers producing the same shift count once.
func DeduplicateOnCalls(periods []OnCallPeriod) []OnCallPeriod {
	return dedupeByBoundaries(periods, func(p OnCallPeriod) Interval { return p.Interval })
}
