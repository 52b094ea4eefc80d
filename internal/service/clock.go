package service

import "time"

// Clock returns the current instant.  Services take one so deadline and
// availability logic can be tested at exact instants.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }

// FixedClock returns a Clock stuck at t.
func FixedClock(t time.Time) Clock { return func() time.Time { return t } }
