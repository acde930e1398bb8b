package clock

import "time"

// Clock supplies the current instant and calendar day to business logic.
// Scheduling rules compare calendar dates, never wall-clock instants, so every
// consumer that needs "today" must go through this interface.
type Clock interface {
	// Now returns the current instant in UTC.
	Now() time.Time
	// Today returns the current calendar day truncated to midnight UTC.
	Today() time.Time
}

// System is the production clock backed by time.Now.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

func (System) Today() time.Time { return DateOf(time.Now()) }

// Fixed always reports the same instant; intended for tests.
type Fixed struct {
	Instant time.Time
}

func (f Fixed) Now() time.Time { return f.Instant.UTC() }

func (f Fixed) Today() time.Time { return DateOf(f.Instant) }

// DateOf truncates an instant to its calendar day at midnight UTC.
func DateOf(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two instants fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return DateOf(a).Equal(DateOf(b))
}
