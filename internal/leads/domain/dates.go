package domain

import "time"

// DateOf truncates t to its calendar date in loc, returned as UTC midnight.
func DateOf(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Clock yields today's calendar date in the business timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// Today returns the current calendar date.
func (c Clock) Today() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return DateOf(now(), c.Location)
}

// Instant returns the current wall time.
func (c Clock) Instant() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
