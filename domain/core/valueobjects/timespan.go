package valueobjects

import (
	"errors"
	"time"
)

// TimeSpan is an immutable value object covering a closed time interval
type TimeSpan struct {
	start time.Time
	end   time.Time
}

// NewTimeSpan creates a TimeSpan, rejecting inverted intervals
func NewTimeSpan(start, end time.Time) (TimeSpan, error) {
	if end.Before(start) {
		return TimeSpan{}, errors.New("time span end cannot precede start")
	}
	return TimeSpan{start: start, end: end}, nil
}

// MustTimeSpan creates a TimeSpan and panics on an inverted interval.
// Intended for literals in tests and fixtures.
func MustTimeSpan(start, end time.Time) TimeSpan {
	span, err := NewTimeSpan(start, end)
	if err != nil {
		panic(err)
	}
	return span
}

// Start returns the span's start instant
func (s TimeSpan) Start() time.Time {
	return s.start
}

// End returns the span's end instant
func (s TimeSpan) End() time.Time {
	return s.end
}

// Duration returns the span's length
func (s TimeSpan) Duration() time.Duration {
	return s.end.Sub(s.start)
}

// DurationDays returns the span's length in fractional days
func (s TimeSpan) DurationDays() float64 {
	return s.Duration().Hours() / 24
}

// Contains reports whether t falls inside the span (inclusive)
func (s TimeSpan) Contains(t time.Time) bool {
	return !t.Before(s.start) && !t.After(s.end)
}

// Overlaps reports whether two spans share any instant
func (s TimeSpan) Overlaps(other TimeSpan) bool {
	return !s.end.Before(other.start) && !other.end.Before(s.start)
}

// IsZero reports whether the span is uninitialized
func (s TimeSpan) IsZero() bool {
	return s.start.IsZero() && s.end.IsZero()
}

// Equals checks if two spans cover the same interval
func (s TimeSpan) Equals(other TimeSpan) bool {
	return s.start.Equal(other.start) && s.end.Equal(other.end)
}
