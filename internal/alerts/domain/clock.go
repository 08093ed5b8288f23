package alerts

import (
	"errors"
	"fmt"
	"time"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

// Now returns the wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

// FixedClock always returns the same instant.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time { return c.At }

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// OverrideClock shifts the perceived date and/or time of day of a base clock
// for demos.
type OverrideClock struct {
	base     Clock
	location *time.Location
	date     time.Time
	hour     int
	minute   int
	hasTime  bool
}

// NewOverrideClock builds an OverrideClock. date is "2006-01-02" and timeOfDay
// is "15:04"; either may be empty.
func NewOverrideClock(base Clock, location *time.Location, date, timeOfDay string) (*OverrideClock, error) {
	if base == nil {
		base = SystemClock{}
	}
	if location == nil {
		location = time.UTC
	}
	c := &OverrideClock{base: base, location: location}
	if date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", date, location)
		if err != nil {
			return nil, fmt.Errorf("override clock: date must be YYYY-MM-DD: %w", err)
		}
		c.date = parsed
	}
	if timeOfDay != "" {
		parsed, err := time.Parse("15:04", timeOfDay)
		if err != nil {
			return nil, errors.New("override clock: time must be HH:MM")
		}
		c.hour, c.minute, c.hasTime = parsed.Hour(), parsed.Minute(), true
	}
	return c, nil
}

// Active reports whether any override is set.
func (c *OverrideClock) Active() bool {
	return c != nil && (!c.date.IsZero() || c.hasTime)
}

// Now returns the base time with the overrides applied.
func (c *OverrideClock) Now() time.Time {
	now := c.base.Now().In(c.location)
	if !c.date.IsZero() {
		now = time.Date(c.date.Year(), c.date.Month(), c.date.Day(),
			now.Hour(), now.Minute(), now.Second(), now.Nanosecond(), c.location)
	}
	if c.hasTime {
		now = time.Date(now.Year(), now.Month(), now.Day(), c.hour, c.minute, 0, 0, c.location)
	}
	return now
}
