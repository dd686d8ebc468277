package alarms

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time without date or zone.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// Valid returns true when all fields are in range.
func (t TimeOfDay) Valid() bool {
	return t.Hour >= 0 && t.Hour <= 23 &&
		t.Minute >= 0 && t.Minute <= 59 &&
		t.Second >= 0 && t.Second <= 59
}

// String formats as HH:MM:SS.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// TimeConfiguration pairs a wall-clock time with a resolved zone.
// The zero value is invalid; build it with NewTimeConfiguration.
type TimeConfiguration struct {
	clock TimeOfDay
	zone  string
	loc   *time.Location
}

// NewTimeConfiguration validates the time of day and resolves the zone eagerly.
func NewTimeConfiguration(hour, minute, second int, zone string) (TimeConfiguration, error) {
	clock := TimeOfDay{Hour: hour, Minute: minute, Second: second}
	if !clock.Valid() {
		return TimeConfiguration{}, fmt.Errorf("%w: %s", ErrInvalidTimeOfDay, clock)
	}
	loc, err := LoadZone(zone)
	if err != nil {
		return TimeConfiguration{}, err
	}
	return TimeConfiguration{clock: clock, zone: strings.TrimSpace(zone), loc: loc}, nil
}

// ParseTimeConfiguration accepts "HH:MM" or "HH:MM:SS".
func ParseTimeConfiguration(clock, zone string) (TimeConfiguration, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return TimeConfiguration{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, clock)
	}
	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(part)
		if err != nil || len(part) > 2 {
			return TimeConfiguration{}, fmt.Errorf("%w: %q", ErrInvalidTimeOfDay, clock)
		}
		values[i] = v
	}
	return NewTimeConfiguration(values[0], values[1], values[2], zone)
}

// RestoreTimeConfiguration rebuilds a stored configuration without failing. An unknown zone
// leaves the configuration invalid, so evaluation reports ErrInvalidTimeZone for that schedule.
func RestoreTimeConfiguration(hour, minute, second int, zone string) TimeConfiguration {
	cfg := TimeConfiguration{clock: TimeOfDay{Hour: hour, Minute: minute, Second: second}, zone: strings.TrimSpace(zone)}
	if loc, err := LoadZone(zone); err == nil {
		cfg.loc = loc
	}
	return cfg
}

// MustTimeConfiguration panics on invalid input. Intended for tests and fixtures.
func MustTimeConfiguration(clock, zone string) TimeConfiguration {
	cfg, err := ParseTimeConfiguration(clock, zone)
	if err != nil {
		panic(err)
	}
	return cfg
}

// Valid reports whether the configuration was built through a constructor.
func (c TimeConfiguration) Valid() bool { return c.loc != nil && c.clock.Valid() }

// TimeOfDay returns the wall-clock part.
func (c TimeConfiguration) TimeOfDay() TimeOfDay { return c.clock }

// Zone returns the identifier as supplied.
func (c TimeConfiguration) Zone() string { return c.zone }

// Location returns the resolved zone.
func (c TimeConfiguration) Location() *time.Location { return c.loc }

// Resolve returns the absolute instant (UTC) of the wall-clock time on date in the configured zone.
// Wall times inside a DST gap are normalized forward by time.Date.
func (c TimeConfiguration) Resolve(date CalendarDate) time.Time {
	return time.Date(date.Year, date.Month, date.Day, c.clock.Hour, c.clock.Minute, c.clock.Second, 0, c.location()).UTC()
}

// DateOf returns the calendar date of t in the configured zone.
func (c TimeConfiguration) DateOf(t time.Time) CalendarDate { return DateOf(t, c.location()) }

// StartOf returns local midnight of date as an absolute instant.
func (c TimeConfiguration) StartOf(date CalendarDate) time.Time { return date.In(c.location()).UTC() }

// String formats as "HH:MM:SS Zone".
func (c TimeConfiguration) String() string { return c.clock.String() + " " + c.zone }

func (c TimeConfiguration) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}
