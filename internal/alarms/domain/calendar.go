package alarms

import (
	"fmt"
	"strings"
)

// ExceptionType classifies an exception period.
type ExceptionType string

const (
	ExceptionVacation ExceptionType = "vacation"
	ExceptionTravel   ExceptionType = "travel"
	ExceptionCustom   ExceptionType = "custom"
)

// Valid returns true when type is supported.
func (t ExceptionType) Valid() bool {
	switch t {
	case ExceptionVacation, ExceptionTravel, ExceptionCustom:
		return true
	default:
		return false
	}
}

// ExceptionPeriod is an inclusive date range during which none of a user's alarms fire.
type ExceptionPeriod struct {
	ID        string
	UserID    string
	StartDate CalendarDate
	EndDate   CalendarDate
	Type      ExceptionType
	Active    bool
}

// Validate checks period invariants.
func (p ExceptionPeriod) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: empty user id", ErrInvalidExceptionPeriod)
	}
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return fmt.Errorf("%w: missing dates", ErrInvalidExceptionPeriod)
	}
	if p.StartDate.After(p.EndDate) {
		return fmt.Errorf("%w: start %s after end %s", ErrInvalidExceptionPeriod, p.StartDate, p.EndDate)
	}
	if !p.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidExceptionPeriod, p.Type)
	}
	return nil
}

// Covers reports whether date lies in [StartDate, EndDate]. An inverted range covers nothing.
func (p ExceptionPeriod) Covers(date CalendarDate) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

// Holiday is a catalog entry.
type Holiday struct {
	ID                string
	Name              string
	Date              CalendarDate
	RecurringAnnually bool
	Country           string
	State             string
}

// Matches reports whether the holiday falls on date. Recurring holidays match on month/day,
// so a recurring 29 February only matches in leap years.
func (h Holiday) Matches(date CalendarDate) bool {
	if h.RecurringAnnually {
		return h.Date.Month == date.Month && h.Date.Day == date.Day
	}
	return h.Date == date
}

// AppliesTo reports whether the holiday is observed for a user located in country/state.
// Country-wide entries (no state) apply to every state of the country.
func (h Holiday) AppliesTo(country, state string) bool {
	if !strings.EqualFold(h.Country, country) {
		return false
	}
	return h.State == "" || strings.EqualFold(h.State, state)
}

// Locale is the country/state a user observes holidays for.
type Locale struct {
	Country string
	State   string
}

// FilterHolidays keeps the catalog entries observed in country/state, preserving order.
func FilterHolidays(catalog []Holiday, country, state string) []Holiday {
	var out []Holiday
	for _, holiday := range catalog {
		if holiday.AppliesTo(country, state) {
			out = append(out, holiday)
		}
	}
	return out
}
