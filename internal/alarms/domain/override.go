package alarms

import (
	"fmt"
	"time"
)

// OverrideKind tags an OverrideAction.
type OverrideKind string

const (
	OverrideNone           OverrideKind = "none"
	OverrideSuppress       OverrideKind = "suppress"
	OverrideSkipOccurrence OverrideKind = "skip_occurrence"
	OverrideDelay          OverrideKind = "delay"
)

// OverrideAction is the closed set NoOverride | Suppress | SkipOccurrence | Delay.
type OverrideAction interface {
	Kind() OverrideKind
	overrideAction()
}

// NoOverride leaves the schedule untouched.
type NoOverride struct{}

// Suppress prevents the alarm from firing on the date.
type Suppress struct{}

// SkipOccurrence drops the date's occurrence; it behaves like Suppress but is tagged separately.
type SkipOccurrence struct{}

// Delay postpones the occurrence. Only NewDelay produces a valid value.
type Delay struct{ minutes int }

// NewDelay returns a Delay of minutes in [MinDelayMinutes, MaxDelayMinutes].
func NewDelay(minutes int) (Delay, error) {
	if minutes < MinDelayMinutes || minutes > MaxDelayMinutes {
		return Delay{}, fmt.Errorf("%w: %d", ErrInvalidDelay, minutes)
	}
	return Delay{minutes: minutes}, nil
}

func (NoOverride) Kind() OverrideKind     { return OverrideNone }
func (Suppress) Kind() OverrideKind       { return OverrideSuppress }
func (SkipOccurrence) Kind() OverrideKind { return OverrideSkipOccurrence }
func (Delay) Kind() OverrideKind          { return OverrideDelay }

func (NoOverride) overrideAction()     {}
func (Suppress) overrideAction()       {}
func (SkipOccurrence) overrideAction() {}
func (Delay) overrideAction()          {}

// Minutes returns the delay length in minutes.
func (d Delay) Minutes() int { return d.minutes }

// Duration returns the delay length.
func (d Delay) Duration() time.Duration { return time.Duration(d.minutes) * time.Minute }

// OverrideSourceKind names where an override came from.
type OverrideSourceKind string

const (
	SourceExceptionPeriod OverrideSourceKind = "exception_period"
	SourceHoliday         OverrideSourceKind = "holiday"
)

// OverrideSource attributes a resolved override to the record that produced it.
type OverrideSource struct {
	Kind OverrideSourceKind
	ID   string
}

// OverrideResolution is the single override applicable to a user on a date.
type OverrideResolution struct {
	Action OverrideAction
	Source OverrideSource
}

// Kind returns the action kind; a nil action counts as none.
func (r OverrideResolution) Kind() OverrideKind {
	if r.Action == nil {
		return OverrideNone
	}
	return r.Action.Kind()
}

// Suppresses reports whether the resolution prevents firing.
func (r OverrideResolution) Suppresses() bool {
	kind := r.Kind()
	return kind == OverrideSuppress || kind == OverrideSkipOccurrence
}

// delay returns the postponement, zero unless the action is a Delay.
func (r OverrideResolution) delay() time.Duration {
	if d, ok := r.Action.(Delay); ok {
		return d.Duration()
	}
	return 0
}

// Overrides is the per-user snapshot consumed by the engine.
type Overrides struct {
	ExceptionPeriods []ExceptionPeriod
	Holidays         []Holiday
	Preferences      []UserHolidayPreference
}

// ResolveOverride computes the override for userID on date. Precedence, first match wins:
//  1. an active exception period of the user covering date suppresses;
//  2. among holidays matching date that carry an enabled, well-formed preference of the user,
//     the first Disable/Skip in catalog order wins, otherwise the largest Delay wins;
//  3. otherwise no override.
//
// Malformed preferences never fail; they contribute nothing.
func ResolveOverride(userID string, date CalendarDate, overrides Overrides) OverrideResolution {
	for _, period := range overrides.ExceptionPeriods {
		if !period.Active || period.UserID != userID {
			continue
		}
		if period.Covers(date) {
			return OverrideResolution{
				Action: Suppress{},
				Source: OverrideSource{Kind: SourceExceptionPeriod, ID: period.ID},
			}
		}
	}

	var (
		best    Delay
		bestSrc OverrideSource
		found   bool
	)
	for _, holiday := range overrides.Holidays {
		if !holiday.Matches(date) {
			continue
		}
		pref, ok := preferenceFor(userID, holiday.ID, overrides.Preferences)
		if !ok || !pref.Enabled {
			continue
		}
		action, ok := pref.overrideAction()
		if !ok {
			continue
		}
		source := OverrideSource{Kind: SourceHoliday, ID: holiday.ID}
		switch a := action.(type) {
		case Suppress, SkipOccurrence:
			return OverrideResolution{Action: a, Source: source}
		case Delay:
			if !found || a.minutes > best.minutes {
				best, bestSrc, found = a, source, true
			}
		}
	}
	if found {
		return OverrideResolution{Action: best, Source: bestSrc}
	}
	return OverrideResolution{Action: NoOverride{}}
}

func preferenceFor(userID, holidayID string, prefs []UserHolidayPreference) (UserHolidayPreference, bool) {
	for _, pref := range prefs {
		if pref.UserID == userID && pref.HolidayID == holidayID {
			return pref, true
		}
	}
	return UserHolidayPreference{}, false
}
