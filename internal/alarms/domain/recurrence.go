package alarms

import (
	"fmt"
	"strings"
	"time"
)

// RecurrenceKind selects the date pattern of a schedule.
type RecurrenceKind string

const (
	RecurrenceOneOff RecurrenceKind = "one_off"
	RecurrenceDaily  RecurrenceKind = "daily"
	RecurrenceWeekly RecurrenceKind = "weekly"
)

// Valid returns true when kind is supported.
func (k RecurrenceKind) Valid() bool {
	switch k {
	case RecurrenceOneOff, RecurrenceDaily, RecurrenceWeekly:
		return true
	default:
		return false
	}
}

// Weekdays is a bitset over Monday..Sunday (bit 0 is Monday).
type Weekdays uint8

const (
	Monday Weekdays = 1 << iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday

	AllWeekdays = Monday | Tuesday | Wednesday | Thursday | Friday | Saturday | Sunday
)

// WeekdaysOf builds a mask from time.Weekday values.
func WeekdaysOf(days ...time.Weekday) Weekdays {
	var mask Weekdays
	for _, day := range days {
		mask |= weekdayBit(day)
	}
	return mask
}

func weekdayBit(day time.Weekday) Weekdays {
	return 1 << ((int(day) + 6) % 7)
}

// Has reports whether day is selected.
func (w Weekdays) Has(day time.Weekday) bool { return w&weekdayBit(day) != 0 }

// String lists selected days, e.g. "Mon,Wed,Fri".
func (w Weekdays) String() string {
	names := []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
	var out []string
	for i, name := range names {
		if w&(1<<i) != 0 {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

// ParseWeekdays reads a comma separated list of day names such as "mon,wed,fri".
// Both three-letter and full English names are accepted, case-insensitively.
func ParseWeekdays(value string) (Weekdays, error) {
	var mask Weekdays
	for _, part := range strings.Split(value, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		found := false
		for day := time.Sunday; day <= time.Saturday; day++ {
			full := strings.ToLower(day.String())
			if name == full || name == full[:3] {
				mask |= weekdayBit(day)
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidRecurrenceRule, part)
		}
	}
	return mask, nil
}

// RecurrenceRule describes on which dates a schedule is active.
type RecurrenceRule struct {
	Kind RecurrenceKind
	Days Weekdays
}

// NewRecurrenceRule validates and returns a rule.
func NewRecurrenceRule(kind RecurrenceKind, days Weekdays) (RecurrenceRule, error) {
	rule := RecurrenceRule{Kind: kind, Days: days}
	if err := rule.Validate(); err != nil {
		return RecurrenceRule{}, err
	}
	return rule, nil
}

// Validate checks rule invariants.
func (r RecurrenceRule) Validate() error {
	if !r.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRecurrenceRule, r.Kind)
	}
	if r.Kind != RecurrenceWeekly {
		return nil
	}
	if r.Days&AllWeekdays == 0 {
		return fmt.Errorf("%w: weekly rule without days", ErrInvalidRecurrenceRule)
	}
	if r.Days&^AllWeekdays != 0 {
		return fmt.Errorf("%w: day mask %#x out of range", ErrInvalidRecurrenceRule, uint8(r.Days))
	}
	return nil
}

// IsDue reports whether the rule selects date. anchor is only consulted for one-off rules;
// a one-off rule without anchor is never due.
func (r RecurrenceRule) IsDue(date CalendarDate, anchor *CalendarDate) bool {
	switch r.Kind {
	case RecurrenceOneOff:
		return anchor != nil && *anchor == date
	case RecurrenceDaily:
		return true
	case RecurrenceWeekly:
		return r.Days.Has(date.Weekday())
	default:
		return false
	}
}
