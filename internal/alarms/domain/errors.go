package alarms

import "errors"

var (
	// ErrNotFound indicates a missing alarm record.
	ErrNotFound = errors.New("alarm: not found")
	// ErrInvalidTimeZone is returned when a zone identifier cannot be resolved.
	ErrInvalidTimeZone = errors.New("alarm: invalid time zone")
	// ErrInvalidTimeOfDay is returned when hour/minute/second are out of range.
	ErrInvalidTimeOfDay = errors.New("alarm: invalid time of day")
	// ErrInvalidRecurrenceRule is returned for unknown kinds and empty weekly masks.
	ErrInvalidRecurrenceRule = errors.New("alarm: invalid recurrence rule")
	// ErrInvalidDate is returned when a calendar date cannot be parsed.
	ErrInvalidDate = errors.New("alarm: invalid date")
	// ErrInvalidExceptionPeriod is returned when start > end or the type is unknown.
	ErrInvalidExceptionPeriod = errors.New("alarm: invalid exception period")
	// ErrInvalidPreference is returned when a holiday preference violates its invariants.
	ErrInvalidPreference = errors.New("alarm: invalid holiday preference")
	// ErrInvalidDelay is returned when delay minutes fall outside [1,1440].
	ErrInvalidDelay = errors.New("alarm: delay minutes out of range")
	// ErrDuplicateSchedule guards schedule ids within one alarm.
	ErrDuplicateSchedule = errors.New("alarm: duplicate schedule id")
)
