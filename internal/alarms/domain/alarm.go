package alarms

import (
	"fmt"
	"time"
)

// Schedule is one trigger rule of an alarm.
type Schedule struct {
	ID         string
	Time       TimeConfiguration
	Recurrence RecurrenceRule
	Active     bool
	// AnchorDate is the date of a one-off schedule. When nil the creation date is used.
	AnchorDate *CalendarDate
	CreatedAt  time.Time
}

// Validate checks the time configuration and recurrence rule.
func (s Schedule) Validate() error {
	if !s.Time.Valid() {
		return fmt.Errorf("schedule %s: %w: unresolved zone %q", s.ID, ErrInvalidTimeZone, s.Time.Zone())
	}
	if err := s.Recurrence.Validate(); err != nil {
		return fmt.Errorf("schedule %s: %w", s.ID, err)
	}
	return nil
}

// Anchor returns the one-off date, falling back to the creation date in the schedule's zone.
func (s Schedule) Anchor() *CalendarDate {
	if s.AnchorDate != nil {
		anchor := *s.AnchorDate
		return &anchor
	}
	if s.CreatedAt.IsZero() {
		return nil
	}
	anchor := s.Time.DateOf(s.CreatedAt)
	return &anchor
}

// IsDueOn reports whether the schedule's recurrence selects date.
func (s Schedule) IsDueOn(date CalendarDate) bool {
	return s.Recurrence.IsDue(date, s.Anchor())
}

// Alarm is the aggregate root owning its schedules.
type Alarm struct {
	ID        string
	UserID    string
	Name      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time

	schedules []Schedule
}

// NewAlarm constructs an alarm with the given schedules.
func NewAlarm(id, userID, name string, enabled bool, schedules ...Schedule) (*Alarm, error) {
	alarm := &Alarm{ID: id, UserID: userID, Name: name, Enabled: enabled}
	for _, schedule := range schedules {
		if err := alarm.AddSchedule(schedule); err != nil {
			return nil, err
		}
	}
	return alarm, nil
}

// RehydrateAlarm rebuilds a persisted alarm. Schedules are not validated here; invalid ones
// surface as errors when the alarm is evaluated.
func RehydrateAlarm(id, userID, name string, enabled bool, createdAt, updatedAt time.Time, schedules []Schedule) *Alarm {
	return &Alarm{
		ID:        id,
		UserID:    userID,
		Name:      name,
		Enabled:   enabled,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
		schedules: append([]Schedule(nil), schedules...),
	}
}

// AddSchedule validates and appends a schedule.
func (a *Alarm) AddSchedule(schedule Schedule) error {
	if err := schedule.Validate(); err != nil {
		return err
	}
	if schedule.ID != "" {
		for _, existing := range a.schedules {
			if existing.ID == schedule.ID {
				return fmt.Errorf("%w: %s", ErrDuplicateSchedule, schedule.ID)
			}
		}
	}
	a.schedules = append(a.schedules, schedule)
	return nil
}

// RemoveSchedule drops the schedule with id and reports whether it existed.
func (a *Alarm) RemoveSchedule(id string) bool {
	for i, existing := range a.schedules {
		if existing.ID == id {
			a.schedules = append(a.schedules[:i:i], a.schedules[i+1:]...)
			return true
		}
	}
	return false
}

// Schedules returns a copy of the alarm's schedules.
func (a Alarm) Schedules() []Schedule {
	return append([]Schedule(nil), a.schedules...)
}

// activeSchedules returns active schedules, failing on the first structurally invalid one.
func (a Alarm) activeSchedules() ([]Schedule, error) {
	var active []Schedule
	for _, schedule := range a.schedules {
		if !schedule.Active {
			continue
		}
		if err := schedule.Validate(); err != nil {
			return nil, err
		}
		active = append(active, schedule)
	}
	return active, nil
}
