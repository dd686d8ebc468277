package alarms

import "fmt"

// HolidayAction is the stored action of a holiday preference.
type HolidayAction string

const (
	HolidayDisable HolidayAction = "disable"
	HolidayDelay   HolidayAction = "delay"
	HolidaySkip    HolidayAction = "skip"
)

const (
	MinDelayMinutes = 1
	MaxDelayMinutes = 1440
)

// Valid returns true when action is supported.
func (a HolidayAction) Valid() bool {
	switch a {
	case HolidayDisable, HolidayDelay, HolidaySkip:
		return true
	default:
		return false
	}
}

// UserHolidayPreference links a user to a holiday with an override action.
type UserHolidayPreference struct {
	ID           string
	UserID       string
	HolidayID    string
	Enabled      bool
	Action       HolidayAction
	DelayMinutes *int
}

// Validate enforces the write-time invariants: DelayMinutes is set and in range iff Action is delay.
func (p UserHolidayPreference) Validate() error {
	if p.UserID == "" || p.HolidayID == "" {
		return fmt.Errorf("%w: user and holiday ids required", ErrInvalidPreference)
	}
	if !p.Action.Valid() {
		return fmt.Errorf("%w: unknown action %q", ErrInvalidPreference, p.Action)
	}
	if p.Action != HolidayDelay {
		if p.DelayMinutes != nil {
			return fmt.Errorf("%w: delay minutes only allowed for delay action", ErrInvalidPreference)
		}
		return nil
	}
	if p.DelayMinutes == nil {
		return fmt.Errorf("%w: delay minutes required", ErrInvalidPreference)
	}
	if _, err := NewDelay(*p.DelayMinutes); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPreference, err)
	}
	return nil
}

// overrideAction maps an enabled preference to its action. Malformed records report false.
func (p UserHolidayPreference) overrideAction() (OverrideAction, bool) {
	switch p.Action {
	case HolidayDisable:
		return Suppress{}, true
	case HolidaySkip:
		return SkipOccurrence{}, true
	case HolidayDelay:
		if p.DelayMinutes == nil {
			return nil, false
		}
		delay, err := NewDelay(*p.DelayMinutes)
		if err != nil {
			return nil, false
		}
		return delay, true
	default:
		return nil, false
	}
}
