package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	alarms "alarm-cloud/internal/alarms/domain"
)

// Store is an in-memory repository for tools and tests.
// It implements both the alarm and the override repository interfaces.
type Store struct {
	mu       sync.RWMutex
	alarms   map[string]*alarms.Alarm
	order    []string
	periods  []alarms.ExceptionPeriod
	holidays []alarms.Holiday
	prefs    []alarms.UserHolidayPreference
}

// NewStore constructs a store.
func NewStore() *Store {
	return &Store{alarms: make(map[string]*alarms.Alarm)}
}

// SaveAlarm stores a copy of alarm, replacing any alarm with the same id.
func (s *Store) SaveAlarm(ctx context.Context, alarm *alarms.Alarm) error {
	_ = ctx
	if alarm == nil {
		return errors.New("memory alarm store: nil alarm")
	}
	if alarm.ID == "" {
		return errors.New("memory alarm store: empty id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.alarms[alarm.ID]; !ok {
		s.order = append(s.order, alarm.ID)
	}
	s.alarms[alarm.ID] = cloneAlarm(alarm)
	return nil
}

// GetByID loads an alarm by id. It returns nil, nil when the alarm does not exist.
func (s *Store) GetByID(ctx context.Context, id string) (*alarms.Alarm, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	alarm := s.alarms[id]
	if alarm == nil {
		return nil, nil
	}
	return cloneAlarm(alarm), nil
}

// ListEnabled returns enabled alarms in insertion order.
func (s *Store) ListEnabled(ctx context.Context) ([]alarms.Alarm, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]alarms.Alarm, 0, len(s.order))
	for _, id := range s.order {
		alarm := s.alarms[id]
		if alarm == nil || !alarm.Enabled {
			continue
		}
		result = append(result, *cloneAlarm(alarm))
	}
	return result, nil
}

// AddExceptionPeriod validates and stores a period.
func (s *Store) AddExceptionPeriod(ctx context.Context, period alarms.ExceptionPeriod) error {
	_ = ctx
	if err := period.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.periods = append(s.periods, period)
	return nil
}

// AddHoliday stores a catalog entry.
func (s *Store) AddHoliday(ctx context.Context, holiday alarms.Holiday) error {
	_ = ctx
	if holiday.ID == "" || holiday.Date.IsZero() {
		return errors.New("memory alarm store: invalid holiday")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays = append(s.holidays, holiday)
	return nil
}

// UpsertPreference validates and stores a preference, replacing the user's previous
// preference for the same holiday.
func (s *Store) UpsertPreference(ctx context.Context, pref alarms.UserHolidayPreference) error {
	_ = ctx
	if err := pref.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.prefs {
		if s.prefs[i].UserID == pref.UserID && s.prefs[i].HolidayID == pref.HolidayID {
			s.prefs[i] = pref
			return nil
		}
	}
	s.prefs = append(s.prefs, pref)
	return nil
}

// Load returns the user's active periods, every stored holiday ordered by date and the
// user's preferences. Holidays are not filtered by locale.
func (s *Store) Load(ctx context.Context, userID string) (alarms.Overrides, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out alarms.Overrides
	for _, period := range s.periods {
		if period.UserID == userID && period.Active {
			out.ExceptionPeriods = append(out.ExceptionPeriods, period)
		}
	}
	out.Holidays = append(out.Holidays, s.holidays...)
	sort.SliceStable(out.Holidays, func(i, j int) bool {
		return out.Holidays[i].Date.Before(out.Holidays[j].Date)
	})
	for _, pref := range s.prefs {
		if pref.UserID == userID {
			out.Preferences = append(out.Preferences, pref)
		}
	}
	return out, nil
}

func cloneAlarm(alarm *alarms.Alarm) *alarms.Alarm {
	return alarms.RehydrateAlarm(alarm.ID, alarm.UserID, alarm.Name, alarm.Enabled, alarm.CreatedAt, alarm.UpdatedAt, alarm.Schedules())
}
