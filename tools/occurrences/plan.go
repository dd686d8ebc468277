package main

import (
	"context"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	alarms "alarm-cloud/internal/alarms/domain"
	"alarm-cloud/internal/alarms/infrastructure/memory"
)

type planSchedule struct {
	ID         string `yaml:"id"`
	Time       string `yaml:"time"`
	Timezone   string `yaml:"timezone"`
	Recurrence string `yaml:"recurrence"`
	Days       string `yaml:"days"`
	Anchor     string `yaml:"anchor"`
	Inactive   bool   `yaml:"inactive"`
}

type planAlarm struct {
	ID        string         `yaml:"id"`
	UserID    string         `yaml:"user_id"`
	Name      string         `yaml:"name"`
	Disabled  bool           `yaml:"disabled"`
	Schedules []planSchedule `yaml:"schedules"`
}

type planUser struct {
	ID      string `yaml:"id"`
	Country string `yaml:"country"`
	State   string `yaml:"state"`
}

type planPeriod struct {
	ID     string `yaml:"id"`
	UserID string `yaml:"user_id"`
	Start  string `yaml:"start"`
	End    string `yaml:"end"`
	Type   string `yaml:"type"`
}

type planPreference struct {
	UserID       string `yaml:"user_id"`
	HolidayID    string `yaml:"holiday_id"`
	Action       string `yaml:"action"`
	DelayMinutes *int   `yaml:"delay_minutes"`
	Disabled     bool   `yaml:"disabled"`
}

type plan struct {
	Users            []planUser       `yaml:"users"`
	Alarms           []planAlarm      `yaml:"alarms"`
	ExceptionPeriods []planPeriod     `yaml:"exception_periods"`
	Preferences      []planPreference `yaml:"preferences"`
}

// locales serves user locales declared in a plan.
type locales map[string]alarms.Locale

func (l locales) Locale(_ context.Context, userID string) (alarms.Locale, error) {
	return l[userID], nil
}

// loadPlan decodes a plan and fills a memory store with it.
func loadPlan(ctx context.Context, r io.Reader) (*memory.Store, locales, error) {
	var doc plan
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, nil, fmt.Errorf("plan: %w", err)
	}

	store := memory.NewStore()
	userLocales := make(locales, len(doc.Users))
	for _, user := range doc.Users {
		userLocales[user.ID] = alarms.Locale{Country: user.Country, State: user.State}
	}

	for _, entry := range doc.Alarms {
		schedules := make([]alarms.Schedule, 0, len(entry.Schedules))
		for _, s := range entry.Schedules {
			schedule, err := s.toSchedule()
			if err != nil {
				return nil, nil, fmt.Errorf("plan: alarm %s: %w", entry.ID, err)
			}
			schedules = append(schedules, schedule)
		}
		alarm, err := alarms.NewAlarm(entry.ID, entry.UserID, entry.Name, !entry.Disabled, schedules...)
		if err != nil {
			return nil, nil, fmt.Errorf("plan: alarm %s: %w", entry.ID, err)
		}
		if err := store.SaveAlarm(ctx, alarm); err != nil {
			return nil, nil, err
		}
	}

	for _, p := range doc.ExceptionPeriods {
		start, err := alarms.ParseCalendarDate(p.Start)
		if err != nil {
			return nil, nil, fmt.Errorf("plan: period %s: %w", p.ID, err)
		}
		end, err := alarms.ParseCalendarDate(p.End)
		if err != nil {
			return nil, nil, fmt.Errorf("plan: period %s: %w", p.ID, err)
		}
		kind := alarms.ExceptionType(p.Type)
		if kind == "" {
			kind = alarms.ExceptionVacation
		}
		period := alarms.ExceptionPeriod{ID: p.ID, UserID: p.UserID, StartDate: start, EndDate: end, Type: kind, Active: true}
		if err := store.AddExceptionPeriod(ctx, period); err != nil {
			return nil, nil, fmt.Errorf("plan: period %s: %w", p.ID, err)
		}
	}

	for _, p := range doc.Preferences {
		pref := alarms.UserHolidayPreference{
			ID:           p.UserID + ":" + p.HolidayID,
			UserID:       p.UserID,
			HolidayID:    p.HolidayID,
			Enabled:      !p.Disabled,
			Action:       alarms.HolidayAction(p.Action),
			DelayMinutes: p.DelayMinutes,
		}
		if err := store.UpsertPreference(ctx, pref); err != nil {
			return nil, nil, fmt.Errorf("plan: preference %s/%s: %w", p.UserID, p.HolidayID, err)
		}
	}
	return store, userLocales, nil
}

func (s planSchedule) toSchedule() (alarms.Schedule, error) {
	clock, err := alarms.ParseTimeConfiguration(s.Time, s.Timezone)
	if err != nil {
		return alarms.Schedule{}, err
	}
	kind := alarms.RecurrenceKind(s.Recurrence)
	if kind == "" {
		kind = alarms.RecurrenceDaily
	}
	days, err := alarms.ParseWeekdays(s.Days)
	if err != nil {
		return alarms.Schedule{}, err
	}
	rule, err := alarms.NewRecurrenceRule(kind, days)
	if err != nil {
		return alarms.Schedule{}, err
	}
	schedule := alarms.Schedule{ID: s.ID, Time: clock, Recurrence: rule, Active: !s.Inactive}
	if s.Anchor != "" {
		anchor, err := alarms.ParseCalendarDate(s.Anchor)
		if err != nil {
			return alarms.Schedule{}, err
		}
		schedule.AnchorDate = &anchor
	}
	return schedule, nil
}
