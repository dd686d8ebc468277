package alarms

import (
	"errors"
	"testing"
	"time"
)

func TestWeeklyMaskRoundTrip(t *testing.T) {
	rule, err := NewRecurrenceRule(RecurrenceWeekly, WeekdaysOf(time.Monday, time.Wednesday, time.Friday))
	if err != nil {
		t.Fatalf("new rule: %v", err)
	}
	start := NewCalendarDate(2026, time.March, 2)
	dueDays := 0
	for i := 0; i < 28; i++ {
		date := start.AddDays(i)
		want := date.Weekday() == time.Monday || date.Weekday() == time.Wednesday || date.Weekday() == time.Friday
		if got := rule.IsDue(date, nil); got != want {
			t.Fatalf("%s (%s): got %v want %v", date, date.Weekday(), got, want)
		}
		if want {
			dueDays++
		}
	}
	if dueDays != 12 {
		t.Fatalf("expected 12 due days over 4 weeks, got %d", dueDays)
	}
	if got := rule.Days.String(); got != "Mon,Wed,Fri" {
		t.Fatalf("mask string: got %s", got)
	}
}

func TestRecurrenceRuleValidate(t *testing.T) {
	tests := []struct {
		name    string
		rule    RecurrenceRule
		wantErr bool
	}{
		{name: "daily", rule: RecurrenceRule{Kind: RecurrenceDaily}},
		{name: "one off", rule: RecurrenceRule{Kind: RecurrenceOneOff}},
		{name: "weekly", rule: RecurrenceRule{Kind: RecurrenceWeekly, Days: Sunday}},
		{name: "weekly empty", rule: RecurrenceRule{Kind: RecurrenceWeekly}, wantErr: true},
		{name: "weekly overflow", rule: RecurrenceRule{Kind: RecurrenceWeekly, Days: Monday | 1<<7}, wantErr: true},
		{name: "unknown kind", rule: RecurrenceRule{Kind: "monthly"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr && !errors.Is(err, ErrInvalidRecurrenceRule) {
				t.Fatalf("expected ErrInvalidRecurrenceRule, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestOneOffAnchors(t *testing.T) {
	rule := RecurrenceRule{Kind: RecurrenceOneOff}
	anchor := NewCalendarDate(2026, time.March, 10)
	if !rule.IsDue(anchor, &anchor) {
		t.Fatalf("one-off must be due on its anchor")
	}
	if rule.IsDue(anchor.AddDays(1), &anchor) || rule.IsDue(anchor.AddDays(-7), &anchor) {
		t.Fatalf("one-off must not recur")
	}
	if rule.IsDue(anchor, nil) {
		t.Fatalf("one-off without anchor must never be due")
	}

	schedule := Schedule{
		ID:         "s-1",
		Time:       MustTimeConfiguration("07:00", "Asia/Tokyo"),
		Recurrence: rule,
		Active:     true,
		CreatedAt:  time.Date(2026, time.March, 9, 20, 0, 0, 0, time.UTC),
	}
	// 20:00 UTC on the 9th is already the 10th in Tokyo.
	if !schedule.IsDueOn(anchor) {
		t.Fatalf("creation date in schedule zone should anchor the one-off")
	}
	if schedule.IsDueOn(anchor.AddDays(-1)) {
		t.Fatalf("creation date must be taken in the schedule zone")
	}
}

func TestDailyAlwaysDue(t *testing.T) {
	rule := RecurrenceRule{Kind: RecurrenceDaily}
	start := NewCalendarDate(2026, time.January, 1)
	for i := 0; i < 366; i++ {
		if !rule.IsDue(start.AddDays(i), nil) {
			t.Fatalf("daily not due on %s", start.AddDays(i))
		}
	}
}

func TestAlarmOwnsSchedules(t *testing.T) {
	alarm, err := NewAlarm("alarm-1", "user-1", "wake up", true, dailySchedule("s-1", "07:00", "UTC"))
	if err != nil {
		t.Fatalf("new alarm: %v", err)
	}
	if err := alarm.AddSchedule(dailySchedule("s-1", "08:00", "UTC")); !errors.Is(err, ErrDuplicateSchedule) {
		t.Fatalf("expected ErrDuplicateSchedule, got %v", err)
	}
	if err := alarm.AddSchedule(Schedule{ID: "s-2", Recurrence: RecurrenceRule{Kind: RecurrenceDaily}, Active: true}); !errors.Is(err, ErrInvalidTimeZone) {
		t.Fatalf("expected ErrInvalidTimeZone for zero time configuration, got %v", err)
	}
	schedules := alarm.Schedules()
	schedules[0].ID = "mutated"
	if alarm.Schedules()[0].ID != "s-1" {
		t.Fatalf("Schedules must return a copy")
	}
	if !alarm.RemoveSchedule("s-1") || alarm.RemoveSchedule("s-1") {
		t.Fatalf("remove schedule mismatch")
	}
	if len(alarm.Schedules()) != 0 {
		t.Fatalf("expected no schedules after removal")
	}
}

func TestParseWeekdays(t *testing.T) {
	mask, err := ParseWeekdays("mon, Wednesday,FRI")
	if err != nil {
		t.Fatalf("parse weekdays: %v", err)
	}
	if mask != Monday|Wednesday|Friday {
		t.Fatalf("unexpected mask %s", mask)
	}
	if mask, err := ParseWeekdays(""); err != nil || mask != 0 {
		t.Fatalf("expected empty mask, got %v %v", mask, err)
	}
	if _, err := ParseWeekdays("mon,funday"); !errors.Is(err, ErrInvalidRecurrenceRule) {
		t.Fatalf("expected invalid rule error, got %v", err)
	}
}
