package alarms

import (
	"testing"
	"time"
)

func TestNextOccurrencePastOneOff(t *testing.T) {
	engine := NewEngine()
	anchor := NewCalendarDate(2026, time.March, 1)
	alarm := mustAlarm(t, Schedule{
		ID:         "once",
		Time:       MustTimeConfiguration("07:00", "UTC"),
		Recurrence: RecurrenceRule{Kind: RecurrenceOneOff},
		Active:     true,
		AnchorDate: &anchor,
	})

	_, ok, err := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 0, 0), 365, Overrides{})
	if err != nil {
		t.Fatalf("next occurrence: %v", err)
	}
	if ok {
		t.Fatalf("past one-off must have no next occurrence")
	}

	next, ok, err := engine.NextOccurrence(alarm, utc(2026, time.February, 20, 0, 0), 365, Overrides{})
	if err != nil || !ok {
		t.Fatalf("expected future one-off, ok=%v err=%v", ok, err)
	}
	if !next.Equal(utc(2026, time.March, 1, 7, 0)) {
		t.Fatalf("next: got %s", next)
	}
}

func TestNextOccurrenceIsStrictlyAfter(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))

	next, ok, err := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 7, 0), 7, Overrides{})
	if err != nil || !ok {
		t.Fatalf("expected occurrence, ok=%v err=%v", ok, err)
	}
	if !next.Equal(utc(2026, time.March, 11, 7, 0)) {
		t.Fatalf("next: got %s", next)
	}

	next, _, _ = engine.NextOccurrence(alarm, utc(2026, time.March, 10, 6, 59), 7, Overrides{})
	if !next.Equal(utc(2026, time.March, 10, 7, 0)) {
		t.Fatalf("next before trigger: got %s", next)
	}
}

func TestNextOccurrenceSkipsSuppressedDates(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	start := NewCalendarDate(2026, time.March, 10)
	overrides := Overrides{
		ExceptionPeriods: []ExceptionPeriod{vacation("vac", start, start.AddDays(2))},
		Holidays:         []Holiday{{ID: "h-1", Date: start.AddDays(3)}},
		Preferences:      []UserHolidayPreference{actionPref("h-1", HolidaySkip)},
	}

	next, ok, err := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 0, 0), 30, overrides)
	if err != nil || !ok {
		t.Fatalf("expected occurrence, ok=%v err=%v", ok, err)
	}
	if !next.Equal(utc(2026, time.March, 14, 7, 0)) {
		t.Fatalf("next: got %s", next)
	}
}

func TestNextOccurrenceHorizon(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	start := NewCalendarDate(2026, time.March, 10)
	overrides := Overrides{ExceptionPeriods: []ExceptionPeriod{vacation("vac", start, start.AddDays(60))}}

	if _, ok, err := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 0, 0), 30, overrides); err != nil || ok {
		t.Fatalf("expected horizon exhausted, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 0, 0), 0, Overrides{}); ok {
		t.Fatalf("empty horizon must yield nothing")
	}

	alarm.Enabled = false
	if _, ok, _ := engine.NextOccurrence(alarm, utc(2026, time.March, 10, 0, 0), 30, Overrides{}); ok {
		t.Fatalf("disabled alarm must yield nothing")
	}
}

func TestNextOccurrenceIncludesDelaySpill(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "23:50", "UTC"))
	overrides := Overrides{
		Holidays:    []Holiday{{ID: "h-1", Date: NewCalendarDate(2026, time.March, 10)}},
		Preferences: []UserHolidayPreference{delayPref("h-1", 30)},
	}

	next, ok, err := engine.NextOccurrence(alarm, utc(2026, time.March, 11, 0, 5), 7, overrides)
	if err != nil || !ok {
		t.Fatalf("expected occurrence, ok=%v err=%v", ok, err)
	}
	if !next.Equal(utc(2026, time.March, 11, 0, 20)) {
		t.Fatalf("next: got %s", next)
	}
}

func TestOccurrencesOrderedAndLimited(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t,
		weeklySchedule("weekday", "06:30", "UTC", Monday|Tuesday|Wednesday|Thursday|Friday),
		weeklySchedule("weekend", "09:00", "UTC", Saturday|Sunday),
	)
	from := utc(2026, time.March, 9, 0, 0)

	all, err := engine.Occurrences(alarm, from, 7, 0, Overrides{})
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(all) != 7 {
		t.Fatalf("expected one occurrence per day, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if !all[i-1].Instant.Before(all[i].Instant) {
			t.Fatalf("occurrences not ordered at %d: %s then %s", i, all[i-1].Instant, all[i].Instant)
		}
	}
	if all[5].ScheduleID != "weekend" || !all[5].Instant.Equal(utc(2026, time.March, 14, 9, 0)) {
		t.Fatalf("unexpected saturday occurrence %+v", all[5])
	}

	limited, err := engine.Occurrences(alarm, from, 30, 3, Overrides{})
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(limited) != 3 || !limited[2].Instant.Equal(utc(2026, time.March, 11, 6, 30)) {
		t.Fatalf("unexpected limited occurrences %+v", limited)
	}
}

func TestOccurrencesCarryOverride(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	overrides := Overrides{
		Holidays:    []Holiday{{ID: "h-1", Date: NewCalendarDate(2026, time.March, 11)}},
		Preferences: []UserHolidayPreference{delayPref("h-1", 1440)},
	}

	got, err := engine.Occurrences(alarm, utc(2026, time.March, 10, 8, 0), 5, 3, overrides)
	if err != nil {
		t.Fatalf("occurrences: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 occurrences, got %d", len(got))
	}
	// The 11th is delayed a full day onto the 12th's regular instant.
	if got[0].Date != NewCalendarDate(2026, time.March, 11) || got[0].Override.Kind() != OverrideDelay {
		t.Fatalf("expected delayed occurrence first, got %+v", got[0])
	}
	if !got[0].Instant.Equal(got[1].Instant) || got[1].Date != NewCalendarDate(2026, time.March, 12) {
		t.Fatalf("expected delayed and regular occurrences to coincide, got %+v", got[:2])
	}
}
