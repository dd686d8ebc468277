package alarms

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestEvaluateDailyDue(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))

	got, err := engine.Evaluate(alarm, utc(2026, time.March, 10, 7, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger || got.Reason != ReasonDue {
		t.Fatalf("expected due, got %+v", got)
	}
	if !got.AdjustedInstant.Equal(utc(2026, time.March, 10, 7, 0)) || got.ScheduleID != "s-1" {
		t.Fatalf("unexpected occurrence %+v", got)
	}
	if got.Override.Kind() != OverrideNone {
		t.Fatalf("expected no override, got %s", got.Override.Kind())
	}
}

func TestEvaluateExceptionSuppresses(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	day := NewCalendarDate(2026, time.March, 10)
	overrides := Overrides{
		ExceptionPeriods: []ExceptionPeriod{vacation("vac-1", day.AddDays(-2), day.AddDays(2))},
		Holidays:         []Holiday{{ID: "h-1", Date: day}},
		Preferences:      []UserHolidayPreference{delayPref("h-1", 30)},
	}

	got, err := engine.Evaluate(alarm, utc(2026, time.March, 10, 7, 0), overrides)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.CanTrigger || got.Reason != ReasonOverrideSuppressed {
		t.Fatalf("expected suppression, got %+v", got)
	}
	if got.Override.Source != (OverrideSource{Kind: SourceExceptionPeriod, ID: "vac-1"}) {
		t.Fatalf("expected exception attribution, got %+v", got.Override.Source)
	}
	if !got.AdjustedInstant.IsZero() {
		t.Fatalf("suppressed result must not carry an instant, got %s", got.AdjustedInstant)
	}
}

func TestEvaluateHolidayDelay(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	overrides := Overrides{
		Holidays:    []Holiday{recurringHoliday("h-1", time.March, 10)},
		Preferences: []UserHolidayPreference{delayPref("h-1", 30)},
	}
	adjusted := utc(2026, time.March, 10, 7, 30)

	tests := []struct {
		name    string
		ref     time.Time
		reason  Reason
		trigger bool
	}{
		{name: "original time is pending", ref: utc(2026, time.March, 10, 7, 0), reason: ReasonNotYetDue},
		{name: "mid delay is pending", ref: utc(2026, time.March, 10, 7, 15), reason: ReasonNotYetDue},
		{name: "adjusted time fires", ref: adjusted, reason: ReasonDelayedTrigger, trigger: true},
		{name: "after window", ref: utc(2026, time.March, 10, 7, 31), reason: ReasonWindowElapsed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := engine.Evaluate(alarm, tt.ref, overrides)
			if err != nil {
				t.Fatalf("evaluate: %v", err)
			}
			if got.Reason != tt.reason || got.CanTrigger != tt.trigger {
				t.Fatalf("got %s/%v want %s/%v", got.Reason, got.CanTrigger, tt.reason, tt.trigger)
			}
			if !got.AdjustedInstant.Equal(adjusted) {
				t.Fatalf("adjusted: got %s want %s", got.AdjustedInstant, adjusted)
			}
			if got.Override.Source != (OverrideSource{Kind: SourceHoliday, ID: "h-1"}) {
				t.Fatalf("expected holiday attribution, got %+v", got.Override.Source)
			}
		})
	}
}

func TestEvaluateWeeklyNotScheduled(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, weeklySchedule("s-1", "07:00", "UTC", Tuesday))

	// 2026-03-09 is a Monday.
	got, err := engine.Evaluate(alarm, utc(2026, time.March, 9, 7, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.CanTrigger || got.Reason != ReasonNoScheduleDue {
		t.Fatalf("expected no_schedule_due, got %+v", got)
	}
}

func TestEvaluateDisabledAndInactive(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	alarm.Enabled = false
	got, err := engine.Evaluate(alarm, utc(2026, time.March, 10, 7, 0), Overrides{})
	if err != nil || got.Reason != ReasonAlarmDisabled || got.CanTrigger {
		t.Fatalf("expected alarm_disabled, got %+v err=%v", got, err)
	}

	inactive := dailySchedule("s-1", "07:00", "UTC")
	inactive.Active = false
	alarm = mustAlarm(t, inactive)
	got, err = engine.Evaluate(alarm, utc(2026, time.March, 10, 7, 0), Overrides{})
	if err != nil || got.Reason != ReasonNoScheduleDue {
		t.Fatalf("expected no_schedule_due for inactive schedule, got %+v err=%v", got, err)
	}

	empty := mustAlarm(t)
	got, err = engine.Evaluate(empty, utc(2026, time.March, 10, 7, 0), Overrides{})
	if err != nil || got.Reason != ReasonNoScheduleDue {
		t.Fatalf("expected no_schedule_due for alarm without schedules, got %+v err=%v", got, err)
	}
}

func TestEvaluateMultipleSchedules(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t,
		dailySchedule("early", "06:00", "UTC"),
		dailySchedule("late", "07:00", "UTC"),
	)

	got, err := engine.Evaluate(alarm, utc(2026, time.March, 10, 7, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger || got.ScheduleID != "late" {
		t.Fatalf("firing schedule must win over elapsed one, got %+v", got)
	}

	got, err = engine.Evaluate(alarm, utc(2026, time.March, 10, 6, 30), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Reason != ReasonNotYetDue || got.ScheduleID != "late" {
		t.Fatalf("pending schedule must win over elapsed one, got %+v", got)
	}

	got, err = engine.Evaluate(alarm, utc(2026, time.March, 10, 5, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Reason != ReasonNotYetDue || got.ScheduleID != "early" {
		t.Fatalf("earliest pending schedule must win, got %+v", got)
	}
}

func TestEvaluateMixedZones(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t,
		dailySchedule("tokyo", "07:00", "Asia/Tokyo"),
		dailySchedule("london", "23:00", "Europe/London"),
	)
	// 22:00 UTC on the 9th is 07:00 on the 10th in Tokyo.
	ref := utc(2026, time.March, 9, 22, 0)

	got, err := engine.Evaluate(alarm, ref, Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger || got.ScheduleID != "tokyo" {
		t.Fatalf("expected tokyo schedule to fire, got %+v", got)
	}
	if got.Date != NewCalendarDate(2026, time.March, 10) {
		t.Fatalf("occurrence date must be local to the schedule, got %s", got.Date)
	}

	// An exception on the Tokyo date suppresses Tokyo while London is pending.
	overrides := Overrides{ExceptionPeriods: []ExceptionPeriod{vacation("v", got.Date, got.Date)}}
	got, err = engine.Evaluate(alarm, ref, overrides)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.CanTrigger || got.Reason != ReasonNotYetDue || got.ScheduleID != "london" {
		t.Fatalf("expected london pending, got %+v", got)
	}
}

func TestEvaluateDelaySpillsPastMidnight(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "23:50", "UTC"))
	overrides := Overrides{
		Holidays:    []Holiday{{ID: "h-1", Date: NewCalendarDate(2026, time.March, 10)}},
		Preferences: []UserHolidayPreference{delayPref("h-1", 30)},
	}

	got, err := engine.Evaluate(alarm, utc(2026, time.March, 11, 0, 10), overrides)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.Reason != ReasonNotYetDue || got.Date != NewCalendarDate(2026, time.March, 10) {
		t.Fatalf("expected previous day's delayed occurrence pending, got %+v", got)
	}

	got, err = engine.Evaluate(alarm, utc(2026, time.March, 11, 0, 20), overrides)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger || got.Reason != ReasonDelayedTrigger {
		t.Fatalf("expected delayed trigger after midnight, got %+v", got)
	}
	if !got.AdjustedInstant.Equal(utc(2026, time.March, 11, 0, 20)) {
		t.Fatalf("adjusted: got %s", got.AdjustedInstant)
	}
}

func TestEvaluateWindowCrossesMidnight(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "23:59:30", "UTC"))
	ref := time.Date(2026, time.March, 11, 0, 0, 10, 0, time.UTC)

	got, err := engine.Evaluate(alarm, ref, Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger || got.Date != NewCalendarDate(2026, time.March, 10) {
		t.Fatalf("expected previous day's occurrence inside its window, got %+v", got)
	}
}

func TestEvaluateUnboundedWindow(t *testing.T) {
	engine := NewEngine(WithDueWindow(0))
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))

	got, err := engine.Evaluate(alarm, utc(2026, time.March, 10, 23, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !got.CanTrigger {
		t.Fatalf("unbounded window must keep firing for the rest of the day, got %+v", got)
	}

	got, err = engine.Evaluate(alarm, utc(2026, time.March, 11, 6, 0), Overrides{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got.CanTrigger || got.Reason != ReasonNotYetDue {
		t.Fatalf("previous day must not keep firing into the next day, got %+v", got)
	}
}

func TestEvaluateDueWindowBoundaries(t *testing.T) {
	window := 5 * time.Minute
	engine := NewEngine(WithDueWindow(window))
	if engine.DueWindow() != window {
		t.Fatalf("due window: got %s", engine.DueWindow())
	}
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "UTC"))
	adjusted := utc(2026, time.March, 10, 7, 0)

	for offset := -time.Minute; offset <= window+time.Minute; offset += 30 * time.Second {
		got, err := engine.Evaluate(alarm, adjusted.Add(offset), Overrides{})
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		want := offset >= 0 && offset < window
		if got.CanTrigger != want {
			t.Fatalf("offset %s: got %v want %v (%s)", offset, got.CanTrigger, want, got.Reason)
		}
		if offset >= window && got.Reason != ReasonWindowElapsed {
			t.Fatalf("offset %s: expected window_elapsed, got %s", offset, got.Reason)
		}
	}
}

func TestEvaluateDelayIsAdditive(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t, dailySchedule("s-1", "07:00", "Europe/Berlin"))
	day := NewCalendarDate(2026, time.June, 15)
	base := alarm.Schedules()[0].Time.Resolve(day)

	for minutes := MinDelayMinutes; minutes <= MaxDelayMinutes; minutes++ {
		overrides := Overrides{
			Holidays:    []Holiday{{ID: "h-1", Date: day}},
			Preferences: []UserHolidayPreference{delayPref("h-1", minutes)},
		}
		want := base.Add(time.Duration(minutes) * time.Minute)
		got, err := engine.Evaluate(alarm, want, overrides)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !got.CanTrigger || !got.AdjustedInstant.Equal(want) {
			t.Fatalf("delay %d: got %+v want trigger at %s", minutes, got, want)
		}
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	engine := NewEngine()
	alarm := mustAlarm(t,
		dailySchedule("a", "07:00", "UTC"),
		weeklySchedule("b", "07:00", "UTC", WeekdaysOf(time.Tuesday)),
	)
	overrides := Overrides{
		Holidays:    []Holiday{recurringHoliday("h-1", time.March, 10)},
		Preferences: []UserHolidayPreference{delayPref("h-1", 10)},
	}
	ref := utc(2026, time.March, 10, 7, 10)

	first, err := engine.Evaluate(alarm, ref, overrides)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := engine.Evaluate(alarm, ref, overrides)
		if err != nil {
			t.Fatalf("evaluate: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("evaluation %d differs: %+v vs %+v", i, first, again)
		}
	}
	if first.ScheduleID != "a" {
		t.Fatalf("equal instants must resolve to the first schedule, got %s", first.ScheduleID)
	}
}

func TestEvaluateInvalidStoredZone(t *testing.T) {
	engine := NewEngine()
	broken := Schedule{
		ID:         "s-1",
		Time:       RestoreTimeConfiguration(7, 0, 0, "Mars/Olympus_Mons"),
		Recurrence: RecurrenceRule{Kind: RecurrenceDaily},
		Active:     true,
	}
	alarm := RehydrateAlarm("alarm-1", testUser, "wake up", true, time.Time{}, time.Time{}, []Schedule{broken})

	if _, err := engine.Evaluate(*alarm, utc(2026, time.March, 10, 7, 0), Overrides{}); !errors.Is(err, ErrInvalidTimeZone) {
		t.Fatalf("expected ErrInvalidTimeZone, got %v", err)
	}
	if _, _, err := engine.NextOccurrence(*alarm, utc(2026, time.March, 10, 7, 0), 7, Overrides{}); !errors.Is(err, ErrInvalidTimeZone) {
		t.Fatalf("expected ErrInvalidTimeZone from projection, got %v", err)
	}

	alarm.Enabled = false
	if got, err := engine.Evaluate(*alarm, utc(2026, time.March, 10, 7, 0), Overrides{}); err != nil || got.Reason != ReasonAlarmDisabled {
		t.Fatalf("disabled alarm is not inspected, got %+v err=%v", got, err)
	}
}
