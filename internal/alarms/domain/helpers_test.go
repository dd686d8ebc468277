package alarms

import (
	"testing"
	"time"
)

const testUser = "user-1"

func dailySchedule(id, clock, zone string) Schedule {
	return Schedule{
		ID:         id,
		Time:       MustTimeConfiguration(clock, zone),
		Recurrence: RecurrenceRule{Kind: RecurrenceDaily},
		Active:     true,
	}
}

func weeklySchedule(id, clock, zone string, days Weekdays) Schedule {
	return Schedule{
		ID:         id,
		Time:       MustTimeConfiguration(clock, zone),
		Recurrence: RecurrenceRule{Kind: RecurrenceWeekly, Days: days},
		Active:     true,
	}
}

func mustAlarm(t *testing.T, schedules ...Schedule) Alarm {
	t.Helper()
	alarm, err := NewAlarm("alarm-1", testUser, "wake up", true, schedules...)
	if err != nil {
		t.Fatalf("new alarm: %v", err)
	}
	return *alarm
}

func utc(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }

func vacation(id string, start, end CalendarDate) ExceptionPeriod {
	return ExceptionPeriod{ID: id, UserID: testUser, StartDate: start, EndDate: end, Type: ExceptionVacation, Active: true}
}

func recurringHoliday(id string, month time.Month, day int) Holiday {
	return Holiday{ID: id, Name: id, Date: NewCalendarDate(2000, month, day), RecurringAnnually: true, Country: "US"}
}

func delayPref(holidayID string, minutes int) UserHolidayPreference {
	return UserHolidayPreference{ID: "pref-" + holidayID, UserID: testUser, HolidayID: holidayID, Enabled: true, Action: HolidayDelay, DelayMinutes: intPtr(minutes)}
}

func actionPref(holidayID string, action HolidayAction) UserHolidayPreference {
	return UserHolidayPreference{ID: "pref-" + holidayID, UserID: testUser, HolidayID: holidayID, Enabled: true, Action: action}
}
