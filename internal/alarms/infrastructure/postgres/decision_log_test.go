package postgres

import (
	"context"
	"testing"
	"time"

	alarmapp "alarm-cloud/internal/alarms/application"
	alarms "alarm-cloud/internal/alarms/domain"
)

func TestToDecisionRecord(t *testing.T) {
	delay, err := alarms.NewDelay(30)
	if err != nil {
		t.Fatalf("new delay: %v", err)
	}
	paris, _ := time.LoadLocation("Europe/Paris")
	event := alarmapp.DecisionEvent{
		ID:    "evt-1",
		Key:   "decision-1",
		Type:  alarmapp.EventTriggered,
		Alarm: alarms.Alarm{ID: "alarm-1", UserID: "user-1"},
		Decision: alarms.EligibilityResult{
			CanTrigger:      true,
			AdjustedInstant: time.Date(2026, 1, 1, 8, 30, 0, 0, paris),
			Reason:          alarms.ReasonDelayedTrigger,
			ScheduleID:      "s-1",
			Date:            alarms.NewCalendarDate(2026, time.January, 1),
			Override: alarms.OverrideResolution{
				Action: delay,
				Source: alarms.OverrideSource{Kind: alarms.SourceHoliday, ID: "new-year"},
			},
		},
		EvaluatedAt: time.Date(2026, 1, 1, 7, 30, 5, 0, time.UTC),
	}

	record := toDecisionRecord(event)
	if !record.FiresAt.Equal(time.Date(2026, 1, 1, 7, 30, 0, 0, time.UTC)) {
		t.Fatalf("expected fires_at in UTC, got %s", record.FiresAt)
	}
	if record.Date != "2026-01-01" || record.OverrideKind != "delay" || record.DelayMinutes != 30 {
		t.Fatalf("unexpected record %+v", record)
	}
	if record.OverrideSource != "holiday" || record.OverrideID != "new-year" || record.AlarmID != "alarm-1" {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestRepositoriesRejectNilDB(t *testing.T) {
	ctx := context.Background()
	if _, err := NewAlarmRepository(nil).GetByID(ctx, "a"); err == nil {
		t.Fatalf("expected alarm repo error")
	}
	if _, err := NewOverrideRepository(nil).Load(ctx, "u"); err == nil {
		t.Fatalf("expected override repo error")
	}
	if _, err := NewDecisionLog(nil, nil).Append(ctx, alarmapp.DecisionEvent{ID: "e", Key: "k"}); err == nil {
		t.Fatalf("expected decision log error")
	}
	if err := RunMigrations(ctx, nil); err == nil {
		t.Fatalf("expected migration error")
	}
}
