package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	alarmapp "alarm-cloud/internal/alarms/application"
	alarms "alarm-cloud/internal/alarms/domain"
)

// DecisionRecord is a persisted trigger decision.
type DecisionRecord struct {
	ID             string    `json:"id"`
	Key            string    `json:"key"`
	Type           string    `json:"type"`
	AlarmID        string    `json:"alarm_id"`
	UserID         string    `json:"user_id"`
	ScheduleID     string    `json:"schedule_id"`
	Date           string    `json:"date"`
	FiresAt        time.Time `json:"fires_at"`
	Reason         string    `json:"reason"`
	OverrideKind   string    `json:"override_kind"`
	OverrideSource string    `json:"override_source,omitempty"`
	OverrideID     string    `json:"override_id,omitempty"`
	DelayMinutes   int       `json:"delay_minutes,omitempty"`
	EvaluatedAt    time.Time `json:"evaluated_at"`
}

// DecisionLog appends trigger decisions to alarm_decisions. Writes are idempotent per decision
// key, so a restarted daemon re-evaluating an open due window does not record the occurrence twice.
type DecisionLog struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionLog constructs a decision log.
func NewDecisionLog(db *sql.DB, logger *zap.Logger) *DecisionLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DecisionLog{db: db, logger: logger}
}

// Notify records the event; failures are logged.
func (l *DecisionLog) Notify(ctx context.Context, event alarmapp.DecisionEvent) {
	if l == nil {
		return
	}
	if _, err := l.Append(ctx, event); err != nil {
		l.logger.Error("record decision failed", zap.String("alarm_id", event.Alarm.ID), zap.String("key", event.Key), zap.Error(err))
	}
}

// Append inserts the event and reports whether it was new.
func (l *DecisionLog) Append(ctx context.Context, event alarmapp.DecisionEvent) (bool, error) {
	if l == nil || l.db == nil {
		return false, errors.New("decision log: nil db")
	}
	if event.ID == "" || event.Key == "" {
		return false, errors.New("decision log: event id and key required")
	}
	record := toDecisionRecord(event)
	payload, err := json.Marshal(record)
	if err != nil {
		return false, err
	}
	res, err := l.db.ExecContext(ctx, `
INSERT INTO alarm_decisions (
	id, decision_key, event_type, alarm_id, user_id, schedule_id, local_date, fires_at,
	reason, override_kind, override_source, override_id, payload, evaluated_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
)
ON CONFLICT (decision_key)
DO NOTHING`,
		record.ID, record.Key, record.Type, record.AlarmID, record.UserID, record.ScheduleID,
		event.Decision.Date.Time(), record.FiresAt, record.Reason, record.OverrideKind,
		record.OverrideSource, record.OverrideID, payload, record.EvaluatedAt)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// ListByAlarm returns the most recent decisions of an alarm, newest first.
func (l *DecisionLog) ListByAlarm(ctx context.Context, alarmID string, limit int) ([]DecisionRecord, error) {
	if l == nil || l.db == nil {
		return nil, errors.New("decision log: nil db")
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `
SELECT payload
FROM alarm_decisions
WHERE alarm_id = $1
ORDER BY fires_at DESC
LIMIT $2`, alarmID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []DecisionRecord
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var record DecisionRecord
		if err := json.Unmarshal(payload, &record); err != nil {
			return nil, err
		}
		result = append(result, record)
	}
	return result, rows.Err()
}

func toDecisionRecord(event alarmapp.DecisionEvent) DecisionRecord {
	decision := event.Decision
	record := DecisionRecord{
		ID:             event.ID,
		Key:            event.Key,
		Type:           event.Type,
		AlarmID:        event.Alarm.ID,
		UserID:         event.Alarm.UserID,
		ScheduleID:     decision.ScheduleID,
		Date:           decision.Date.String(),
		FiresAt:        decision.AdjustedInstant.UTC(),
		Reason:         string(decision.Reason),
		OverrideKind:   string(decision.Override.Kind()),
		OverrideSource: string(decision.Override.Source.Kind),
		OverrideID:     decision.Override.Source.ID,
		EvaluatedAt:    event.EvaluatedAt.UTC(),
	}
	if delay, ok := decision.Override.Action.(alarms.Delay); ok {
		record.DelayMinutes = delay.Minutes()
	}
	return record
}
