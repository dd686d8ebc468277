package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	alarms "alarm-cloud/internal/alarms/domain"
)

// AlarmRepository is a Postgres repository for alarms and their schedules.
type AlarmRepository struct {
	db *sql.DB
}

// NewAlarmRepository constructs a repository.
func NewAlarmRepository(db *sql.DB) *AlarmRepository {
	return &AlarmRepository{db: db}
}

const selectAlarmsWithSchedules = `
SELECT a.id, a.user_id, a.name, a.enabled, a.created_at, a.updated_at,
	s.id, s.trigger_hour, s.trigger_minute, s.trigger_second, s.timezone,
	s.recurrence, s.weekdays, s.anchor_date, s.is_active, s.created_at
FROM alarms a
LEFT JOIN alarm_schedules s ON s.alarm_id = a.id
`

// Save inserts or replaces an alarm together with its schedules.
func (r *AlarmRepository) Save(ctx context.Context, alarm *alarms.Alarm) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	if alarm == nil || alarm.ID == "" || alarm.UserID == "" {
		return errors.New("alarm repo: invalid alarm")
	}
	now := time.Now().UTC()
	if alarm.CreatedAt.IsZero() {
		alarm.CreatedAt = now
	}
	alarm.UpdatedAt = now

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO alarms (id, user_id, name, enabled, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	name = EXCLUDED.name,
	enabled = EXCLUDED.enabled,
	updated_at = EXCLUDED.updated_at`,
		alarm.ID, alarm.UserID, alarm.Name, alarm.Enabled, alarm.CreatedAt, alarm.UpdatedAt); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM alarm_schedules WHERE alarm_id = $1`, alarm.ID); err != nil {
		return err
	}
	for _, schedule := range alarm.Schedules() {
		if schedule.ID == "" {
			return fmt.Errorf("alarm repo: schedule without id on alarm %s", alarm.ID)
		}
		createdAt := schedule.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		var anchor sql.NullTime
		if schedule.AnchorDate != nil {
			anchor = sql.NullTime{Time: schedule.AnchorDate.Time(), Valid: true}
		}
		clock := schedule.Time.TimeOfDay()
		if _, err := tx.ExecContext(ctx, `
INSERT INTO alarm_schedules (
	id, alarm_id, trigger_hour, trigger_minute, trigger_second, timezone,
	recurrence, weekdays, anchor_date, is_active, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			schedule.ID, alarm.ID, clock.Hour, clock.Minute, clock.Second, schedule.Time.Zone(),
			string(schedule.Recurrence.Kind), int(schedule.Recurrence.Days), anchor, schedule.Active, createdAt); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// SetEnabled toggles an alarm. It returns alarms.ErrNotFound for unknown ids.
func (r *AlarmRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	if r == nil || r.db == nil {
		return errors.New("alarm repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE alarms SET enabled = $2, updated_at = $3 WHERE id = $1`, id, enabled, time.Now().UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return alarms.ErrNotFound
	}
	return nil
}

// GetByID loads an alarm by id. It returns nil, nil when the alarm does not exist.
func (r *AlarmRepository) GetByID(ctx context.Context, id string) (*alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	if id == "" {
		return nil, errors.New("alarm repo: invalid query")
	}
	rows, err := r.db.QueryContext(ctx, selectAlarmsWithSchedules+`
WHERE a.id = $1
ORDER BY s.created_at ASC, s.id ASC`, id)
	if err != nil {
		return nil, err
	}
	list, err := scanAlarms(rows)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ListEnabled returns every enabled alarm with its schedules.
func (r *AlarmRepository) ListEnabled(ctx context.Context) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, selectAlarmsWithSchedules+`
WHERE a.enabled = TRUE
ORDER BY a.created_at ASC, a.id ASC, s.created_at ASC, s.id ASC`)
	if err != nil {
		return nil, err
	}
	return scanAlarms(rows)
}

// ListByUser returns all alarms of a user.
func (r *AlarmRepository) ListByUser(ctx context.Context, userID string) ([]alarms.Alarm, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("alarm repo: nil db")
	}
	if userID == "" {
		return nil, errors.New("alarm repo: invalid query")
	}
	rows, err := r.db.QueryContext(ctx, selectAlarmsWithSchedules+`
WHERE a.user_id = $1
ORDER BY a.created_at ASC, a.id ASC, s.created_at ASC, s.id ASC`, userID)
	if err != nil {
		return nil, err
	}
	return scanAlarms(rows)
}

type alarmRow struct {
	id, userID, name     string
	enabled              bool
	createdAt, updatedAt time.Time
	schedules            []alarms.Schedule
}

// scanAlarms groups joined rows by alarm, preserving query order.
func scanAlarms(rows *sql.Rows) ([]alarms.Alarm, error) {
	defer rows.Close()

	var order []*alarmRow
	byID := make(map[string]*alarmRow)
	for rows.Next() {
		var (
			row        alarmRow
			scheduleID sql.NullString
			hour       sql.NullInt32
			minute     sql.NullInt32
			second     sql.NullInt32
			zone       sql.NullString
			recurrence sql.NullString
			weekdays   sql.NullInt32
			anchor     sql.NullTime
			active     sql.NullBool
			scheduled  sql.NullTime
		)
		if err := rows.Scan(
			&row.id,
			&row.userID,
			&row.name,
			&row.enabled,
			&row.createdAt,
			&row.updatedAt,
			&scheduleID,
			&hour,
			&minute,
			&second,
			&zone,
			&recurrence,
			&weekdays,
			&anchor,
			&active,
			&scheduled,
		); err != nil {
			return nil, err
		}
		current, ok := byID[row.id]
		if !ok {
			current = &alarmRow{
				id:        row.id,
				userID:    row.userID,
				name:      row.name,
				enabled:   row.enabled,
				createdAt: row.createdAt.UTC(),
				updatedAt: row.updatedAt.UTC(),
			}
			byID[row.id] = current
			order = append(order, current)
		}
		if !scheduleID.Valid {
			continue
		}
		schedule := alarms.Schedule{
			ID:         scheduleID.String,
			Time:       alarms.RestoreTimeConfiguration(int(hour.Int32), int(minute.Int32), int(second.Int32), zone.String),
			Recurrence: alarms.RecurrenceRule{Kind: alarms.RecurrenceKind(recurrence.String), Days: alarms.Weekdays(weekdays.Int32)},
			Active:     active.Bool,
			CreatedAt:  scheduled.Time.UTC(),
		}
		if anchor.Valid {
			date := alarms.DateOf(anchor.Time, time.UTC)
			schedule.AnchorDate = &date
		}
		current.schedules = append(current.schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]alarms.Alarm, 0, len(order))
	for _, row := range order {
		result = append(result, *alarms.RehydrateAlarm(row.id, row.userID, row.name, row.enabled, row.createdAt, row.updatedAt, row.schedules))
	}
	return result, nil
}
