package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	alarms "alarm-cloud/internal/alarms/domain"
)

// OverrideRepository loads the per-user override snapshot and persists its records.
type OverrideRepository struct {
	db *sql.DB
}

// NewOverrideRepository constructs a repository.
func NewOverrideRepository(db *sql.DB) *OverrideRepository {
	return &OverrideRepository{db: db}
}

// Load returns the user's active exception periods, the holidays observed in the user's locale
// and the user's holiday preferences.
func (r *OverrideRepository) Load(ctx context.Context, userID string) (alarms.Overrides, error) {
	if r == nil || r.db == nil {
		return alarms.Overrides{}, errors.New("override repo: nil db")
	}
	if userID == "" {
		return alarms.Overrides{}, errors.New("override repo: invalid query")
	}
	locale, err := r.Locale(ctx, userID)
	if err != nil {
		return alarms.Overrides{}, err
	}
	periods, err := r.ListExceptionPeriods(ctx, userID, true)
	if err != nil {
		return alarms.Overrides{}, err
	}
	holidays, err := r.ListHolidays(ctx, locale)
	if err != nil {
		return alarms.Overrides{}, err
	}
	prefs, err := r.ListPreferences(ctx, userID)
	if err != nil {
		return alarms.Overrides{}, err
	}
	return alarms.Overrides{
		ExceptionPeriods: periods,
		Holidays:         holidays,
		Preferences:      prefs,
	}, nil
}

// Locale returns the user's locale. A user without a profile has an empty locale.
func (r *OverrideRepository) Locale(ctx context.Context, userID string) (alarms.Locale, error) {
	if r == nil || r.db == nil {
		return alarms.Locale{}, errors.New("override repo: nil db")
	}
	var locale alarms.Locale
	err := r.db.QueryRowContext(ctx, `
SELECT country, state
FROM user_profiles
WHERE user_id = $1`, userID).Scan(&locale.Country, &locale.State)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return alarms.Locale{}, nil
		}
		return alarms.Locale{}, err
	}
	return locale, nil
}

// SaveLocale upserts the user's profile.
func (r *OverrideRepository) SaveLocale(ctx context.Context, userID string, locale alarms.Locale) error {
	if r == nil || r.db == nil {
		return errors.New("override repo: nil db")
	}
	if userID == "" {
		return errors.New("override repo: empty user id")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO user_profiles (user_id, country, state)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET
	country = EXCLUDED.country,
	state = EXCLUDED.state`, userID, locale.Country, locale.State)
	return err
}

// ListExceptionPeriods returns the user's exception periods ordered by start date.
func (r *OverrideRepository) ListExceptionPeriods(ctx context.Context, userID string, activeOnly bool) ([]alarms.ExceptionPeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("override repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, start_date, end_date, type, is_active
FROM exception_periods
WHERE user_id = $1 AND ($2 = FALSE OR is_active = TRUE)
ORDER BY start_date ASC, id ASC`, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alarms.ExceptionPeriod
	for rows.Next() {
		var (
			period     alarms.ExceptionPeriod
			start, end time.Time
			kind       string
		)
		if err := rows.Scan(&period.ID, &period.UserID, &start, &end, &kind, &period.Active); err != nil {
			return nil, err
		}
		period.StartDate = alarms.DateOf(start, time.UTC)
		period.EndDate = alarms.DateOf(end, time.UTC)
		period.Type = alarms.ExceptionType(kind)
		out = append(out, period)
	}
	return out, rows.Err()
}

// CreateExceptionPeriod validates and stores a period, assigning an id when empty.
func (r *OverrideRepository) CreateExceptionPeriod(ctx context.Context, period *alarms.ExceptionPeriod) error {
	if r == nil || r.db == nil {
		return errors.New("override repo: nil db")
	}
	if period == nil {
		return errors.New("override repo: nil exception period")
	}
	if err := period.Validate(); err != nil {
		return err
	}
	if period.ID == "" {
		period.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO exception_periods (id, user_id, start_date, end_date, type, is_active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		period.ID, period.UserID, period.StartDate.Time(), period.EndDate.Time(), string(period.Type), period.Active, time.Now().UTC())
	return err
}

// DeactivateExceptionPeriod marks a period inactive. It returns alarms.ErrNotFound for unknown ids.
func (r *OverrideRepository) DeactivateExceptionPeriod(ctx context.Context, id string) error {
	if r == nil || r.db == nil {
		return errors.New("override repo: nil db")
	}
	res, err := r.db.ExecContext(ctx, `UPDATE exception_periods SET is_active = FALSE WHERE id = $1`, id)
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

// ListHolidays returns the holidays observed in locale ordered by date.
// Country-wide entries apply to every state.
func (r *OverrideRepository) ListHolidays(ctx context.Context, locale alarms.Locale) ([]alarms.Holiday, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("override repo: nil db")
	}
	if locale.Country == "" {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, name, holiday_date, is_recurring, country, state
FROM holidays
WHERE LOWER(country) = LOWER($1) AND (state = '' OR LOWER(state) = LOWER($2))
ORDER BY holiday_date ASC, id ASC`, locale.Country, locale.State)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alarms.Holiday
	for rows.Next() {
		var (
			holiday alarms.Holiday
			date    time.Time
		)
		if err := rows.Scan(&holiday.ID, &holiday.Name, &date, &holiday.RecurringAnnually, &holiday.Country, &holiday.State); err != nil {
			return nil, err
		}
		holiday.Date = alarms.DateOf(date, time.UTC)
		out = append(out, holiday)
	}
	return out, rows.Err()
}

// UpsertHoliday inserts or replaces a catalog entry.
func (r *OverrideRepository) UpsertHoliday(ctx context.Context, holiday alarms.Holiday) error {
	if r == nil || r.db == nil {
		return errors.New("override repo: nil db")
	}
	if holiday.ID == "" || holiday.Date.IsZero() {
		return errors.New("override repo: invalid holiday")
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO holidays (id, name, holiday_date, is_recurring, country, state)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	holiday_date = EXCLUDED.holiday_date,
	is_recurring = EXCLUDED.is_recurring,
	country = EXCLUDED.country,
	state = EXCLUDED.state`,
		holiday.ID, holiday.Name, holiday.Date.Time(), holiday.RecurringAnnually, holiday.Country, holiday.State)
	return err
}

// ListPreferences returns the user's holiday preferences.
func (r *OverrideRepository) ListPreferences(ctx context.Context, userID string) ([]alarms.UserHolidayPreference, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("override repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, holiday_id, enabled, action, delay_minutes
FROM user_holiday_preferences
WHERE user_id = $1
ORDER BY holiday_id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []alarms.UserHolidayPreference
	for rows.Next() {
		var (
			pref   alarms.UserHolidayPreference
			action string
			delay  sql.NullInt32
		)
		if err := rows.Scan(&pref.ID, &pref.UserID, &pref.HolidayID, &pref.Enabled, &action, &delay); err != nil {
			return nil, err
		}
		pref.Action = alarms.HolidayAction(action)
		if delay.Valid {
			minutes := int(delay.Int32)
			pref.DelayMinutes = &minutes
		}
		out = append(out, pref)
	}
	return out, rows.Err()
}

// UpsertPreference validates and stores the user's preference for a holiday.
// A second write for the same user and holiday replaces the first.
func (r *OverrideRepository) UpsertPreference(ctx context.Context, pref *alarms.UserHolidayPreference) error {
	if r == nil || r.db == nil {
		return errors.New("override repo: nil db")
	}
	if pref == nil {
		return errors.New("override repo: nil preference")
	}
	if err := pref.Validate(); err != nil {
		return err
	}
	if pref.ID == "" {
		pref.ID = uuid.NewString()
	}
	var delay sql.NullInt32
	if pref.DelayMinutes != nil {
		delay = sql.NullInt32{Int32: int32(*pref.DelayMinutes), Valid: true}
	}
	return r.db.QueryRowContext(ctx, `
INSERT INTO user_holiday_preferences (id, user_id, holiday_id, enabled, action, delay_minutes, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id, holiday_id) DO UPDATE SET
	enabled = EXCLUDED.enabled,
	action = EXCLUDED.action,
	delay_minutes = EXCLUDED.delay_minutes,
	updated_at = EXCLUDED.updated_at
RETURNING id`,
		pref.ID, pref.UserID, pref.HolidayID, pref.Enabled, string(pref.Action), delay, time.Now().UTC()).Scan(&pref.ID)
}
