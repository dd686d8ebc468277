package alarms

import (
	"sort"
	"time"
)

// Occurrence is a projected firing of an alarm.
type Occurrence struct {
	Instant    time.Time
	ScheduleID string
	Date       CalendarDate
	Override   OverrideResolution
}

// trailingDays keeps scanning after a schedule has produced enough occurrences,
// because a delay of up to a day can order a date's firing after the next date's.
const trailingDays = 2

// NextOccurrence returns the first firing instant strictly after from within horizonDays local
// dates. The boolean is false when no occurrence exists in the horizon.
func (e *Engine) NextOccurrence(alarm Alarm, from time.Time, horizonDays int, overrides Overrides) (time.Time, bool, error) {
	occurrences, err := e.Occurrences(alarm, from, horizonDays, 1, overrides)
	if err != nil || len(occurrences) == 0 {
		return time.Time{}, false, err
	}
	return occurrences[0].Instant, true, nil
}

// Occurrences lists up to limit firing instants strictly after from, ordered by instant.
// limit <= 0 lists every occurrence in the horizon. The scan for each schedule starts one day
// before from's local date, so occurrences delayed past midnight are included, and covers
// horizonDays dates from from's local date onward. The cost is O(horizonDays × schedules).
func (e *Engine) Occurrences(alarm Alarm, from time.Time, horizonDays, limit int, overrides Overrides) ([]Occurrence, error) {
	if !alarm.Enabled || horizonDays <= 0 {
		return nil, nil
	}
	schedules, err := alarm.activeSchedules()
	if err != nil {
		return nil, err
	}
	from = from.UTC()

	var all []Occurrence
	for _, schedule := range schedules {
		start := schedule.Time.DateOf(from).AddDays(-1)
		found := 0
		stopAt := -1
		for i := 0; i <= horizonDays; i++ {
			if stopAt >= 0 && i > stopAt {
				break
			}
			occ, ok := occurrenceOn(alarm.UserID, schedule, start.AddDays(i), overrides)
			if !ok || occ.suppressed() || !occ.adjusted.After(from) {
				continue
			}
			all = append(all, Occurrence{
				Instant:    occ.adjusted,
				ScheduleID: schedule.ID,
				Date:       occ.date,
				Override:   occ.override,
			})
			found++
			if limit > 0 && found == limit && stopAt < 0 {
				stopAt = i + trailingDays
			}
		}
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Instant.Before(all[j].Instant) })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}
