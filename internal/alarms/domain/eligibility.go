package alarms

import "time"

// Reason explains an eligibility decision.
type Reason string

const (
	ReasonAlarmDisabled      Reason = "alarm_disabled"
	ReasonNoScheduleDue      Reason = "no_schedule_due"
	ReasonOverrideSuppressed Reason = "override_suppressed"
	ReasonDelayedTrigger     Reason = "delayed_trigger"
	ReasonNotYetDue          Reason = "not_yet_due"
	ReasonDue                Reason = "due"
	ReasonWindowElapsed      Reason = "window_elapsed"
)

// DefaultDueWindow matches a driver polling about once a minute.
const DefaultDueWindow = time.Minute

// EligibilityResult is the outcome of evaluating an alarm at a reference instant.
// AdjustedInstant is zero when no occurrence applies (disabled, nothing due, suppressed).
type EligibilityResult struct {
	CanTrigger      bool
	AdjustedInstant time.Time
	Reason          Reason
	ScheduleID      string
	Date            CalendarDate
	Override        OverrideResolution
}

// Engine decides trigger eligibility. It holds only immutable settings and is safe for concurrent use.
type Engine struct {
	dueWindow time.Duration
}

// EngineOption customizes the engine.
type EngineOption func(*Engine)

// WithDueWindow sets how long after the adjusted instant a reference still fires.
// Zero removes the upper bound.
func WithDueWindow(window time.Duration) EngineOption {
	return func(e *Engine) {
		if window >= 0 {
			e.dueWindow = window
		}
	}
}

// NewEngine constructs an Engine.
func NewEngine(opts ...EngineOption) *Engine {
	engine := &Engine{dueWindow: DefaultDueWindow}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// DueWindow returns the configured tolerance.
func (e *Engine) DueWindow() time.Duration { return e.dueWindow }

// occurrence is a schedule that is due on a local date, with its override applied.
type occurrence struct {
	schedule Schedule
	date     CalendarDate
	base     time.Time
	adjusted time.Time
	override OverrideResolution
}

func (o occurrence) suppressed() bool { return o.override.Suppresses() }

// occurrenceOn returns the schedule's occurrence on date, if the recurrence selects it.
func occurrenceOn(userID string, schedule Schedule, date CalendarDate, overrides Overrides) (occurrence, bool) {
	if !schedule.IsDueOn(date) {
		return occurrence{}, false
	}
	base := schedule.Time.Resolve(date)
	resolution := ResolveOverride(userID, date, overrides)
	occ := occurrence{
		schedule: schedule,
		date:     date,
		base:     base,
		adjusted: base,
		override: resolution,
	}
	if !occ.suppressed() {
		occ.adjusted = base.Add(resolution.delay())
	}
	return occ, true
}

// Evaluate decides whether alarm fires at ref.
//
// Each active schedule is examined on the calendar date of ref in its own zone. The previous
// local date is examined too, but only for occurrences a delay pushed into the current date or
// whose due window is still open, so delayed occurrences crossing midnight are not lost.
// Firing occurrences win over pending ones, which win over suppressed and elapsed ones; within
// a class the earliest adjusted instant wins.
//
// Structurally invalid schedules fail with ErrInvalidTimeZone or ErrInvalidRecurrenceRule.
func (e *Engine) Evaluate(alarm Alarm, ref time.Time, overrides Overrides) (EligibilityResult, error) {
	if !alarm.Enabled {
		return EligibilityResult{Reason: ReasonAlarmDisabled}, nil
	}
	schedules, err := alarm.activeSchedules()
	if err != nil {
		return EligibilityResult{}, err
	}
	ref = ref.UTC()

	var firing, pending, suppressed, elapsed *EligibilityResult
	for _, schedule := range schedules {
		today := schedule.Time.DateOf(ref)
		todayStart := schedule.Time.StartOf(today)

		for _, date := range []CalendarDate{today.AddDays(-1), today} {
			occ, ok := occurrenceOn(alarm.UserID, schedule, date, overrides)
			if !ok {
				continue
			}
			isToday := date == today
			if !isToday {
				if occ.suppressed() {
					continue
				}
				spilled := !occ.adjusted.Before(todayStart)
				if !spilled && (e.dueWindow == 0 || !e.windowOpen(occ.adjusted, ref)) {
					continue
				}
			}

			result := e.classify(occ, ref)
			switch result.Reason {
			case ReasonDue, ReasonDelayedTrigger:
				firing = earliest(firing, result)
			case ReasonNotYetDue:
				pending = earliest(pending, result)
			case ReasonOverrideSuppressed:
				if isToday && suppressed == nil {
					suppressed = &result
				}
			case ReasonWindowElapsed:
				if isToday {
					elapsed = earliest(elapsed, result)
				}
			}
		}
	}

	for _, result := range []*EligibilityResult{firing, pending, suppressed, elapsed} {
		if result != nil {
			return *result, nil
		}
	}
	return EligibilityResult{Reason: ReasonNoScheduleDue}, nil
}

func (e *Engine) classify(occ occurrence, ref time.Time) EligibilityResult {
	result := EligibilityResult{
		ScheduleID: occ.schedule.ID,
		Date:       occ.date,
		Override:   occ.override,
	}
	if occ.suppressed() {
		result.Reason = ReasonOverrideSuppressed
		return result
	}
	result.AdjustedInstant = occ.adjusted
	switch {
	case ref.Before(occ.adjusted):
		result.Reason = ReasonNotYetDue
	case !e.windowOpen(occ.adjusted, ref):
		result.Reason = ReasonWindowElapsed
	default:
		result.CanTrigger = true
		result.Reason = ReasonDue
		if occ.override.Kind() == OverrideDelay {
			result.Reason = ReasonDelayedTrigger
		}
	}
	return result
}

// windowOpen reports whether ref lies before the end of the due window opened at adjusted.
func (e *Engine) windowOpen(adjusted, ref time.Time) bool {
	if e.dueWindow == 0 {
		return true
	}
	return ref.Before(adjusted.Add(e.dueWindow))
}

func earliest(current *EligibilityResult, candidate EligibilityResult) *EligibilityResult {
	if current == nil || candidate.AdjustedInstant.Before(current.AdjustedInstant) {
		return &candidate
	}
	return current
}
