package application

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	alarms "alarm-cloud/internal/alarms/domain"
	"alarm-cloud/internal/observability/metrics"
)

// DefaultHorizonDays bounds next-occurrence projections.
const DefaultHorizonDays = 366

// EventTriggered is the only decision event type; it is published when an alarm may fire.
const EventTriggered = "triggered"

// AlarmRepository loads alarms with their schedules.
type AlarmRepository interface {
	GetByID(ctx context.Context, id string) (*alarms.Alarm, error)
	ListEnabled(ctx context.Context) ([]alarms.Alarm, error)
}

// OverrideRepository loads the override snapshot of a user.
type OverrideRepository interface {
	Load(ctx context.Context, userID string) (alarms.Overrides, error)
}

// DecisionNotifier publishes trigger decisions.
type DecisionNotifier interface {
	Notify(ctx context.Context, event DecisionEvent)
}

// DecisionEvent is a trigger decision for one occurrence.
type DecisionEvent struct {
	ID          string                   `json:"id"`
	Key         string                   `json:"key"`
	Type        string                   `json:"type"`
	Alarm       alarms.Alarm             `json:"alarm"`
	Decision    alarms.EligibilityResult `json:"decision"`
	EvaluatedAt time.Time                `json:"evaluated_at"`
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

// Service evaluates stored alarms against their users' overrides.
type Service struct {
	alarms    AlarmRepository
	overrides OverrideRepository
	engine    *alarms.Engine
	notifier  DecisionNotifier
	clock     Clock
	logger    *zap.Logger
	horizon   int

	mu    sync.Mutex
	fired map[string]time.Time
}

// ServiceOption customizes the service.
type ServiceOption func(*Service)

// WithNotifier assigns a notifier.
func WithNotifier(notifier DecisionNotifier) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
	}
}

// WithClock assigns a clock.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithEngine replaces the default engine.
func WithEngine(engine *alarms.Engine) ServiceOption {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithLogger assigns a logger.
func WithLogger(logger *zap.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithHorizonDays sets the projection horizon.
func WithHorizonDays(days int) ServiceOption {
	return func(s *Service) {
		if days > 0 {
			s.horizon = days
		}
	}
}

// NewService constructs an alarm service.
func NewService(alarmRepo AlarmRepository, overrideRepo OverrideRepository, opts ...ServiceOption) (*Service, error) {
	if alarmRepo == nil {
		return nil, errors.New("alarms: nil alarm repository")
	}
	if overrideRepo == nil {
		return nil, errors.New("alarms: nil override repository")
	}
	service := &Service{
		alarms:    alarmRepo,
		overrides: overrideRepo,
		engine:    alarms.NewEngine(),
		clock:     systemClock{},
		logger:    zap.NewNop(),
		horizon:   DefaultHorizonDays,
		fired:     make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// Evaluate decides whether the alarm fires now.
func (s *Service) Evaluate(ctx context.Context, alarmID string) (alarms.EligibilityResult, error) {
	if s == nil {
		return alarms.EligibilityResult{}, errors.New("alarms: nil service")
	}
	return s.EvaluateAt(ctx, alarmID, s.clock.Now())
}

// EvaluateAt decides whether the alarm fires at ref.
func (s *Service) EvaluateAt(ctx context.Context, alarmID string, ref time.Time) (alarms.EligibilityResult, error) {
	if s == nil {
		return alarms.EligibilityResult{}, errors.New("alarms: nil service")
	}
	started := time.Now()
	alarm, overrides, err := s.load(ctx, alarmID)
	if err != nil {
		metrics.ObserveEvaluation("", time.Since(started))
		return alarms.EligibilityResult{}, err
	}
	result, err := s.engine.Evaluate(*alarm, ref, overrides)
	if err != nil {
		metrics.ObserveEvaluation("", time.Since(started))
		return alarms.EligibilityResult{}, fmt.Errorf("alarm %s: %w", alarmID, err)
	}
	metrics.ObserveEvaluation(string(result.Reason), time.Since(started))
	return result, nil
}

// NextOccurrence returns the next firing instant after now within the configured horizon.
func (s *Service) NextOccurrence(ctx context.Context, alarmID string) (time.Time, bool, error) {
	if s == nil {
		return time.Time{}, false, errors.New("alarms: nil service")
	}
	alarm, overrides, err := s.load(ctx, alarmID)
	if err != nil {
		return time.Time{}, false, err
	}
	next, ok, err := s.engine.NextOccurrence(*alarm, s.clock.Now(), s.horizon, overrides)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("alarm %s: %w", alarmID, err)
	}
	return next, ok, nil
}

// Upcoming lists up to limit occurrences after now within the configured horizon.
func (s *Service) Upcoming(ctx context.Context, alarmID string, limit int) (*alarms.Alarm, []alarms.Occurrence, error) {
	if s == nil {
		return nil, nil, errors.New("alarms: nil service")
	}
	alarm, overrides, err := s.load(ctx, alarmID)
	if err != nil {
		return nil, nil, err
	}
	occurrences, err := s.engine.Occurrences(*alarm, s.clock.Now(), s.horizon, limit, overrides)
	if err != nil {
		return nil, nil, fmt.Errorf("alarm %s: %w", alarmID, err)
	}
	return alarm, occurrences, nil
}

// HorizonDays returns the projection horizon used by NextOccurrence and Upcoming.
func (s *Service) HorizonDays() int {
	if s == nil {
		return 0
	}
	return s.horizon
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	At        time.Time
	Evaluated int
	Triggered int
	Failed    int
}

// Sweep evaluates every enabled alarm at the current instant and notifies firing ones.
// An occurrence is notified once even when consecutive sweeps land inside its due window.
// Failures of individual alarms are logged and counted; they never abort the sweep.
func (s *Service) Sweep(ctx context.Context) (SweepReport, error) {
	if s == nil {
		return SweepReport{}, errors.New("alarms: nil service")
	}
	started := time.Now()
	now := s.clock.Now().UTC()
	report := SweepReport{At: now}

	enabled, err := s.alarms.ListEnabled(ctx)
	if err != nil {
		metrics.ObserveSweep(metrics.ResultError, 0, 0, time.Since(started))
		return report, err
	}

	snapshots := make(map[string]alarms.Overrides)
	for _, alarm := range enabled {
		if err := ctx.Err(); err != nil {
			metrics.ObserveSweep(metrics.ResultError, report.Evaluated, report.Failed, time.Since(started))
			return report, err
		}
		report.Evaluated++

		overrides, ok := snapshots[alarm.UserID]
		if !ok {
			overrides, err = s.overrides.Load(ctx, alarm.UserID)
			if err != nil {
				report.Failed++
				s.logger.Error("load overrides failed", zap.String("alarm_id", alarm.ID), zap.String("user_id", alarm.UserID), zap.Error(err))
				continue
			}
			snapshots[alarm.UserID] = overrides
		}

		evalStarted := time.Now()
		result, err := s.engine.Evaluate(alarm, now, overrides)
		if err != nil {
			report.Failed++
			metrics.ObserveEvaluation("", time.Since(evalStarted))
			s.logger.Error("evaluate alarm failed", zap.String("alarm_id", alarm.ID), zap.Error(err))
			continue
		}
		metrics.ObserveEvaluation(string(result.Reason), time.Since(evalStarted))
		if !result.CanTrigger {
			continue
		}
		if s.notifyOnce(ctx, alarm, result, now) {
			report.Triggered++
		}
	}
	s.prune(now)

	metrics.ObserveSweep(metrics.ResultSuccess, report.Evaluated, report.Failed, time.Since(started))
	s.logger.Debug("sweep finished",
		zap.Time("at", now),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("triggered", report.Triggered),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

func (s *Service) load(ctx context.Context, alarmID string) (*alarms.Alarm, alarms.Overrides, error) {
	if alarmID == "" {
		return nil, alarms.Overrides{}, errors.New("alarms: alarm id required")
	}
	alarm, err := s.alarms.GetByID(ctx, alarmID)
	if err != nil {
		return nil, alarms.Overrides{}, err
	}
	if alarm == nil {
		return nil, alarms.Overrides{}, alarms.ErrNotFound
	}
	overrides, err := s.overrides.Load(ctx, alarm.UserID)
	if err != nil {
		return nil, alarms.Overrides{}, err
	}
	return alarm, overrides, nil
}

func (s *Service) notifyOnce(ctx context.Context, alarm alarms.Alarm, result alarms.EligibilityResult, now time.Time) bool {
	key := decisionKey(alarm.ID, result.ScheduleID, result.AdjustedInstant)
	s.mu.Lock()
	if _, seen := s.fired[key]; seen {
		s.mu.Unlock()
		return false
	}
	s.fired[key] = result.AdjustedInstant
	s.mu.Unlock()

	metrics.IncDecision(EventTriggered)
	s.logger.Info("alarm triggered",
		zap.String("alarm_id", alarm.ID),
		zap.String("schedule_id", result.ScheduleID),
		zap.String("reason", string(result.Reason)),
		zap.Time("adjusted", result.AdjustedInstant),
	)
	if s.notifier != nil {
		s.notifier.Notify(ctx, DecisionEvent{
			ID:          uuid.NewString(),
			Key:         key,
			Type:        EventTriggered,
			Alarm:       alarm,
			Decision:    result,
			EvaluatedAt: now,
		})
	}
	return true
}

// prune forgets notified occurrences whose due window closed well before now.
func (s *Service) prune(now time.Time) {
	keep := s.engine.DueWindow()
	if keep == 0 {
		keep = 24 * time.Hour
	}
	cutoff := now.Add(-2 * keep)
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, adjusted := range s.fired {
		if adjusted.Before(cutoff) {
			delete(s.fired, key)
		}
	}
}

func decisionKey(alarmID, scheduleID string, adjusted time.Time) string {
	sum := sha1.Sum([]byte(alarmID + "|" + scheduleID + "|" + adjusted.UTC().Format(time.RFC3339Nano)))
	return "decision-" + hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
