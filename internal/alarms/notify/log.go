package notify

import (
	"context"

	"go.uber.org/zap"

	alarmapp "alarm-cloud/internal/alarms/application"
)

// LogNotifier writes decision events to a structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier constructs a LogNotifier. A nil logger discards events.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// Notify logs the event at info level.
func (l *LogNotifier) Notify(_ context.Context, event alarmapp.DecisionEvent) {
	if l == nil {
		return
	}
	decision := event.Decision
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("key", event.Key),
		zap.String("alarm_id", event.Alarm.ID),
		zap.String("user_id", event.Alarm.UserID),
		zap.String("schedule_id", decision.ScheduleID),
		zap.String("reason", string(decision.Reason)),
		zap.Time("fires_at", decision.AdjustedInstant),
		zap.String("override", string(decision.Override.Kind())),
	}
	if decision.Override.Source.ID != "" {
		fields = append(fields,
			zap.String("override_source", string(decision.Override.Source.Kind)),
			zap.String("override_source_id", decision.Override.Source.ID),
		)
	}
	l.logger.Info("alarm "+event.Type, fields...)
}
