package notify

import (
	"context"

	alarmapp "alarm-cloud/internal/alarms/application"
)

// MultiNotifier dispatches decision events to multiple notifiers.
type MultiNotifier struct {
	notifiers []alarmapp.DecisionNotifier
}

// NewMultiNotifier constructs a MultiNotifier.
func NewMultiNotifier(notifiers ...alarmapp.DecisionNotifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

// Notify forwards events to all notifiers.
func (m *MultiNotifier) Notify(ctx context.Context, event alarmapp.DecisionEvent) {
	if m == nil {
		return
	}
	for _, notifier := range m.notifiers {
		if notifier != nil {
			notifier.Notify(ctx, event)
		}
	}
}
