package notify

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	alarmapp "alarm-cloud/internal/alarms/application"
	alarms "alarm-cloud/internal/alarms/domain"
)

// Clock provides time for cooldown bookkeeping.
type Clock interface {
	Now() time.Time
}

type sendRecord struct {
	at   time.Time
	hash string
}

// Notifier renders trigger decisions and sends them via a channel.
type Notifier struct {
	channel      Channel
	template     *Template
	clock        Clock
	logger       *zap.Logger
	mu           sync.Mutex
	sent         map[string]sendRecord
	cooldown     time.Duration
	dedupeWindow time.Duration
	timeout      time.Duration
}

// Option configures the notifier.
type Option func(*Notifier)

// WithClock overrides the default clock.
func WithClock(clock Clock) Option {
	return func(n *Notifier) {
		if clock != nil {
			n.clock = clock
		}
	}
}

// WithLogger reports delivery failures.
func WithLogger(logger *zap.Logger) Option {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// WithRequestTimeout bounds a single delivery.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(n *Notifier) {
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

// WithCooldown sets a minimum interval between notifications for the same alarm.
func WithCooldown(interval time.Duration) Option {
	return func(n *Notifier) {
		if interval > 0 {
			n.cooldown = interval
		}
	}
}

// WithDedupeWindow suppresses identical notifications within the window.
func WithDedupeWindow(window time.Duration) Option {
	return func(n *Notifier) {
		if window > 0 {
			n.dedupeWindow = window
		}
	}
}

// NewNotifier constructs a channel notifier.
func NewNotifier(channel Channel, template *Template, opts ...Option) (*Notifier, error) {
	if channel == nil {
		return nil, errors.New("alarm notifier: nil channel")
	}
	if template == nil {
		defaultTemplate, err := NewTemplate("")
		if err != nil {
			return nil, err
		}
		template = defaultTemplate
	}
	n := &Notifier{
		channel:  channel,
		template: template,
		clock:    systemClock{},
		logger:   zap.NewNop(),
		sent:     make(map[string]sendRecord),
		timeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// Notify implements application.DecisionNotifier.
func (n *Notifier) Notify(ctx context.Context, event alarmapp.DecisionEvent) {
	if n == nil || n.channel == nil {
		return
	}
	content, err := n.template.Render(buildTemplateData(event))
	if err != nil {
		n.logger.Error("render notification failed", zap.String("alarm_id", event.Alarm.ID), zap.Error(err))
		return
	}
	if !n.shouldSend(event.Alarm.ID, content) {
		return
	}
	sendCtx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()
	if err := n.channel.Send(sendCtx, content); err != nil {
		n.logger.Error("send notification failed", zap.String("alarm_id", event.Alarm.ID), zap.Error(err))
		return
	}
	n.markSent(event.Alarm.ID, content)
}

func buildTemplateData(event alarmapp.DecisionEvent) TemplateData {
	name := event.Alarm.Name
	if name == "" {
		name = event.Alarm.ID
	}
	decision := event.Decision
	data := TemplateData{
		Alarm:      name,
		AlarmID:    event.Alarm.ID,
		UserID:     event.Alarm.UserID,
		ScheduleID: decision.ScheduleID,
		Reason:     string(decision.Reason),
		Event:      event.Type,
		EventLabel: eventLabel(event.Type),
	}
	if !decision.Date.IsZero() {
		data.Date = decision.Date.String()
	}
	if !decision.AdjustedInstant.IsZero() {
		data.FiresAt = decision.AdjustedInstant.UTC().Format(time.RFC3339)
	}
	if kind := decision.Override.Kind(); kind != alarms.OverrideNone {
		data.Override = overrideLabel(decision.Override)
		if decision.Override.Source.ID != "" {
			data.OverrideSource = string(decision.Override.Source.Kind) + " " + decision.Override.Source.ID
		}
	}
	return data
}

func overrideLabel(resolution alarms.OverrideResolution) string {
	if delay, ok := resolution.Action.(alarms.Delay); ok {
		return "delayed " + delay.Duration().String()
	}
	return string(resolution.Kind())
}

func eventLabel(event string) string {
	switch event {
	case alarmapp.EventTriggered:
		return "Triggered"
	default:
		return event
	}
}

func (n *Notifier) shouldSend(alarmID, content string) bool {
	if n.cooldown <= 0 && n.dedupeWindow <= 0 {
		return true
	}
	now := n.clock.Now().UTC()
	hash := hashContent(content)

	n.mu.Lock()
	record, ok := n.sent[alarmID]
	n.mu.Unlock()
	if !ok {
		return true
	}
	if n.cooldown > 0 && now.Sub(record.at) < n.cooldown {
		return false
	}
	if n.dedupeWindow > 0 && record.hash == hash && now.Sub(record.at) < n.dedupeWindow {
		return false
	}
	return true
}

func (n *Notifier) markSent(alarmID, content string) {
	n.mu.Lock()
	n.sent[alarmID] = sendRecord{
		at:   n.clock.Now().UTC(),
		hash: hashContent(content),
	}
	n.mu.Unlock()
}

func hashContent(content string) string {
	sum := sha1.Sum([]byte(content))
	return hex.EncodeToString(sum[:8])
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }
