package notify

import (
	"bytes"
	"errors"
	"text/template"
)

const DefaultTemplate = `[Alarm {{.EventLabel}}]
Alarm: {{.Alarm}}
User: {{.UserID}}
Schedule: {{.ScheduleID}}
Date: {{.Date}}
Fires At: {{.FiresAt}}
Reason: {{.Reason}}
{{ if .Override }}Override: {{.Override}}{{ if .OverrideSource }} ({{.OverrideSource}}){{ end }}
{{ end }}`

// TemplateData provides fields for rendering notification content.
type TemplateData struct {
	Alarm          string
	AlarmID        string
	UserID         string
	ScheduleID     string
	Date           string
	FiresAt        string
	Reason         string
	Override       string
	OverrideSource string
	Event          string
	EventLabel     string
}

// Template renders notification content.
type Template struct {
	tpl *template.Template
}

// NewTemplate parses a notification template, falling back to DefaultTemplate.
func NewTemplate(tpl string) (*Template, error) {
	if tpl == "" {
		tpl = DefaultTemplate
	}
	parsed, err := template.New("alarm-notification").Parse(tpl)
	if err != nil {
		return nil, err
	}
	return &Template{tpl: parsed}, nil
}

// Render applies the template to data.
func (t *Template) Render(data TemplateData) (string, error) {
	if t == nil || t.tpl == nil {
		return "", errors.New("alarm template: nil")
	}
	var buf bytes.Buffer
	if err := t.tpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
