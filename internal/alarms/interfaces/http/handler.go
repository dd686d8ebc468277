package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	alarms "alarm-cloud/internal/alarms/domain"
	"alarm-cloud/internal/alarms/interfaces/export"
)

const (
	timeLayout   = time.RFC3339
	defaultLimit = 10
	maxLimit     = 500
)

// Queries is the read side of the alarm service.
type Queries interface {
	Evaluate(ctx context.Context, alarmID string) (alarms.EligibilityResult, error)
	EvaluateAt(ctx context.Context, alarmID string, ref time.Time) (alarms.EligibilityResult, error)
	NextOccurrence(ctx context.Context, alarmID string) (time.Time, bool, error)
	Upcoming(ctx context.Context, alarmID string, limit int) (*alarms.Alarm, []alarms.Occurrence, error)
	HorizonDays() int
}

// Handler provides read-only alarm HTTP endpoints.
type Handler struct {
	service Queries
	now     func() time.Time
}

// NewHandler constructs a handler.
func NewHandler(service Queries) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alarms handler: nil service")
	}
	return &Handler{service: service, now: func() time.Time { return time.Now().UTC() }}, nil
}

// ServeHTTP handles /api/v1/alarms/{id}/{eligibility|next|occurrences}.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alarms/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[0] == "" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	id := parts[0]
	switch parts[1] {
	case "eligibility":
		h.handleEligibility(w, r, id)
	case "next":
		h.handleNext(w, r, id)
	case "occurrences":
		h.handleOccurrences(w, r, id)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type overrideDTO struct {
	Kind         string `json:"kind"`
	DelayMinutes int    `json:"delay_minutes,omitempty"`
	SourceKind   string `json:"source_kind,omitempty"`
	SourceID     string `json:"source_id,omitempty"`
}

type eligibilityDTO struct {
	AlarmID         string      `json:"alarm_id"`
	CanTrigger      bool        `json:"can_trigger"`
	Reason          string      `json:"reason"`
	AdjustedInstant string      `json:"adjusted_instant,omitempty"`
	ScheduleID      string      `json:"schedule_id,omitempty"`
	Date            string      `json:"date,omitempty"`
	Override        overrideDTO `json:"override"`
}

type nextDTO struct {
	AlarmID string `json:"alarm_id"`
	Found   bool   `json:"found"`
	Next    string `json:"next,omitempty"`
}

type occurrenceDTO struct {
	Instant    string      `json:"instant"`
	ScheduleID string      `json:"schedule_id"`
	Date       string      `json:"date"`
	Override   overrideDTO `json:"override"`
}

func (h *Handler) handleEligibility(w http.ResponseWriter, r *http.Request, id string) {
	var (
		result alarms.EligibilityResult
		err    error
	)
	if r.URL.Query().Get("at") != "" {
		at, perr := parseTimeQuery(r, "at")
		if perr != nil {
			http.Error(w, perr.Error(), http.StatusBadRequest)
			return
		}
		result, err = h.service.EvaluateAt(r.Context(), id, at)
	} else {
		result, err = h.service.Evaluate(r.Context(), id)
	}
	if err != nil {
		respondError(w, err)
		return
	}
	dto := eligibilityDTO{
		AlarmID:    id,
		CanTrigger: result.CanTrigger,
		Reason:     string(result.Reason),
		ScheduleID: result.ScheduleID,
		Override:   toOverrideDTO(result.Override),
	}
	if !result.AdjustedInstant.IsZero() {
		dto.AdjustedInstant = result.AdjustedInstant.UTC().Format(timeLayout)
	}
	if !result.Date.IsZero() {
		dto.Date = result.Date.String()
	}
	writeJSON(w, dto)
}

func (h *Handler) handleNext(w http.ResponseWriter, r *http.Request, id string) {
	next, ok, err := h.service.NextOccurrence(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	dto := nextDTO{AlarmID: id, Found: ok}
	if ok {
		dto.Next = next.UTC().Format(timeLayout)
	}
	writeJSON(w, dto)
}

func (h *Handler) handleOccurrences(w http.ResponseWriter, r *http.Request, id string) {
	limit := defaultLimit
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 || parsed > maxLimit {
			http.Error(w, "limit must be between 1 and 500", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	format := strings.ToLower(r.URL.Query().Get("format"))

	alarm, occurrences, err := h.service.Upcoming(r.Context(), id, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	switch format {
	case "", "json":
		list := make([]occurrenceDTO, 0, len(occurrences))
		for _, occ := range occurrences {
			list = append(list, occurrenceDTO{
				Instant:    occ.Instant.UTC().Format(timeLayout),
				ScheduleID: occ.ScheduleID,
				Date:       occ.Date.String(),
				Override:   toOverrideDTO(occ.Override),
			})
		}
		writeJSON(w, list)
	case export.FormatPDF, export.FormatXLSX:
		now := h.now()
		data, err := export.Build(format, export.Report{
			Alarm:       *alarm,
			From:        now,
			HorizonDays: h.service.HorizonDays(),
			Occurrences: occurrences,
			GeneratedAt: now,
		})
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		contentType := "application/pdf"
		if format == export.FormatXLSX {
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", "attachment; filename=\"alarm-"+alarm.ID+"-occurrences."+format+"\"")
		_, _ = w.Write(data)
	default:
		http.Error(w, "format must be json, pdf or xlsx", http.StatusBadRequest)
	}
}

func toOverrideDTO(resolution alarms.OverrideResolution) overrideDTO {
	dto := overrideDTO{
		Kind:       string(resolution.Kind()),
		SourceKind: string(resolution.Source.Kind),
		SourceID:   resolution.Source.ID,
	}
	if delay, ok := resolution.Action.(alarms.Delay); ok {
		dto.DelayMinutes = delay.Minutes()
	}
	return dto
}

func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alarms.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, alarms.ErrInvalidTimeZone),
		errors.Is(err, alarms.ErrInvalidRecurrenceRule),
		errors.Is(err, alarms.ErrInvalidTimeOfDay):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
