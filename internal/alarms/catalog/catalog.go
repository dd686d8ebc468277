// Package catalog loads a static holiday catalog and merges it into per-user override snapshots.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	alarmapp "alarm-cloud/internal/alarms/application"
	alarms "alarm-cloud/internal/alarms/domain"
)

type fileEntry struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Date      string `yaml:"date"`
	Recurring bool   `yaml:"recurring"`
	Country   string `yaml:"country"`
	State     string `yaml:"state"`
}

type file struct {
	Holidays []fileEntry `yaml:"holidays"`
}

// Load reads a catalog file.
func Load(path string) ([]alarms.Holiday, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("holiday catalog: %w", err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse decodes a YAML catalog of the form
//
//	holidays:
//	  - id: us-new-year
//	    name: New Year's Day
//	    date: 2000-01-01
//	    recurring: true
//	    country: US
//
// Ids must be unique and every entry needs a date and a country.
func Parse(r io.Reader) ([]alarms.Holiday, error) {
	var doc file
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("holiday catalog: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Holidays))
	out := make([]alarms.Holiday, 0, len(doc.Holidays))
	for i, entry := range doc.Holidays {
		if entry.ID == "" {
			return nil, fmt.Errorf("holiday catalog: entry %d: empty id", i)
		}
		if _, dup := seen[entry.ID]; dup {
			return nil, fmt.Errorf("holiday catalog: duplicate id %q", entry.ID)
		}
		seen[entry.ID] = struct{}{}
		if entry.Country == "" {
			return nil, fmt.Errorf("holiday catalog: %s: empty country", entry.ID)
		}
		date, err := alarms.ParseCalendarDate(entry.Date)
		if err != nil {
			return nil, fmt.Errorf("holiday catalog: %s: %w", entry.ID, err)
		}
		name := entry.Name
		if name == "" {
			name = entry.ID
		}
		out = append(out, alarms.Holiday{
			ID:                entry.ID,
			Name:              name,
			Date:              date,
			RecurringAnnually: entry.Recurring,
			Country:           entry.Country,
			State:             entry.State,
		})
	}
	return out, nil
}

// LocaleSource resolves the locale a user observes holidays for.
type LocaleSource interface {
	Locale(ctx context.Context, userID string) (alarms.Locale, error)
}

// OverrideRepository decorates another override repository with the static catalog.
// Catalog entries observed in the user's locale are added unless the base snapshot already
// holds a holiday with the same id.
type OverrideRepository struct {
	base     alarmapp.OverrideRepository
	holidays []alarms.Holiday
	locales  LocaleSource
}

// NewOverrideRepository constructs the decorator.
func NewOverrideRepository(base alarmapp.OverrideRepository, holidays []alarms.Holiday, locales LocaleSource) (*OverrideRepository, error) {
	if base == nil {
		return nil, errors.New("holiday catalog: nil override repository")
	}
	if locales == nil {
		return nil, errors.New("holiday catalog: nil locale source")
	}
	return &OverrideRepository{
		base:     base,
		holidays: append([]alarms.Holiday(nil), holidays...),
		locales:  locales,
	}, nil
}

// Load returns the base snapshot with the matching catalog holidays merged in date order.
func (r *OverrideRepository) Load(ctx context.Context, userID string) (alarms.Overrides, error) {
	overrides, err := r.base.Load(ctx, userID)
	if err != nil {
		return alarms.Overrides{}, err
	}
	if len(r.holidays) == 0 {
		return overrides, nil
	}
	locale, err := r.locales.Locale(ctx, userID)
	if err != nil {
		return alarms.Overrides{}, err
	}
	observed := alarms.FilterHolidays(r.holidays, locale.Country, locale.State)
	if len(observed) == 0 {
		return overrides, nil
	}

	known := make(map[string]struct{}, len(overrides.Holidays))
	for _, holiday := range overrides.Holidays {
		known[holiday.ID] = struct{}{}
	}
	merged := append([]alarms.Holiday(nil), overrides.Holidays...)
	for _, holiday := range observed {
		if _, ok := known[holiday.ID]; ok {
			continue
		}
		merged = append(merged, holiday)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	overrides.Holidays = merged
	return overrides, nil
}
