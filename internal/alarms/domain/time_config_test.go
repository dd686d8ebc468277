package alarms

import (
	"errors"
	"testing"
	"time"
)

func TestCalendarDateArithmetic(t *testing.T) {
	d, err := ParseCalendarDate("2028-02-28")
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	if got := d.AddDays(1).String(); got != "2028-02-29" {
		t.Fatalf("leap day: got %s", got)
	}
	if got := d.AddDays(2).String(); got != "2028-03-01" {
		t.Fatalf("month rollover: got %s", got)
	}
	if got := NewCalendarDate(2026, time.December, 31).AddDays(1).String(); got != "2027-01-01" {
		t.Fatalf("year rollover: got %s", got)
	}
	if got := NewCalendarDate(2026, time.March, 9).Weekday(); got != time.Monday {
		t.Fatalf("weekday: got %s", got)
	}
	a := NewCalendarDate(2026, time.March, 9)
	b := NewCalendarDate(2026, time.April, 1)
	if !a.Before(b) || !b.After(a) || a.Compare(a) != 0 {
		t.Fatalf("compare mismatch: %s vs %s", a, b)
	}
	if _, err := ParseCalendarDate("2026-13-01"); !errors.Is(err, ErrInvalidDate) {
		t.Fatalf("expected ErrInvalidDate, got %v", err)
	}
}

func TestDateOfFollowsZone(t *testing.T) {
	ref := time.Date(2026, time.March, 10, 23, 30, 0, 0, time.UTC)
	tokyo, err := LoadZone("Asia/Tokyo")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	if got := DateOf(ref, tokyo).String(); got != "2026-03-11" {
		t.Fatalf("tokyo date: got %s", got)
	}
	if got := DateOf(ref, time.UTC).String(); got != "2026-03-10" {
		t.Fatalf("utc date: got %s", got)
	}
}

func TestTimeConfigurationResolve(t *testing.T) {
	date := NewCalendarDate(2026, time.March, 10)
	tests := []struct {
		name  string
		clock string
		zone  string
		want  time.Time
	}{
		{name: "utc", clock: "07:00", zone: "UTC", want: time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)},
		{name: "half hour offset", clock: "07:00", zone: "Asia/Kolkata", want: time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)},
		{name: "quarter hour offset", clock: "07:00", zone: "Asia/Kathmandu", want: time.Date(2026, 3, 10, 1, 15, 0, 0, time.UTC)},
		{name: "seconds", clock: "07:00:30", zone: "UTC", want: time.Date(2026, 3, 10, 7, 0, 30, 0, time.UTC)},
		{name: "windows zone id", clock: "07:00", zone: "India Standard Time", want: time.Date(2026, 3, 10, 1, 30, 0, 0, time.UTC)},
		{name: "previous utc day", clock: "05:00", zone: "Pacific/Auckland", want: time.Date(2026, 3, 9, 16, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseTimeConfiguration(tt.clock, tt.zone)
			if err != nil {
				t.Fatalf("parse time configuration: %v", err)
			}
			got := cfg.Resolve(date)
			if !got.Equal(tt.want) {
				t.Fatalf("resolve: got %s want %s", got, tt.want)
			}
			if got.Location() != time.UTC {
				t.Fatalf("expected UTC instant, got %s", got.Location())
			}
		})
	}
}

func TestTimeConfigurationAcrossDST(t *testing.T) {
	cfg := MustTimeConfiguration("07:00", "America/New_York")
	before := cfg.Resolve(NewCalendarDate(2026, time.March, 7))
	after := cfg.Resolve(NewCalendarDate(2026, time.March, 8))
	if want := time.Date(2026, 3, 7, 12, 0, 0, 0, time.UTC); !before.Equal(want) {
		t.Fatalf("EST resolve: got %s want %s", before, want)
	}
	if want := time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC); !after.Equal(want) {
		t.Fatalf("EDT resolve: got %s want %s", after, want)
	}
}

func TestTimeConfigurationRejectsInvalidInput(t *testing.T) {
	for _, zone := range []string{"", "Local", "Mars/Olympus_Mons", "Not A Windows Zone"} {
		if _, err := NewTimeConfiguration(7, 0, 0, zone); !errors.Is(err, ErrInvalidTimeZone) {
			t.Fatalf("zone %q: expected ErrInvalidTimeZone, got %v", zone, err)
		}
	}
	for _, clock := range []string{"24:00", "07:60", "07", "7:00:00:00", "ab:cd"} {
		if _, err := ParseTimeConfiguration(clock, "UTC"); !errors.Is(err, ErrInvalidTimeOfDay) {
			t.Fatalf("clock %q: expected ErrInvalidTimeOfDay, got %v", clock, err)
		}
	}
	var zero TimeConfiguration
	if zero.Valid() {
		t.Fatalf("zero configuration must be invalid")
	}
}
