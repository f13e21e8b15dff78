package cli

import (
	"testing"
	"time"

	"daygrid/internal/store"
)

func withNow(t *testing.T, now time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return now }
	t.Cleanup(func() { nowFunc = prev })
}

func TestParseDay(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*3600)
	// 23:30 UTC is already the 17th at UTC+2.
	withNow(t, time.Date(2026, 3, 16, 23, 30, 0, 0, time.UTC))

	tests := []struct {
		in   string
		want time.Time
	}{
		{"", time.Date(2026, 3, 17, 0, 0, 0, 0, loc)},
		{"today", time.Date(2026, 3, 17, 0, 0, 0, 0, loc)},
		{"Tomorrow", time.Date(2026, 3, 18, 0, 0, 0, 0, loc)},
		{"yesterday", time.Date(2026, 3, 16, 0, 0, 0, 0, loc)},
		{" 2026-01-05 ", time.Date(2026, 1, 5, 0, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseDay(tt.in, loc)
		if err != nil {
			t.Fatalf("parseDay(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseDay(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"2026-1-5", "next week", "2026-13-01"} {
		if _, err := parseDay(bad, loc); err == nil {
			t.Fatalf("parseDay(%q): expected error", bad)
		}
	}
}

func TestParseDateTime(t *testing.T) {
	loc := time.UTC
	day := time.Date(2026, 3, 16, 0, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"9:05", time.Date(2026, 3, 16, 9, 5, 0, 0, loc)},
		{"23:59", time.Date(2026, 3, 16, 23, 59, 0, 0, loc)},
		{"2026-03-20 14:30", time.Date(2026, 3, 20, 14, 30, 0, 0, loc)},
		{"2026-03-20T14:30:15", time.Date(2026, 3, 20, 14, 30, 0, 0, loc)},
		{"2026-03-20T14:30:00+02:00", time.Date(2026, 3, 20, 12, 30, 0, 0, loc)},
	}
	for _, tt := range tests {
		got, err := parseDateTime(tt.in, day, loc)
		if err != nil {
			t.Fatalf("parseDateTime(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Fatalf("parseDateTime(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	for _, bad := range []string{"", "24:00", "12:60", "noon"} {
		if _, err := parseDateTime(bad, day, loc); err == nil {
			t.Fatalf("parseDateTime(%q): expected error", bad)
		}
	}
}

func TestSetConfigValue(t *testing.T) {
	cfg := &store.GlobalConfig{}
	if err := setConfigValue(cfg, "snapMinutes", "30"); err != nil || cfg.SnapMinutes != 30 {
		t.Fatalf("snapMinutes: err=%v cfg=%+v", err, cfg)
	}
	if err := setConfigValue(cfg, "rowsPerHour", "2"); err != nil || cfg.TUI == nil || cfg.TUI.RowsPerHour != 2 {
		t.Fatalf("rowsPerHour: err=%v", err)
	}
	if err := setConfigValue(cfg, "timezone", "Mars/Olympus"); err == nil {
		t.Fatalf("expected bad timezone error")
	}
	if err := setConfigValue(cfg, "hourHeight", "-4"); err == nil {
		t.Fatalf("expected negative hourHeight error")
	}
}
