package cli

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"daygrid/internal/layout"
)

var (
	reDateOnly = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDateTime = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2})(?::\d{2})?$`)
	reClock    = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
)

var nowFunc = time.Now

// parseDay parses a calendar day in loc:
// - "" or "today", "tomorrow", "yesterday"
// - YYYY-MM-DD
func parseDay(s string, loc *time.Location) (time.Time, error) {
	today := layout.StartOfDay(nowFunc().In(loc))
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "yesterday":
		return today.AddDate(0, 0, -1), nil
	}
	s = strings.TrimSpace(s)
	if !reDateOnly.MatchString(s) {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD, today, tomorrow or yesterday)", s)
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}

// parseDateTime parses:
// - YYYY-MM-DD HH:MM (in loc)
// - HH:MM (on day, in loc)
// - RFC3339 / RFC3339Nano (timezone-aware)
func parseDateTime(s string, day time.Time, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty datetime")
	}
	if m := reDateTime.FindStringSubmatch(s); m != nil {
		return time.ParseInLocation("2006-01-02 15:04", m[1]+" "+m[2], loc)
	}
	if m := reClock.FindStringSubmatch(s); m != nil {
		var h, min int
		fmt.Sscanf(m[1], "%d", &h)
		fmt.Sscanf(m[2], "%d", &min)
		if h > 23 || min > 59 {
			return time.Time{}, fmt.Errorf("invalid time %q", s)
		}
		y, mo, d := day.In(loc).Date()
		return time.Date(y, mo, d, h, min, 0, 0, loc), nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q (expected YYYY-MM-DD HH:MM, HH:MM, or RFC3339)", s)
}
