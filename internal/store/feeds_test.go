package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadFeeds_MissingFileIsEmpty(t *testing.T) {
	t.Parallel()
	s := Store{Dir: t.TempDir()}
	f, err := s.LoadFeeds()
	if err != nil {
		t.Fatalf("LoadFeeds: %v", err)
	}
	if len(f.Feeds) != 0 || f.Refresh == "" || f.HorizonDays != 30 {
		t.Fatalf("expected normalized empty feeds, got %+v", f)
	}
}

func TestSaveFeeds_RoundTripYAML(t *testing.T) {
	t.Parallel()
	s := Store{Dir: t.TempDir()}
	in := &FeedsFile{
		Refresh: "0 * * * *",
		Feeds: []Feed{
			{Name: "Team", URL: "https://example.com/team.ics", Calendar: "team"},
			{ID: "holidays", URL: "/tmp/holidays.ics"},
		},
	}
	if err := s.SaveFeeds(in); err != nil {
		t.Fatalf("SaveFeeds: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(s.Dir, "feeds.yaml"))
	if err != nil {
		t.Fatalf("read feeds.yaml: %v", err)
	}
	if !strings.Contains(string(raw), "example.com/team.ics") || !strings.Contains(string(raw), "horizon_days:") {
		t.Fatalf("expected yaml keys, got:\n%s", raw)
	}

	got, err := s.LoadFeeds()
	if err != nil {
		t.Fatalf("LoadFeeds: %v", err)
	}
	if len(got.Feeds) != 2 || got.Refresh != "0 * * * *" {
		t.Fatalf("unexpected feeds %+v", got)
	}
	if got.Feeds[0].ID != "feed-1" {
		t.Fatalf("expected generated id, got %q", got.Feeds[0].ID)
	}
	if f, ok := got.Find("holidays"); !ok || f.Calendar != DefaultCalendarID {
		t.Fatalf("expected holidays to default to the default calendar, got %+v", f)
	}
}

func TestLoadFeeds_InvalidYAML(t *testing.T) {
	t.Parallel()
	s := Store{Dir: t.TempDir()}
	if err := os.WriteFile(filepath.Join(s.Dir, "feeds.yaml"), []byte("feeds: [\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := s.LoadFeeds(); err == nil {
		t.Fatalf("expected parse error")
	}
}
