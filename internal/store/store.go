package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"daygrid/internal/model"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrCalendarNotFound = errors.New("calendar not found")
	ErrInvalidInterval  = errors.New("event end must be after start")
)

const DefaultCalendarID = "default"

type DB struct {
	Version           int              `json:"version"`
	CurrentCalendarID string           `json:"currentCalendarId,omitempty"`
	Calendars         []model.Calendar `json:"calendars"`
	Events            []model.Event    `json:"events"`

	// Derived time index; rebuilt lazily after any mutation. Not persisted.
	idx *Index `json:"-"`
}

type Store struct {
	Dir string
}

// WorkspaceDir returns ~/.daygrid/workspaces/<name> (honouring DAYGRID_CONFIG_DIR).
func WorkspaceDir(name string) (string, error) {
	name, err := NormalizeWorkspaceName(name)
	if err != nil {
		return "", err
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "workspaces", name), nil
}

func (s Store) Ensure() error {
	return os.MkdirAll(s.Dir, 0o755)
}

// Exists reports whether the workspace has been initialised.
func (s Store) Exists() bool {
	_, err := os.Stat(s.sqlitePath())
	return err == nil
}

func (s Store) Load() (*DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	return s.LoadSQLite(context.Background())
}

func (s Store) Save(db *DB) error {
	if err := s.Ensure(); err != nil {
		return err
	}
	return s.SaveSQLite(context.Background(), db)
}

func (db *DB) FindEvent(id string) (*model.Event, bool) {
	id = strings.TrimSpace(id)
	for i := range db.Events {
		if db.Events[i].ID == id {
			return &db.Events[i], true
		}
	}
	return nil, false
}

func (db *DB) FindCalendar(id string) (*model.Calendar, bool) {
	id = strings.TrimSpace(id)
	for i := range db.Calendars {
		if db.Calendars[i].ID == id {
			return &db.Calendars[i], true
		}
	}
	return nil, false
}

// CalendarByLabel matches case-insensitively, falling back to id.
func (db *DB) CalendarByLabel(label string) (*model.Calendar, bool) {
	label = strings.TrimSpace(label)
	for i := range db.Calendars {
		if strings.EqualFold(db.Calendars[i].Label, label) {
			return &db.Calendars[i], true
		}
	}
	return db.FindCalendar(label)
}

// VisibleEvents drops events whose calendar is hidden. Events on unknown
// calendars stay visible.
func (db *DB) VisibleEvents() []model.Event {
	hidden := map[string]bool{}
	for _, c := range db.Calendars {
		if !c.Visible {
			hidden[c.ID] = true
		}
	}
	out := make([]model.Event, 0, len(db.Events))
	for _, ev := range db.Events {
		if hidden[ev.CalendarID] {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// EventsBetween returns events overlapping [start, end), ordered by start.
func (db *DB) EventsBetween(start, end time.Time) []model.Event {
	if db.idx == nil {
		db.idx = NewIndex(db.Events)
	}
	return db.idx.Between(start, end)
}

// VisibleEventsBetween is EventsBetween restricted to visible calendars.
func (db *DB) VisibleEventsBetween(start, end time.Time) []model.Event {
	hidden := map[string]bool{}
	for _, c := range db.Calendars {
		if !c.Visible {
			hidden[c.ID] = true
		}
	}
	all := db.EventsBetween(start, end)
	out := all[:0]
	for _, ev := range all {
		if !hidden[ev.CalendarID] {
			out = append(out, ev)
		}
	}
	return out
}

// DayEvents returns the visible events that start on the calendar day of day,
// in day's location. These are the events a day view lays out.
func (db *DB) DayEvents(day time.Time) []model.Event {
	y, m, d := day.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, day.Location())
	to := from.AddDate(0, 0, 1)
	all := db.VisibleEventsBetween(from, to)
	out := all[:0]
	for _, ev := range all {
		if !ev.Start.Before(from) {
			out = append(out, ev)
		}
	}
	return out
}

func (db *DB) invalidate() {
	db.idx = nil
}

func (db *DB) sortEvents() {
	sort.SliceStable(db.Events, func(i, j int) bool {
		a, b := db.Events[i], db.Events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})
}

func idExists(db *DB, id string) bool {
	if _, ok := db.FindEvent(id); ok {
		return true
	}
	_, ok := db.FindCalendar(id)
	return ok
}
