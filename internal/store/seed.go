package store

import (
	"context"
	"time"

	"daygrid/internal/model"
)

func defaultCalendars(now time.Time) []model.Calendar {
	return []model.Calendar{
		{ID: DefaultCalendarID, Label: "Operations", Color: "#5b8def", Visible: true, CreatedAt: now},
		{ID: "team", Label: "Team", Color: "#ff7d9d", Visible: true, CreatedAt: now},
		{ID: "personal", Label: "Personal", Color: "#20d39c", Visible: true, CreatedAt: now},
	}
}

// SeedDefaults creates the default calendars when the workspace has none. It
// returns the loaded state either way.
func (s Store) SeedDefaults() (*DB, error) {
	db, err := s.Load()
	if err != nil {
		return nil, err
	}
	if len(db.Calendars) > 0 {
		return db, nil
	}
	return s.update(context.Background(), func(db *DB) (pendingChange, error) {
		db.Calendars = defaultCalendars(nowFunc())
		db.CurrentCalendarID = DefaultCalendarID
		return pendingChange{typ: ChangeCalendarCreate, entityID: DefaultCalendarID, payload: db.Calendars}, nil
	})
}

// SampleEvents builds a small day of overlapping events on day, handy for
// demos and the init --sample flag.
func SampleEvents(day time.Time) []EventInput {
	at := func(h, m int) time.Time {
		y, mo, d := day.Date()
		return time.Date(y, mo, d, h, m, 0, 0, day.Location())
	}
	return []EventInput{
		{CalendarID: DefaultCalendarID, Title: "Builder cohort sync", Start: at(8, 30), End: at(9, 15)},
		{CalendarID: "team", Title: "Design review", Start: at(9, 0), End: at(10, 0)},
		{CalendarID: "personal", Title: "Coffee", Start: at(9, 30), End: at(10, 0)},
		{CalendarID: DefaultCalendarID, Title: "Instrumentation review", Start: at(11, 0), End: at(12, 0)},
		{CalendarID: "team", Title: "Pulse QA slot", Start: at(15, 30), End: at(16, 0), EntryType: model.EntryTypeTask},
		{CalendarID: "personal", Title: "Recap + journaling", Start: at(19, 0), End: at(19, 45)},
	}
}
