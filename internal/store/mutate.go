package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"daygrid/internal/model"
)

var nowFunc = func() time.Time { return time.Now().UTC() }

type EventInput struct {
	CalendarID  string
	Title       string
	Description string
	Color       string
	EntryType   model.EntryType
	Start       time.Time
	End         time.Time
}

// EventPatch changes only the non-nil fields.
type EventPatch struct {
	CalendarID  *string
	Title       *string
	Description *string
	Color       *string
	EntryType   *model.EntryType
	Start       *time.Time
	End         *time.Time
}

func validInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidInterval
	}
	return nil
}

func (db *DB) resolveCalendarID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		id = strings.TrimSpace(db.CurrentCalendarID)
	}
	if id == "" {
		id = DefaultCalendarID
	}
	if c, ok := db.CalendarByLabel(id); ok {
		return c.ID, nil
	}
	return "", fmt.Errorf("%w: %s", ErrCalendarNotFound, id)
}

func (s Store) CreateEvent(in EventInput) (model.Event, error) {
	var created model.Event
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		title := strings.TrimSpace(in.Title)
		if title == "" {
			return pendingChange{}, fmt.Errorf("missing title")
		}
		if err := validInterval(in.Start, in.End); err != nil {
			return pendingChange{}, err
		}
		calID, err := db.resolveCalendarID(in.CalendarID)
		if err != nil {
			return pendingChange{}, err
		}
		id, err := NextID(db, eventIDPrefix)
		if err != nil {
			return pendingChange{}, err
		}
		entryType := in.EntryType
		if entryType == "" {
			entryType = model.EntryTypeEvent
		}
		now := nowFunc()
		created = model.Event{
			ID:          id,
			CalendarID:  calID,
			Title:       title,
			Description: strings.TrimSpace(in.Description),
			Color:       strings.TrimSpace(in.Color),
			EntryType:   entryType,
			Start:       in.Start,
			End:         in.End,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		db.Events = append(db.Events, created)
		db.sortEvents()
		return pendingChange{typ: ChangeEventCreate, entityID: id, payload: created}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return created, nil
}

func (s Store) UpdateEvent(id string, p EventPatch) (model.Event, error) {
	var updated model.Event
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		ev, ok := db.FindEvent(id)
		if !ok {
			return pendingChange{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
		}
		next := *ev
		if p.CalendarID != nil {
			calID, err := db.resolveCalendarID(*p.CalendarID)
			if err != nil {
				return pendingChange{}, err
			}
			next.CalendarID = calID
		}
		if p.Title != nil {
			t := strings.TrimSpace(*p.Title)
			if t == "" {
				return pendingChange{}, fmt.Errorf("missing title")
			}
			next.Title = t
		}
		if p.Description != nil {
			next.Description = strings.TrimSpace(*p.Description)
		}
		if p.Color != nil {
			next.Color = strings.TrimSpace(*p.Color)
		}
		if p.EntryType != nil {
			next.EntryType = *p.EntryType
		}
		if p.Start != nil {
			next.Start = *p.Start
		}
		if p.End != nil {
			next.End = *p.End
		}
		if err := validInterval(next.Start, next.End); err != nil {
			return pendingChange{}, err
		}
		next.UpdatedAt = nowFunc()
		*ev = next
		updated = next
		db.sortEvents()
		return pendingChange{typ: ChangeEventUpdate, entityID: next.ID, payload: p.payload()}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return updated, nil
}

func (p EventPatch) payload() map[string]any {
	out := map[string]any{}
	if p.CalendarID != nil {
		out["calendarId"] = *p.CalendarID
	}
	if p.Title != nil {
		out["title"] = *p.Title
	}
	if p.Description != nil {
		out["description"] = *p.Description
	}
	if p.Color != nil {
		out["color"] = *p.Color
	}
	if p.EntryType != nil {
		out["entryType"] = *p.EntryType
	}
	if p.Start != nil {
		out["start"] = *p.Start
	}
	if p.End != nil {
		out["end"] = *p.End
	}
	return out
}

// MoveEvent applies a committed drag draft.
func (s Store) MoveEvent(d model.Draft) (model.Event, error) {
	var moved model.Event
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		ev, ok := db.FindEvent(d.ID)
		if !ok {
			return pendingChange{}, fmt.Errorf("%w: %s", ErrEventNotFound, d.ID)
		}
		if err := validInterval(d.Start, d.End); err != nil {
			return pendingChange{}, err
		}
		from := model.Draft{ID: ev.ID, Start: ev.Start, End: ev.End}
		ev.Start = d.Start
		ev.End = d.End
		ev.UpdatedAt = nowFunc()
		moved = *ev
		db.sortEvents()
		return pendingChange{
			typ:      ChangeEventMove,
			entityID: d.ID,
			payload:  map[string]any{"from": from, "to": d},
		}, nil
	})
	if err != nil {
		return model.Event{}, err
	}
	return moved, nil
}

func (s Store) DeleteEvent(id string) error {
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		for i := range db.Events {
			if db.Events[i].ID != id {
				continue
			}
			gone := db.Events[i]
			db.Events = append(db.Events[:i], db.Events[i+1:]...)
			return pendingChange{typ: ChangeEventDelete, entityID: id, payload: gone}, nil
		}
		return pendingChange{}, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	})
	return err
}

func (s Store) CreateCalendar(label, color string) (model.Calendar, error) {
	var created model.Calendar
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		label = strings.TrimSpace(label)
		if label == "" {
			return pendingChange{}, fmt.Errorf("missing label")
		}
		if _, exists := db.CalendarByLabel(label); exists {
			return pendingChange{}, fmt.Errorf("calendar %q already exists", label)
		}
		id, err := NextID(db, calendarIDPrefix)
		if err != nil {
			return pendingChange{}, err
		}
		created = model.Calendar{
			ID:        id,
			Label:     label,
			Color:     strings.TrimSpace(color),
			Visible:   true,
			CreatedAt: nowFunc(),
		}
		db.Calendars = append(db.Calendars, created)
		return pendingChange{typ: ChangeCalendarCreate, entityID: id, payload: created}, nil
	})
	if err != nil {
		return model.Calendar{}, err
	}
	return created, nil
}

func (s Store) SetCalendarVisible(id string, visible bool) (model.Calendar, error) {
	var out model.Calendar
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		c, ok := db.CalendarByLabel(id)
		if !ok {
			return pendingChange{}, fmt.Errorf("%w: %s", ErrCalendarNotFound, id)
		}
		c.Visible = visible
		out = *c
		return pendingChange{
			typ:      ChangeCalendarVisibility,
			entityID: c.ID,
			payload:  map[string]any{"visible": visible},
		}, nil
	})
	if err != nil {
		return model.Calendar{}, err
	}
	return out, nil
}

type ImportResult struct {
	CalendarID string `json:"calendarId"`
	Source     string `json:"source"`
	Added      int    `json:"added"`
	Updated    int    `json:"updated"`
	Removed    int    `json:"removed"`
}

// UpsertImported replaces the events previously imported from source into
// calendarID with events. Ids are expected to be stable across imports.
func (s Store) UpsertImported(calendarID, source string, events []model.Event) (ImportResult, error) {
	res := ImportResult{Source: strings.TrimSpace(source)}
	_, err := s.update(context.Background(), func(db *DB) (pendingChange, error) {
		calID, err := db.resolveCalendarID(calendarID)
		if err != nil {
			return pendingChange{}, err
		}
		res.CalendarID = calID

		previous := map[string]model.Event{}
		kept := db.Events[:0]
		for _, ev := range db.Events {
			if ev.CalendarID == calID && ev.Source == res.Source {
				previous[ev.ID] = ev
				continue
			}
			kept = append(kept, ev)
		}
		db.Events = kept

		now := nowFunc()
		seen := map[string]bool{}
		for _, ev := range events {
			if seen[ev.ID] || validInterval(ev.Start, ev.End) != nil {
				continue
			}
			seen[ev.ID] = true
			ev.CalendarID = calID
			ev.Source = res.Source
			if ev.EntryType == "" {
				ev.EntryType = model.EntryTypeEvent
			}
			if prev, ok := previous[ev.ID]; ok {
				ev.CreatedAt = prev.CreatedAt
				if prev.Start.Equal(ev.Start) && prev.End.Equal(ev.End) && prev.Title == ev.Title && prev.Description == ev.Description {
					ev.UpdatedAt = prev.UpdatedAt
				} else {
					ev.UpdatedAt = now
					res.Updated++
				}
			} else {
				ev.CreatedAt = now
				ev.UpdatedAt = now
				res.Added++
			}
			db.Events = append(db.Events, ev)
		}
		for id := range previous {
			if !seen[id] {
				res.Removed++
			}
		}
		db.sortEvents()
		return pendingChange{typ: ChangeICSImport, entityID: calID, payload: res}, nil
	})
	if err != nil {
		return ImportResult{}, err
	}
	return res, nil
}
