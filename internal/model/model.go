package model

import "time"

type EntryType string

const (
	EntryTypeEvent EntryType = "event"
	EntryTypeTask  EntryType = "task"
)

type Calendar struct {
	ID        string    `json:"id"`
	Label     string    `json:"label"`
	Color     string    `json:"color,omitempty"`
	Visible   bool      `json:"visible"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a single interval on a calendar. Only ID, Start and End matter to the
// day layout; everything else is carried through untouched.
type Event struct {
	ID          string    `json:"id"`
	CalendarID  string    `json:"calendarId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	EntryType   EntryType `json:"entryType,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`

	// Imported occurrences remember where they came from so re-imports replace them.
	Source string `json:"source,omitempty"`
	UID    string `json:"uid,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Duration returns End-Start, or zero for inverted intervals.
func (e Event) Duration() time.Duration {
	if !e.End.After(e.Start) {
		return 0
	}
	return e.End.Sub(e.Start)
}

// Overlaps reports whether the half-open intervals of a and b intersect.
func (e Event) Overlaps(o Event) bool {
	return e.Start.Before(o.End) && o.Start.Before(e.End)
}

// Draft is an uncommitted candidate interval produced while an event is dragged.
type Draft struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Change is one entry of the store's append-only history.
type Change struct {
	ID       string    `json:"id"`
	TS       time.Time `json:"ts"`
	Type     string    `json:"type"`
	EntityID string    `json:"entityId"`
	Payload  any       `json:"payload"`
}
