package ics

import (
	"github.com/google/uuid"

	"daygrid/internal/model"
)

// eventNamespace seeds the name-based UUIDs of imported occurrences.
var eventNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("daygrid:ics"))

// EventID is stable for a given source, UID and instance, so re-importing a
// feed updates events in place.
func EventID(o Occurrence) string {
	name := o.SourceID + "\n" + o.UID + "\n" + o.InstanceKey
	return "ics-" + uuid.NewSHA1(eventNamespace, []byte(name)).String()
}

func ToEvents(calendarID string, occ []Occurrence) []model.Event {
	out := make([]model.Event, 0, len(occ))
	for _, o := range occ {
		title := o.Summary
		if title == "" {
			title = "(untitled)"
		}
		desc := o.Description
		if o.Location != "" {
			if desc != "" {
				desc += "\n"
			}
			desc += "Location: " + o.Location
		}
		out = append(out, model.Event{
			ID:          EventID(o),
			CalendarID:  calendarID,
			Title:       title,
			Description: desc,
			EntryType:   model.EntryTypeEvent,
			Start:       o.Start,
			End:         o.End,
			UID:         o.UID,
		})
	}
	return out
}
