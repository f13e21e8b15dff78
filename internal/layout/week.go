package layout

import (
	"time"

	"daygrid/internal/model"
)

const DaysInWeek = 7

// Day is one column of a week view.
type Day struct {
	Date   time.Time    `json:"date"`
	Events []Positioned `json:"events"`
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the most recent weekStart on or before t.
func StartOfWeek(t time.Time, weekStart time.Weekday) time.Time {
	day := StartOfDay(t)
	diff := (int(day.Weekday()) - int(weekStart) + DaysInWeek) % DaysInWeek
	return day.AddDate(0, 0, -diff)
}

func SameDay(a, b time.Time) bool {
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// EventsOnDay keeps events whose start falls on day, in input order.
func EventsOnDay(events []model.Event, day time.Time) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, ev := range events {
		if SameDay(day, ev.Start) {
			out = append(out, ev)
		}
	}
	return out
}

// LayoutWeek lays out the seven days of the week containing anchor. Each day is
// an independent layout anchored at its own midnight.
func LayoutWeek(events []model.Event, anchor time.Time, weekStart time.Weekday, opts Options) []Day {
	first := StartOfWeek(anchor, weekStart)
	days := make([]Day, 0, DaysInWeek)
	for i := 0; i < DaysInWeek; i++ {
		date := first.AddDate(0, 0, i)
		dayOpts := opts
		dayOpts.DayStart = date
		days = append(days, Day{
			Date:   date,
			Events: LayoutDay(EventsOnDay(events, date), dayOpts),
		})
	}
	return days
}

// ApplyDraft returns a copy of events with the draft's interval substituted for
// the matching event. A nil draft or unknown id returns an unchanged copy.
func ApplyDraft(events []model.Event, draft *model.Draft) []model.Event {
	out := make([]model.Event, len(events))
	copy(out, events)
	if draft == nil {
		return out
	}
	for i := range out {
		if out[i].ID == draft.ID {
			out[i].Start = draft.Start
			out[i].End = draft.End
		}
	}
	return out
}

// NowOffset is the vertical offset of the current-time line.
func NowOffset(now time.Time, hourHeight float64) float64 {
	minutes := float64(now.Hour()*60+now.Minute()) + float64(now.Second())/60
	offset := minutes / 60 * hourHeight
	if offset < 0 {
		return 0
	}
	if limit := 24 * hourHeight; offset > limit {
		return limit
	}
	return offset
}

// ScrollTarget is where a day view should scroll on open: one hour above the
// earliest event, never negative.
func ScrollTarget(positioned []Positioned, hourHeight float64) float64 {
	if len(positioned) == 0 {
		return 0
	}
	minTop := positioned[0].Top
	for _, p := range positioned[1:] {
		if p.Top < minTop {
			minTop = p.Top
		}
	}
	target := minTop - hourHeight
	if target < 0 {
		return 0
	}
	return target
}
