package publish

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"daygrid/internal/layout"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

type RenderOptions struct {
	// Location decides which calendar day is rendered and how times print.
	// Nil means the location of the requested day.
	Location *time.Location
	// Clock24 prints 15:04 instead of 3:04pm.
	Clock24 bool
}

// RenderDayMarkdown renders one day as a markdown agenda. Overlapping events
// note the column they occupy in the day grid.
func RenderDayMarkdown(db *store.DB, day time.Time, opt RenderOptions) (string, error) {
	if db == nil {
		return "", errors.New("missing db")
	}
	if opt.Location != nil {
		day = day.In(opt.Location)
	}
	dayStart := layout.StartOfDay(day)
	positioned := layout.LayoutDay(db.DayEvents(dayStart), layout.Options{DayStart: dayStart})

	var buf bytes.Buffer
	writeLn := func(s string) {
		buf.WriteString(s)
		buf.WriteString("\n")
	}

	writeLn("# " + dayStart.Format("Monday, January 2 2006"))
	writeLn("")
	if len(positioned) == 0 {
		writeLn("_No events._")
		return buf.String(), nil
	}

	busiest := 1
	for _, p := range positioned {
		if p.ColumnCount > busiest {
			busiest = p.ColumnCount
		}
	}
	summary := fmt.Sprintf("%d %s", len(positioned), plural(len(positioned), "event", "events"))
	if busiest > 1 {
		summary += fmt.Sprintf(", up to %d side by side", busiest)
	}
	writeLn(summary)
	writeLn("")

	for _, p := range positioned {
		line := fmt.Sprintf("- **%s–%s** %s", clock(p.Start, dayStart.Location(), opt.Clock24), clock(p.End, dayStart.Location(), opt.Clock24), mdEscape(p.Title))
		if c, ok := db.FindCalendar(p.CalendarID); ok {
			line += " · " + mdEscape(c.Label)
		}
		if p.EntryType == model.EntryTypeTask {
			line += " · task"
		}
		if p.ColumnCount > 1 {
			line += fmt.Sprintf(" _(column %d of %d", p.Column+1, p.ColumnCount)
			if p.ColumnSpan > 1 {
				line += fmt.Sprintf(", spans %d", p.ColumnSpan)
			}
			line += ")_"
		}
		writeLn(line)
		if desc := strings.TrimSpace(p.Description); desc != "" {
			for _, l := range strings.Split(desc, "\n") {
				writeLn("  " + strings.TrimRight(l, " "))
			}
		}
	}
	return buf.String(), nil
}

// RenderWeekMarkdown renders the seven days of the week containing anchor.
func RenderWeekMarkdown(db *store.DB, anchor time.Time, weekStart time.Weekday, opt RenderOptions) (string, error) {
	if opt.Location != nil {
		anchor = anchor.In(opt.Location)
	}
	first := layout.StartOfWeek(anchor, weekStart)
	parts := make([]string, 0, layout.DaysInWeek)
	for i := 0; i < layout.DaysInWeek; i++ {
		md, err := RenderDayMarkdown(db, first.AddDate(0, 0, i), opt)
		if err != nil {
			return "", err
		}
		// Demote day headings under a single week heading.
		parts = append(parts, "#"+md)
	}
	return "# Week of " + first.Format("January 2 2006") + "\n\n" + strings.Join(parts, "\n"), nil
}

func clock(t time.Time, loc *time.Location, h24 bool) string {
	t = t.In(loc)
	if h24 {
		return t.Format("15:04")
	}
	return strings.ToLower(t.Format("3:04PM"))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

var mdEscaper = strings.NewReplacer(`*`, `\*`, `_`, `\_`, "`", "\\`", `[`, `\[`, `]`, `\]`)

func mdEscape(s string) string {
	return mdEscaper.Replace(strings.TrimSpace(s))
}
