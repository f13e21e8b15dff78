package cli

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daygrid/internal/layout"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

func newEventsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "events",
		Aliases: []string{"event", "ev"},
		Short:   "Create, inspect and reschedule events",
	}
	cmd.AddCommand(newEventsListCmd(app))
	cmd.AddCommand(newEventsShowCmd(app))
	cmd.AddCommand(newEventsCreateCmd(app))
	cmd.AddCommand(newEventsEditCmd(app))
	cmd.AddCommand(newEventsDeleteCmd(app))
	cmd.AddCommand(newEventsMoveCmd(app))
	return cmd
}

func newEventsListCmd(app *App) *cobra.Command {
	var date, from, to, calendar string
	var days int
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events overlapping a range of days (default: today)",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			loc := location(loadConfigOrDefault())

			start, err := parseDay(firstNonEmpty(from, date), loc)
			if err != nil {
				return writeErr(cmd, err)
			}
			end := start.AddDate(0, 0, max(days, 1))
			if strings.TrimSpace(to) != "" {
				last, err := parseDay(to, loc)
				if err != nil {
					return writeErr(cmd, err)
				}
				end = last.AddDate(0, 0, 1)
			}
			if !end.After(start) {
				return writeErr(cmd, errors.New("--to must not be before --from"))
			}

			var evs []model.Event
			if all {
				evs = db.EventsBetween(start, end)
			} else {
				evs = db.VisibleEventsBetween(start, end)
			}
			if calendar = strings.TrimSpace(calendar); calendar != "" {
				c, ok := db.CalendarByLabel(calendar)
				if !ok {
					return writeErr(cmd, errNotFound("calendar", calendar))
				}
				filtered := evs[:0]
				for _, ev := range evs {
					if ev.CalendarID == c.ID {
						filtered = append(filtered, ev)
					}
				}
				evs = filtered
			}
			if evs == nil {
				evs = []model.Event{}
			}
			return writeOut(cmd, app, map[string]any{
				"data": evs,
				"meta": map[string]any{"from": start, "to": end, "count": len(evs)},
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "Day to list (YYYY-MM-DD|today|tomorrow)")
	cmd.Flags().StringVar(&from, "from", "", "First day of the range")
	cmd.Flags().StringVar(&to, "to", "", "Last day of the range (inclusive)")
	cmd.Flags().IntVar(&days, "days", 1, "Number of days when --to is not set")
	cmd.Flags().StringVar(&calendar, "calendar", "", "Only this calendar (id or label)")
	cmd.Flags().BoolVar(&all, "all", false, "Include events on hidden calendars")
	return cmd
}

func newEventsShowCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show <event-id>",
		Short: "Show an event and its recent history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			ev, ok := db.FindEvent(id)
			if !ok {
				return writeErr(cmd, errNotFound("event", id))
			}
			history, err := s.ReadChangesForEntity(id, limit)
			if err != nil {
				return writeErr(cmd, err)
			}
			var cal *model.Calendar
			if c, ok := db.FindCalendar(ev.CalendarID); ok {
				cal = c
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"event":    ev,
					"calendar": cal,
					"history":  history,
				},
			})
		},
	}
	cmd.Flags().IntVar(&limit, "history", 20, "Max history entries (0 = all)")
	return cmd
}

func newEventsCreateCmd(app *App) *cobra.Command {
	var title, description, calendar, color, date, start, end string
	var duration time.Duration
	var task bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an event",
		Example: strings.TrimSpace(`
  daygrid events create --title "Design review" --start 09:00 --end 10:00
  daygrid events create --title Focus --date tomorrow --start 14:00 --duration 90m --calendar Personal
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			loc := location(loadConfigOrDefault())
			day, err := parseDay(date, loc)
			if err != nil {
				return writeErr(cmd, err)
			}
			startAt, err := parseDateTime(start, day, loc)
			if err != nil {
				return writeErr(cmd, err)
			}
			var endAt time.Time
			switch {
			case strings.TrimSpace(end) != "":
				endAt, err = parseDateTime(end, layout.StartOfDay(startAt), loc)
				if err != nil {
					return writeErr(cmd, err)
				}
			default:
				endAt = startAt.Add(duration)
			}

			in := store.EventInput{
				CalendarID:  calendar,
				Title:       title,
				Description: description,
				Color:       color,
				Start:       startAt,
				End:         endAt,
			}
			if task {
				in.EntryType = model.EntryTypeTask
			}
			ev, err := s.CreateEvent(in)
			if err != nil {
				return writeErr(cmd, storeErr(err, calendar))
			}
			return writeOut(cmd, app, map[string]any{
				"data":   ev,
				"_hints": []string{"daygrid events show " + ev.ID, "daygrid day --date " + ev.Start.In(loc).Format("2006-01-02")},
			})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&calendar, "calendar", "", "Calendar id or label (default: current calendar)")
	cmd.Flags().StringVar(&color, "color", "", "Override the calendar color")
	cmd.Flags().StringVar(&date, "date", "today", "Day for HH:MM times")
	cmd.Flags().StringVar(&start, "start", "", "Start (HH:MM, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().StringVar(&end, "end", "", "End (same forms as --start)")
	cmd.Flags().DurationVar(&duration, "duration", time.Hour, "Duration when --end is not set")
	cmd.Flags().BoolVar(&task, "task", false, "Mark as a task entry")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newEventsEditCmd(app *App) *cobra.Command {
	var title, description, calendar, color, start, end string
	var task, event bool

	cmd := &cobra.Command{
		Use:   "edit <event-id>",
		Short: "Change fields of an event (only flags given are changed)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			cur, ok := db.FindEvent(id)
			if !ok {
				return writeErr(cmd, errNotFound("event", id))
			}
			loc := location(loadConfigOrDefault())
			flags := cmd.Flags()

			var p store.EventPatch
			if flags.Changed("title") {
				p.Title = &title
			}
			if flags.Changed("description") {
				p.Description = &description
			}
			if flags.Changed("calendar") {
				p.CalendarID = &calendar
			}
			if flags.Changed("color") {
				p.Color = &color
			}
			if flags.Changed("start") {
				t, err := parseDateTime(start, layout.StartOfDay(cur.Start.In(loc)), loc)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.Start = &t
			}
			if flags.Changed("end") {
				t, err := parseDateTime(end, layout.StartOfDay(cur.End.In(loc)), loc)
				if err != nil {
					return writeErr(cmd, err)
				}
				p.End = &t
			}
			switch {
			case task && event:
				return writeErr(cmd, errors.New("--task and --event are exclusive"))
			case task:
				et := model.EntryTypeTask
				p.EntryType = &et
			case event:
				et := model.EntryTypeEvent
				p.EntryType = &et
			}

			ev, err := s.UpdateEvent(id, p)
			if err != nil {
				return writeErr(cmd, storeErr(err, id))
			}
			return writeOut(cmd, app, map[string]any{"data": ev})
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Title")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().StringVar(&calendar, "calendar", "", "Calendar id or label")
	cmd.Flags().StringVar(&color, "color", "", "Color override (empty clears)")
	cmd.Flags().StringVar(&start, "start", "", "New start")
	cmd.Flags().StringVar(&end, "end", "", "New end")
	cmd.Flags().BoolVar(&task, "task", false, "Mark as a task")
	cmd.Flags().BoolVar(&event, "event", false, "Mark as a plain event")
	return cmd
}

func newEventsDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <event-id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			if err := s.DeleteEvent(id); err != nil {
				return writeErr(cmd, storeErr(err, id))
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": id, "deleted": true}})
		},
	}
}

func newEventsMoveCmd(app *App) *cobra.Command {
	var to string
	var by time.Duration

	cmd := &cobra.Command{
		Use:   "move <event-id>",
		Short: "Reschedule an event keeping its duration",
		Example: strings.TrimSpace(`
  daygrid events move evt-ab23cd45 --to 14:30
  daygrid events move evt-ab23cd45 --by -30m
`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			id := strings.TrimSpace(args[0])
			ev, ok := db.FindEvent(id)
			if !ok {
				return writeErr(cmd, errNotFound("event", id))
			}
			loc := location(loadConfigOrDefault())

			var start time.Time
			switch {
			case strings.TrimSpace(to) != "" && by != 0:
				return writeErr(cmd, errors.New("--to and --by are exclusive"))
			case strings.TrimSpace(to) != "":
				start, err = parseDateTime(to, layout.StartOfDay(ev.Start.In(loc)), loc)
				if err != nil {
					return writeErr(cmd, err)
				}
			case by != 0:
				start = ev.Start.Add(by)
			default:
				return writeErr(cmd, errors.New("missing --to or --by"))
			}

			moved, err := s.MoveEvent(model.Draft{ID: id, Start: start, End: start.Add(ev.End.Sub(ev.Start))})
			if err != nil {
				return writeErr(cmd, storeErr(err, id))
			}
			return writeOut(cmd, app, map[string]any{"data": moved})
		},
	}
	cmd.Flags().StringVar(&to, "to", "", "New start (HH:MM on the same day, YYYY-MM-DD HH:MM or RFC3339)")
	cmd.Flags().DurationVar(&by, "by", 0, "Shift by a duration, e.g. 30m or -1h")
	return cmd
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
