package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

func newCalendarsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "calendars",
		Aliases: []string{"calendar", "cal"},
		Short:   "Calendars (visibility controls which events are laid out)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List calendars",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			counts := map[string]int{}
			for _, ev := range db.Events {
				counts[ev.CalendarID]++
			}
			out := make([]map[string]any, 0, len(db.Calendars))
			for _, c := range db.Calendars {
				out = append(out, map[string]any{
					"id":      c.ID,
					"label":   c.Label,
					"color":   c.Color,
					"visible": c.Visible,
					"events":  counts[c.ID],
					"current": c.ID == db.CurrentCalendarID,
				})
			}
			return writeOut(cmd, app, map[string]any{"data": out})
		},
	})

	var color string
	createCmd := &cobra.Command{
		Use:   "create <label>",
		Short: "Create a calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			c, err := s.CreateCalendar(strings.TrimSpace(args[0]), strings.TrimSpace(color))
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": c})
		},
	}
	createCmd.Flags().StringVar(&color, "color", "", "Hex color, e.g. #5b8def")
	cmd.AddCommand(createCmd)

	setVisible := func(use, short string, visible bool) *cobra.Command {
		return &cobra.Command{
			Use:   use + " <calendar-id|label>",
			Short: short,
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				_, s, err := loadDB(app)
				if err != nil {
					return writeErr(cmd, err)
				}
				c, err := s.SetCalendarVisible(args[0], visible)
				if err != nil {
					return writeErr(cmd, storeErr(err, args[0]))
				}
				return writeOut(cmd, app, map[string]any{"data": c})
			},
		}
	}
	cmd.AddCommand(setVisible("show", "Make a calendar's events visible", true))
	cmd.AddCommand(setVisible("hide", "Hide a calendar's events from layouts", false))

	return cmd
}
