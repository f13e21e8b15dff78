package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/ics"
	"daygrid/internal/store"
)

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import events from other calendars",
	}

	var calendar, from string
	var days int
	var allDay bool
	icsCmd := &cobra.Command{
		Use:   "ics <file|url>",
		Short: "Import an ICS file or URL (recurrences expanded; re-importing replaces)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			loc := location(loadConfigOrDefault())
			start, err := parseDay(from, loc)
			if err != nil {
				return writeErr(cmd, err)
			}
			if days <= 0 {
				return writeErr(cmd, errors.New("--days must be positive"))
			}
			sc := ics.DefaultSyncConfig(s, start, days)
			sc.IncludeAllDay = allDay

			src := strings.TrimSpace(args[0])
			results, err := ics.Sync(cmd.Context(), s, []store.Feed{{ID: "import", URL: src, Calendar: calendar}}, sc)
			if err != nil {
				return writeErr(cmd, storeErr(err, calendar))
			}
			return writeOut(cmd, app, map[string]any{
				"data": results[0],
				"meta": map[string]any{"from": sc.RangeStart, "to": sc.RangeEnd},
			})
		},
	}
	icsCmd.Flags().StringVar(&calendar, "calendar", "", "Target calendar id or label (default: current calendar)")
	icsCmd.Flags().StringVar(&from, "from", "today", "First day to import")
	icsCmd.Flags().IntVar(&days, "days", 30, "Number of days to import")
	icsCmd.Flags().BoolVar(&allDay, "all-day", false, "Also import all-day events as full-day blocks")
	cmd.AddCommand(icsCmd)
	return cmd
}
