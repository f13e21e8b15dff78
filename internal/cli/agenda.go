package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/publish"
)

func newAgendaCmd(app *App) *cobra.Command {
	var date, toDir string
	var week, render, overwrite, clock12 bool
	var width int

	cmd := &cobra.Command{
		Use:   "agenda",
		Short: "Render a day (or week) as a Markdown agenda",
		Example: strings.TrimSpace(`
  # Markdown in the JSON envelope
  daygrid agenda --date tomorrow

  # Styled for the terminal
  daygrid agenda --render

  # Write agenda/YYYY-MM-DD.md files
  daygrid agenda --week --to ./notes
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := loadConfigOrDefault()
			loc := location(cfg)
			day, err := parseDay(date, loc)
			if err != nil {
				return writeErr(cmd, err)
			}
			ro := publish.RenderOptions{Location: loc, Clock24: !clock12}

			if strings.TrimSpace(toDir) != "" {
				res, err := publish.WriteDay(db, day, toDir, publish.WriteOptions{
					RenderOptions: ro,
					Overwrite:     overwrite,
					Week:          week,
					WeekStart:     weekStart(cfg),
				})
				if err != nil {
					return writeErr(cmd, err)
				}
				return writeOut(cmd, app, map[string]any{"data": res})
			}

			var md string
			if week {
				md, err = publish.RenderWeekMarkdown(db, day, weekStart(cfg), ro)
			} else {
				md, err = publish.RenderDayMarkdown(db, day, ro)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if render {
				_, err := fmt.Fprint(cmd.OutOrStdout(), publish.RenderTerminal(md, width))
				return err
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"date":     day.Format("2006-01-02"),
					"week":     week,
					"markdown": md,
				},
			})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	cmd.Flags().BoolVar(&week, "week", false, "The whole week containing --date")
	cmd.Flags().BoolVar(&render, "render", false, "Print styled terminal output instead of the envelope")
	cmd.Flags().IntVar(&width, "width", 80, "Wrap width for --render")
	cmd.Flags().StringVar(&toDir, "to", "", "Write Markdown files under this directory")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files with --to")
	cmd.Flags().BoolVar(&clock12, "12h", false, "Use a 12-hour clock")
	return cmd
}
