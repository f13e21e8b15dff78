package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/layout"
	"daygrid/internal/store"
)

type layoutFlags struct {
	date          string
	hourHeight    float64
	minimumHeight float64
}

func (f *layoutFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "today", "Day (YYYY-MM-DD|today|tomorrow|yesterday)")
	cmd.Flags().Float64Var(&f.hourHeight, "hour-height", 0, "Pixels per hour (default: config hourHeight, 64)")
	cmd.Flags().Float64Var(&f.minimumHeight, "minimum-height", 0, "Minimum block height; negative disables the floor (default: config)")
}

func (f *layoutFlags) options(cfg *store.GlobalConfig, fallbackMin float64) layout.Options {
	opts := layout.Options{HourHeight: f.hourHeight, MinimumHeight: f.minimumHeight}
	if opts.HourHeight <= 0 {
		opts.HourHeight = cfg.EffectiveHourHeight()
	}
	if opts.MinimumHeight == 0 {
		opts.MinimumHeight = fallbackMin
	}
	return opts
}

func newDayCmd(app *App) *cobra.Command {
	var lf layoutFlags

	cmd := &cobra.Command{
		Use:   "day",
		Short: "Lay out one day: top/height/column/width per event",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := loadConfigOrDefault()
			day, err := parseDay(lf.date, location(cfg))
			if err != nil {
				return writeErr(cmd, err)
			}
			opts := lf.options(cfg, cfg.EffectiveDayMinimumHeight())
			opts.DayStart = day
			positioned := layout.LayoutDay(db.DayEvents(day), opts)

			maxColumns := 0
			for _, p := range positioned {
				maxColumns = max(maxColumns, p.ColumnCount)
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"date":          day.Format("2006-01-02"),
					"hourHeight":    opts.HourHeight,
					"minimumHeight": opts.MinimumHeight,
					"gridHeight":    24 * opts.HourHeight,
					"scrollTarget":  layout.ScrollTarget(positioned, opts.HourHeight),
					"maxColumns":    maxColumns,
					"events":        positioned,
				},
			})
		},
	}
	lf.bind(cmd)
	return cmd
}

func newWeekCmd(app *App) *cobra.Command {
	var lf layoutFlags
	var start string

	cmd := &cobra.Command{
		Use:   "week",
		Short: "Lay out the seven days of the week containing --date",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, _, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := loadConfigOrDefault()
			anchor, err := parseDay(lf.date, location(cfg))
			if err != nil {
				return writeErr(cmd, err)
			}
			ws := weekStart(cfg)
			if strings.TrimSpace(start) != "" {
				ws, err = store.ParseWeekday(start)
				if err != nil {
					return writeErr(cmd, err)
				}
			}
			opts := lf.options(cfg, cfg.EffectiveWeekMinimumHeight())
			first := layout.StartOfWeek(anchor, ws)
			events := db.VisibleEventsBetween(first, first.AddDate(0, 0, layout.DaysInWeek))

			days := []map[string]any{}
			for _, d := range layout.LayoutWeek(events, anchor, ws, opts) {
				days = append(days, map[string]any{
					"date":   d.Date.Format("2006-01-02"),
					"events": d.Events,
				})
			}
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"weekStart":     first.Format("2006-01-02"),
					"hourHeight":    opts.HourHeight,
					"minimumHeight": opts.MinimumHeight,
					"days":          days,
				},
			})
		},
	}
	lf.bind(cmd)
	cmd.Flags().StringVar(&start, "week-start", "", "First weekday (default: config weekStart, sunday)")
	return cmd
}
