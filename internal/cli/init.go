package cli

import (
	"path/filepath"

	"github.com/spf13/cobra"

	"daygrid/internal/model"
	"daygrid/internal/store"
)

func newInitCmd(app *App) *cobra.Command {
	var sample bool
	var date string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the workspace with default calendars",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := resolveDir(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			s := store.Store{Dir: dir}
			if err := s.Ensure(); err != nil {
				return writeErr(cmd, err)
			}
			db, err := s.SeedDefaults()
			if err != nil {
				return writeErr(cmd, err)
			}

			// Remember the workspace when none is current yet.
			if app.Workspace != "" {
				cfg, err := store.LoadConfig()
				if err == nil && cfg.CurrentWorkspace == "" {
					cfg.CurrentWorkspace = app.Workspace
					_ = store.SaveConfig(cfg)
				}
			}

			created := []model.Event{}
			if sample {
				day, err := parseDay(date, location(loadConfigOrDefault()))
				if err != nil {
					return writeErr(cmd, err)
				}
				for _, in := range store.SampleEvents(day) {
					ev, err := s.CreateEvent(in)
					if err != nil {
						return writeErr(cmd, err)
					}
					created = append(created, ev)
				}
			}

			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"dir":        dir,
					"sqlitePath": filepath.Join(dir, "daygrid.sqlite"),
					"calendars":  db.Calendars,
					"sample":     created,
				},
				"_hints": []string{
					"daygrid day",
					"daygrid",
				},
			})
		},
	}
	cmd.Flags().BoolVar(&sample, "sample", false, "Also create a day of sample events")
	cmd.Flags().StringVar(&date, "date", "today", "Day for --sample events")
	return cmd
}
