package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daygrid/internal/format"
	"daygrid/internal/store"
	"daygrid/internal/tui"
)

type App struct {
	Dir        string
	Workspace  string
	PrettyJSON bool
	Format     string
}

func NewRootCmd() *cobra.Command {
	app := &App{}

	cmd := &cobra.Command{
		Use:          "daygrid",
		Short:        "Day-grid calendar: overlap layout, drag to reschedule, CLI + TUI + web",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Start the interactive day view
  daygrid

  # Lay out a day as JSON
  daygrid day --date 2026-03-16

  # Move an event by simulating a drag (64px per hour)
  daygrid drag evt-ab23cd45 --grab-y 600 --to-y 664

  # Direct event lookup (shortcut for: daygrid events show <event-id>)
  daygrid evt-ab23cd45
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			// No subcommand => interactive TUI.
			if cmd.HasSubCommands() && len(args) == 0 {
				return runTUI(app)
			}
			return cmd.Help()
		},
	}

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if _, err := format.Parse(app.Format); err != nil {
			return writeErr(cmd, err)
		}
		return nil
	}

	cmd.PersistentFlags().StringVar(&app.Dir, "dir", envOr("DAYGRID_DIR", ""), "Path to store dir (overrides workspace resolution)")
	cmd.PersistentFlags().StringVar(&app.Workspace, "workspace", envOr("DAYGRID_WORKSPACE", ""), "Workspace name (default: 'default')")
	cmd.PersistentFlags().BoolVar(&app.PrettyJSON, "pretty", false, "Pretty-print output")
	cmd.PersistentFlags().StringVar(&app.Format, "format", envOr("DAYGRID_FORMAT", "json"), "Output format (json|edn)")

	cmd.AddCommand(newInitCmd(app))
	cmd.AddCommand(newWorkspaceCmd(app))
	cmd.AddCommand(newConfigCmd(app))
	cmd.AddCommand(newCalendarsCmd(app))
	cmd.AddCommand(newEventsCmd(app))
	cmd.AddCommand(newDayCmd(app))
	cmd.AddCommand(newWeekCmd(app))
	cmd.AddCommand(newDragCmd(app))
	cmd.AddCommand(newAgendaCmd(app))
	cmd.AddCommand(newImportCmd(app))
	cmd.AddCommand(newFeedsCmd(app))
	cmd.AddCommand(newHistoryCmd(app))
	cmd.AddCommand(newWebCmd(app))
	cmd.AddCommand(newSnapshotCmd(app))

	return cmd
}

func runTUI(app *App) error {
	db, st, err := loadDB(app)
	if err != nil {
		return err
	}
	return tui.Run(st, db, loadConfigOrDefault())
}

// resolveDir picks the store directory: --dir, then --workspace, then the
// configured current workspace, then "default".
func resolveDir(app *App) (string, error) {
	if app.Dir != "" {
		return app.Dir, nil
	}
	name := strings.TrimSpace(app.Workspace)
	if name == "" {
		if cfg, err := store.LoadConfig(); err == nil && cfg.CurrentWorkspace != "" {
			name = cfg.CurrentWorkspace
		} else {
			name = "default"
		}
	}
	dir, err := store.WorkspaceDir(name)
	if err != nil {
		return "", err
	}
	app.Workspace = name
	app.Dir = dir
	return dir, nil
}

// loadDB opens the workspace, seeding the default calendars on first use.
func loadDB(app *App) (*store.DB, store.Store, error) {
	dir, err := resolveDir(app)
	if err != nil {
		return nil, store.Store{}, err
	}
	s := store.Store{Dir: dir}
	if !s.Exists() {
		db, err := s.SeedDefaults()
		return db, s, err
	}
	db, err := s.Load()
	if err != nil {
		return nil, s, err
	}
	return db, s, nil
}

func loadConfigOrDefault() *store.GlobalConfig {
	cfg, err := store.LoadConfig()
	if err != nil || cfg == nil {
		return &store.GlobalConfig{}
	}
	return cfg
}

// location is the configured timezone, falling back to local time.
func location(cfg *store.GlobalConfig) *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		return time.Local
	}
	return loc
}

func envOr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func writeOut(cmd *cobra.Command, app *App, v any) error {
	return format.Write(cmd.OutOrStdout(), v, app.Format, app.PrettyJSON)
}

func writeErr(cmd *cobra.Command, err error) error {
	fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
	return err
}
