package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daygrid/internal/store"
)

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change global preferences (~/.daygrid/config.json)",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the config with defaults applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			path, _ := store.ConfigPath()
			return writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"path":   path,
					"config": cfg,
					"effective": map[string]any{
						"timezone":          location(cfg).String(),
						"weekStart":         weekStart(cfg).String(),
						"hourHeight":        cfg.EffectiveHourHeight(),
						"snapMinutes":       cfg.EffectiveSnapMinutes(),
						"dayMinimumHeight":  cfg.EffectiveDayMinimumHeight(),
						"weekMinimumHeight": cfg.EffectiveWeekMinimumHeight(),
						"rowsPerHour":       cfg.EffectiveRowsPerHour(),
					},
				},
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set timezone|weekStart|hourHeight|snapMinutes|dayMinimumHeight|weekMinimumHeight|rowsPerHour|theme",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := store.LoadConfig()
			if err != nil {
				return writeErr(cmd, err)
			}
			if err := setConfigValue(cfg, args[0], args[1]); err != nil {
				return writeErr(cmd, err)
			}
			if err := store.SaveConfig(cfg); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": cfg})
		},
	})
	return cmd
}

func setConfigValue(cfg *store.GlobalConfig, key, value string) error {
	value = strings.TrimSpace(value)
	num := func() (float64, error) {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || f < 0 {
			return 0, fmt.Errorf("%s must be a non-negative number", key)
		}
		return f, nil
	}
	tui := func() *store.TUIConfig {
		if cfg.TUI == nil {
			cfg.TUI = &store.TUIConfig{}
		}
		return cfg.TUI
	}

	switch key {
	case "timezone":
		if value != "" {
			if _, err := time.LoadLocation(value); err != nil {
				return fmt.Errorf("timezone: %w", err)
			}
		}
		cfg.Timezone = value
	case "weekStart":
		if value != "" {
			if _, err := store.ParseWeekday(value); err != nil {
				return err
			}
		}
		cfg.WeekStart = strings.ToLower(value)
	case "hourHeight", "dayMinimumHeight", "weekMinimumHeight":
		f, err := num()
		if err != nil {
			return err
		}
		switch key {
		case "hourHeight":
			cfg.HourHeight = f
		case "dayMinimumHeight":
			cfg.DayMinimumHeight = f
		default:
			cfg.WeekMinimumHeight = f
		}
	case "snapMinutes", "rowsPerHour":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer", key)
		}
		if key == "snapMinutes" {
			cfg.SnapMinutes = n
		} else {
			tui().RowsPerHour = n
		}
	case "theme":
		tui().Theme = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

func weekStart(cfg *store.GlobalConfig) time.Weekday {
	d, err := cfg.Weekday()
	if err != nil {
		return time.Sunday
	}
	return d
}
