// Package tui is the interactive day and week view.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"daygrid/internal/store"
)

func Run(st store.Store, db *store.DB, cfg *store.GlobalConfig) error {
	applyColorProfilePreference()
	m := newAppModel(st, db, cfg)
	opts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithReportFocus()}
	if cfg == nil || cfg.TUI == nil || cfg.TUI.Mouse == nil || *cfg.TUI.Mouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	_, err := tea.NewProgram(m, opts...).Run()
	return err
}
