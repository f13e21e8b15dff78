package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/model"
)

func newHistoryCmd(app *App) *cobra.Command {
	var limit int
	var entity string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the change log (newest last)",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			var changes []model.Change
			if entity = strings.TrimSpace(entity); entity != "" {
				changes, err = s.ReadChangesForEntity(entity, limit)
			} else {
				changes, err = s.ReadChanges(limit)
			}
			if err != nil {
				return writeErr(cmd, err)
			}
			if changes == nil {
				changes = []model.Change{}
			}
			return writeOut(cmd, app, map[string]any{"data": changes})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Max entries (0 = all)")
	cmd.Flags().StringVar(&entity, "entity", "", "Only changes to this event or calendar id")
	return cmd
}
