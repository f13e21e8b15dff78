package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"daygrid/internal/ics"
	"daygrid/internal/store"
)

func newFeedsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feeds",
		Short: "ICS subscriptions kept in the workspace's feeds.yaml",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List subscriptions",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			f, err := s.LoadFeeds()
			if err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": f})
		},
	})

	var id, name, calendar string
	addCmd := &cobra.Command{
		Use:   "add <url|path>",
		Short: "Subscribe a calendar to an ICS feed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			calendar = strings.TrimSpace(calendar)
			if calendar == "" {
				calendar = db.CurrentCalendarID
			}
			c, ok := db.CalendarByLabel(calendar)
			if !ok {
				return writeErr(cmd, errNotFound("calendar", calendar))
			}
			f, err := s.LoadFeeds()
			if err != nil {
				return writeErr(cmd, err)
			}
			id = strings.TrimSpace(id)
			if id == "" {
				id = fmt.Sprintf("feed-%d", len(f.Feeds)+1)
				for n := len(f.Feeds) + 2; ; n++ {
					if _, taken := f.Find(id); !taken {
						break
					}
					id = fmt.Sprintf("feed-%d", n)
				}
			} else if _, taken := f.Find(id); taken {
				return writeErr(cmd, fmt.Errorf("feed %s already exists", id))
			}
			feed := store.Feed{ID: id, Name: strings.TrimSpace(name), URL: strings.TrimSpace(args[0]), Calendar: c.ID}
			f.Feeds = append(f.Feeds, feed)
			if err := s.SaveFeeds(f); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{
				"data":   feed,
				"_hints": []string{"daygrid feeds sync --id " + id},
			})
		},
	}
	addCmd.Flags().StringVar(&id, "id", "", "Feed id (default: feed-N)")
	addCmd.Flags().StringVar(&name, "name", "", "Display name")
	addCmd.Flags().StringVar(&calendar, "calendar", "", "Target calendar id or label (default: current calendar)")
	cmd.AddCommand(addCmd)

	cmd.AddCommand(&cobra.Command{
		Use:   "remove <feed-id>",
		Short: "Unsubscribe (imported events stay until the next import of that source)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			f, err := s.LoadFeeds()
			if err != nil {
				return writeErr(cmd, err)
			}
			kept := f.Feeds[:0]
			found := false
			for _, feed := range f.Feeds {
				if feed.ID == args[0] {
					found = true
					continue
				}
				kept = append(kept, feed)
			}
			if !found {
				return writeErr(cmd, errNotFound("feed", args[0]))
			}
			f.Feeds = kept
			if err := s.SaveFeeds(f); err != nil {
				return writeErr(cmd, err)
			}
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"id": args[0], "removed": true}})
		},
	})

	var only string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch every feed (or --id) and replace its imported events",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			f, err := s.LoadFeeds()
			if err != nil {
				return writeErr(cmd, err)
			}
			feeds := f.Feeds
			if only = strings.TrimSpace(only); only != "" {
				feed, ok := f.Find(only)
				if !ok {
					return writeErr(cmd, errNotFound("feed", only))
				}
				feeds = []store.Feed{*feed}
			}
			loc := location(loadConfigOrDefault())
			sc := ics.DefaultSyncConfig(s, nowFunc().In(loc), f.HorizonDays)
			results, syncErr := ics.Sync(cmd.Context(), s, feeds, sc)
			out := map[string]any{"data": results}
			if syncErr != nil {
				out["errors"] = strings.Split(syncErr.Error(), "\n")
			}
			if err := writeOut(cmd, app, out); err != nil {
				return err
			}
			if syncErr != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), syncErr.Error())
			}
			return syncErr
		},
	}
	syncCmd.Flags().StringVar(&only, "id", "", "Only this feed")
	cmd.AddCommand(syncCmd)

	return cmd
}
