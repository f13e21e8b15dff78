package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"daygrid/internal/store"
	"daygrid/internal/web"
)

// webServerConfig fills a web.ServerConfig from the global config and workspace.
func webServerConfig(dir string, cfg *store.GlobalConfig) web.ServerConfig {
	return web.ServerConfig{
		Dir:               dir,
		Location:          location(cfg),
		WeekStart:         weekStart(cfg),
		HourHeight:        cfg.EffectiveHourHeight(),
		SnapMinutes:       cfg.EffectiveSnapMinutes(),
		DayMinimumHeight:  cfg.EffectiveDayMinimumHeight(),
		WeekMinimumHeight: cfg.EffectiveWeekMinimumHeight(),
	}
}

func newWebCmd(app *App) *cobra.Command {
	var addr, refresh string
	var readOnly bool

	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the day grid over HTTP (drag to reschedule in the browser)",
		Long: strings.TrimSpace(`
Serve the workspace on a local HTTP server:

  /day            day grid; drag events to move them (websocket /ws/drag)
  /agenda         Markdown agenda
  /api/day        layout JSON (?date=YYYY-MM-DD)
  /api/week       week layout JSON

Open pages update live when the workspace changes. Feeds in feeds.yaml are
re-synced on the --refresh cron schedule.
`),
		Example: strings.TrimSpace(`
  daygrid web --addr 127.0.0.1:3336
  daygrid web --refresh "*/30 * * * *"
  DAYGRID_WEB_USER=me DAYGRID_WEB_PASSWORD=secret daygrid web --addr :3336
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			listenAddr := strings.TrimSpace(addr)
			if listenAddr == "" {
				return writeErr(cmd, errors.New("web: missing --addr"))
			}

			feeds, err := s.LoadFeeds()
			if err != nil {
				return writeErr(cmd, err)
			}
			switch strings.TrimSpace(refresh) {
			case "off", "none":
				refresh = ""
			case "":
				if len(feeds.Feeds) > 0 {
					refresh = feeds.Refresh
				}
			}

			sc := webServerConfig(s.Dir, loadConfigOrDefault())
			sc.Addr = listenAddr
			sc.ReadOnly = readOnly
			sc.Refresh = refresh
			sc.BasicAuthUser = os.Getenv("DAYGRID_WEB_USER")
			sc.BasicAuthPassword = os.Getenv("DAYGRID_WEB_PASSWORD")
			srv, err := web.NewServer(sc)
			if err != nil {
				return writeErr(cmd, err)
			}

			_ = writeOut(cmd, app, map[string]any{
				"data": map[string]any{
					"url":      "http://" + listenAddr + "/day",
					"dir":      s.Dir,
					"readOnly": readOnly,
					"refresh":  refresh,
				},
			})

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if err := srv.ListenAndServe(ctx); err != nil {
				return writeErr(cmd, err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:3336", "Listen address")
	cmd.Flags().StringVar(&refresh, "refresh", "", `Cron spec for feed re-sync (default: feeds.yaml refresh; "off" disables)`)
	cmd.Flags().BoolVar(&readOnly, "read-only", false, "Reject moves")
	return cmd
}
