package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"daygrid/internal/capture"
	"daygrid/internal/web"
)

func newSnapshotCmd(app *App) *cobra.Command {
	var date, out, baseURL string
	var width, height int
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save a PNG of the web day view (needs Chrome or Chromium)",
		Example: strings.TrimSpace(`
  daygrid snapshot --date tomorrow --out tomorrow.png

  # Capture an already running server
  daygrid snapshot --url http://127.0.0.1:3336
`),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, s, err := loadDB(app)
			if err != nil {
				return writeErr(cmd, err)
			}
			cfg := loadConfigOrDefault()
			day, err := parseDay(date, location(cfg))
			if err != nil {
				return writeErr(cmd, err)
			}
			if strings.TrimSpace(out) == "" {
				out = "daygrid-" + day.Format("2006-01-02") + ".png"
			}
			out, err = filepath.Abs(out)
			if err != nil {
				return writeErr(cmd, err)
			}

			base := strings.TrimSpace(baseURL)
			if base == "" {
				// Serve this workspace on a throwaway loopback port.
				ln, err := net.Listen("tcp", "127.0.0.1:0")
				if err != nil {
					return writeErr(cmd, err)
				}
				sc := webServerConfig(s.Dir, cfg)
				sc.Addr = ln.Addr().String()
				sc.ReadOnly = true
				srv, err := web.NewServer(sc)
				if err != nil {
					_ = ln.Close()
					return writeErr(cmd, err)
				}
				hs := &http.Server{Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}
				go func() { _ = hs.Serve(ln) }()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
					defer cancel()
					_ = hs.Shutdown(ctx)
					srv.Close()
				}()
				base = "http://" + sc.Addr
			}

			opts := capture.Options{
				BaseURL:    base,
				Date:       day.Format("2006-01-02"),
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
			}
			if err := capture.CaptureDayPNG(cmd.Context(), opts); err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					return writeErr(cmd, errors.New("snapshot: timed out waiting for the page (is Chrome installed?)"))
				}
				return writeErr(cmd, err)
			}
			target, _ := capture.DayURL(opts)
			return writeOut(cmd, app, map[string]any{"data": map[string]any{"path": out, "url": target}})
		},
	}
	cmd.Flags().StringVar(&date, "date", "today", "Day to capture")
	cmd.Flags().StringVar(&out, "out", "", "PNG path (default: daygrid-YYYY-MM-DD.png)")
	cmd.Flags().StringVar(&baseURL, "url", "", "Capture a running server instead of starting one")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "Viewport width")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "Viewport height")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "Overall capture timeout")
	return cmd
}
