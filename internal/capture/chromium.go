// Package capture screenshots the web day view with headless Chromium.
package capture

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	appLog "daygrid/internal/log"
)

const (
	DefaultWidth   = 1024
	DefaultHeight  = 1600
	DefaultTimeout = 30 * time.Second

	readySelector = `[data-ready="true"]`
)

type Options struct {
	// BaseURL is the running web server, e.g. "http://127.0.0.1:8080".
	BaseURL string
	// Date is YYYY-MM-DD; empty means the server's today.
	Date string
	// OutputPath receives the PNG.
	OutputPath string

	Width   int
	Height  int
	Timeout time.Duration
}

// DayURL builds the /day URL for opts.
func DayURL(opts Options) (string, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return "", fmt.Errorf("capture: base URL is required")
	}
	u, err := url.Parse(base + "/day")
	if err != nil {
		return "", fmt.Errorf("capture: invalid base URL: %w", err)
	}
	if d := strings.TrimSpace(opts.Date); d != "" {
		if _, err := time.Parse("2006-01-02", d); err != nil {
			return "", fmt.Errorf("capture: date must be YYYY-MM-DD")
		}
		q := u.Query()
		q.Set("date", d)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// CaptureDayPNG loads the day page in headless Chromium, waits until the
// grid reports data-ready="true", and writes a full-page PNG to
// opts.OutputPath.
func CaptureDayPNG(parentCtx context.Context, opts Options) error {
	target, err := DayURL(opts)
	if err != nil {
		return err
	}
	if opts.OutputPath == "" {
		return fmt.Errorf("capture: output path is required")
	}
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	ctx, cancel := chromedp.NewContext(parentCtx)
	defer cancel()
	ctx, timeoutCancel := context.WithTimeout(ctx, opts.Timeout)
	defer timeoutCancel()

	var png []byte
	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(opts.Width), int64(opts.Height)),
		chromedp.Navigate(target),
		chromedp.WaitVisible(readySelector, chromedp.ByQuery),
		// Let the final paint land.
		chromedp.Sleep(300 * time.Millisecond),
		chromedp.FullScreenshot(&png, 100),
	}
	if err := chromedp.Run(ctx, tasks); err != nil {
		return fmt.Errorf("capture: chromedp run failed: %w", err)
	}
	if err := os.WriteFile(opts.OutputPath, png, 0o644); err != nil {
		return fmt.Errorf("capture: write png: %w", err)
	}
	appLog.Info("capture: wrote snapshot", "url", target, "path", opts.OutputPath, "bytes", len(png))
	return nil
}
