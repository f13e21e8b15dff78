// Package publish renders agendas as markdown files or terminal output.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"daygrid/internal/layout"
	"daygrid/internal/store"
)

type WriteOptions struct {
	RenderOptions
	Overwrite bool
	// Week writes one file per day of the week containing the requested day.
	Week      bool
	WeekStart time.Weekday
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteDay writes agenda/YYYY-MM-DD.md under toDir.
func WriteDay(db *store.DB, day time.Time, toDir string, opt WriteOptions) (WriteResult, error) {
	if db == nil {
		return WriteResult{}, errors.New("missing db")
	}
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	outDir := filepath.Join(filepath.Clean(toDir), "agenda")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	if opt.Location != nil {
		day = day.In(opt.Location)
	}
	days := []time.Time{layout.StartOfDay(day)}
	if opt.Week {
		first := layout.StartOfWeek(day, opt.WeekStart)
		days = days[:0]
		for i := 0; i < layout.DaysInWeek; i++ {
			days = append(days, first.AddDate(0, 0, i))
		}
	}

	var res WriteResult
	for _, d := range days {
		md, err := RenderDayMarkdown(db, d, opt.RenderOptions)
		if err != nil {
			return res, err
		}
		p := filepath.Join(outDir, d.Format("2006-01-02")+".md")
		if err := writeFile(p, []byte(md), opt.Overwrite); err != nil {
			return res, err
		}
		res.Written = append(res.Written, p)
	}
	return res, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
