package ics

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	appLog "daygrid/internal/log"
	"daygrid/internal/store"
)

type SyncConfig struct {
	Fetcher *Fetcher
	// Occurrences overlapping [RangeStart, RangeEnd) are imported.
	RangeStart time.Time
	RangeEnd   time.Time
	Location   *time.Location
	// IncludeAllDay imports all-day occurrences as full-day blocks. They are
	// skipped by default since the day grid is for timed events.
	IncludeAllDay bool
}

// DefaultSyncConfig covers from the start of today through horizonDays ahead,
// caching downloads in the workspace.
func DefaultSyncConfig(st store.Store, now time.Time, horizonDays int) SyncConfig {
	if horizonDays <= 0 {
		horizonDays = 30
	}
	y, m, d := now.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return SyncConfig{
		Fetcher:    NewFetcher(filepath.Join(st.Dir, "ics-cache")),
		RangeStart: from,
		RangeEnd:   from.AddDate(0, 0, horizonDays),
		Location:   now.Location(),
	}
}

// Sync fetches, parses and expands every feed and replaces each feed's
// previous import in its target calendar. A failing feed does not stop the
// others; their errors are joined into the returned error.
func Sync(ctx context.Context, st store.Store, feeds []store.Feed, cfg SyncConfig) ([]store.ImportResult, error) {
	if cfg.Fetcher == nil {
		cfg.Fetcher = NewFetcher("")
	}
	results := make([]store.ImportResult, 0, len(feeds))
	var errs []error
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := syncFeed(ctx, st, feed, cfg)
		if err != nil {
			appLog.Error("ics: sync failed", err, "feed", feed.ID, "url", redactURL(feed.URL))
			errs = append(errs, fmt.Errorf("feed %s: %w", feed.ID, err))
			continue
		}
		appLog.Info("ics: synced", "feed", feed.ID, "calendar", res.CalendarID,
			"added", res.Added, "updated", res.Updated, "removed", res.Removed)
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}

func syncFeed(ctx context.Context, st store.Store, feed store.Feed, cfg SyncConfig) (store.ImportResult, error) {
	src := Source{ID: feed.ID, URL: feed.URL}
	fetched, err := cfg.Fetcher.Fetch(ctx, src)
	if err != nil {
		return store.ImportResult{}, err
	}
	parsed, err := ParseICS(src, fetched.Body)
	if err != nil {
		return store.ImportResult{}, err
	}
	expanded, err := ExpandOccurrences(parsed, ExpandConfig{
		DisplayLocation: cfg.Location,
		RangeStart:      cfg.RangeStart,
		RangeEnd:        cfg.RangeEnd,
	})
	if err != nil {
		return store.ImportResult{}, err
	}
	occ := expanded.Occurrences
	if !cfg.IncludeAllDay {
		timed := occ[:0]
		for _, o := range occ {
			if !o.AllDay {
				timed = append(timed, o)
			}
		}
		occ = timed
	}
	return st.UpsertImported(feed.Calendar, feed.URL, ToEvents("", occ))
}
