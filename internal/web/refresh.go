package web

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"daygrid/internal/ics"
	appLog "daygrid/internal/log"
	"daygrid/internal/store"
)

// feedRefresher re-syncs feeds.yaml on a cron schedule.
type feedRefresher struct {
	st   store.Store
	loc  *time.Location
	cron *cron.Cron

	// onSynced runs after a sync that imported anything.
	onSynced func()

	mu      sync.Mutex
	running bool
}

func newFeedRefresher(st store.Store, spec string, loc *time.Location) (*feedRefresher, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("web: invalid refresh schedule %q: %w", spec, err)
	}
	r := &feedRefresher{st: st, loc: loc, cron: cron.New(cron.WithLocation(loc))}
	if _, err := r.cron.AddFunc(spec, func() { r.run(context.Background()) }); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *feedRefresher) Start() { r.cron.Start() }

func (r *feedRefresher) Stop() {
	<-r.cron.Stop().Done()
}

// run performs one sync. Overlapping runs are skipped.
func (r *feedRefresher) run(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		appLog.Debug("web: feed refresh still running, skipping")
		return
	}
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	feeds, err := r.st.LoadFeeds()
	if err != nil {
		appLog.Error("web: load feeds failed", err)
		return
	}
	if len(feeds.Feeds) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	cfg := ics.DefaultSyncConfig(r.st, time.Now().In(r.loc), feeds.HorizonDays)
	results, err := ics.Sync(ctx, r.st, feeds.Feeds, cfg)
	if err != nil {
		appLog.Error("web: feed refresh had errors", err)
	}
	changed := 0
	for _, res := range results {
		changed += res.Added + res.Updated + res.Removed
	}
	appLog.Info("web: feeds refreshed", "feeds", len(results), "changed", changed)
	if changed > 0 && r.onSynced != nil {
		r.onSynced()
	}
}
