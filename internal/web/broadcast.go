package web

import (
	"sync"
	"time"

	"daygrid/internal/store"
)

type changeHub struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

func newChangeHub() *changeHub {
	return &changeHub{subs: map[chan struct{}]struct{}{}}
}

func (h *changeHub) subscribe() (ch chan struct{}, cancel func()) {
	ch = make(chan struct{}, 8)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()
	return ch, func() {
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}
}

func (h *changeHub) broadcast() {
	h.mu.Lock()
	for ch := range h.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	h.mu.Unlock()
}

// changeBroadcaster polls the workspace database and wakes every subscriber
// when it changes, whoever wrote it (this server, the CLI or a TUI).
type changeBroadcaster struct {
	st       store.Store
	interval time.Duration
	hub      *changeHub

	mu      sync.Mutex
	version time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newChangeBroadcaster(st store.Store, interval time.Duration) *changeBroadcaster {
	return &changeBroadcaster{
		st:       st,
		interval: interval,
		hub:      newChangeHub(),
		version:  st.ModTime(),
		stopCh:   make(chan struct{}),
	}
}

func (b *changeBroadcaster) Stop() {
	if b == nil {
		return
	}
	b.stopOnce.Do(func() { close(b.stopCh) })
}

func (b *changeBroadcaster) subscribe() (chan struct{}, func()) { return b.hub.subscribe() }

// broadcast wakes subscribers immediately, e.g. after a write made here.
func (b *changeBroadcaster) broadcast() {
	b.mu.Lock()
	b.version = b.st.ModTime()
	b.mu.Unlock()
	b.hub.broadcast()
}

// Version is the store's last observed modification time.
func (b *changeBroadcaster) Version() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.version
}

func (b *changeBroadcaster) watchLoop() {
	t := time.NewTicker(b.interval)
	defer t.Stop()
	for {
		select {
		case <-b.stopCh:
			return
		case <-t.C:
		}
		mt := b.st.ModTime()
		b.mu.Lock()
		changed := !mt.IsZero() && !mt.Equal(b.version)
		if changed {
			b.version = mt
		}
		b.mu.Unlock()
		if changed {
			b.hub.broadcast()
		}
	}
}
