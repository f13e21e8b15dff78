// Package drag implements the drag-to-reschedule gesture for events laid out on
// a day grid. The pointer plumbing is injected through Target so the same state
// machine drives terminal mice, websockets and tests.
package drag

import (
	"math"
	"sync"
	"time"

	"daygrid/internal/layout"
	"daygrid/internal/model"
)

const (
	DefaultSnapMinutes = 15

	defaultHourHeight = 64.0
)

type PointerEvent struct {
	PointerID int
	ClientY   float64
}

// Viewport is the container's position at the moment of a pointer event.
type Viewport struct {
	Top       float64
	ScrollTop float64
}

// ContainerFunc reports the container viewport, or false when the container is
// not mounted.
type ContainerFunc func() (Viewport, bool)

// Target is the pointer capability of one rendered event.
type Target interface {
	CapturePointer(id int)
	ReleasePointer(id int)
	HasPointerCapture(id int) bool
	OnMove(fn func(PointerEvent)) (remove func())
	OnUp(fn func(PointerEvent)) (remove func())
	OnCancel(fn func(PointerEvent)) (remove func())
}

type Config struct {
	Container   ContainerFunc
	DayAnchor   time.Time
	HourHeight  float64
	SnapMinutes int

	// OnPreview receives every candidate interval, and nil once a gesture ends.
	OnPreview func(*model.Draft)
	// OnCommit receives the final interval of a gesture that actually moved.
	OnCommit func(model.Draft)
}

type Controller struct {
	cfg Config

	mu     sync.Mutex
	active *model.Draft
}

func New(cfg Config) *Controller {
	if cfg.SnapMinutes <= 0 {
		cfg.SnapMinutes = DefaultSnapMinutes
	}
	if !(cfg.HourHeight > 0) {
		cfg.HourHeight = defaultHourHeight
	}
	return &Controller{cfg: cfg}
}

// ActiveDraft returns the most recent preview, or nil when nothing is dragging.
// It is shared by every gesture of the controller: the end of any gesture clears it.
func (c *Controller) ActiveDraft() *model.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return nil
	}
	d := *c.active
	return &d
}

// ClearDraft drops the current preview and notifies OnPreview with nil.
func (c *Controller) ClearDraft() {
	c.setActive(nil)
}

func (c *Controller) setActive(d *model.Draft) {
	c.mu.Lock()
	c.active = d
	c.mu.Unlock()
	if c.cfg.OnPreview != nil {
		c.cfg.OnPreview(d)
	}
}

// Binding attaches the gesture to one event.
type Binding struct {
	c  *Controller
	ev model.Event
}

func (c *Controller) Bind(ev model.Event) Binding {
	return Binding{c: c, ev: ev}
}

// gesture is the state frozen at pointer-down.
type gesture struct {
	eventID         string
	pointerID       int
	offsetMinutes   float64
	durationMinutes float64

	moved bool
	draft *model.Draft
}

// OnPointerDown starts a gesture on target. It does nothing when the container
// is unavailable.
func (b Binding) OnPointerDown(target Target, pe PointerEvent) {
	c := b.c
	if c == nil || c.cfg.Container == nil {
		return
	}
	vp, ok := c.cfg.Container()
	if !ok {
		return
	}

	anchor := c.cfg.DayAnchor
	if anchor.IsZero() {
		y, m, d := b.ev.Start.Date()
		anchor = time.Date(y, m, d, 0, 0, 0, 0, b.ev.Start.Location())
	}
	snap := float64(c.cfg.SnapMinutes)
	minuteHeight := c.cfg.HourHeight / 60

	pointerY := pe.ClientY - vp.Top + vp.ScrollTop
	startMin := MinutesBetween(anchor, b.ev.Start)
	endMin := MinutesBetween(anchor, b.ev.End)

	g := &gesture{
		eventID:         b.ev.ID,
		pointerID:       pe.PointerID,
		offsetMinutes:   startMin - pointerY/minuteHeight,
		durationMinutes: min(max(endMin-startMin, snap), layout.MinutesInDay),
	}

	preview := func(startMinutes float64) {
		start := Clamp(SnapToInterval(startMinutes, snap), 0, layout.MinutesInDay-g.durationMinutes)
		nextStart := AddMinutes(anchor, start)
		d := &model.Draft{
			ID:    g.eventID,
			Start: nextStart,
			End:   AddMinutes(nextStart, g.durationMinutes),
		}
		g.draft = d
		c.setActive(d)
	}

	var removeMove, removeUp, removeCancel func()
	release := func() {
		removeMove()
		removeUp()
		removeCancel()
		if target.HasPointerCapture(g.pointerID) {
			target.ReleasePointer(g.pointerID)
		}
	}
	finish := func() {
		g.draft = nil
		c.setActive(nil)
	}

	onMove := func(m PointerEvent) {
		if m.PointerID != g.pointerID {
			return
		}
		vp, ok := c.cfg.Container()
		if !ok {
			return
		}
		y := m.ClientY - vp.Top + vp.ScrollTop
		g.moved = true
		preview(y/minuteHeight + g.offsetMinutes)
	}
	onUp := func(u PointerEvent) {
		if u.PointerID != g.pointerID {
			return
		}
		if g.moved && g.draft != nil && c.cfg.OnCommit != nil {
			c.cfg.OnCommit(*g.draft)
		}
		release()
		finish()
	}
	onCancel := func(x PointerEvent) {
		if x.PointerID != g.pointerID {
			return
		}
		release()
		finish()
	}

	target.CapturePointer(g.pointerID)
	removeMove = orNop(target.OnMove(onMove))
	removeUp = orNop(target.OnUp(onUp))
	removeCancel = orNop(target.OnCancel(onCancel))

	preview(startMin)
}

func orNop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}

// SnapToInterval rounds value to the nearest multiple of interval. A
// non-positive interval leaves value unchanged.
func SnapToInterval(value, interval float64) float64 {
	if interval <= 0 {
		return value
	}
	return math.Round(value/interval) * interval
}

func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

func MinutesBetween(anchor, t time.Time) float64 {
	return t.Sub(anchor).Minutes()
}

func AddMinutes(anchor time.Time, minutes float64) time.Time {
	return anchor.Add(time.Duration(math.Round(minutes * float64(time.Minute))))
}
