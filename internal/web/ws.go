package web

import (
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"daygrid/internal/drag"
	"daygrid/internal/layout"
	appLog "daygrid/internal/log"
	"daygrid/internal/model"
)

// dragInMsg is one browser pointer event. Top and ScrollTop describe the
// grid container at the time of the event.
type dragInMsg struct {
	Type      string  `json:"type"` // down|move|up|cancel
	PointerID int     `json:"pointerId"`
	EventID   string  `json:"eventId,omitempty"`
	ClientY   float64 `json:"clientY"`
	Top       float64 `json:"top"`
	ScrollTop float64 `json:"scrollTop"`
}

type dragOutMsg struct {
	Type  string       `json:"type"` // preview|end|commit|error
	Draft *model.Draft `json:"draft,omitempty"`
	Event *model.Event `json:"event,omitempty"`
	Error string       `json:"error,omitempty"`
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			return true
		}
		host := strings.TrimSpace(r.Host)
		return strings.Contains(origin, "://"+host)
	},
}

// socketTarget feeds websocket messages into a drag.Controller as if they were
// DOM pointer events on the grabbed block.
type socketTarget struct {
	mu       sync.Mutex
	viewport drag.Viewport
	captured map[int]bool
	nextID   int
	move     map[int]func(drag.PointerEvent)
	up       map[int]func(drag.PointerEvent)
	cancel   map[int]func(drag.PointerEvent)
}

func newSocketTarget() *socketTarget {
	return &socketTarget{
		captured: map[int]bool{},
		move:     map[int]func(drag.PointerEvent){},
		up:       map[int]func(drag.PointerEvent){},
		cancel:   map[int]func(drag.PointerEvent){},
	}
}

func (t *socketTarget) CapturePointer(id int) {
	t.mu.Lock()
	t.captured[id] = true
	t.mu.Unlock()
}

func (t *socketTarget) ReleasePointer(id int) {
	t.mu.Lock()
	delete(t.captured, id)
	t.mu.Unlock()
}

func (t *socketTarget) HasPointerCapture(id int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.captured[id]
}

func (t *socketTarget) OnMove(fn func(drag.PointerEvent)) func()   { return t.add(t.move, fn) }
func (t *socketTarget) OnUp(fn func(drag.PointerEvent)) func()     { return t.add(t.up, fn) }
func (t *socketTarget) OnCancel(fn func(drag.PointerEvent)) func() { return t.add(t.cancel, fn) }

func (t *socketTarget) add(set map[int]func(drag.PointerEvent), fn func(drag.PointerEvent)) func() {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	set[id] = fn
	t.mu.Unlock()
	return func() {
		t.mu.Lock()
		delete(set, id)
		t.mu.Unlock()
	}
}

func (t *socketTarget) dispatch(set map[int]func(drag.PointerEvent), pe drag.PointerEvent) {
	t.mu.Lock()
	fns := make([]func(drag.PointerEvent), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(pe)
	}
}

func (t *socketTarget) setViewport(vp drag.Viewport) {
	t.mu.Lock()
	t.viewport = vp
	t.mu.Unlock()
}

func (t *socketTarget) container() (drag.Viewport, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.viewport, true
}

// cancelCaptured cancels the gesture of every pointer still captured.
func (t *socketTarget) cancelCaptured() {
	t.mu.Lock()
	ids := make([]int, 0, len(t.captured))
	for id := range t.captured {
		ids = append(ids, id)
	}
	t.mu.Unlock()
	for _, id := range ids {
		t.dispatch(t.cancel, drag.PointerEvent{PointerID: id})
	}
}

func (t *socketTarget) active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.up) > 0
}

// dragSession is the per-connection gesture state.
type dragSession struct {
	s      *Server
	send   func(dragOutMsg)
	target *socketTarget
}

func (s *Server) handleDragSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wsUpgrader.Upgrade(w, r, nil)
	if err != nil {
		appLog.Error("web: websocket upgrade failed", err)
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	send := func(m dragOutMsg) {
		writeMu.Lock()
		defer writeMu.Unlock()
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteJSON(m); err != nil {
			appLog.Debug("web: websocket write failed", "err", err.Error())
		}
	}

	sess := &dragSession{s: s, send: send, target: newSocketTarget()}
	for {
		var msg dragInMsg
		if err := conn.ReadJSON(&msg); err != nil {
			// A dropped connection cancels whatever was in flight.
			sess.target.cancelCaptured()
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				appLog.Debug("web: websocket closed", "err", err.Error())
			}
			return
		}
		sess.handle(msg)
	}
}

func (d *dragSession) handle(msg dragInMsg) {
	pe := drag.PointerEvent{PointerID: msg.PointerID, ClientY: msg.ClientY}
	switch msg.Type {
	case "down":
		d.down(msg)
	case "move":
		d.target.setViewport(drag.Viewport{Top: msg.Top, ScrollTop: msg.ScrollTop})
		d.target.dispatch(d.target.move, pe)
	case "up":
		d.target.setViewport(drag.Viewport{Top: msg.Top, ScrollTop: msg.ScrollTop})
		d.target.dispatch(d.target.up, pe)
	case "cancel":
		d.target.dispatch(d.target.cancel, pe)
	default:
		d.send(dragOutMsg{Type: "error", Error: "unknown message type " + msg.Type})
	}
}

func (d *dragSession) down(msg dragInMsg) {
	if d.target.active() {
		d.target.cancelCaptured()
	}
	db, err := d.s.store().Load()
	if err != nil {
		d.send(dragOutMsg{Type: "error", Error: err.Error()})
		return
	}
	ev, ok := db.FindEvent(strings.TrimSpace(msg.EventID))
	if !ok {
		d.send(dragOutMsg{Type: "error", Error: "event not found: " + msg.EventID})
		return
	}

	cfg := d.s.cfgSnapshot()
	d.target.setViewport(drag.Viewport{Top: msg.Top, ScrollTop: msg.ScrollTop})
	ctrl := drag.New(drag.Config{
		Container:   d.target.container,
		DayAnchor:   layout.StartOfDay(ev.Start.In(d.s.location())),
		HourHeight:  cfg.HourHeight,
		SnapMinutes: cfg.SnapMinutes,
		OnPreview: func(dr *model.Draft) {
			if dr == nil {
				d.send(dragOutMsg{Type: "end"})
				return
			}
			d.send(dragOutMsg{Type: "preview", Draft: dr})
		},
		OnCommit: func(dr model.Draft) {
			if cfg.ReadOnly {
				d.send(dragOutMsg{Type: "error", Draft: &dr, Error: "server is read-only"})
				return
			}
			moved, err := d.s.commitMove(dr)
			if err != nil {
				d.send(dragOutMsg{Type: "error", Draft: &dr, Error: err.Error()})
				return
			}
			d.send(dragOutMsg{Type: "commit", Draft: &dr, Event: &moved})
		},
	})
	ctrl.Bind(*ev).OnPointerDown(d.target, drag.PointerEvent{PointerID: msg.PointerID, ClientY: msg.ClientY})
}
