package tui

import "daygrid/internal/drag"

type listener struct {
	id int
	fn func(drag.PointerEvent)
}

// terminalTarget adapts bubbletea mouse messages to drag.Target. A terminal
// has a single pointer, so capture only records which ids are held.
type terminalTarget struct {
	nextID   int
	captured map[int]bool
	move     []listener
	up       []listener
	cancel   []listener
}

func newTerminalTarget() *terminalTarget {
	return &terminalTarget{captured: map[int]bool{}}
}

func (t *terminalTarget) CapturePointer(id int)         { t.captured[id] = true }
func (t *terminalTarget) ReleasePointer(id int)         { delete(t.captured, id) }
func (t *terminalTarget) HasPointerCapture(id int) bool { return t.captured[id] }

func (t *terminalTarget) OnMove(fn func(drag.PointerEvent)) func()   { return t.add(&t.move, fn) }
func (t *terminalTarget) OnUp(fn func(drag.PointerEvent)) func()     { return t.add(&t.up, fn) }
func (t *terminalTarget) OnCancel(fn func(drag.PointerEvent)) func() { return t.add(&t.cancel, fn) }

func (t *terminalTarget) add(list *[]listener, fn func(drag.PointerEvent)) func() {
	t.nextID++
	id := t.nextID
	*list = append(*list, listener{id: id, fn: fn})
	return func() {
		for i, l := range *list {
			if l.id == id {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return
			}
		}
	}
}

// Listeners may unsubscribe while being dispatched, so iterate a snapshot.
func dispatch(list []listener, pe drag.PointerEvent) {
	for _, l := range append([]listener(nil), list...) {
		l.fn(pe)
	}
}

func (t *terminalTarget) Move(pe drag.PointerEvent)   { dispatch(t.move, pe) }
func (t *terminalTarget) Up(pe drag.PointerEvent)     { dispatch(t.up, pe) }
func (t *terminalTarget) Cancel(pe drag.PointerEvent) { dispatch(t.cancel, pe) }

func (t *terminalTarget) active() bool {
	return len(t.move)+len(t.up)+len(t.cancel) > 0
}
