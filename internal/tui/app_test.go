package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"daygrid/internal/drag"
	"daygrid/internal/layout"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

var testDay = time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return testDay.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

// newTestModel returns a 80x30 model on testDay with one 09:00-10:00 event.
// With 4 rows per hour the grid starts on screen row 2 and is scrolled to
// row 32 (08:00), so 09:00 is drawn on screen row 6.
func newTestModel(t *testing.T) (appModel, model.Event) {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	if _, err := st.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	ev, err := st.CreateEvent(store.EventInput{Title: "Standup", Start: at(9, 0), End: at(10, 0)})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	db, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	m := newAppModel(st, db, &store.GlobalConfig{Timezone: "UTC", TUI: &store.TUIConfig{Theme: "mono"}})
	m.now = func() time.Time { return at(7, 0) }
	m.day = testDay
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	return next.(appModel), ev
}

func send(m appModel, msg tea.Msg) appModel {
	next, _ := m.Update(msg)
	return next.(appModel)
}

func mouse(action tea.MouseAction, x, y int) tea.MouseMsg {
	return tea.MouseMsg{X: x, Y: y, Action: action, Button: tea.MouseButtonLeft}
}

func TestAppModel_AutoScrollsToFirstEvent(t *testing.T) {
	m, _ := newTestModel(t)
	if m.scroll != 32 {
		t.Fatalf("expected scroll to 08:00 (row 32), got %d", m.scroll)
	}
	if !strings.Contains(m.View(), "Standup") {
		t.Fatalf("expected event in view:\n%s", m.View())
	}
}

func TestAppModel_MouseDragCommitsMove(t *testing.T) {
	m, ev := newTestModel(t)

	m = send(m, mouse(tea.MouseActionPress, 10, 6))
	if m.selectedID != ev.ID || m.drag == nil {
		t.Fatalf("expected press to select and start a drag")
	}
	if p := m.preview(); p == nil || !p.Start.Equal(at(9, 0)) {
		t.Fatalf("expected initial preview at the event start, got %+v", p)
	}

	m = send(m, tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	if p := m.preview(); p == nil || !p.Start.Equal(at(10, 0)) {
		t.Fatalf("expected preview at 10:00, got %+v", p)
	}

	m = send(m, mouse(tea.MouseActionRelease, 10, 10))
	if m.drag != nil {
		t.Fatalf("expected gesture to end on release")
	}
	got, ok := m.db.FindEvent(ev.ID)
	if !ok || !got.Start.Equal(at(10, 0)) || !got.End.Equal(at(11, 0)) {
		t.Fatalf("expected move persisted to 10:00-11:00, got %+v", got)
	}
	changes, err := m.store.ReadChangesForEntity(ev.ID, 0)
	if err != nil || changes[len(changes)-1].Type != store.ChangeEventMove {
		t.Fatalf("expected event.move change, got %+v (%v)", changes, err)
	}
}

func TestAppModel_ClickWithoutMoveDoesNotCommit(t *testing.T) {
	m, ev := newTestModel(t)
	m = send(m, mouse(tea.MouseActionPress, 10, 6))
	m = send(m, mouse(tea.MouseActionRelease, 10, 6))

	changes, _ := m.store.ReadChangesForEntity(ev.ID, 0)
	if len(changes) != 1 {
		t.Fatalf("expected only the create change, got %d", len(changes))
	}
	if m.selectedID != ev.ID {
		t.Fatalf("expected click to keep selection")
	}
}

func TestAppModel_EscapeAndBlurCancelDrag(t *testing.T) {
	for _, cancel := range []tea.Msg{tea.KeyMsg{Type: tea.KeyEsc}, tea.BlurMsg{}} {
		m, ev := newTestModel(t)
		m = send(m, mouse(tea.MouseActionPress, 10, 6))
		m = send(m, tea.MouseMsg{X: 10, Y: 14, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
		m = send(m, cancel)
		if m.drag != nil {
			t.Fatalf("%T: expected drag cleared", cancel)
		}
		m = send(m, mouse(tea.MouseActionRelease, 10, 14))
		got, _ := m.db.FindEvent(ev.ID)
		if !got.Start.Equal(at(9, 0)) {
			t.Fatalf("%T: expected no move after cancel, got %v", cancel, got.Start)
		}
	}
}

func TestAppModel_KeyboardNudgeAndNavigation(t *testing.T) {
	m, ev := newTestModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	if m.selectedID != ev.ID {
		t.Fatalf("expected tab to select the only event")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("J")})
	got, _ := m.db.FindEvent(ev.ID)
	if !got.Start.Equal(at(9, 15)) {
		t.Fatalf("expected nudge to 09:15, got %v", got.Start)
	}

	m = send(m, tea.KeyMsg{Type: tea.KeyRight})
	if !m.day.Equal(testDay.AddDate(0, 0, 1)) || m.selectedID != "" {
		t.Fatalf("expected next day with cleared selection")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("w")})
	m = send(m, tea.KeyMsg{Type: tea.KeyLeft})
	if !m.week || !m.day.Equal(testDay.AddDate(0, 0, -6)) {
		t.Fatalf("expected week view to step a whole week, got %v", m.day)
	}
	if !strings.Contains(m.View(), "Week of") {
		t.Fatalf("expected week header")
	}
}

func TestAppModel_ComposerCreatesEvent(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	if !m.composing {
		t.Fatalf("expected composer open")
	}
	for _, r := range "14:00-15:30 Planning" {
		m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.composing {
		t.Fatalf("expected composer closed, status %q", m.status)
	}
	ev, ok := m.db.FindEvent(m.selectedID)
	if !ok || ev.Title != "Planning" || !ev.Start.Equal(at(14, 0)) || !ev.End.Equal(at(15, 30)) {
		t.Fatalf("unexpected created event %+v", ev)
	}
}

func TestAppModel_CopySelected(t *testing.T) {
	var copied string
	orig := writeClipboard
	writeClipboard = func(s string) error { copied = s; return nil }
	defer func() { writeClipboard = orig }()

	m, ev := newTestModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if !m.statusErr {
		t.Fatalf("expected error status without selection")
	}
	m = send(m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	if copied != ev.ID {
		t.Fatalf("expected %q copied, got %q", ev.ID, copied)
	}
}

func TestAppModel_SoloCalendarCycle(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	visible := 0
	for _, c := range m.db.Calendars {
		if c.Visible {
			visible++
		}
	}
	if visible != 1 || !m.db.Calendars[0].Visible {
		t.Fatalf("expected only the first calendar visible, got %+v", m.db.Calendars)
	}
	for i := 0; i < len(m.db.Calendars); i++ {
		m = send(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("c")})
	}
	for _, c := range m.db.Calendars {
		if !c.Visible {
			t.Fatalf("expected all calendars visible after a full cycle")
		}
	}
}

func TestParseQuickEvent(t *testing.T) {
	in, err := parseQuickEvent("9-10:30 Review", testDay, at(7, 0), 15)
	if err != nil || !in.Start.Equal(at(9, 0)) || !in.End.Equal(at(10, 30)) || in.Title != "Review" {
		t.Fatalf("unexpected %+v (%v)", in, err)
	}
	in, err = parseQuickEvent("Focus", testDay, at(13, 7), 15)
	if err != nil || !in.Start.Equal(at(13, 15)) || !in.End.Equal(at(14, 15)) {
		t.Fatalf("expected next snapped slot today, got %+v (%v)", in, err)
	}
	in, _ = parseQuickEvent("Focus", testDay, at(24+13, 7), 15)
	if !in.Start.Equal(at(9, 0)) {
		t.Fatalf("expected 09:00 on other days, got %v", in.Start)
	}
	for _, bad := range []string{"", "10-9 Backwards", "25:00-26:00 Nope"} {
		if _, err := parseQuickEvent(bad, testDay, at(7, 0), 15); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTerminalTarget_ListenersAndCapture(t *testing.T) {
	tt := newTerminalTarget()
	var moves int
	remove := tt.OnMove(func(drag.PointerEvent) { moves++ })
	tt.OnUp(func(drag.PointerEvent) { remove() })
	tt.CapturePointer(1)
	if !tt.HasPointerCapture(1) || !tt.active() {
		t.Fatalf("expected capture and listeners")
	}
	tt.Move(drag.PointerEvent{PointerID: 1})
	tt.Up(drag.PointerEvent{PointerID: 1})
	tt.Move(drag.PointerEvent{PointerID: 1})
	if moves != 1 {
		t.Fatalf("expected listener removed after up, got %d moves", moves)
	}
	tt.ReleasePointer(1)
	if tt.HasPointerCapture(1) {
		t.Fatalf("expected capture released")
	}
}

func TestProjectBoxes_SideBySide(t *testing.T) {
	pos := layout.LayoutDay([]model.Event{
		{ID: "a", Start: at(9, 0), End: at(10, 0)},
		{ID: "b", Start: at(9, 30), End: at(10, 30)},
	}, layout.Options{HourHeight: 4, MinimumHeight: 1, DayStart: testDay})
	boxes := projectBoxes(pos, 40)
	if len(boxes) != 2 {
		t.Fatalf("expected 2 boxes")
	}
	a, b := boxes[0], boxes[1]
	if a.x != 0 || a.w != 19 || b.x != 20 || b.w != 20 {
		t.Fatalf("unexpected geometry a=%+v b=%+v", a, b)
	}
	if a.y != 36 || a.h != 4 || b.y != 38 {
		t.Fatalf("unexpected rows a=%+v b=%+v", a, b)
	}
	if got, ok := boxAt(boxes, 25, 39); !ok || got.ev.ID != "b" {
		t.Fatalf("expected hit on b")
	}
	if _, ok := boxAt(boxes, 19, 36); ok {
		t.Fatalf("expected gap column to miss")
	}
}

func TestNormalizePaneAndReadableOn(t *testing.T) {
	got := normalizePane("abcdef\nx", 4, 3)
	if got != "abc…\nx   \n    " {
		t.Fatalf("unexpected pane %q", got)
	}
	if readableOn("#ffffff") != "#000000" || readableOn("#202020") != "#ffffff" || readableOn("bad") != "#ffffff" {
		t.Fatalf("unexpected contrast picks")
	}
}
