package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"daygrid/internal/drag"
	"daygrid/internal/layout"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

const mousePointerID = 1

type reloadTickMsg struct{}

// dragSession is shared by every copy of the model during one gesture; the
// controller's callbacks write into it while Update dispatches mouse events.
type dragSession struct {
	target    *terminalTarget
	eventID   string
	preview   *model.Draft
	committed *model.Draft
}

type appModel struct {
	store store.Store
	db    *store.DB
	loc   *time.Location
	now   func() time.Time

	theme theme
	keys  keyMap
	help  help.Model

	day         time.Time
	week        bool
	weekStart   time.Weekday
	rowsPerHour int
	snapMinutes int
	scroll      int

	width  int
	height int

	selectedID string
	drag       *dragSession

	composing bool
	input     textinput.Model

	// solo is the index of the only visible calendar, or -1 for all.
	solo int

	status    string
	statusErr bool

	lastModTime time.Time
}

func newAppModel(st store.Store, db *store.DB, cfg *store.GlobalConfig) appModel {
	loc, err := cfg.Location()
	if err != nil {
		loc = time.Local
	}
	weekStart, err := cfg.Weekday()
	if err != nil {
		weekStart = time.Sunday
	}
	ti := textinput.New()
	ti.Placeholder = "14:00-15:00 Title"
	ti.Prompt = "new › "
	ti.CharLimit = 200

	themePref := ""
	if cfg != nil && cfg.TUI != nil {
		themePref = cfg.TUI.Theme
	}

	m := appModel{
		store:       st,
		db:          db,
		loc:         loc,
		now:         time.Now,
		theme:       applyThemePreference(themePref),
		keys:        defaultKeyMap(),
		help:        help.New(),
		weekStart:   weekStart,
		rowsPerHour: cfg.EffectiveRowsPerHour(),
		snapMinutes: cfg.EffectiveSnapMinutes(),
		input:       ti,
		solo:        -1,
		width:       80,
		height:      30,
	}
	m.day = layout.StartOfDay(m.now().In(loc))
	m.lastModTime = st.ModTime()
	m.autoScroll()
	return m
}

func (m appModel) Init() tea.Cmd { return tickReload() }

func tickReload() tea.Cmd {
	return tea.Tick(750*time.Millisecond, func(time.Time) tea.Msg { return reloadTickMsg{} })
}

func (m appModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.autoScroll()
		return m, nil

	case reloadTickMsg:
		// Another process (CLI, web) may have written; never reload mid-drag.
		if (m.drag == nil || !m.drag.target.active()) && m.store.ModTime().After(m.lastModTime) {
			m.reload()
		}
		return m, tickReload()

	case tea.BlurMsg:
		m.cancelDrag()
		return m, nil

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		if m.composing {
			return m.updateComposer(msg)
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m appModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Cancel):
		m.cancelDrag()
	case key.Matches(msg, m.keys.Prev):
		m.shiftDays(-1)
	case key.Matches(msg, m.keys.Next):
		m.shiftDays(1)
	case key.Matches(msg, m.keys.Today):
		m.day = layout.StartOfDay(m.now().In(m.loc))
		m.autoScroll()
	case key.Matches(msg, m.keys.Week):
		m.week = !m.week
	case key.Matches(msg, m.keys.ScrollUp):
		m.scrollBy(-1)
	case key.Matches(msg, m.keys.ScrollDown):
		m.scrollBy(1)
	case key.Matches(msg, m.keys.NextEvent):
		m.cycleSelection(1)
	case key.Matches(msg, m.keys.PrevEvent):
		m.cycleSelection(-1)
	case key.Matches(msg, m.keys.Earlier):
		m.nudgeSelected(-m.snapMinutes)
	case key.Matches(msg, m.keys.Later):
		m.nudgeSelected(m.snapMinutes)
	case key.Matches(msg, m.keys.Calendars):
		m.cycleSolo()
	case key.Matches(msg, m.keys.New):
		m.composing = true
		m.input.SetValue("")
		cmd := m.input.Focus()
		return m, cmd
	case key.Matches(msg, m.keys.Copy):
		m.copySelected()
	case key.Matches(msg, m.keys.Reload):
		m.reload()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *appModel) shiftDays(n int) {
	if m.week {
		n *= layout.DaysInWeek
	}
	m.day = m.day.AddDate(0, 0, n)
	m.selectedID = ""
	m.autoScroll()
}

// Screen geometry. The header is two lines (three in week view, for day
// names); the footer is the status line plus help.
func (m appModel) gridTop() int {
	if m.week {
		return 3
	}
	return 2
}

func (m appModel) footerHeight() int {
	return 1 + lipgloss.Height(m.help.View(m.keys))
}

func (m appModel) gridHeight() int {
	h := m.height - m.gridTop() - m.footerHeight()
	if h < 1 {
		h = 1
	}
	return h
}

func (m appModel) gridWidth() int {
	w := m.width - gutterWidth
	if w < 10 {
		w = 10
	}
	return w
}

func (m appModel) maxScroll() int {
	return max(0, 24*m.rowsPerHour-m.gridHeight())
}

func (m *appModel) scrollBy(rows int) {
	m.scroll = min(max(0, m.scroll+rows), m.maxScroll())
}

// autoScroll brings the first event (one hour early) into view.
func (m *appModel) autoScroll() {
	target := layout.ScrollTarget(m.positioned(), float64(m.rowsPerHour))
	if len(m.db.DayEvents(m.day)) == 0 {
		target = 8 * float64(m.rowsPerHour)
	}
	m.scroll = 0
	m.scrollBy(int(math.Round(target)))
}

func (m appModel) preview() *model.Draft {
	if m.drag == nil {
		return nil
	}
	return m.drag.preview
}

// positioned lays out the current day, with any live drag preview applied.
func (m appModel) positioned() []layout.Positioned {
	events := layout.ApplyDraft(m.db.DayEvents(m.day), m.preview())
	return layout.LayoutDay(events, layout.Options{
		HourHeight:    float64(m.rowsPerHour),
		MinimumHeight: 1,
		DayStart:      m.day,
	})
}

func (m appModel) dayBoxes() []box {
	return projectBoxes(m.positioned(), m.gridWidth())
}

func (m *appModel) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.composing {
		return *m, nil
	}
	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.scrollBy(-1)
		return *m, nil
	case msg.Button == tea.MouseButtonWheelDown:
		m.scrollBy(1)
		return *m, nil
	}

	pe := drag.PointerEvent{PointerID: mousePointerID, ClientY: float64(msg.Y)}
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button != tea.MouseButtonLeft {
			return *m, nil
		}
		if m.week {
			m.pickWeekDay(msg.X)
			return *m, nil
		}
		row := msg.Y - m.gridTop() + m.scroll
		b, ok := boxAt(m.dayBoxes(), msg.X-gutterWidth, row)
		if !ok || msg.Y < m.gridTop() {
			m.selectedID = ""
			return *m, nil
		}
		m.selectedID = b.ev.ID
		m.startDrag(b.ev.Event, pe)
	case tea.MouseActionMotion:
		if m.drag != nil {
			m.drag.target.Move(pe)
		}
	case tea.MouseActionRelease:
		if m.drag != nil {
			m.drag.target.Up(pe)
			m.finishDrag()
		}
	}
	return *m, nil
}

func (m *appModel) startDrag(ev model.Event, pe drag.PointerEvent) {
	sess := &dragSession{target: newTerminalTarget(), eventID: ev.ID}
	top, scroll := float64(m.gridTop()), float64(m.scroll)
	ctrl := drag.New(drag.Config{
		Container:   func() (drag.Viewport, bool) { return drag.Viewport{Top: top, ScrollTop: scroll}, true },
		DayAnchor:   m.day,
		HourHeight:  float64(m.rowsPerHour),
		SnapMinutes: m.snapMinutes,
		OnPreview:   func(d *model.Draft) { sess.preview = d },
		OnCommit:    func(d model.Draft) { sess.committed = &d },
	})
	m.drag = sess
	ctrl.Bind(ev).OnPointerDown(sess.target, pe)
}

func (m *appModel) cancelDrag() {
	if m.drag == nil {
		return
	}
	m.drag.target.Cancel(drag.PointerEvent{PointerID: mousePointerID})
	m.drag = nil
}

func (m *appModel) finishDrag() {
	sess := m.drag
	m.drag = nil
	if sess == nil || sess.committed == nil {
		return
	}
	m.applyMove(*sess.committed)
}

func (m *appModel) applyMove(d model.Draft) {
	ev, err := m.store.MoveEvent(d)
	if err != nil {
		m.setStatus(err.Error(), true)
		return
	}
	m.reload()
	m.selectedID = ev.ID
	m.setStatus(fmt.Sprintf("moved %q to %s–%s", ev.Title, ev.Start.In(m.loc).Format("15:04"), ev.End.In(m.loc).Format("15:04")), false)
}

// nudgeSelected moves the selected event by minutes, kept inside its day.
func (m *appModel) nudgeSelected(minutes int) {
	ev, ok := m.db.FindEvent(m.selectedID)
	if !ok || m.week {
		return
	}
	dur := drag.MinutesBetween(ev.Start, ev.End)
	start := drag.MinutesBetween(m.day, ev.Start) + float64(minutes)
	start = drag.Clamp(start, 0, math.Max(0, layout.MinutesInDay-dur))
	m.applyMove(model.Draft{
		ID:    ev.ID,
		Start: drag.AddMinutes(m.day, start),
		End:   drag.AddMinutes(m.day, start+dur),
	})
}

func (m *appModel) cycleSelection(dir int) {
	events := m.db.DayEvents(m.day)
	if len(events) == 0 {
		m.selectedID = ""
		return
	}
	idx := -1
	for i, ev := range events {
		if ev.ID == m.selectedID {
			idx = i
		}
	}
	idx = (idx + dir + len(events)) % len(events)
	if idx < 0 {
		idx = 0
	}
	m.selectedID = events[idx].ID
	// Keep the selection on screen.
	top := int(math.Round(drag.MinutesBetween(m.day, events[idx].Start) / 60 * float64(m.rowsPerHour)))
	if top < m.scroll || top >= m.scroll+m.gridHeight() {
		m.scroll = 0
		m.scrollBy(top - 1)
	}
}

// cycleSolo steps through showing a single calendar, then all of them.
func (m *appModel) cycleSolo() {
	cals := m.db.Calendars
	if len(cals) == 0 {
		return
	}
	m.solo++
	if m.solo >= len(cals) {
		m.solo = -1
	}
	for i, c := range cals {
		if _, err := m.store.SetCalendarVisible(c.ID, m.solo < 0 || i == m.solo); err != nil {
			m.setStatus(err.Error(), true)
			return
		}
	}
	m.reload()
	if m.solo < 0 {
		m.setStatus("showing all calendars", false)
	} else {
		m.setStatus("showing only "+cals[m.solo].Label, false)
	}
}

func (m *appModel) copySelected() {
	if m.selectedID == "" {
		m.setStatus("nothing selected", true)
		return
	}
	if err := copyToClipboard(m.selectedID); err != nil {
		m.setStatus("copy failed: "+err.Error(), true)
		return
	}
	m.setStatus("copied "+m.selectedID, false)
}

func (m *appModel) pickWeekDay(x int) {
	if x < gutterWidth {
		return
	}
	colW := m.weekColumnWidth() + 1
	i := (x - gutterWidth) / colW
	if i >= layout.DaysInWeek {
		return
	}
	m.day = layout.StartOfWeek(m.day, m.weekStart).AddDate(0, 0, i)
	m.week = false
	m.autoScroll()
}

func (m appModel) weekColumnWidth() int {
	return max(3, (m.gridWidth()-(layout.DaysInWeek-1))/layout.DaysInWeek)
}

func (m *appModel) reload() {
	db, err := m.store.Load()
	if err != nil {
		m.setStatus("reload failed: "+err.Error(), true)
		return
	}
	m.db = db
	m.lastModTime = m.store.ModTime()
	if _, ok := m.db.FindEvent(m.selectedID); !ok {
		m.selectedID = ""
	}
}

func (m *appModel) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m appModel) calendarColors() map[string]string {
	out := map[string]string{}
	for _, c := range m.db.Calendars {
		out[c.ID] = c.Color
	}
	return out
}

func (m appModel) clockLabel(p layout.Positioned) string {
	return p.Start.In(m.loc).Format("15:04") + "–" + p.End.In(m.loc).Format("15:04")
}

func (m appModel) nowRow(day time.Time) int {
	now := m.now().In(m.loc)
	if !layout.SameDay(day, now) {
		return -1
	}
	return int(layout.NowOffset(now, float64(m.rowsPerHour)))
}

func (m appModel) View() string {
	title := m.day.Format("Mon Jan 2 2006")
	if m.week {
		first := layout.StartOfWeek(m.day, m.weekStart)
		title = "Week of " + first.Format("Jan 2 2006")
	}
	header := m.theme.header().Render("daygrid  "+title) + m.theme.muted().Render("  "+m.store.Dir)
	lines := []string{normalizePane(header, m.width, 1), normalizePane(m.legend(), m.width, 1)}

	paint := gridPaint{
		rowsPerHour: m.rowsPerHour,
		scroll:      m.scroll,
		height:      m.gridHeight(),
		selected:    m.selectedID,
		colors:      m.calendarColors(),
		theme:       m.theme,
		clock:       m.clockLabel,
	}
	if m.drag != nil {
		paint.dragging = m.drag.eventID
	}

	var grid string
	if m.week {
		lines = append(lines, normalizePane(m.weekHeader(), m.width, 1))
		first := layout.StartOfWeek(m.day, m.weekStart)
		days := layout.LayoutWeek(m.db.VisibleEvents(), first, m.weekStart, layout.Options{
			HourHeight:    float64(m.rowsPerHour),
			MinimumHeight: 1,
		})
		cols := make([]gridColumn, 0, len(days))
		paint.nowRow = -1
		for _, d := range days {
			cols = append(cols, gridColumn{width: m.weekColumnWidth(), boxes: projectBoxes(d.Events, m.weekColumnWidth())})
			if r := m.nowRow(d.Date); r >= 0 {
				paint.nowRow = r
			}
		}
		grid = renderGrid(cols, paint)
	} else {
		paint.nowRow = m.nowRow(m.day)
		grid = renderGrid([]gridColumn{{width: m.gridWidth(), boxes: m.dayBoxes()}}, paint)
	}
	lines = append(lines, normalizePane(grid, m.width, m.gridHeight()))

	if m.composing {
		lines = append(lines, normalizePane(m.input.View(), m.width, 1))
	} else {
		lines = append(lines, normalizePane(m.theme.status(m.statusErr).Render(m.status), m.width, 1))
	}
	lines = append(lines, m.help.View(m.keys))
	return strings.Join(lines, "\n")
}

func (m appModel) legend() string {
	parts := make([]string, 0, len(m.db.Calendars))
	for _, c := range m.db.Calendars {
		mark := "●"
		if !c.Visible {
			mark = "○"
		}
		st := lipgloss.NewStyle()
		if !m.theme.mono && c.Color != "" {
			st = st.Foreground(lipgloss.Color(c.Color))
		}
		parts = append(parts, st.Render(mark)+" "+c.Label)
	}
	return strings.Join(parts, "   ")
}

func (m appModel) weekHeader() string {
	first := layout.StartOfWeek(m.day, m.weekStart)
	w := m.weekColumnWidth()
	var b strings.Builder
	b.WriteString(strings.Repeat(" ", gutterWidth))
	for i := 0; i < layout.DaysInWeek; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		d := first.AddDate(0, 0, i)
		label := fitWidth(d.Format("Mon 2"), w)
		if layout.SameDay(d, m.now().In(m.loc)) {
			label = m.theme.header().Render(label)
		}
		b.WriteString(label)
	}
	return b.String()
}
