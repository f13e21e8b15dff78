package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/starfederation/datastar-go/datastar"

	"daygrid/internal/layout"
	"daygrid/internal/store"
)

type hourVM struct {
	Label string
	Top   float64
}

type eventVM struct {
	ID       string
	Title    string
	Time     string
	Calendar string
	Color    string
	Top      float64
	Height   float64
	LeftPct  float64
	WidthPct float64
	Z        int
}

type dayVM struct {
	Date        string
	Title       string
	Prev        string
	Next        string
	ReadOnly    bool
	HourHeight  float64
	SnapMinutes int
	GridHeight  float64
	Hours       []hourVM
	Events      []eventVM
	ShowNow     bool
	NowTop      float64
	ScrollTop   float64
	StreamURL   string
}

var calendarPalette = []string{"#4f7cff", "#e8833a", "#3aa876", "#c2185b", "#7e57c2", "#00897b"}

func (s *Server) dayViewModel(db *store.DB, day time.Time) dayVM {
	cfg := s.cfgSnapshot()
	opts := s.dayOptions(day)
	positioned := layout.LayoutDay(db.DayEvents(day), opts)

	colors := map[string]string{}
	labels := map[string]string{}
	for i, c := range db.Calendars {
		labels[c.ID] = c.Label
		colors[c.ID] = c.Color
		if colors[c.ID] == "" {
			colors[c.ID] = calendarPalette[i%len(calendarPalette)]
		}
	}

	vm := dayVM{
		Date:        day.Format("2006-01-02"),
		Title:       day.Format("Monday, January 2 2006"),
		Prev:        day.AddDate(0, 0, -1).Format("2006-01-02"),
		Next:        day.AddDate(0, 0, 1).Format("2006-01-02"),
		ReadOnly:    cfg.ReadOnly,
		HourHeight:  opts.HourHeight,
		SnapMinutes: cfg.SnapMinutes,
		GridHeight:  24 * opts.HourHeight,
		ScrollTop:   layout.ScrollTarget(positioned, opts.HourHeight),
		StreamURL:   "/day/stream?date=" + day.Format("2006-01-02"),
	}
	for h := 0; h < 24; h++ {
		vm.Hours = append(vm.Hours, hourVM{Label: fmt.Sprintf("%02d:00", h), Top: float64(h) * opts.HourHeight})
	}
	for _, p := range positioned {
		color := p.Color
		if color == "" {
			color = colors[p.CalendarID]
		}
		vm.Events = append(vm.Events, eventVM{
			ID:       p.ID,
			Title:    p.Title,
			Time:     p.Start.Format("15:04") + "–" + p.End.Format("15:04"),
			Calendar: labels[p.CalendarID],
			Color:    color,
			Top:      p.Top,
			Height:   p.Height,
			LeftPct:  p.Left() * 100,
			WidthPct: p.Width * 100,
			Z:        p.ZIndex,
		})
	}
	if now := s.now().In(s.location()); layout.SameDay(now, day) {
		vm.ShowNow = true
		vm.NowTop = layout.NowOffset(now, opts.HourHeight)
	}
	return vm
}

func (s *Server) handleDayPage(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	db, err := s.store().Load()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.writeHTMLTemplate(w, "day.html", s.dayViewModel(db, day))
}

// handleDayStream keeps #daygrid-main in sync with the store over SSE.
func (s *Server) handleDayStream(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayParam(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	render := func() (string, error) {
		db, err := s.store().Load()
		if err != nil {
			return "", err
		}
		return s.renderTemplate("day_main", s.dayViewModel(db, day))
	}
	s.serveDatastarElementsStream(w, r, "#daygrid-main", datastar.ElementPatchModeOuter, render)
}

func (s *Server) serveDatastarElementsStream(w http.ResponseWriter, r *http.Request, selector string, mode datastar.ElementPatchMode, render func() (string, error)) {
	sse := datastar.NewSSE(w, r)

	ch, cancel := s.bc.subscribe()
	defer cancel()

	version := func() string { return s.bc.Version().UTC().Format(time.RFC3339Nano) }
	_ = sse.MarshalAndPatchSignals(map[string]any{"storeVersion": version()})

	keepAlive := time.NewTicker(25 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-sse.Context().Done():
			return
		case <-keepAlive.C:
			_ = sse.PatchSignals([]byte(`{}`))
		case <-ch:
			html, err := render()
			if err != nil {
				_ = sse.ExecuteScript(fmt.Sprintf(`console.error(%q)`, err.Error()))
				continue
			}
			if strings.TrimSpace(html) == "" {
				continue
			}
			_ = sse.PatchElements(html, datastar.WithSelector(selector), datastar.WithMode(mode))
			_ = sse.MarshalAndPatchSignals(map[string]any{"storeVersion": version()})
		}
	}
}
