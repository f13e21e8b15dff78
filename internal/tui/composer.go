package tui

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"daygrid/internal/drag"
	"daygrid/internal/layout"
	"daygrid/internal/store"
)

func (m appModel) updateComposer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.composing = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		in, err := parseQuickEvent(m.input.Value(), m.day, m.now().In(m.loc), m.snapMinutes)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		ev, err := m.store.CreateEvent(in)
		if err != nil {
			m.setStatus(err.Error(), true)
			return m, nil
		}
		m.composing = false
		m.input.Blur()
		m.reload()
		m.selectedID = ev.ID
		m.setStatus("created "+ev.ID, false)
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

var quickRange = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?\s*-\s*(\d{1,2})(?::(\d{2}))?\s+(.+)$`)

// parseQuickEvent reads "HH[:MM]-HH[:MM] Title" or just "Title". A bare
// title gets an hour at the next free slot today, or 09:00 on other days.
func parseQuickEvent(s string, day, now time.Time, snap int) (store.EventInput, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return store.EventInput{}, errors.New("title is empty")
	}
	if g := quickRange.FindStringSubmatch(s); g != nil {
		start, err := clockMinutes(g[1], g[2])
		if err != nil {
			return store.EventInput{}, err
		}
		end, err := clockMinutes(g[3], g[4])
		if err != nil {
			return store.EventInput{}, err
		}
		if end <= start {
			return store.EventInput{}, fmt.Errorf("end %s is not after start", strings.TrimSpace(g[3]+":"+g[4]))
		}
		return store.EventInput{
			Title: strings.TrimSpace(g[5]),
			Start: drag.AddMinutes(day, float64(start)),
			End:   drag.AddMinutes(day, float64(end)),
		}, nil
	}

	start := 9 * 60.0
	if sameDate(day, now) {
		start = math.Ceil(drag.MinutesBetween(day, now)/float64(snap)) * float64(snap)
	}
	start = drag.Clamp(start, 0, layout.MinutesInDay-60)
	return store.EventInput{
		Title: s,
		Start: drag.AddMinutes(day, start),
		End:   drag.AddMinutes(day, start+60),
	}, nil
}

func clockMinutes(h, m string) (int, error) {
	hh, err := strconv.Atoi(h)
	if err != nil {
		return 0, err
	}
	mm := 0
	if m != "" {
		if mm, err = strconv.Atoi(m); err != nil {
			return 0, err
		}
	}
	if hh > 24 || mm > 59 || (hh == 24 && mm != 0) {
		return 0, fmt.Errorf("invalid time %02d:%02d", hh, mm)
	}
	return hh*60 + mm, nil
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.In(a.Location()).Date()
	return ay == by && am == bm && ad == bd
}
