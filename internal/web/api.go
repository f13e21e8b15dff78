package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"daygrid/internal/layout"
	appLog "daygrid/internal/log"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

type dayResponse struct {
	Date       string              `json:"date"`
	HourHeight float64             `json:"hourHeight"`
	Events     []layout.Positioned `json:"events"`
}

type weekResponse struct {
	WeekStart string        `json:"weekStart"`
	Days      []dayResponse `json:"days"`
}

type moveRequest struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any{"data": v}); err != nil {
		appLog.Error("web: write json failed", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) loadDB(w http.ResponseWriter) (*store.DB, bool) {
	db, err := s.store().Load()
	if err != nil {
		appLog.Error("web: load store failed", err)
		writeError(w, http.StatusInternalServerError, "failed to load store")
		return nil, false
	}
	return db, true
}

func (s *Server) handleAPIDay(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	db, ok := s.loadDB(w)
	if !ok {
		return
	}
	opts := s.dayOptions(day)
	writeJSON(w, http.StatusOK, dayResponse{
		Date:       day.Format("2006-01-02"),
		HourHeight: opts.HourHeight,
		Events:     layout.LayoutDay(db.DayEvents(day), opts),
	})
}

func (s *Server) handleAPIWeek(w http.ResponseWriter, r *http.Request) {
	day, err := s.dayParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	db, ok := s.loadDB(w)
	if !ok {
		return
	}
	cfg := s.cfgSnapshot()
	first := layout.StartOfWeek(day, cfg.WeekStart)
	events := db.VisibleEventsBetween(first, first.AddDate(0, 0, layout.DaysInWeek))
	opts := layout.Options{HourHeight: cfg.HourHeight, MinimumHeight: cfg.WeekMinimumHeight}

	resp := weekResponse{WeekStart: first.Format("2006-01-02")}
	for _, d := range layout.LayoutWeek(events, day, cfg.WeekStart, opts) {
		resp.Days = append(resp.Days, dayResponse{
			Date:       d.Date.Format("2006-01-02"),
			HourHeight: cfg.HourHeight,
			Events:     d.Events,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAPIMove(w http.ResponseWriter, r *http.Request) {
	if s.cfgSnapshot().ReadOnly {
		writeError(w, http.StatusForbidden, "server is read-only")
		return
	}
	id := strings.TrimSpace(r.PathValue("eventId"))
	var req moveRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	ev, err := s.commitMove(model.Draft{ID: id, Start: req.Start, End: req.End})
	if err != nil {
		writeError(w, moveErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// commitMove persists a draft and wakes live views.
func (s *Server) commitMove(d model.Draft) (model.Event, error) {
	ev, err := s.store().MoveEvent(d)
	if err != nil {
		return model.Event{}, err
	}
	appLog.Info("web: event moved", "event", ev.ID, "start", ev.Start.Format(time.RFC3339), "end", ev.End.Format(time.RFC3339))
	s.bc.broadcast()
	return ev, nil
}

func moveErrorStatus(err error) int {
	switch {
	case errors.Is(err, store.ErrEventNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidInterval):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
