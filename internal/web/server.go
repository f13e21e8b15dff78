package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/CAFxX/httpcompression"

	"daygrid/internal/layout"
	appLog "daygrid/internal/log"
	"daygrid/internal/store"
)

//go:embed templates/*.html static/*.js static/*.css
var assetsFS embed.FS

type ServerConfig struct {
	Addr     string
	Dir      string
	ReadOnly bool

	// Location interprets ?date= values and renders clocks; nil means time.Local.
	Location  *time.Location
	WeekStart time.Weekday

	HourHeight        float64
	SnapMinutes       int
	DayMinimumHeight  float64
	WeekMinimumHeight float64

	// Refresh is a cron spec for re-syncing feeds.yaml; empty disables it.
	Refresh string

	// BasicAuth protects everything but /health when both fields are set.
	BasicAuthUser     string
	BasicAuthPassword string

	// PollInterval is how often the store is checked for outside changes.
	PollInterval time.Duration
}

type Server struct {
	mu   sync.RWMutex
	cfg  ServerConfig
	tmpl *template.Template

	bc        *changeBroadcaster
	refresher *feedRefresher
	now       func() time.Time
}

func (s *Server) cfgSnapshot() ServerConfig {
	s.mu.RLock()
	cfg := s.cfg
	s.mu.RUnlock()
	return cfg
}

func (s *Server) store() store.Store {
	return store.Store{Dir: s.cfgSnapshot().Dir}
}

func (s *Server) location() *time.Location {
	if loc := s.cfgSnapshot().Location; loc != nil {
		return loc
	}
	return time.Local
}

func NewServer(cfg ServerConfig) (*Server, error) {
	cfg.Addr = strings.TrimSpace(cfg.Addr)
	cfg.Dir = strings.TrimSpace(cfg.Dir)
	cfg.Refresh = strings.TrimSpace(cfg.Refresh)
	if cfg.Addr == "" {
		return nil, errors.New("web: addr is empty")
	}
	if cfg.Dir == "" {
		return nil, errors.New("web: dir is empty")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if !(cfg.HourHeight > 0) {
		cfg.HourHeight = store.DefaultHourHeight
	}
	if cfg.SnapMinutes <= 0 {
		cfg.SnapMinutes = store.DefaultSnapMinutes
	}
	if cfg.DayMinimumHeight == 0 {
		cfg.DayMinimumHeight = store.DefaultDayMinimumHeight
	}
	if cfg.WeekMinimumHeight == 0 {
		cfg.WeekMinimumHeight = store.DefaultWeekMinimumHeight
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	tmpl, err := template.New("base").Funcs(template.FuncMap{
		"trim": strings.TrimSpace,
	}).ParseFS(assetsFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	srv := &Server{cfg: cfg, tmpl: tmpl, now: time.Now}
	if cfg.Refresh != "" {
		r, err := newFeedRefresher(store.Store{Dir: cfg.Dir}, cfg.Refresh, cfg.Location)
		if err != nil {
			return nil, err
		}
		srv.refresher = r
	}
	srv.bc = newChangeBroadcaster(store.Store{Dir: cfg.Dir}, cfg.PollInterval)
	go srv.bc.watchLoop()
	if srv.refresher != nil {
		srv.refresher.onSynced = srv.bc.broadcast
		srv.refresher.Start()
	}
	return srv, nil
}

func (s *Server) Addr() string { return s.cfgSnapshot().Addr }

// Close stops background work. It does not close listeners.
func (s *Server) Close() {
	if s.refresher != nil {
		s.refresher.Stop()
	}
	s.bc.Stop()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	defer s.Close()
	hs := &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- hs.ListenAndServe() }()
	appLog.Info("web: listening", "addr", "http://"+s.Addr(), "dir", s.cfgSnapshot().Dir)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hs.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Handler() http.Handler {
	compress, err := httpcompression.DefaultAdapter()
	if err != nil {
		appLog.Error("web: compression disabled", err)
		compress = func(h http.Handler) http.Handler { return h }
	}
	c := func(fn http.HandlerFunc) http.Handler { return compress(fn) }

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /api/day", c(s.handleAPIDay))
	mux.Handle("GET /api/week", c(s.handleAPIWeek))
	mux.HandleFunc("POST /api/events/{eventId}/move", s.handleAPIMove)
	mux.Handle("GET /day", c(s.handleDayPage))
	mux.Handle("GET /agenda", c(s.handleAgenda))
	mux.Handle("GET /static/app.css", c(s.handleStatic("static/app.css", "text/css; charset=utf-8")))
	mux.Handle("GET /static/app.js", c(s.handleStatic("static/app.js", "text/javascript; charset=utf-8")))
	// Streams and upgrades need the raw writer for flushing and hijacking.
	mux.HandleFunc("GET /day/stream", s.handleDayStream)
	mux.HandleFunc("GET /ws/drag", s.handleDragSocket)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/day", http.StatusFound)
	})

	cfg := s.cfgSnapshot()
	if cfg.BasicAuthUser != "" && cfg.BasicAuthPassword != "" {
		appLog.Info("web: basic auth enabled")
		return basicAuth(mux, cfg.BasicAuthUser, cfg.BasicAuthPassword)
	}
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatic(name, contentType string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := assetsFS.ReadFile(name)
		if err != nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(b)
	}
}

func (s *Server) renderTemplate(name string, data any) (string, error) {
	var b strings.Builder
	if err := s.tmpl.ExecuteTemplate(&b, name, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (s *Server) writeHTMLTemplate(w http.ResponseWriter, name string, data any) {
	html, err := s.renderTemplate(name, data)
	if err != nil {
		appLog.Error("web: render failed", err, "template", name)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}

// dayParam parses ?date=YYYY-MM-DD in the server location, defaulting to today.
func (s *Server) dayParam(r *http.Request) (time.Time, error) {
	loc := s.location()
	raw := strings.TrimSpace(r.URL.Query().Get("date"))
	if raw == "" {
		return layout.StartOfDay(s.now().In(loc)), nil
	}
	t, err := time.ParseInLocation("2006-01-02", raw, loc)
	if err != nil {
		return time.Time{}, errors.New("date must be YYYY-MM-DD")
	}
	return t, nil
}

func (s *Server) dayOptions(day time.Time) layout.Options {
	cfg := s.cfgSnapshot()
	return layout.Options{HourHeight: cfg.HourHeight, MinimumHeight: cfg.DayMinimumHeight, DayStart: day}
}
