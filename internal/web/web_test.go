package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"daygrid/internal/layout"
	"daygrid/internal/model"
	"daygrid/internal/store"
)

var testDay = time.Date(2026, 3, 16, 0, 0, 0, 0, time.UTC)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 16, h, m, 0, 0, time.UTC)
}

func newTestStore(t *testing.T) (store.Store, map[string]model.Event) {
	t.Helper()
	st := store.Store{Dir: t.TempDir()}
	if _, err := st.SeedDefaults(); err != nil {
		t.Fatalf("SeedDefaults: %v", err)
	}
	out := map[string]model.Event{}
	for _, in := range []store.EventInput{
		{CalendarID: "default", Title: "Design review", Start: at(9, 0), End: at(10, 0)},
		{CalendarID: "team", Title: "Standup", Start: at(9, 30), End: at(10, 30)},
		{CalendarID: "personal", Title: "Lunch", Start: at(12, 0), End: at(13, 0)},
	} {
		ev, err := st.CreateEvent(in)
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		out[ev.Title] = ev
	}
	return st, out
}

func newTestServer(t *testing.T, st store.Store, mutate func(*ServerConfig)) (*Server, *httptest.Server) {
	t.Helper()
	cfg := ServerConfig{
		Addr:         "127.0.0.1:0",
		Dir:          st.Dir,
		Location:     time.UTC,
		PollInterval: 20 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	srv, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	srv.now = func() time.Time { return at(11, 0) }
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return srv, ts
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		env := struct {
			Data json.RawMessage `json:"data"`
		}{}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("decode data: %v", err)
		}
	}
	return resp.StatusCode
}

func TestNewServer_Validates(t *testing.T) {
	if _, err := NewServer(ServerConfig{Dir: t.TempDir()}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
	if _, err := NewServer(ServerConfig{Addr: ":0"}); err == nil {
		t.Fatalf("expected error for empty dir")
	}
	if _, err := NewServer(ServerConfig{Addr: ":0", Dir: t.TempDir(), Refresh: "every tuesday"}); err == nil {
		t.Fatalf("expected error for a bad cron spec")
	}
}

func TestHealth(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || strings.TrimSpace(string(b)) != "ok" {
		t.Fatalf("unexpected health response %d %q", resp.StatusCode, b)
	}
}

func TestAPIDay_LaysOutOverlapsSideBySide(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	var day dayResponse
	if code := getJSON(t, ts.URL+"/api/day?date=2026-03-16", &day); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if day.Date != "2026-03-16" || day.HourHeight != 64 {
		t.Fatalf("unexpected header %+v", day)
	}
	if len(day.Events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(day.Events))
	}
	byID := map[string]layout.Positioned{}
	for _, p := range day.Events {
		byID[p.ID] = p
	}
	review, standup, lunch := byID[evs["Design review"].ID], byID[evs["Standup"].ID], byID[evs["Lunch"].ID]
	if review.Column == standup.Column || review.Width != 0.5 || standup.Width != 0.5 {
		t.Fatalf("overlapping events should share the width: %+v / %+v", review, standup)
	}
	if lunch.Width != 1 || lunch.Top != 12*64 {
		t.Fatalf("lunch should be full width at 12:00: %+v", lunch)
	}
}

func TestAPIDay_RejectsBadDate(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	if code := getJSON(t, ts.URL+"/api/day?date=16/03/2026", nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAPIWeek_ReturnsSevenDays(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, func(c *ServerConfig) { c.WeekStart = time.Monday })

	var week weekResponse
	if code := getJSON(t, ts.URL+"/api/week?date=2026-03-18", &week); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if week.WeekStart != "2026-03-16" || len(week.Days) != 7 {
		t.Fatalf("unexpected week %s with %d days", week.WeekStart, len(week.Days))
	}
	if len(week.Days[0].Events) != 3 {
		t.Fatalf("expected monday to carry 3 events, got %d", len(week.Days[0].Events))
	}
	for _, d := range week.Days[1:] {
		if len(d.Events) != 0 {
			t.Fatalf("expected %s to be empty", d.Date)
		}
	}
}

func postMove(t *testing.T, url string, start, end time.Time) int {
	t.Helper()
	body, _ := json.Marshal(moveRequest{Start: start, End: end})
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	return resp.StatusCode
}

func TestAPIMove_PersistsAndValidates(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	id := evs["Lunch"].ID

	if code := postMove(t, ts.URL+"/api/events/"+id+"/move", at(13, 0), at(14, 0)); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	db, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev, _ := db.FindEvent(id)
	if !ev.Start.Equal(at(13, 0)) || !ev.End.Equal(at(14, 0)) {
		t.Fatalf("move not persisted: %s-%s", ev.Start, ev.End)
	}

	if code := postMove(t, ts.URL+"/api/events/evt-missing/move", at(13, 0), at(14, 0)); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code := postMove(t, ts.URL+"/api/events/"+id+"/move", at(14, 0), at(13, 0)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestAPIMove_ReadOnly(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, func(c *ServerConfig) { c.ReadOnly = true })
	if code := postMove(t, ts.URL+"/api/events/"+evs["Lunch"].ID+"/move", at(13, 0), at(14, 0)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestDayPage_RendersGridAndReadyMarker(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	resp, err := http.Get(ts.URL + "/day?date=2026-03-16")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	html := string(b)
	for _, want := range []string{
		`data-ready="true"`,
		`id="daygrid-main"`,
		`data-event-id="` + evs["Standup"].ID + `"`,
		"Design review",
		"09:30–10:30",
		`class="now"`,
	} {
		if !strings.Contains(html, want) {
			t.Fatalf("expected page to contain %q", want)
		}
	}
}

func TestDayPage_IsCompressed(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	client := &http.Client{Transport: &http.Transport{DisableCompression: true}}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/day?date=2026-03-16", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}
}

func TestAgenda_RendersMarkdownAsHTML(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	resp, err := http.Get(ts.URL + "/agenda?date=2026-03-16")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	html := string(b)
	if !strings.Contains(html, "<h1>Monday, March 16 2026</h1>") {
		t.Fatalf("expected agenda heading, got:\n%s", html)
	}
	if !strings.Contains(html, "<strong>09:00–10:00</strong>") {
		t.Fatalf("expected bold time range, got:\n%s", html)
	}
}

func TestBasicAuth_GuardsEverythingButHealth(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, func(c *ServerConfig) {
		c.BasicAuthUser = "me"
		c.BasicAuthPassword = "secret"
	})

	if code := getJSON(t, ts.URL+"/health", nil); code != http.StatusOK {
		t.Fatalf("health should stay open, got %d", code)
	}
	if code := getJSON(t, ts.URL+"/api/day", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/day?date=2026-03-16", nil)
	req.SetBasicAuth("me", "secret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with credentials, got %d", resp.StatusCode)
	}
}

func dialDrag(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/drag"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) dragOutMsg {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var m dragOutMsg
	if err := conn.ReadJSON(&m); err != nil {
		t.Fatalf("read: %v", err)
	}
	return m
}

func TestDragSocket_MoveCommitsSnappedInterval(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	conn := dialDrag(t, ts)
	id := evs["Design review"].ID

	// 64px per hour: 09:00 sits at y=576 with the grid flush to the top.
	send := func(m dragInMsg) {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(dragInMsg{Type: "down", PointerID: 7, EventID: id, ClientY: 576})
	if m := readMsg(t, conn); m.Type != "preview" || !m.Draft.Start.Equal(at(9, 0)) {
		t.Fatalf("expected initial preview at 09:00, got %+v", m)
	}

	// Other pointers are ignored.
	send(dragInMsg{Type: "move", PointerID: 8, ClientY: 900})
	// One hour and a few pixels down snaps to 10:00.
	send(dragInMsg{Type: "move", PointerID: 7, ClientY: 643})
	m := readMsg(t, conn)
	if m.Type != "preview" || !m.Draft.Start.Equal(at(10, 0)) || !m.Draft.End.Equal(at(11, 0)) {
		t.Fatalf("expected preview 10:00-11:00, got %+v", m)
	}

	send(dragInMsg{Type: "up", PointerID: 7, ClientY: 643})
	if m := readMsg(t, conn); m.Type != "commit" || m.Event == nil || !m.Event.Start.Equal(at(10, 0)) {
		t.Fatalf("expected commit, got %+v", m)
	}
	if m := readMsg(t, conn); m.Type != "end" {
		t.Fatalf("expected end, got %+v", m)
	}

	db, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	ev, _ := db.FindEvent(id)
	if !ev.Start.Equal(at(10, 0)) || !ev.End.Equal(at(11, 0)) {
		t.Fatalf("move not persisted: %s-%s", ev.Start, ev.End)
	}
}

func TestDragSocket_ClickWithoutMoveDoesNotCommit(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	conn := dialDrag(t, ts)
	id := evs["Lunch"].ID

	_ = conn.WriteJSON(dragInMsg{Type: "down", PointerID: 1, EventID: id, ClientY: 800, Top: 40, ScrollTop: 50})
	if m := readMsg(t, conn); m.Type != "preview" {
		t.Fatalf("expected preview, got %+v", m)
	}
	_ = conn.WriteJSON(dragInMsg{Type: "up", PointerID: 1, ClientY: 800, Top: 40, ScrollTop: 50})
	if m := readMsg(t, conn); m.Type != "end" {
		t.Fatalf("expected end without commit, got %+v", m)
	}

	db, _ := st.Load()
	ev, _ := db.FindEvent(id)
	if !ev.Start.Equal(at(12, 0)) {
		t.Fatalf("event should not move, got %s", ev.Start)
	}
}

func TestDragSocket_ForeignUpIgnoredAndNewDownCancels(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	conn := dialDrag(t, ts)
	review, lunch := evs["Design review"].ID, evs["Lunch"].ID

	send := func(m dragInMsg) {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	send(dragInMsg{Type: "down", PointerID: 7, EventID: review, ClientY: 576})
	if m := readMsg(t, conn); m.Type != "preview" {
		t.Fatalf("expected preview, got %+v", m)
	}
	send(dragInMsg{Type: "move", PointerID: 7, ClientY: 643})
	if m := readMsg(t, conn); m.Type != "preview" {
		t.Fatalf("expected preview, got %+v", m)
	}

	// An up from another pointer leaves the gesture running.
	send(dragInMsg{Type: "up", PointerID: 9, ClientY: 900})
	send(dragInMsg{Type: "move", PointerID: 7, ClientY: 707})
	if m := readMsg(t, conn); m.Type != "preview" || !m.Draft.Start.Equal(at(11, 0)) {
		t.Fatalf("expected the gesture to continue at 11:00, got %+v", m)
	}

	// A new down cancels the gesture still in flight.
	send(dragInMsg{Type: "down", PointerID: 8, EventID: lunch, ClientY: 768})
	if m := readMsg(t, conn); m.Type != "end" {
		t.Fatalf("expected the first gesture to end, got %+v", m)
	}
	if m := readMsg(t, conn); m.Type != "preview" || m.Draft.ID != lunch {
		t.Fatalf("expected a preview for the new event, got %+v", m)
	}
	send(dragInMsg{Type: "up", PointerID: 8, ClientY: 768})
	if m := readMsg(t, conn); m.Type != "end" {
		t.Fatalf("expected end, got %+v", m)
	}

	db, _ := st.Load()
	ev, _ := db.FindEvent(review)
	if !ev.Start.Equal(at(9, 0)) {
		t.Fatalf("cancelled gesture must not move the event, got %s", ev.Start)
	}
}

func TestDragSocket_UnknownEvent(t *testing.T) {
	st, _ := newTestStore(t)
	_, ts := newTestServer(t, st, nil)
	conn := dialDrag(t, ts)

	_ = conn.WriteJSON(dragInMsg{Type: "down", PointerID: 1, EventID: "evt-nope"})
	if m := readMsg(t, conn); m.Type != "error" {
		t.Fatalf("expected error, got %+v", m)
	}
}

func TestDayStream_PatchesOnStoreChange(t *testing.T) {
	st, evs := newTestStore(t)
	_, ts := newTestServer(t, st, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/day/stream?date=2026-03-16", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	lines := make(chan string, 64)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()

	// Wait for the opening signals patch before changing anything.
	waitFor(t, lines, "datastar-patch-signals")

	if _, err := st.MoveEvent(model.Draft{ID: evs["Lunch"].ID, Start: at(14, 0), End: at(15, 0)}); err != nil {
		t.Fatalf("MoveEvent: %v", err)
	}
	waitFor(t, lines, "datastar-patch-elements")
	waitFor(t, lines, "14:00–15:00")
}

func waitFor(t *testing.T, lines <-chan string, needle string) {
	t.Helper()
	timeout := time.After(4 * time.Second)
	for {
		select {
		case l, ok := <-lines:
			if !ok {
				t.Fatalf("stream closed before %q", needle)
			}
			if strings.Contains(l, needle) {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %q", needle)
		}
	}
}

func TestFeedRefresher_ImportsLocalFeed(t *testing.T) {
	st, _ := newTestStore(t)
	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	stamp := func(h int) string {
		return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), h, 0, 0, 0, time.UTC).Format("20060102T150405Z")
	}
	body := strings.Join([]string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:-//daygrid//test//EN",
		"BEGIN:VEVENT",
		"UID:planning@example.com",
		"DTSTAMP:" + stamp(8),
		"DTSTART:" + stamp(10),
		"DTEND:" + stamp(11),
		"SUMMARY:Planning",
		"END:VEVENT",
		"END:VCALENDAR",
		"",
	}, "\r\n")
	path := filepath.Join(t.TempDir(), "team.ics")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := st.SaveFeeds(&store.FeedsFile{Feeds: []store.Feed{{ID: "team", URL: path, Calendar: "team"}}}); err != nil {
		t.Fatalf("SaveFeeds: %v", err)
	}

	r, err := newFeedRefresher(st, "@every 1h", time.UTC)
	if err != nil {
		t.Fatalf("newFeedRefresher: %v", err)
	}
	synced := false
	r.onSynced = func() { synced = true }
	r.run(context.Background())

	if !synced {
		t.Fatalf("expected onSynced to fire")
	}
	db, err := st.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	found := false
	for _, ev := range db.Events {
		if ev.Title == "Planning" && ev.CalendarID == "team" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected the feed event to be imported, got %s", fmt.Sprint(len(db.Events)))
	}
}
