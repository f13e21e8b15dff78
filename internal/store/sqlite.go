package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"daygrid/internal/model"

	_ "modernc.org/sqlite"
)

const sqliteFileName = "daygrid.sqlite"

func (s Store) sqlitePath() string {
	return filepath.Join(filepath.Clean(s.Dir), sqliteFileName)
}

// ModTime is the latest modification time of the database files. Watchers
// (TUI, web stream) poll it to notice writes from other processes.
func (s Store) ModTime() time.Time {
	var latest time.Time
	for _, p := range []string{s.sqlitePath(), s.sqlitePath() + "-wal"} {
		if st, err := os.Stat(p); err == nil && st.ModTime().After(latest) {
			latest = st.ModTime()
		}
	}
	return latest
}

func (s Store) openSQLite(ctx context.Context) (*sql.DB, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.sqlitePath())
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI, CLI and web server share a workspace; busy_timeout covers short write overlaps.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateSQLite(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func migrateSQLite(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS state_meta (
			k TEXT PRIMARY KEY,
			v TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS calendars (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			visible INTEGER NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS events (
			id TEXT PRIMARY KEY,
			calendar_id TEXT NOT NULL,
			start_unixms INTEGER NOT NULL,
			end_unixms INTEGER NOT NULL,
			source TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at_unixms INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_events_calendar ON events(calendar_id);`,
		`CREATE INDEX IF NOT EXISTS idx_events_start ON events(start_unixms);`,
		`CREATE TABLE IF NOT EXISTS changes (
			change_id TEXT PRIMARY KEY,
			entity_id TEXT NOT NULL,
			entity_seq INTEGER NOT NULL,
			type TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			issued_at_unixms INTEGER NOT NULL,
			created_at_unixns INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_changes_entity ON changes(entity_id, entity_seq);`,
		`CREATE INDEX IF NOT EXISTS idx_changes_created ON changes(created_at_unixns);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (s Store) LoadSQLite(ctx context.Context) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return loadStateFromSQLite(ctx, db)
}

func (s Store) SaveSQLite(ctx context.Context, st *DB) error {
	if st == nil {
		return errors.New("nil db")
	}
	db, err := s.openSQLite(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveStateTx(ctx, tx, st); err != nil {
		return err
	}
	return tx.Commit()
}

// saveStateTx replaces all persisted state with st.
func saveStateTx(ctx context.Context, tx *sql.Tx, st *DB) error {
	meta := map[string]string{
		"version":             strconv.Itoa(st.Version),
		"current_calendar_id": strings.TrimSpace(st.CurrentCalendarID),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO state_meta(k, v) VALUES(?, ?)`, k, v); err != nil {
			return err
		}
	}

	for _, t := range []string{"calendars", "events"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+t); err != nil {
			return err
		}
	}

	nowMs := time.Now().UTC().UnixMilli()
	for _, c := range st.Calendars {
		raw, err := json.Marshal(c)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO calendars(id, label, visible, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?)`,
			c.ID, c.Label, boolToInt(c.Visible), string(raw), nowMs); err != nil {
			return err
		}
	}
	for _, ev := range st.Events {
		raw, err := json.Marshal(ev)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO events(id, calendar_id, start_unixms, end_unixms, source, json, updated_at_unixms) VALUES(?, ?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.CalendarID, ev.Start.UTC().UnixMilli(), ev.End.UTC().UnixMilli(), strings.TrimSpace(ev.Source), string(raw), nowMs); err != nil {
			return err
		}
	}
	return nil
}

func loadStateFromSQLite(ctx context.Context, db *sql.DB) (*DB, error) {
	out := &DB{Version: 1}

	readMeta := func(k string) string {
		var v string
		_ = db.QueryRowContext(ctx, `SELECT v FROM state_meta WHERE k = ?`, k).Scan(&v)
		return strings.TrimSpace(v)
	}
	if v := readMeta("version"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			out.Version = n
		}
	}
	out.CurrentCalendarID = readMeta("current_calendar_id")

	cals, err := readJSONRows[model.Calendar](ctx, db, `SELECT json FROM calendars ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	events, err := readJSONRows[model.Event](ctx, db, `SELECT json FROM events ORDER BY start_unixms, id`)
	if err != nil {
		return nil, err
	}

	out.Calendars = cals
	out.Events = events
	if out.Calendars == nil {
		out.Calendars = []model.Calendar{}
	}
	if out.Events == nil {
		out.Events = []model.Event{}
	}
	return out, nil
}

func readJSONRows[T any](ctx context.Context, db *sql.DB, query string) ([]T, error) {
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var js string
		if err := rows.Scan(&js); err != nil {
			return nil, err
		}
		var v T
		if err := json.Unmarshal([]byte(js), &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
