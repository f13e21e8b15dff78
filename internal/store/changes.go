package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"daygrid/internal/model"
)

// Change types recorded in the append-only history.
const (
	ChangeEventCreate        = "event.create"
	ChangeEventUpdate        = "event.update"
	ChangeEventMove          = "event.move"
	ChangeEventDelete        = "event.delete"
	ChangeCalendarCreate     = "calendar.create"
	ChangeCalendarVisibility = "calendar.visibility"
	ChangeICSImport          = "ics.import"
)

type pendingChange struct {
	typ      string
	entityID string
	payload  any
}

// update loads state, applies fn, then saves state and appends the change it
// returns in a single transaction.
func (s Store) update(ctx context.Context, fn func(db *DB) (pendingChange, error)) (*DB, error) {
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	st, err := loadStateFromSQLite(ctx, db)
	if err != nil {
		return nil, err
	}
	ch, err := fn(st)
	if err != nil {
		return nil, err
	}
	st.invalidate()

	tx, err := db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := saveStateTx(ctx, tx, st); err != nil {
		return nil, err
	}
	if err := appendChangeTx(ctx, tx, ch.typ, ch.entityID, ch.payload); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return st, nil
}

func appendChangeTx(ctx context.Context, tx *sql.Tx, typ, entityID string, payload any) error {
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return errors.New("change: missing type")
	}
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return errors.New("change: missing entity id")
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("change payload: %w", err)
	}
	id, err := newRandomID(changeIDPrefix)
	if err != nil {
		return err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(entity_seq), 0) + 1 FROM changes WHERE entity_id = ?`, entityID).Scan(&seq); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO changes(change_id, entity_id, entity_seq, type, payload_json, issued_at_unixms, created_at_unixns)
		VALUES(?, ?, ?, ?, ?, ?, ?)
	`, id, entityID, seq, typ, string(pb), now.UnixMilli(), now.UnixNano())
	return err
}

// ReadChanges returns the newest limit changes in chronological order. limit <= 0 means all.
func (s Store) ReadChanges(limit int) ([]model.Change, error) {
	ctx := context.Background()
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT change_id, issued_at_unixms, type, entity_id, payload_json FROM changes ORDER BY created_at_unixns DESC, rowid DESC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, limit)
	} else {
		rows, err = db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out, err := scanChanges(rows)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// ReadChangesForEntity returns the history of one event or calendar, oldest first.
func (s Store) ReadChangesForEntity(entityID string, limit int) ([]model.Change, error) {
	entityID = strings.TrimSpace(entityID)
	if entityID == "" {
		return []model.Change{}, nil
	}
	ctx := context.Background()
	db, err := s.openSQLite(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	q := `SELECT change_id, issued_at_unixms, type, entity_id, payload_json FROM changes WHERE entity_id = ? ORDER BY entity_seq ASC`
	var rows *sql.Rows
	if limit > 0 {
		rows, err = db.QueryContext(ctx, q+` LIMIT ?`, entityID, limit)
	} else {
		rows, err = db.QueryContext(ctx, q, entityID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChanges(rows)
}

func scanChanges(rows *sql.Rows) ([]model.Change, error) {
	out := []model.Change{}
	for rows.Next() {
		var id, typ, entityID, payloadJSON string
		var tsMs int64
		if err := rows.Scan(&id, &tsMs, &typ, &entityID, &payloadJSON); err != nil {
			return nil, err
		}
		var payload any
		_ = json.Unmarshal([]byte(payloadJSON), &payload)
		out = append(out, model.Change{
			ID:       id,
			TS:       time.UnixMilli(tsMs).UTC(),
			Type:     typ,
			EntityID: entityID,
			Payload:  payload,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
