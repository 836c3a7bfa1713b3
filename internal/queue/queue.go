package queue

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a queued submission.
//
// Valid transitions: pending → synced, pending → failed, and
// pending → pending when a server download overwrites the payload.
// Failed items are never swept by the sync timer; only explicit user
// action moves them again.
type Status string

const (
	StatusPending Status = "pending"
	StatusSynced  Status = "synced"
	StatusFailed  Status = "failed"
)

// ErrNotFound is returned by mutations targeting an id that is not in
// the queue.
var ErrNotFound = errors.New("queue: submission not found")

// Item is one locally persisted, not-yet-confirmed form submission.
type Item struct {
	ID           string          `json:"id"`
	FormTitle    string          `json:"formTitle"`
	Payload      json.RawMessage `json:"formData"`
	Status       Status          `json:"status"`
	SyncAttempts int             `json:"syncAttempts"`
	// ServerData holds the server's snapshot recorded on a conflict, so
	// the user can diff before resolving. Nil otherwise.
	ServerData json.RawMessage `json:"serverData,omitempty"`
	CreatedAt  time.Time       `json:"timestamp"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// ListResult reports the items read and whether unreadable rows were
// dropped to produce them. Degraded reads are logged, never returned as
// errors: the queue favors availability over strict durability.
type ListResult struct {
	Items    []Item
	Degraded bool
}

// counterName keys the persisted monotonic id counter.
const counterName = "submission_id"

// Enqueue creates a pending submission and returns its id.
//
// The id combines the enqueue time with a persisted monotonic counter
// (form_<unixms>_<n>), so ids stay unique under rapid enqueues and across
// process restarts. Unlike the rest of the store, Enqueue failures
// propagate: this is a user-initiated, synchronously observed action.
func (s *Store) Enqueue(payload json.RawMessage, formTitle string) (string, error) {
	if !json.Valid(payload) {
		return "", fmt.Errorf("enqueue: payload is not valid JSON")
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("enqueue: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		"INSERT INTO counters(name, value) VALUES(?, 0) ON CONFLICT(name) DO NOTHING",
		counterName,
	); err != nil {
		return "", fmt.Errorf("enqueue: seed counter: %w", err)
	}
	if _, err := tx.Exec(
		"UPDATE counters SET value = value + 1 WHERE name = ?", counterName,
	); err != nil {
		return "", fmt.Errorf("enqueue: bump counter: %w", err)
	}
	var n int64
	if err := tx.QueryRow(
		"SELECT value FROM counters WHERE name = ?", counterName,
	).Scan(&n); err != nil {
		return "", fmt.Errorf("enqueue: read counter: %w", err)
	}

	now := s.now()
	id := fmt.Sprintf("form_%d_%d", now.UnixMilli(), n)

	if _, err := tx.Exec(`
		INSERT INTO submissions (id, form_title, payload, status, sync_attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)`,
		id, formTitle, string(payload), StatusPending, now.UnixMilli(), now.UnixMilli(),
	); err != nil {
		return "", fmt.Errorf("enqueue: insert: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("enqueue: commit: %w", err)
	}
	return id, nil
}

// ListAll returns every queued submission, oldest first.
func (s *Store) ListAll() ListResult {
	return s.list("SELECT id, form_title, payload, status, sync_attempts, server_data, created_at, updated_at FROM submissions ORDER BY created_at, id")
}

// ListPending returns submissions still awaiting sync, oldest first.
func (s *Store) ListPending() ListResult {
	return s.list(
		"SELECT id, form_title, payload, status, sync_attempts, server_data, created_at, updated_at FROM submissions WHERE status = ? ORDER BY created_at, id",
		StatusPending,
	)
}

// CountPending returns the number of pending submissions. Read failures
// degrade to zero.
func (s *Store) CountPending() int {
	var n int
	if err := s.db.QueryRow(
		"SELECT COUNT(*) FROM submissions WHERE status = ?", StatusPending,
	).Scan(&n); err != nil {
		s.log.Warn("count pending degraded to zero", "error", err)
		return 0
	}
	return n
}

// Get returns one submission by id.
func (s *Store) Get(id string) (Item, error) {
	row := s.db.QueryRow(
		"SELECT id, form_title, payload, status, sync_attempts, server_data, created_at, updated_at FROM submissions WHERE id = ?",
		id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Item{}, ErrNotFound
	}
	if err != nil {
		return Item{}, fmt.Errorf("get %s: %w", id, err)
	}
	return item, nil
}

// SetStatus moves a submission to the given status and bumps updated_at.
func (s *Store) SetStatus(id string, status Status) error {
	return s.mutate(id, "UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?",
		status, s.now().UnixMilli(), id)
}

// SetPayload overwrites a submission's payload (server-download case) and
// bumps updated_at.
func (s *Store) SetPayload(id string, payload json.RawMessage) error {
	if !json.Valid(payload) {
		return fmt.Errorf("set payload %s: not valid JSON", id)
	}
	return s.mutate(id, "UPDATE submissions SET payload = ?, updated_at = ? WHERE id = ?",
		string(payload), s.now().UnixMilli(), id)
}

// SetServerData records the server's snapshot on a conflicted submission.
func (s *Store) SetServerData(id string, serverData json.RawMessage) error {
	var stored any
	if serverData != nil {
		if !json.Valid(serverData) {
			return fmt.Errorf("set server data %s: not valid JSON", id)
		}
		stored = string(serverData)
	}
	return s.mutate(id, "UPDATE submissions SET server_data = ?, updated_at = ? WHERE id = ?",
		stored, s.now().UnixMilli(), id)
}

// IncrementAttempts bumps the sync attempt counter and returns the new
// count.
func (s *Store) IncrementAttempts(id string) (int, error) {
	if err := s.mutate(id,
		"UPDATE submissions SET sync_attempts = sync_attempts + 1, updated_at = ? WHERE id = ?",
		s.now().UnixMilli(), id); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow(
		"SELECT sync_attempts FROM submissions WHERE id = ?", id,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("read attempts %s: %w", id, err)
	}
	return n, nil
}

// Delete removes one submission.
func (s *Store) Delete(id string) error {
	res, err := s.db.Exec("DELETE FROM submissions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearAll removes every submission and resets the id counter.
func (s *Store) ClearAll() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("clear: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM submissions"); err != nil {
		return fmt.Errorf("clear: submissions: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM counters WHERE name = ?", counterName); err != nil {
		return fmt.Errorf("clear: counter: %w", err)
	}
	return tx.Commit()
}

func (s *Store) mutate(id, query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) list(query string, args ...any) ListResult {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		s.log.Warn("queue read degraded to empty", "error", err)
		return ListResult{Degraded: true}
	}
	defer rows.Close()

	var out ListResult
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			s.log.Warn("dropping unreadable queue row", "error", err)
			out.Degraded = true
			continue
		}
		out.Items = append(out.Items, item)
	}
	if err := rows.Err(); err != nil {
		s.log.Warn("queue read ended early", "error", err)
		out.Degraded = true
	}
	return out
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanItem(sc scanner) (Item, error) {
	var (
		item       Item
		payload    string
		serverData sql.NullString
		createdMs  int64
		updatedMs  int64
	)
	if err := sc.Scan(
		&item.ID, &item.FormTitle, &payload, &item.Status,
		&item.SyncAttempts, &serverData, &createdMs, &updatedMs,
	); err != nil {
		return Item{}, err
	}
	if !json.Valid([]byte(payload)) {
		return Item{}, fmt.Errorf("corrupt payload for %s", item.ID)
	}
	item.Payload = json.RawMessage(payload)
	if serverData.Valid {
		if !json.Valid([]byte(serverData.String)) {
			return Item{}, fmt.Errorf("corrupt server data for %s", item.ID)
		}
		item.ServerData = json.RawMessage(serverData.String)
	}
	item.CreatedAt = time.UnixMilli(createdMs)
	item.UpdatedAt = time.UnixMilli(updatedMs)
	return item, nil
}
