// Package store persists the player's queue state to SQLite so a
// restarted session can resume where it left off.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"

	"github.com/cockroachdb/errors"
	_ "github.com/mattn/go-sqlite3"

	"github.com/venuekit/venuebox/internal/domain/track"
)

//go:embed schema.sql
var schema string

// ErrNoSnapshot is returned by Load when nothing has been persisted yet.
var ErrNoSnapshot = errors.New("no persisted snapshot")

// PersistedQueue is the durable subset of player state. Transient fields
// (position, status detail) are deliberately not persisted; a restart
// resumes at the head of the current track.
type PersistedQueue struct {
	Active     []track.Track `json:"active"`
	Priority   []track.Track `json:"priority"`
	QueueIndex int           `json:"queueIndex"`
	Current    *track.Track  `json:"current,omitempty"`
	WasPlaying bool          `json:"wasPlaying"`
	Volume     float64       `json:"volume"`
}

// Store is a single-row SQLite snapshot store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the snapshot database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "failed to open snapshot db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply schema")
	}
	return &Store{db: db}, nil
}

// Save upserts the single persisted snapshot row.
func (s *Store) Save(ctx context.Context, sessionID string, q PersistedQueue) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO player_snapshot (id, session_id, payload, saved_at)
		VALUES (1, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			session_id = excluded.session_id,
			payload    = excluded.payload,
			saved_at   = excluded.saved_at
	`, sessionID, string(payload))
	return errors.Wrap(err, "failed to save snapshot")
}

// Load returns the persisted snapshot, ErrNoSnapshot when the row does
// not exist, or an error for a corrupt payload. Callers treat a corrupt
// payload like an empty state after logging it.
func (s *Store) Load(ctx context.Context) (sessionID string, q PersistedQueue, err error) {
	var payload string
	row := s.db.QueryRowContext(ctx, `SELECT session_id, payload FROM player_snapshot WHERE id = 1`)
	if err := row.Scan(&sessionID, &payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", PersistedQueue{}, ErrNoSnapshot
		}
		return "", PersistedQueue{}, errors.Wrap(err, "failed to read snapshot")
	}

	if err := json.Unmarshal([]byte(payload), &q); err != nil {
		return "", PersistedQueue{}, errors.Wrap(err, "corrupt snapshot payload")
	}
	return sessionID, q, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
