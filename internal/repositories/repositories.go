// package repositories provides SQLite persistence for the client's saved state.
package repositories

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/desertthunder/vibe/internal/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// WithTx runs fn in a transaction, committing when it returns nil.
func WithTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// encodeSong serializes a song for a payload column.
func encodeSong(song models.Song) (string, error) {
	data, err := json.Marshal(song)
	if err != nil {
		return "", fmt.Errorf("failed to encode song %s: %w", song.ID, err)
	}
	return string(data), nil
}

func decodeSong(payload string) (models.Song, error) {
	var song models.Song
	if err := json.Unmarshal([]byte(payload), &song); err != nil {
		return song, fmt.Errorf("failed to decode song: %w", err)
	}
	return song, nil
}

// nullString maps "" to NULL.
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
