package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/store"
)

// StateRepository persists the store's [models.PersistedState] across the preferences and liked_songs tables.
type StateRepository struct {
	db    *sql.DB
	liked *LikedSongRepository
}

var _ store.Persister = (*StateRepository)(nil)

// NewStateRepository creates a new [StateRepository] with the given database connection
func NewStateRepository(db *sql.DB) *StateRepository {
	return &StateRepository{db: db, liked: NewLikedSongRepository(db)}
}

// Liked returns the repository for the liked set alone.
func (r *StateRepository) Liked() *LikedSongRepository { return r.liked }

// Load reads the saved state, or returns nil when nothing has been saved.
func (r *StateRepository) Load() (*models.PersistedState, error) {
	query := `
		SELECT schema_version, username, access_token, volume, is_muted, prev_volume,
			current_song, position_seconds, selected_language, updated_at
		FROM preferences
		WHERE id = 1
	`

	var (
		ps          models.PersistedState
		username    sql.NullString
		accessToken sql.NullString
		currentSong sql.NullString
		updatedAt   time.Time
	)

	err := r.db.QueryRow(query).Scan(
		&ps.SchemaVersion,
		&username,
		&accessToken,
		&ps.Volume,
		&ps.IsMuted,
		&ps.PrevVolume,
		&currentSong,
		&ps.CurrentTime,
		&ps.SelectedLanguage,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query preferences: %w", err)
	}

	ps.UpdatedAt = updatedAt
	if accessToken.Valid && accessToken.String != "" {
		ps.Session = &models.Session{Username: username.String, AccessToken: accessToken.String}
	}
	if currentSong.Valid {
		song, err := decodeSong(currentSong.String)
		if err != nil {
			return nil, err
		}
		ps.CurrentSong = &song
	}

	ps.LikedSongs, err = listLiked(r.db)
	if err != nil {
		return nil, err
	}
	return &ps, nil
}

// Save replaces the saved state in a single transaction.
func (r *StateRepository) Save(ps models.PersistedState) error {
	var username, token string
	if ps.Session != nil {
		username, token = ps.Session.Username, ps.Session.AccessToken
	}

	var currentSong any
	if ps.CurrentSong != nil {
		payload, err := encodeSong(*ps.CurrentSong)
		if err != nil {
			return err
		}
		currentSong = payload
	}

	updatedAt := ps.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO preferences (
			id, schema_version, username, access_token, volume, is_muted, prev_volume,
			current_song, position_seconds, selected_language, updated_at
		)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			username = excluded.username,
			access_token = excluded.access_token,
			volume = excluded.volume,
			is_muted = excluded.is_muted,
			prev_volume = excluded.prev_volume,
			current_song = excluded.current_song,
			position_seconds = excluded.position_seconds,
			selected_language = excluded.selected_language,
			updated_at = excluded.updated_at
	`

	return WithTx(r.db, func(tx *sql.Tx) error {
		_, err := tx.Exec(query,
			ps.SchemaVersion,
			nullString(username),
			nullString(token),
			ps.Volume,
			ps.IsMuted,
			ps.PrevVolume,
			currentSong,
			ps.CurrentTime,
			ps.SelectedLanguage,
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		return r.liked.Replace(tx, ps.LikedSongs)
	})
}

// SavePosition updates the saved playback position without touching the liked set.
// It reports false when no state has been saved yet.
func (r *StateRepository) SavePosition(seconds float64, at time.Time) (bool, error) {
	res, err := r.db.Exec(`UPDATE preferences SET position_seconds = ?, updated_at = ? WHERE id = 1`, seconds, at)
	if err != nil {
		return false, fmt.Errorf("failed to save position: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to save position: %w", err)
	}
	return n > 0, nil
}

// Clear deletes all saved state.
func (r *StateRepository) Clear() error {
	return WithTx(r.db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM liked_songs`); err != nil {
			return fmt.Errorf("failed to clear liked songs: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM preferences`); err != nil {
			return fmt.Errorf("failed to clear preferences: %w", err)
		}
		return nil
	})
}
