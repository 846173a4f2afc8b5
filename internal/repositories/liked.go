package repositories

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
)

// LikedSongRepository stores the ordered liked set.
//
// Songs are unique by canonical id; inserting a song that is already liked is a no-op.
type LikedSongRepository struct {
	db *sql.DB
}

// NewLikedSongRepository creates a new [LikedSongRepository] with the given database connection
func NewLikedSongRepository(db *sql.DB) *LikedSongRepository {
	return &LikedSongRepository{db: db}
}

// List returns the liked songs in the order they were liked.
func (r *LikedSongRepository) List() ([]models.Song, error) {
	return listLiked(r.db)
}

// Contains reports whether a song with the given canonical id is liked.
func (r *LikedSongRepository) Contains(id models.ID) (bool, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM liked_songs WHERE song_id = ?`, id.String()).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query liked song: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of liked songs.
func (r *LikedSongRepository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM liked_songs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count liked songs: %w", err)
	}
	return n, nil
}

// Add appends song to the liked set.
func (r *LikedSongRepository) Add(song models.Song) error {
	var next int
	if err := r.db.QueryRow(`SELECT COALESCE(MAX(position) + 1, 0) FROM liked_songs`).Scan(&next); err != nil {
		return fmt.Errorf("failed to get next position: %w", err)
	}
	return insertLiked(r.db, next, song)
}

// Remove deletes a song from the liked set. Removing a song that is not liked is not an error.
func (r *LikedSongRepository) Remove(id models.ID) error {
	if _, err := r.db.Exec(`DELETE FROM liked_songs WHERE song_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to remove liked song: %w", err)
	}
	return nil
}

// Replace swaps the whole liked set inside tx.
func (r *LikedSongRepository) Replace(tx *sql.Tx, songs []models.Song) error {
	if _, err := tx.Exec(`DELETE FROM liked_songs`); err != nil {
		return fmt.Errorf("failed to clear liked songs: %w", err)
	}
	for i, song := range songs {
		if err := insertLiked(tx, i, song); err != nil {
			return err
		}
	}
	return nil
}

func insertLiked(q querier, position int, song models.Song) error {
	if song.ID == "" {
		return fmt.Errorf("%w: liked song has no id", shared.ErrInvalidInput)
	}

	payload, err := encodeSong(song)
	if err != nil {
		return err
	}

	_, err = q.Exec(
		`INSERT INTO liked_songs (id, song_id, position, payload) VALUES (?, ?, ?, ?)`,
		shared.GenerateID(), song.ID.String(), position, payload,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to insert liked song: %w", err)
	}
	return nil
}

func listLiked(q querier) ([]models.Song, error) {
	rows, err := q.Query(`SELECT payload FROM liked_songs ORDER BY position, created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query liked songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan liked song: %w", err)
		}
		song, err := decodeSong(payload)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating liked songs: %w", err)
	}
	return songs, nil
}
