package repositories

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
	tu "github.com/desertthunder/vibe/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestStateRepository(t *testing.T) {
	t.Run("Load Empty", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		ps, err := repo.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if ps != nil {
			t.Errorf("expected nil state, got %+v", ps)
		}
	})

	t.Run("Save & Load", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))
		current := tu.Song(9, "Current", "Artist")
		current.CoverArt = "https://img.example.com/9.jpg"

		saved := models.PersistedState{
			SchemaVersion:    models.CurrentSchemaVersion,
			Session:          &models.Session{Username: "alice", AccessToken: "tok"},
			LikedSongs:       tu.Songs(1, 3),
			Volume:           0.4,
			IsMuted:          false,
			PrevVolume:       0.4,
			CurrentSong:      &current,
			CurrentTime:      42.5,
			SelectedLanguage: "Hindi",
			UpdatedAt:        time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
		}
		if err := repo.Save(saved); err != nil {
			t.Fatalf("failed to save: %v", err)
		}

		ps, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if ps.SchemaVersion != 2 || ps.Volume != 0.4 || ps.CurrentTime != 42.5 || ps.SelectedLanguage != "Hindi" {
			t.Errorf("unexpected state %+v", ps)
		}
		if ps.Session == nil || ps.Session.Username != "alice" || ps.Session.AccessToken != "tok" {
			t.Errorf("unexpected session %+v", ps.Session)
		}
		if ps.CurrentSong == nil || ps.CurrentSong.ID != "9" || ps.CurrentSong.CoverArt != current.CoverArt {
			t.Errorf("unexpected current song %+v", ps.CurrentSong)
		}
		if len(ps.LikedSongs) != 3 || ps.LikedSongs[0].ID != "1" || ps.LikedSongs[2].ID != "3" {
			t.Errorf("unexpected liked songs %+v", ps.LikedSongs)
		}
		if !ps.UpdatedAt.Equal(saved.UpdatedAt) {
			t.Errorf("expected updated_at %v, got %v", saved.UpdatedAt, ps.UpdatedAt)
		}
	})

	t.Run("Save Replaces Previous State", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))

		repo.Save(models.PersistedState{SchemaVersion: 2, LikedSongs: tu.Songs(1, 5), Volume: 0.7})
		repo.Save(models.PersistedState{SchemaVersion: 2, LikedSongs: tu.Songs(4, 4), Volume: 0.2, IsMuted: true})

		ps, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if len(ps.LikedSongs) != 1 || ps.LikedSongs[0].ID != "4" {
			t.Errorf("expected liked set to be replaced, got %+v", ps.LikedSongs)
		}
		if !ps.IsMuted || ps.Session != nil || ps.CurrentSong != nil {
			t.Errorf("unexpected state %+v", ps)
		}
	})

	t.Run("SavePosition", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewStateRepository(db)
		at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

		ok, err := repo.SavePosition(12, at)
		if err != nil || ok {
			t.Fatalf("expected nothing to update, got %v (%v)", ok, err)
		}

		if err := repo.Save(models.PersistedState{SchemaVersion: 2, LikedSongs: tu.Songs(1, 3), CurrentTime: 5}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		rowIDs := func() []string {
			rows, err := db.Query(`SELECT id FROM liked_songs ORDER BY position`)
			if err != nil {
				t.Fatalf("failed to query liked songs: %v", err)
			}
			defer rows.Close()
			var out []string
			for rows.Next() {
				var id string
				rows.Scan(&id)
				out = append(out, id)
			}
			return out
		}
		before := rowIDs()

		ok, err = repo.SavePosition(77, at)
		if err != nil || !ok {
			t.Fatalf("expected the position to be updated, got %v (%v)", ok, err)
		}

		ps, err := repo.Load()
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if ps.CurrentTime != 77 || !ps.UpdatedAt.Equal(at) {
			t.Errorf("expected position 77 at %v, got %v at %v", at, ps.CurrentTime, ps.UpdatedAt)
		}
		after := rowIDs()
		if len(after) != 3 || len(before) != 3 {
			t.Fatalf("expected 3 liked rows, got %v then %v", before, after)
		}
		for i := range before {
			if before[i] != after[i] {
				t.Errorf("expected liked rows untouched, got %v then %v", before, after)
				break
			}
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))
		repo.Save(models.PersistedState{SchemaVersion: 2, LikedSongs: tu.Songs(1, 2)})

		if err := repo.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		ps, err := repo.Load()
		if err != nil || ps != nil {
			t.Errorf("expected empty state, got %+v (%v)", ps, err)
		}
		if n, _ := repo.Liked().Count(); n != 0 {
			t.Errorf("expected no liked songs, got %d", n)
		}
	})

	t.Run("Duplicate Liked Songs Are Collapsed", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))
		liked := append(tu.Songs(1, 2), tu.Song(1, "Song 1", "Artist 1"))

		if err := repo.Save(models.PersistedState{SchemaVersion: 2, LikedSongs: liked}); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if n, _ := repo.Liked().Count(); n != 2 {
			t.Errorf("expected 2 liked songs, got %d", n)
		}
	})

	t.Run("Backs A Store", func(t *testing.T) {
		repo := NewStateRepository(setupTestDB(t))
		backend := tu.NewBackend(t)

		s := store.New(services.NewAPIService(backend.URL(), nil), repo, nil)
		s.ToggleLike(tu.Song(1, "A", "B"))
		s.SetVolume(0.3)
		s.Close()

		restored := store.New(services.NewAPIService(backend.URL(), nil), repo, nil)
		if err := restored.Restore(); err != nil {
			t.Fatalf("failed to restore: %v", err)
		}
		st := restored.Snapshot()
		if len(st.Liked) != 1 || st.Playback.Volume != 0.3 {
			t.Errorf("unexpected restored state %+v", st)
		}
	})
}

func TestLikedSongRepository(t *testing.T) {
	t.Run("Add & List", func(t *testing.T) {
		repo := NewLikedSongRepository(setupTestDB(t))

		for _, song := range tu.Songs(3, 5) {
			if err := repo.Add(song); err != nil {
				t.Fatalf("failed to add: %v", err)
			}
		}
		if err := repo.Add(tu.Song(3, "Song 3", "Artist 3")); err != nil {
			t.Fatalf("adding a liked song again should not error: %v", err)
		}

		songs, err := repo.List()
		if err != nil {
			t.Fatalf("failed to list: %v", err)
		}
		if len(songs) != 3 || songs[0].ID != "3" || songs[2].ID != "5" {
			t.Errorf("unexpected songs %+v", songs)
		}
	})

	t.Run("Contains & Remove", func(t *testing.T) {
		repo := NewLikedSongRepository(setupTestDB(t))
		repo.Add(tu.Song(1, "A", "B"))

		if ok, _ := repo.Contains("1"); !ok {
			t.Error("expected song to be liked")
		}
		if err := repo.Remove("1"); err != nil {
			t.Fatalf("failed to remove: %v", err)
		}
		if ok, _ := repo.Contains("1"); ok {
			t.Error("expected song to be removed")
		}
		if err := repo.Remove("missing"); err != nil {
			t.Errorf("removing a missing song should not error: %v", err)
		}
	})

	t.Run("Rejects Missing Id", func(t *testing.T) {
		repo := NewLikedSongRepository(setupTestDB(t))
		err := repo.Add(models.Song{Title: "No Id"})
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestWithTx(t *testing.T) {
	db := setupTestDB(t)

	err := WithTx(db, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO liked_songs (id, song_id, position, payload) VALUES ('a', '1', 0, '{}')`); err != nil {
			return err
		}
		return errors.New("abort")
	})
	if err == nil {
		t.Fatal("expected error to be returned")
	}

	if n, _ := NewLikedSongRepository(db).Count(); n != 0 {
		t.Errorf("expected rollback, found %d rows", n)
	}
}
