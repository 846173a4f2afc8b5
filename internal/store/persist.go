package store

import (
	"fmt"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
)

// MigrateState upgrades a saved projection to [models.CurrentSchemaVersion].
//
// Version 1 predates the remembered pre-mute volume and the language preference.
// Versions newer than the current one are rejected with [shared.ErrUnsupportedVersion].
func MigrateState(ps models.PersistedState) (models.PersistedState, error) {
	switch {
	case ps.SchemaVersion > models.CurrentSchemaVersion:
		return ps, fmt.Errorf("%w: %d", shared.ErrUnsupportedVersion, ps.SchemaVersion)
	case ps.SchemaVersion <= 1:
		if ps.PrevVolume <= 0 {
			ps.PrevVolume = models.DefaultVolume
		}
		ps.SelectedLanguage = models.FilterAll
		ps.SchemaVersion = 2
	}

	if ps.SelectedLanguage == "" {
		ps.SelectedLanguage = models.FilterAll
	}
	if ps.LikedSongs == nil {
		ps.LikedSongs = []models.Song{}
	}
	return ps, nil
}

// projectLocked builds the persisted projection of the current state.
func (s *Store) projectLocked() models.PersistedState {
	pb := s.state.Playback
	ps := models.PersistedState{
		SchemaVersion:    models.CurrentSchemaVersion,
		LikedSongs:       append([]models.Song{}, s.state.Liked...),
		Volume:           pb.Volume,
		IsMuted:          pb.IsMuted,
		PrevVolume:       pb.PrevVolume,
		CurrentTime:      pb.CurrentTime,
		SelectedLanguage: s.state.Filters.Language,
		UpdatedAt:        s.now().UTC(),
	}
	if s.state.Session != nil {
		sess := *s.state.Session
		ps.Session = &sess
	}
	if pb.CurrentSong != nil {
		song := *pb.CurrentSong
		ps.CurrentSong = &song
	}
	return ps
}

// persistLocked writes the projection. Failures are logged; the in-memory state stays authoritative.
func (s *Store) persistLocked() error {
	if s.persister == nil {
		return nil
	}

	ps := s.projectLocked()
	if err := s.persister.Save(ps); err != nil {
		s.logger.Error("failed to save state", "error", err)
		return err
	}
	s.savedTime = ps.CurrentTime
	return nil
}

// savePositionLocked records the playback position alone, falling back to a full save
// when there is no saved row to update.
func (s *Store) savePositionLocked() {
	if s.persister == nil {
		return
	}

	pos := s.state.Playback.CurrentTime
	ok, err := s.persister.SavePosition(pos, s.now().UTC())
	if err != nil {
		s.logger.Error("failed to save position", "error", err)
		return
	}
	if !ok {
		s.persistLocked()
		return
	}
	s.savedTime = pos
}

// Restore loads the saved projection into the store.
//
// Older schema versions are migrated; unreadable future versions are discarded. A saved session
// whose token has already expired is dropped. The restored song is loaded paused.
func (s *Store) Restore() error {
	if s.persister == nil {
		return nil
	}

	saved, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("failed to load saved state: %w", err)
	}
	if saved == nil {
		return nil
	}

	ps, err := MigrateState(*saved)
	if err != nil {
		s.logger.Warn("discarding saved state", "error", err)
		return s.persister.Clear()
	}

	if ps.Session.Valid() && services.TokenExpired(ps.Session.AccessToken, s.now()) {
		s.logger.Info("saved session has expired", "username", ps.Session.Username)
		ps.Session = nil
	}

	s.mu.Lock()
	if ps.Session.Valid() {
		s.state.Session = ps.Session
	}
	s.state.Liked = ps.LikedSongs
	s.state.Playback.Volume = ps.Volume
	s.state.Playback.IsMuted = ps.IsMuted
	s.state.Playback.PrevVolume = ps.PrevVolume
	s.state.Playback.CurrentSong = ps.CurrentSong
	s.state.Playback.CurrentTime = ps.CurrentTime
	s.state.Playback.IsPlaying = false
	s.state.Filters.Language = ps.SelectedLanguage
	s.savedTime = ps.CurrentTime
	if saved.SchemaVersion != ps.SchemaVersion || saved.Session.Valid() != ps.Session.Valid() {
		s.persistLocked()
	}
	s.mu.Unlock()

	s.notify(Changed)
	return nil
}
