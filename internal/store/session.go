package store

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/samber/lo"
)

// Login exchanges credentials for a session and adopts the server-held preferences.
//
// The liked set is replaced by the server's copy and the catalogue, view, and player are reset.
func (s *Store) Login(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return fmt.Errorf("%w: username and password are required", shared.ErrInvalidInput)
	}

	result, err := s.backend.Login(ctx, username, password)
	if err != nil {
		s.logger.Error("login failed", "username", username, "error", err)
		return err
	}

	s.mu.Lock()
	s.state.Session = &models.Session{Username: username, AccessToken: result.AccessToken}
	s.state.Liked = []models.Song{}

	if cloud := result.State; cloud != nil {
		s.state.Liked = lo.UniqBy(cloud.LikedSongs, func(song models.Song) models.ID { return song.ID })
		if cloud.Volume != nil {
			s.applyVolumeLocked(*cloud.Volume)
		}
		if cloud.SelectedLanguage != "" {
			s.state.Filters.Language = cloud.SelectedLanguage
		}
		if cloud.CurrentSong != nil {
			song := *cloud.CurrentSong
			s.state.Playback.CurrentSong = &song
			s.state.Playback.CurrentTime = 0
		}
	}

	s.state.Playback.IsPlaying = false
	s.state.View = models.HomeView
	s.state.PlayerOpen = false
	s.resetCatalogue()
	s.persistLocked()
	s.mu.Unlock()

	s.logger.Info("logged in", "username", username)
	s.notify(Changed)
	return nil
}

// applyVolumeLocked adopts a synced volume, keeping the mute invariants.
func (s *Store) applyVolumeLocked(v float64) {
	v = math.Min(1, math.Max(0, v))
	pb := &s.state.Playback
	if v == 0 {
		pb.Volume = 0
		pb.IsMuted = true
		return
	}
	pb.Volume = v
	pb.IsMuted = false
	pb.PrevVolume = v
}

// Register validates the credentials locally, creates the account, and logs in.
func (s *Store) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if err := shared.ValidateUsername(username); err != nil {
		return err
	}
	if err := shared.ValidatePassword(password); err != nil {
		return err
	}

	if err := s.backend.Register(ctx, username, password); err != nil {
		s.logger.Error("registration failed", "username", username, "error", err)
		return err
	}
	return s.Login(ctx, username, password)
}

// Logout drops the session, the liked set, and the current song, and wipes the saved state.
// Volume, mute, and language return to their defaults so the next user starts clean.
func (s *Store) Logout() {
	s.logout()
	s.notify(Changed)
}

func (s *Store) logout() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Session = nil
	s.state.Liked = []models.Song{}
	s.state.Playback.CurrentSong = nil
	s.state.Playback.IsPlaying = false
	s.state.Playback.CurrentTime = 0
	s.state.PlayerOpen = false
	s.state.Playback.Volume = models.DefaultVolume
	s.state.Playback.PrevVolume = models.DefaultVolume
	s.state.Playback.IsMuted = false
	if s.state.Filters.Language != models.FilterAll {
		s.state.Filters.Language = models.FilterAll
		s.resetCatalogue()
	}
	s.savedTime = 0

	if s.persister != nil {
		if err := s.persister.Clear(); err != nil {
			s.logger.Error("failed to clear saved state", "error", err)
		}
	}
}

// expire is the backend's 401 handler.
func (s *Store) expire() {
	s.logger.Warn("session expired, logging out")
	s.logout()
	s.notify(Changed)
	s.notify(SessionExpired)
}

// cloudStateLocked builds the sync payload.
func (s *Store) cloudStateLocked() models.CloudState {
	volume := s.state.Playback.Volume
	cs := models.CloudState{
		LikedSongs:       append([]models.Song{}, s.state.Liked...),
		Volume:           &volume,
		SelectedLanguage: s.state.Filters.Language,
	}
	if s.state.Playback.CurrentSong != nil {
		song := *s.state.Playback.CurrentSong
		cs.CurrentSong = &song
	}
	return cs
}

// SyncToCloud pushes the liked set, current song, volume, and language under the session.
//
// It does nothing without a session. Failures are logged and not returned.
func (s *Store) SyncToCloud(ctx context.Context) {
	s.mu.Lock()
	if !s.state.Session.Valid() {
		s.mu.Unlock()
		return
	}
	payload := s.cloudStateLocked()
	s.mu.Unlock()

	if err := s.backend.Sync(ctx, payload); err != nil {
		s.logger.Warn("cloud sync failed", "error", err)
		return
	}
	s.logger.Debug("synced preferences", "liked", len(payload.LikedSongs))
}

// requestSync runs [Store.SyncToCloud] in the background; [Store.Flush] waits for it.
func (s *Store) requestSync() {
	if !s.Snapshot().Authenticated() {
		return
	}

	s.syncs.Add(1)
	go func() {
		defer s.syncs.Done()
		s.SyncToCloud(s.ctx)
	}()
}
