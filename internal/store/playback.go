package store

import (
	"math"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/samber/lo"
)

// positionSaveInterval is how far playback must move before the position is persisted again.
const positionSaveInterval = 5.0

// SetCurrentSong makes song current and starts it from the beginning.
func (s *Store) SetCurrentSong(song models.Song) {
	s.update(func(st *State) {
		s.selectLocked(song)
	})
	s.requestSync()
}

func (s *Store) selectLocked(song models.Song) {
	s.state.Playback.CurrentSong = &song
	s.state.Playback.IsPlaying = true
	s.state.Playback.CurrentTime = 0
	s.persistLocked()
}

// PlayNext advances to the following song in the active list. It does nothing at the end of the list.
func (s *Store) PlayNext() { s.step(1) }

// PlayPrev goes back to the preceding song in the active list. It does nothing at the start of the list.
func (s *Store) PlayPrev() { s.step(-1) }

func (s *Store) step(delta int) {
	s.mu.Lock()
	current := s.state.Playback.CurrentSong
	if current == nil {
		s.mu.Unlock()
		return
	}

	list := s.state.ActiveList()
	_, idx, found := lo.FindIndexOf(list, func(song models.Song) bool {
		return song.ID == current.ID
	})
	next := idx + delta
	if !found || next < 0 || next >= len(list) {
		s.mu.Unlock()
		return
	}

	s.selectLocked(list[next])
	s.mu.Unlock()

	s.notify(Changed)
	s.requestSync()
}

// Pause clears the playing intent.
func (s *Store) Pause() {
	s.update(func(st *State) {
		st.Playback.IsPlaying = false
		s.persistLocked()
	})
}

// Resume sets the playing intent when a song is loaded.
func (s *Store) Resume() {
	s.update(func(st *State) {
		st.Playback.IsPlaying = st.Playback.CurrentSong != nil
	})
}

// TogglePlay flips between [Store.Pause] and [Store.Resume].
func (s *Store) TogglePlay() {
	if s.Snapshot().Playback.IsPlaying {
		s.Pause()
	} else {
		s.Resume()
	}
}

// SetCurrentTime records the playback position in seconds.
//
// The position is persisted when it has moved [positionSaveInterval] seconds from the last saved value.
func (s *Store) SetCurrentTime(seconds float64) {
	s.update(func(st *State) {
		st.Playback.CurrentTime = math.Max(0, seconds)
		if math.Abs(st.Playback.CurrentTime-s.savedTime) >= positionSaveInterval {
			s.savePositionLocked()
		}
	})
}

// SetVolume sets the volume, clamped to [0,1]. Zero mutes; any other value unmutes and is remembered
// as the volume to restore after a later mute.
func (s *Store) SetVolume(v float64) {
	v = math.Min(1, math.Max(0, v))
	s.update(func(st *State) {
		if v == 0 {
			st.Playback.Volume = 0
			st.Playback.IsMuted = true
		} else {
			st.Playback.Volume = v
			st.Playback.IsMuted = false
			st.Playback.PrevVolume = v
		}
		s.persistLocked()
	})
	s.requestSync()
}

// ToggleMute mutes, remembering the current volume, or restores the remembered volume.
func (s *Store) ToggleMute() {
	s.update(func(st *State) {
		pb := &st.Playback
		if pb.IsMuted {
			pb.IsMuted = false
			pb.Volume = pb.PrevVolume
			if pb.Volume <= 0 {
				pb.Volume = models.DefaultVolume
			}
		} else {
			pb.IsMuted = true
			pb.PrevVolume = pb.Volume
			pb.Volume = 0
		}
		s.persistLocked()
	})
	s.requestSync()
}

// ToggleLike adds song to the liked set, or removes it when already liked.
func (s *Store) ToggleLike(song models.Song) {
	s.update(func(st *State) {
		if st.IsLiked(song) {
			st.Liked = lo.Reject(st.Liked, func(l models.Song, _ int) bool { return l.SameAs(song) })
		} else {
			st.Liked = append(st.Liked, song)
		}
		s.persistLocked()
	})
	s.requestSync()
}

// SetView switches between the catalogue and the liked list.
func (s *Store) SetView(v models.View) {
	if v != models.LikedView {
		v = models.HomeView
	}
	s.update(func(st *State) { st.View = v })
}

// SetPlayerOpen shows or hides the full-screen player.
func (s *Store) SetPlayerOpen(open bool) {
	s.update(func(st *State) { st.PlayerOpen = open })
}
