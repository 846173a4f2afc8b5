package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	tu "github.com/desertthunder/vibe/internal/testing"
	"github.com/golang-jwt/jwt/v5"
)

func newTestStore(t *testing.T) (*Store, *tu.Backend, *tu.MemoryPersister) {
	t.Helper()
	backend := tu.NewBackend(t)
	persister := &tu.MemoryPersister{}
	s := New(services.NewAPIService(backend.URL(), nil), persister, nil)
	t.Cleanup(func() { s.Close() })
	return s, backend, persister
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func ids(songs []models.Song) []models.ID {
	out := make([]models.ID, len(songs))
	for i, s := range songs {
		out[i] = s.ID
	}
	return out
}

func TestDedupe(t *testing.T) {
	t.Run("Drops Repeated Ids", func(t *testing.T) {
		songs := append(tu.Songs(1, 3), tu.Song(2, "Other Title", "Other Artist"))
		got := Dedupe(songs)
		if len(got) != 3 {
			t.Fatalf("expected 3 songs, got %d", len(got))
		}
	})

	t.Run("Drops Repeated Signatures", func(t *testing.T) {
		songs := []models.Song{
			tu.Song(1, "Kesariya", "Arijit Singh"),
			tu.Song(2, "KESARIYA!", "arijit  singh"),
		}
		got := Dedupe(songs)
		if len(got) != 1 || got[0].ID != "1" {
			t.Errorf("expected only the first song, got %v", ids(got))
		}
	})

	t.Run("Keeps First Seen Order", func(t *testing.T) {
		songs := append(tu.Songs(5, 7), tu.Songs(1, 6)...)
		got := ids(Dedupe(songs))
		want := []models.ID{"5", "6", "7", "1", "2", "3", "4"}
		if len(got) != len(want) {
			t.Fatalf("expected %v, got %v", want, got)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected %v, got %v", want, got)
			}
		}
	})

	t.Run("No Duplicate Keys In Output", func(t *testing.T) {
		songs := append(tu.Songs(1, 20), tu.Songs(10, 30)...)
		songs = append(songs, tu.Song(99, "Song 4", "Artist 4"))

		out := Dedupe(songs)
		seenIDs := map[models.ID]bool{}
		seenSigs := map[string]bool{}
		for _, s := range out {
			if seenIDs[s.ID] || seenSigs[s.Signature()] {
				t.Fatalf("duplicate %s in output", s.ID)
			}
			seenIDs[s.ID] = true
			seenSigs[s.Signature()] = true
		}
		if len(out) != 30 {
			t.Errorf("expected 30 songs, got %d", len(out))
		}
	})

	t.Run("Non Latin Titles Stay Distinct", func(t *testing.T) {
		songs := []models.Song{
			tu.Song(1, "तुम ही हो", "Arijit Singh"),
			tu.Song(2, "चन्ना मेरेया", "Arijit Singh"),
		}
		if len(Dedupe(songs)) != 2 {
			t.Error("expected distinct non-latin titles to be kept")
		}
	})
}

func TestFetchSongs(t *testing.T) {
	ctx := context.Background()

	t.Run("Merges Overlapping Pages", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Configure(func(b *tu.Backend) {
			b.Pages = [][]models.Song{tu.Songs(1, 50), tu.Songs(40, 89)}
		})

		if err := s.FetchSongs(ctx, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if st := s.Snapshot(); !st.Cursor.HasMore || len(st.Songs) != 50 {
			t.Fatalf("expected 50 songs with more, got %d (more=%v)", len(st.Songs), st.Cursor.HasMore)
		}

		if err := s.FetchSongs(ctx, true); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		st := s.Snapshot()
		if len(st.Songs) != 89 {
			t.Fatalf("expected 89 songs, got %d", len(st.Songs))
		}
		for i, song := range st.Songs {
			if want := tu.Song(i+1, "", "").ID; song.ID != want {
				t.Fatalf("expected id %s at %d, got %s", want, i, song.ID)
			}
		}
		if st.Cursor.HasMore {
			t.Error("expected no more pages after a short page")
		}
		if st.Cursor.Skip != 50 {
			t.Errorf("expected skip 50, got %d", st.Cursor.Skip)
		}
	})

	t.Run("HasMore Tracks Page Size", func(t *testing.T) {
		tc := []struct {
			size int
			more bool
		}{{50, true}, {49, false}, {0, false}}

		for _, c := range tc {
			s, backend, _ := newTestStore(t)
			backend.Catalogue = tu.Songs(1, c.size)

			s.FetchSongs(ctx, false)
			if got := s.Snapshot().Cursor.HasMore; got != c.more {
				t.Errorf("page of %d: expected hasMore=%v, got %v", c.size, c.more, got)
			}
		}
	})

	t.Run("Fresh Fetch Requests First Page", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 120)

		s.FetchSongs(ctx, false)
		s.FetchSongs(ctx, true)
		s.FetchSongs(ctx, false)

		if backend.Queries()[0]["skip"] != "0" || backend.Queries()[1]["skip"] != "50" {
			t.Errorf("unexpected offsets %v", backend.Queries())
		}
		if backend.Queries()[2]["skip"] != "0" {
			t.Errorf("expected fresh fetch from 0, got %s", backend.Queries()[2]["skip"])
		}
		if st := s.Snapshot(); len(st.Songs) != 50 || st.Cursor.Skip != 0 {
			t.Errorf("expected first page only, got %d songs at skip %d", len(st.Songs), st.Cursor.Skip)
		}
	})

	t.Run("Load More Past End Is A No-op", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 10)

		s.FetchSongs(ctx, false)
		s.FetchSongs(ctx, true)

		if backend.SongRequests() != 1 {
			t.Errorf("expected 1 request, got %d", backend.SongRequests())
		}
	})

	t.Run("Single Flight", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		gate := make(chan struct{})
		backend.Configure(func(b *tu.Backend) {
			b.Catalogue = tu.Songs(1, 50)
			b.SongsGate = gate
		})

		done := make(chan struct{})
		go func() {
			s.FetchSongs(ctx, false)
			close(done)
		}()
		waitFor(t, "first request", func() bool { return backend.SongRequests() == 1 })

		if !s.Snapshot().IsLoading {
			t.Error("expected loading flag while request is in flight")
		}
		s.FetchSongs(ctx, false)
		s.FetchSongs(ctx, true)

		close(gate)
		<-done

		if backend.SongRequests() != 1 {
			t.Errorf("expected 1 request, got %d", backend.SongRequests())
		}
		if s.Snapshot().IsLoading {
			t.Error("expected loading flag to be cleared")
		}
	})

	t.Run("Failure Keeps List", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 60)
		s.FetchSongs(ctx, false)

		backend.Configure(func(b *tu.Backend) { b.FailSongs = true })
		err := s.FetchSongs(ctx, true)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}

		st := s.Snapshot()
		if len(st.Songs) != 50 || st.IsLoading || st.Cursor.Skip != 0 {
			t.Errorf("expected unchanged list and cleared loading, got %d songs loading=%v skip=%d",
				len(st.Songs), st.IsLoading, st.Cursor.Skip)
		}

		backend.Configure(func(b *tu.Backend) { b.FailSongs = false })
		if err := s.FetchSongs(ctx, true); err != nil {
			t.Fatalf("expected store to fetch again, got %v", err)
		}
		if len(s.Snapshot().Songs) != 60 {
			t.Errorf("expected 60 songs, got %d", len(s.Snapshot().Songs))
		}
	})

	t.Run("Duplicate Page Refetches", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Configure(func(b *tu.Backend) {
			b.Pages = [][]models.Song{tu.Songs(1, 50), tu.Songs(1, 50), tu.Songs(51, 60)}
		})

		s.FetchSongs(ctx, false)
		s.FetchSongs(ctx, true)

		if backend.SongRequests() != 3 {
			t.Errorf("expected automatic refetch, got %d requests", backend.SongRequests())
		}
		if len(s.Snapshot().Songs) != 60 {
			t.Errorf("expected 60 songs, got %d", len(s.Snapshot().Songs))
		}
	})

	t.Run("Duplicate Refetch Is Bounded", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		pages := [][]models.Song{}
		for range 20 {
			pages = append(pages, tu.Songs(1, 50))
		}
		backend.Configure(func(b *tu.Backend) { b.Pages = pages })

		s.FetchSongs(ctx, false)
		s.FetchSongs(ctx, true)

		if got := backend.SongRequests(); got != 2+maxDuplicateRefetches {
			t.Errorf("expected %d requests, got %d", 2+maxDuplicateRefetches, got)
		}
		if s.Snapshot().IsLoading {
			t.Error("expected loading flag to be cleared")
		}
	})
}

func TestFilters(t *testing.T) {
	t.Run("Mutation Resets Cursor Before Refetch Resolves", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 120)
		s.FetchSongs(context.Background(), false)
		s.FetchSongs(context.Background(), true)

		gate := make(chan struct{})
		backend.Configure(func(b *tu.Backend) { b.SongsGate = gate })

		done := make(chan struct{})
		go func() {
			s.SetGenre("Pop")
			close(done)
		}()
		waitFor(t, "refetch", func() bool { return backend.SongRequests() == 3 })

		st := s.Snapshot()
		if len(st.Songs) != 0 || st.Cursor.Skip != 0 || !st.Cursor.HasMore {
			t.Errorf("expected reset cursor, got %d songs skip=%d more=%v", len(st.Songs), st.Cursor.Skip, st.Cursor.HasMore)
		}

		close(gate)
		<-done

		if q := backend.Queries()[2]; q["genre"] != "Pop" || q["skip"] != "0" {
			t.Errorf("unexpected refetch query %v", q)
		}
		if len(s.Snapshot().Songs) != 50 {
			t.Errorf("expected first page after refetch, got %d", len(s.Snapshot().Songs))
		}
	})

	t.Run("Stale Page Is Discarded", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		gate := make(chan struct{})
		backend.Configure(func(b *tu.Backend) {
			b.Pages = [][]models.Song{tu.Songs(1, 3), tu.Songs(10, 12)}
			b.SongsGate = gate
		})

		first := make(chan error, 1)
		go func() { first <- s.FetchSongs(context.Background(), false) }()
		waitFor(t, "first request", func() bool { return backend.SongRequests() == 1 })

		second := make(chan struct{})
		go func() {
			s.SetMood("Calm")
			close(second)
		}()
		waitFor(t, "second request", func() bool { return backend.SongRequests() == 2 })

		<-first
		close(gate)
		<-second

		got := ids(s.Snapshot().Songs)
		if len(got) != 3 || got[0] != "10" {
			t.Errorf("expected only the new query's songs, got %v", got)
		}
	})

	t.Run("Each Setter Updates Its Field", func(t *testing.T) {
		s, backend, _ := newTestStore(t)

		s.SetSearchQuery("  love ")
		s.SetGenre("Bollywood")
		s.SetMood("Happy")
		s.SetDuration("Long")
		s.SetLanguage("Hindi")

		f := s.Snapshot().Filters
		want := models.Filters{SearchQuery: "love", Genre: "Bollywood", Mood: "Happy", Duration: "Long", Language: "Hindi"}
		if f != want {
			t.Errorf("expected %+v, got %+v", want, f)
		}
		if backend.SongRequests() != 5 {
			t.Errorf("expected a refetch per setter, got %d", backend.SongRequests())
		}

		s.ResetFilters()
		if f := s.Snapshot().Filters; f != models.DefaultFilters() {
			t.Errorf("expected default filters, got %+v", f)
		}
	})

	t.Run("Language Is Persisted And Synced", func(t *testing.T) {
		s, backend, persister := newTestStore(t)
		backend.AddUser("alice", "secret123", "tok", nil)
		if err := s.Login(context.Background(), "alice", "secret123"); err != nil {
			t.Fatalf("login failed: %v", err)
		}

		s.SetLanguage("Tamil")
		s.Flush()

		if persister.State().SelectedLanguage != "Tamil" {
			t.Errorf("expected persisted language, got %q", persister.State().SelectedLanguage)
		}
		syncs := backend.Syncs()
		if len(syncs) == 0 || syncs[len(syncs)-1].SelectedLanguage != "Tamil" {
			t.Errorf("expected language sync, got %+v", syncs)
		}
	})
}

func TestPlayback(t *testing.T) {
	t.Run("SetCurrentSong", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		s.SetCurrentTime(42)
		s.SetCurrentSong(tu.Song(1, "A", "B"))

		pb := s.Snapshot().Playback
		if pb.CurrentSong == nil || pb.CurrentSong.ID != "1" || !pb.IsPlaying || pb.CurrentTime != 0 {
			t.Errorf("unexpected playback %+v", pb)
		}
	})

	t.Run("Next And Prev Respect Boundaries", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 3)
		s.FetchSongs(context.Background(), false)

		s.SetCurrentSong(tu.Song(3, "Song 3", "Artist 3"))
		s.SetCurrentTime(10)
		before := s.Snapshot().Playback

		s.PlayNext()
		if after := s.Snapshot().Playback; after.CurrentSong.ID != "3" || after.CurrentTime != before.CurrentTime {
			t.Errorf("expected no-op at end, got %+v", after)
		}

		s.PlayPrev()
		if pb := s.Snapshot().Playback; pb.CurrentSong.ID != "2" || pb.CurrentTime != 0 {
			t.Errorf("expected song 2, got %+v", pb)
		}
		s.PlayPrev()
		s.PlayPrev()
		if pb := s.Snapshot().Playback; pb.CurrentSong.ID != "1" {
			t.Errorf("expected no-op at start, got %s", pb.CurrentSong.ID)
		}
		s.PlayNext()
		if pb := s.Snapshot().Playback; pb.CurrentSong.ID != "2" {
			t.Errorf("expected song 2, got %s", pb.CurrentSong.ID)
		}
	})

	t.Run("Liked View Navigates Liked Set", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.Catalogue = tu.Songs(1, 10)
		s.FetchSongs(context.Background(), false)

		s.ToggleLike(tu.Song(7, "Song 7", "Artist 7"))
		s.ToggleLike(tu.Song(2, "Song 2", "Artist 2"))
		s.SetView(models.LikedView)
		s.SetCurrentSong(tu.Song(7, "Song 7", "Artist 7"))

		s.PlayNext()
		if pb := s.Snapshot().Playback; pb.CurrentSong.ID != "2" {
			t.Errorf("expected liked song 2, got %s", pb.CurrentSong.ID)
		}
	})

	t.Run("Unknown Current Song Is A No-op", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		s.SetCurrentSong(tu.Song(99, "X", "Y"))
		s.PlayNext()
		if s.Snapshot().Playback.CurrentSong.ID != "99" {
			t.Error("expected current song to be unchanged")
		}
	})

	t.Run("Pause And Resume", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		s.Resume()
		if s.Snapshot().Playback.IsPlaying {
			t.Error("expected resume without a song to do nothing")
		}

		s.SetCurrentSong(tu.Song(1, "A", "B"))
		s.TogglePlay()
		if s.Snapshot().Playback.IsPlaying {
			t.Error("expected paused")
		}
		s.TogglePlay()
		if !s.Snapshot().Playback.IsPlaying {
			t.Error("expected playing")
		}
	})

	t.Run("Volume And Mute", func(t *testing.T) {
		s, _, persister := newTestStore(t)

		s.SetVolume(0)
		if pb := s.Snapshot().Playback; !pb.IsMuted || pb.Volume != 0 {
			t.Errorf("expected mute at zero volume, got %+v", pb)
		}

		s.SetVolume(0.35)
		if pb := s.Snapshot().Playback; pb.IsMuted || pb.Volume != 0.35 {
			t.Errorf("expected unmuted 0.35, got %+v", pb)
		}

		s.ToggleMute()
		if pb := s.Snapshot().Playback; !pb.IsMuted || pb.Volume != 0 {
			t.Errorf("expected muted, got %+v", pb)
		}
		s.ToggleMute()
		if pb := s.Snapshot().Playback; pb.IsMuted || pb.Volume != 0.35 {
			t.Errorf("expected restored 0.35, got %+v", pb)
		}

		s.SetVolume(3)
		if pb := s.Snapshot().Playback; pb.Volume != 1 {
			t.Errorf("expected clamp to 1, got %v", pb.Volume)
		}
		if persister.State().Volume != 1 {
			t.Errorf("expected persisted volume 1, got %v", persister.State().Volume)
		}
	})

	t.Run("Unmute Without Remembered Volume", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		s.update(func(st *State) {
			st.Playback.Volume = 0
			st.Playback.IsMuted = true
			st.Playback.PrevVolume = 0
		})

		s.ToggleMute()
		if pb := s.Snapshot().Playback; pb.Volume != models.DefaultVolume {
			t.Errorf("expected default volume, got %v", pb.Volume)
		}
	})

	t.Run("ToggleLike", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		song := tu.Song(5, "A", "B")

		s.ToggleLike(song)
		if !s.Snapshot().IsLiked(song) || len(persister.State().LikedSongs) != 1 {
			t.Error("expected song to be liked and persisted")
		}
		s.ToggleLike(song)
		if s.Snapshot().IsLiked(song) || len(persister.State().LikedSongs) != 0 {
			t.Error("expected song to be unliked")
		}
	})

	t.Run("Position Is Saved Periodically", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		s.SetCurrentSong(tu.Song(1, "A", "B"))

		s.SetCurrentTime(1)
		if persister.State().CurrentTime != 0 {
			t.Error("expected small moves not to be saved")
		}
		saves := persister.Saves
		s.SetCurrentTime(6)
		if persister.State().CurrentTime != 6 {
			t.Errorf("expected position 6 to be saved, got %v", persister.State().CurrentTime)
		}
		if persister.Saves != saves || persister.PositionSaves != 1 {
			t.Errorf("expected a position-only save, got %d full and %d position saves",
				persister.Saves-saves, persister.PositionSaves)
		}
	})

	t.Run("Position Falls Back To A Full Save", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		s.SetCurrentSong(tu.Song(1, "A", "B"))
		persister.Clear()

		s.SetCurrentTime(10)
		saved := persister.State()
		if saved == nil || saved.CurrentTime != 10 || saved.CurrentSong == nil {
			t.Errorf("expected the whole projection to be saved, got %+v", saved)
		}
		if persister.PositionSaves != 0 {
			t.Errorf("expected no position-only save, got %d", persister.PositionSaves)
		}
	})
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("Login Replaces Liked Songs", func(t *testing.T) {
		s, backend, persister := newTestStore(t)
		vol := 0.25
		backend.AddUser("alice", "secret123", "tok-alice", &models.CloudState{
			LikedSongs: tu.Songs(100, 102),
			Volume:     &vol,
		})

		s.ToggleLike(tu.Song(1, "Local", "Only"))
		s.SetView(models.LikedView)

		if err := s.Login(ctx, "alice", "secret123"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		st := s.Snapshot()
		if got := ids(st.Liked); len(got) != 3 || got[0] != "100" || got[2] != "102" {
			t.Errorf("expected server liked songs, got %v", got)
		}
		if st.View != models.HomeView || st.Cursor.Skip != 0 || !st.Cursor.HasMore {
			t.Errorf("expected view and pagination reset, got %+v", st)
		}
		if st.Playback.Volume != 0.25 {
			t.Errorf("expected synced volume, got %v", st.Playback.Volume)
		}
		if s.AccessToken() != "tok-alice" || persister.State().Session.AccessToken != "tok-alice" {
			t.Error("expected session to be held and persisted")
		}
	})

	t.Run("Login Without Server State", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.AddUser("bob", "secret123", "tok-bob", nil)
		s.ToggleLike(tu.Song(1, "Local", "Only"))

		s.Login(ctx, "bob", "secret123")
		if len(s.Snapshot().Liked) != 0 {
			t.Error("expected liked set to be replaced")
		}
	})

	t.Run("Failed Login Keeps State", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		s.ToggleLike(tu.Song(1, "Local", "Only"))

		err := s.Login(ctx, "nobody", "password1")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if st := s.Snapshot(); st.Authenticated() || len(st.Liked) != 1 {
			t.Errorf("expected state unchanged, got %+v", st)
		}
	})

	t.Run("Register Validates Before Request", func(t *testing.T) {
		s, backend, _ := newTestStore(t)

		if err := s.Register(ctx, "ab", "password1"); !errors.Is(err, shared.ErrInvalidUsername) {
			t.Errorf("expected ErrInvalidUsername, got %v", err)
		}
		if err := s.Register(ctx, "alice", "password"); !errors.Is(err, shared.ErrInvalidPassword) {
			t.Errorf("expected ErrInvalidPassword, got %v", err)
		}
		if len(backend.Registered) != 0 {
			t.Errorf("expected no registration requests, got %v", backend.Registered)
		}
	})

	t.Run("Register Logs In", func(t *testing.T) {
		s, backend, _ := newTestStore(t)

		if err := s.Register(ctx, "new_user", "password1"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !s.Snapshot().Authenticated() || s.AccessToken() != "token-new_user" {
			t.Error("expected to be logged in after registering")
		}

		err := s.Register(ctx, "new_user", "password1")
		if !errors.Is(err, shared.ErrRegisterFailed) {
			t.Errorf("expected ErrRegisterFailed for a taken name, got %v", err)
		}
		if len(backend.Registered) != 1 {
			t.Errorf("expected one registration, got %v", backend.Registered)
		}
	})

	t.Run("Logout Wipes State", func(t *testing.T) {
		s, backend, persister := newTestStore(t)
		backend.AddUser("alice", "secret123", "tok", &models.CloudState{LikedSongs: tu.Songs(1, 2)})
		s.Login(ctx, "alice", "secret123")
		s.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))

		s.Logout()

		st := s.Snapshot()
		if st.Authenticated() || len(st.Liked) != 0 || st.Playback.CurrentSong != nil {
			t.Errorf("expected cleared state, got %+v", st)
		}
		if persister.State() != nil || persister.Clears != 1 {
			t.Error("expected saved state to be wiped")
		}
	})

	t.Run("Logout Resets Preferences", func(t *testing.T) {
		s, backend, persister := newTestStore(t)
		backend.AddUser("alice", "secret123", "tok", nil)
		s.Login(ctx, "alice", "secret123")
		s.SetVolume(0.3)
		s.ToggleMute()
		s.SetLanguage("Hindi")
		s.Flush()

		s.Logout()

		pb := s.Snapshot().Playback
		if pb.Volume != models.DefaultVolume || pb.PrevVolume != models.DefaultVolume || pb.IsMuted {
			t.Errorf("expected default volume, got %+v", pb)
		}
		if lang := s.Snapshot().Filters.Language; lang != models.FilterAll {
			t.Errorf("expected language reset, got %q", lang)
		}

		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
		saved := persister.State()
		if saved == nil {
			t.Fatal("expected the final state to be saved")
		}
		if saved.Session != nil || saved.Volume != models.DefaultVolume || saved.IsMuted || saved.SelectedLanguage != models.FilterAll {
			t.Errorf("expected nothing of the previous user to be saved, got %+v", saved)
		}
	})

	t.Run("Sync Without Session Is A No-op", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		s.ToggleLike(tu.Song(1, "A", "B"))
		s.SyncToCloud(ctx)
		s.Flush()

		if len(backend.Syncs()) != 0 {
			t.Errorf("expected no syncs, got %d", len(backend.Syncs()))
		}
	})

	t.Run("Mutations Sync Under Session", func(t *testing.T) {
		s, backend, _ := newTestStore(t)
		backend.AddUser("alice", "secret123", "tok", nil)
		s.Login(ctx, "alice", "secret123")

		song := tu.Song(3, "A", "B")
		s.ToggleLike(song)
		s.Flush()
		s.SetCurrentSong(song)
		s.Flush()
		s.SetVolume(0.5)
		s.Flush()

		syncs := backend.Syncs()
		if len(syncs) != 3 {
			t.Fatalf("expected 3 syncs, got %d", len(syncs))
		}
		last := syncs[2]
		if len(last.LikedSongs) != 1 || last.CurrentSong == nil || last.CurrentSong.ID != "3" || *last.Volume != 0.5 {
			t.Errorf("unexpected sync payload %+v", last)
		}
		if h := backend.Headers("/user/sync"); h[0] != "Bearer tok" {
			t.Errorf("expected bearer token on sync, got %q", h[0])
		}
	})

	t.Run("Unauthorized Logs Out Once", func(t *testing.T) {
		s, backend, persister := newTestStore(t)
		backend.AddUser("alice", "secret123", "tok", &models.CloudState{LikedSongs: tu.Songs(1, 2)})
		s.Login(ctx, "alice", "secret123")

		var expired atomic.Int32
		s.Subscribe(func(e Event) {
			if e == SessionExpired {
				expired.Add(1)
			}
		})

		backend.SetRejectTokens(true)

		var wg sync.WaitGroup
		for range 2 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.SyncToCloud(ctx)
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.FetchSongs(ctx, false)
		}()
		wg.Wait()

		if expired.Load() != 1 {
			t.Errorf("expected one session expiry, got %d", expired.Load())
		}
		if st := s.Snapshot(); st.Authenticated() || len(st.Liked) != 0 {
			t.Errorf("expected logged out state, got %+v", st)
		}
		if persister.State() != nil {
			t.Error("expected saved state to be wiped")
		}
	})
}

func TestRestore(t *testing.T) {
	sign := func(exp time.Time) string {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "alice",
			"exp": exp.Unix(),
		}).SignedString([]byte("test"))
		if err != nil {
			t.Fatalf("failed to sign: %v", err)
		}
		return token
	}

	t.Run("Round Trip", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		s.ToggleLike(tu.Song(1, "A", "B"))
		s.SetCurrentSong(tu.Song(2, "C", "D"))
		s.SetCurrentTime(30)
		s.SetVolume(0.4)

		backend := tu.NewBackend(t)
		restored := New(services.NewAPIService(backend.URL(), nil), persister, nil)
		if err := restored.Restore(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		st := restored.Snapshot()
		if len(st.Liked) != 1 || st.Playback.CurrentSong.ID != "2" || st.Playback.Volume != 0.4 {
			t.Errorf("unexpected restored state %+v", st)
		}
		if st.Playback.CurrentTime != 30 || st.Playback.IsPlaying {
			t.Errorf("expected paused at 30s, got %+v", st.Playback)
		}
	})

	t.Run("Migrates Version One", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		persister.Seed(&models.PersistedState{
			SchemaVersion: 1,
			LikedSongs:    tu.Songs(1, 2),
			Volume:        0,
			IsMuted:       true,
		})

		if err := s.Restore(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		st := s.Snapshot()
		if st.Playback.PrevVolume != models.DefaultVolume || st.Filters.Language != models.FilterAll {
			t.Errorf("expected defaults filled, got %+v", st)
		}
		if persister.State().SchemaVersion != models.CurrentSchemaVersion {
			t.Errorf("expected migrated state to be saved, got version %d", persister.State().SchemaVersion)
		}

		s.ToggleMute()
		if s.Snapshot().Playback.Volume != models.DefaultVolume {
			t.Error("expected unmute to restore default volume")
		}
	})

	t.Run("Discards Future Version", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		persister.Seed(&models.PersistedState{SchemaVersion: 99, LikedSongs: tu.Songs(1, 2)})

		if err := s.Restore(); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(s.Snapshot().Liked) != 0 || persister.State() != nil {
			t.Error("expected unreadable state to be discarded")
		}
	})

	t.Run("Drops Expired Session", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		persister.Seed(&models.PersistedState{
			SchemaVersion: models.CurrentSchemaVersion,
			Session:       &models.Session{Username: "alice", AccessToken: sign(time.Now().Add(-time.Hour))},
			LikedSongs:    tu.Songs(1, 2),
		})

		s.Restore()
		st := s.Snapshot()
		if st.Authenticated() {
			t.Error("expected expired session to be dropped")
		}
		if len(st.Liked) != 2 {
			t.Error("expected liked songs to survive")
		}
		if persister.State().Session != nil {
			t.Error("expected dropped session to be saved")
		}
	})

	t.Run("Keeps Live Session", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		token := sign(time.Now().Add(time.Hour))
		persister.Seed(&models.PersistedState{
			SchemaVersion: models.CurrentSchemaVersion,
			Session:       &models.Session{Username: "alice", AccessToken: token},
		})

		s.Restore()
		if s.AccessToken() != token {
			t.Error("expected live session to be restored")
		}
	})

	t.Run("Nothing Saved", func(t *testing.T) {
		s, _, _ := newTestStore(t)
		if err := s.Restore(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
		if s.Snapshot().Playback.Volume != models.DefaultVolume {
			t.Error("expected default volume")
		}
	})

	t.Run("Load Failure", func(t *testing.T) {
		s, _, persister := newTestStore(t)
		persister.FailAll = true
		if err := s.Restore(); err == nil {
			t.Error("expected load failure to be reported")
		}
	})
}
