package player

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
	tu "github.com/desertthunder/vibe/internal/testing"
)

// fakeHandle is a scriptable [Handle].
type fakeHandle struct {
	mu       sync.Mutex
	source   string
	playing  bool
	pos      float64
	dur      float64
	volume   float64
	muted    bool
	seeks    []float64
	loads    []string
	loadGate chan struct{}
	loadErr  error
	playErr  error
	onEnd    func()
	closed   bool
}

func (f *fakeHandle) Load(ctx context.Context, url string) error {
	f.mu.Lock()
	f.loads = append(f.loads, url)
	gate := f.loadGate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return f.loadErr
	}
	f.source, f.pos, f.playing = url, 0, false
	return nil
}

func (f *fakeHandle) Play() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.playErr != nil {
		return f.playErr
	}
	f.playing = true
	return nil
}

func (f *fakeHandle) Pause() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.playing = false
}

func (f *fakeHandle) Seek(seconds float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seeks = append(f.seeks, seconds)
	f.pos = seconds
	return nil
}

func (f *fakeHandle) SetVolume(v float64, muted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.volume, f.muted = v, muted
}

func (f *fakeHandle) Position() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pos
}

func (f *fakeHandle) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dur
}

func (f *fakeHandle) Source() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.source
}

func (f *fakeHandle) OnEnd(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onEnd = fn
}

func (f *fakeHandle) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeHandle) set(fn func(f *fakeHandle)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeHandle) isPlaying() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.playing
}

func (f *fakeHandle) end() {
	f.mu.Lock()
	fn := f.onEnd
	f.mu.Unlock()
	fn()
}

type fixture struct {
	store     *store.Store
	api       *services.APIService
	handle    *fakeHandle
	transport *Transport
	persister *tu.MemoryPersister
}

func newFixture(t *testing.T, songs int) *fixture {
	t.Helper()

	backend := tu.NewBackend(t)
	backend.Catalogue = tu.Songs(1, songs)

	api := services.NewAPIService(backend.URL(), nil)
	persister := &tu.MemoryPersister{}
	s := store.New(api, persister, nil)
	if songs > 0 {
		s.FetchSongs(context.Background(), false)
	}

	h := &fakeHandle{dur: 180}
	tr := NewTransport(s, api, h, nil)
	tr.SetTick(5 * time.Millisecond)

	t.Cleanup(func() {
		tr.Close()
		s.Close()
	})
	return &fixture{store: s, api: api, handle: h, transport: tr, persister: persister}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestTransport(t *testing.T) {
	t.Run("Idle Without Song", func(t *testing.T) {
		f := newFixture(t, 0)
		f.transport.Start()

		if f.transport.State() != Idle {
			t.Errorf("expected idle, got %s", f.transport.State())
		}
		if len(f.handle.loads) != 0 {
			t.Error("expected no loads")
		}
	})

	t.Run("Loads And Plays Selected Song", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()

		song := tu.Song(1, "Song 1", "Artist 1")
		f.store.SetCurrentSong(song)
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		if got, want := f.handle.Source(), f.api.StreamURL(song.StreamRef); got != want {
			t.Errorf("expected source %s, got %s", want, got)
		}
		if !f.handle.isPlaying() {
			t.Error("expected handle to be playing")
		}
	})

	t.Run("Pause Mirrors Store", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.store.Pause()
		if f.transport.State() != Paused || f.handle.isPlaying() {
			t.Error("expected paused handle")
		}
		f.store.Resume()
		if f.transport.State() != Playing || !f.handle.isPlaying() {
			t.Error("expected playing handle")
		}
	})

	t.Run("Cold Load Resumes Saved Position", func(t *testing.T) {
		f := newFixture(t, 3)
		song := tu.Song(2, "Song 2", "Artist 2")
		f.persister.Seed(&models.PersistedState{
			SchemaVersion: models.CurrentSchemaVersion,
			CurrentSong:   &song,
			CurrentTime:   30,
			Volume:        0.5,
		})
		f.store.Restore()

		f.transport.Start()
		waitFor(t, "paused", func() bool { return f.transport.State() == Paused })

		f.handle.mu.Lock()
		seeks := append([]float64(nil), f.handle.seeks...)
		f.handle.mu.Unlock()
		if len(seeks) != 1 || seeks[0] != 30 {
			t.Errorf("expected seek to 30, got %v", seeks)
		}
		if f.handle.isPlaying() {
			t.Error("expected restored song to stay paused")
		}

		f.store.SetCurrentSong(tu.Song(3, "Song 3", "Artist 3"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.handle.mu.Lock()
		defer f.handle.mu.Unlock()
		if len(f.handle.seeks) != 1 {
			t.Errorf("expected no seek on a warm load, got %v", f.handle.seeks)
		}
	})

	t.Run("Volume Mirrors Store", func(t *testing.T) {
		f := newFixture(t, 0)
		f.transport.Start()

		f.store.SetVolume(0.3)
		if f.handle.volume != 0.3 || f.handle.muted {
			t.Errorf("expected volume 0.3, got %v muted=%v", f.handle.volume, f.handle.muted)
		}
		f.store.ToggleMute()
		if f.handle.volume != 0 || !f.handle.muted {
			t.Errorf("expected muted handle, got %v muted=%v", f.handle.volume, f.handle.muted)
		}
	})

	t.Run("Reports Position", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.handle.set(func(h *fakeHandle) { h.pos = 12 })
		waitFor(t, "position report", func() bool {
			return f.store.Snapshot().Playback.CurrentTime == 12
		})
	})

	t.Run("End Plays Next", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.handle.end()

		if cur := f.store.Snapshot().Playback.CurrentSong; cur.ID != "2" {
			t.Errorf("expected song 2, got %s", cur.ID)
		}
		waitFor(t, "next song", func() bool {
			return f.handle.Source() == f.api.StreamURL(tu.Song(2, "", "").StreamRef) && f.transport.State() == Playing
		})
	})

	t.Run("End Of List Pauses", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(3, "Song 3", "Artist 3"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.handle.end()

		pb := f.store.Snapshot().Playback
		if pb.CurrentSong.ID != "3" || pb.IsPlaying {
			t.Errorf("expected paused on last song, got %+v", pb)
		}
	})

	t.Run("Unknown Duration Ends At Effective Duration", func(t *testing.T) {
		f := newFixture(t, 3)
		f.handle.set(func(h *fakeHandle) { h.dur = 0 })
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		f.handle.set(func(h *fakeHandle) { h.pos = 181 })
		waitFor(t, "advance", func() bool {
			cur := f.store.Snapshot().Playback.CurrentSong
			return cur != nil && cur.ID == "2"
		})
	})

	t.Run("Seek Updates Store", func(t *testing.T) {
		f := newFixture(t, 3)
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		waitFor(t, "playing", func() bool { return f.transport.State() == Playing })

		if err := f.transport.Seek(50); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := f.store.Snapshot().Playback.CurrentTime; got != 50 {
			t.Errorf("expected store time 50, got %v", got)
		}
		if f.handle.Position() != 50 {
			t.Errorf("expected handle at 50, got %v", f.handle.Position())
		}

		f.transport.Seek(1000)
		if got := f.store.Snapshot().Playback.CurrentTime; got != 180 {
			t.Errorf("expected clamp to 180, got %v", got)
		}
		f.transport.Seek(-4)
		if got := f.store.Snapshot().Playback.CurrentTime; got != 0 {
			t.Errorf("expected clamp to 0, got %v", got)
		}
	})

	t.Run("Failed Play Is Not Fatal", func(t *testing.T) {
		f := newFixture(t, 3)
		f.handle.set(func(h *fakeHandle) { h.playErr = errors.New("blocked") })
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))

		waitFor(t, "loaded", func() bool { return f.transport.State() == Paused })
		f.handle.set(func(h *fakeHandle) { h.playErr = nil })
		f.store.Pause()
		f.store.Resume()
		if f.transport.State() != Playing {
			t.Errorf("expected playing after retry, got %s", f.transport.State())
		}
	})

	t.Run("Failed Load Goes Idle", func(t *testing.T) {
		f := newFixture(t, 3)
		f.handle.set(func(h *fakeHandle) { h.loadErr = shared.ErrAudioUnavailable })
		f.transport.Start()
		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))

		waitFor(t, "idle", func() bool {
			f.handle.mu.Lock()
			defer f.handle.mu.Unlock()
			return len(f.handle.loads) == 1 && f.transport.State() == Idle
		})
	})

	t.Run("Unplayable Song Is Skipped", func(t *testing.T) {
		f := newFixture(t, 0)
		f.transport.Start()

		song := tu.Song(1, "A", "B")
		song.StreamRef = ""
		f.store.SetCurrentSong(song)

		if f.transport.State() != Idle || len(f.handle.loads) != 0 {
			t.Error("expected no load for an unplayable song")
		}
	})

	t.Run("Superseded Load Is Dropped", func(t *testing.T) {
		f := newFixture(t, 3)
		gate := make(chan struct{})
		f.handle.set(func(h *fakeHandle) { h.loadGate = gate })
		f.transport.Start()

		f.store.SetCurrentSong(tu.Song(1, "Song 1", "Artist 1"))
		f.store.SetCurrentSong(tu.Song(2, "Song 2", "Artist 2"))
		close(gate)

		want := f.api.StreamURL(tu.Song(2, "", "").StreamRef)
		waitFor(t, "second song", func() bool {
			return f.transport.State() == Playing && f.handle.Source() == want
		})
	})

	t.Run("Progress", func(t *testing.T) {
		f := newFixture(t, 0)
		if _, _, r := f.transport.Progress(); r != 0 {
			t.Errorf("expected zero progress without song, got %v", r)
		}

		song := tu.Song(1, "A", "B")
		song.Duration = 0
		song.StreamRef = ""
		f.store.SetCurrentSong(song)
		f.store.SetCurrentTime(60)

		pos, dur, ratio := f.transport.Progress()
		if pos != 60 || dur != models.FallbackDuration || ratio != 0.25 {
			t.Errorf("expected 60/240 = 0.25, got %v/%v = %v", pos, dur, ratio)
		}
	})

	t.Run("Close Releases Handle", func(t *testing.T) {
		f := newFixture(t, 0)
		f.transport.Start()
		f.transport.Close()

		if !f.handle.closed {
			t.Error("expected handle to be closed")
		}
	})
}

func TestSilentHandle(t *testing.T) {
	now := time.Unix(0, 0)
	h := NewSilentHandle()
	h.now = func() time.Time { return now }

	if err := h.Play(); !errors.Is(err, shared.ErrNoSource) {
		t.Errorf("expected ErrNoSource, got %v", err)
	}

	h.Load(context.Background(), "http://x/stream/1")
	h.Play()
	now = now.Add(3 * time.Second)
	if h.Position() != 3 {
		t.Errorf("expected 3s, got %v", h.Position())
	}

	h.Pause()
	now = now.Add(10 * time.Second)
	if h.Position() != 3 {
		t.Errorf("expected position to hold while paused, got %v", h.Position())
	}

	h.Seek(40)
	h.Play()
	now = now.Add(time.Second)
	if h.Position() != 41 {
		t.Errorf("expected 41s, got %v", h.Position())
	}

	h.SetVolume(0.2, true)
	if v, m := h.Volume(); v != 0.2 || !m {
		t.Errorf("unexpected volume %v muted=%v", v, m)
	}

	h.Close()
	if h.Source() != "" || h.Position() != 0 {
		t.Error("expected reset after close")
	}
}
