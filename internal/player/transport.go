package player

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/store"
)

// DefaultTick is how often the handle position is reported to the store.
const DefaultTick = 250 * time.Millisecond

// State is the transport's view of the handle.
type State int

const (
	Idle State = iota
	Loading
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	default:
		return "idle"
	}
}

// Controller is the part of the store the transport drives and observes.
type Controller interface {
	Snapshot() store.State
	Subscribe(fn func(store.Event)) func()
	SetCurrentTime(seconds float64)
	PlayNext()
	Pause()
}

// URLBuilder builds stream URLs from stream references.
type URLBuilder interface {
	StreamURL(ref models.ID) string
}

// Transport maps the store's playback intent onto one [Handle] and reports the position back.
//
// Volume and mute flow from the store to the handle; the position flows from the handle to the store.
type Transport struct {
	ctrl   Controller
	urls   URLBuilder
	handle Handle
	logger *log.Logger
	tick   time.Duration

	mu     sync.Mutex
	state  State
	song   *models.Song
	source string
	loads  uint64
	cancel context.CancelFunc
	// warm is set after the first load; only a cold load resumes the saved position.
	warm   bool
	volume float64
	muted  bool
	synced bool

	unsubscribe func()
	stop        chan struct{}
	done        chan struct{}
}

// NewTransport creates a transport; call [Transport.Start] to attach it to the store.
func NewTransport(ctrl Controller, urls URLBuilder, handle Handle, logger *log.Logger) *Transport {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	t := &Transport{
		ctrl:   ctrl,
		urls:   urls,
		handle: handle,
		logger: logger,
		tick:   DefaultTick,
	}
	handle.OnEnd(t.ended)
	return t
}

// SetTick changes the position reporting interval. It has no effect once started.
func (t *Transport) SetTick(d time.Duration) {
	if d > 0 {
		t.tick = d
	}
}

// Start subscribes to the store, applies the current intent, and starts position reporting.
func (t *Transport) Start() {
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	t.unsubscribe = t.ctrl.Subscribe(func(store.Event) { t.Reconcile() })
	t.Reconcile()
	go t.run()
}

// Close stops reporting, detaches from the store, and releases the handle.
func (t *Transport) Close() error {
	if t.unsubscribe != nil {
		t.unsubscribe()
	}
	if t.stop != nil {
		close(t.stop)
		<-t.done
		t.stop = nil
	}

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.state = Idle
	t.mu.Unlock()

	return t.handle.Close()
}

// State returns the transport state.
func (t *Transport) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func (t *Transport) run() {
	defer close(t.done)

	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			t.report()
		}
	}
}

// Reconcile brings the handle in line with the store's playback state.
func (t *Transport) Reconcile() {
	pb := t.ctrl.Snapshot().Playback

	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.synced || pb.Volume != t.volume || pb.IsMuted != t.muted {
		t.handle.SetVolume(pb.Volume, pb.IsMuted)
		t.volume, t.muted, t.synced = pb.Volume, pb.IsMuted, true
	}

	if pb.CurrentSong == nil {
		if t.state != Idle {
			t.handle.Pause()
			t.cancelLoadLocked()
			t.state = Idle
			t.song = nil
			t.source = ""
		}
		return
	}

	url := t.urls.StreamURL(pb.CurrentSong.StreamRef)
	if !pb.CurrentSong.Playable() || url == "" {
		if t.song == nil || !t.song.SameAs(*pb.CurrentSong) {
			t.logger.Warn("song is not playable", "id", pb.CurrentSong.ID, "title", pb.CurrentSong.DisplayTitle())
			t.handle.Pause()
			t.cancelLoadLocked()
			song := *pb.CurrentSong
			t.song = &song
			t.source = ""
			t.state = Idle
		}
		return
	}

	if url != t.source {
		resumeAt := 0.0
		if !t.warm && pb.CurrentTime > 0 {
			resumeAt = pb.CurrentTime
		}
		t.warm = true
		t.startLoadLocked(*pb.CurrentSong, url, resumeAt)
		return
	}

	t.applyIntentLocked(pb.IsPlaying)
}

func (t *Transport) applyIntentLocked(playing bool) {
	switch {
	case playing && t.state == Paused:
		if err := t.handle.Play(); err != nil {
			t.logger.Warn("play failed", "error", err)
			return
		}
		t.state = Playing
	case !playing && t.state == Playing:
		t.handle.Pause()
		t.state = Paused
	}
}

func (t *Transport) cancelLoadLocked() {
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.loads++
}

func (t *Transport) startLoadLocked(song models.Song, url string, resumeAt float64) {
	t.cancelLoadLocked()
	t.handle.Pause()

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.song = &song
	t.source = url
	t.state = Loading
	id := t.loads

	t.logger.Debug("loading stream", "id", song.ID, "url", url, "resume", resumeAt)
	go t.load(ctx, id, url, resumeAt)
}

func (t *Transport) load(ctx context.Context, id uint64, url string, resumeAt float64) {
	err := t.handle.Load(ctx, url)

	t.mu.Lock()
	if id != t.loads {
		t.mu.Unlock()
		return
	}
	t.cancel = nil

	if err != nil {
		t.state = Idle
		t.mu.Unlock()
		if !errors.Is(err, context.Canceled) {
			t.logger.Error("failed to load stream", "url", url, "error", err)
		}
		return
	}

	if resumeAt > 0 {
		if err := t.handle.Seek(resumeAt); err != nil {
			t.logger.Warn("failed to resume position", "at", resumeAt, "error", err)
		}
	}
	t.state = Paused
	t.mu.Unlock()

	t.Reconcile()
}

// report pushes the handle position to the store.
func (t *Transport) report() {
	t.mu.Lock()
	if t.state != Playing || t.song == nil {
		t.mu.Unlock()
		return
	}
	pos := t.handle.Position()
	// Without a decoded duration the song's own length decides when it is over.
	over := t.handle.Duration() == 0 && pos >= t.song.EffectiveDuration()
	id := t.loads
	t.mu.Unlock()

	t.ctrl.SetCurrentTime(pos)
	if over {
		t.finish(id)
	}
}

// ended is the handle's end-of-media callback.
func (t *Transport) ended() {
	t.mu.Lock()
	id := t.loads
	t.mu.Unlock()
	t.finish(id)
}

// finish advances the store to the next song, pausing when the list is exhausted.
func (t *Transport) finish(id uint64) {
	t.mu.Lock()
	if id != t.loads || t.state != Playing {
		t.mu.Unlock()
		return
	}
	t.handle.Pause()
	t.state = Paused
	var finished models.ID
	if t.song != nil {
		finished = t.song.ID
	}
	t.mu.Unlock()

	t.logger.Debug("track ended", "id", finished)
	t.ctrl.PlayNext()

	if cur := t.ctrl.Snapshot().Playback.CurrentSong; cur == nil || cur.ID == finished {
		t.ctrl.Pause()
	}
}

// Seek moves the handle and the store to seconds, clamped to the song.
func (t *Transport) Seek(seconds float64) error {
	t.mu.Lock()
	if t.song == nil || t.state == Idle || t.state == Loading {
		t.mu.Unlock()
		return nil
	}

	limit := t.handle.Duration()
	if limit == 0 {
		limit = t.song.EffectiveDuration()
	}
	seconds = max(0, min(seconds, limit))

	err := t.handle.Seek(seconds)
	t.mu.Unlock()
	if err != nil {
		return err
	}

	t.ctrl.SetCurrentTime(seconds)
	return nil
}

// SeekBy moves the position by delta seconds.
func (t *Transport) SeekBy(delta float64) error {
	return t.Seek(t.ctrl.Snapshot().Playback.CurrentTime + delta)
}

// Progress returns the position, the duration used for progress math, and their ratio.
func (t *Transport) Progress() (pos, dur, ratio float64) {
	st := t.ctrl.Snapshot()
	pb := st.Playback
	if pb.CurrentSong == nil {
		return 0, 0, 0
	}

	pos = pb.CurrentTime
	dur = pb.CurrentSong.EffectiveDuration()

	t.mu.Lock()
	if t.song != nil && t.song.SameAs(*pb.CurrentSong) && t.state != Loading {
		if d := t.handle.Duration(); d > 0 {
			dur = d
		}
	}
	t.mu.Unlock()

	if dur > 0 {
		ratio = max(0, min(pos/dur, 1))
	}
	return pos, dur, ratio
}
