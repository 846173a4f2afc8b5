//go:build (linux && cgo) || windows || darwin

package player

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

// speakerHandle plays mp3 streams through the system speaker using beep.
type speakerHandle struct {
	mu sync.Mutex

	client      *http.Client
	sampleRate  beep.SampleRate
	initialized bool

	source   string
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	// loadID is incremented on every install so callbacks from replaced streams are ignored.
	loadID uint64
	// requested is incremented when a load starts; only the newest request may install its stream.
	requested uint64

	level float64
	muted bool
	onEnd func()
}

// NewHandle returns the speaker-backed handle.
func NewHandle(client *http.Client, sampleRate int) Handle {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &speakerHandle{
		client:     client,
		sampleRate: beep.SampleRate(sampleRate),
		level:      1,
	}
}

func (h *speakerHandle) initSpeaker() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.initialized {
		return nil
	}
	if err := speaker.Init(h.sampleRate, h.sampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAudioUnavailable, err)
	}
	h.initialized = true
	return nil
}

func (h *speakerHandle) Load(ctx context.Context, url string) error {
	h.mu.Lock()
	h.requested++
	ticket := h.requested
	h.mu.Unlock()

	data, err := fetchAudio(ctx, h.client, url)
	if err != nil {
		return err
	}

	h.mu.Lock()
	err = h.supersededLocked(ctx, ticket)
	h.mu.Unlock()
	if err != nil {
		return err
	}

	streamer, format, err := mp3.Decode(nopCloser{bytes.NewReader(data)})
	if err != nil {
		return fmt.Errorf("%w: failed to decode: %v", shared.ErrAudioUnavailable, err)
	}

	if err := h.initSpeaker(); err != nil {
		streamer.Close()
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.supersededLocked(ctx, ticket); err != nil {
		streamer.Close()
		return err
	}

	h.stopLocked()
	h.source = url
	h.streamer = streamer
	h.format = format
	h.loadID++
	id := h.loadID

	resampled := beep.Resample(4, format.SampleRate, h.sampleRate, streamer)
	h.ctrl = &beep.Ctrl{Streamer: resampled, Paused: true}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2}
	h.applyVolumeLocked()

	speaker.Play(beep.Seq(h.volume, beep.Callback(func() {
		// The callback runs under the speaker lock.
		go h.finished(id)
	})))
	return nil
}

// supersededLocked fails when the load was canceled or a newer one has started.
func (h *speakerHandle) supersededLocked(ctx context.Context, ticket uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ticket != h.requested {
		return errSuperseded
	}
	return nil
}

func (h *speakerHandle) finished(id uint64) {
	h.mu.Lock()
	if id != h.loadID {
		h.mu.Unlock()
		return
	}
	fn := h.onEnd
	h.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (h *speakerHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctrl == nil {
		return shared.ErrNoSource
	}
	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *speakerHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ctrl != nil {
		speaker.Lock()
		h.ctrl.Paused = true
		speaker.Unlock()
	}
}

func (h *speakerHandle) Seek(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamer == nil {
		return shared.ErrNoSource
	}

	speaker.Lock()
	defer speaker.Unlock()

	n := h.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))
	n = max(0, min(n, h.streamer.Len()-1))
	return h.streamer.Seek(n)
}

func (h *speakerHandle) SetVolume(v float64, muted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.level, h.muted = v, muted
	if h.volume != nil {
		speaker.Lock()
		h.applyVolumeLocked()
		speaker.Unlock()
	}
}

// applyVolumeLocked maps the linear level onto the base-2 volume effect.
func (h *speakerHandle) applyVolumeLocked() {
	h.volume.Silent = h.muted || h.level <= 0
	if h.level > 0 {
		h.volume.Volume = math.Log2(h.level)
	}
}

func (h *speakerHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamer == nil {
		return 0
	}

	speaker.Lock()
	pos := h.streamer.Position()
	speaker.Unlock()

	return h.format.SampleRate.D(pos).Seconds()
}

func (h *speakerHandle) Duration() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.streamer == nil {
		return 0
	}
	return h.format.SampleRate.D(h.streamer.Len()).Seconds()
}

func (h *speakerHandle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func (h *speakerHandle) OnEnd(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnd = fn
}

func (h *speakerHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.stopLocked()
	if h.initialized {
		speaker.Close()
		h.initialized = false
	}
	return nil
}

// stopLocked drops the current stream (must be called with lock held).
func (h *speakerHandle) stopLocked() {
	if h.initialized {
		speaker.Clear()
	}
	if h.streamer != nil {
		h.streamer.Close()
		h.streamer = nil
	}
	h.ctrl = nil
	h.volume = nil
	h.source = ""
}
