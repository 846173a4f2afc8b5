package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/desertthunder/vibe/internal/shared"
)

// Handle is a single native audio output. All positions are in seconds.
type Handle interface {
	// Load replaces the current source and leaves it paused at the start.
	Load(ctx context.Context, url string) error
	Play() error
	Pause()
	Seek(seconds float64) error
	SetVolume(v float64, muted bool)
	Position() float64
	// Duration is the decoded media length, or 0 when unknown.
	Duration() float64
	// Source is the URL of the loaded media, or "" when nothing is loaded.
	Source() string
	// OnEnd sets the callback run when the loaded media plays to its end.
	OnEnd(fn func())
	Close() error
}

// errSuperseded is returned by a load that finished after a newer one started.
var errSuperseded = fmt.Errorf("load superseded: %w", context.Canceled)

// fetchAudio downloads the whole stream into memory.
func fetchAudio(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAudioUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrAudioUnavailable, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAudioUnavailable, err)
	}
	return data, nil
}

// nopCloser wraps a bytes.Reader to implement io.ReadCloser.
type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }

// SilentHandle is a [Handle] with no audio output. Its position follows the wall clock while playing.
type SilentHandle struct {
	mu      sync.Mutex
	now     func() time.Time
	source  string
	playing bool
	base    float64
	started time.Time
	volume  float64
	muted   bool
	onEnd   func()
}

var _ Handle = (*SilentHandle)(nil)

func NewSilentHandle() *SilentHandle {
	return &SilentHandle{now: time.Now, volume: 1}
}

func (h *SilentHandle) Load(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = url
	h.playing = false
	h.base = 0
	return nil
}

func (h *SilentHandle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.source == "" {
		return shared.ErrNoSource
	}
	if !h.playing {
		h.playing = true
		h.started = h.now()
	}
	return nil
}

func (h *SilentHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.base = h.positionLocked()
	h.playing = false
}

func (h *SilentHandle) Seek(seconds float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.source == "" {
		return shared.ErrNoSource
	}
	h.base = max(0, seconds)
	h.started = h.now()
	return nil
}

func (h *SilentHandle) SetVolume(v float64, muted bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.volume, h.muted = v, muted
}

// Volume returns the last mirrored volume and mute flag.
func (h *SilentHandle) Volume() (float64, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.volume, h.muted
}

func (h *SilentHandle) Position() float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.positionLocked()
}

func (h *SilentHandle) positionLocked() float64 {
	if !h.playing {
		return h.base
	}
	return h.base + h.now().Sub(h.started).Seconds()
}

func (h *SilentHandle) Duration() float64 { return 0 }

func (h *SilentHandle) Source() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.source
}

func (h *SilentHandle) OnEnd(fn func()) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onEnd = fn
}

func (h *SilentHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.source = ""
	h.playing = false
	h.base = 0
	return nil
}
