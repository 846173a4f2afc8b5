package store

import (
	"context"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
)

// Event tells subscribers why they were notified.
type Event int

const (
	// Changed is sent after any state mutation.
	Changed Event = iota
	// SessionExpired is sent after a 401 tore the session down.
	SessionExpired
)

func (e Event) String() string {
	switch e {
	case SessionExpired:
		return "session-expired"
	default:
		return "changed"
	}
}

// Persister stores the [models.PersistedState] projection between runs.
//
// Load returns nil, nil when nothing has been saved.
type Persister interface {
	Load() (*models.PersistedState, error)
	Save(state models.PersistedState) error
	// SavePosition updates only the playback position, reporting false when nothing is saved yet.
	SavePosition(seconds float64, at time.Time) (bool, error)
	Clear() error
}

// State is a point-in-time copy of the store.
type State struct {
	Songs      []models.Song
	Filters    models.Filters
	Cursor     models.Cursor
	IsLoading  bool
	Liked      []models.Song
	Playback   models.Playback
	View       models.View
	PlayerOpen bool
	Session    *models.Session
}

// IsLiked reports whether a song with the same canonical id is in the liked set.
func (s State) IsLiked(song models.Song) bool {
	return slices.ContainsFunc(s.Liked, song.SameAs)
}

// ActiveList returns the list playback navigates: the liked set in the liked view, the catalogue otherwise.
func (s State) ActiveList() []models.Song {
	if s.View == models.LikedView {
		return s.Liked
	}
	return s.Songs
}

// Authenticated reports whether a session is held.
func (s State) Authenticated() bool {
	return s.Session.Valid()
}

// Store is the client's single state container.
//
// Actions are serialized by a mutex; network calls run outside it.
// Subscribers are notified after the lock is released.
type Store struct {
	backend   services.Backend
	persister Persister
	logger    *log.Logger
	now       func() time.Time
	pageLimit int

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	state State
	// generation is bumped whenever the catalogue query changes; fetches started under an older one are discarded.
	generation  uint64
	cancelFetch context.CancelFunc
	savedTime   float64

	syncs sync.WaitGroup

	subsMu  sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

var _ services.TokenSource = (*Store)(nil)

// New creates a store over backend and registers itself as the backend's token source and 401 handler.
//
// A nil persister keeps state in memory only.
func New(backend services.Backend, persister Persister, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:   backend,
		persister: persister,
		logger:    logger,
		now:       time.Now,
		pageLimit: models.PageLimit,
		ctx:       ctx,
		cancel:    cancel,
		subs:      make(map[int]func(Event)),
		state: State{
			Filters: models.DefaultFilters(),
			Cursor:  models.Cursor{HasMore: true},
			Playback: models.Playback{
				Volume:     models.DefaultVolume,
				PrevVolume: models.DefaultVolume,
			},
			View: models.HomeView,
		},
	}

	backend.SetTokenSource(s)
	backend.OnUnauthorized(s.expire)
	return s
}

// SetPageLimit overrides the catalogue page size.
func (s *Store) SetPageLimit(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pageLimit = n
}

// AccessToken lends the session token to the API client.
func (s *Store) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.Session == nil {
		return ""
	}
	return s.state.Session.AccessToken
}

// Backend returns the backend the store talks to.
func (s *Store) Backend() services.Backend { return s.backend }

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (s *Store) snapshot() State {
	st := s.state
	st.Songs = slices.Clone(s.state.Songs)
	st.Liked = slices.Clone(s.state.Liked)
	if s.state.Session != nil {
		sess := *s.state.Session
		st.Session = &sess
	}
	if s.state.Playback.CurrentSong != nil {
		song := *s.state.Playback.CurrentSong
		st.Playback.CurrentSong = &song
	}
	return st
}

// Subscribe registers fn to be called after every mutation. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(Event)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) notify(e Event) {
	s.subsMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()

	for _, fn := range fns {
		fn(e)
	}
}

// update runs fn under the lock, then notifies subscribers.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify(Changed)
}

// Flush waits for background cloud syncs to finish.
func (s *Store) Flush() {
	s.syncs.Wait()
}

// Close cancels in-flight work, waits for pending syncs, and saves the final state.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.mu.Unlock()

	s.syncs.Wait()
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked()
}
