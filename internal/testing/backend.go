package testing

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/vibe/internal/models"
)

// Backend is an in-process fake of the music backend API.
//
// Catalogue pages are served from Catalogue by skip/limit unless Pages is set, in which case
// the Nth /songs request gets Pages[N] (and an empty page once exhausted).
type Backend struct {
	Server *httptest.Server

	mu         sync.Mutex
	Catalogue  []models.Song
	Pages      [][]models.Song
	Users      map[string]string // username -> password
	Tokens     map[string]string // username -> token issued on login
	CloudState map[string]*models.CloudState
	Lyrics     map[string]string // "artist|title" -> lyrics
	Extracts   map[string]string // query -> extract
	Audio      []byte

	// RejectTokens makes authenticated requests fail with 401.
	RejectTokens bool
	// FailSongs makes /songs fail with 500.
	FailSongs bool
	// SongsGate, when set, blocks /songs until a value is received or the channel is closed.
	SongsGate chan struct{}

	SongQueries []map[string]string
	SyncBodies  []models.CloudState
	AuthHeaders map[string][]string // path -> Authorization headers seen
	Registered  []string
}

// NewBackend starts a fake backend; it is closed when the test ends.
func NewBackend(t *testing.T) *Backend {
	t.Helper()

	b := &Backend{
		Users:       map[string]string{},
		Tokens:      map[string]string{},
		CloudState:  map[string]*models.CloudState{},
		Lyrics:      map[string]string{},
		Extracts:    map[string]string{},
		AuthHeaders: map[string][]string{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/songs", b.handleSongs)
	mux.HandleFunc("/auth/login", b.handleLogin)
	mux.HandleFunc("/auth/register", b.handleRegister)
	mux.HandleFunc("/user/sync", b.handleSync)
	mux.HandleFunc("/proxy/lyrics", b.handleLyrics)
	mux.HandleFunc("/proxy/wiki", b.handleWiki)
	mux.HandleFunc("/stream/", b.handleStream)

	b.Server = httptest.NewServer(b.record(mux))
	t.Cleanup(b.Server.Close)
	return b
}

// URL returns the backend origin.
func (b *Backend) URL() string { return b.Server.URL }

// SongRequests returns the number of /songs requests served.
func (b *Backend) SongRequests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.SongQueries)
}

// Queries returns a copy of the /songs query parameters received, in order.
func (b *Backend) Queries() []map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]map[string]string(nil), b.SongQueries...)
}

// Syncs returns a copy of the received /user/sync bodies.
func (b *Backend) Syncs() []models.CloudState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.CloudState(nil), b.SyncBodies...)
}

// Headers returns the Authorization headers seen for path.
func (b *Backend) Headers(path string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.AuthHeaders[path]...)
}

// AddUser registers credentials and the token and cloud state login returns for them.
func (b *Backend) AddUser(username, password, token string, state *models.CloudState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Users[username] = password
	b.Tokens[username] = token
	b.CloudState[username] = state
}

// Configure mutates the backend under its lock, for changes made while requests may be in flight.
func (b *Backend) Configure(fn func(b *Backend)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fn(b)
}

// SetRejectTokens toggles 401 responses for authenticated routes.
func (b *Backend) SetRejectTokens(v bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RejectTokens = v
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		path := r.URL.Path
		if strings.HasPrefix(path, "/stream/") {
			path = "/stream/"
		}
		b.AuthHeaders[path] = append(b.AuthHeaders[path], r.Header.Get("Authorization"))
		reject := b.RejectTokens && !strings.HasPrefix(r.URL.Path, "/auth/")
		b.mu.Unlock()

		if reject {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Could not validate credentials"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) handleSongs(w http.ResponseWriter, r *http.Request) {
	q := map[string]string{}
	for k := range r.URL.Query() {
		q[k] = r.URL.Query().Get(k)
	}

	b.mu.Lock()
	n := len(b.SongQueries)
	b.SongQueries = append(b.SongQueries, q)
	gate := b.SongsGate
	fail := b.FailSongs
	b.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-r.Context().Done():
			return
		}
	}

	if fail {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "boom"})
		return
	}

	b.mu.Lock()
	var results []models.Song
	if b.Pages != nil {
		if n < len(b.Pages) {
			results = b.Pages[n]
		}
	} else {
		skip, _ := strconv.Atoi(q["skip"])
		limit, _ := strconv.Atoi(q["limit"])
		if limit <= 0 {
			limit = models.PageLimit
		}
		if skip < len(b.Catalogue) {
			end := min(skip+limit, len(b.Catalogue))
			results = b.Catalogue[skip:end]
		}
	}
	b.mu.Unlock()

	if results == nil {
		results = []models.Song{}
	}
	writeJSON(w, http.StatusOK, models.SongPage{Results: results})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad request"})
		return
	}

	b.mu.Lock()
	password, ok := b.Users[creds.Username]
	token := b.Tokens[creds.Username]
	state := b.CloudState[creds.Username]
	b.mu.Unlock()

	if !ok || password != creds.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username or password"})
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResult{AccessToken: token, TokenType: "bearer", State: state})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad request"})
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.Users[creds.Username]; exists {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "Username already taken"})
		return
	}
	b.Users[creds.Username] = creds.Password
	b.Tokens[creds.Username] = "token-" + creds.Username
	b.Registered = append(b.Registered, creds.Username)
	writeJSON(w, http.StatusOK, map[string]string{"message": "User created"})
}

func (b *Backend) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Not authenticated"})
		return
	}

	var state models.CloudState
	if err := json.NewDecoder(r.Body).Decode(&state); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "bad request"})
		return
	}

	b.mu.Lock()
	b.SyncBodies = append(b.SyncBodies, state)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"status": "synced"})
}

func (b *Backend) handleLyrics(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("artist") + "|" + r.URL.Query().Get("title")
	b.mu.Lock()
	lyrics := b.Lyrics[key]
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"lyrics": lyrics})
}

func (b *Backend) handleWiki(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	extract, ok := b.Extracts[r.URL.Query().Get("query")]
	if !ok {
		extract = b.Extracts[r.URL.Query().Get("fallback")]
	}
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"extract": extract})
}

func (b *Backend) handleStream(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	audio := b.Audio
	b.mu.Unlock()
	if audio == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Audio file not found"})
		return
	}
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Write(audio)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Song builds a playable test song with a numeric-looking id.
func Song(id int, title, artist string) models.Song {
	return models.Song{
		ID:         models.ID(strconv.Itoa(id)),
		Title:      title,
		Artist:     artist,
		Duration:   180,
		StreamRef:  models.ID(strconv.Itoa(1000 + id)),
		IsPlayable: true,
	}
}

// Songs builds distinct songs with ids from..to inclusive.
func Songs(from, to int) []models.Song {
	songs := make([]models.Song, 0, to-from+1)
	for i := from; i <= to; i++ {
		songs = append(songs, Song(i, fmt.Sprintf("Song %d", i), fmt.Sprintf("Artist %d", i)))
	}
	return songs
}
