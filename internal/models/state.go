package models

import "time"

// FilterAll is the "no filter" value for every enum filter.
const FilterAll = "all"

// PageLimit is the fixed catalogue page size.
const PageLimit = 50

// DefaultVolume is restored when unmuting without a remembered volume.
const DefaultVolume = 0.7

// Known filter options. The backend accepts other values; these are the ones offered in the UI.
var (
	Genres    = []string{FilterAll, "Bollywood", "Pop", "Classical", "Instrumental", "Devotional"}
	Moods     = []string{FilterAll, "Happy", "Sad", "Romantic", "Calm", "Slow"}
	Durations = []string{FilterAll, "Short", "Mid", "Long"}
	Languages = []string{FilterAll, "Hindi", "English", "Punjabi", "Tamil", "Telugu"}
)

// Session is an authenticated user session.
type Session struct {
	Username    string `json:"username"`
	AccessToken string `json:"access_token"`
}

// Valid reports whether the session carries a token.
func (s *Session) Valid() bool {
	return s != nil && s.AccessToken != ""
}

// Filters is the catalogue filter selection.
type Filters struct {
	SearchQuery string
	Genre       string
	Mood        string
	Duration    string
	Language    string
}

// DefaultFilters returns a selection with every enum filter set to [FilterAll].
func DefaultFilters() Filters {
	return Filters{
		Genre:    FilterAll,
		Mood:     FilterAll,
		Duration: FilterAll,
		Language: FilterAll,
	}
}

// Cursor tracks catalogue pagination.
//
// HasMore is true iff the last raw page was full. Skip only advances on load-more fetches.
type Cursor struct {
	Skip    int
	HasMore bool
}

// View selects which list the playback controls navigate.
type View string

const (
	HomeView  View = "home"
	LikedView View = "liked"
)

// Playback holds transport intent and position.
type Playback struct {
	CurrentSong *Song
	IsPlaying   bool
	CurrentTime float64 // seconds
	Volume      float64 // [0,1]
	IsMuted     bool
	PrevVolume  float64
}

// Progress returns the position as a ratio of the song's effective duration, clamped to [0,1].
func (p Playback) Progress() float64 {
	if p.CurrentSong == nil {
		return 0
	}
	ratio := p.CurrentTime / p.CurrentSong.EffectiveDuration()
	switch {
	case ratio < 0:
		return 0
	case ratio > 1:
		return 1
	}
	return ratio
}

// CurrentSchemaVersion is the version tag written with every [PersistedState].
const CurrentSchemaVersion = 2

// PersistedState is the projection of client state that survives restarts.
//
// Everything else (catalogue page, cursor, non-language filters) is session-only.
type PersistedState struct {
	SchemaVersion    int       `json:"schema_version"`
	Session          *Session  `json:"session,omitempty"`
	LikedSongs       []Song    `json:"liked_songs"`
	Volume           float64   `json:"volume"`
	IsMuted          bool      `json:"is_muted"`
	PrevVolume       float64   `json:"prev_volume"`
	CurrentSong      *Song     `json:"current_song,omitempty"`
	CurrentTime      float64   `json:"current_time"`
	SelectedLanguage string    `json:"selected_language"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// CloudState is the preference snapshot held by the backend for a user.
//
// It is returned as "state" by /auth/login and pushed to /user/sync.
type CloudState struct {
	LikedSongs       []Song   `json:"liked_songs"`
	CurrentSong      *Song    `json:"current_song"`
	Volume           *float64 `json:"volume"`
	SelectedLanguage string   `json:"selected_language,omitempty"`
}

// LoginResult is the /auth/login response body.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type,omitempty"`
	State       *CloudState `json:"state"`
}
