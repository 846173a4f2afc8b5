// package models defines the data model for the vibe music client
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode"
)

// FallbackDuration is used for progress math until the real media duration is known.
const FallbackDuration float64 = 240

const (
	unknownTitle  = "Unknown Title"
	unknownArtist = "Unknown Artist"
)

// ID is a canonicalized song identifier.
//
// The backend may emit identifiers as JSON strings or numbers; a number decodes to the same string as its
// integer text, so 42 and "42" compare equal.
type ID string

// UnmarshalJSON accepts a JSON string, number, or null.
//
// Strings are kept as sent apart from surrounding space; only numbers are folded to their integer form.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid id: %w", err)
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	*id = numericID(n.String())
	return nil
}

// String returns the canonical string form.
func (id ID) String() string { return string(id) }

// CanonicalID coerces a user-supplied identifier, such as a command argument, into its canonical form.
func CanonicalID(raw string) ID {
	return ID(strings.TrimSpace(raw))
}

// numericID collapses integral numbers ("42", "42.0", "4.2e1") to their base-10 integer string.
func numericID(raw string) ID {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return ID(strconv.FormatInt(i, 10))
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<63 {
		return ID(strconv.FormatInt(int64(f), 10))
	}
	return ID(raw)
}

// Song is a catalogue entry. Songs are never mutated once fetched.
type Song struct {
	ID         ID      `json:"id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	CoverArt   string  `json:"album_art,omitempty"`
	Duration   float64 `json:"duration,omitempty"` // Duration in seconds, zero when unknown
	StreamRef  ID      `json:"msg_id,omitempty"`
	IsPlayable bool    `json:"is_playable"`
}

// UnmarshalJSON decodes a song, tolerating durations the backend sends as strings.
func (s *Song) UnmarshalJSON(data []byte) error {
	type song Song
	aux := struct {
		*song
		Duration json.RawMessage `json:"duration"`
	}{song: (*song)(s)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Duration = ParseSeconds(aux.Duration)
	return nil
}

// ParseSeconds reads a duration sent as a number, a numeric string, or "MM:SS" / "H:MM:SS".
//
// Anything else, including null and negative values, yields 0.
func ParseSeconds(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}

	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0
		}
	}
	text = strings.TrimSpace(text)

	if !strings.Contains(text, ":") {
		v, err := strconv.ParseFloat(text, 64)
		if err != nil || v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}

	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0
	}
	total := 0.0
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || (i > 0 && v >= 60) {
			return 0
		}
		total = total*60 + float64(v)
	}
	return total
}

// Signature returns the normalized "title|artist" content key used for deduplication.
//
// Both parts are lowercased with everything but letters and digits removed.
func (s Song) Signature() string {
	return Normalize(s.Title) + "|" + Normalize(s.Artist)
}

// Normalize lowercases text and strips every rune that is not a letter or digit.
func Normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Playable reports whether a stream URL can be built for the song.
func (s Song) Playable() bool {
	return s.IsPlayable && s.StreamRef != ""
}

// EffectiveDuration returns the song duration in seconds, or [FallbackDuration] when absent.
func (s Song) EffectiveDuration() float64 {
	if s.Duration > 0 {
		return s.Duration
	}
	return FallbackDuration
}

func (s Song) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return unknownTitle
	}
	return s.Title
}

func (s Song) DisplayArtist() string {
	if strings.TrimSpace(s.Artist) == "" {
		return unknownArtist
	}
	return s.Artist
}

// SameAs compares two songs by canonical ID.
func (s Song) SameAs(other Song) bool {
	return s.ID == other.ID
}

// SongPage is the /songs response envelope.
type SongPage struct {
	Results []Song `json:"results"`
}
