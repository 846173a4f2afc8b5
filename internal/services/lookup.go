package services

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
)

var (
	lyricsNotFound    = []string{"(Instrumental or Lyrics not found)", "Just feel the vibe..."}
	lyricsUnavailable = []string{"(Lyrics unavailable)", "Enjoy the music!"}
)

// CleanTitle trims featuring/version suffixes: everything from the first "(" or "-".
func CleanTitle(title string) string {
	title, _, _ = strings.Cut(title, "(")
	title, _, _ = strings.Cut(title, "-")
	return strings.TrimSpace(title)
}

// CleanArtist keeps the first of a comma-separated artist list.
func CleanArtist(artist string) string {
	artist, _, _ = strings.Cut(artist, ",")
	return strings.TrimSpace(artist)
}

// SplitLyrics splits lyrics text into its non-blank lines.
func SplitLyrics(text string) []string {
	lines := []string{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, strings.TrimRight(line, "\r"))
		}
	}
	return lines
}

// SongLyrics returns display lines for a song's lyrics.
//
// Missing lyrics and lookup failures produce placeholder lines; the error is returned for logging only.
func SongLyrics(ctx context.Context, b Backend, song models.Song) ([]string, error) {
	text, err := b.Lyrics(ctx, CleanArtist(song.Artist), CleanTitle(song.Title))
	if err != nil {
		return lyricsUnavailable, err
	}

	lines := SplitLyrics(text)
	if len(lines) == 0 {
		return lyricsNotFound, nil
	}
	return lines, nil
}

// SongInfo returns the "behind the song" text, trying the song's own article before its artist's.
func SongInfo(ctx context.Context, b Backend, song models.Song) (string, error) {
	artist := CleanArtist(song.Artist)
	fallback := fmt.Sprintf("Enjoy this track by %s.", artist)

	extract, err := b.Wiki(ctx, CleanTitle(song.Title)+"_(song)", artist)
	if err != nil {
		return fallback, err
	}
	if strings.TrimSpace(extract) == "" {
		return fallback, nil
	}
	return extract, nil
}

// ActiveLyricLine estimates the line being sung from playback progress in [0,1].
func ActiveLyricLine(progress float64, lines int) int {
	if lines <= 0 {
		return 0
	}
	idx := int(math.Floor(progress * float64(lines)))
	return max(0, min(idx, lines-1))
}
