package store

import (
	"context"
	"errors"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
)

// maxDuplicateRefetches caps consecutive load-more retries when a page adds nothing new.
const maxDuplicateRefetches = 5

// Dedupe keeps the first occurrence of each song, dropping any later song whose canonical id
// or title|artist signature has already been seen.
func Dedupe(songs []models.Song) []models.Song {
	seenIDs := make(map[models.ID]struct{}, len(songs))
	seenSigs := make(map[string]struct{}, len(songs))
	out := make([]models.Song, 0, len(songs))

	for _, song := range songs {
		sig := song.Signature()
		_, idSeen := seenIDs[song.ID]
		_, sigSeen := seenSigs[sig]
		if idSeen || sigSeen {
			continue
		}
		seenIDs[song.ID] = struct{}{}
		seenSigs[sig] = struct{}{}
		out = append(out, song)
	}
	return out
}

// FetchSongs loads the first catalogue page, or the next one when loadMore is set.
//
// It is a no-op while another fetch is in flight, or when loading more past the last page.
// Failures leave the list unchanged; the error is logged and returned.
func (s *Store) FetchSongs(ctx context.Context, loadMore bool) error {
	for retries := 0; ; retries++ {
		again, err := s.fetchPage(ctx, loadMore)
		if err != nil || !again {
			return err
		}
		if retries >= maxDuplicateRefetches {
			s.logger.Warn("giving up on duplicate-only pages", "retries", retries)
			return nil
		}
		loadMore = true
	}
}

// fetchPage performs one request and reports whether a load-more page came back as all duplicates.
func (s *Store) fetchPage(ctx context.Context, loadMore bool) (bool, error) {
	s.mu.Lock()
	if s.state.IsLoading || (loadMore && !s.state.Cursor.HasMore) {
		s.mu.Unlock()
		return false, nil
	}

	limit := s.pageLimit
	skip := 0
	if loadMore {
		skip = s.state.Cursor.Skip + limit
	}
	query := services.NewSongQuery(s.state.Filters, limit, skip)
	gen := s.generation

	fetchCtx, cancel := context.WithCancel(ctx)
	s.cancelFetch = cancel
	s.state.IsLoading = true
	s.mu.Unlock()
	s.notify(Changed)

	page, err := s.backend.FetchSongs(fetchCtx, query)
	cancel()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding stale catalogue page", "skip", skip)
		return false, nil
	}
	s.cancelFetch = nil
	s.state.IsLoading = false

	if err != nil {
		s.mu.Unlock()
		s.notify(Changed)
		if !errors.Is(err, context.Canceled) {
			s.logger.Error("failed to fetch songs", "skip", skip, "error", err)
		}
		return false, err
	}

	before := len(s.state.Songs)
	if loadMore {
		s.state.Songs = Dedupe(append(s.state.Songs, page...))
		s.state.Cursor.Skip = skip
	} else {
		s.state.Songs = Dedupe(page)
		s.state.Cursor.Skip = 0
	}
	s.state.Cursor.HasMore = len(page) == limit

	total := len(s.state.Songs)
	again := loadMore && len(page) > 0 && total == before && s.state.Cursor.HasMore
	s.mu.Unlock()

	s.logger.Debug("fetched songs", "skip", skip, "received", len(page), "total", total)
	s.notify(Changed)
	return again, nil
}

// resetCatalogue invalidates any in-flight fetch and clears pagination. Callers hold the lock.
func (s *Store) resetCatalogue() {
	s.generation++
	if s.cancelFetch != nil {
		s.cancelFetch()
		s.cancelFetch = nil
	}
	s.state.IsLoading = false
	s.state.Songs = nil
	s.state.Cursor = models.Cursor{Skip: 0, HasMore: true}
}

// setFilter applies fn to the filters, resets the catalogue, and refetches the first page.
func (s *Store) setFilter(fn func(f *models.Filters)) {
	s.mu.Lock()
	fn(&s.state.Filters)
	s.resetCatalogue()
	s.persistLocked()
	s.mu.Unlock()
	s.notify(Changed)

	s.FetchSongs(s.ctx, false)
}

func (s *Store) SetSearchQuery(query string) {
	s.setFilter(func(f *models.Filters) { f.SearchQuery = strings.TrimSpace(query) })
}

func (s *Store) SetGenre(genre string) {
	s.setFilter(func(f *models.Filters) { f.Genre = orAll(genre) })
}

func (s *Store) SetMood(mood string) {
	s.setFilter(func(f *models.Filters) { f.Mood = orAll(mood) })
}

func (s *Store) SetDuration(duration string) {
	s.setFilter(func(f *models.Filters) { f.Duration = orAll(duration) })
}

// SetLanguage changes the language filter, which is also a persisted, synced preference.
func (s *Store) SetLanguage(language string) {
	s.setFilter(func(f *models.Filters) { f.Language = orAll(language) })
	s.requestSync()
}

// ResetFilters restores every filter to its default and refetches.
func (s *Store) ResetFilters() {
	s.setFilter(func(f *models.Filters) { *f = models.DefaultFilters() })
	s.requestSync()
}

func orAll(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return models.FilterAll
	}
	return v
}
