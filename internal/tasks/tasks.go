package tasks

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
)

// DefaultRateLimit is the catalogue request rate used when none is configured, in requests per second.
const DefaultRateLimit = 2.0

// Selection is a named filter set to crawl.
type Selection struct {
	Name    string
	Filters models.Filters
}

// SelectionsBy returns one selection per non-"all" value of the named filter dimension
// (genre, mood, duration or language), each layered over base.
func SelectionsBy(dimension string, base models.Filters) ([]Selection, error) {
	var (
		values []string
		apply  func(f *models.Filters, v string)
	)
	switch dimension {
	case "genre":
		values, apply = models.Genres, func(f *models.Filters, v string) { f.Genre = v }
	case "mood":
		values, apply = models.Moods, func(f *models.Filters, v string) { f.Mood = v }
	case "duration":
		values, apply = models.Durations, func(f *models.Filters, v string) { f.Duration = v }
	case "language":
		values, apply = models.Languages, func(f *models.Filters, v string) { f.Language = v }
	default:
		return nil, fmt.Errorf("%w: unknown filter dimension %q", shared.ErrInvalidArgument, dimension)
	}

	selections := []Selection{}
	for _, v := range values {
		if v == models.FilterAll {
			continue
		}
		f := base
		apply(&f, v)
		selections = append(selections, Selection{Name: v, Filters: f})
	}
	return selections, nil
}

// CrawlResult is the deduplicated catalogue for one selection.
type CrawlResult struct {
	Songs      []models.Song
	Pages      int
	Fetched    int // raw songs received, duplicates included
	Duplicates int
}

// Crawler pages through the catalogue under a shared request rate.
type Crawler struct {
	backend   services.Backend
	limiter   *rate.Limiter
	pageLimit int
	maxPages  int
}

// NewCrawler creates a [Crawler] issuing at most ratePerSecond catalogue requests per second.
func NewCrawler(backend services.Backend, ratePerSecond float64) *Crawler {
	if ratePerSecond <= 0 {
		ratePerSecond = DefaultRateLimit
	}
	return &Crawler{
		backend:   backend,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		pageLimit: models.PageLimit,
	}
}

// SetPageLimit overrides the page size.
func (c *Crawler) SetPageLimit(n int) {
	if n > 0 {
		c.pageLimit = n
	}
}

// SetMaxPages caps the number of pages fetched per crawl; zero means no cap.
func (c *Crawler) SetMaxPages(n int) {
	c.maxPages = max(n, 0)
}

// Crawl fetches every page for filters until a short page, merging with [store.Dedupe].
//
// On error the songs merged so far are returned alongside it.
func (c *Crawler) Crawl(ctx context.Context, name string, filters models.Filters, progress chan<- ProgressUpdate) (*CrawlResult, error) {
	if c.backend == nil {
		return nil, fmt.Errorf("%w: backend not initialized", shared.ErrServiceUnavailable)
	}

	result := &CrawlResult{Songs: []models.Song{}}
	for skip := 0; ; skip += c.pageLimit {
		if c.maxPages > 0 && result.Pages >= c.maxPages {
			return result, nil
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return result, err
		}

		page, err := c.backend.FetchSongs(ctx, services.NewSongQuery(filters, c.pageLimit, skip))
		if err != nil {
			return result, fmt.Errorf("failed to fetch page %d of %s: %w", result.Pages+1, name, err)
		}

		before := len(result.Songs)
		result.Songs = store.Dedupe(append(result.Songs, page...))
		result.Pages++
		result.Fetched += len(page)
		result.Duplicates += len(page) - (len(result.Songs) - before)

		sendProgress(progress, crawlPageUpdate(result.Pages, name, len(result.Songs)))

		if len(page) < c.pageLimit {
			return result, nil
		}
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
