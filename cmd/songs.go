package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vibe/internal/formatter"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/store"
	"github.com/desertthunder/vibe/internal/tasks"
	"github.com/samber/lo"
	"github.com/urfave/cli/v3"
)

// maxLookupPages bounds the catalogue scan used to resolve a song id.
const maxLookupPages = 20

// filtersFromFlags reads the filter flags, matching enum values case-insensitively.
func filtersFromFlags(cmd *cli.Command) (models.Filters, error) {
	f := models.DefaultFilters()
	f.SearchQuery = strings.TrimSpace(cmd.String("search"))

	for _, field := range []struct {
		flag    string
		options []string
		dst     *string
	}{
		{"genre", models.Genres, &f.Genre},
		{"mood", models.Moods, &f.Mood},
		{"duration", models.Durations, &f.Duration},
		{"language", models.Languages, &f.Language},
	} {
		v := strings.TrimSpace(cmd.String(field.flag))
		if v == "" {
			continue
		}
		match, ok := lo.Find(field.options, func(o string) bool { return strings.EqualFold(o, v) })
		if !ok {
			return f, fmt.Errorf("%w: --%s must be one of %s", shared.ErrInvalidFlag, field.flag, strings.Join(field.options, ", "))
		}
		*field.dst = match
	}
	return f, nil
}

// SongsList fetches catalogue pages and prints them as a table or JSON.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}

	skip := cmd.Int("skip")
	if skip < 0 {
		return fmt.Errorf("%w: --skip must not be negative", shared.ErrInvalidFlag)
	}
	limit := r.pageLimit()

	r.logger.Info("listing songs", "filters", formatter.DescribeFilters(filters), "skip", skip)

	var songs []models.Song
	for page := 0; page <= max(0, cmd.Int("more")); page++ {
		batch, err := r.api.FetchSongs(ctx, services.NewSongQuery(filters, limit, skip+page*limit))
		if err != nil {
			return err
		}
		songs = store.Dedupe(append(songs, batch...))
		if len(batch) < limit {
			break
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(songs, cmd.Bool("pretty"))
	}

	opts := formatter.TableOptions{Offset: skip}
	if s, err := r.openStore(); err == nil {
		st := s.Snapshot()
		opts.Liked = func(id models.ID) bool { return st.IsLiked(models.Song{ID: id}) }
		if st.Playback.CurrentSong != nil {
			opts.Current = st.Playback.CurrentSong.ID
		}
	} else {
		r.logger.Debug("listing without local state", "error", err)
	}

	formatter.RenderTable(r.output, songs, opts)
	return nil
}

// SongsExport crawls one or more filter selections and writes them to disk.
func (r *Runner) SongsExport(ctx context.Context, cmd *cli.Command) error {
	filters, err := filtersFromFlags(cmd)
	if err != nil {
		return err
	}

	selections := []tasks.Selection{{Name: "catalogue", Filters: filters}}
	if by := cmd.String("by"); by != "" {
		if selections, err = tasks.SelectionsBy(strings.ToLower(by), filters); err != nil {
			return err
		}
	}

	rate := cmd.Float("rate")
	if rate <= 0 {
		rate = r.config.Export.RateLimit
	}
	output := cmd.String("output")
	if output == "" {
		output = r.config.Export.OutputDir
	}

	crawler := tasks.NewCrawler(r.api, rate)
	crawler.SetPageLimit(r.pageLimit())
	crawler.SetMaxPages(cmd.Int("max-pages"))

	r.logger.Info("exporting catalogue", "selections", len(selections), "format", cmd.String("format"), "rate", rate)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			switch update.Phase {
			case tasks.ExportSelection:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.CrawlCatalogue:
				r.writePlain("   %s\n", update.Message)
			case tasks.WriteFiles:
				r.writePlain("📝 %s\n", update.Message)
			}
		}
	}()

	result, err := crawler.Export(ctx, progressCh, selections, tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  output,
		NumWorkers: cmd.Int("workers"),
		Covers:     cmd.Bool("covers"),
	})
	close(progressCh)
	<-printed

	if result == nil {
		return err
	}

	r.writePlainln("")
	r.writePlainHeader("Export Complete!")
	r.writePlain("Format: %s\n", result.Format)
	r.writePlain("Selections: %d/%d succeeded\n", result.Successful, result.TotalSelections)
	r.writePlain("Output: %s\n", result.OutputDirectory)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.Failed > 0 {
		r.writePlain("\nFailed selections:\n")
		for _, sel := range result.Results {
			if !sel.Success {
				r.writePlain("  - %s: %s\n", sel.Name, sel.Error)
			}
		}
	}
	return err
}

func (r *Runner) pageLimit() int {
	if r.config.API.PageLimit > 0 {
		return r.config.API.PageLimit
	}
	return models.PageLimit
}

// findSong resolves id from the local state first, then by scanning the catalogue.
func (r *Runner) findSong(ctx context.Context, id models.ID) (models.Song, error) {
	if s, err := r.openStore(); err == nil {
		st := s.Snapshot()
		candidates := append(st.Liked, st.Songs...)
		if st.Playback.CurrentSong != nil {
			candidates = append(candidates, *st.Playback.CurrentSong)
		}
		if song, ok := lo.Find(candidates, func(s models.Song) bool { return s.ID == id }); ok {
			return song, nil
		}
	}

	limit := r.pageLimit()
	for page := range maxLookupPages {
		batch, err := r.api.FetchSongs(ctx, services.NewSongQuery(models.DefaultFilters(), limit, page*limit))
		if err != nil {
			return models.Song{}, err
		}
		if song, ok := lo.Find(batch, func(s models.Song) bool { return s.ID == id }); ok {
			return song, nil
		}
		if len(batch) < limit {
			break
		}
	}
	return models.Song{}, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
}
