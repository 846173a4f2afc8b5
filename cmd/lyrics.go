package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// Lyrics prints lyrics, and optionally the background text, for the given or current song.
func (r *Runner) Lyrics(ctx context.Context, cmd *cli.Command) error {
	song := models.Song{
		Title:  strings.TrimSpace(cmd.String("title")),
		Artist: strings.TrimSpace(cmd.String("artist")),
	}

	if song.Title == "" {
		s, err := r.openStore()
		if err != nil {
			return err
		}
		current := s.Snapshot().Playback.CurrentSong
		if current == nil {
			return fmt.Errorf("%w: pass --title, or play a song first", shared.ErrMissingArgument)
		}
		song = *current
	}

	r.writePlainHeader(fmt.Sprintf("%s - %s", song.DisplayArtist(), song.DisplayTitle()))

	lines, err := services.SongLyrics(ctx, r.api, song)
	if err != nil {
		r.logger.Warn("lyrics lookup failed", "error", err)
	}
	r.writePlain("%s\n", strings.Join(lines, "\n"))

	if cmd.Bool("no-info") {
		return nil
	}

	info, err := services.SongInfo(ctx, r.api, song)
	if err != nil {
		r.logger.Warn("background lookup failed", "error", err)
	}
	r.writePlainln("Behind the song:")
	return r.writePlain("%s\n", info)
}
