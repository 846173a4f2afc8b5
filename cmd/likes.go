package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/vibe/internal/formatter"
	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// LikesList prints the liked set in the order songs were liked.
func (r *Runner) LikesList(ctx context.Context, cmd *cli.Command) error {
	s, err := r.requireSession()
	if err != nil {
		return err
	}

	st := s.Snapshot()
	if cmd.Bool("json") {
		return r.writeJSON(st.Liked, true)
	}

	opts := formatter.TableOptions{Liked: func(models.ID) bool { return true }}
	if st.Playback.CurrentSong != nil {
		opts.Current = st.Playback.CurrentSong.ID
	}
	formatter.RenderTable(r.output, st.Liked, opts)
	return nil
}

// LikesToggle likes a song, or unlikes it when already liked, then waits for the cloud sync.
func (r *Runner) LikesToggle(ctx context.Context, cmd *cli.Command) error {
	id := models.CanonicalID(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	s, err := r.requireSession()
	if err != nil {
		return err
	}

	song, err := r.findSong(ctx, id)
	if err != nil {
		return err
	}

	s.ToggleLike(song)
	s.Flush()

	if s.Snapshot().IsLiked(song) {
		return r.writePlain("♥ Liked %s - %s\n", song.DisplayArtist(), song.DisplayTitle())
	}
	return r.writePlain("Removed %s - %s from liked songs\n", song.DisplayArtist(), song.DisplayTitle())
}
