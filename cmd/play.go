package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/player"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play streams one catalogue song through the transport, printing progress until it ends.
//
// Ctrl-C stops playback and keeps the position, so the next session resumes there.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	id := models.CanonicalID(cmd.StringArg("id"))
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	song, err := r.findSong(ctx, id)
	if err != nil {
		return err
	}
	if !song.Playable() {
		return fmt.Errorf("%w: %s", shared.ErrNotPlayable, song.DisplayTitle())
	}

	if !player.AudioAvailable {
		r.logger.Warn("audio output is not available in this build, playing silently")
	}

	transport := player.NewTransport(s, r.api, player.NewHandle(r.httpClient, r.config.Player.SampleRate), r.logger)
	transport.SetTick(r.config.Player.Tick())
	s.SetCurrentSong(song)
	transport.Start()
	defer transport.Close()

	r.writePlain("▶ %s - %s\n", song.DisplayArtist(), song.DisplayTitle())

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Pause()
			r.writePlain("\n❚❚ Stopped\n")
			return nil
		case <-ticker.C:
			st := s.Snapshot()
			pos, dur, _ := transport.Progress()
			state := transport.State()
			r.writePlain("\r%s / %s  [%s]   ", shared.FormatDuration(pos), shared.FormatDuration(dur), state)

			if state == player.Idle {
				r.writePlain("\n")
				return fmt.Errorf("%w: could not load %s", shared.ErrAudioUnavailable, song.DisplayTitle())
			}
			cur := st.Playback.CurrentSong
			if cur == nil || cur.ID != song.ID || !st.Playback.IsPlaying {
				r.writePlain("\n✓ Finished\n")
				return nil
			}
		}
	}
}
