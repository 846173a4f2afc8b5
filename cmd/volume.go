package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/vibe/internal/models"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// parseVolume accepts a level in [0,1], or a percentage such as 40 or 40%.
func parseVolume(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	percent := strings.HasSuffix(raw, "%")
	v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "%"), 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: volume must be between 0 and 1, or a percentage", shared.ErrInvalidArgument)
	}
	if percent || v > 1 {
		v /= 100
	}
	if v > 1 {
		return 0, fmt.Errorf("%w: volume cannot exceed 100%%", shared.ErrInvalidArgument)
	}
	return v, nil
}

func volumeText(pb models.Playback) string {
	if pb.IsMuted {
		return fmt.Sprintf("muted (restores to %.0f%%)", pb.PrevVolume*100)
	}
	return fmt.Sprintf("%.0f%%", pb.Volume*100)
}

// VolumeShow prints the saved volume.
func (r *Runner) VolumeShow(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}
	return r.writePlain("Volume: %s\n", volumeText(s.Snapshot().Playback))
}

// VolumeSet changes the saved volume; zero mutes.
func (r *Runner) VolumeSet(ctx context.Context, cmd *cli.Command) error {
	v, err := parseVolume(cmd.StringArg("level"))
	if err != nil {
		return err
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	s.SetVolume(v)
	s.Flush()
	return r.writePlain("Volume: %s\n", volumeText(s.Snapshot().Playback))
}

// VolumeMute toggles mute, remembering the level to restore.
func (r *Runner) VolumeMute(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	s.ToggleMute()
	s.Flush()
	return r.writePlain("Volume: %s\n", volumeText(s.Snapshot().Playback))
}
