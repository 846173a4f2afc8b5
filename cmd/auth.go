package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/vibe/internal/services"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin exchanges credentials for a session and adopts the synced preferences.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	username, password := cmd.String("username"), cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or VIBE_PASSWORD is required", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	r.logger.Info("logging in", "username", username)
	if err := s.Login(ctx, username, password); err != nil {
		return err
	}

	st := s.Snapshot()
	r.writePlain("✓ Logged in as %s\n", username)
	r.writePlain("Liked songs: %d\n", len(st.Liked))
	if st.Playback.CurrentSong != nil {
		r.writePlain("Last played: %s - %s\n", st.Playback.CurrentSong.DisplayArtist(), st.Playback.CurrentSong.DisplayTitle())
	}
	return nil
}

// AuthRegister validates the credentials, creates the account, and logs in.
func (r *Runner) AuthRegister(ctx context.Context, cmd *cli.Command) error {
	username, password := cmd.String("username"), cmd.String("password")
	if password == "" {
		return fmt.Errorf("%w: --password or VIBE_PASSWORD is required", shared.ErrMissingArgument)
	}

	s, err := r.openStore()
	if err != nil {
		return err
	}

	r.logger.Info("registering", "username", username)
	if err := s.Register(ctx, username, password); err != nil {
		return err
	}

	return r.writePlain("✓ Account created, logged in as %s\n", username)
}

// AuthLogout drops the session and clears the saved state.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	if !s.Snapshot().Authenticated() {
		return r.writePlain("Not logged in\n")
	}

	s.Logout()
	return r.writePlain("✓ Logged out\n")
}

type sessionStatus struct {
	Authenticated bool       `json:"authenticated"`
	Username      string     `json:"username,omitempty"`
	Subject       string     `json:"subject,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	LikedSongs    int        `json:"liked_songs"`
	Backend       string     `json:"backend"`
}

// AuthStatus reports the saved session and what its token claims.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	s, err := r.openStore()
	if err != nil {
		return err
	}

	st := s.Snapshot()
	status := sessionStatus{
		Authenticated: st.Authenticated(),
		LikedSongs:    len(st.Liked),
		Backend:       r.api.BaseURL(),
	}

	if st.Session != nil {
		status.Username = st.Session.Username
		if claims, err := services.ParseSessionClaims(st.Session.AccessToken); err == nil {
			status.Subject = claims.Subject
			if !claims.ExpiresAt.IsZero() {
				exp := claims.ExpiresAt
				status.ExpiresAt = &exp
			}
			status.Expired = claims.Expired(time.Now())
		} else {
			r.logger.Debug("access token is opaque", "error", err)
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !status.Authenticated {
		r.writePlain("✗ Not logged in\n")
		return r.writePlain("Backend: %s\n", status.Backend)
	}

	r.writePlain("✓ Logged in as %s\n", status.Username)
	r.writePlain("Backend: %s\n", status.Backend)
	r.writePlain("Liked songs: %d\n", status.LikedSongs)
	if status.ExpiresAt != nil {
		state := "valid"
		if status.Expired {
			state = "expired"
		}
		r.writePlain("Token: %s until %s\n", state, status.ExpiresAt.Local().Format(time.RFC1123))
	}
	return nil
}
