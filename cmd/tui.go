package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/vibe/internal/player"
	"github.com/desertthunder/vibe/internal/shared"
	"github.com/desertthunder/vibe/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive player.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Logging.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(shared.ParseLogLevel(r.config.Logging.Level))
	r.SetLogger(fileLogger)

	s, err := r.openStore()
	if err != nil {
		return err
	}

	transport := player.NewTransport(s, r.api, player.NewHandle(r.httpClient, r.config.Player.SampleRate), r.logger)
	transport.SetTick(r.config.Player.Tick())
	transport.Start()
	defer transport.Close()

	model := ui.NewModel(ctx, s, transport, r.logger)
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
