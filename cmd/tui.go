package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/librix/internal/shared"
	"github.com/desertthunder/librix/internal/ui"
	"github.com/urfave/cli/v3"
)

// Browse launches the interactive release browser.
func (r *Runner) Browse(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/librix-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	releases, err := r.releaseRepository()
	if err != nil {
		return err
	}
	changes, err := r.changesRepository()
	if err != nil {
		return err
	}

	opts := ui.ModelOpts{Releases: releases, Changes: changes}
	if s, err := r.synchronizer(); err == nil {
		opts.Synchronizer = s
	} else {
		r.logger.Warn("browsing without synchronization", "error", err)
	}

	p := tea.NewProgram(ui.NewModel(ctx, opts))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
