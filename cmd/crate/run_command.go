package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mmcdole/crate/internal/app"
	"github.com/mmcdole/crate/internal/tui"
	"github.com/mmcdole/crate/internal/worker"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var page string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Open the interactive library browser",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !term.IsTerminal(int(os.Stdout.Fd())) {
				return errors.New("crate run needs an interactive terminal; use `crate watch` instead")
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if page == "" {
				page = cfg.UI.DefaultPage
			}

			// The TUI owns the screen; console logs would corrupt it
			logger, closeLog := ctx.setupLogger(cfg.Logging, io.Discard)
			defer closeLog()
			logger.Info("starting crate", "version", Version)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			frames := tui.NewFrameQueue()
			a, err := app.New(cfg, frames, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.Error("shutdown checkpoint failed", "error", err)
				}
			}()

			var workerCmd tea.Cmd
			if cfg.Worker.Command != "" {
				proc := worker.NewProcess(cfg.Worker.Command, cfg.Worker.Args, logger)
				workerCmd = tui.StartWorkerCmd(runCtx, proc)
			} else {
				logger.Warn("no worker configured, showing persisted library only")
			}

			model := tui.NewModel(a, frames, cfg.Scheduler.FrameInterval, page, workerCmd, logger)
			p := tea.NewProgram(
				model,
				tea.WithAltScreen(),
				tea.WithContext(runCtx),
			)

			logger.Info("starting TUI")
			if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
				logger.Error("TUI error", "error", err)
				return fmt.Errorf("TUI error: %w", err)
			}
			logger.Info("shutting down")
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page to open first (downloads or liked)")
	return cmd
}
