package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mmcdole/crate/internal/app"
	"github.com/mmcdole/crate/internal/domain"
	"github.com/mmcdole/crate/internal/runloop"
	"github.com/mmcdole/crate/internal/view"
	"github.com/mmcdole/crate/internal/worker"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var page string
	var stats bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the worker headless and log every refresh",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if cfg.Worker.Command == "" {
				return errors.New("worker.command is not configured")
			}
			if page == "" {
				page = cfg.UI.DefaultPage
			}

			logCfg := cfg.Logging
			logCfg.File = ""
			logger, closeLog := ctx.setupLogger(logCfg, os.Stderr)
			defer closeLog()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			loop := runloop.New(cfg.Scheduler.FrameInterval, 256, logger.With("component", "runloop"))
			a, err := app.New(cfg, loop, logger)
			if err != nil {
				return err
			}

			a.Bus.Worker.Subscribe(func(ev domain.WorkerEvent) {
				logger.Info("worker event",
					"type", ev.Type,
					"trackID", ev.TrackID,
					"origin", ev.Origin.Key(),
					"quality", ev.Quality,
				)
			})
			a.OpenPage(page)

			proc := worker.NewProcess(cfg.Worker.Command, cfg.Worker.Args, logger)
			loopCtx, cancelLoop := context.WithCancel(runCtx)
			defer cancelLoop()

			workerErr := make(chan error, 1)
			go func() {
				workerErr <- proc.Run(loopCtx, func(m worker.Message) {
					_ = loop.Post(loopCtx, func() { a.HandleWorker(m) })
				})
				cancelLoop()
			}()

			_ = loop.Run(loopCtx)
			werr := <-workerErr
			loop.Drain()

			if stats {
				fmt.Fprintln(cmd.OutOrStdout(), renderStats(a.Subscribers()))
			}
			if err := a.Close(); err != nil {
				logger.Error("shutdown checkpoint failed", "error", err)
			}
			if werr != nil && !errors.Is(werr, context.Canceled) {
				return fmt.Errorf("worker: %w", werr)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&page, "page", "", "Page to keep active (downloads or liked)")
	cmd.Flags().BoolVar(&stats, "stats", true, "Print per-subscriber refresh counts on exit")
	return cmd
}

func renderStats(subs []view.Subscriber) string {
	cols := []column{
		{title: "Subscriber"},
		{title: "Requests", numeric: true},
		{title: "Flushes", numeric: true},
		{title: "Full", numeric: true},
		{title: "Targeted", numeric: true},
		{title: "Skipped", numeric: true},
		{title: "Failures", numeric: true},
	}
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		st := s.Scheduler().Stats()
		rows = append(rows, []string{
			s.Name(),
			strconv.Itoa(st.Requests),
			strconv.Itoa(st.Flushes),
			strconv.Itoa(st.FullRefreshes),
			strconv.Itoa(st.TargetRefreshes),
			strconv.Itoa(st.Skipped),
			strconv.Itoa(st.Failures),
		})
	}
	return renderTable(cols, rows)
}
