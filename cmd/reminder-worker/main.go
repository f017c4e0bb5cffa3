// Command reminder-worker runs the dispatch consumer on its own. In-app
// notifications are forwarded to the API process over the internal notify
// endpoint.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/app"
	"github.com/ace-232/day-planner-app/internal/config"
	"github.com/ace-232/day-planner-app/internal/logging"
	"github.com/ace-232/day-planner-app/internal/notify"
)

const statsInterval = time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	log.Info("reminder worker starting",
		"environment", cfg.Environment,
		"concurrency", cfg.Dispatch.Concurrency,
		"api", cfg.Server.APIBaseURL,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	notifier := notify.NewHTTPNotifier(deps.NotifyClient(), cfg.Server.APIBaseURL, cfg.Auth.InternalAPIKey)
	consumer := deps.NewConsumer(notifier)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		consumer.Start()
		<-gctx.Done()
		log.Info("stopping worker, waiting for in-flight dispatches")
		consumer.Stop()
		return nil
	})
	if stats, ok := deps.Scheduler.(reminder.StatsReporter); ok {
		g.Go(func() error {
			reportStats(gctx, stats, statsInterval, log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("worker stopped cleanly")
	return nil
}

// reportStats logs queue depth every interval until ctx is done.
func reportStats(ctx context.Context, s reminder.StatsReporter, interval time.Duration, log *slog.Logger) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			st, err := s.Stats(ctx)
			if err != nil {
				log.Warn("queue stats unavailable", "error", err)
				continue
			}
			log.Info("queue depth", "delayed", st.Delayed, "pending", st.Pending, "active", st.Active)
		}
	}
}
