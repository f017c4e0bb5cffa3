// Command reminder-api serves the HTTP API and the live notification stream.
// Unless EMBEDDED_WORKER is false it also runs the dispatch consumer, which
// then delivers in-app notifications straight to the in-process hub.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	reminder "github.com/ace-232/day-planner-app"
	"github.com/ace-232/day-planner-app/internal/app"
	"github.com/ace-232/day-planner-app/internal/auth"
	"github.com/ace-232/day-planner-app/internal/config"
	"github.com/ace-232/day-planner-app/internal/httpapi"
	"github.com/ace-232/day-planner-app/internal/logging"
)

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
	log.Info("reminder API starting",
		"environment", cfg.Environment,
		"port", cfg.Server.Port,
		"embedded_worker", cfg.Server.EmbeddedWorker,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.Build(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer deps.Close()

	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	hub := reminder.NewHub(reminder.HubConfig{Logger: logging.Component(log, "hub")})
	stats, _ := deps.Scheduler.(reminder.StatsReporter)

	api := httpapi.New(httpapi.Config{
		Tasks:         deps.Tasks,
		Users:         deps.Users,
		Producer:      reminder.NewProducer(deps.Scheduler, reminder.WithLogger(logging.Component(log, "producer"))),
		Hub:           hub,
		Tokens:        tokens,
		InternalKey:   cfg.Auth.InternalAPIKey,
		AllowedOrigin: cfg.Server.FrontendOrigin,
		Heartbeat:     cfg.Server.HeartbeatInterval,
		Stats:         stats,
		Ping:          deps.Ping,
		Logger:        log,
	})
	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	var consumer *reminder.Consumer
	if cfg.Server.EmbeddedWorker {
		consumer = deps.NewConsumer(reminder.HubNotifier{Hub: hub})
		consumer.Start()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		return shutdown(srv, hub, consumer, cfg.Server.ShutdownTimeout, log)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped cleanly")
	return nil
}

// shutdown drains in-flight dispatches before closing the hub, so their
// in-app notifications still reach open streams. Closing the hub ends the
// streams, which lets the HTTP server finish.
func shutdown(srv *http.Server, hub *reminder.Hub, consumer *reminder.Consumer, timeout time.Duration, log *slog.Logger) error {
	log.Info("initiating graceful shutdown")
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if consumer != nil {
		consumer.Stop()
	}
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}
