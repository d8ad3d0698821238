package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sprintsight/sprintsight/internal/adapters/jira"
	"github.com/sprintsight/sprintsight/internal/adapters/openai"
	"github.com/sprintsight/sprintsight/internal/config"
	httpapi "github.com/sprintsight/sprintsight/internal/http"
	"github.com/sprintsight/sprintsight/internal/jobs"
	"github.com/sprintsight/sprintsight/internal/logger"
	"github.com/sprintsight/sprintsight/internal/repo"
	"github.com/sprintsight/sprintsight/internal/services"
	"github.com/sprintsight/sprintsight/internal/store"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Optional audit DB
	var audit *repo.Repository
	if cfg.DBDSN != "" {
		db, err := repo.Open(ctx, cfg.DBDSN, log)
		if err != nil {
			log.Error().Err(err).Msg("audit db unavailable; continuing without auditing")
		} else {
			defer db.Close()
			audit = repo.NewRepository(db, log)
		}
	}

	// Adapters
	llm := openai.NewClient(cfg, log)
	newTracker := func(baseURL, email, token string) services.TrackerClient {
		return jira.NewClient(baseURL, email, token, cfg.JiraTimeout, log)
	}

	// Core
	st := store.New()
	svc := services.New(cfg, log, st, audit, newTracker, llm)

	// HTTP server (Gin)
	router := httpapi.NewRouter(cfg, log, svc)

	// Scheduled tracker refresh
	cron := jobs.NewCron(cfg, log, svc)
	cron.Start()
	defer cron.Stop()

	errCh := make(chan error, 1)
	go func() { errCh <- router.Run(cfg.HTTPAddr) }()
	log.Info().Str("addr", cfg.HTTPAddr).Msg("listening")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		log.Info().Msg("shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("http server error")
		}
	}

	time.Sleep(500 * time.Millisecond)
}
