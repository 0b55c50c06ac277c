package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nikhilbhutani/petdesk/internal/config"
	"github.com/nikhilbhutani/petdesk/internal/database"
	"github.com/nikhilbhutani/petdesk/internal/fiscal"
	"github.com/nikhilbhutani/petdesk/internal/metrics"
	"github.com/nikhilbhutani/petdesk/internal/queue"
	"github.com/nikhilbhutani/petdesk/internal/queue/workers"
	"github.com/nikhilbhutani/petdesk/internal/segmentation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	db, err := database.NewPool(context.Background(), cfg.Database)
	if err != nil {
		slog.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	loc, err := time.LoadLocation(cfg.Campaign.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using UTC", "timezone", cfg.Campaign.Timezone, "error", err)
		loc = time.UTC
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	queueClient := queue.NewClient(cfg.Redis)
	defer queueClient.Close()

	engine := segmentation.NewEngine(segmentation.NewPGStore(db), loc, segmentation.WithMetrics(m))
	fiscalSvc := fiscal.NewService(
		fiscal.NewPGStore(db),
		fiscal.NewFocusClient(cfg.Fiscal.APIKey, cfg.Fiscal.HomologacaoURL, cfg.Fiscal.ProducaoURL, cfg.Fiscal.Timeout),
		fiscal.WithScheduler(queueClient, cfg.Fiscal.ConsultDelay),
		fiscal.WithMetrics(m),
	)

	srv := asynq.NewServer(
		queue.RedisOpt(cfg.Redis),
		asynq.Config{
			Concurrency: cfg.Worker.Concurrency,
			Queues: map[string]int{
				"critical": 6,
				"default":  3,
				"low":      1,
			},
		},
	)

	registry := queue.NewHandlersRegistry()

	// Register workers
	recalcWorker := workers.NewRecalculateWorker(engine)
	consultWorker := workers.NewFiscalConsultWorker(fiscalSvc)

	registry.Register(queue.TypeCampaignRecalculate, asynq.HandlerFunc(recalcWorker.ProcessTask))
	registry.Register(queue.TypeFiscalConsult, asynq.HandlerFunc(consultWorker.ProcessTask))

	if cfg.Worker.MetricsAddr != "" {
		metricsSrv := metrics.NewServer(cfg.Worker.MetricsAddr, prometheus.DefaultGatherer)
		go func() {
			slog.Info("serving worker metrics", "addr", cfg.Worker.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server error", "error", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			metricsSrv.Shutdown(ctx)
		}()
	}

	slog.Info("starting worker", "concurrency", cfg.Worker.Concurrency)
	if err := srv.Run(registry.Mux()); err != nil {
		slog.Error("worker error", "error", err)
		os.Exit(1)
	}
}
