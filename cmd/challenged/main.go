package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/challenge-tracker/internal/app"
	"github.com/joseph-ayodele/challenge-tracker/internal/async"
	"github.com/joseph-ayodele/challenge-tracker/internal/challenges"
	"github.com/joseph-ayodele/challenge-tracker/internal/common"
	"github.com/joseph-ayodele/challenge-tracker/internal/export"
	"github.com/joseph-ayodele/challenge-tracker/internal/metrics"
	repo "github.com/joseph-ayodele/challenge-tracker/internal/repository"
	"github.com/joseph-ayodele/challenge-tracker/internal/server"
	"github.com/joseph-ayodele/challenge-tracker/internal/submissions"
)

func main() {
	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := repo.Open(ctx, app.DatabaseConfig(cfg), logger)
	if err != nil {
		logger.Error("failed to open database", "error", err, "driver", cfg.Database.Driver)
		os.Exit(1)
	}
	defer db.Close()

	// Ping DB to ensure connectivity
	if err := db.HealthCheck(ctx, 5*time.Second); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}
	if err := db.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	challengeRepo := repo.NewChallengeRepository(db, logger)
	resultRepo := repo.NewResultRepository(db, logger)

	pipe := app.NewPipeline(cfg, m, logger)
	submissionService := submissions.NewService(challengeRepo, resultRepo, pipe, m, logger)
	queue := async.NewProcessorQueue(submissionService, logger,
		async.WithWorkers(cfg.Worker.Workers),
		async.WithQueueSize(cfg.Worker.QueueSize),
		async.WithReplyTimeout(cfg.Worker.SubmissionTimeout),
	)

	handler := server.NewHandler(queue,
		challenges.NewService(challengeRepo, resultRepo, logger),
		export.NewService(challengeRepo, resultRepo, logger),
		db, cfg.Slack.BotToken, logger)
	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewRouter(handler, m, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer, healthServer := server.NewGRPCServer()
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		server.WatchDB(gctx, db, healthServer, 15*time.Second, logger)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown error", "error", err)
		}
		if err := queue.Shutdown(shutdownCtx); err != nil {
			logger.Error("queue shutdown error", "error", err)
		}
		grpcServer.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}
