package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alfredjeanlab/suicounter/internal/config"
	"github.com/alfredjeanlab/suicounter/internal/events"
	"github.com/alfredjeanlab/suicounter/internal/executor"
	"github.com/alfredjeanlab/suicounter/internal/export"
	"github.com/alfredjeanlab/suicounter/internal/metrics"
	"github.com/alfredjeanlab/suicounter/internal/network"
	"github.com/alfredjeanlab/suicounter/internal/ratelimit"
	"github.com/alfredjeanlab/suicounter/internal/server"
	"github.com/alfredjeanlab/suicounter/internal/store"
	"github.com/alfredjeanlab/suicounter/internal/store/memory"
	"github.com/alfredjeanlab/suicounter/internal/store/postgres"
	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the counter dashboard server",
	GroupID: "system",
	// Override PersistentPreRunE so we don't create an API client.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		cfg, err := config.Load()
		if err != nil {
			return err
		}

		packages := network.Defaults()
		if cfg.NetworksFile != "" {
			if packages, err = network.LoadFile(cfg.NetworksFile); err != nil {
				return err
			}
			logger.Info("package ids loaded", "file", cfg.NetworksFile)
		}

		// Event journal: Postgres when configured, else in memory.
		var journal store.Store
		if cfg.DatabaseURL != "" {
			pg, err := postgres.New(cfg.DatabaseURL)
			if err != nil {
				return err
			}
			journal = pg
			logger.Info("journal in postgres")
		} else {
			journal = memory.New(memory.DefaultCapacity)
			logger.Info("journal in memory (COUNTER_DATABASE_URL not set)")
		}

		var publisher events.Publisher
		if cfg.NATSURL != "" {
			pub, err := events.NewNATSPublisher(cfg.NATSURL)
			if err != nil {
				journal.Close()
				return err
			}
			publisher = pub
			logger.Info("events enabled", "nats_url", cfg.NATSURL)
		} else {
			publisher = events.NoopPublisher{}
			logger.Info("events disabled (COUNTER_NATS_URL not set)")
		}

		m, err := metrics.New()
		if err != nil {
			publisher.Close()
			journal.Close()
			return err
		}

		counterServer := server.NewCounterServer(server.Options{
			Store:     journal,
			Publisher: publisher,
			Executor:  executor.New(cfg.OpDelay, logger),
			Packages:  packages,
			Limiter:   ratelimit.New(cfg.RateLimitRPS, cfg.RateLimitBurst, 0),
			Metrics:   m,
		})
		counterServer.StartReaper(cfg.PanelIdle, cfg.WalletIdle)

		grpcServer, healthServer := server.NewGRPCServer(cfg.AuthToken)
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			counterServer.Stop()
			publisher.Close()
			journal.Close()
			return err
		}
		go func() {
			logger.Info("gRPC server listening", "addr", cfg.GRPCAddr)
			if err := grpcServer.Serve(lis); err != nil {
				logger.Error("gRPC server error", "err", err)
			}
		}()

		httpServer := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           counterServer.NewHTTPHandler(cfg.AuthToken),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("HTTP server listening", "addr", cfg.HTTPAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("HTTP server error", "err", err)
			}
		}()

		// Journal export, when any destination is configured.
		var scheduler *export.Scheduler
		if cfg.SyncInterval > 0 {
			var dests []export.Destination
			if cfg.SyncS3Bucket != "" {
				s3Dest, err := export.NewS3Destination(context.Background(),
					cfg.SyncS3Bucket, cfg.SyncS3Key, cfg.SyncS3Region, cfg.SyncS3Endpoint)
				if err != nil {
					logger.Error("failed to create S3 export destination", "err", err)
				} else {
					dests = append(dests, s3Dest)
					logger.Info("export S3 destination enabled", "bucket", cfg.SyncS3Bucket, "key", cfg.SyncS3Key)
				}
			}
			if cfg.SyncGitRepo != "" {
				dests = append(dests, export.NewGitDestination(cfg.SyncGitRepo, cfg.SyncGitFile, cfg.SyncGitBranch))
				logger.Info("export git destination enabled", "repo", cfg.SyncGitRepo, "file", cfg.SyncGitFile)
			}
			if len(dests) > 0 {
				scheduler = export.NewScheduler(journal, dests, cfg.SyncInterval, logger)
				scheduler.Start()
				logger.Info("export scheduler started", "interval", cfg.SyncInterval)
			}
		}

		logger.Info("counter server started",
			"http_addr", cfg.HTTPAddr,
			"grpc_addr", cfg.GRPCAddr,
			"op_delay", cfg.OpDelay,
			"auth", cfg.AuthToken != "",
		)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received signal, shutting down", "signal", sig)

		if scheduler != nil {
			scheduler.Stop()
			logger.Info("export scheduler stopped")
		}

		healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus(server.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		logger.Info("gRPC server stopped")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", "err", err)
		}
		logger.Info("HTTP server stopped")

		counterServer.Stop()

		if err := publisher.Close(); err != nil {
			logger.Error("error closing publisher", "err", err)
		}
		if err := journal.Close(); err != nil {
			logger.Error("error closing journal", "err", err)
		}

		logger.Info("shutdown complete")
		return nil
	},
}
