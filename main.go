package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	bidding "bidwar/internal/biddingService"
	"bidwar/internal/config"
	"bidwar/internal/metrics"
	"bidwar/internal/repository"
	"bidwar/internal/server"
	"bidwar/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		utils.Fatal("Failed to load configuration", map[string]any{"error": err.Error()})
	}
	utils.SetLevel(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		utils.Fatal("Failed to open repository", map[string]any{"error": err.Error()})
	}
	defer closeRepo()

	opts := []bidding.Option{
		bidding.WithBidCooldown(cfg.BidCooldown),
		bidding.WithDefaultCoolingOff(cfg.DefaultCoolingOff),
		bidding.WithSubscriberBuffer(cfg.SubscriberBuffer),
	}
	var gatherer prometheus.Gatherer
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		opts = append(opts, bidding.WithMetrics(metrics.New(registry)))
		gatherer = registry
	}

	biddingSvc := bidding.NewBiddingService(repo, opts...)
	if err := biddingSvc.Restore(ctx); err != nil {
		utils.Fatal("Failed to restore projects", map[string]any{"error": err.Error()})
	}
	if cfg.SeedDemo {
		seedDemo(ctx, biddingSvc)
	}

	router := server.SetupRouter(biddingSvc, gatherer)
	srv := &http.Server{
		Addr:              cfg.ListenAddr(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	// ends open event streams so Shutdown can drain them
	srv.RegisterOnShutdown(biddingSvc.Close)

	go func() {
		utils.Info("Starting bidding server", map[string]any{"addr": srv.Addr, "persistent": cfg.DatabasePath != ""})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Error("Server stopped unexpectedly", map[string]any{"error": err.Error()})
			stop()
		}
	}()

	<-ctx.Done()
	utils.Info("Shutting down bidding server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		utils.Error("Graceful shutdown failed", map[string]any{"error": err.Error()})
	}
	biddingSvc.Close()
}

// openRepository picks SQLite when a database path is configured and the
// in-memory store otherwise
func openRepository(cfg *config.Config) (repository.AuctionDB, func(), error) {
	if cfg.DatabasePath == "" {
		return repository.NewMemoryRepo(), func() {}, nil
	}

	repo, err := repository.NewSQLRepo(cfg.DatabasePath)
	if err != nil {
		return nil, nil, err
	}
	return repo, func() {
		if err := repo.Close(); err != nil {
			utils.Error("Failed to close database", map[string]any{"error": err.Error()})
		}
	}, nil
}
