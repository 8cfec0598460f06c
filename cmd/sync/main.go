package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vanshika/beltledger/internal/config"
	"github.com/vanshika/beltledger/internal/graph"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/logging"
	"github.com/vanshika/beltledger/internal/repository"
	"github.com/vanshika/beltledger/internal/service"
)

func main() {
	var (
		workers  = flag.Int("workers", 4, "Number of concurrent graph writers")
		pageSize = flag.Int("page-size", 100, "Records requested per ledger page")
		fetchers = flag.Int("fetchers", 4, "Ledger pages fetched concurrently")
		interval = flag.Duration("interval", 0, "Repeat the sync at this interval; 0 runs once")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging).With("component", "sync")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledgerClient, err := ledger.New(cfg.Ledger, logger, nil)
	if err != nil {
		logger.Error("failed to create ledger client", "error", err)
		os.Exit(1)
	}

	graphClient, err := buildGraphClient(ctx, logger, cfg)
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	ingestor := service.NewBulkIngestor(repository.New(graphClient), *workers, nil)
	svc := service.NewSyncService(ledgerClient, ingestor, service.SyncOptions{
		PageSize:     *pageSize,
		PageFetchers: *fetchers,
	}, logger)

	if *interval <= 0 {
		if err := runOnce(ctx, logger, svc); err != nil {
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()
	for {
		_ = runOnce(ctx, logger, svc)
		select {
		case <-ctx.Done():
			logger.Info("sync stopped")
			return
		case <-ticker.C:
		}
	}
}

func runOnce(ctx context.Context, logger *slog.Logger, svc *service.SyncService) error {
	report, err := svc.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logger.Error("sync failed", "error", err, "profiles", report.Profiles, "ranks", report.Ranks)
		return err
	}
	return nil
}

func buildGraphClient(ctx context.Context, logger *slog.Logger, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, fmt.Errorf("GRAPH_URI is required for sync")
	}
	client, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		return nil, err
	}
	logger.Info("connected to graph", "uri", cfg.Graph.URI, "database", cfg.Graph.Database)
	return client, nil
}
