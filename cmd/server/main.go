package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vanshika/beltledger/internal/cache"
	"github.com/vanshika/beltledger/internal/config"
	"github.com/vanshika/beltledger/internal/graph"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/logging"
	"github.com/vanshika/beltledger/internal/metadata"
	"github.com/vanshika/beltledger/internal/metrics"
	"github.com/vanshika/beltledger/internal/repository"
	"github.com/vanshika/beltledger/internal/resolver"
	"github.com/vanshika/beltledger/internal/server"
	"github.com/vanshika/beltledger/internal/service"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	var m *metrics.Metrics
	if cfg.HTTP.MetricsEnabled {
		m = metrics.New()
	}

	ledgerClient, err := ledger.New(cfg.Ledger, logger, m)
	if err != nil {
		logger.Error("failed to create ledger client", "error", err)
		os.Exit(1)
	}

	store, err := metadata.Open(cfg.Metadata.DBPath, logger)
	if err != nil {
		logger.Error("failed to open metadata store", "error", err, "path", cfg.Metadata.DBPath)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing metadata store failed", "error", err)
		}
	}()

	nameCache, err := cache.New[string, string](cache.Options{
		Backend:    cfg.Cache.Backend,
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})
	if err != nil {
		logger.Error("failed to create name cache", "error", err)
		os.Exit(1)
	}
	names := resolver.NewNames(ledgerClient, nameCache)

	checks := server.Checks{
		"metadata": server.ProbeFunc(store.Ping),
	}
	deps := server.APIDependencies{
		Ledger:   ledgerClient,
		Metadata: store,
		Names:    names,
	}

	graphClient, err := buildGraphClient(ctx, cfg)
	switch {
	case errors.Is(err, graph.ErrMissingURI):
		logger.Warn("graph URI not configured, lineage routes disabled")
	case err != nil:
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	default:
		defer func() {
			if err := graphClient.Close(context.Background()); err != nil {
				logger.Warn("closing graph client failed", "error", err)
			}
		}()
		deps.Lineage = service.NewLineageService(repository.New(graphClient), names)
		checks["graph"] = server.GraphHealthService{Client: graphClient}
	}

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           checks,
		API:              server.NewAPIHandlers(logger, deps),
		Metrics:          m,
		AllowedOrigins:   cfg.HTTP.AllowedOrigins(),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}
	return graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
}

