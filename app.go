package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fairlead/surveysync/internal/backend"
	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

// app bundles the wired-up components a subcommand needs.
type app struct {
	logger    *slog.Logger
	store     *syncpkg.Store
	client    *backend.Client
	monitor   *syncpkg.Monitor
	repo      *syncpkg.Repo
	processor *syncpkg.Processor
	engine    *syncpkg.Engine
}

// buildApp assembles the sync stack from the resolved configuration.
// Close the returned app when done.
func buildApp() (*app, error) {
	logger := buildLogger()

	if err := os.MkdirAll(filepath.Dir(resolvedCfg.Storage.DBPath), 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	store, err := syncpkg.NewStore(resolvedCfg.Storage.DBPath, logger)
	if err != nil {
		return nil, err
	}

	client := backend.NewClient(
		resolvedCfg.Backend.URL,
		resolvedCfg.Backend.ServiceKey,
		defaultHTTPClient(),
		logger,
	)

	var check syncpkg.CheckFunc
	if flagOffline || resolvedCfg.Backend.URL == "" {
		// No backend configured, or the user asked to stay offline.
		check = func(context.Context) bool { return false }
	}

	monitor := syncpkg.NewMonitor(check, resolvedCfg.CheckInterval(), logger)

	notifier := &consoleNotifier{quiet: flagQuiet}

	processor := syncpkg.NewProcessor(store, client, monitor, notifier,
		resolvedCfg.Sync.BatchSize, resolvedCfg.Sync.RetryLimit, logger)

	repo := syncpkg.NewRepo(store, monitor, logger)

	engine := syncpkg.NewEngine(store, repo, monitor, processor, client, logger)

	return &app{
		logger:    logger,
		store:     store,
		client:    client,
		monitor:   monitor,
		repo:      repo,
		processor: processor,
		engine:    engine,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("closing store", slog.String("error", err.Error()))
	}
}

// consoleNotifier surfaces sync outcomes on stderr, the closest thing a
// CLI has to the app's toast notifications.
type consoleNotifier struct {
	quiet bool
}

func (n *consoleNotifier) SyncSucceeded(pushed int) {
	statusf(n.quiet, "Synced %d change(s) to the backend.\n", pushed)
}

func (n *consoleNotifier) SyncFailed(kind syncpkg.EntityKind, entityID string, err error) {
	fmt.Fprintf(os.Stderr, "Sync failed for %s %s: %v\n", kind, entityID, err)
}
