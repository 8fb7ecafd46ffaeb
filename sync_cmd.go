package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	syncpkg "github.com/fairlead/surveysync/internal/sync"
)

// newSyncCmd builds the sync command: one-shot queue drain by default,
// long-running engine with --watch.
func newSyncCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push queued changes to the backend",
		Long: "Drains the local sync queue against the backend. With --watch, keeps running: " +
			"probes connectivity, drains automatically after reconnects, and follows the " +
			"backend's change feed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd.Context(), watch)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and sync on connectivity changes")

	return cmd
}

func runSync(parent context.Context, watch bool) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := shutdownContext(parent, a.logger)

	requeued, err := a.engine.RequeueDirty(ctx)
	if err != nil {
		return err
	}

	if requeued > 0 {
		statusf(flagQuiet, "Requeued %d unsynced change(s) from earlier sessions.\n", requeued)
	}

	if watch {
		return runWatch(ctx, a)
	}

	if !a.monitor.Probe(ctx) {
		return fmt.Errorf("backend unreachable: %w", syncpkg.ErrOffline)
	}

	result, err := a.engine.SyncNow(ctx)
	if err != nil {
		return err
	}

	statusf(flagQuiet, "Pushed %d, retrying %d, dropped %d.\n",
		result.Pushed, result.Retried, result.Dropped)

	return nil
}

func runWatch(ctx context.Context, a *app) error {
	statusf(flagQuiet, "Watching for changes. Press Ctrl-C to stop.\n")

	var feed syncpkg.Feed
	if resolvedCfg.Sync.Websocket && !flagOffline {
		feed = a.client
	}

	return a.engine.Watch(ctx, feed)
}
