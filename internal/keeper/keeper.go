// Package keeper runs the app's background jobs: keeping the application
// OAuth token fresh and sweeping expired rows out of the sqlite store.
package keeper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/Jackevansevo/jeddit/internal/reddit"
	"github.com/Jackevansevo/jeddit/internal/store"
)

// sweeper is implemented by store backends that accumulate expired rows
// (the sqlite backend). Redis expires keys on its own.
type sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

// tokenMinRemaining is how much lifetime the cached app token must keep;
// refreshing early means anonymous requests never block on a token fetch.
const tokenMinRemaining = 15 * time.Minute

// Keeper owns the gocron scheduler and its jobs.
type Keeper struct {
	cron   gocron.Scheduler
	app    *reddit.AppTokenSource
	store  store.Store
	logger *slog.Logger
}

// New creates a Keeper with a token-refresh job every 10 minutes and, when
// the store supports sweeping, an hourly expired-row sweep.
func New(app *reddit.AppTokenSource, st store.Store, logger *slog.Logger) (*Keeper, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	k := &Keeper{cron: cron, app: app, store: st, logger: logger}

	_, err = cron.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(k.refreshToken),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, fmt.Errorf("scheduling token keeper: %w", err)
	}

	if _, ok := st.(sweeper); ok {
		_, err = cron.NewJob(
			gocron.DurationJob(time.Hour),
			gocron.NewTask(k.sweepStore),
		)
		if err != nil {
			return nil, fmt.Errorf("scheduling store sweep: %w", err)
		}
	}

	return k, nil
}

// Start begins running jobs in the background.
func (k *Keeper) Start() {
	k.cron.Start()
	k.logger.Info("background jobs started", "jobs", len(k.cron.Jobs()))
}

// Stop shuts down the scheduler, waiting for running jobs.
func (k *Keeper) Stop() error {
	return k.cron.Shutdown()
}

func (k *Keeper) refreshToken() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := k.app.EnsureFresh(ctx, tokenMinRemaining); err != nil {
		k.logger.Warn("app token refresh failed", "error", err)
	}
}

func (k *Keeper) sweepStore() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := k.store.(sweeper).Sweep(ctx)
	if err != nil {
		k.logger.Warn("store sweep failed", "error", err)
		return
	}
	if n > 0 {
		k.logger.Info("swept expired store rows", "rows", n)
	}
}
