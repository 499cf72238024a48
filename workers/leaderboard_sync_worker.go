package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Rebuilder rewrites leaderboard rows from the progress records.
type Rebuilder interface {
	Rebuild(ctx context.Context) (int, error)
}

// LeaderboardSyncWorker periodically reconciles the leaderboard with
// UserProgress, repairing rows lost to failed best-effort writes.
type LeaderboardSyncWorker struct {
	rebuilder Rebuilder
	interval  time.Duration
	timeout   time.Duration
	clock     clockwork.Clock
	log       *zap.Logger

	mu     sync.Mutex
	sched  gocron.Scheduler
	cancel context.CancelFunc
}

func NewLeaderboardSyncWorker(r Rebuilder, interval time.Duration, clock clockwork.Clock, log *zap.Logger) *LeaderboardSyncWorker {
	return &LeaderboardSyncWorker{
		rebuilder: r,
		interval:  interval,
		timeout:   2 * time.Minute,
		clock:     clock,
		log:       log,
	}
}

// Start schedules the first run immediately and then every interval. Runs never
// overlap; a tick that fires while one is in progress is skipped.
func (w *LeaderboardSyncWorker) Start(ctx context.Context) error {
	if w.interval <= 0 {
		w.log.Info("leaderboard sync disabled")
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sched != nil {
		return errors.New("leaderboard sync already started")
	}

	sched, err := gocron.NewScheduler(gocron.WithClock(w.clock))
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	runCtx, cancel := context.WithCancel(ctx)

	_, err = sched.NewJob(
		gocron.DurationJob(w.interval),
		gocron.NewTask(func() { w.RunOnce(runCtx) }),
		gocron.WithName("leaderboard-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		cancel()
		_ = sched.Shutdown()
		return fmt.Errorf("schedule leaderboard sync: %w", err)
	}

	sched.Start()
	w.sched = sched
	w.cancel = cancel
	w.log.Info("leaderboard sync started", zap.Duration("interval", w.interval))
	return nil
}

// RunOnce performs a single reconciliation pass.
func (w *LeaderboardSyncWorker) RunOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	start := w.clock.Now()
	n, err := w.rebuilder.Rebuild(ctx)
	if err != nil {
		w.log.Warn("leaderboard sync failed", zap.Int("rows", n), zap.Error(err))
		return
	}
	w.log.Info("leaderboard synced", zap.Int("rows", n), zap.Duration("took", w.clock.Since(start)))
}

// Stop cancels an in-flight run and shuts the scheduler down.
func (w *LeaderboardSyncWorker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.sched == nil {
		return nil
	}
	w.cancel()
	err := w.sched.Shutdown()
	w.sched = nil
	return err
}
