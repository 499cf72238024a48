package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

type countingRebuilder struct {
	calls atomic.Int32
	err   error
}

func (r *countingRebuilder) Rebuild(ctx context.Context) (int, error) {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return 0, errors.New("rebuild called without a deadline")
	}
	return 3, r.err
}

func TestRunOnce(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"success", nil},
		{"failure is logged", errors.New("scan failed")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &countingRebuilder{err: tt.err}
			w := NewLeaderboardSyncWorker(r, time.Minute, clockwork.NewFakeClock(), zap.NewNop())
			w.RunOnce(context.Background())
			if got := r.calls.Load(); got != 1 {
				t.Errorf("Rebuild called %d times, want 1", got)
			}
		})
	}
}

func TestStartRunsImmediatelyAndStops(t *testing.T) {
	r := &countingRebuilder{}
	w := NewLeaderboardSyncWorker(r, time.Hour, clockwork.NewRealClock(), zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Error("second Start() succeeded")
	}

	deadline := time.Now().Add(2 * time.Second)
	for r.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if r.calls.Load() == 0 {
		t.Error("first run did not start immediately")
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestStartDisabled(t *testing.T) {
	r := &countingRebuilder{}
	w := NewLeaderboardSyncWorker(r, 0, clockwork.NewFakeClock(), zap.NewNop())
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Stop(); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
	if got := r.calls.Load(); got != 0 {
		t.Errorf("Rebuild called %d times with the worker disabled", got)
	}
}
