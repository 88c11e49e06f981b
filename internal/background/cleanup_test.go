package background

import (
	"context"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingCleaner struct {
	calls atomic.Int64
}

func (c *countingCleaner) ClearExpiredResetTokens(ctx context.Context) (int64, error) {
	c.calls.Add(1)
	return 1, nil
}

func TestCleanupManager_RunsImmediatelyAndPeriodically(t *testing.T) {
	cleaner := &countingCleaner{}
	cm := NewCleanupManager(cleaner, slog.Default(), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return cleaner.calls.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cm.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}
}

func TestCleanupManager_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cm := NewCleanupManager(&countingCleaner{}, slog.Default(), time.Hour)

	done := make(chan struct{})
	go func() {
		cm.Start(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager ignored context cancellation")
	}
}
