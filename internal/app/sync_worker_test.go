package app_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"quiz-sync-service/internal/app"
)

func TestSyncWorkerFlushesOnReconnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := newHarness(false)

	_, err := h.scores.Save(ctx, submission("A", "Level 1", "", 80))
	require.NoError(t, err)

	worker := app.NewSyncWorker(h.scores, h.conn, 10*time.Millisecond, discardLogger())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, h.remote.Writes())

	h.conn.Set(true)
	require.Eventually(t, func() bool { return h.remote.Writes() == 1 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(h.scores.Pending(ctx)) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatalf("worker did not stop")
	}
	require.Equal(t, 1, h.remote.Writes())
}
