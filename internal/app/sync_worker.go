package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"quiz-sync-service/internal/domain"
)

// SyncWorker flushes the offline score buffer once at start and again every
// time connectivity comes back. There is no retry beyond the next transition.
type SyncWorker struct {
	scores   *ScoreService
	conn     Connectivity
	interval time.Duration
	log      *slog.Logger
}

func NewSyncWorker(scores *ScoreService, conn Connectivity, interval time.Duration, logger *slog.Logger) *SyncWorker {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &SyncWorker{scores: scores, conn: conn, interval: interval, log: logger}
}

// Run polls connectivity until ctx is canceled.
func (w *SyncWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	online := w.conn.IsConnected(ctx)
	if online {
		w.flush(ctx)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			now := w.conn.IsConnected(ctx)
			if now && !online {
				w.log.Info("connectivity restored")
				w.flush(ctx)
			} else if !now && online {
				w.log.Info("connectivity lost")
			}
			online = now
		}
	}
}

func (w *SyncWorker) flush(ctx context.Context) {
	res, err := w.scores.Flush(ctx)
	if err != nil && !errors.Is(err, domain.ErrOffline) {
		w.log.Error("flush score buffer", "err", err)
		return
	}
	w.log.Debug("sync pass done", "pushed", res.Pushed, "failed", res.Failed)
}
