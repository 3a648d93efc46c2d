package ingest

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Watchdog runs the importer on a fixed interval. It shares no state
// with on-demand runs; overlapping runs are tolerated by the dedup
// check rather than prevented by locking, which is a documented race
// under true concurrency.
type Watchdog interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

type watchdog struct {
	importer *Importer
	interval time.Duration
	done     chan struct{}
	log      zerolog.Logger
}

func NewWatchdog(importer *Importer, interval time.Duration, log zerolog.Logger) Watchdog {
	return &watchdog{
		importer: importer,
		interval: interval,
		done:     make(chan struct{}),
		log:      log,
	}
}

func (w *watchdog) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *watchdog) Stop(ctx context.Context) {
	close(w.done)
}

func (w *watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("feed poller started")

	for {
		select {
		case <-ticker.C:
			if _, err := w.importer.Run(ctx); err != nil {
				w.log.Error().Err(err).Msg("scheduled import run failed")
			}
		case <-w.done:
			w.log.Info().Msg("feed poller stopped")
			return
		case <-ctx.Done():
			return
		}
	}
}
