package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper removes expired entries from a process-local store and reports
// how many were dropped. The content cache and the in-memory rate limiter
// both satisfy it.
type Sweeper interface {
	Sweep() int
}

// Target pairs a sweeper with a name for logging.
type Target struct {
	Name    string
	Sweeper Sweeper
}

// SweepWorker periodically sweeps expired entries so lazy eviction alone
// does not let cold keys accumulate in long-lived processes.
type SweepWorker struct {
	interval time.Duration
	targets  []Target
	log      *zerolog.Logger
}

func NewSweepWorker(interval time.Duration, logger *zerolog.Logger, targets ...Target) *SweepWorker {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &SweepWorker{interval: interval, targets: targets, log: logger}
}

// Run blocks until ctx is cancelled, sweeping every interval.
func (w *SweepWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Int("targets", len(w.targets)).Msg("sweep worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("sweep worker stopped")
			return
		case <-ticker.C:
			w.sweepOnce()
		}
	}
}

func (w *SweepWorker) sweepOnce() {
	for _, t := range w.targets {
		removed := t.Sweeper.Sweep()
		if removed > 0 {
			w.log.Debug().Str("target", t.Name).Int("removed", removed).Msg("swept expired entries")
		}
	}
}
