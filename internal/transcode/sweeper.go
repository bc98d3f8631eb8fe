package transcode

import (
	"context"
	"time"

	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/metrics"
)

// Broker enqueues background jobs.
type Broker interface {
	Enqueue(jobType string, payload interface{}) (string, error)
}

// Sweeper requeues images stuck in PROCESSING. A worker crash between
// claim and completion leaves the record there; the sweep flips it
// back to PENDING and re-enqueues, so the queue stays at-least-once
// end to end.
type Sweeper struct {
	repo       images.Repository
	broker     Broker
	interval   time.Duration
	stuckAfter time.Duration
	limit      int
}

func NewSweeper(repo images.Repository, broker Broker, interval, stuckAfter time.Duration, limit int) *Sweeper {
	return &Sweeper{
		repo:       repo,
		broker:     broker,
		interval:   interval,
		stuckAfter: stuckAfter,
		limit:      limit,
	}
}

// Run sweeps on a fixed interval until the context is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one reconciliation pass and returns how many records
// were requeued.
func (s *Sweeper) Sweep(ctx context.Context) int {
	log := logger.FromContext(ctx)

	cutoff := time.Now().Add(-s.stuckAfter)
	ids, err := s.repo.RequeueStuck(ctx, cutoff, s.limit)
	if err != nil {
		log.Error("failed to requeue stuck images", "error", err)
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	requeued := 0
	for _, id := range ids {
		payload := Payload{ImageID: id.String()}
		if _, err := s.broker.Enqueue(JobType, payload); err != nil {
			// Record is PENDING with no queued job; nothing retries
			// it automatically.
			log.Error("failed to re-enqueue stuck image",
				"image_id", id,
				"error", err)
			continue
		}
		requeued++
	}
	metrics.StuckImagesRequeued.Add(float64(requeued))

	log.Info("requeued stuck images", "count", requeued, "stuck", len(ids))
	return requeued
}
