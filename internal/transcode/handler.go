package transcode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/abdul-hamid-achik/job-queue/pkg/job"
	"github.com/abdul-hamid-achik/job-queue/pkg/middleware"
	"github.com/google/uuid"

	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/metrics"
	"github.com/pixelpipe/pixelpipe/internal/processor"
	"github.com/pixelpipe/pixelpipe/internal/storage"
)

// Dependencies carries everything the transcode handler needs.
type Dependencies struct {
	Storage  storage.Storage
	Repo     images.Repository
	Registry *processor.Registry
	Cache    *ResultCache
	Notifier Notifier
	Format   string
	Quality  int
}

// Handler returns the queue handler for transcode jobs.
func Handler(deps *Dependencies) func(context.Context, *job.Job) error {
	return func(ctx context.Context, j *job.Job) error {
		ctx = logger.WithJob(ctx, j.ID, JobType)
		log := logger.FromContext(ctx)
		log.Info("job started")
		start := time.Now()

		var payload Payload
		if err := j.UnmarshalPayload(&payload); err != nil {
			log.Error("invalid payload", "error", err)
			return middleware.Permanent(fmt.Errorf("invalid payload: %w", err))
		}

		err := Run(ctx, deps, payload)
		if err != nil {
			metrics.RecordTranscode("failed", time.Since(start).Seconds())
			return err
		}
		metrics.RecordTranscode("completed", time.Since(start).Seconds())
		log.Info("job finished", "duration_ms", time.Since(start).Milliseconds())
		return nil
	}
}

// Run executes one transcode delivery. Redeliveries are idempotent: a
// cache hit replays the completion write and notification without
// re-encoding, and records already past PENDING are otherwise skipped.
func Run(ctx context.Context, deps *Dependencies, payload Payload) error {
	ctx = logger.WithImageID(ctx, payload.ImageID)
	log := logger.FromContext(ctx)

	imageID, err := uuid.Parse(payload.ImageID)
	if err != nil {
		return middleware.Permanent(fmt.Errorf("invalid image id %q: %w", payload.ImageID, err))
	}

	if cached, ok := deps.Cache.Get(payload.ImageID); ok {
		// The transcode is skipped, but the completion write and the
		// notification still happen; re-applying the same result to a
		// COMPLETED record is a no-op.
		err := deps.Repo.Complete(ctx, imageID, images.CompletionResult{
			OptimizedPath: cached.OptimizedPath,
			Width:         cached.Width,
			Height:        cached.Height,
		})
		if err != nil && !errors.Is(err, images.ErrNotClaimed) {
			return fmt.Errorf("apply cached result: %w", err)
		}
		notify(ctx, deps, log, Event{
			ImageID: payload.ImageID,
			Status:  string(images.StatusCompleted),
		})
		log.Info("transcode result cached, skipped re-encode",
			"optimized_path", cached.OptimizedPath)
		return nil
	}

	img, err := deps.Repo.Get(ctx, imageID)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			return middleware.Permanent(fmt.Errorf("image %s not found: %w", imageID, err))
		}
		return fmt.Errorf("load image record: %w", err)
	}
	if img.Status.Terminal() {
		log.Info("image already in terminal state, skipping", "status", img.Status)
		return nil
	}

	// Exactly one delivery wins the claim; the rest skip.
	if err := deps.Repo.Claim(ctx, imageID); err != nil {
		if errors.Is(err, images.ErrNotClaimed) {
			log.Info("image claimed elsewhere, skipping")
			return nil
		}
		return fmt.Errorf("claim image: %w", err)
	}

	result, err := process(ctx, deps, img)
	if err != nil {
		log.Error("transcode failed", "error", err)
		fail(ctx, deps, img, log)
		return middleware.Permanent(err)
	}

	if err := deps.Repo.Complete(ctx, imageID, *result); err != nil {
		return fmt.Errorf("complete image record: %w", err)
	}

	deps.Cache.Set(payload.ImageID, CachedResult{
		OptimizedPath: result.OptimizedPath,
		Width:         result.Width,
		Height:        result.Height,
	})

	notify(ctx, deps, log, Event{
		ImageID: payload.ImageID,
		Status:  string(images.StatusCompleted),
	})

	log.Info("image transcoded",
		"optimized_path", result.OptimizedPath,
		"width", result.Width,
		"height", result.Height)
	return nil
}

func process(ctx context.Context, deps *Dependencies, img *images.Image) (*images.CompletionResult, error) {
	reader, err := deps.Storage.Download(ctx, img.OriginalPath)
	if err != nil {
		return nil, fmt.Errorf("download original %s: %w", img.OriginalPath, err)
	}
	defer closeSafely(ctx, reader)

	proc, err := processorFor(deps.Registry, img.ContentType)
	if err != nil {
		return nil, err
	}
	opts := &processor.Options{
		Format:  deps.Format,
		Quality: deps.Quality,
	}

	result, err := proc.Process(ctx, opts, reader)
	if err != nil {
		return nil, fmt.Errorf("transcode %s: %w", img.OriginalPath, err)
	}

	name := optimizedName(img.Name, result.Extension)
	key, err := deps.Storage.Put(ctx, result.Data, name, result.ContentType, storage.FolderOptimized, result.Size)
	if err != nil {
		return nil, fmt.Errorf("store optimized image: %w", err)
	}

	return &images.CompletionResult{
		OptimizedPath: key,
		Width:         result.Metadata.Width,
		Height:        result.Metadata.Height,
	}, nil
}

// fail moves the record to FAILED and tells the gateway. Both steps
// are best-effort; the job outcome is already decided.
func fail(ctx context.Context, deps *Dependencies, img *images.Image, log *slog.Logger) {
	if err := deps.Repo.Fail(ctx, img.ID); err != nil {
		log.Error("failed to mark image as failed", "error", err)
	}
	notify(ctx, deps, log, Event{
		ImageID: img.ID.String(),
		Status:  string(images.StatusFailed),
	})
}

func notify(ctx context.Context, deps *Dependencies, log *slog.Logger, event Event) {
	if deps.Notifier == nil {
		return
	}
	if err := deps.Notifier.Notify(ctx, event); err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		log.Error("failed to notify gateway", "error", err, "status", event.Status)
		return
	}
	metrics.NotificationsTotal.WithLabelValues("delivered").Inc()
}

// processorFor picks a processor by the record's content type. Records
// without a usable content type fall back to the transcode processor,
// whose decoder sniffs the format itself.
func processorFor(registry *processor.Registry, contentType string) (processor.Processor, error) {
	if procs := registry.GetForContentType(contentType); len(procs) > 0 {
		return procs[0], nil
	}
	if proc, ok := registry.Get("transcode"); ok {
		return proc, nil
	}
	return nil, fmt.Errorf("%w: %s", processor.ErrUnsupportedType, contentType)
}

func optimizedName(original, extension string) string {
	base := strings.TrimSuffix(original, path.Ext(original))
	if base == "" {
		base = "image"
	}
	return base + extension
}

func closeSafely(ctx context.Context, c io.Closer) {
	if err := c.Close(); err != nil {
		logger.FromContext(ctx).Warn("failed to close reader", "error", err)
	}
}
