package upload

import (
	"bytes"
	"context"

	"github.com/pixelpipe/pixelpipe/internal/apperror"
	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/metrics"
	"github.com/pixelpipe/pixelpipe/internal/storage"
	"github.com/pixelpipe/pixelpipe/internal/transcode"
)

// Broker enqueues background jobs.
type Broker interface {
	Enqueue(jobType string, payload interface{}) (string, error)
}

// Service accepts reassembled uploads: it persists the original bytes,
// creates the image record, and hands the transcode off to the queue.
type Service struct {
	storage storage.Storage
	repo    images.Repository
	broker  Broker
}

func NewService(store storage.Storage, repo images.Repository, broker Broker) *Service {
	return &Service{
		storage: store,
		repo:    repo,
		broker:  broker,
	}
}

// Accept stores the upload and returns the new record in PENDING
// state. A storage failure aborts before any record exists; an enqueue
// failure is logged and left to the reconciliation sweeper, the upload
// itself still succeeds.
func (s *Service) Accept(ctx context.Context, meta *Metadata, data []byte) (*images.Image, error) {
	log := logger.FromContext(ctx)

	// A metadata-only stream is a valid upload; the stored object just
	// fails to decode during transcoding like any other bad input.
	if meta == nil {
		return nil, apperror.ErrMissingMetadata
	}

	key, err := s.storage.Put(ctx, bytes.NewReader(data), meta.Name, meta.ContentType, storage.FolderOriginal, int64(len(data)))
	if err != nil {
		metrics.RecordUpload("failed", 0)
		return nil, apperror.Wrap(err, apperror.ErrUploadFailed)
	}
	metrics.RecordUpload("accepted", int64(len(data)))

	img := &images.Image{
		UserID:       meta.UserID,
		Name:         meta.Name,
		ContentType:  meta.ContentType,
		Size:         int64(len(data)),
		OriginalPath: key,
	}
	if err := s.repo.Create(ctx, img); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrInternal)
	}

	payload := transcode.Payload{
		ImageID:   img.ID.String(),
		ObjectKey: key,
	}
	if jobID, err := s.broker.Enqueue(transcode.JobType, payload); err != nil {
		log.Error("failed to enqueue transcode job",
			"image_id", img.ID,
			"error", err)
	} else {
		log.Info("transcode job enqueued",
			"image_id", img.ID,
			"job_id", jobID)
	}

	return img, nil
}

// AcceptStream reassembles a framed upload stream and accepts it.
func (s *Service) AcceptStream(ctx context.Context, messages []Message) (*images.Image, error) {
	meta, data, err := Reassemble(messages)
	if err != nil {
		return nil, err
	}
	return s.Accept(ctx, meta, data)
}
