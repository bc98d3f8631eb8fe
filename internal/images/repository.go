package images

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no record exists for the given ID.
	ErrNotFound = errors.New("image not found")
	// ErrNotClaimed is returned when a claim races another worker or the
	// record already reached a terminal state.
	ErrNotClaimed = errors.New("image not in claimable state")
)

// Repository is the persistence boundary for image records.
type Repository interface {
	// Create inserts a new record in PENDING state.
	Create(ctx context.Context, img *Image) error

	// Get returns the record by ID.
	Get(ctx context.Context, id uuid.UUID) (*Image, error)

	// LatestByUser returns the most recently created record for a user.
	LatestByUser(ctx context.Context, userID string) (*Image, error)

	// Claim transitions PENDING -> PROCESSING. It succeeds for exactly
	// one caller per record; every other caller gets ErrNotClaimed.
	Claim(ctx context.Context, id uuid.UUID) error

	// Complete transitions PROCESSING -> COMPLETED, writing the
	// derivative path and dimensions in the same statement.
	Complete(ctx context.Context, id uuid.UUID, result CompletionResult) error

	// Fail transitions the record to FAILED.
	Fail(ctx context.Context, id uuid.UUID) error

	// RequeueStuck flips PROCESSING records older than the cutoff back
	// to PENDING and returns their IDs, at most limit of them.
	RequeueStuck(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error)
}
