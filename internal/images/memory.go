package images

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for testing. It enforces
// the same state transitions as the postgres implementation.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[uuid.UUID]*Image
}

var _ Repository = (*MemoryRepository)(nil)

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[uuid.UUID]*Image)}
}

func (r *MemoryRepository) Create(ctx context.Context, img *Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if img.ID == uuid.Nil {
		img.ID = uuid.New()
	}
	img.Status = StatusPending
	now := time.Now()
	img.CreatedAt = now
	img.UpdatedAt = now

	clone := *img
	r.records[img.ID] = &clone
	return nil
}

func (r *MemoryRepository) Get(ctx context.Context, id uuid.UUID) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *img
	return &clone, nil
}

func (r *MemoryRepository) LatestByUser(ctx context.Context, userID string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var matches []*Image
	for _, img := range r.records {
		if img.UserID == userID {
			matches = append(matches, img)
		}
	}
	if len(matches) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	clone := *matches[0]
	return &clone, nil
}

func (r *MemoryRepository) Claim(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if img.Status != StatusPending {
		return ErrNotClaimed
	}
	img.Status = StatusProcessing
	img.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Complete(ctx context.Context, id uuid.UUID, result CompletionResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if img.Status != StatusProcessing {
		return ErrNotClaimed
	}
	img.Status = StatusCompleted
	img.OptimizedPath = result.OptimizedPath
	img.Width = result.Width
	img.Height = result.Height
	img.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) Fail(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	img, ok := r.records[id]
	if !ok {
		return ErrNotFound
	}
	if img.Status == StatusCompleted {
		return ErrNotClaimed
	}
	img.Status = StatusFailed
	img.UpdatedAt = time.Now()
	return nil
}

func (r *MemoryRepository) RequeueStuck(ctx context.Context, olderThan time.Time, limit int) ([]uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stuck []*Image
	for _, img := range r.records {
		if img.Status == StatusProcessing && img.UpdatedAt.Before(olderThan) {
			stuck = append(stuck, img)
		}
	}
	sort.Slice(stuck, func(i, j int) bool {
		return stuck[i].UpdatedAt.Before(stuck[j].UpdatedAt)
	})
	if len(stuck) > limit {
		stuck = stuck[:limit]
	}

	ids := make([]uuid.UUID, 0, len(stuck))
	for _, img := range stuck {
		img.Status = StatusPending
		img.UpdatedAt = time.Now()
		ids = append(ids, img.ID)
	}
	return ids, nil
}

// SetStatus overrides a record's status directly (test helper).
func (r *MemoryRepository) SetStatus(id uuid.UUID, status ProcessingStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.records[id]; ok {
		img.Status = status
	}
}

// SetUpdatedAt overrides a record's update timestamp (test helper).
func (r *MemoryRepository) SetUpdatedAt(id uuid.UUID, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if img, ok := r.records[id]; ok {
		img.UpdatedAt = at
	}
}
