package images

import (
	"time"

	"github.com/google/uuid"
)

// ProcessingStatus tracks where an image sits in the transcode lifecycle.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "PENDING"
	StatusProcessing ProcessingStatus = "PROCESSING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// Valid reports whether s is one of the known lifecycle states.
func (s ProcessingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s admits no further transitions.
func (s ProcessingStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Image is the persisted record for one uploaded image and its
// optimized derivative.
type Image struct {
	ID            uuid.UUID        `json:"id"`
	UserID        string           `json:"userId"`
	Name          string           `json:"name"`
	ContentType   string           `json:"contentType"`
	Size          int64            `json:"size"`
	OriginalPath  string           `json:"-"`
	OptimizedPath string           `json:"-"`
	Status        ProcessingStatus `json:"processingStatus"`
	Width         int              `json:"width,omitempty"`
	Height        int              `json:"height,omitempty"`
	CreatedAt     time.Time        `json:"createdAt"`
	UpdatedAt     time.Time        `json:"updatedAt"`
}

// completion invariant: a COMPLETED record always carries its
// derivative path and dimensions.
func (i *Image) Completed() bool {
	return i.Status == StatusCompleted && i.OptimizedPath != "" && i.Width > 0 && i.Height > 0
}

// CompletionResult carries everything written atomically when a
// transcode succeeds.
type CompletionResult struct {
	OptimizedPath string
	Width         int
	Height        int
}
