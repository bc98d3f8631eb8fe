package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/pixelpipe/pixelpipe/internal/apperror"
	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/logger"
)

type imageResponse struct {
	ID                string    `json:"id"`
	UserID            string    `json:"userId"`
	Name              string    `json:"name"`
	ContentType       string    `json:"contentType"`
	Size              int64     `json:"size"`
	ProcessingStatus  string    `json:"processingStatus"`
	Width             int       `json:"width,omitempty"`
	Height            int       `json:"height,omitempty"`
	OriginalImageURL  string    `json:"originalImageUrl,omitempty"`
	OptimizedImageURL string    `json:"optimizedImageUrl,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// newImageResponse renders a record with signed URLs. The optimized
// URL appears only once the record is COMPLETED.
func newImageResponse(ctx context.Context, cfg *Config, img *images.Image) imageResponse {
	log := logger.FromContext(ctx)
	ttl := int(cfg.SignedURLTTL.Seconds())

	resp := imageResponse{
		ID:               img.ID.String(),
		UserID:           img.UserID,
		Name:             img.Name,
		ContentType:      img.ContentType,
		Size:             img.Size,
		ProcessingStatus: string(img.Status),
		Width:            img.Width,
		Height:           img.Height,
		CreatedAt:        img.CreatedAt,
		UpdatedAt:        img.UpdatedAt,
	}

	if url, err := cfg.Storage.GetPresignedURL(ctx, img.OriginalPath, ttl); err == nil {
		resp.OriginalImageURL = url
	} else {
		log.Warn("failed to sign original URL", "image_id", img.ID, "error", err)
	}

	if img.Completed() {
		if url, err := cfg.Storage.GetPresignedURL(ctx, img.OptimizedPath, ttl); err == nil {
			resp.OptimizedImageURL = url
		} else {
			log.Warn("failed to sign optimized URL", "image_id", img.ID, "error", err)
		}
	}
	return resp
}

// loadOwnedImage fetches a record and hides other users' images
// behind not-found.
func loadOwnedImage(cfg *Config, r *http.Request) (*images.Image, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return nil, apperror.ErrNotFound
	}

	img, err := cfg.Repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, images.ErrNotFound) {
			return nil, apperror.ErrNotFound
		}
		return nil, apperror.Wrap(err, apperror.ErrInternal)
	}

	userID, _ := UserID(r.Context())
	if img.UserID != userID {
		return nil, apperror.ErrNotFound
	}
	return img, nil
}

func getImageHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := loadOwnedImage(cfg, r)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, newImageResponse(r.Context(), cfg, img))
	}
}

// getOriginalHandler redirects to a signed URL for the uploaded bytes.
func getOriginalHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := loadOwnedImage(cfg, r)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		url, err := cfg.Storage.GetPresignedURL(r.Context(), img.OriginalPath, int(cfg.SignedURLTTL.Seconds()))
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrStorageUnavailable))
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// getOptimizedHandler redirects to the derivative, or reports
// not-ready while the transcode is still in flight.
func getOptimizedHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		img, err := loadOwnedImage(cfg, r)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		if !img.Completed() {
			apperror.WriteJSON(w, r, apperror.ErrNotReady)
			return
		}

		url, err := cfg.Storage.GetPresignedURL(r.Context(), img.OptimizedPath, int(cfg.SignedURLTTL.Seconds()))
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrStorageUnavailable))
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

// latestImageHandler returns the user's most recent upload.
func latestImageHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathUserID := r.PathValue("userId")
		authUserID, _ := UserID(r.Context())
		if pathUserID != authUserID {
			apperror.WriteJSON(w, r, apperror.ErrNotFound)
			return
		}

		img, err := cfg.Repo.LatestByUser(r.Context(), pathUserID)
		if err != nil {
			if errors.Is(err, images.ErrNotFound) {
				apperror.WriteJSON(w, r, apperror.ErrNotFound)
				return
			}
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}
		writeJSON(w, http.StatusOK, newImageResponse(r.Context(), cfg, img))
	}
}
