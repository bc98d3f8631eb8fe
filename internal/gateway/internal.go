package gateway

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/pixelpipe/pixelpipe/internal/apperror"
	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/realtime"
	"github.com/pixelpipe/pixelpipe/internal/transcode"
)

type internalEventResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// internalEventsHandler receives processing events from workers and
// fans them out to the image and user rooms. The record is re-read so
// clients always see current state, not what the worker believed.
func internalEventsHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := logger.FromContext(r.Context())

		key := r.Header.Get(transcode.ServiceKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(cfg.InternalServiceKey)) != 1 {
			apperror.WriteJSON(w, r, apperror.ErrInvalidServiceKey)
			return
		}

		var event transcode.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}

		imageID, err := uuid.Parse(event.ImageID)
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}

		img, err := cfg.Repo.Get(r.Context(), imageID)
		if err != nil {
			if errors.Is(err, images.ErrNotFound) {
				apperror.WriteJSON(w, r, apperror.ErrNotFound)
				return
			}
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}

		payload := newImageResponse(r.Context(), cfg, img)
		err = cfg.Hub.Broadcast(realtime.EventImageUpdate, payload,
			realtime.RoomForImage(img.ID.String()),
			realtime.RoomForUser(img.UserID),
		)
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrInternal))
			return
		}

		log.Info("image update broadcast",
			"image_id", img.ID,
			"status", img.Status)

		writeJSON(w, http.StatusOK, internalEventResponse{
			Success: true,
			Message: "Event broadcast for image " + img.ID.String(),
		})
	}
}
