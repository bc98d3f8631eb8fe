package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pixelpipe/pixelpipe/internal/apperror"
	"github.com/pixelpipe/pixelpipe/internal/logger"
	"github.com/pixelpipe/pixelpipe/internal/upload"
)

// sessionTTL bounds how long an unfinished chunked upload is kept.
const sessionTTL = time.Hour

// uploadSession accumulates the frames of one chunked upload in
// arrival order.
type uploadSession struct {
	ID        string
	UserID    string
	CreatedAt time.Time

	mu       sync.Mutex
	messages []upload.Message
	size     int64
}

func (s *uploadSession) appendChunk(chunk []byte) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, upload.Message{Chunk: chunk})
	s.size += int64(len(chunk))
	return s.size
}

func (s *uploadSession) snapshot() []upload.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]upload.Message(nil), s.messages...)
}

// SessionStore holds active upload sessions in memory; a gateway
// restart drops unfinished uploads.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*uploadSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: make(map[string]*uploadSession)}
}

func (s *SessionStore) Get(id string) (*uploadSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	return session, ok
}

func (s *SessionStore) Set(session *uploadSession) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
}

func (s *SessionStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// CleanupExpired drops sessions older than the TTL.
func (s *SessionStore) CleanupExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-sessionTTL)
	removed := 0
	for id, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunCleanup sweeps expired sessions until the context is done.
func (s *SessionStore) RunCleanup(done <-chan struct{}) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.CleanupExpired()
		case <-done:
			return
		}
	}
}

type initUploadRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

type initUploadResponse struct {
	UploadID string `json:"uploadId"`
}

// initUploadHandler opens a chunked upload session. The metadata frame
// is recorded first; a session opened without metadata fails at
// completion, not here.
func initUploadHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			apperror.WriteJSON(w, r, apperror.ErrUnauthorized)
			return
		}

		session := &uploadSession{
			ID:        uuid.New().String(),
			UserID:    userID,
			CreatedAt: time.Now(),
		}

		var req initUploadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.Name != "" {
			session.messages = append(session.messages, upload.Message{
				Metadata: &upload.Metadata{
					UserID:      userID,
					Name:        req.Name,
					ContentType: req.ContentType,
				},
			})
		}

		cfg.Sessions.Set(session)
		logger.FromContext(r.Context()).Info("upload session opened",
			"upload_id", session.ID)

		writeJSON(w, http.StatusCreated, initUploadResponse{UploadID: session.ID})
	}
}

// appendChunkHandler appends the request body to the session in
// arrival order.
func appendChunkHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := cfg.Sessions.Get(r.PathValue("uploadId"))
		if !ok {
			apperror.WriteJSON(w, r, apperror.New("upload_not_found", "Upload session not found", http.StatusNotFound))
			return
		}
		userID, _ := UserID(r.Context())
		if session.UserID != userID {
			apperror.WriteJSON(w, r, apperror.New("upload_not_found", "Upload session not found", http.StatusNotFound))
			return
		}

		chunk, err := io.ReadAll(io.LimitReader(r.Body, cfg.MaxUploadSize+1))
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}
		if len(chunk) == 0 {
			apperror.WriteJSON(w, r, apperror.New("empty_chunk", "Chunk contained no data", http.StatusBadRequest))
			return
		}

		total := session.appendChunk(chunk)
		if total > cfg.MaxUploadSize {
			cfg.Sessions.Delete(session.ID)
			apperror.WriteJSON(w, r, apperror.ErrFileTooLarge)
			return
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{
			"uploadId": session.ID,
			"received": total,
		})
	}
}

// completeUploadHandler reassembles the session and hands it to the
// upload service.
func completeUploadHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := cfg.Sessions.Get(r.PathValue("uploadId"))
		if !ok {
			apperror.WriteJSON(w, r, apperror.New("upload_not_found", "Upload session not found", http.StatusNotFound))
			return
		}
		userID, _ := UserID(r.Context())
		if session.UserID != userID {
			apperror.WriteJSON(w, r, apperror.New("upload_not_found", "Upload session not found", http.StatusNotFound))
			return
		}

		img, err := cfg.Upload.AcceptStream(r.Context(), session.snapshot())
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}
		cfg.Sessions.Delete(session.ID)

		writeJSON(w, http.StatusCreated, newImageResponse(r.Context(), cfg, img))
	}
}

// cancelUploadHandler discards an in-progress session.
func cancelUploadHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := cfg.Sessions.Get(r.PathValue("uploadId"))
		if ok {
			userID, _ := UserID(r.Context())
			if session.UserID == userID {
				cfg.Sessions.Delete(session.ID)
			}
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// uploadImageHandler accepts a whole image in one multipart request.
func uploadImageHandler(cfg *Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := UserID(r.Context())
		if !ok {
			apperror.WriteJSON(w, r, apperror.ErrUnauthorized)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrFileTooLarge))
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrBadRequest))
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			apperror.WriteJSON(w, r, apperror.Wrap(err, apperror.ErrUploadFailed))
			return
		}

		meta := &upload.Metadata{
			UserID:      userID,
			Name:        header.Filename,
			ContentType: header.Header.Get("Content-Type"),
		}
		img, err := cfg.Upload.Accept(r.Context(), meta, data)
		if err != nil {
			apperror.WriteJSON(w, r, err)
			return
		}

		writeJSON(w, http.StatusCreated, newImageResponse(r.Context(), cfg, img))
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
