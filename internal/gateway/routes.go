package gateway

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pixelpipe/pixelpipe/internal/health"
	"github.com/pixelpipe/pixelpipe/internal/images"
	"github.com/pixelpipe/pixelpipe/internal/realtime"
	"github.com/pixelpipe/pixelpipe/internal/storage"
	"github.com/pixelpipe/pixelpipe/internal/transcode"
	"github.com/pixelpipe/pixelpipe/internal/upload"
)

type Config struct {
	Storage            storage.Storage
	Repo               images.Repository
	Upload             *upload.Service
	Hub                *realtime.Hub
	Sessions           *SessionStore
	JWTSecret          string
	InternalServiceKey string
	MaxUploadSize      int64
	SignedURLTTL       time.Duration
	Pool               *pgxpool.Pool
	RedisClient        *redis.Client
}

// NewRouter assembles the gateway's HTTP surface.
func NewRouter(cfg *Config) http.Handler {
	if cfg.Sessions == nil {
		cfg.Sessions = NewSessionStore()
	}

	mux := http.NewServeMux()

	checker := health.NewChecker()
	if cfg.Pool != nil {
		checker.WithDatabase(cfg.Pool)
	}
	if cfg.RedisClient != nil {
		checker.WithRedis(cfg.RedisClient)
	}
	if cfg.Storage != nil {
		checker.WithStorage(cfg.Storage)
	}
	mux.HandleFunc("GET /health", health.HealthHandler(checker))
	mux.HandleFunc("GET /health/live", health.LivenessHandler())
	mux.HandleFunc("GET /health/ready", health.ReadinessHandler(checker))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.Handle("GET /ws", realtime.NewHandler(cfg.Hub, cfg.JWTSecret))

	mux.HandleFunc("POST "+transcode.EventPath, internalEventsHandler(cfg))

	apiMux := http.NewServeMux()
	apiMux.HandleFunc("POST /v1/images", uploadImageHandler(cfg))
	apiMux.HandleFunc("POST /v1/uploads", initUploadHandler(cfg))
	apiMux.HandleFunc("PUT /v1/uploads/{uploadId}/chunks", appendChunkHandler(cfg))
	apiMux.HandleFunc("POST /v1/uploads/{uploadId}/complete", completeUploadHandler(cfg))
	apiMux.HandleFunc("DELETE /v1/uploads/{uploadId}", cancelUploadHandler(cfg))

	apiMux.HandleFunc("GET /v1/images/{id}", getImageHandler(cfg))
	apiMux.HandleFunc("GET /v1/images/{id}/original", getOriginalHandler(cfg))
	apiMux.HandleFunc("GET /v1/images/{id}/optimized", getOptimizedHandler(cfg))
	apiMux.HandleFunc("GET /v1/users/{userId}/images/latest", latestImageHandler(cfg))

	mux.Handle("/v1/", Auth(cfg.JWTSecret)(apiMux))

	var handler http.Handler = mux
	handler = Metrics(handler)
	handler = RequestLogger(handler)
	handler = RequestID(handler)
	handler = Recovery(handler)
	return handler
}
