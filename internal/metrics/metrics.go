package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	ImageUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_uploads_total",
			Help: "Total number of image uploads",
		},
		[]string{"status"},
	)

	ImageUploadBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_upload_bytes",
			Help:    "Size of uploaded images in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	TranscodeJobsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcode_jobs_total",
			Help: "Total number of transcode jobs by outcome",
		},
		[]string{"outcome"},
	)

	TranscodeDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcode_duration_seconds",
			Help:    "Transcode job duration in seconds",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_notifications_total",
			Help: "Total worker-to-gateway notifications by outcome",
		},
		[]string{"outcome"},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections_active",
			Help: "Number of open websocket connections",
		},
	)

	StuckImagesRequeued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stuck_images_requeued_total",
			Help: "Total PROCESSING images flipped back to PENDING by the sweeper",
		},
	)
)

// RecordUpload tracks one accepted or rejected upload.
func RecordUpload(status string, size int64) {
	ImageUploadsTotal.WithLabelValues(status).Inc()
	if size > 0 {
		ImageUploadBytes.Observe(float64(size))
	}
}

// RecordTranscode tracks one finished transcode job.
func RecordTranscode(outcome string, seconds float64) {
	TranscodeJobsTotal.WithLabelValues(outcome).Inc()
	TranscodeDuration.Observe(seconds)
}
