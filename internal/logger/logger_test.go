package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capturingContext(buf *bytes.Buffer) context.Context {
	l := slog.New(slog.NewJSONHandler(buf, nil))
	return WithLogger(context.Background(), l)
}

func logLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestFromContext_FallsBackToDefault(t *testing.T) {
	l := FromContext(context.Background())
	require.NotNil(t, l)
	assert.Equal(t, Default(), l)
}

func TestWithRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRequestID(capturingContext(&buf), "req-42")

	FromContext(ctx).Info("handled")

	line := logLine(t, &buf)
	assert.Equal(t, "req-42", line["request_id"])
}

func TestWithUserID_StacksOnRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithRequestID(capturingContext(&buf), "req-42")
	ctx = WithUserID(ctx, "user-7")

	FromContext(ctx).Info("handled")

	line := logLine(t, &buf)
	assert.Equal(t, "req-42", line["request_id"])
	assert.Equal(t, "user-7", line["user_id"])
}

func TestWithJobAndImageID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithJob(capturingContext(&buf), "job-1", "transcode:image")
	ctx = WithImageID(ctx, "img-9")

	FromContext(ctx).Info("job started")

	line := logLine(t, &buf)
	assert.Equal(t, "job-1", line["job_id"])
	assert.Equal(t, "transcode:image", line["job_type"])
	assert.Equal(t, "img-9", line["image_id"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"garbage", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), "level %q", tt.in)
	}
}
