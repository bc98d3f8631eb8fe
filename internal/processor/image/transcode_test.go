package image

import (
	"bytes"
	"context"
	"image"
	"io"
	"strings"
	"testing"

	"github.com/pixelpipe/pixelpipe/internal/processor"
)

func TestTranscodeProcessor_Name(t *testing.T) {
	p := NewTranscodeProcessor(nil)
	if got := p.Name(); got != "transcode" {
		t.Errorf("Name() = %v, want transcode", got)
	}
}

func TestTranscodeProcessor_SupportedTypes(t *testing.T) {
	p := NewTranscodeProcessor(nil)
	types := p.SupportedTypes()

	expected := map[string]bool{
		"image/jpeg": true,
		"image/png":  true,
		"image/gif":  true,
		"image/webp": true,
	}

	if len(types) != len(expected) {
		t.Errorf("SupportedTypes() returned %d types, want %d", len(types), len(expected))
	}
	for _, typ := range types {
		if !expected[typ] {
			t.Errorf("unexpected type: %s", typ)
		}
	}
}

func TestTranscodeProcessor_Process(t *testing.T) {
	tests := []struct {
		name            string
		input           func() io.Reader
		opts            *processor.Options
		wantContentType string
		wantFormat      string
		wantErr         bool
	}{
		{
			name:            "png to jpeg default",
			input:           func() io.Reader { return encodeTestPNG(createTestImage(100, 80)) },
			opts:            &processor.Options{},
			wantContentType: "image/jpeg",
			wantFormat:      "jpeg",
		},
		{
			name:            "jpeg re-encode at quality",
			input:           func() io.Reader { return encodeTestJPEG(createTestImage(64, 64), 95) },
			opts:            &processor.Options{Format: "jpeg", Quality: 70},
			wantContentType: "image/jpeg",
			wantFormat:      "jpeg",
		},
		{
			name:            "png target",
			input:           func() io.Reader { return encodeTestJPEG(createTestImage(64, 64), 95) },
			opts:            &processor.Options{Format: "png"},
			wantContentType: "image/png",
			wantFormat:      "png",
		},
		{
			name:    "unsupported format",
			input:   func() io.Reader { return encodeTestPNG(createTestImage(10, 10)) },
			opts:    &processor.Options{Format: "tiff"},
			wantErr: true,
		},
		{
			name:    "corrupted input",
			input:   func() io.Reader { return strings.NewReader("not an image") },
			opts:    &processor.Options{},
			wantErr: true,
		},
	}

	p := NewTranscodeProcessor(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := p.Process(context.Background(), tt.opts, tt.input())
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Process() error = %v", err)
			}
			if result.ContentType != tt.wantContentType {
				t.Errorf("ContentType = %v, want %v", result.ContentType, tt.wantContentType)
			}
			if result.Metadata.Format != tt.wantFormat {
				t.Errorf("Metadata.Format = %v, want %v", result.Metadata.Format, tt.wantFormat)
			}
			if result.Size <= 0 {
				t.Errorf("Size = %d, want > 0", result.Size)
			}
		})
	}
}

func TestTranscodeProcessor_ReportsDimensions(t *testing.T) {
	p := NewTranscodeProcessor(nil)

	result, err := p.Process(context.Background(), &processor.Options{}, encodeTestPNG(createTestImage(120, 90)))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if result.Metadata.Width != 120 || result.Metadata.Height != 90 {
		t.Errorf("dimensions = %dx%d, want 120x90", result.Metadata.Width, result.Metadata.Height)
	}
}

func TestTranscodeProcessor_DownscalesOversizedInput(t *testing.T) {
	p := NewTranscodeProcessor(&processor.Config{Quality: 70, MaxDimension: 50})

	result, err := p.Process(context.Background(), &processor.Options{}, encodeTestPNG(createTestImage(200, 100)))
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	// Reported dimensions stay those of the source, not the shrunk output.
	if result.Metadata.Width != 200 || result.Metadata.Height != 100 {
		t.Errorf("dimensions = %dx%d, want 200x100", result.Metadata.Width, result.Metadata.Height)
	}

	// The encoded output itself is downscaled and must still decode.
	data, err := io.ReadAll(result.Data)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	decoded, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode result: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() > 50 || bounds.Dy() > 50 {
		t.Errorf("output = %dx%d, want both <= 50", bounds.Dx(), bounds.Dy())
	}
}

func TestTranscodeProcessor_CancelledContext(t *testing.T) {
	p := NewTranscodeProcessor(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &processor.Options{}, encodeTestPNG(createTestImage(10, 10)))
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
