package image

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/pixelpipe/pixelpipe/internal/processor"
)

var _ processor.Processor = (*TranscodeProcessor)(nil)

// TranscodeProcessor re-encodes an uploaded image into the optimized
// delivery format, downscaling anything larger than the configured
// maximum dimension.
type TranscodeProcessor struct {
	config *processor.Config
}

func NewTranscodeProcessor(cfg *processor.Config) *TranscodeProcessor {
	if cfg == nil {
		cfg = processor.DefaultConfig()
	}
	return &TranscodeProcessor{config: cfg}
}

func (p *TranscodeProcessor) Name() string {
	return "transcode"
}

func (p *TranscodeProcessor) SupportedTypes() []string {
	return []string{
		"image/jpeg",
		"image/png",
		"image/gif",
		"image/webp",
	}
}

func (p *TranscodeProcessor) Process(ctx context.Context, opts *processor.Options, input io.Reader) (*processor.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &processor.Options{}
	}

	img, _, err := image.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", processor.ErrCorruptedFile, err)
	}

	// Reported dimensions are the source's, even when the encoded
	// output is downscaled below.
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if p.config.MaxDimension > 0 && (width > p.config.MaxDimension || height > p.config.MaxDimension) {
		img = imaging.Fit(img, p.config.MaxDimension, p.config.MaxDimension, imaging.Lanczos)
	}

	targetFormat := strings.ToLower(opts.Format)
	if targetFormat == "" {
		targetFormat = "jpeg"
	}

	quality := opts.Quality
	if quality <= 0 {
		quality = p.config.Quality
	}

	var buf bytes.Buffer
	var contentType string
	var extension string

	switch targetFormat {
	case "jpeg", "jpg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, fmt.Errorf("failed to encode jpeg: %w", err)
		}
		contentType = "image/jpeg"
		extension = ".jpg"
		targetFormat = "jpeg"
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("failed to encode png: %w", err)
		}
		contentType = "image/png"
		extension = ".png"
	default:
		return nil, fmt.Errorf("%w: unsupported target format %q", processor.ErrInvalidConfig, targetFormat)
	}

	return &processor.Result{
		Data:        bytes.NewReader(buf.Bytes()),
		ContentType: contentType,
		Extension:   extension,
		Size:        int64(buf.Len()),
		Metadata: processor.ResultMetadata{
			Width:   width,
			Height:  height,
			Format:  targetFormat,
			Quality: quality,
		},
	}, nil
}
