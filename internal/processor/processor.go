package processor

import (
	"context"
	"errors"
	"io"
)

var (
	ErrUnsupportedType  = errors.New("processor: unsupported file type")
	ErrProcessingFailed = errors.New("processor: processing failed")
	ErrInvalidConfig    = errors.New("processor: invalid configuration")
	ErrCorruptedFile    = errors.New("processor: file appears corrupted")
)

// Processor turns an input image stream into an optimized derivative.
type Processor interface {
	Process(ctx context.Context, opts *Options, input io.Reader) (*Result, error)
	SupportedTypes() []string
	Name() string
}

type Options struct {
	Format  string
	Quality int
}

type Result struct {
	Data        io.Reader
	ContentType string
	Extension   string
	Size        int64
	Metadata    ResultMetadata
}

type ResultMetadata struct {
	Width   int    `json:"width,omitempty"`
	Height  int    `json:"height,omitempty"`
	Format  string `json:"format,omitempty"`
	Quality int    `json:"quality,omitempty"`
}

type Config struct {
	Quality      int
	MaxDimension int
}

func DefaultConfig() *Config {
	return &Config{
		Quality:      70,
		MaxDimension: 4096,
	}
}
