package upload

import (
	"bytes"

	"github.com/pixelpipe/pixelpipe/internal/apperror"
)

// Metadata describes an upload before any bytes arrive. The client
// must send it ahead of the first chunk.
type Metadata struct {
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
}

// Message is one frame of an upload stream. Exactly one of Metadata or
// Chunk is set per frame.
type Message struct {
	Metadata *Metadata
	Chunk    []byte
}

// Reassemble consumes an ordered upload stream and returns the
// metadata plus the concatenated payload. The first frame must carry
// metadata; chunks are joined in arrival order.
func Reassemble(messages []Message) (*Metadata, []byte, error) {
	if len(messages) == 0 || messages[0].Metadata == nil {
		return nil, nil, apperror.ErrMissingMetadata
	}
	meta := messages[0].Metadata

	var buf bytes.Buffer
	for _, msg := range messages[1:] {
		if msg.Metadata != nil {
			// Duplicate metadata frames are ignored; the first one wins.
			continue
		}
		buf.Write(msg.Chunk)
	}
	return meta, buf.Bytes(), nil
}
