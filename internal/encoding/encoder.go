package encoding

import (
	"encoding/json"
	"fmt"

	"github.com/synheart/synheart-stress/internal/models"
)

// Format represents the encoding format
type Format string

const (
	FormatJSON     Format = "json"
	FormatProtobuf Format = "protobuf"
)

// Encoder encodes reading snapshots to bytes
type Encoder interface {
	Encode(snap models.Snapshot) ([]byte, error)
	ContentType() string
}

// JSONEncoder encodes snapshots as JSON
type JSONEncoder struct{}

func NewJSONEncoder() *JSONEncoder {
	return &JSONEncoder{}
}

func (e *JSONEncoder) Encode(snap models.Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

func (e *JSONEncoder) ContentType() string {
	return "application/json"
}

// NewEncoder creates an encoder for the given format
func NewEncoder(format Format) Encoder {
	switch format {
	case FormatProtobuf:
		return NewProtobufEncoder()
	default:
		return NewJSONEncoder()
	}
}

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, "":
		return FormatJSON, nil
	case FormatProtobuf, "proto":
		return FormatProtobuf, nil
	}
	return "", fmt.Errorf("unknown encoding %q (use json or protobuf)", s)
}

// ForAccept picks an encoder from an HTTP Accept header, defaulting to JSON.
func ForAccept(accept string) Encoder {
	p := NewProtobufEncoder()
	if accept == p.ContentType() || accept == "application/protobuf" {
		return p
	}
	return NewJSONEncoder()
}
