// Package codec provides the encodings used for stored agent snapshots.
package codec

import (
	"encoding/json"
	"errors"
	"fmt"

	cbor "github.com/fxamacker/cbor/v2"
)

// Content types understood by the registry.
const (
	ContentJSON = "application/json"
	ContentCBOR = "application/cbor"
)

// ErrUnknownContentType is returned for an unregistered content type.
var ErrUnknownContentType = errors.New("unknown content type")

// Codec marshals values to bytes and back.
type Codec interface {
	ContentType() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

type jsonCodec struct{}

// JSON returns a JSON codec.
func JSON() Codec { return jsonCodec{} }

func (jsonCodec) ContentType() string                { return ContentJSON }
func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

// CBOR returns a canonical CBOR codec: equal values encode to equal bytes.
func CBOR() (Codec, error) {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		return nil, fmt.Errorf("cbor enc mode: %w", err)
	}
	dm, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cbor dec mode: %w", err)
	}
	return cborCodec{enc: em, dec: dm}, nil
}

func (c cborCodec) ContentType() string                { return ContentCBOR }
func (c cborCodec) Marshal(v any) ([]byte, error)      { return c.enc.Marshal(v) }
func (c cborCodec) Unmarshal(data []byte, v any) error { return c.dec.Unmarshal(data, v) }

// Registry maps content types to codecs.
type Registry struct {
	byType map[string]Codec
}

// NewRegistry returns a registry holding the JSON and CBOR codecs.
func NewRegistry() (*Registry, error) {
	r := &Registry{byType: make(map[string]Codec)}
	r.Register(JSON())
	c, err := CBOR()
	if err != nil {
		return nil, err
	}
	r.Register(c)
	return r, nil
}

// Register adds or replaces a codec.
func (r *Registry) Register(c Codec) {
	r.byType[c.ContentType()] = c
}

// Get returns the codec for a content type.
func (r *Registry) Get(contentType string) (Codec, error) {
	c, ok := r.byType[contentType]
	if !ok {
		return nil, fmt.Errorf("codec %q: %w", contentType, ErrUnknownContentType)
	}
	return c, nil
}
