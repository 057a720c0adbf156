package commsutil

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// Content types carried in the NATS Content-Type header.
const (
	HeaderContentType = "Content-Type"
	ContentTypeJSON   = "application/json"
	ContentTypeCBOR   = "application/cbor"
)

// Codec encodes and decodes bridge payloads.
type Codec interface {
	ContentType() string
	Encode(v interface{}) ([]byte, error)
	Decode(data []byte, v interface{}) error
}

type jsonCodec struct{}

func (jsonCodec) ContentType() string                     { return ContentTypeJSON }
func (jsonCodec) Encode(v interface{}) ([]byte, error)    { return json.Marshal(v) }
func (jsonCodec) Decode(data []byte, v interface{}) error { return json.Unmarshal(data, v) }

type cborCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func (c cborCodec) ContentType() string                     { return ContentTypeCBOR }
func (c cborCodec) Encode(v interface{}) ([]byte, error)    { return c.enc.Marshal(v) }
func (c cborCodec) Decode(data []byte, v interface{}) error { return c.dec.Unmarshal(data, v) }

// JSON is the default codec.
var JSON Codec = jsonCodec{}

// CBOR decodes nested maps as map[string]interface{} so arguments look the
// same to handlers whichever codec carried them.
var CBOR Codec = newCBORCodec()

func newCBORCodec() Codec {
	enc, err := cbor.EncOptions{}.EncMode()
	if err != nil {
		panic(err)
	}
	dec, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]interface{}(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return cborCodec{enc: enc, dec: dec}
}

// CodecFor returns the codec for a content type or codec name. Empty selects JSON.
func CodecFor(name string) (Codec, error) {
	switch name {
	case "", "json", ContentTypeJSON:
		return JSON, nil
	case "cbor", ContentTypeCBOR:
		return CBOR, nil
	default:
		return nil, fmt.Errorf("commsutil:codec - unknown codec %q", name)
	}
}

// EncodePayload serializes a value to JSON bytes.
func EncodePayload(v interface{}) ([]byte, error) {
	return JSON.Encode(v)
}

// DecodePayload deserializes JSON bytes into the given target.
func DecodePayload(data []byte, v interface{}) error {
	return JSON.Decode(data, v)
}
