package remote

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

// Codec encodes and decodes the JSON bodies exchanged with the config
// service. Two implementations exist: a fast json-iterator codec and
// the pure standard-library fallback. Both produce UTF-8 JSON bytes, so
// no caller ever branches on which codec is active.
type Codec interface {
	// Name identifies the codec in logs.
	Name() string

	// Marshal encodes a value to JSON bytes.
	Marshal(v any) ([]byte, error)

	// Unmarshal decodes JSON bytes into v.
	Unmarshal(data []byte, v any) error
}

// fastCodec wraps json-iterator in standard-library compatible mode.
type fastCodec struct {
	api jsoniter.API
}

// NewFastCodec returns the json-iterator backed codec. This is the
// default.
func NewFastCodec() Codec {
	return &fastCodec{api: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (c *fastCodec) Name() string { return "jsoniter" }

func (c *fastCodec) Marshal(v any) ([]byte, error) {
	return c.api.Marshal(v)
}

func (c *fastCodec) Unmarshal(data []byte, v any) error {
	return c.api.Unmarshal(data, v)
}

// stdCodec is the encoding/json fallback.
type stdCodec struct{}

// NewStdCodec returns the standard-library codec.
func NewStdCodec() Codec {
	return stdCodec{}
}

func (stdCodec) Name() string { return "encoding/json" }

func (stdCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (stdCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
