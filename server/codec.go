package server

import (
	"connectrpc.com/connect"
	json "github.com/goccy/go-json"

	"github.com/chazu/jasm/vm"
)

// Codec names as they appear in Connect content types.
const (
	CodecCBOR = "cbor"
	CodecJSON = "json"
)

// cborCodec carries messages as canonical CBOR.
type cborCodec struct{}

func (cborCodec) Name() string { return CodecCBOR }

func (cborCodec) Marshal(msg any) ([]byte, error) {
	return vm.MarshalCBOR(msg)
}

func (cborCodec) Unmarshal(data []byte, msg any) error {
	return vm.UnmarshalCBOR(data, msg)
}

// jsonCodec replaces Connect's protojson codec, which only accepts
// protobuf messages.
type jsonCodec struct{}

func (jsonCodec) Name() string { return CodecJSON }

func (jsonCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (jsonCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON makes a Client speak JSON instead of CBOR.
func WithJSON() connect.ClientOption {
	return connect.WithCodec(jsonCodec{})
}

func codecOptions() []connect.HandlerOption {
	return []connect.HandlerOption{
		connect.WithCodec(cborCodec{}),
		connect.WithCodec(jsonCodec{}),
	}
}
