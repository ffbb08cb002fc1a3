// Package guardv1 defines the sessionguard gRPC services, their messages, and the JSON codec
// they are carried with (content-subtype "json", i.e. application/grpc+json).
package guardv1

import (
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/encoding"
)

// Name is the codec name and gRPC content-subtype.
const Name = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals messages as JSON.
type Codec struct{}

// Marshal encodes v.
func (Codec) Marshal(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("guardv1: marshal %T: %w", v, err)
	}
	return b, nil
}

// Unmarshal decodes data into v. Empty data leaves v at its zero value.
func (Codec) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("guardv1: unmarshal %T: %w", v, err)
	}
	return nil
}

// Name returns the codec name.
func (Codec) Name() string { return Name }

// CallOptions returns the call options every client call needs.
func CallOptions() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(Name)}
}

func withSubtype(opts []grpc.CallOption) []grpc.CallOption {
	return append(CallOptions(), opts...)
}
