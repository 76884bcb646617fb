/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package wire

import (
	"encoding/json"
	"fmt"

	"google.golang.org/grpc/encoding"
)

// ContentSubtype is registered as the gRPC call content-subtype used by
// every Meridian RPC. Registering a codec under a content-subtype is the
// documented extension point grpc-go provides for carrying non-protobuf
// payloads over an otherwise ordinary length-delimited gRPC stream; it
// lets this client avoid depending on protoc-generated message types for
// a wire schema spec.md treats as opaque.
const ContentSubtype = "meridian-json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

// jsonCodec implements google.golang.org/grpc/encoding.Codec by
// marshaling/unmarshaling with encoding/json instead of protobuf.
type jsonCodec struct{}

func (jsonCodec) Marshal(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", v, err)
	}
	return data, nil
}

func (jsonCodec) Unmarshal(data []byte, v interface{}) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

func (jsonCodec) Name() string {
	return ContentSubtype
}
