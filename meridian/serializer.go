/*
 * Copyright (c) 2022, 2023 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const jsonSerializationPrefix = 21

var _ Serializer[string] = JSONSerializer[string]{format: "json"}

// Serializer defines how to serialize/deserialize objects exchanged with
// the server. Implementations must be deterministic enough that
// fingerprinting a deserialized key equals fingerprinting the original,
// since the key fingerprint doubles as the client's map index (spec.md §3,
// §9 "Key equality across deserialization").
type Serializer[T any] interface {
	Serialize(object T) ([]byte, error)
	Deserialize(data []byte) (*T, error)
	Format() string
}

// NewSerializer returns a new Serializer for the given format. Only "json"
// is currently supported; any other value falls back to JSON.
func NewSerializer[T any](format string) Serializer[T] {
	return JSONSerializer[T]{format: "json"}
}

// JSONSerializer serializes data using encoding/json, prefixed with a
// single format marker byte so mixed-format deployments can distinguish
// payloads on the wire.
type JSONSerializer[T any] struct {
	format string
}

func (s JSONSerializer[T]) Serialize(object T) ([]byte, error) {
	data, err := json.Marshal(object)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 1, len(data)+1)
	out[0] = jsonSerializationPrefix
	return append(out, data...), nil
}

func (s JSONSerializer[T]) Deserialize(data []byte) (*T, error) {
	var result T
	if len(data) == 0 {
		return nil, nil
	}
	if data[0] != jsonSerializationPrefix {
		return nil, fmt.Errorf("invalid serialization prefix %v", data[0])
	}
	body := data[1:]
	if string(body) == "null" {
		return nil, nil
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (s JSONSerializer[T]) Format() string {
	return s.format
}

// fingerprint returns the deterministic textual form of a serialized key
// used as the client-side map index for key-targeted listener groups
// (spec.md §3 "Key fingerprint"). Serialize-then-hex-encode is sufficient
// because Serializer implementations are required to be deterministic.
func fingerprint(keyBytes []byte) string {
	return hex.EncodeToString(keyBytes)
}
