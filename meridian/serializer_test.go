/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"reflect"
	"testing"
)

func TestJSONSerializerRoundTrip(t *testing.T) {
	type person struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}

	testRoundTrip(t, "hello")
	testRoundTrip(t, 123)
	testRoundTrip(t, 123.456)
	testRoundTrip(t, true)
	testRoundTrip(t, person{ID: 1, Name: "Alice"})
	testRoundTrip(t, []string{"a", "b", "c"})
	testRoundTrip(t, map[string]int{"a": 1, "b": 2})
}

func testRoundTrip[V any](t *testing.T, v V) {
	t.Helper()
	serializer := NewSerializer[V]("json")

	data, err := serializer.Serialize(v)
	if err != nil {
		t.Fatalf("Serialize failed for %#v: %v", v, err)
	}

	result, err := serializer.Deserialize(data)
	if err != nil {
		t.Fatalf("Deserialize failed for %#v: %v", v, err)
	}

	if !reflect.DeepEqual(*result, v) {
		t.Fatalf("expected %#v, got %#v", v, *result)
	}
}

func TestJSONSerializerNilPayload(t *testing.T) {
	serializer := NewSerializer[string]("json")

	result, err := serializer.Deserialize(nil)
	if err != nil {
		t.Fatalf("Deserialize(nil) returned error: %v", err)
	}
	if result != nil {
		t.Fatalf("expected nil result for empty payload, got %#v", *result)
	}
}

func TestJSONSerializerBadPrefix(t *testing.T) {
	serializer := NewSerializer[string]("json")

	_, err := serializer.Deserialize([]byte{0x00, 'x'})
	if err == nil {
		t.Fatal("expected an error for a mismatched serialization prefix")
	}
}

func TestFingerprintDeterministic(t *testing.T) {
	serializer := NewSerializer[int]("json")

	a, err := serializer.Serialize(42)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	b, err := serializer.Serialize(42)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}

	if fingerprint(a) != fingerprint(b) {
		t.Fatalf("expected fingerprints of identically-serialized keys to match")
	}

	c, err := serializer.Serialize(43)
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if fingerprint(a) == fingerprint(c) {
		t.Fatalf("expected fingerprints of distinct keys to differ")
	}
}
