/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package aggregators

import (
	"encoding/json"
	"testing"

	"github.com/meridiandb/meridian-go-client/meridian/extractors"
)

func TestCountSerializesClassTag(t *testing.T) {
	data, err := json.Marshal(Count())
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["@class"] != countAggregatorType {
		t.Fatalf("expected @class %q, got %v", countAggregatorType, decoded["@class"])
	}
}

func TestAndThenComposesIntoCompositeAggregator(t *testing.T) {
	combined := Count().AndThen(Count())

	data, err := json.Marshal(combined)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	members, ok := decoded["aggregators"].([]any)
	if !ok || len(members) != 2 {
		t.Fatalf("expected 2 member aggregators, got %v", decoded["aggregators"])
	}
}

func TestDistinctSerializesExtractor(t *testing.T) {
	data, err := json.Marshal(Distinct[string](extractors.Property[string]("city")))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["@class"] != distinctAggregatorType {
		t.Fatalf("expected @class %q, got %v", distinctAggregatorType, decoded["@class"])
	}
	if _, ok := decoded["extractor"]; !ok {
		t.Fatalf("expected an extractor field, got %v", decoded)
	}
}
