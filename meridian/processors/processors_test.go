/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package processors

import (
	"encoding/json"
	"testing"

	"github.com/meridiandb/meridian-go-client/meridian/filters"
)

func TestConditionalPutSerializesFilterAndValue(t *testing.T) {
	f := filters.Always()
	data, err := json.Marshal(ConditionalPut(f, "new value"))
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["@class"] != conditionalPutProcessorType {
		t.Fatalf("expected @class %q, got %v", conditionalPutProcessorType, decoded["@class"])
	}
	if decoded["value"] != "new value" {
		t.Fatalf("expected value %q, got %v", "new value", decoded["value"])
	}
}

func TestWhenWrapsProcessorInConditionalProcessor(t *testing.T) {
	proc := Update("age", 31).When(filters.Always())

	data, err := json.Marshal(proc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded["@class"] != conditionalProcessorType {
		t.Fatalf("expected @class %q, got %v", conditionalProcessorType, decoded["@class"])
	}
	if _, ok := decoded["processor"]; !ok {
		t.Fatalf("expected a nested processor field, got %v", decoded)
	}
}
