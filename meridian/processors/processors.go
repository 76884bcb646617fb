/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package processors describes entry-processing agents sent to the server
// for InvokeAll: atomic read-modify-write operations run against one or
// more entries in place. The agent's logic is entirely server-side; the
// client only serializes a description of which agent to run.
package processors

import (
	"github.com/meridiandb/meridian-go-client/meridian/filters"
)

const (
	processorPrefix = "processor."

	conditionalProcessorType    = processorPrefix + "ConditionalProcessor"
	conditionalPutProcessorType = processorPrefix + "ConditionalPut"
	extractorProcessorType      = processorPrefix + "ExtractorProcessor"
	updateProcessorType         = processorPrefix + "UpdaterProcessor"
)

// Processor is a server-side agent invoked atomically against one or more
// entries via NamedMap.InvokeAll.
type Processor interface {
	// When creates a Processor that executes only if filter matches the
	// target entry.
	When(filter filters.Filter) Processor
}

type abstractProcessor struct {
	Type     string `json:"@class,omitempty"`
	delegate Processor
}

func newAbstractProcessor(typeName string, delegate Processor) *abstractProcessor {
	return &abstractProcessor{Type: typeName, delegate: delegate}
}

func (ap *abstractProcessor) When(filter filters.Filter) Processor {
	return newConditionalProcessor(filter, ap.delegate)
}

type conditionalProcessor struct {
	*abstractProcessor
	Filter    filters.Filter `json:"filter,omitempty"`
	Processor Processor      `json:"processor,omitempty"`
}

func newConditionalProcessor(filter filters.Filter, proc Processor) *conditionalProcessor {
	cp := &conditionalProcessor{Filter: filter, Processor: proc}
	cp.abstractProcessor = newAbstractProcessor(conditionalProcessorType, cp)
	return cp
}

type conditionalPutProcessor[V any] struct {
	*abstractProcessor
	Filter filters.Filter `json:"filter,omitempty"`
	Value  V              `json:"value,omitempty"`
}

// ConditionalPut puts value into an entry only if filter matches its
// current state, enforcing optimistic concurrency without an explicit
// lock round trip.
func ConditionalPut[V any](filter filters.Filter, value V) Processor {
	cp := &conditionalPutProcessor[V]{Filter: filter, Value: value}
	cp.abstractProcessor = newAbstractProcessor(conditionalPutProcessorType, cp)
	return cp
}

type extractorProcessor[E any] struct {
	*abstractProcessor
	Name string `json:"name,omitempty"`
}

// Extractor returns a processor that extracts the named property from an
// entry's value without fetching the whole value.
func Extractor[E any](property string) Processor {
	ep := &extractorProcessor[E]{Name: property}
	ep.abstractProcessor = newAbstractProcessor(extractorProcessorType, ep)
	return ep
}

type updaterProcessor[V any] struct {
	*abstractProcessor
	Name  string `json:"name,omitempty"`
	Value V      `json:"value,omitempty"`
}

// Update modifies the named property of an entry's value to value,
// returning whether the entry was present.
func Update[V any](property string, value V) Processor {
	up := &updaterProcessor[V]{Name: property, Value: value}
	up.abstractProcessor = newAbstractProcessor(updateProcessorType, up)
	return up
}
