/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package extractors describes how to pull a named property out of a
// server-held value. An extractor never runs client-side: the client only
// serializes the descriptor so the server can interpret it against its
// own copy of the value (spec.md treats the Filter/Extractor catalog as
// an opaque server-interpreted expression language).
package extractors

const (
	extractorPackage = "extractor."

	universalExtractorType = extractorPackage + "UniversalExtractor"
	identityExtractorType  = extractorPackage + "IdentityExtractor"
)

// ValueExtractor extracts a value of type E from an object of type T. T is
// always `any` on the client: extraction happens server-side, not here.
type ValueExtractor[T, E any] interface {
	Extract(obj T) (E, error)
}

type abstractExtractor struct {
	Type string `json:"@class,omitempty"`
	Name string `json:"name,omitempty"`
}

type universalExtractor[T, E any] struct {
	abstractExtractor
}

// Extract() is a no-op: the server performs the actual extraction based on
// Name.
func (ue *universalExtractor[T, E]) Extract(_ T) (E, error) {
	var zero E
	return zero, nil
}

// Property returns a ValueExtractor that extracts the named property from
// whatever value it is applied to.
func Property[E any](name string) ValueExtractor[any, E] {
	return &universalExtractor[any, E]{abstractExtractor{Type: universalExtractorType, Name: name}}
}

type identityExtractor[T, E any] struct {
	abstractExtractor
}

func (ue *identityExtractor[T, E]) Extract(_ T) (E, error) {
	var zero E
	return zero, nil
}

// Identity returns a ValueExtractor that extracts the entry's value
// itself, unchanged.
func Identity[V any]() ValueExtractor[any, V] {
	return &identityExtractor[any, V]{abstractExtractor{Type: identityExtractorType}}
}
