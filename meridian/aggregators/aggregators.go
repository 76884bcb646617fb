/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package aggregators describes server-side reductions run over the entries
// of a NamedMap/NamedCache via Aggregate. Like filters/extractors/
// processors, an aggregator is a serialization-only descriptor: the actual
// reduction runs on the server.
package aggregators

import (
	"github.com/meridiandb/meridian-go-client/meridian/extractors"
)

const (
	aggregatorPackage = "aggregator."

	countAggregatorType    = aggregatorPackage + "Count"
	distinctAggregatorType = aggregatorPackage + "DistinctValues"
)

// Aggregator reduces the entries a NamedMap/NamedCache Aggregate call is
// scoped to (by key set or filter) into a single result of type R.
type Aggregator[R any] interface {
	AndThen(next Aggregator[R]) Aggregator[R]
}

type abstractAggregator[R any] struct {
	Type     string `json:"@class,omitempty"`
	delegate Aggregator[R]
}

func newAbstractAggregator[R any](typeName string, delegate Aggregator[R]) *abstractAggregator[R] {
	return &abstractAggregator[R]{Type: typeName, delegate: delegate}
}

func (aa *abstractAggregator[R]) AndThen(next Aggregator[R]) Aggregator[R] {
	return newCompositeAggregator(aa.delegate, next)
}

type compositeAggregator[R any] struct {
	Aggregators []Aggregator[R] `json:"aggregators,omitempty"`
}

func newCompositeAggregator[R any](aggregators ...Aggregator[R]) *compositeAggregator[R] {
	return &compositeAggregator[R]{Aggregators: aggregators}
}

func (ca *compositeAggregator[R]) AndThen(next Aggregator[R]) Aggregator[R] {
	return newCompositeAggregator(append(append([]Aggregator[R]{}, ca.Aggregators...), next)...)
}

type countAggregator struct {
	*abstractAggregator[int64]
}

// Count returns an aggregator that counts the entries it is run against.
func Count() Aggregator[int64] {
	ca := &countAggregator{}
	ca.abstractAggregator = newAbstractAggregator[int64](countAggregatorType, ca)
	return ca
}

type distinctAggregator[E, R any] struct {
	*abstractAggregator[[]R]
	Extractor extractors.ValueExtractor[any, E] `json:"extractor,omitempty"`
}

// Distinct returns an aggregator that collects the distinct values
// extractor pulls out of each entry it is run against.
func Distinct[R any](extractor extractors.ValueExtractor[any, R]) Aggregator[[]R] {
	da := &distinctAggregator[R, R]{Extractor: extractor}
	da.abstractAggregator = newAbstractAggregator[[]R](distinctAggregatorType, da)
	return da
}
