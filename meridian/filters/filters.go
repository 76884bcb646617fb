/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package filters describes server-side predicates used to scope
// EntrySetFilter/KeySetFilter/ValuesFilter and filter-targeted map
// listeners. A Filter's JSON shape is the wire contract with the server;
// this client never evaluates a filter itself.
package filters

import (
	"github.com/meridiandb/meridian-go-client/meridian/extractors"
)

const (
	filterPackage = "util.filter."

	allFilterType    = filterPackage + "AllFilter"
	alwaysFilterType = filterPackage + "AlwaysFilter"
	andFilterType    = filterPackage + "AndFilter"
	anyFilterType    = filterPackage + "AnyFilter"
	orFilterType     = filterPackage + "OrFilter"
	equalsFilterType = filterPackage + "EqualsFilter"
	greaterFilterType = filterPackage + "GreaterFilter"
	neverFilterType  = filterPackage + "NeverFilter"
	mapEventFilterType = filterPackage + "MapEventFilter"
)

// Filter is the common interface every server-side predicate implements.
// And/Or compose two filters into a new one, the way the server's own
// filter expression tree does.
type Filter interface {
	And(other Filter) Filter
	Or(other Filter) Filter
}

type arrayOfFilters struct {
	Type     string   `json:"@class,omitempty"`
	Filters  []Filter `json:"filters,omitempty"`
	delegate Filter
}

func newArrayOfFilters(typeName string, members []Filter, delegate Filter) *arrayOfFilters {
	return &arrayOfFilters{Type: typeName, Filters: members, delegate: delegate}
}

func (af *arrayOfFilters) And(other Filter) Filter { return And(af.delegate, other) }
func (af *arrayOfFilters) Or(other Filter) Filter  { return Or(af.delegate, other) }

type allFilter struct {
	*arrayOfFilters
}

// And returns a filter that matches only entries matching both left and
// right.
func And(left, right Filter) Filter {
	af := &allFilter{}
	af.arrayOfFilters = newArrayOfFilters(andFilterType, []Filter{left, right}, af)
	return af
}

type anyFilter struct {
	*arrayOfFilters
}

// Or returns a filter that matches entries matching either left or right.
func Or(left, right Filter) Filter {
	af := &anyFilter{}
	af.arrayOfFilters = newArrayOfFilters(orFilterType, []Filter{left, right}, af)
	return af
}

type alwaysFilter struct {
	*arrayOfFilters
}

// Always returns a filter that matches every entry. AddListener and
// AddListenerLite subscribe with it, and filter-listener calls given a nil
// filter fall back to it.
func Always() Filter {
	af := &alwaysFilter{}
	af.arrayOfFilters = newArrayOfFilters(alwaysFilterType, nil, af)
	return af
}

type neverFilter struct {
	*arrayOfFilters
}

// Never returns a filter that matches no entry.
func Never() Filter {
	nf := &neverFilter{}
	nf.arrayOfFilters = newArrayOfFilters(neverFilterType, nil, nf)
	return nf
}

type extractorFilter[T, E any] struct {
	Type      string                          `json:"@class,omitempty"`
	Extractor extractors.ValueExtractor[T, E] `json:"extractor,omitempty"`
	delegate  Filter
}

func newExtractorFilter[T, E any](typeName string, extractor extractors.ValueExtractor[T, E], delegate Filter) *extractorFilter[T, E] {
	return &extractorFilter[T, E]{Type: typeName, Extractor: extractor, delegate: delegate}
}

func (ef *extractorFilter[T, E]) And(other Filter) Filter { return And(ef.delegate, other) }
func (ef *extractorFilter[T, E]) Or(other Filter) Filter  { return Or(ef.delegate, other) }

type comparisonFilter[V any] struct {
	*extractorFilter[any, V]
	Value V `json:"value"`
}

func newComparisonFilter[V any](typeName string, extractor extractors.ValueExtractor[any, V], value V, delegate Filter) *comparisonFilter[V] {
	cf := &comparisonFilter[V]{Value: value}
	cf.extractorFilter = newExtractorFilter[any, V](typeName, extractor, delegate)
	return cf
}

type equalsFilter[V any] struct {
	*comparisonFilter[V]
}

// Equal returns a filter that matches entries where extractor's value
// equals value.
func Equal[V any](extractor extractors.ValueExtractor[any, V], value V) Filter {
	ef := &equalsFilter[V]{}
	ef.comparisonFilter = newComparisonFilter(equalsFilterType, extractor, value, ef)
	return ef
}

type greaterFilter[V any] struct {
	*comparisonFilter[V]
}

// Greater returns a filter that matches entries where extractor's value
// is greater than value.
func Greater[V any](extractor extractors.ValueExtractor[any, V], value V) Filter {
	gf := &greaterFilter[V]{}
	gf.comparisonFilter = newComparisonFilter(greaterFilterType, extractor, value, gf)
	return gf
}

// MapEventMask selects which kinds of MapEvent a filter-targeted listener
// should receive.
type MapEventMask int

const (
	MaskInserted MapEventMask = 0x0001
	MaskUpdated  MapEventMask = 0x0002
	MaskDeleted  MapEventMask = 0x0004
	MaskAll      MapEventMask = MaskInserted | MaskUpdated | MaskDeleted
)

// MapEventFilter wraps an ordinary Filter so it additionally restricts
// which MapEvent kinds are delivered to a filter-targeted listener.
type MapEventFilter struct {
	Type   string `json:"@class,omitempty"`
	Filter Filter `json:"filter,omitempty"`
	Mask   MapEventMask `json:"mask"`
}

// NewEventFilterFromFilter wraps filter in a MapEventFilter requesting all
// event kinds; a nil filter becomes Always(). Filter listeners registered
// through a NamedMap send their filter as given and are not wrapped.
func NewEventFilterFromFilter(filter Filter) *MapEventFilter {
	filterLocal := filter
	if filterLocal == nil {
		filterLocal = Always()
	}
	return &MapEventFilter{Type: mapEventFilterType, Filter: filterLocal, Mask: MaskAll}
}
