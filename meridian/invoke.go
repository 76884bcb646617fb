/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"encoding/json"

	"github.com/meridiandb/meridian-go-client/meridian/aggregators"
	"github.com/meridiandb/meridian-go-client/meridian/filters"
	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
	"github.com/meridiandb/meridian-go-client/meridian/processors"
)

// keysOrFilterPayload serializes the scope of an Aggregate/InvokeAll call:
// a key list and a filter are mutually exclusive, and both empty means
// "every entry in the map".
func keysOrFilterPayload[K comparable, V any](bc *baseClient[K, V], keys []K, filter filters.Filter) (binKeys [][]byte, binFilter []byte, err error) {
	if len(keys) > 0 {
		binKeys = make([][]byte, len(keys))
		for i, k := range keys {
			if binKeys[i], err = bc.keySerializer.Serialize(k); err != nil {
				return nil, nil, err
			}
		}
		return binKeys, nil, nil
	}
	if filter != nil {
		if binFilter, err = NewSerializer[any](bc.format).Serialize(filter); err != nil {
			return nil, nil, err
		}
	}
	return nil, binFilter, nil
}

type aggregateResult struct {
	Value []byte `json:"value,omitempty"`
}

func executeAggregate[K comparable, V any, R any](ctx context.Context, bc *baseClient[K, V], keys []K, filter filters.Filter, aggr aggregators.Aggregator[R]) (*R, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	binKeys, binFilter, err := keysOrFilterPayload(bc, keys, filter)
	if err != nil {
		return nil, err
	}
	binAggregator, err := NewSerializer[any](bc.format).Serialize(aggr)
	if err != nil {
		return nil, err
	}
	var result aggregateResult
	if err := bc.call(ctx, wire.RequestAggregate, struct {
		Keys       [][]byte `json:"keys,omitempty"`
		Filter     []byte   `json:"filter,omitempty"`
		Aggregator []byte   `json:"aggregator"`
	}{Keys: binKeys, Filter: binFilter, Aggregator: binAggregator}, &result); err != nil {
		return nil, err
	}
	return NewSerializer[R](bc.format).Deserialize(result.Value)
}

// AggregateKeys runs aggr against the entries for keys. R is the
// aggregation's own result type, independent of the map's value type V — Go
// methods can't carry their own type parameters, so this and
// AggregateFilter/Aggregate below are package-level functions rather than
// NamedMap methods, exactly as the teacher exposes them.
func AggregateKeys[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], keys []K, aggr aggregators.Aggregator[R]) (*R, error) {
	return executeAggregate[K, V, R](ctx, nm.getBaseClient(), keys, nil, aggr)
}

// AggregateFilter runs aggr against every entry filter selects.
func AggregateFilter[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], filter filters.Filter, aggr aggregators.Aggregator[R]) (*R, error) {
	return executeAggregate[K, V, R](ctx, nm.getBaseClient(), nil, filter, aggr)
}

// Aggregate runs aggr against every entry in nm.
func Aggregate[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], aggr aggregators.Aggregator[R]) (*R, error) {
	return executeAggregate[K, V, R](ctx, nm.getBaseClient(), nil, nil, aggr)
}

// invokeResultPageHelper decodes a page of InvokeAll results: only the
// processor's own result (R) matters here, not the entry's key.
type invokeResultPageHelper[K comparable, V any, R any] struct {
	resultSerializer Serializer[R]
}

func (h invokeResultPageHelper[K, V, R]) decode(bc *baseClient[K, V], entry *wire.PageEntry) (R, error) {
	r, err := h.resultSerializer.Deserialize(entry.Value)
	if err != nil {
		var zero R
		return zero, err
	}
	return *r, nil
}

func executeInvokeAllFilterOrKeys[K comparable, V any, R any](ctx context.Context, bc *baseClient[K, V], keys []K, filter filters.Filter, proc processors.Processor) <-chan *StreamedValue[R] {
	ch := make(chan *StreamedValue[R])
	if err := bc.ensureUsable(); err != nil {
		go func() { ch <- &StreamedValue[R]{Err: err}; close(ch) }()
		return ch
	}

	binKeys, binFilter, err := keysOrFilterPayload(bc, keys, filter)
	if err != nil {
		go func() { ch <- &StreamedValue[R]{Err: err}; close(ch) }()
		return ch
	}
	binProcessor, err := NewSerializer[any](bc.format).Serialize(proc)
	if err != nil {
		go func() { ch <- &StreamedValue[R]{Err: err}; close(ch) }()
		return ch
	}
	payload, err := json.Marshal(struct {
		Keys      [][]byte `json:"keys,omitempty"`
		Filter    []byte   `json:"filter,omitempty"`
		Processor []byte   `json:"processor"`
	}{Keys: binKeys, Filter: binFilter, Processor: binProcessor})
	if err != nil {
		go func() { ch <- &StreamedValue[R]{Err: err}; close(ch) }()
		return ch
	}

	advancer := newPageAdvancer[K, V, R](bc, wire.RequestInvokeAll, payload, invokeResultPageHelper[K, V, R]{resultSerializer: NewSerializer[R](bc.format)})
	go func() {
		defer close(ch)
		for {
			value, err := advancer.Next(ctx)
			if err == ErrDone {
				return
			}
			if err != nil {
				ch <- &StreamedValue[R]{Err: err}
				return
			}
			ch <- &StreamedValue[R]{Value: *value}
		}
	}()
	return ch
}

// InvokeAllKeys runs proc atomically against each of keys, streaming back
// each key's own processor result.
func InvokeAllKeys[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], keys []K, proc processors.Processor) <-chan *StreamedValue[R] {
	return executeInvokeAllFilterOrKeys[K, V, R](ctx, nm.getBaseClient(), keys, nil, proc)
}

// InvokeAllFilter runs proc atomically against every entry filter selects.
func InvokeAllFilter[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], filter filters.Filter, proc processors.Processor) <-chan *StreamedValue[R] {
	return executeInvokeAllFilterOrKeys[K, V, R](ctx, nm.getBaseClient(), nil, filter, proc)
}

// InvokeAll runs proc atomically against every entry in nm.
func InvokeAll[K comparable, V, R any](ctx context.Context, nm NamedMap[K, V], proc processors.Processor) <-chan *StreamedValue[R] {
	return executeInvokeAllFilterOrKeys[K, V, R](ctx, nm.getBaseClient(), nil, nil, proc)
}
