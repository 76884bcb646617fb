/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"encoding/json"

	"github.com/meridiandb/meridian-go-client/meridian/filters"
	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

type keyPageHelper[K comparable, V any] struct{}

func (keyPageHelper[K, V]) decode(bc *baseClient[K, V], entry *wire.PageEntry) (K, error) {
	k, err := bc.keySerializer.Deserialize(entry.Key)
	if err != nil {
		var zero K
		return zero, err
	}
	return *k, nil
}

type valuePageHelper[K comparable, V any] struct{}

func (valuePageHelper[K, V]) decode(bc *baseClient[K, V], entry *wire.PageEntry) (V, error) {
	v, err := bc.valueSerializer.Deserialize(entry.Value)
	if err != nil {
		var zero V
		return zero, err
	}
	return *v, nil
}

type entryPageHelper[K comparable, V any] struct{}

// decode builds a lazy Entry directly from the wire bytes; key and value
// deserialization is deferred to Entry.Key()/Entry.Value() (spec.md §4.3
// "EntrySet ... yields a NamedCacheEntry that lazily deserializes key and
// value on first access").
func (entryPageHelper[K, V]) decode(bc *baseClient[K, V], entry *wire.PageEntry) (Entry[K, V], error) {
	return newEntry(bc, entry.Key, entry.Value), nil
}

func pagePayload(filterBytes []byte) []byte {
	if len(filterBytes) == 0 {
		return nil
	}
	body, _ := json.Marshal(struct {
		Filter []byte `json:"filter,omitempty"`
	}{Filter: filterBytes})
	return body
}

func serializedFilterOrAlways[K comparable, V any](bc *baseClient[K, V], filter filters.Filter) ([]byte, error) {
	if filter == nil {
		filter = filters.Always()
	}
	return NewSerializer[any](bc.format).Serialize(any(filter))
}

// executeKeySet drains every key of the map through a pageAdvancer, pushing
// results to ch as they arrive (spec.md "Remote set view: KeySet").
func executeKeySet[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) <-chan *StreamedKey[K] {
	return streamKeys(ctx, bc, wire.RequestNextKeyPage, nil)
}

func executeKeySetFilter[K comparable, V any](ctx context.Context, bc *baseClient[K, V], filter filters.Filter) <-chan *StreamedKey[K] {
	filterBytes, err := serializedFilterOrAlways(bc, filter)
	if err != nil {
		ch := make(chan *StreamedKey[K], 1)
		ch <- &StreamedKey[K]{Err: err}
		close(ch)
		return ch
	}
	return streamKeys(ctx, bc, wire.RequestKeySetFilter, pagePayload(filterBytes))
}

func streamKeys[K comparable, V any](ctx context.Context, bc *baseClient[K, V], reqType wire.RequestType, payload []byte) <-chan *StreamedKey[K] {
	ch := make(chan *StreamedKey[K])
	if err := bc.ensureUsable(); err != nil {
		go func() { ch <- &StreamedKey[K]{Err: err}; close(ch) }()
		return ch
	}

	advancer := newPageAdvancer[K, V, K](bc, reqType, payload, keyPageHelper[K, V]{})
	go func() {
		defer close(ch)
		for {
			key, err := advancer.Next(ctx)
			if err == ErrDone {
				return
			}
			if err != nil {
				ch <- &StreamedKey[K]{Err: err}
				return
			}
			ch <- &StreamedKey[K]{Key: *key}
		}
	}()
	return ch
}

// executeEntrySet drains every entry of the map through a pageAdvancer
// (spec.md "Remote set view: EntrySet").
func executeEntrySet[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) <-chan *StreamedEntry[K, V] {
	return streamEntries(ctx, bc, wire.RequestNextEntryPage, nil)
}

func executeEntrySetFilter[K comparable, V any](ctx context.Context, bc *baseClient[K, V], filter filters.Filter) <-chan *StreamedEntry[K, V] {
	filterBytes, err := serializedFilterOrAlways(bc, filter)
	if err != nil {
		ch := make(chan *StreamedEntry[K, V], 1)
		ch <- &StreamedEntry[K, V]{Err: err}
		close(ch)
		return ch
	}
	return streamEntries(ctx, bc, wire.RequestEntrySetFilter, pagePayload(filterBytes))
}

func streamEntries[K comparable, V any](ctx context.Context, bc *baseClient[K, V], reqType wire.RequestType, payload []byte) <-chan *StreamedEntry[K, V] {
	ch := make(chan *StreamedEntry[K, V])
	if err := bc.ensureUsable(); err != nil {
		go func() { ch <- &StreamedEntry[K, V]{Err: err}; close(ch) }()
		return ch
	}

	advancer := newPageAdvancer[K, V, Entry[K, V]](bc, reqType, payload, entryPageHelper[K, V]{})
	go func() {
		defer close(ch)
		for {
			entry, err := advancer.Next(ctx)
			if err == ErrDone {
				return
			}
			if err != nil {
				ch <- &StreamedEntry[K, V]{Err: err}
				return
			}
			ch <- &StreamedEntry[K, V]{Entry: *entry}
		}
	}()
	return ch
}

// executeValues drains every value of the map through a pageAdvancer
// (spec.md "Remote set view: ValueSet"). Deletion through this view is
// unsupported (ErrUnsupported), matching spec.md's stated asymmetry between
// the three set views.
func executeValues[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) <-chan *StreamedValue[V] {
	return streamValues(ctx, bc, wire.RequestNextEntryPage, nil)
}

func executeValuesFilter[K comparable, V any](ctx context.Context, bc *baseClient[K, V], filter filters.Filter) <-chan *StreamedValue[V] {
	filterBytes, err := serializedFilterOrAlways(bc, filter)
	if err != nil {
		ch := make(chan *StreamedValue[V], 1)
		ch <- &StreamedValue[V]{Err: err}
		close(ch)
		return ch
	}
	return streamValues(ctx, bc, wire.RequestValuesFilter, pagePayload(filterBytes))
}

func streamValues[K comparable, V any](ctx context.Context, bc *baseClient[K, V], reqType wire.RequestType, payload []byte) <-chan *StreamedValue[V] {
	ch := make(chan *StreamedValue[V])
	if err := bc.ensureUsable(); err != nil {
		go func() { ch <- &StreamedValue[V]{Err: err}; close(ch) }()
		return ch
	}

	advancer := newPageAdvancer[K, V, V](bc, reqType, payload, valuePageHelper[K, V]{})
	go func() {
		defer close(ch)
		for {
			value, err := advancer.Next(ctx)
			if err == ErrDone {
				return
			}
			if err != nil {
				ch <- &StreamedValue[V]{Err: err}
				return
			}
			ch <- &StreamedValue[V]{Value: *value}
		}
	}()
	return ch
}

// executeGetAll fetches each of keys individually, preserving the
// channel-based streaming contract the set views use even though no
// server-side pagination is involved (spec.md places multi-get out of the
// paged-iterator's scope).
func executeGetAll[K comparable, V any](ctx context.Context, bc *baseClient[K, V], keys []K) <-chan *StreamedEntry[K, V] {
	ch := make(chan *StreamedEntry[K, V])
	if err := bc.ensureUsable(); err != nil {
		go func() { ch <- &StreamedEntry[K, V]{Err: err}; close(ch) }()
		return ch
	}

	go func() {
		defer close(ch)
		for _, key := range keys {
			value, err := executeGet(ctx, bc, key)
			if err != nil {
				ch <- &StreamedEntry[K, V]{Err: err}
				return
			}
			if value == nil {
				continue
			}
			ch <- &StreamedEntry[K, V]{Entry: entryOf(key, *value)}
		}
	}()
	return ch
}

// countStreamed drains ch, reporting the first error encountered or the
// total item count. Used by Size() on a filtered view, where the wire
// protocol has no dedicated filtered-count request and the count can only
// be obtained by iterating the view itself.
func countStreamed[T any](ch <-chan *T, errOf func(*T) error) (int, error) {
	count := 0
	for msg := range ch {
		if err := errOf(msg); err != nil {
			return 0, err
		}
		count++
	}
	return count, nil
}

// KeySet is a live view over every key in a NamedMap, or over the subset a
// filter selects (spec.md §4.3 "KeySet"). Obtain one via NamedMap.KeySet or
// NamedMap.KeySetFilter.
type KeySet[K comparable, V any] struct {
	bc     *baseClient[K, V]
	filter filters.Filter
}

func newKeySet[K comparable, V any](bc *baseClient[K, V], filter filters.Filter) *KeySet[K, V] {
	return &KeySet[K, V]{bc: bc, filter: filter}
}

// Drain streams every key in this view. Synchronous iteration over the
// view is not supported; the channel is the only way to consume it.
func (ks *KeySet[K, V]) Drain(ctx context.Context) <-chan *StreamedKey[K] {
	if ks.filter == nil {
		return executeKeySet(ctx, ks.bc)
	}
	return executeKeySetFilter(ctx, ks.bc, ks.filter)
}

// Size returns the number of keys in this view. An unfiltered KeySet maps
// directly to the server's size RPC; a filtered one has to be counted by
// draining it, since the wire protocol has no filtered-count request.
func (ks *KeySet[K, V]) Size(ctx context.Context) (int, error) {
	if ks.filter == nil {
		return executeSize(ctx, ks.bc)
	}
	return countStreamed(ks.Drain(ctx), func(m *StreamedKey[K]) error { return m.Err })
}

// Clear removes every key in this view from the map.
func (ks *KeySet[K, V]) Clear(ctx context.Context) error {
	if ks.filter == nil {
		return executeClear(ctx, ks.bc)
	}
	for msg := range ks.Drain(ctx) {
		if msg.Err != nil {
			return msg.Err
		}
		if _, err := executeRemove(ctx, ks.bc, msg.Key); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key from the map, reporting whether the server held a
// prior value for it (spec.md §4.3 "KeySet: remote remove-by-key").
func (ks *KeySet[K, V]) Delete(ctx context.Context, key K) (bool, error) {
	prev, err := executeRemove(ctx, ks.bc, key)
	if err != nil {
		return false, err
	}
	return prev != nil, nil
}

// EntrySet is a live view over every entry in a NamedMap, or over the
// subset a filter selects (spec.md §4.3 "EntrySet"). Obtain one via
// NamedMap.EntrySet or NamedMap.EntrySetFilter.
type EntrySet[K comparable, V any] struct {
	bc     *baseClient[K, V]
	filter filters.Filter
}

func newEntrySet[K comparable, V any](bc *baseClient[K, V], filter filters.Filter) *EntrySet[K, V] {
	return &EntrySet[K, V]{bc: bc, filter: filter}
}

// Drain streams every entry in this view.
func (es *EntrySet[K, V]) Drain(ctx context.Context) <-chan *StreamedEntry[K, V] {
	if es.filter == nil {
		return executeEntrySet(ctx, es.bc)
	}
	return executeEntrySetFilter(ctx, es.bc, es.filter)
}

// Size returns the number of entries in this view.
func (es *EntrySet[K, V]) Size(ctx context.Context) (int, error) {
	if es.filter == nil {
		return executeSize(ctx, es.bc)
	}
	return countStreamed(es.Drain(ctx), func(m *StreamedEntry[K, V]) error { return m.Err })
}

// Clear removes every entry in this view from the map, matching each
// remove against the value this view observed it holding.
func (es *EntrySet[K, V]) Clear(ctx context.Context) error {
	if es.filter == nil {
		return executeClear(ctx, es.bc)
	}
	for msg := range es.Drain(ctx) {
		if msg.Err != nil {
			return msg.Err
		}
		key, err := msg.Entry.Key()
		if err != nil {
			return err
		}
		value, err := msg.Entry.Value()
		if err != nil {
			return err
		}
		if _, err := executeRemoveMapping(ctx, es.bc, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the (key, value) mapping conditionally: the entry is only
// removed if the server's current value for key still equals value
// (spec.md §4.3 "EntrySet: remote conditional remove matching both key and
// value").
func (es *EntrySet[K, V]) Delete(ctx context.Context, key K, value V) (bool, error) {
	return executeRemoveMapping(ctx, es.bc, key, value)
}

// ValueSet is a live view over every value in a NamedMap, or over the
// subset a filter selects (spec.md §4.3 "ValueSet"). Obtain one via
// NamedMap.Values or NamedMap.ValuesFilter. Unlike KeySet and EntrySet,
// entries can't be identified by value alone, so Delete always fails with
// ErrUnsupported (spec.md §4.3 "ValueSet: fails with UnsupportedOperation").
type ValueSet[K comparable, V any] struct {
	bc     *baseClient[K, V]
	filter filters.Filter
}

func newValueSet[K comparable, V any](bc *baseClient[K, V], filter filters.Filter) *ValueSet[K, V] {
	return &ValueSet[K, V]{bc: bc, filter: filter}
}

// Drain streams every value in this view.
func (vs *ValueSet[K, V]) Drain(ctx context.Context) <-chan *StreamedValue[V] {
	if vs.filter == nil {
		return executeValues(ctx, vs.bc)
	}
	return executeValuesFilter(ctx, vs.bc, vs.filter)
}

// Size returns the number of values in this view.
func (vs *ValueSet[K, V]) Size(ctx context.Context) (int, error) {
	if vs.filter == nil {
		return executeSize(ctx, vs.bc)
	}
	return countStreamed(vs.Drain(ctx), func(m *StreamedValue[V]) error { return m.Err })
}

// Clear removes every value from the map when this view is unfiltered. A
// filtered ValueSet can't identify which entries to remove by value alone,
// so it returns ErrUnsupported, matching Delete's restriction.
func (vs *ValueSet[K, V]) Clear(ctx context.Context) error {
	if vs.filter == nil {
		return executeClear(ctx, vs.bc)
	}
	return ErrUnsupported
}

// Delete always fails: a value alone doesn't identify which entry to
// remove.
func (vs *ValueSet[K, V]) Delete(ctx context.Context, value V) error {
	return ErrUnsupported
}
