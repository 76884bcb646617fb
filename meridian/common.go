/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// baseClient holds the state shared by a NamedMap and a NamedCache: the
// session it was obtained from, its serializers, and the listener-group
// indexes the events manager dispatches into.
type baseClient[K comparable, V any] struct {
	session         *Session
	name            string
	format          string
	keySerializer   Serializer[K]
	valueSerializer Serializer[V]
	requests        *requestFactory[K, V]
	events          *eventsManager[K, V]

	mutex     sync.RWMutex
	destroyed bool
	released  bool

	// self points back at the NamedMap/NamedCache facade built on top of
	// this baseClient, so the events manager can stamp MapEvent.Source()
	// without a circular constructor dependency.
	self NamedMap[K, V]

	lifecycleListeners []MapLifecycleListener[K, V]
}

func (bc *baseClient[K, V]) setSelf(nm NamedMap[K, V]) {
	bc.self = nm
}

func newBaseClient[K comparable, V any](session *Session, name string) *baseClient[K, V] {
	bc := &baseClient[K, V]{
		session:         session,
		name:            name,
		format:          session.opts.Format,
		keySerializer:   NewSerializer[K](session.opts.Format),
		valueSerializer: NewSerializer[V](session.opts.Format),
	}
	bc.requests = newRequestFactory(bc)
	bc.events = newEventsManager(bc)
	return bc
}

// ensureUsable returns ErrPrecondition if the session is closed, or if this
// map has already been destroyed or released.
func (bc *baseClient[K, V]) ensureUsable() error {
	bc.mutex.RLock()
	defer bc.mutex.RUnlock()

	if bc.session.IsClosed() {
		return wrapPrecondition("session %s is closed", bc.session.ID())
	}
	if bc.destroyed {
		return wrapPrecondition("map %q has been destroyed", bc.name)
	}
	if bc.released {
		return wrapPrecondition("map %q has been released", bc.name)
	}
	return nil
}

func (bc *baseClient[K, V]) addLifecycleListener(listener MapLifecycleListener[K, V]) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	for _, l := range bc.lifecycleListeners {
		if l == listener {
			return
		}
	}
	bc.lifecycleListeners = append(bc.lifecycleListeners, listener)
}

func (bc *baseClient[K, V]) removeLifecycleListener(listener MapLifecycleListener[K, V]) {
	bc.mutex.Lock()
	defer bc.mutex.Unlock()
	for i, l := range bc.lifecycleListeners {
		if l == listener {
			bc.lifecycleListeners = append(bc.lifecycleListeners[:i], bc.lifecycleListeners[i+1:]...)
			return
		}
	}
}

func (bc *baseClient[K, V]) notifyLifecycle(nm NamedMap[K, V], eventType MapLifecycleEventType) {
	bc.mutex.RLock()
	listeners := append([]MapLifecycleListener[K, V](nil), bc.lifecycleListeners...)
	bc.mutex.RUnlock()

	event := newMapLifecycleEvent(nm, eventType)
	for _, l := range listeners {
		l.getEmitter().emit(eventType, event)
	}
}

// call issues a unary request and unmarshals the response payload into out
// (if out is non-nil). ensureUsable is the caller's responsibility.
func (bc *baseClient[K, V]) call(ctx context.Context, reqType wire.RequestType, payload any, out any) error {
	newCtx, cancel := bc.session.ensureContext(ctx)
	if cancel != nil {
		defer cancel()
	}

	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return err
		}
	}

	env := bc.requests.unary(reqType, body)

	resp, err := bc.session.client.Call(newCtx, env)
	if err != nil {
		return wrapTransport(err)
	}
	if resp.Err != "" {
		return wrapProtocol("%s", resp.Err)
	}
	if out == nil {
		return nil
	}
	if len(resp.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Payload, out)
}

// valueResult is the wire shape of every operation that returns an
// optional V: Present distinguishes "no previous value" from "previous
// value deserializes to the zero value".
type valueResult struct {
	Value   []byte `json:"value,omitempty"`
	Present bool   `json:"present"`
}

func (bc *baseClient[K, V]) decodeOptionalValue(r valueResult) (*V, error) {
	if !r.Present {
		return nil, nil
	}
	return bc.valueSerializer.Deserialize(r.Value)
}

func executeGet[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K) (*V, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return nil, err
	}
	var result valueResult
	if err := bc.call(ctx, wire.RequestGet, struct {
		Key []byte `json:"key"`
	}{Key: keyBytes}, &result); err != nil {
		return nil, err
	}
	return bc.decodeOptionalValue(result)
}

func executeGetOrDefault[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, def V) (*V, error) {
	value, err := executeGet(ctx, bc, key)
	if err != nil {
		return nil, err
	}
	if value != nil {
		return value, nil
	}
	return &def, nil
}

func executePut[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, value V, ttl time.Duration) (*V, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return nil, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return nil, err
	}
	var result valueResult
	reqType := wire.RequestPut
	if ttl > 0 {
		reqType = wire.RequestPutWithExpiry
	}
	if err := bc.call(ctx, reqType, struct {
		Key       []byte `json:"key"`
		Value     []byte `json:"value"`
		TTLMillis int64  `json:"ttlMillis,omitempty"`
	}{Key: keyBytes, Value: valueBytes, TTLMillis: ttl.Milliseconds()}, &result); err != nil {
		return nil, err
	}
	return bc.decodeOptionalValue(result)
}

func executePutIfAbsent[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, value V) (*V, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return nil, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return nil, err
	}
	var result valueResult
	if err := bc.call(ctx, wire.RequestPutIfAbsent, struct {
		Key   []byte `json:"key"`
		Value []byte `json:"value"`
	}{Key: keyBytes, Value: valueBytes}, &result); err != nil {
		return nil, err
	}
	return bc.decodeOptionalValue(result)
}

func executePutAll[K comparable, V any](ctx context.Context, bc *baseClient[K, V], entries map[K]V, ttl time.Duration) error {
	if err := bc.ensureUsable(); err != nil {
		return err
	}
	type kv struct {
		Key   []byte `json:"key"`
		Value []byte `json:"value"`
	}
	pairs := make([]kv, 0, len(entries))
	for k, v := range entries {
		keyBytes, err := bc.keySerializer.Serialize(k)
		if err != nil {
			return err
		}
		valueBytes, err := bc.valueSerializer.Serialize(v)
		if err != nil {
			return err
		}
		pairs = append(pairs, kv{Key: keyBytes, Value: valueBytes})
	}
	return bc.call(ctx, wire.RequestPutAll, struct {
		Entries   []kv  `json:"entries"`
		TTLMillis int64 `json:"ttlMillis,omitempty"`
	}{Entries: pairs, TTLMillis: ttl.Milliseconds()}, nil)
}

func executeRemove[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K) (*V, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return nil, err
	}
	var result valueResult
	if err := bc.call(ctx, wire.RequestRemove, struct {
		Key []byte `json:"key"`
	}{Key: keyBytes}, &result); err != nil {
		return nil, err
	}
	return bc.decodeOptionalValue(result)
}

func executeRemoveMapping[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, value V) (bool, error) {
	if err := bc.ensureUsable(); err != nil {
		return false, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return false, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return false, err
	}
	var result boolResult
	if err := bc.call(ctx, wire.RequestRemoveMapping, struct {
		Key   []byte `json:"key"`
		Value []byte `json:"value"`
	}{Key: keyBytes, Value: valueBytes}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

func executeReplace[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, value V) (*V, error) {
	if err := bc.ensureUsable(); err != nil {
		return nil, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return nil, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return nil, err
	}
	var result valueResult
	if err := bc.call(ctx, wire.RequestReplace, struct {
		Key   []byte `json:"key"`
		Value []byte `json:"value"`
	}{Key: keyBytes, Value: valueBytes}, &result); err != nil {
		return nil, err
	}
	return bc.decodeOptionalValue(result)
}

func executeReplaceMapping[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, prevValue, newValue V) (bool, error) {
	if err := bc.ensureUsable(); err != nil {
		return false, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return false, err
	}
	prevBytes, err := bc.valueSerializer.Serialize(prevValue)
	if err != nil {
		return false, err
	}
	newBytes, err := bc.valueSerializer.Serialize(newValue)
	if err != nil {
		return false, err
	}
	var result boolResult
	if err := bc.call(ctx, wire.RequestReplaceMapping, struct {
		Key       []byte `json:"key"`
		PrevValue []byte `json:"prevValue"`
		NewValue  []byte `json:"newValue"`
	}{Key: keyBytes, PrevValue: prevBytes, NewValue: newBytes}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

type boolResult struct {
	Value bool `json:"value"`
}

func executeContainsKey[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K) (bool, error) {
	if err := bc.ensureUsable(); err != nil {
		return false, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return false, err
	}
	var result boolResult
	if err := bc.call(ctx, wire.RequestContainsKey, struct {
		Key []byte `json:"key"`
	}{Key: keyBytes}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

func executeContainsValue[K comparable, V any](ctx context.Context, bc *baseClient[K, V], value V) (bool, error) {
	if err := bc.ensureUsable(); err != nil {
		return false, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return false, err
	}
	var result boolResult
	if err := bc.call(ctx, wire.RequestContainsValue, struct {
		Value []byte `json:"value"`
	}{Value: valueBytes}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

func executeContainsEntry[K comparable, V any](ctx context.Context, bc *baseClient[K, V], key K, value V) (bool, error) {
	if err := bc.ensureUsable(); err != nil {
		return false, err
	}
	keyBytes, err := bc.keySerializer.Serialize(key)
	if err != nil {
		return false, err
	}
	valueBytes, err := bc.valueSerializer.Serialize(value)
	if err != nil {
		return false, err
	}
	var result boolResult
	if err := bc.call(ctx, wire.RequestContainsEntry, struct {
		Key   []byte `json:"key"`
		Value []byte `json:"value"`
	}{Key: keyBytes, Value: valueBytes}, &result); err != nil {
		return false, err
	}
	return result.Value, nil
}

func executeSize[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) (int, error) {
	if err := bc.ensureUsable(); err != nil {
		return 0, err
	}
	var result struct {
		Size int `json:"size"`
	}
	if err := bc.call(ctx, wire.RequestSize, nil, &result); err != nil {
		return 0, err
	}
	return result.Size, nil
}

func executeIsEmpty[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) (bool, error) {
	size, err := executeSize(ctx, bc)
	if err != nil {
		return false, err
	}
	return size == 0, nil
}

func executeClear[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) error {
	if err := bc.ensureUsable(); err != nil {
		return err
	}
	return bc.call(ctx, wire.RequestClear, nil, nil)
}

func executeTruncate[K comparable, V any](ctx context.Context, bc *baseClient[K, V]) error {
	if err := bc.ensureUsable(); err != nil {
		return err
	}
	return bc.call(ctx, wire.RequestTruncate, nil, nil)
}

func executeDestroy[K comparable, V any](ctx context.Context, bc *baseClient[K, V], nm NamedMap[K, V]) error {
	if err := bc.ensureUsable(); err != nil {
		return err
	}
	if err := bc.call(ctx, wire.RequestDestroy, nil, nil); err != nil {
		return err
	}
	bc.mutex.Lock()
	bc.destroyed = true
	bc.mutex.Unlock()
	bc.events.close()
	bc.notifyLifecycle(nm, Destroyed)
	return nil
}

// executeRelease releases local resources for a map without a server
// round trip (spec.md's Released lifecycle event never involves the
// server, unlike Destroyed/Truncated).
func executeRelease[K comparable, V any](bc *baseClient[K, V], nm NamedMap[K, V]) {
	bc.mutex.Lock()
	if bc.released {
		bc.mutex.Unlock()
		return
	}
	bc.released = true
	bc.mutex.Unlock()

	bc.events.close()
	bc.notifyLifecycle(nm, Released)
}
