/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"sync"
	"sync/atomic"
)

var nextFilterIDCounter int64

// nextFilterID returns a new client-assigned filter id. Filter ids are
// allocated before the corresponding SUBSCRIBE request is sent, so the
// server can echo the id on every routed event (spec.md §3 "Filter id").
func nextFilterID() int64 {
	return atomic.AddInt64(&nextFilterIDCounter, 1)
}

// listenerGroup coalesces every local MapListener registered against the
// same key or filter into a single server subscription. It tracks the
// registeredLite/liteFalseCount invariant: the group is subscribed lite
// only while every member listener is lite, and upgrades to full the
// moment a single non-lite listener joins.
//
// Two mutexes guard disjoint concerns on purpose. mutex guards the
// listeners map and the lite bookkeeping; it is only ever held for a
// short index lookup/update, never across a SUBSCRIBE/UNSUBSCRIBE
// round trip, so notify() (called from the events manager's single
// recv loop) never stalls behind an in-flight subscribe. subscribeMutex
// serializes the actual wire calls for this one group across concurrent
// addListener/removeListener callers; holding it across the blocking
// round trip only blocks other callers touching this same group, never
// the recv loop or any other group.
type listenerGroup[K comparable, V any] struct {
	mutex          sync.RWMutex
	subscribeMutex sync.Mutex

	bc     *baseClient[K, V]
	events *eventsManager[K, V]

	listeners      map[MapListener[K, V]]bool // listener -> lite
	registeredLite bool
	liteFalseCount int32

	// exactly one of keyBytes/filterBytes is set.
	keyBytes    []byte
	filterBytes []byte
	filterID    int64
}

func newKeyListenerGroup[K comparable, V any](events *eventsManager[K, V], bc *baseClient[K, V], fingerprint string, keyBytes []byte) *listenerGroup[K, V] {
	return &listenerGroup[K, V]{
		bc:        bc,
		events:    events,
		listeners: map[MapListener[K, V]]bool{},
		keyBytes:  keyBytes,
	}
}

func newFilterListenerGroup[K comparable, V any](events *eventsManager[K, V], bc *baseClient[K, V], fingerprint string, filterBytes []byte) *listenerGroup[K, V] {
	return &listenerGroup[K, V]{
		bc:          bc,
		events:      events,
		listeners:   map[MapListener[K, V]]bool{},
		filterBytes: filterBytes,
		filterID:    nextFilterID(),
	}
}

// isEmpty reports whether this group currently has no local listeners. The
// events manager uses it, after a removeListener call returns, to decide
// whether the group should be dropped from its key/filter index.
func (lg *listenerGroup[K, V]) isEmpty() bool {
	lg.mutex.RLock()
	defer lg.mutex.RUnlock()
	return len(lg.listeners) == 0
}

// addListener registers listener on this group, (re)issuing the server
// subscription only when the group's overall detail level needs to
// change: on the first listener, or when the group is currently
// registered lite and a non-lite listener joins.
func (lg *listenerGroup[K, V]) addListener(ctx context.Context, listener MapListener[K, V], lite bool) error {
	lg.subscribeMutex.Lock()
	defer lg.subscribeMutex.Unlock()

	lg.mutex.Lock()
	prevLite, present := lg.listeners[listener]
	if present && prevLite == lite {
		lg.mutex.Unlock()
		return nil
	}

	lg.listeners[listener] = lite
	if !lite {
		atomic.AddInt32(&lg.liteFalseCount, 1)
	}

	size := len(lg.listeners)
	requiresRegistration := size == 1 || (lg.registeredLite && !lite)
	if requiresRegistration {
		lg.registeredLite = lite
	}
	lg.mutex.Unlock()

	if !requiresRegistration {
		return nil
	}

	if size > 1 {
		// unsubscribe the key/filter and then re-subscribe at the new detail level.
		if err := lg.events.writeSubscribe(ctx, lg, false, lite, listener.IsSynchronous(), listener.IsPriming()); err != nil {
			return err
		}
	}
	return lg.events.writeSubscribe(ctx, lg, true, lite, listener.IsSynchronous(), listener.IsPriming())
}

// removeListener unregisters listener, downgrading or tearing down the
// server subscription as the group's membership shrinks.
func (lg *listenerGroup[K, V]) removeListener(ctx context.Context, listener MapListener[K, V]) error {
	lg.subscribeMutex.Lock()
	defer lg.subscribeMutex.Unlock()

	lg.mutex.Lock()
	prevLite, present := lg.listeners[listener]
	if !present {
		lg.mutex.Unlock()
		return nil
	}
	delete(lg.listeners, listener)
	remaining := len(lg.listeners)

	downgrade := false
	if remaining > 0 && !prevLite {
		if atomic.AddInt32(&lg.liteFalseCount, -1) == 0 {
			downgrade = true
			lg.registeredLite = true
		}
	}
	lg.mutex.Unlock()

	if remaining == 0 {
		return lg.events.writeSubscribe(ctx, lg, false, prevLite, false, false)
	}

	if downgrade {
		if err := lg.events.writeSubscribe(ctx, lg, false, prevLite, false, false); err != nil {
			return err
		}
		return lg.events.writeSubscribe(ctx, lg, true, true, false, false)
	}
	return nil
}

// notify dispatches event to every listener currently in this group.
func (lg *listenerGroup[K, V]) notify(event MapEvent[K, V]) {
	lg.mutex.RLock()
	defer lg.mutex.RUnlock()

	for l := range lg.listeners {
		l.dispatch(event)
	}
}
