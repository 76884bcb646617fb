/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"io"
	"sync"

	"github.com/meridiandb/meridian-go-client/meridian/filters"
	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// eventsManager owns the single long-lived events duplex for one NamedMap/
// NamedCache: the key-targeted and filter-targeted listener group indexes,
// the filter-id lookup the inbound dispatch loop routes events through,
// and the pending-ack bookkeeping for outstanding SUBSCRIBE/UNSUBSCRIBE
// requests. One eventsManager multiplexes every local MapListener
// registered against its map over that one stream (spec.md §2, §4.4).
type eventsManager[K comparable, V any] struct {
	bc *baseClient[K, V]

	filterSerializer Serializer[any]

	streamMutex sync.Mutex
	stream      wire.EventsStream
	cancel      context.CancelFunc
	closed      bool

	groupMutex      sync.RWMutex
	keyGroups       map[string]*listenerGroup[K, V]
	filterGroups    map[string]*listenerGroup[K, V]
	filterIDToGroup map[int64]*listenerGroup[K, V]

	ackMutex sync.Mutex
	pending  map[string]chan *wire.ListenerResponse
}

func newEventsManager[K comparable, V any](bc *baseClient[K, V]) *eventsManager[K, V] {
	return &eventsManager[K, V]{
		bc:               bc,
		filterSerializer: NewSerializer[any](bc.format),
		keyGroups:        map[string]*listenerGroup[K, V]{},
		filterGroups:     map[string]*listenerGroup[K, V]{},
		filterIDToGroup:  map[int64]*listenerGroup[K, V]{},
		pending:          map[string]chan *wire.ListenerResponse{},
	}
}

// ensureStream lazily dials the events duplex and starts the dispatch
// loop. It acquires streamMutex itself, so callers must not hold it.
func (em *eventsManager[K, V]) ensureStream(ctx context.Context) (wire.EventsStream, error) {
	em.streamMutex.Lock()
	defer em.streamMutex.Unlock()

	if em.stream != nil {
		return em.stream, nil
	}
	if em.closed {
		return nil, ErrCancelled
	}

	streamCtx, cancel := context.WithCancel(context.Background())

	stream, err := em.bc.session.client.Events(streamCtx)
	if err != nil {
		cancel()
		return nil, wrapTransport(err)
	}

	if err := stream.Send(em.bc.requests.init()); err != nil {
		cancel()
		return nil, wrapTransport(err)
	}

	em.stream = stream
	em.cancel = cancel
	go em.recvLoop(stream)

	return stream, nil
}

func (em *eventsManager[K, V]) recvLoop(stream wire.EventsStream) {
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			return
		}
		if err != nil {
			em.bc.session.log.Debugw("events stream closed", "map", em.bc.name, "error", err)
			return
		}
		em.dispatch(resp)
	}
}

func (em *eventsManager[K, V]) dispatch(resp *wire.ListenerResponse) {
	switch resp.Kind {
	case wire.ListenerResponseSubscribed, wire.ListenerResponseUnsubscribed:
		em.ackMutex.Lock()
		ch, ok := em.pending[resp.UID]
		if ok {
			delete(em.pending, resp.UID)
		}
		em.ackMutex.Unlock()
		if ok {
			ch <- resp
		}
	case wire.ListenerResponseDestroyed:
		em.bc.mutex.Lock()
		em.bc.destroyed = true
		em.bc.mutex.Unlock()
		em.bc.notifyLifecycle(em.bc.self, Destroyed)
	case wire.ListenerResponseTruncated:
		em.bc.notifyLifecycle(em.bc.self, Truncated)
	case wire.ListenerResponseEvent:
		em.dispatchEvent(resp)
	case wire.ListenerResponseError:
		em.ackMutex.Lock()
		ch, ok := em.pending[resp.UID]
		if ok {
			delete(em.pending, resp.UID)
		}
		em.ackMutex.Unlock()
		if ok {
			ch <- resp
			return
		}
		em.bc.session.log.Warnw("events stream error", "map", em.bc.name, "error", resp.ErrMessage)
	}
}

func (em *eventsManager[K, V]) dispatchEvent(resp *wire.ListenerResponse) {
	event := newMapEvent(em.bc.self, resp)

	em.groupMutex.RLock()
	defer em.groupMutex.RUnlock()

	routed := false
	for _, filterID := range resp.FilterIDs {
		if group, ok := em.filterIDToGroup[filterID]; ok {
			group.notify(event)
			routed = true
		}
	}
	if group, ok := em.keyGroups[fingerprint(resp.Key)]; ok {
		group.notify(event)
		routed = true
	}
	if routed {
		em.bc.session.metrics.EventsDispatched.Inc()
	}
}

// writeSubscribe issues one SUBSCRIBE/UNSUBSCRIBE request and blocks until
// the server acks it (or ctx is done). Each request allocates its own UID
// so acks can be correlated even though several groups may have requests
// in flight on the shared stream at once.
func (em *eventsManager[K, V]) writeSubscribe(ctx context.Context, lg *listenerGroup[K, V], subscribe, lite, synchronous, priming bool) error {
	stream, err := em.ensureStream(ctx)
	if err != nil {
		return err
	}

	req := em.bc.requests.subscribe(lg, subscribe, lite, synchronous, priming)
	uid := req.UID
	ch := make(chan *wire.ListenerResponse, 1)

	em.ackMutex.Lock()
	em.pending[uid] = ch
	em.ackMutex.Unlock()
	em.bc.session.metrics.PendingAcks.Inc()
	defer em.bc.session.metrics.PendingAcks.Dec()

	em.streamMutex.Lock()
	sendErr := stream.Send(req)
	em.streamMutex.Unlock()
	if sendErr != nil {
		em.ackMutex.Lock()
		delete(em.pending, uid)
		em.ackMutex.Unlock()
		return wrapTransport(sendErr)
	}
	em.bc.session.metrics.SubscriptionRequests.Inc()

	select {
	case resp, ok := <-ch:
		if !ok {
			return ErrCancelled
		}
		if resp.Kind == wire.ListenerResponseError {
			return wrapProtocol("%s", resp.ErrMessage)
		}
		return nil
	case <-ctx.Done():
		em.ackMutex.Lock()
		delete(em.pending, uid)
		em.ackMutex.Unlock()
		return wrapTimeoutOrCancelled(ctx)
	}
}

func wrapTimeoutOrCancelled(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return ErrTimeout
	}
	return ErrCancelled
}

// addKeyListener and its three siblings below only ever hold groupMutex for
// a short index lookup/insert/delete; the blocking SUBSCRIBE/UNSUBSCRIBE
// round trip in writeSubscribe runs with the lock released. Holding
// groupMutex across that suspension point would stall recvLoop's
// dispatchEvent (which also needs groupMutex) for every other group's
// events until this one's ack arrived, deadlocking against itself.
func (em *eventsManager[K, V]) addKeyListener(ctx context.Context, key K, listener MapListener[K, V], lite bool) error {
	keyBytes, err := em.bc.keySerializer.Serialize(key)
	if err != nil {
		return err
	}
	fp := fingerprint(keyBytes)

	em.groupMutex.Lock()
	group, ok := em.keyGroups[fp]
	if !ok {
		group = newKeyListenerGroup(em, em.bc, fp, keyBytes)
		em.keyGroups[fp] = group
		em.bc.session.metrics.ActiveKeyGroups.Inc()
	}
	em.groupMutex.Unlock()

	return group.addListener(ctx, listener, lite)
}

func (em *eventsManager[K, V]) removeKeyListener(ctx context.Context, key K, listener MapListener[K, V]) error {
	keyBytes, err := em.bc.keySerializer.Serialize(key)
	if err != nil {
		return err
	}
	fp := fingerprint(keyBytes)

	em.groupMutex.RLock()
	group, ok := em.keyGroups[fp]
	em.groupMutex.RUnlock()
	if !ok {
		return nil
	}

	if err := group.removeListener(ctx, listener); err != nil {
		return err
	}

	if group.isEmpty() {
		em.groupMutex.Lock()
		if em.keyGroups[fp] == group && group.isEmpty() {
			delete(em.keyGroups, fp)
			em.bc.session.metrics.ActiveKeyGroups.Dec()
		}
		em.groupMutex.Unlock()
	}
	return nil
}

func (em *eventsManager[K, V]) addFilterListener(ctx context.Context, filter filters.Filter, listener MapListener[K, V], lite bool) error {
	if filter == nil {
		filter = filters.Always()
	}
	filterBytes, err := em.filterSerializer.Serialize(any(filter))
	if err != nil {
		return err
	}
	fp := fingerprint(filterBytes)

	em.groupMutex.Lock()
	group, ok := em.filterGroups[fp]
	if !ok {
		group = newFilterListenerGroup(em, em.bc, fp, filterBytes)
		em.filterGroups[fp] = group
		em.filterIDToGroup[group.filterID] = group
		em.bc.session.metrics.ActiveFilterGroups.Inc()
	}
	em.groupMutex.Unlock()

	return group.addListener(ctx, listener, lite)
}

func (em *eventsManager[K, V]) removeFilterListener(ctx context.Context, filter filters.Filter, listener MapListener[K, V]) error {
	if filter == nil {
		filter = filters.Always()
	}
	filterBytes, err := em.filterSerializer.Serialize(any(filter))
	if err != nil {
		return err
	}
	fp := fingerprint(filterBytes)

	em.groupMutex.RLock()
	group, ok := em.filterGroups[fp]
	em.groupMutex.RUnlock()
	if !ok {
		return nil
	}

	if err := group.removeListener(ctx, listener); err != nil {
		return err
	}

	if group.isEmpty() {
		em.groupMutex.Lock()
		if em.filterGroups[fp] == group && group.isEmpty() {
			delete(em.filterGroups, fp)
			delete(em.filterIDToGroup, group.filterID)
			em.bc.session.metrics.ActiveFilterGroups.Dec()
		}
		em.groupMutex.Unlock()
	}
	return nil
}

// close tears down the events duplex. Called when the map is destroyed or
// released. It cancels the stream's context and rejects every outstanding
// SUBSCRIBE/UNSUBSCRIBE ack with ErrCancelled, so no caller blocked in
// writeSubscribe's select waits on a stream that is never coming back.
func (em *eventsManager[K, V]) close() {
	em.streamMutex.Lock()
	if em.closed {
		em.streamMutex.Unlock()
		return
	}
	em.closed = true
	if em.stream != nil {
		_ = em.stream.CloseSend()
	}
	if em.cancel != nil {
		em.cancel()
	}
	em.streamMutex.Unlock()

	em.ackMutex.Lock()
	pending := em.pending
	em.pending = map[string]chan *wire.ListenerResponse{}
	em.ackMutex.Unlock()

	for _, ch := range pending {
		close(ch)
	}
}
