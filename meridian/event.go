/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"fmt"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

const (
	// EntryInserted indicates an entry was added to the map.
	EntryInserted MapEventType = "insert"
	// EntryUpdated indicates an entry was updated in the map.
	EntryUpdated MapEventType = "update"
	// EntryDeleted indicates an entry was removed from the map.
	EntryDeleted MapEventType = "delete"

	// Destroyed is raised when storage for a map is destroyed.
	Destroyed MapLifecycleEventType = "map_destroyed"
	// Truncated is raised when storage for a map is truncated.
	Truncated MapLifecycleEventType = "map_truncated"
	// Released is raised when local resources for a map are released.
	// Unlike Destroyed/Truncated, this never involves a server round trip.
	Released MapLifecycleEventType = "map_released"

	// Connected is raised when the session has connected.
	Connected SessionLifecycleEventType = "session_connected"
	// Disconnected is raised when the session has disconnected.
	Disconnected SessionLifecycleEventType = "session_disconnected"
	// Reconnected is raised when the session has reconnected.
	Reconnected SessionLifecycleEventType = "session_reconnected"
	// Closed is raised when the session has been closed.
	Closed SessionLifecycleEventType = "session_closed"
)

// MapEventType describes an event raised by a map mutation.
type MapEventType string

// MapLifecycleEventType describes a lifecycle event raised against a map.
type MapLifecycleEventType string

// SessionLifecycleEventType describes a lifecycle event raised against a
// session.
type SessionLifecycleEventType string

// eventEmitter is a small label -> callbacks registry shared by every
// listener kind in this package.
type eventEmitter[L comparable, E any] struct {
	callbacks map[L][]func(E)
}

func newEventEmitter[L comparable, E any]() *eventEmitter[L, E] {
	return &eventEmitter[L, E]{callbacks: map[L][]func(E){}}
}

func (ee *eventEmitter[L, E]) on(label L, callback func(E)) {
	ee.callbacks[label] = append(ee.callbacks[label], callback)
}

func (ee *eventEmitter[L, E]) emit(label L, event E) {
	for _, f := range ee.callbacks[label] {
		f(event)
	}
}

// SessionLifecycleEvent describes a session lifecycle occurrence.
type SessionLifecycleEvent interface {
	Type() SessionLifecycleEventType
	Source() *Session
}

type sessionLifecycleEvent struct {
	source    *Session
	eventType SessionLifecycleEventType
}

func newSessionLifecycleEvent(session *Session, eventType SessionLifecycleEventType) SessionLifecycleEvent {
	return &sessionLifecycleEvent{source: session, eventType: eventType}
}

func (e *sessionLifecycleEvent) Type() SessionLifecycleEventType { return e.eventType }
func (e *sessionLifecycleEvent) Source() *Session                { return e.source }

// SessionLifecycleListener allows registering callbacks for session
// lifecycle events.
type SessionLifecycleListener interface {
	OnAny(callback func(SessionLifecycleEvent)) SessionLifecycleListener
	OnConnected(callback func(SessionLifecycleEvent)) SessionLifecycleListener
	OnDisconnected(callback func(SessionLifecycleEvent)) SessionLifecycleListener
	OnReconnected(callback func(SessionLifecycleEvent)) SessionLifecycleListener
	OnClosed(callback func(SessionLifecycleEvent)) SessionLifecycleListener
	getEmitter() *eventEmitter[SessionLifecycleEventType, SessionLifecycleEvent]
}

type sessionLifecycleListener struct {
	emitter *eventEmitter[SessionLifecycleEventType, SessionLifecycleEvent]
}

// NewSessionLifecycleListener creates a new SessionLifecycleListener.
func NewSessionLifecycleListener() SessionLifecycleListener {
	return &sessionLifecycleListener{newEventEmitter[SessionLifecycleEventType, SessionLifecycleEvent]()}
}

func (l *sessionLifecycleListener) getEmitter() *eventEmitter[SessionLifecycleEventType, SessionLifecycleEvent] {
	return l.emitter
}

func (l *sessionLifecycleListener) on(t SessionLifecycleEventType, cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	l.emitter.on(t, cb)
	return l
}

func (l *sessionLifecycleListener) OnConnected(cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	return l.on(Connected, cb)
}
func (l *sessionLifecycleListener) OnDisconnected(cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	return l.on(Disconnected, cb)
}
func (l *sessionLifecycleListener) OnReconnected(cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	return l.on(Reconnected, cb)
}
func (l *sessionLifecycleListener) OnClosed(cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	return l.on(Closed, cb)
}
func (l *sessionLifecycleListener) OnAny(cb func(SessionLifecycleEvent)) SessionLifecycleListener {
	return l.OnConnected(cb).OnDisconnected(cb).OnReconnected(cb).OnClosed(cb)
}

// MapLifecycleEvent describes a lifecycle occurrence against a NamedMap.
type MapLifecycleEvent[K comparable, V any] interface {
	Source() NamedMap[K, V]
	Type() MapLifecycleEventType
}

type mapLifecycleEvent[K comparable, V any] struct {
	source    NamedMap[K, V]
	eventType MapLifecycleEventType
}

func newMapLifecycleEvent[K comparable, V any](nm NamedMap[K, V], eventType MapLifecycleEventType) MapLifecycleEvent[K, V] {
	return &mapLifecycleEvent[K, V]{source: nm, eventType: eventType}
}

func (e *mapLifecycleEvent[K, V]) Type() MapLifecycleEventType { return e.eventType }
func (e *mapLifecycleEvent[K, V]) Source() NamedMap[K, V]      { return e.source }

// MapLifecycleListener allows registering callbacks for Destroyed/
// Truncated/Released events against a NamedMap.
type MapLifecycleListener[K comparable, V any] interface {
	OnAny(callback func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V]
	OnDestroyed(callback func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V]
	OnTruncated(callback func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V]
	OnReleased(callback func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V]
	getEmitter() *eventEmitter[MapLifecycleEventType, MapLifecycleEvent[K, V]]
}

type mapLifecycleListener[K comparable, V any] struct {
	emitter *eventEmitter[MapLifecycleEventType, MapLifecycleEvent[K, V]]
}

// NewMapLifecycleListener creates a new MapLifecycleListener.
func NewMapLifecycleListener[K comparable, V any]() MapLifecycleListener[K, V] {
	return &mapLifecycleListener[K, V]{newEventEmitter[MapLifecycleEventType, MapLifecycleEvent[K, V]]()}
}

func (l *mapLifecycleListener[K, V]) getEmitter() *eventEmitter[MapLifecycleEventType, MapLifecycleEvent[K, V]] {
	return l.emitter
}

func (l *mapLifecycleListener[K, V]) on(t MapLifecycleEventType, cb func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V] {
	l.emitter.on(t, cb)
	return l
}

func (l *mapLifecycleListener[K, V]) OnDestroyed(cb func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V] {
	return l.on(Destroyed, cb)
}
func (l *mapLifecycleListener[K, V]) OnTruncated(cb func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V] {
	return l.on(Truncated, cb)
}
func (l *mapLifecycleListener[K, V]) OnReleased(cb func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V] {
	return l.on(Released, cb)
}
func (l *mapLifecycleListener[K, V]) OnAny(cb func(MapLifecycleEvent[K, V])) MapLifecycleListener[K, V] {
	return l.OnDestroyed(cb).OnTruncated(cb).OnReleased(cb)
}

// MapEvent indicates that the content of a NamedMap/NamedCache has
// changed: an entry was inserted, updated, or deleted. Key/OldValue/
// NewValue deserialize lazily and at most once (spec.md §3 "Named Cache
// Entry").
type MapEvent[K comparable, V any] interface {
	Source() NamedMap[K, V]
	Key() (*K, error)
	OldValue() (*V, error)
	NewValue() (*V, error)
	Type() MapEventType
	IsSynthetic() bool
	IsPriming() bool
}

type mapEvent[K comparable, V any] struct {
	source    NamedMap[K, V]
	eventType MapEventType

	keyBytes      []byte
	oldValueBytes []byte
	newValueBytes []byte

	key      *K
	oldValue *V
	newValue *V

	synthetic bool
	priming   bool
}

func newMapEvent[K comparable, V any](source NamedMap[K, V], resp *wire.ListenerResponse) *mapEvent[K, V] {
	return &mapEvent[K, V]{
		source:        source,
		eventType:     eventTypeFromID(resp.ID),
		keyBytes:      resp.Key,
		oldValueBytes: resp.OldValue,
		newValueBytes: resp.NewValue,
		synthetic:     resp.Synthetic,
		priming:       resp.Priming,
	}
}

func (e *mapEvent[K, V]) Key() (*K, error) {
	if e.key == nil {
		k, err := e.source.getBaseClient().keySerializer.Deserialize(e.keyBytes)
		if err != nil {
			return nil, err
		}
		e.key = k
	}
	return e.key, nil
}

func (e *mapEvent[K, V]) OldValue() (*V, error) {
	if len(e.oldValueBytes) == 0 {
		return nil, nil
	}
	if e.oldValue == nil {
		v, err := e.source.getBaseClient().valueSerializer.Deserialize(e.oldValueBytes)
		if err != nil {
			return nil, err
		}
		e.oldValue = v
	}
	return e.oldValue, nil
}

func (e *mapEvent[K, V]) NewValue() (*V, error) {
	if len(e.newValueBytes) == 0 {
		return nil, nil
	}
	if e.newValue == nil {
		v, err := e.source.getBaseClient().valueSerializer.Deserialize(e.newValueBytes)
		if err != nil {
			return nil, err
		}
		e.newValue = v
	}
	return e.newValue, nil
}

func (e *mapEvent[K, V]) Type() MapEventType  { return e.eventType }
func (e *mapEvent[K, V]) Source() NamedMap[K, V] { return e.source }
func (e *mapEvent[K, V]) IsSynthetic() bool   { return e.synthetic }
func (e *mapEvent[K, V]) IsPriming() bool     { return e.priming }

func (e *mapEvent[K, V]) String() string {
	return fmt.Sprintf("MapEvent{name=%s, type=%s}", e.source.Name(), e.eventType)
}

// MapListener allows registering callbacks for inserts/updates/deletes
// against a NamedMap/NamedCache. A listener may be registered lite or
// full on several groups at once (spec.md §3 "Listener Record").
type MapListener[K comparable, V any] interface {
	OnInserted(callback func(MapEvent[K, V])) MapListener[K, V]
	OnUpdated(callback func(MapEvent[K, V])) MapListener[K, V]
	OnDeleted(callback func(MapEvent[K, V])) MapListener[K, V]
	OnAny(callback func(MapEvent[K, V])) MapListener[K, V]
	IsSynchronous() bool
	IsPriming() bool
	dispatch(event MapEvent[K, V])
}

type mapListener[K comparable, V any] struct {
	emitter *eventEmitter[MapEventType, MapEvent[K, V]]
	priming bool
}

// NewMapListener creates a new MapListener.
func NewMapListener[K comparable, V any]() MapListener[K, V] {
	return &mapListener[K, V]{emitter: newEventEmitter[MapEventType, MapEvent[K, V]]()}
}

func (l *mapListener[K, V]) dispatch(event MapEvent[K, V]) {
	l.emitter.emit(event.Type(), event)
}

func (l *mapListener[K, V]) on(t MapEventType, cb func(MapEvent[K, V])) MapListener[K, V] {
	l.emitter.on(t, cb)
	return l
}

func (l *mapListener[K, V]) OnInserted(cb func(MapEvent[K, V])) MapListener[K, V] { return l.on(EntryInserted, cb) }
func (l *mapListener[K, V]) OnUpdated(cb func(MapEvent[K, V])) MapListener[K, V]  { return l.on(EntryUpdated, cb) }
func (l *mapListener[K, V]) OnDeleted(cb func(MapEvent[K, V])) MapListener[K, V]  { return l.on(EntryDeleted, cb) }
func (l *mapListener[K, V]) OnAny(cb func(MapEvent[K, V])) MapListener[K, V] {
	return l.OnInserted(cb).OnUpdated(cb).OnDeleted(cb)
}

// IsSynchronous reports whether the server should suspend its own event
// pipeline until this listener's handler returns. This client dispatches
// every handler from its own recv loop goroutine rather than blocking the
// server, so it never requests synchronous delivery: this always returns
// false.
func (l *mapListener[K, V]) IsSynchronous() bool { return false }

// IsPriming reports whether this listener requested a priming event (an
// immediate synthetic INSERTED event reflecting current state) on
// subscribe. Not used by the core algorithm; carried through to the wire
// request for server-side semantics.
func (l *mapListener[K, V]) IsPriming() bool { return l.priming }

func eventTypeFromID(id wire.EventID) MapEventType {
	switch id {
	case wire.EventInserted:
		return EntryInserted
	case wire.EventUpdated:
		return EntryUpdated
	case wire.EventDeleted:
		return EntryDeleted
	default:
		return ""
	}
}
