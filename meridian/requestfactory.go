/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"github.com/google/uuid"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// requestFactory builds every wire-level request record this map's
// baseClient sends, stamping each with a correlation id or UID so the
// caller never constructs an Envelope/ListenerRequest by hand (spec.md
// §4.1 "Request Factory"). Unary/page request ids come from
// Session.nextRequestID (a monotonic int64 sequence, unique for the
// lifetime of the session); subscription UIDs come from google/uuid
// since they must stay unique across every map sharing a session, not
// just one map's own sequence.
type requestFactory[K comparable, V any] struct {
	bc *baseClient[K, V]
}

func newRequestFactory[K comparable, V any](bc *baseClient[K, V]) *requestFactory[K, V] {
	return &requestFactory[K, V]{bc: bc}
}

// unary builds the Envelope for a non-paged RPC.
func (rf *requestFactory[K, V]) unary(reqType wire.RequestType, payload []byte) *wire.Envelope {
	return &wire.Envelope{
		ID:      rf.bc.session.nextRequestID(),
		Type:    reqType,
		Map:     rf.bc.name,
		Format:  rf.bc.format,
		Payload: payload,
	}
}

// page builds the Envelope for a page-advancer request, carrying the
// continuation cookie from the previous page (empty on the first request
// of a sequence).
func (rf *requestFactory[K, V]) page(reqType wire.RequestType, payload, cookie []byte) *wire.Envelope {
	env := rf.unary(reqType, payload)
	env.Cookie = cookie
	return env
}

// init builds the first message an events duplex sends, binding the
// stream to this map.
func (rf *requestFactory[K, V]) init() *wire.ListenerRequest {
	return &wire.ListenerRequest{
		UID:    uuid.New().String(),
		Type:   wire.ListenerInit,
		Map:    rf.bc.name,
		Format: rf.bc.format,
	}
}

// subscribe builds a SUBSCRIBE/UNSUBSCRIBE request for a listener group.
// target carries either the key-subscription bytes or the filter bytes
// plus its client-assigned filterID, set by the caller on lg before this
// is called.
func (rf *requestFactory[K, V]) subscribe(lg *listenerGroup[K, V], subscribe, lite, synchronous, priming bool) *wire.ListenerRequest {
	return &wire.ListenerRequest{
		UID:         uuid.New().String(),
		Type:        wire.ListenerSubscribe,
		Subscribe:   subscribe,
		Lite:        lite,
		Synchronous: synchronous,
		Priming:     priming,
		Key:         lg.keyBytes,
		Filter:      lg.filterBytes,
		FilterID:    lg.filterID,
		Map:         rf.bc.name,
		Format:      rf.bc.format,
	}
}
