/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package wire defines the message shapes and transport plumbing for the
// Meridian duplex RPC protocol. Messages are plain Go structs carried over
// gRPC using the codec in codec.go rather than protoc-generated types: the
// wire schema of individual requests/responses is an opaque, server-defined
// contract as far as the rest of this module is concerned.
package wire

// RequestType identifies the kind of unary or streaming operation a
// ListenerRequest-less Envelope carries.
type RequestType int32

const (
	RequestInit RequestType = iota
	RequestEnsureMap
	RequestGet
	RequestPut
	RequestPutIfAbsent
	RequestPutWithExpiry
	RequestPutAll
	RequestRemove
	RequestRemoveMapping
	RequestReplace
	RequestReplaceMapping
	RequestContainsKey
	RequestContainsValue
	RequestContainsEntry
	RequestSize
	RequestIsEmpty
	RequestClear
	RequestTruncate
	RequestDestroy
	RequestInvoke
	RequestInvokeAll
	RequestAggregate
	RequestNextKeyPage
	RequestNextEntryPage
	RequestEntrySetFilter
	RequestKeySetFilter
	RequestValuesFilter
)

// Envelope wraps every unary/server-streaming request sent to the server.
// ID is the correlation id stamped by the request factory; it is echoed
// back verbatim on the matching Response.
type Envelope struct {
	ID      int64
	Type    RequestType
	Map     string
	Scope   string
	Format  string
	Payload []byte
	// Cookie carries the continuation token for RequestNextKeyPage /
	// RequestNextEntryPage requests; empty on the first page request.
	Cookie []byte
}

// Response is the unary reply to an Envelope.
type Response struct {
	ID      int64
	Err     string
	Payload []byte
}

// PageEnvelope is a single message of a server-streaming page RPC. The
// first message of every page carries only Cookie (Entry is nil); every
// subsequent message carries exactly one Entry and an empty Cookie. An
// empty Cookie on the first message means "no further pages".
type PageEnvelope struct {
	Cookie []byte
	Entry  *PageEntry
}

// PageEntry is one key/value pair of a page.
type PageEntry struct {
	Key   []byte
	Value []byte
}

// ListenerRequestType distinguishes INIT/SUBSCRIBE/UNSUBSCRIBE on the
// events duplex, per spec.md §6.
type ListenerRequestType int32

const (
	ListenerInit ListenerRequestType = iota
	ListenerSubscribe
	ListenerUnsubscribe
)

// ListenerRequest is every message the client writes to the events duplex.
type ListenerRequest struct {
	UID         string
	Type        ListenerRequestType
	Subscribe   bool
	Lite        bool
	Synchronous bool
	Priming     bool
	Key         []byte
	Filter      []byte
	FilterID    int64
	Map         string
	Scope       string
	Format      string
}

// ListenerResponseKind distinguishes the variant carried by a
// ListenerResponse, mirroring spec.md §6's `ListenerResponse` variants.
type ListenerResponseKind int32

const (
	ListenerResponseSubscribed ListenerResponseKind = iota
	ListenerResponseUnsubscribed
	ListenerResponseDestroyed
	ListenerResponseTruncated
	ListenerResponseEvent
	ListenerResponseError
)

// EventID mirrors spec.md's MapEvent.Type: INSERTED, UPDATED, DELETED.
type EventID int32

const (
	EventInserted EventID = 1
	EventUpdated  EventID = 2
	EventDeleted  EventID = 3
)

// ListenerResponse is every message the server writes to the events duplex.
type ListenerResponse struct {
	Kind ListenerResponseKind

	// Subscribed / Unsubscribed
	UID string

	// Destroyed / Truncated
	Map string

	// Event
	Key         []byte
	OldValue    []byte
	NewValue    []byte
	ID          EventID
	FilterIDs   []int64
	Synthetic   bool
	Priming     bool
	Expired     bool

	// Error
	ErrMessage string
}
