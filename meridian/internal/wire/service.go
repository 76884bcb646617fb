/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package wire

import (
	"context"

	"google.golang.org/grpc"
)

// Service names the three RPCs a Meridian server proxy exposes. This file
// is written the way protoc-gen-go-grpc would generate a client stub, but
// by hand: one duplex stream for listener (de)registration and event
// delivery, one unary Call for every CRUD/invoke/aggregate operation, and
// one server-stream Page for the paged key/entry/value iterators.
const (
	serviceName   = "meridian.v1.MeridianService"
	methodEvents  = "/" + serviceName + "/Events"
	methodCall    = "/" + serviceName + "/Call"
	methodPage    = "/" + serviceName + "/Page"
)

// EventsStream is the client side of the bidirectional events duplex.
type EventsStream interface {
	Send(*ListenerRequest) error
	Recv() (*ListenerResponse, error)
	CloseSend() error
}

// PageStream is the client side of a server-streaming page RPC.
type PageStream interface {
	Recv() (*PageEnvelope, error)
}

// Client is the transport surface baseClient needs. It is implemented by
// *GrpcClient against a real connection, and can be faked in tests.
type Client interface {
	Events(ctx context.Context) (EventsStream, error)
	Call(ctx context.Context, req *Envelope) (*Response, error)
	Page(ctx context.Context, req *Envelope) (PageStream, error)
}

// GrpcClient implements Client directly against a grpc.ClientConn, calling
// the low-level Invoke/NewStream primitives that protoc-gen-go-grpc would
// otherwise wrap, using the content-subtype registered in codec.go so no
// generated proto.Message types are required.
type GrpcClient struct {
	conn *grpc.ClientConn
}

// NewGrpcClient returns a Client bound to conn.
func NewGrpcClient(conn *grpc.ClientConn) *GrpcClient {
	return &GrpcClient{conn: conn}
}

func callOpts() []grpc.CallOption {
	return []grpc.CallOption{grpc.CallContentSubtype(ContentSubtype)}
}

func (c *GrpcClient) Call(ctx context.Context, req *Envelope) (*Response, error) {
	resp := &Response{}
	if err := c.conn.Invoke(ctx, methodCall, req, resp, callOpts()...); err != nil {
		return nil, err
	}
	return resp, nil
}

type pageStream struct {
	cs grpc.ClientStream
}

func (p *pageStream) Recv() (*PageEnvelope, error) {
	m := &PageEnvelope{}
	if err := p.cs.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *GrpcClient) Page(ctx context.Context, req *Envelope) (PageStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Page", ServerStreams: true}
	cs, err := c.conn.NewStream(ctx, desc, methodPage, callOpts()...)
	if err != nil {
		return nil, err
	}
	if err := cs.SendMsg(req); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return &pageStream{cs: cs}, nil
}

type eventsStream struct {
	cs grpc.ClientStream
}

func (e *eventsStream) Send(req *ListenerRequest) error {
	return e.cs.SendMsg(req)
}

func (e *eventsStream) Recv() (*ListenerResponse, error) {
	m := &ListenerResponse{}
	if err := e.cs.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (e *eventsStream) CloseSend() error {
	return e.cs.CloseSend()
}

func (c *GrpcClient) Events(ctx context.Context) (EventsStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Events", ServerStreams: true, ClientStreams: true}
	cs, err := c.conn.NewStream(ctx, desc, methodEvents, callOpts()...)
	if err != nil {
		return nil, err
	}
	return &eventsStream{cs: cs}, nil
}
