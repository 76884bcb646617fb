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

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// fakeClient is an in-memory wire.Client for exercising the events manager,
// listener groups and page advancer without a real server.
type fakeClient struct {
	mutex sync.Mutex

	callResponses map[wire.RequestType]*wire.Response
	pages         [][]*wire.PageEnvelope
	pageIndex     int

	events *fakeEventsStream
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		callResponses: map[wire.RequestType]*wire.Response{},
	}
}

func (c *fakeClient) Call(_ context.Context, req *wire.Envelope) (*wire.Response, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if resp, ok := c.callResponses[req.Type]; ok {
		return resp, nil
	}
	return &wire.Response{ID: req.ID}, nil
}

func (c *fakeClient) Page(_ context.Context, _ *wire.Envelope) (wire.PageStream, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.pageIndex >= len(c.pages) {
		return &fakePageStream{}, nil
	}
	page := c.pages[c.pageIndex]
	c.pageIndex++
	return &fakePageStream{envelopes: page}, nil
}

func (c *fakeClient) Events(context.Context) (wire.EventsStream, error) {
	if c.events == nil {
		c.events = newFakeEventsStream()
	}
	return c.events, nil
}

type fakePageStream struct {
	pos       int
	envelopes []*wire.PageEnvelope
}

func (p *fakePageStream) Recv() (*wire.PageEnvelope, error) {
	if p.pos >= len(p.envelopes) {
		return nil, io.EOF
	}
	e := p.envelopes[p.pos]
	p.pos++
	return e, nil
}

// fakeEventsStream auto-acknowledges every SUBSCRIBE/UNSUBSCRIBE request it
// receives, and lets a test push additional ListenerResponse messages (e.g.
// MapEvents) onto the same queue Recv drains.
type fakeEventsStream struct {
	mutex  sync.Mutex
	queue  chan *wire.ListenerResponse
	closed bool
}

func newFakeEventsStream() *fakeEventsStream {
	return &fakeEventsStream{queue: make(chan *wire.ListenerResponse, 64)}
}

func (s *fakeEventsStream) Send(req *wire.ListenerRequest) error {
	if req.Type != wire.ListenerSubscribe {
		return nil
	}
	kind := wire.ListenerResponseSubscribed
	if !req.Subscribe {
		kind = wire.ListenerResponseUnsubscribed
	}
	s.queue <- &wire.ListenerResponse{Kind: kind, UID: req.UID}
	return nil
}

func (s *fakeEventsStream) Recv() (*wire.ListenerResponse, error) {
	resp, ok := <-s.queue
	if !ok {
		return nil, io.EOF
	}
	return resp, nil
}

func (s *fakeEventsStream) CloseSend() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.queue)
	return nil
}

// pushEvent injects a synthetic ListenerResponseEvent message for the recv
// loop to dispatch, as if the server had sent it.
func (s *fakeEventsStream) pushEvent(resp *wire.ListenerResponse) {
	resp.Kind = wire.ListenerResponseEvent
	s.queue <- resp
}
