/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"container/list"
	"context"
	"io"
	"sync"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// pageHelper decodes a single page entry into the caller's element type T.
// KeySet, EntrySet and ValueSet share one pageAdvancer and differ only in
// this decode step (teacher's three near-identical streamedXxxIteratorV1
// types collapse into one generic advancer plus this strategy).
type pageHelper[K comparable, V any, T any] interface {
	decode(bc *baseClient[K, V], entry *wire.PageEntry) (T, error)
}

// pageAdvancer is a lazy, single-consumer, cookie-driven iterator over a
// server-held page stream. It is not safe for concurrent use by more than
// one goroutine at a time.
type pageAdvancer[K comparable, V any, T any] struct {
	mutex sync.Mutex

	bc        *baseClient[K, V]
	helper    pageHelper[K, V, T]
	reqType   wire.RequestType
	payload   []byte
	cookie    []byte
	exhausted bool
	dataList  *list.List
}

func newPageAdvancer[K comparable, V any, T any](bc *baseClient[K, V], reqType wire.RequestType, payload []byte, helper pageHelper[K, V, T]) *pageAdvancer[K, V, T] {
	return &pageAdvancer[K, V, T]{
		bc:       bc,
		helper:   helper,
		reqType:  reqType,
		payload:  payload,
		cookie:   []byte{},
		dataList: list.New(),
	}
}

// Next returns the next element, or ErrDone once the server-held set is
// exhausted.
func (p *pageAdvancer[K, V, T]) Next(ctx context.Context) (*T, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for p.dataList.Len() == 0 && !p.exhausted {
		if err := p.loadPage(ctx); err != nil {
			return nil, err
		}
	}

	if p.exhausted && p.dataList.Len() == 0 {
		return nil, ErrDone
	}

	front := p.dataList.Front()
	p.dataList.Remove(front)
	value := front.Value.(T)
	return &value, nil
}

// loadPage fetches one page from the server and appends its decoded
// entries to dataList. The first message of a page carries only the
// continuation cookie; an empty cookie there means the set is already
// exhausted and no entries follow (spec.md "Page envelope" invariant). A
// stream that ends without sending any message carries no cookie and is
// treated the same as an empty cookie.
func (p *pageAdvancer[K, V, T]) loadPage(ctx context.Context) error {
	if err := p.bc.ensureUsable(); err != nil {
		return err
	}

	newCtx, cancel := p.bc.session.ensureContext(ctx)
	if cancel != nil {
		defer cancel()
	}

	env := p.bc.requests.page(p.reqType, p.payload, p.cookie)

	stream, err := p.bc.session.client.Page(newCtx, env)
	if err != nil {
		return wrapTransport(err)
	}

	first := true
	for {
		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return wrapTransport(err)
		}

		if first {
			first = false
			if msg.Entry != nil {
				return wrapProtocol("first page message carried an entry for map %q", p.bc.name)
			}
			p.cookie = msg.Cookie
			if len(p.cookie) == 0 {
				p.exhausted = true
			}
			continue
		}

		if msg.Entry == nil {
			return wrapProtocol("page message missing entry for map %q", p.bc.name)
		}
		decoded, err := p.helper.decode(p.bc, msg.Entry)
		if err != nil {
			return err
		}
		p.dataList.PushBack(decoded)
	}

	if first {
		p.cookie = nil
		p.exhausted = true
	}

	p.bc.session.metrics.PagesFetched.Inc()

	return nil
}
