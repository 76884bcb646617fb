/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/onsi/gomega"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// scriptedCallClient lets a test supply a handler per RequestType instead of
// a single static response, so Put/Get round trips can echo back the value
// the test just serialized.
type scriptedCallClient struct {
	*fakeClient
	handlers map[wire.RequestType]func(*wire.Envelope) *wire.Response
}

func newScriptedCallClient() *scriptedCallClient {
	return &scriptedCallClient{
		fakeClient: newFakeClient(),
		handlers:   map[wire.RequestType]func(*wire.Envelope) *wire.Response{},
	}
}

func (c *scriptedCallClient) Call(ctx context.Context, req *wire.Envelope) (*wire.Response, error) {
	if h, ok := c.handlers[req.Type]; ok {
		return h(req), nil
	}
	return c.fakeClient.Call(ctx, req)
}

func TestNamedMapPutThenGetRoundTrips(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newScriptedCallClient()
	session := newTestSession(client)

	var stored valueResult
	client.handlers[wire.RequestPut] = func(req *wire.Envelope) *wire.Response {
		payload, _ := json.Marshal(valueResult{Present: false})
		return &wire.Response{ID: req.ID, Payload: payload}
	}
	client.handlers[wire.RequestGet] = func(req *wire.Envelope) *wire.Response {
		payload, _ := json.Marshal(stored)
		return &wire.Response{ID: req.ID, Payload: payload}
	}

	nm, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	prev, err := nm.Put(context.Background(), 1, "Alice")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(prev).Should(gomega.BeNil())

	stored = valueResult{Present: true, Value: mustSerializeString(t, "Alice")}

	value, err := nm.Get(context.Background(), 1)
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(value).ShouldNot(gomega.BeNil())
	g.Expect(*value).Should(gomega.Equal("Alice"))
}

func mustSerializeString(t *testing.T, v string) []byte {
	t.Helper()
	data, err := NewSerializer[string]("json").Serialize(v)
	if err != nil {
		t.Fatalf("serialize failed: %v", err)
	}
	return data
}

func TestGetNamedMapCachesByName(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)

	first, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	second, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	g.Expect(first).Should(gomega.BeIdenticalTo(second))
}

func TestGetNamedMapRejectsTypeMismatch(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)

	_, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	_, err = GetNamedMap[int, int](session, "people")
	g.Expect(err).Should(gomega.HaveOccurred())
}

func TestNamedMapReleaseMarksUnusable(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)

	nm, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	nm.Release()

	_, err = nm.Get(context.Background(), 1)
	g.Expect(err).Should(gomega.HaveOccurred())
}
