/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"context"
	"testing"
	"time"

	"github.com/onsi/gomega"

	"github.com/meridiandb/meridian-go-client/meridian/filters"
	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

func TestAddKeyListenerSubscribesOnce(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)
	bc := newBaseClient[int, string](session, "numbers")
	bc.setSelf(newNamedMap[int, string](session, "numbers"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var fired int
	listenerA := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { fired++ })
	listenerB := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { fired++ })

	g.Expect(bc.events.addKeyListener(ctx, 1, listenerA, false)).Should(gomega.Succeed())
	g.Expect(bc.events.addKeyListener(ctx, 1, listenerB, false)).Should(gomega.Succeed())

	bc.events.groupMutex.RLock()
	group, ok := bc.events.keyGroups[fingerprint(encodeTestKey(t, bc, 1))]
	bc.events.groupMutex.RUnlock()
	g.Expect(ok).Should(gomega.BeTrue())
	g.Expect(len(group.listeners)).Should(gomega.Equal(2))

	families, err := session.Metrics().Registry().Gather()
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	var subscriptionRequests float64
	for _, mf := range families {
		if mf.GetName() == "meridian_events_subscription_requests_total" {
			subscriptionRequests = mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	g.Expect(subscriptionRequests).Should(gomega.Equal(1.0))
}

func TestRemoveKeyListenerUnsubscribesWhenLastLeaves(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)
	bc := newBaseClient[int, string](session, "numbers")
	bc.setSelf(newNamedMap[int, string](session, "numbers"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	listener := NewMapListener[int, string]()
	g.Expect(bc.events.addKeyListener(ctx, 1, listener, false)).Should(gomega.Succeed())
	g.Expect(bc.events.removeKeyListener(ctx, 1, listener)).Should(gomega.Succeed())

	bc.events.groupMutex.RLock()
	_, ok := bc.events.keyGroups[fingerprint(encodeTestKey(t, bc, 1))]
	bc.events.groupMutex.RUnlock()
	g.Expect(ok).Should(gomega.BeFalse())
}

func TestDispatchEventRoutesToFilterGroup(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)
	bc := newBaseClient[int, string](session, "numbers")
	bc.setSelf(newNamedMap[int, string](session, "numbers"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var received int
	listener := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { received++ })
	g.Expect(bc.events.addFilterListener(ctx, filters.Always(), listener, false)).Should(gomega.Succeed())

	bc.events.groupMutex.RLock()
	var filterID int64
	for id := range bc.events.filterIDToGroup {
		filterID = id
	}
	bc.events.groupMutex.RUnlock()

	bc.events.dispatch(&wire.ListenerResponse{
		Kind:      wire.ListenerResponseEvent,
		ID:        wire.EventInserted,
		Key:       encodeTestKey(t, bc, 1),
		FilterIDs: []int64{filterID},
	})

	g.Expect(received).Should(gomega.Equal(1))
}

// TestAddKeyListenerDoesNotStallOnInFlightEventForAnotherGroup guards
// against the deadlock class where a group lock held across the SUBSCRIBE
// ack-await would block recvLoop's dispatchEvent for an unrelated group's
// event, which in turn would prevent recvLoop from ever reaching the ack
// the blocked caller is waiting on. The event is queued ahead of the ack
// on the same stream so recvLoop must process it first, exactly as it
// would if the server interleaved an event with the subscribe response.
func TestAddKeyListenerDoesNotStallOnInFlightEventForAnotherGroup(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)
	bc := newBaseClient[int, string](session, "numbers")
	bc.setSelf(newNamedMap[int, string](session, "numbers"))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var received int
	existingListener := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { received++ })
	g.Expect(bc.events.addKeyListener(ctx, 2, existingListener, false)).Should(gomega.Succeed())

	stream, ok := bc.events.stream.(*fakeEventsStream)
	g.Expect(ok).Should(gomega.BeTrue())
	stream.pushEvent(&wire.ListenerResponse{ID: wire.EventInserted, Key: encodeTestKey(t, bc, 2)})

	done := make(chan error, 1)
	go func() {
		done <- bc.events.addKeyListener(ctx, 1, NewMapListener[int, string](), false)
	}()

	select {
	case err := <-done:
		g.Expect(err).ShouldNot(gomega.HaveOccurred())
	case <-time.After(time.Second):
		t.Fatal("addKeyListener for an unrelated key never returned; groupMutex is stalling recvLoop's dispatch")
	}
	g.Expect(received).Should(gomega.Equal(1))
}
