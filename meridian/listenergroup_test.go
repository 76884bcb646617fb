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
)

func newTestListenerGroup(t *testing.T) (*baseClient[int, string], *listenerGroup[int, string]) {
	t.Helper()
	client := newFakeClient()
	session := newTestSession(client)
	bc := newBaseClient[int, string](session, "numbers")
	bc.setSelf(newNamedMap[int, string](session, "numbers"))
	group := newKeyListenerGroup(bc.events, bc, "fp", encodeTestKey(t, bc, 1))
	return bc, group
}

func TestListenerGroupUpgradesToFullOnNonLiteJoin(t *testing.T) {
	g := gomega.NewWithT(t)
	_, group := newTestListenerGroup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	liteListener := NewMapListener[int, string]()
	fullListener := NewMapListener[int, string]()

	g.Expect(group.addListener(ctx, liteListener, true)).Should(gomega.Succeed())
	g.Expect(group.registeredLite).Should(gomega.BeTrue())

	g.Expect(group.addListener(ctx, fullListener, false)).Should(gomega.Succeed())
	g.Expect(group.registeredLite).Should(gomega.BeFalse())
	g.Expect(len(group.listeners)).Should(gomega.Equal(2))
}

func TestListenerGroupDowngradesToLiteWhenLastFullLeaves(t *testing.T) {
	g := gomega.NewWithT(t)
	_, group := newTestListenerGroup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	liteListener := NewMapListener[int, string]()
	fullListener := NewMapListener[int, string]()

	g.Expect(group.addListener(ctx, liteListener, true)).Should(gomega.Succeed())
	g.Expect(group.addListener(ctx, fullListener, false)).Should(gomega.Succeed())
	g.Expect(group.registeredLite).Should(gomega.BeFalse())

	g.Expect(group.removeListener(ctx, fullListener)).Should(gomega.Succeed())
	g.Expect(group.registeredLite).Should(gomega.BeTrue())
	g.Expect(len(group.listeners)).Should(gomega.Equal(1))
}

func TestListenerGroupNotifyFansOutToEveryMember(t *testing.T) {
	g := gomega.NewWithT(t)
	_, group := newTestListenerGroup(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	var a, b int
	listenerA := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { a++ })
	listenerB := NewMapListener[int, string]().OnAny(func(MapEvent[int, string]) { b++ })

	g.Expect(group.addListener(ctx, listenerA, false)).Should(gomega.Succeed())
	g.Expect(group.addListener(ctx, listenerB, false)).Should(gomega.Succeed())

	group.notify(&mapEvent[int, string]{eventType: EntryInserted})

	g.Expect(a).Should(gomega.Equal(1))
	g.Expect(b).Should(gomega.Equal(1))
}
