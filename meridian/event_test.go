/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"testing"

	"github.com/onsi/gomega"
)

func TestEventEmitter(t *testing.T) {
	g := gomega.NewWithT(t)
	var value string

	emitter := newEventEmitter[string, string]()
	emitter.on("a", func(v string) { value = v })

	emitter.emit("a", "event1")
	g.Expect(value).Should(gomega.Equal("event1"))

	emitter.emit("a", "event2")
	g.Expect(value).Should(gomega.Equal("event2"))

	emitter.emit("b", "ignored")
	g.Expect(value).Should(gomega.Equal("event2"))
}

func TestMapListenerDispatchesByType(t *testing.T) {
	g := gomega.NewWithT(t)

	var inserted, updated, deleted int
	listener := NewMapListener[int, string]().
		OnInserted(func(MapEvent[int, string]) { inserted++ }).
		OnUpdated(func(MapEvent[int, string]) { updated++ }).
		OnDeleted(func(MapEvent[int, string]) { deleted++ })

	listener.dispatch(&mapEvent[int, string]{eventType: EntryInserted})
	listener.dispatch(&mapEvent[int, string]{eventType: EntryInserted})
	listener.dispatch(&mapEvent[int, string]{eventType: EntryUpdated})
	listener.dispatch(&mapEvent[int, string]{eventType: EntryDeleted})

	g.Expect(inserted).Should(gomega.Equal(2))
	g.Expect(updated).Should(gomega.Equal(1))
	g.Expect(deleted).Should(gomega.Equal(1))
}

func TestMapListenerOnAnyReceivesEveryType(t *testing.T) {
	g := gomega.NewWithT(t)

	var seen []MapEventType
	listener := NewMapListener[int, string]().OnAny(func(e MapEvent[int, string]) {
		seen = append(seen, e.Type())
	})

	listener.dispatch(&mapEvent[int, string]{eventType: EntryInserted})
	listener.dispatch(&mapEvent[int, string]{eventType: EntryUpdated})
	listener.dispatch(&mapEvent[int, string]{eventType: EntryDeleted})

	g.Expect(seen).Should(gomega.Equal([]MapEventType{EntryInserted, EntryUpdated, EntryDeleted}))
}

func TestSessionLifecycleListenerOnAny(t *testing.T) {
	g := gomega.NewWithT(t)

	var count int
	listener := NewSessionLifecycleListener().OnAny(func(SessionLifecycleEvent) { count++ })

	emitter := listener.getEmitter()
	emitter.emit(Connected, newSessionLifecycleEvent(nil, Connected))
	emitter.emit(Disconnected, newSessionLifecycleEvent(nil, Disconnected))
	emitter.emit(Reconnected, newSessionLifecycleEvent(nil, Reconnected))
	emitter.emit(Closed, newSessionLifecycleEvent(nil, Closed))

	g.Expect(count).Should(gomega.Equal(4))
}
