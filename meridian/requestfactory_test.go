/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"testing"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

func TestRequestFactoryUnaryStampsIncreasingIDs(t *testing.T) {
	session := newTestSession(newFakeClient())
	bc := newBaseClient[int, string](session, "numbers")

	first := bc.requests.unary(wire.RequestGet, nil)
	second := bc.requests.unary(wire.RequestGet, nil)

	if second.ID <= first.ID {
		t.Fatalf("expected increasing correlation ids, got %d then %d", first.ID, second.ID)
	}
	if first.Map != "numbers" {
		t.Fatalf("expected Map %q, got %q", "numbers", first.Map)
	}
}

func TestRequestFactoryPageCarriesCookie(t *testing.T) {
	session := newTestSession(newFakeClient())
	bc := newBaseClient[int, string](session, "numbers")

	env := bc.requests.page(wire.RequestNextKeyPage, nil, []byte("cookie-1"))
	if string(env.Cookie) != "cookie-1" {
		t.Fatalf("expected cookie to be carried through, got %q", env.Cookie)
	}
}

func TestRequestFactorySubscribeCarriesGroupTarget(t *testing.T) {
	session := newTestSession(newFakeClient())
	bc := newBaseClient[int, string](session, "numbers")
	lg := newKeyListenerGroup(bc.events, bc, "fp", []byte("key-bytes"))

	req := bc.requests.subscribe(lg, true, false, false, false)
	if req.UID == "" {
		t.Fatal("expected a non-empty UID")
	}
	if string(req.Key) != "key-bytes" {
		t.Fatalf("expected key bytes to be carried through, got %q", req.Key)
	}
	if !req.Subscribe {
		t.Fatal("expected Subscribe to be true")
	}
}
