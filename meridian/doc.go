/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

// Package meridian is a client library for a remote, distributed
// key-value cache accessed over a long-lived bidirectional gRPC stream.
//
// A Session owns the connection and is used to obtain NamedMap/NamedCache
// instances:
//
//	session, err := meridian.NewSession(ctx, meridian.WithAddress("localhost:1408"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	people, err := meridian.GetNamedMap[int, Person](session, "people")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	_, err = people.Put(ctx, 1, Person{Name: "Alice"})
//
// Two subsystems underpin every map: an events manager that multiplexes
// every local MapListener over one duplex stream per map, coalescing
// listeners registered against the same key or filter into a single
// server subscription; and a page advancer that lazily pages through
// server-held key/entry/value sets one page at a time rather than
// materializing them client-side.
package meridian
