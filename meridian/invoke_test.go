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

	"github.com/meridiandb/meridian-go-client/meridian/aggregators"
	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
	"github.com/meridiandb/meridian-go-client/meridian/processors"
)

func TestAggregateDeserializesResult(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)

	countBytes, err := NewSerializer[int64]("json").Serialize(3)
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	payload, err := json.Marshal(aggregateResult{Value: countBytes})
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	client.callResponses[wire.RequestAggregate] = &wire.Response{Payload: payload}

	nm, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	count, err := Aggregate[int, string, int64](context.Background(), nm, aggregators.Count())
	g.Expect(err).ShouldNot(gomega.HaveOccurred())
	g.Expect(*count).Should(gomega.Equal(int64(3)))
}

func TestInvokeAllKeysStreamsPerKeyResults(t *testing.T) {
	g := gomega.NewWithT(t)

	client := newFakeClient()
	session := newTestSession(client)

	v1, _ := NewSerializer[string]("json").Serialize("ALICE")
	v2, _ := NewSerializer[string]("json").Serialize("BOB")
	client.pages = [][]*wire.PageEnvelope{
		{
			{Cookie: []byte("page-1")},
			{Entry: &wire.PageEntry{Value: v1}},
			{Entry: &wire.PageEntry{Value: v2}},
		},
	}

	nm, err := GetNamedMap[int, string](session, "people")
	g.Expect(err).ShouldNot(gomega.HaveOccurred())

	ch := InvokeAllKeys[int, string, string](context.Background(), nm, []int{1, 2}, processors.Extractor[string]("name"))

	var results []string
	for r := range ch {
		g.Expect(r.Err).ShouldNot(gomega.HaveOccurred())
		results = append(results, r.Value)
	}
	g.Expect(results).Should(gomega.Equal([]string{"ALICE", "BOB"}))
}
