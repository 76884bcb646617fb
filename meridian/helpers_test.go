/*
 * Copyright (c) 2022, 2024 Oracle and/or its affiliates.
 * Licensed under the Universal Permissive License v 1.0 as shown at
 * https://oss.oracle.com/licenses/upl.
 */

package meridian

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/meridiandb/meridian-go-client/meridian/internal/wire"
)

// newTestSession builds a Session wired to client without dialing a real
// gRPC channel, for tests that exercise the events manager/page advancer
// against an in-memory fake.
func newTestSession(client wire.Client) *Session {
	return &Session{
		id:      uuid.New(),
		opts:    &SessionOptions{Format: defaultFormat, RequestTimeout: 5 * time.Second},
		log:     zap.NewNop().Sugar(),
		metrics: newMetrics(uuid.New().String()),
		client:  client,
		maps:    map[string]any{},
	}
}
