// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package results

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

func sample(requestID string) *protocol.QueryResponse {
	return &protocol.QueryResponse{
		RequestID: requestID,
		Statement: "Bitcoin is digital gold.",
		Timestamp: time.Now().UTC(),
		Results: []protocol.MinerResult{
			{MinerUID: 3, MinerHotkey: "hk3", Status: protocol.StatusOK, FinalScore: 1.2},
		},
	}
}

func TestWriteThenDrain(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Write(sample("req-a")))
	require.NoError(t, store.Write(sample("req-b")))

	drained := store.Drain()
	require.Len(t, drained, 2)

	// At-most-once: a second drain sees nothing.
	assert.Empty(t, store.Drain())

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "all artifacts deleted")
}

func TestDrainDeletesMalformedFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "broken.json"), []byte("{nope"), 0o644))
	require.NoError(t, store.Write(sample("req-ok")))

	drained := store.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "req-ok", drained[0].RequestID)

	entries, err := os.ReadDir(store.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "malformed file also deleted")
}

func TestDrainIgnoresForeignFiles(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("keep me"), 0o644))
	assert.Empty(t, store.Drain())

	_, err = os.Stat(filepath.Join(store.Dir(), "notes.txt"))
	assert.NoError(t, err, "non-json files untouched")
}

func TestWriteOverwritesSameRequestID(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first := sample("req-a")
	first.TotalElapsedTime = 1
	second := sample("req-a")
	second.TotalElapsedTime = 2

	require.NoError(t, store.Write(first))
	require.NoError(t, store.Write(second))

	drained := store.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, 2.0, drained[0].TotalElapsedTime)
}
