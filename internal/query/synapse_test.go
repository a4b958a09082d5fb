// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

// axonFor turns a httptest server address into an AxonInfo as the metagraph
// would advertise it.
func axonFor(t *testing.T, srv *httptest.Server) chain.AxonInfo {
	t.Helper()
	host, portStr, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return chain.AxonInfo{UID: 1, Hotkey: "m1", IP: host, Port: port}
}

func TestHTTPMinerClientReachesAxon(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/veridex_query", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "water is wet", gjson.GetBytes(body, "statement").String())

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"veridex_response":[{"url":"https://example.org/a","excerpt":"evidence"}]}`))
	}))
	defer srv.Close()

	client := NewHTTPMinerClient()
	synapse, err := client.Query(context.Background(), axonFor(t, srv), protocol.StatementQuery{
		RequestID: "req-1",
		Statement: "water is wet",
	})
	require.NoError(t, err)
	require.Equal(t, 1, hits)
	require.Len(t, synapse.VeridexResponse, 1)
	assert.Equal(t, "https://example.org/a", synapse.VeridexResponse[0].URL)
}

func TestHTTPMinerClientErrors(t *testing.T) {
	client := NewHTTPMinerClient()

	_, err := client.Query(context.Background(), chain.AxonInfo{UID: 3}, protocol.StatementQuery{})
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err = client.Query(context.Background(), axonFor(t, srv), protocol.StatementQuery{})
	assert.ErrorContains(t, err, "502")
}
