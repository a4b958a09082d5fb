// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sink

import (
	"context"
	"encoding/hex"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/wallet"
)

const testSeed = "0x1122334455667788112233445566778811223344556677881122334455667788"

func TestForwardSignsRequestID(t *testing.T) {
	w, err := wallet.FromSeedHex(testSeed)
	require.NoError(t, err)

	var gotWallet, gotSig, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/store_json_response", r.URL.Path)
		gotWallet = r.Header.Get("wallet")
		gotSig = r.Header.Get("signature")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
	}))
	defer srv.Close()

	s := New(srv.URL, true, w)
	s.ForwardArtifact(context.Background(), &protocol.QueryResponse{RequestID: "req-42", Statement: "water is wet"})

	assert.Equal(t, w.Address(), gotWallet)
	assert.Equal(t, "req-42", gjson.Get(gotBody, "request_id").String())

	sig, err := hex.DecodeString(strings.TrimPrefix(gotSig, "0x"))
	require.NoError(t, err)
	assert.True(t, w.Verify([]byte("req-42"), sig))
}

func TestForwardDisabled(t *testing.T) {
	w, err := wallet.FromSeedHex(testSeed)
	require.NoError(t, err)

	hit := false
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		hit = true
	}))
	defer srv.Close()

	New(srv.URL, false, w).Forward(context.Background(), "x", map[string]string{"a": "b"})
	New("", true, w).Forward(context.Background(), "x", map[string]string{"a": "b"})
	assert.False(t, hit)
}
