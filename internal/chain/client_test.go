// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"math/big"
	"testing"

	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/stretchr/testify/assert"
)

func TestAxonEndpoint(t *testing.T) {
	assert.Equal(t, "1.2.3.4:8091", AxonInfo{IP: "1.2.3.4", Port: 8091}.Endpoint())
	assert.Equal(t, "", AxonInfo{IP: "1.2.3.4"}.Endpoint())
	assert.Equal(t, "", AxonInfo{Port: 8091}.Endpoint())
}

func TestUIDForHotkey(t *testing.T) {
	mg := &Metagraph{Hotkeys: []string{"alice", "bob", "carol"}}
	assert.Equal(t, 1, mg.UIDForHotkey("bob"))
	assert.Equal(t, -1, mg.UIDForHotkey("dave"))
	assert.Equal(t, 3, mg.Size())
}

func TestDecodeIP(t *testing.T) {
	v4 := types.NewU128(*big.NewInt(0x01020304))
	assert.Equal(t, "1.2.3.4", decodeIP(v4, 4))

	zero := types.NewU128(*big.NewInt(0))
	assert.Equal(t, "", decodeIP(zero, 4))

	loopback6 := types.NewU128(*big.NewInt(1))
	assert.Equal(t, "::1", decodeIP(loopback6, 6))
}
