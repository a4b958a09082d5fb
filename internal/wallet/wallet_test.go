// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package wallet

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = "0x1122334455667788112233445566778811223344556677881122334455667788"

func TestFromSeedHex(t *testing.T) {
	w, err := FromSeedHex(testSeed)
	require.NoError(t, err)

	assert.NotEmpty(t, w.Address())
	assert.Equal(t, testSeed, w.SeedHex())

	// Same seed with no 0x prefix yields the same identity.
	w2, err := FromSeedHex(strings.TrimPrefix(testSeed, "0x"))
	require.NoError(t, err)
	assert.Equal(t, w.Address(), w2.Address())
}

func TestFromSeedHexRejectsBadInput(t *testing.T) {
	_, err := FromSeedHex("zzzz")
	require.Error(t, err)

	_, err = FromSeedHex("0x1234")
	require.Error(t, err)
}

func TestSignAndVerify(t *testing.T) {
	w, err := FromSeedHex(testSeed)
	require.NoError(t, err)

	msg := []byte("vericore.results:abc123")
	sig, err := w.Sign(msg)
	require.NoError(t, err)
	require.Len(t, sig, 64)

	assert.True(t, w.Verify(msg, sig))
	assert.False(t, w.Verify([]byte("tampered"), sig))
	assert.False(t, w.Verify(msg, sig[:32]))

	hexSig, err := w.SignHex(msg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hexSig, "0x"))
}

func TestSS58EncodePrefixLayout(t *testing.T) {
	pub := make([]byte, 32)
	for i := range pub {
		pub[i] = byte(i)
	}

	// Single-byte prefix: 1 prefix + 32 key + 2 checksum bytes.
	raw, err := base58.Decode(SS58Encode(pub, 42))
	require.NoError(t, err)
	require.Len(t, raw, 35)
	assert.Equal(t, byte(42), raw[0])
	assert.Equal(t, pub, raw[1:33])

	// Two-byte prefix: low 6 ident bits shifted into the first byte, the
	// rest swapped into the second.
	raw, err = base58.Decode(SS58Encode(pub, 255))
	require.NoError(t, err)
	require.Len(t, raw, 36)
	assert.Equal(t, byte(0x7f), raw[0])
	assert.Equal(t, byte(0xc0), raw[1])
	assert.Equal(t, pub, raw[2:34])

	raw, err = base58.Decode(SS58Encode(pub, 4242))
	require.NoError(t, err)
	assert.Equal(t, byte((4242&0x00fc)>>2)|0x40, raw[0])
	assert.Equal(t, byte(4242>>8)|byte((4242&0x0003)<<6), raw[1])
}
