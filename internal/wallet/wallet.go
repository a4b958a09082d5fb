// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package wallet holds the validator hotkey: an sr25519 keypair used to
// sign chain extrinsics and archival sink payloads, addressed by its SS58
// encoding.
package wallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ChainSafe/go-schnorrkel"
	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
)

// SS58Prefix is the generic substrate network prefix used by subtensor.
const SS58Prefix uint16 = 42

// Wallet is an sr25519 hotkey.
type Wallet struct {
	secret  *schnorrkel.SecretKey
	public  *schnorrkel.PublicKey
	address string
	seedHex string
}

// FromSeedHex builds a wallet from a 32-byte hex seed (with or without the
// 0x prefix).
func FromSeedHex(seedHex string) (*Wallet, error) {
	trimmed := strings.TrimPrefix(seedHex, "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("wallet: decode seed: %w", err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("wallet: seed must be 32 bytes, got %d", len(raw))
	}

	var mini [32]byte
	copy(mini[:], raw)
	miniSecret, err := schnorrkel.NewMiniSecretKeyFromRaw(mini)
	if err != nil {
		return nil, fmt.Errorf("wallet: create mini secret: %w", err)
	}

	secret := miniSecret.ExpandEd25519()
	public, err := secret.Public()
	if err != nil {
		return nil, fmt.Errorf("wallet: derive public key: %w", err)
	}

	return &Wallet{
		secret:  secret,
		public:  public,
		address: publicKeyToSS58(public, SS58Prefix),
		seedHex: "0x" + trimmed,
	}, nil
}

// Sign signs message under the substrate signing context and returns the
// 64-byte signature.
func (w *Wallet) Sign(message []byte) ([]byte, error) {
	context := schnorrkel.NewSigningContext([]byte("substrate"), message)
	sig, err := w.secret.Sign(context)
	if err != nil {
		return nil, fmt.Errorf("wallet: sign: %w", err)
	}
	encoded := sig.Encode()
	return encoded[:], nil
}

// SignHex signs message and returns the signature hex-encoded with a 0x
// prefix.
func (w *Wallet) SignHex(message []byte) (string, error) {
	sig, err := w.Sign(message)
	if err != nil {
		return "", err
	}
	return "0x" + hex.EncodeToString(sig), nil
}

// Verify checks a signature produced by Sign.
func (w *Wallet) Verify(message, sig []byte) bool {
	if len(sig) != 64 {
		return false
	}
	var raw [64]byte
	copy(raw[:], sig)
	signature := new(schnorrkel.Signature)
	if err := signature.Decode(raw); err != nil {
		return false
	}
	context := schnorrkel.NewSigningContext([]byte("substrate"), message)
	ok, err := w.public.Verify(signature, context)
	return err == nil && ok
}

// Address returns the SS58-encoded hotkey address.
func (w *Wallet) Address() string { return w.address }

// SeedHex returns the 0x-prefixed seed, as consumed by the substrate
// keyring for extrinsic signing.
func (w *Wallet) SeedHex() string { return w.seedHex }

func publicKeyToSS58(pubKey *schnorrkel.PublicKey, prefix uint16) string {
	pubKeyBytes := pubKey.Encode()
	return SS58Encode(pubKeyBytes[:], prefix)
}

// SS58Encode encodes a raw 32-byte public key as an SS58 address under the
// given network prefix.
func SS58Encode(pubKey []byte, prefix uint16) string {
	payload := make([]byte, 0, 35)

	if prefix < 64 {
		payload = append(payload, byte(prefix))
	} else {
		// Two-byte ident: upper 6 bits of the low byte first, then the
		// high bits swapped into the second byte.
		ident := prefix & 0x3fff
		payload = append(payload, byte((ident&0x00fc)>>2)|0x40)
		payload = append(payload, byte(ident>>8)|byte((ident&0x0003)<<6))
	}

	payload = append(payload, pubKey...)

	checksumInput := append([]byte("SS58PRE"), payload...)
	h, _ := blake2b.New(64, nil)
	h.Write(checksumInput)
	checksum := h.Sum(nil)

	payload = append(payload, checksum[0:2]...)
	return base58.Encode(payload)
}
