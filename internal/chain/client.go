// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package chain exposes the subnet's on-chain state: the metagraph of
// registered miners, tempo and block progress, and weight submission. The
// Client interface is the boundary the aggregator and query handler program
// against; Substrate is the production implementation.
package chain

import (
	"context"
	"net"
	"strconv"
)

// MaxWeight is the integer scale weights are submitted at.
const MaxWeight = 65535

// AxonInfo is one miner's advertised serving endpoint.
type AxonInfo struct {
	UID    int
	Hotkey string
	IP     string
	Port   int
}

// Endpoint returns the host:port for synapse dispatch, or empty when the
// miner advertises no address. The transport scheme is the caller's
// concern.
func (a AxonInfo) Endpoint() string {
	if a.IP == "" || a.Port == 0 {
		return ""
	}
	return net.JoinHostPort(a.IP, strconv.Itoa(a.Port))
}

// Metagraph is a point-in-time snapshot of the subnet directory. Slices are
// parallel and indexed by UID.
type Metagraph struct {
	NetUID  int
	Hotkeys []string
	Axons   []AxonInfo
	Stakes  []float64
}

// Size returns the number of registered neurons.
func (m *Metagraph) Size() int { return len(m.Hotkeys) }

// UIDForHotkey returns the slot of hotkey, or -1.
func (m *Metagraph) UIDForHotkey(hotkey string) int {
	for uid, hk := range m.Hotkeys {
		if hk == hotkey {
			return uid
		}
	}
	return -1
}

// Neuron carries the chain-observed incentive of one UID.
type Neuron struct {
	UID       int
	Incentive float64
}

// Client is the abstract chain surface.
type Client interface {
	// SyncMetagraph fetches a fresh snapshot of the subnet.
	SyncMetagraph(ctx context.Context) (*Metagraph, error)
	// BlocksSinceLastUpdate returns how many blocks have passed since
	// uid last submitted weights.
	BlocksSinceLastUpdate(ctx context.Context, uid int) (int, error)
	// Tempo returns the subnet's weight-submission cadence in blocks.
	Tempo(ctx context.Context) (int, error)
	// SetWeights submits MaxWeight-scaled weights for the given uids.
	SetWeights(ctx context.Context, uids []int, weights []int) error
	// Neurons returns the chain-observed incentives per UID.
	Neurons(ctx context.Context) ([]Neuron, error)
}
