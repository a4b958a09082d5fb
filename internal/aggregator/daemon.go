// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/results"
	"github.com/dfusionai/Vericore-sub000/internal/sink"
)

// updateProbeEvery is the iteration cadence of the self-update probe.
const updateProbeEvery = 5

// ErrUpdated signals that the checkout moved and the process must restart
// on the new code.
var ErrUpdated = errors.New("aggregator: code updated, restart required")

// windowReport is the archival record of one aggregation window.
type windowReport struct {
	Timestamp    time.Time                 `json:"timestamp"`
	Responses    []*protocol.QueryResponse `json:"responses"`
	MovingScores []float64                 `json:"moving_scores"`
	Weights      []int                     `json:"weights"`
	Incentives   []float64                 `json:"incentives"`
}

// Daemon is the long-lived chain-facing loop. It shares nothing with the
// query handler except the results directory.
type Daemon struct {
	chain   chain.Client
	store   *results.Store
	sink    *sink.Sink
	updater *Updater

	hotkey   string
	interval time.Duration

	// step counts loop iterations, driving the self-update cadence. It
	// starts at zero, so the first probe happens on the fifth iteration.
	step int
}

func NewDaemon(client chain.Client, store *results.Store, snk *sink.Sink, updater *Updater, hotkey string, interval time.Duration) *Daemon {
	return &Daemon{
		chain:    client,
		store:    store,
		sink:     snk,
		updater:  updater,
		hotkey:   hotkey,
		interval: interval,
	}
}

// Run loops until ctx is cancelled or a self-update lands. A cancelled ctx
// finishes the in-flight iteration before returning, so a drained window is
// never half-submitted.
func (d *Daemon) Run(ctx context.Context) error {
	log.Infof("aggregator started, tick %s", d.interval)

	for {
		d.step++
		if err := d.iterate(context.WithoutCancel(ctx)); err != nil {
			log.Errorf("aggregation iteration failed: %v", err)
		}

		if d.updater != nil && d.step%updateProbeEvery == 0 && d.updater.Probe() {
			return ErrUpdated
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(d.interval):
		}
	}
}

// iterate runs one loop body: check the submission window and aggregate
// when it is open.
func (d *Daemon) iterate(ctx context.Context) error {
	mg, err := d.chain.SyncMetagraph(ctx)
	if err != nil {
		return fmt.Errorf("sync metagraph: %w", err)
	}

	uid := mg.UIDForHotkey(d.hotkey)
	if uid < 0 {
		return fmt.Errorf("validator hotkey %s not registered on netuid %d", d.hotkey, mg.NetUID)
	}

	blocks, err := d.chain.BlocksSinceLastUpdate(ctx, uid)
	if err != nil {
		return fmt.Errorf("blocks since last update: %w", err)
	}
	tempo, err := d.chain.Tempo(ctx)
	if err != nil {
		return fmt.Errorf("read tempo: %w", err)
	}

	if blocks <= tempo+1 {
		log.Debugf("window closed: %d blocks since update, tempo %d", blocks, tempo)
		return nil
	}
	return d.aggregateWindow(ctx, mg)
}

// aggregateWindow drains the results queue, folds scores into a fresh
// moving vector sized to the current metagraph, and submits weights.
func (d *Daemon) aggregateWindow(ctx context.Context, mg *chain.Metagraph) error {
	responses := d.store.Drain()
	movingScores := make([]float64, mg.Size())

	for _, resp := range responses {
		for _, r := range resp.Results {
			if r.MinerUID < 0 || r.MinerUID >= len(movingScores) {
				log.Warnf("dropping score for stale uid %d in %s", r.MinerUID, resp.RequestID)
				continue
			}
			movingScores[r.MinerUID] += r.FinalScore
		}
	}

	weights := SoftmaxWeights(movingScores)
	if weights == nil {
		log.Info("quiet window, skipping weight submission")
		return nil
	}

	uids := make([]int, len(weights))
	for i := range uids {
		uids[i] = i
	}
	if err := d.chain.SetWeights(ctx, uids, weights); err != nil {
		// The drained scores are gone; the next window starts clean and the
		// chain keeps the previous weights until then.
		return fmt.Errorf("set weights: %w", err)
	}

	incentives := d.fetchIncentives(ctx)
	d.sink.Forward(ctx, fmt.Sprintf("aggregation-%d", time.Now().Unix()), windowReport{
		Timestamp:    time.Now().UTC(),
		Responses:    responses,
		MovingScores: movingScores,
		Weights:      weights,
		Incentives:   incentives,
	})

	log.Infof("window aggregated: %d artifacts, %d uids weighted", len(responses), len(weights))
	return nil
}

func (d *Daemon) fetchIncentives(ctx context.Context) []float64 {
	neurons, err := d.chain.Neurons(ctx)
	if err != nil {
		log.Warnf("fetch incentives: %v", err)
		return nil
	}
	incentives := make([]float64, len(neurons))
	for i, n := range neurons {
		incentives[i] = n.Incentive
	}
	return incentives
}
