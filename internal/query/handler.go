// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package query

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/logging"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/results"
)

// speedFullSeconds is the elapsed time at which a miner's speed factor
// reaches zero.
const speedFullSeconds = 15.0

// ErrNoMetagraph is returned while the first chain sync is still pending.
var ErrNoMetagraph = errors.New("query: metagraph not synced yet")

// EvidenceValidator judges one piece of evidence. It never fails; every
// failure mode is a verdict.
type EvidenceValidator interface {
	ValidateSnippet(ctx context.Context, requestID string, minerUID int, statement string, ev protocol.Evidence) protocol.StatementVerdict
}

// MetagraphSource yields the most recent metagraph snapshot, or nil before
// the first sync.
type MetagraphSource interface {
	Metagraph() *chain.Metagraph
}

// ArtifactSink receives finished artifacts for archival. May be nil.
type ArtifactSink interface {
	ForwardArtifact(ctx context.Context, resp *protocol.QueryResponse)
}

// Handler owns the miner fan-out for one validator process.
type Handler struct {
	miners    MinerClient
	validator EvidenceValidator
	meta      MetagraphSource
	store     *results.Store
	sink      ArtifactSink

	hotkey     string
	sampleSize int
	timeout    time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewHandler builds a query handler. hotkey identifies this validator in
// artifacts and excludes its own axon from sampling. snk may be nil.
func NewHandler(miners MinerClient, v EvidenceValidator, meta MetagraphSource, store *results.Store, snk ArtifactSink, hotkey string, sampleSize int, timeout time.Duration) *Handler {
	return &Handler{
		miners:     miners,
		validator:  v,
		meta:       meta,
		store:      store,
		sink:       snk,
		hotkey:     hotkey,
		sampleSize: sampleSize,
		timeout:    timeout,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// HandleQuery runs one statement against a fresh miner sample and persists
// the composed artifact.
func (h *Handler) HandleQuery(ctx context.Context, statement string, sources []string) (*protocol.QueryResponse, error) {
	requestID := uuid.NewString()
	logger := logging.WithRequestID(requestID)
	started := time.Now()

	mg := h.meta.Metagraph()
	if mg == nil {
		return nil, ErrNoMetagraph
	}

	axons := h.sampleAxons(mg)
	logger.Infof("dispatching statement to %d miners", len(axons))

	q := protocol.StatementQuery{RequestID: requestID, Statement: statement, Sources: sources}
	minerResults := make([]protocol.MinerResult, len(axons))

	g, gctx := errgroup.WithContext(ctx)
	for i, axon := range axons {
		g.Go(func() error {
			minerResults[i] = h.queryMiner(gctx, q, axon)
			return nil
		})
	}
	g.Wait()

	sort.Slice(minerResults, func(i, j int) bool {
		return minerResults[i].MinerUID < minerResults[j].MinerUID
	})

	resp := &protocol.QueryResponse{
		RequestID:        requestID,
		Statement:        statement,
		Sources:          sources,
		Timestamp:        time.Now().UTC(),
		TotalElapsedTime: time.Since(started).Seconds(),
		ValidatorUID:     mg.UIDForHotkey(h.hotkey),
		ValidatorHotkey:  h.hotkey,
		Results:          minerResults,
	}

	if err := h.store.Write(resp); err != nil {
		logger.Errorf("persist artifact: %v", err)
		return nil, err
	}
	if h.sink != nil {
		// Detached from the request context so a disconnecting intake
		// client cannot abort the archival post.
		go h.sink.ForwardArtifact(context.WithoutCancel(ctx), resp)
	}
	return resp, nil
}

// queryMiner dispatches one synapse and composes that miner's result.
func (h *Handler) queryMiner(ctx context.Context, q protocol.StatementQuery, axon chain.AxonInfo) protocol.MinerResult {
	logger := logging.WithRequestID(q.RequestID).WithField("uid", axon.UID)

	result := protocol.MinerResult{
		MinerHotkey: axon.Hotkey,
		MinerUID:    axon.UID,
	}

	callCtx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	started := time.Now()
	synapse, err := h.miners.Query(callCtx, axon, q)
	result.ElapsedTime = elapsedSince(started)

	if err != nil || synapse == nil || synapse.VeridexResponse == nil {
		if err != nil {
			logger.Warnf("miner synapse failed: %v", err)
		}
		result.Status = protocol.StatusNoResponse
		result.RawScore = protocol.NoResponseScore
		result.FinalScore = protocol.ClampFinalScore(result.RawScore)
		return result
	}

	result.Status = protocol.StatusOK
	result.SpeedFactor = SpeedFactor(result.ElapsedTime)
	result.VericoreVerdicts = h.validateAll(ctx, q.RequestID, axon.UID, q.Statement, synapse.VeridexResponse)
	result.RawScore = composeRawScore(result.VericoreVerdicts)
	result.FinalScore = protocol.ClampFinalScore(result.RawScore * result.SpeedFactor)
	return result
}

// validateAll runs the snippet cascade concurrently over one miner's
// evidence list, preserving evidence order in the verdicts.
func (h *Handler) validateAll(ctx context.Context, requestID string, minerUID int, statement string, evidence []protocol.Evidence) []protocol.StatementVerdict {
	verdicts := make([]protocol.StatementVerdict, len(evidence))
	var wg sync.WaitGroup
	for i, ev := range evidence {
		wg.Add(1)
		go func() {
			defer wg.Done()
			verdicts[i] = h.validator.ValidateSnippet(ctx, requestID, minerUID, statement, ev)
		}()
	}
	wg.Wait()
	return verdicts
}

// composeRawScore sums the per-snippet contributions: rejection verdicts
// carry their tag score, accepted ones their local score discounted by
// domain reuse and the approved-site multiplier.
func composeRawScore(verdicts []protocol.StatementVerdict) float64 {
	total := 0.0
	domainUses := make(map[string]int)
	for _, v := range verdicts {
		if !v.SnippetFound {
			total += v.SnippetScore
			continue
		}
		factor := DomainFactor(domainUses[v.Domain])
		domainUses[v.Domain]++
		total += v.LocalScore * factor * v.ApprovedURLMultiplier
	}
	return total
}

// SpeedFactor maps a miner's elapsed seconds onto [0, 1], hitting zero at
// speedFullSeconds.
func SpeedFactor(elapsedSeconds float64) float64 {
	return math.Max(0, 1-elapsedSeconds/speedFullSeconds)
}

// DomainFactor discounts the n-th reuse of one registrable domain within a
// single miner's response by 1/2^n.
func DomainFactor(priorUses int) float64 {
	return 1 / math.Pow(2, float64(priorUses))
}

// sampleAxons draws up to sampleSize servable axons uniformly without
// replacement, skipping the validator's own slot.
func (h *Handler) sampleAxons(mg *chain.Metagraph) []chain.AxonInfo {
	candidates := make([]chain.AxonInfo, 0, len(mg.Axons))
	for _, axon := range mg.Axons {
		if axon.Endpoint() == "" || axon.Hotkey == h.hotkey {
			continue
		}
		candidates = append(candidates, axon)
	}

	h.rngMu.Lock()
	h.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	h.rngMu.Unlock()

	if len(candidates) > h.sampleSize {
		candidates = candidates[:h.sampleSize]
	}
	return candidates
}
