// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package aggregator owns the chain-facing loop: it drains query artifacts,
// maintains the per-tempo moving score vector, and converts scores into
// submitted weights.
package aggregator

import (
	"math"
	"sort"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
)

// softmaxScale flattens the score deltas before exponentiation so a single
// outlier cannot absorb the whole weight mass.
const softmaxScale = 8.0

// SoftmaxWeights converts a moving score vector into 65535-scaled integer
// weights via a stable softmax of negative deltas from the maximum. An
// all-zero vector returns nil: a quiet window must not submit uniform
// weights.
func SoftmaxWeights(scores []float64) []int {
	if len(scores) == 0 || allZero(scores) {
		return nil
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s > best {
			best = s
		}
	}

	// exp((s - best) / scale) is always <= 1, so no overflow regardless of
	// score magnitude.
	exps := make([]float64, len(scores))
	sum := 0.0
	for i, s := range scores {
		exps[i] = math.Exp((s - best) / softmaxScale)
		sum += exps[i]
	}

	weights := make([]int, len(scores))
	for i := range exps {
		weights[i] = int(exps[i] / sum * chain.MaxWeight)
	}
	return weights
}

// DistributeWeightsByRanking allocates totalWeight as a geometric series
// over scores ranked descending: the best gets topPercentage of the total,
// the next topPercentage^2, and so on. Whatever integer truncation leaves
// over goes to the top rank, so the outputs always sum to int(totalWeight).
func DistributeWeightsByRanking(scores []float64, totalWeight float64, topPercentage float64) []int {
	if len(scores) == 0 {
		return nil
	}

	ranked := make([]int, len(scores))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return scores[ranked[a]] > scores[ranked[b]]
	})

	out := make([]int, len(scores))
	allocated := 0
	share := topPercentage
	for _, idx := range ranked {
		w := int(totalWeight * share)
		out[idx] = w
		allocated += w
		share *= topPercentage
	}

	out[ranked[0]] += int(totalWeight) - allocated
	return out
}

// BurnWeightsByRanking reserves perc of the total weight mass for the burn
// hotkey's UID and redistributes the remainder over the other miners by
// ranking. It is defensive: any size mismatch, absent burn hotkey, or
// out-of-bounds UID returns the input unchanged.
func BurnWeightsByRanking(weights []float64, mg *chain.Metagraph, burnHotkey string, perc float64) []float64 {
	if mg == nil || len(weights) != mg.Size() || allZero(weights) {
		return weights
	}
	burnUID := mg.UIDForHotkey(burnHotkey)
	if burnUID < 0 || burnUID >= len(weights) {
		return weights
	}

	total := 0.0
	for _, w := range weights {
		total += w
	}

	// Rank everything except the burn slot.
	others := make([]float64, 0, len(weights)-1)
	otherUIDs := make([]int, 0, len(weights)-1)
	for uid, w := range weights {
		if uid == burnUID {
			continue
		}
		others = append(others, w)
		otherUIDs = append(otherUIDs, uid)
	}

	distributed := DistributeWeightsByRanking(others, (1-perc)*total, 0.5)

	out := make([]float64, len(weights))
	out[burnUID] = perc * total
	for i, uid := range otherUIDs {
		out[uid] = float64(distributed[i])
	}
	return out
}

func allZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
