// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package aggregator

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
)

func TestSoftmaxWeightsQuietWindow(t *testing.T) {
	assert.Nil(t, SoftmaxWeights(nil))
	assert.Nil(t, SoftmaxWeights([]float64{0, 0, 0}))
}

func TestSoftmaxWeightsOrdering(t *testing.T) {
	weights := SoftmaxWeights([]float64{2.0, -0.4, 0, 1.2})
	require.Len(t, weights, 4)

	// Higher score, higher weight.
	assert.Greater(t, weights[0], weights[3])
	assert.Greater(t, weights[3], weights[2])
	assert.Greater(t, weights[2], weights[1])

	total := 0
	for _, w := range weights {
		assert.GreaterOrEqual(t, w, 0)
		assert.LessOrEqual(t, w, chain.MaxWeight)
		total += w
	}
	// Integer truncation only ever loses mass.
	assert.LessOrEqual(t, total, chain.MaxWeight)
	assert.Greater(t, total, chain.MaxWeight-len(weights))
}

func TestSoftmaxWeightsExtremeScoresNoOverflow(t *testing.T) {
	weights := SoftmaxWeights([]float64{1e8, -1e8, 3})
	require.Len(t, weights, 3)
	for _, w := range weights {
		assert.GreaterOrEqual(t, w, 0)
		assert.LessOrEqual(t, w, chain.MaxWeight)
	}
}

func TestDistributeWeightsByRankingProperties(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 200
	properties := gopter.NewProperties(params)

	scoresGen := gen.SliceOf(gen.Float64Range(-100, 100)).SuchThat(func(s []float64) bool {
		return len(s) > 0
	})

	properties.Property("outputs sum exactly to the total", prop.ForAll(
		func(scores []float64) bool {
			out := DistributeWeightsByRanking(scores, 65535, 0.5)
			sum := 0
			for _, w := range out {
				sum += w
			}
			return sum == 65535
		}, scoresGen))

	properties.Property("higher score never gets less weight", prop.ForAll(
		func(scores []float64) bool {
			out := DistributeWeightsByRanking(scores, 65535, 0.5)
			for i := range scores {
				for j := range scores {
					if scores[i] > scores[j] && out[i] < out[j] {
						return false
					}
				}
			}
			return true
		}, scoresGen))

	properties.Property("all outputs non-negative", prop.ForAll(
		func(scores []float64) bool {
			for _, w := range DistributeWeightsByRanking(scores, 65535, 0.5) {
				if w < 0 {
					return false
				}
			}
			return true
		}, scoresGen))

	properties.TestingRun(t)
}

func TestDistributeWeightsByRankingRemainderToTop(t *testing.T) {
	out := DistributeWeightsByRanking([]float64{1, 3, 2}, 100, 0.5)
	// Geometric shares: 50, 25, 12; remainder 13 tops up the best rank.
	assert.Equal(t, []int{12, 63, 25}, out)
}

func burnMetagraph() *chain.Metagraph {
	return &chain.Metagraph{
		NetUID:  70,
		Hotkeys: []string{"m0", "burn", "m2", "m3"},
	}
}

func TestBurnWeightsByRanking(t *testing.T) {
	weights := []float64{10, 0, 30, 20}
	out := BurnWeightsByRanking(weights, burnMetagraph(), "burn", 0.3)
	require.Len(t, out, 4)

	assert.InDelta(t, 0.3*60, out[1], 1e-10)
	// Ranking over the remaining 70%: m2 ranks first, then m3, then m0.
	assert.Greater(t, out[2], out[3])
	assert.Greater(t, out[3], out[0])
}

func TestBurnWeightsByRankingDefensive(t *testing.T) {
	mg := burnMetagraph()

	short := []float64{1, 2}
	assert.Equal(t, short, BurnWeightsByRanking(short, mg, "burn", 0.3))

	weights := []float64{1, 2, 3, 4}
	assert.Equal(t, weights, BurnWeightsByRanking(weights, mg, "absent", 0.3))
	assert.Equal(t, weights, BurnWeightsByRanking(weights, nil, "burn", 0.3))

	zeros := []float64{0, 0, 0, 0}
	assert.Equal(t, zeros, BurnWeightsByRanking(zeros, mg, "burn", 0.3))
}

func TestBurnWeightsPreservesMassWithinTruncation(t *testing.T) {
	weights := []float64{5, 1, 7, 3}
	out := BurnWeightsByRanking(weights, burnMetagraph(), "burn", 0.3)

	inSum, outSum := 0.0, 0.0
	for i := range weights {
		inSum += weights[i]
		outSum += out[i]
	}
	assert.LessOrEqual(t, math.Abs(inSum-outSum), float64(len(weights)))
}
