// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonScoreTableClosed(t *testing.T) {
	for _, r := range Reasons() {
		assert.True(t, r.Valid(), "tag %q must be in the closed set", r)
	}
	assert.False(t, Reason("made_up_reason").Valid())
	assert.Equal(t, ReasonValidationError.Score(), Reason("made_up_reason").Score())
}

func TestRejectionVerdictUsesScoreTable(t *testing.T) {
	ev := Evidence{URL: "https://example.com/a", Excerpt: "something"}
	v := RejectionVerdict(ev, "example.com", ReasonSnippetIsStatement)

	require.Equal(t, ReasonSnippetIsStatement, v.SnippetScoreReason)
	assert.Equal(t, ReasonSnippetIsStatement.Score(), v.SnippetScore)
	assert.False(t, v.SnippetFound)
	assert.Equal(t, "example.com", v.Domain)
	assert.Equal(t, ev.URL, v.URL)
}

func TestLocalScoreBounds(t *testing.T) {
	cases := []struct {
		name string
		d    NLIDistribution
		want float64
	}{
		{"all entailment", NLIDistribution{Entailment: 1}, 1},
		{"all contradiction", NLIDistribution{Contradiction: 1}, 1},
		{"all neutral", NLIDistribution{Neutral: 1}, -1},
		{"mixed", NLIDistribution{Contradiction: 0.1, Neutral: 0.2, Entailment: 0.7}, 0.6},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, tc.d.LocalScore(), 1e-9)
		})
	}
}

func TestClampFinalScore(t *testing.T) {
	assert.Equal(t, 3.0, ClampFinalScore(12.5))
	assert.Equal(t, -3.0, ClampFinalScore(-7))
	assert.Equal(t, 1.25, ClampFinalScore(1.25))
}
