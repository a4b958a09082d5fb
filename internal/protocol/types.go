// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package protocol defines the wire and artifact value objects exchanged
// between the intake API, miners, the snippet validator, and the aggregator.
package protocol

import "time"

// Miner result statuses.
const (
	StatusOK         = "ok"
	StatusNoResponse = "no_response"
)

// NoResponseScore is the raw score recorded for a miner that returned no
// usable synapse within the timeout.
const NoResponseScore = -5.0

// FinalScoreLimit bounds a miner's final score on both sides.
const FinalScoreLimit = 3.0

// StatementQuery is one fact-check request as dispatched to miners.
type StatementQuery struct {
	RequestID string   `json:"request_id"`
	Statement string   `json:"statement"`
	Sources   []string `json:"sources,omitempty"`
}

// Evidence is a single (url, excerpt) pair proposed by a miner. The excerpt
// is claimed to appear verbatim on the page behind the URL.
type Evidence struct {
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
}

// SynapseResponse is the miner's reply to a StatementQuery.
type SynapseResponse struct {
	VeridexResponse []Evidence `json:"veridex_response"`
}

// NLIDistribution is a 3-way probability distribution over the relation
// between a statement and a snippet. The three fields sum to ~1 whenever the
// classifier was invoked.
type NLIDistribution struct {
	Contradiction float64 `json:"contradiction"`
	Neutral       float64 `json:"neutral"`
	Entailment    float64 `json:"entailment"`
}

// LocalScore derives the per-snippet semantic score from the distribution:
// decisive relations (contradiction or entailment) count for, neutrality
// counts against. The result lies in [-1, 1].
func (d NLIDistribution) LocalScore() float64 {
	return d.Contradiction + d.Entailment - d.Neutral
}

// StatementVerdict is the validator's judgment of one piece of evidence.
type StatementVerdict struct {
	URL                      string          `json:"url"`
	Excerpt                  string          `json:"excerpt"`
	Domain                   string          `json:"domain"`
	SnippetFound             bool            `json:"snippet_found"`
	SnippetScore             float64         `json:"snippet_score"`
	SnippetScoreReason       Reason          `json:"snippet_score_reason"`
	LocalScore               float64         `json:"local_score"`
	NLI                      NLIDistribution `json:"nli_distribution"`
	ContextSimilarityScore   float64         `json:"context_similarity_score"`
	StatementSimilarityScore float64         `json:"statement_similarity_score"`
	ApprovedURLMultiplier    float64         `json:"approved_url_multiplier"`
	PageText                 string          `json:"page_text,omitempty"`
}

// RejectionVerdict builds a terminal verdict for a cascade short-circuit.
// The score comes from the central score table for the tag.
func RejectionVerdict(ev Evidence, domain string, reason Reason) StatementVerdict {
	return StatementVerdict{
		URL:                ev.URL,
		Excerpt:            ev.Excerpt,
		Domain:             domain,
		SnippetFound:       false,
		SnippetScore:       reason.Score(),
		SnippetScoreReason: reason,
		LocalScore:         reason.Score(),
	}
}

// MinerResult carries one miner's scored evidence for one statement.
type MinerResult struct {
	MinerHotkey      string             `json:"miner_hotkey"`
	MinerUID         int                `json:"miner_uid"`
	Status           string             `json:"status"`
	ElapsedTime      float64            `json:"elapsed_time"`
	SpeedFactor      float64            `json:"speed_factor"`
	RawScore         float64            `json:"raw_score"`
	FinalScore       float64            `json:"final_score"`
	VericoreVerdicts []StatementVerdict `json:"vericore_responses"`
}

// QueryResponse is the per-query artifact persisted to the results directory
// and returned to the intake caller. It is the sole handoff between the query
// handler and the aggregator.
type QueryResponse struct {
	RequestID        string        `json:"request_id"`
	Statement        string        `json:"statement"`
	Sources          []string      `json:"sources,omitempty"`
	Timestamp        time.Time     `json:"timestamp"`
	TotalElapsedTime float64       `json:"total_elapsed_time"`
	ValidatorUID     int           `json:"validator_uid"`
	ValidatorHotkey  string        `json:"validator_hotkey"`
	Results          []MinerResult `json:"results"`
}

// ClampFinalScore bounds a composed miner score to [-FinalScoreLimit,
// FinalScoreLimit].
func ClampFinalScore(score float64) float64 {
	if score > FinalScoreLimit {
		return FinalScoreLimit
	}
	if score < -FinalScoreLimit {
		return -FinalScoreLimit
	}
	return score
}
