// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"context"
	"fmt"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

// Scorers bundles the three semantic capabilities behind per-engine pools.
// This is the surface the snippet validator consumes.
type Scorers struct {
	embedding *EmbeddingEngine
	nli       *NLIEngine
	assessor  *Assessor

	embedPool *Pool
	nliPool   *Pool
	llmPool   *Pool
}

// NewScorers wires the engines behind pools of poolSize slots each.
func NewScorers(embedding *EmbeddingEngine, nli *NLIEngine, assessor *Assessor, poolSize int) *Scorers {
	return &Scorers{
		embedding: embedding,
		nli:       nli,
		assessor:  assessor,
		embedPool: NewPool(poolSize),
		nliPool:   NewPool(poolSize),
		llmPool:   NewPool(poolSize),
	}
}

// Similarity returns the embedding cosine similarity of two texts in
// [-1, 1].
func (s *Scorers) Similarity(ctx context.Context, a, b string) (float64, error) {
	if s.embedding == nil || !s.embedding.IsEnabled() {
		return 0, fmt.Errorf("embedding engine unavailable")
	}

	var sim float64
	err := s.embedPool.With(ctx, func() error {
		va, err := s.embedding.Embed(a)
		if err != nil {
			return err
		}
		vb, err := s.embedding.Embed(b)
		if err != nil {
			return err
		}
		sim = CosineSimilarity(va, vb)
		return nil
	})
	return sim, err
}

// Classify runs the NLI cross-encoder on (statement, snippet).
func (s *Scorers) Classify(ctx context.Context, statement, snippet string) (protocol.NLIDistribution, error) {
	if s.nli == nil || !s.nli.IsEnabled() {
		return protocol.NLIDistribution{}, fmt.Errorf("nli engine unavailable")
	}

	var dist protocol.NLIDistribution
	err := s.nliPool.With(ctx, func() error {
		var classifyErr error
		dist, classifyErr = s.nli.Classify(statement, snippet)
		return classifyErr
	})
	return dist, err
}

// Assess asks the remote LLM how pageText relates to statement. A (nil,
// nil) return means no usable assessment.
func (s *Scorers) Assess(ctx context.Context, statement, pageText string) (*RelationAssessment, error) {
	if s.assessor == nil {
		return nil, nil
	}

	var assessment *RelationAssessment
	err := s.llmPool.With(ctx, func() error {
		var assessErr error
		assessment, assessErr = s.assessor.Assess(ctx, statement, pageText)
		return assessErr
	})
	return assessment, err
}
