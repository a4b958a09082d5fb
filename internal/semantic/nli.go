// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

// nliMaxSequenceLength bounds the cross-encoder pair input.
const nliMaxSequenceLength = 512

// nliClassCount is the size of the output head. Label order follows the
// cross-encoder NLI convention: contradiction, neutral, entailment.
const nliClassCount = 3

// NLIEngine classifies the relation between a statement and a snippet with
// a cross-encoder ONNX model producing a 3-way distribution.
type NLIEngine struct {
	session   *ort.DynamicAdvancedSession
	modelPath string
	vocabPath string
	tokenizer *WordPieceTokenizer
	enabled   bool
	mu        sync.RWMutex
}

// NLIConfig holds configuration for the NLI engine.
type NLIConfig struct {
	// ModelPath is the path to the ONNX model file
	ModelPath string

	// VocabPath is the path to the vocabulary file
	VocabPath string
}

// NewNLIEngine creates an engine; Initialize must be called before
// Classify.
func NewNLIEngine(cfg NLIConfig) (*NLIEngine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	return &NLIEngine{
		modelPath: cfg.ModelPath,
		vocabPath: cfg.VocabPath,
	}, nil
}

// Initialize loads the ONNX model and prepares the engine for inference.
func (e *NLIEngine) Initialize(sharedLibPath string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := os.Stat(e.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", e.modelPath)
	}

	if err := initONNXRuntime(sharedLibPath); err != nil {
		return err
	}

	options, err := ort.NewSessionOptions()
	if err != nil {
		return fmt.Errorf("failed to create session options: %w", err)
	}
	defer options.Destroy()

	session, err := ort.NewDynamicAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		options,
	)
	if err != nil {
		return fmt.Errorf("failed to load ONNX model: %w", err)
	}
	e.session = session

	tokenizer, err := NewWordPieceTokenizer(e.vocabPath)
	if err != nil {
		e.session.Destroy()
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	e.tokenizer = tokenizer

	e.enabled = true
	log.Infof("NLI engine initialized with model: %s", filepath.Base(e.modelPath))
	return nil
}

// IsEnabled returns whether the engine is ready for inference.
func (e *NLIEngine) IsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Close releases the ONNX session.
func (e *NLIEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.enabled = false
}

// Classify runs the cross-encoder on (statement, snippet) and returns the
// softmaxed 3-way distribution.
func (e *NLIEngine) Classify(statement, snippet string) (protocol.NLIDistribution, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return protocol.NLIDistribution{}, fmt.Errorf("nli engine not initialized")
	}

	tokens, err := e.tokenizer.TokenizePair(statement, snippet, nliMaxSequenceLength)
	if err != nil {
		return protocol.NLIDistribution{}, fmt.Errorf("tokenization failed: %w", err)
	}

	inputs, err := pairInputTensors(tokens)
	if err != nil {
		return protocol.NLIDistribution{}, err
	}
	defer destroyAll(inputs)

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, nliClassCount))
	if err != nil {
		return protocol.NLIDistribution{}, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err = e.session.Run(inputs, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return protocol.NLIDistribution{}, fmt.Errorf("ONNX inference failed: %w", err)
	}

	probs := softmax(outputTensor.GetData())
	return protocol.NLIDistribution{
		Contradiction: probs[0],
		Neutral:       probs[1],
		Entailment:    probs[2],
	}, nil
}

// softmax converts logits into probabilities, shifted by the max logit so
// the exponentials cannot overflow.
func softmax(logits []float32) []float64 {
	out := make([]float64, len(logits))
	if len(logits) == 0 {
		return out
	}

	maxLogit := float64(logits[0])
	for _, v := range logits[1:] {
		if float64(v) > maxLogit {
			maxLogit = float64(v)
		}
	}

	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(float64(v) - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
