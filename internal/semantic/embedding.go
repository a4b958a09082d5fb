// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package semantic provides the three scorers consulted by the snippet
// validator: a sentence-embedding engine, an NLI cross-encoder, and a remote
// LLM relation assessor. The ONNX engines hold mutable model state, so
// callers go through fixed-slot pools.
package semantic

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
)

const (
	// EmbeddingDimension is the output dimension of the MiniLM model.
	EmbeddingDimension = 384

	// MaxSequenceLength is the maximum embedding input length.
	MaxSequenceLength = 256

	// SentenceSimilarityThreshold flags an excerpt that merely restates
	// the statement.
	SentenceSimilarityThreshold = 0.95

	// MinSnippetContextSimilarity is the floor below which an excerpt is
	// considered off-topic for the statement.
	MinSnippetContextSimilarity = 0.65
)

// EmbeddingEngine provides sentence embeddings using ONNX runtime. It loads
// a MiniLM-style model and mean-pools the last hidden state.
type EmbeddingEngine struct {
	session   *ort.DynamicAdvancedSession
	modelPath string
	vocabPath string
	tokenizer *WordPieceTokenizer
	dimension int
	enabled   bool
	mu        sync.RWMutex
}

// EmbeddingConfig holds configuration for the embedding engine.
type EmbeddingConfig struct {
	// ModelPath is the path to the ONNX model file
	ModelPath string

	// VocabPath is the path to the vocabulary file
	VocabPath string
}

// NewEmbeddingEngine creates an engine; Initialize must be called before
// Embed.
func NewEmbeddingEngine(cfg EmbeddingConfig) (*EmbeddingEngine, error) {
	if cfg.ModelPath == "" {
		return nil, fmt.Errorf("model path is required")
	}
	return &EmbeddingEngine{
		modelPath: cfg.ModelPath,
		vocabPath: cfg.VocabPath,
		dimension: EmbeddingDimension,
	}, nil
}

// Initialize loads the ONNX model and prepares the engine for inference.
func (e *EmbeddingEngine) Initialize(sharedLibPath string) error {
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
		[]string{"last_hidden_state"},
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
	log.Infof("Embedding engine initialized with model: %s", filepath.Base(e.modelPath))
	return nil
}

// IsEnabled returns whether the engine is ready for inference.
func (e *EmbeddingEngine) IsEnabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// Close releases the ONNX session.
func (e *EmbeddingEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	e.enabled = false
}

// Embed computes the embedding vector for a single text.
func (e *EmbeddingEngine) Embed(text string) ([]float32, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.enabled {
		return nil, fmt.Errorf("embedding engine not initialized")
	}

	tokens, err := e.tokenizer.Tokenize(text, MaxSequenceLength)
	if err != nil {
		return nil, fmt.Errorf("tokenization failed: %w", err)
	}

	embedding, err := e.runInference(tokens)
	if err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}
	return embedding, nil
}

// runInference executes the ONNX model. Must be called with read lock held.
func (e *EmbeddingEngine) runInference(tokens *TokenizedInput) ([]float32, error) {
	seqLen := int64(len(tokens.InputIDs))

	inputs, err := pairInputTensors(tokens)
	if err != nil {
		return nil, err
	}
	defer destroyAll(inputs)

	outputTensor, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, seqLen, int64(e.dimension)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}
	defer outputTensor.Destroy()

	if err = e.session.Run(inputs, []ort.ArbitraryTensor{outputTensor}); err != nil {
		return nil, fmt.Errorf("ONNX inference failed: %w", err)
	}

	output := outputTensor.GetData()
	embedding := e.meanPooling(output, tokens.AttentionMask, int(seqLen))
	return e.normalize(embedding), nil
}

// meanPooling averages token embeddings weighted by the attention mask.
func (e *EmbeddingEngine) meanPooling(output []float32, attentionMask []int64, seqLen int) []float32 {
	embedding := make([]float32, e.dimension)
	var totalWeight float32

	for i := 0; i < seqLen; i++ {
		if attentionMask[i] == 1 {
			for j := 0; j < e.dimension; j++ {
				embedding[j] += output[i*e.dimension+j]
			}
			totalWeight++
		}
	}

	if totalWeight > 0 {
		for j := 0; j < e.dimension; j++ {
			embedding[j] /= totalWeight
		}
	}
	return embedding
}

// normalize applies L2 normalization to the embedding vector.
func (e *EmbeddingEngine) normalize(embedding []float32) []float32 {
	var norm float32
	for _, v := range embedding {
		norm += v * v
	}
	norm = float32(math.Sqrt(float64(norm)))

	if norm > 0 {
		for i := range embedding {
			embedding[i] /= norm
		}
	}
	return embedding
}

// CosineSimilarity computes the cosine similarity between two embedding
// vectors. Mismatched or zero vectors yield 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var ortInitOnce sync.Once

func initONNXRuntime(sharedLibPath string) error {
	var err error
	ortInitOnce.Do(func() {
		if sharedLibPath != "" {
			ort.SetSharedLibraryPath(sharedLibPath)
		}
		err = ort.InitializeEnvironment()
	})
	if err != nil {
		return fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	return nil
}

// pairInputTensors builds the three standard BERT input tensors.
func pairInputTensors(tokens *TokenizedInput) ([]ort.ArbitraryTensor, error) {
	seqLen := int64(len(tokens.InputIDs))

	inputIDsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.InputIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	attentionMaskTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.AttentionMask)
	if err != nil {
		inputIDsTensor.Destroy()
		return nil, fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	tokenTypeIDsTensor, err := ort.NewTensor(ort.NewShape(1, seqLen), tokens.TokenTypeIDs)
	if err != nil {
		inputIDsTensor.Destroy()
		attentionMaskTensor.Destroy()
		return nil, fmt.Errorf("failed to create token_type_ids tensor: %w", err)
	}
	return []ort.ArbitraryTensor{inputIDsTensor, attentionMaskTensor, tokenTypeIDsTensor}, nil
}

func destroyAll(tensors []ort.ArbitraryTensor) {
	for _, t := range tensors {
		t.Destroy()
	}
}
