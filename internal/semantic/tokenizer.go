// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// TokenizedInput represents tokenized text ready for model inference.
type TokenizedInput struct {
	// InputIDs are the token IDs
	InputIDs []int64

	// AttentionMask indicates which tokens are real (1) vs padding (0)
	AttentionMask []int64

	// TokenTypeIDs are segment IDs (0 for the first segment, 1 for the
	// second in pair encoding)
	TokenTypeIDs []int64
}

// WordPieceTokenizer implements a basic WordPiece tokenizer for BERT-style
// models. It supports both single-text encoding (embeddings) and pair
// encoding (cross-encoder NLI input).
type WordPieceTokenizer struct {
	vocab     map[string]int64
	idToToken map[int64]string

	clsTokenID int64
	sepTokenID int64
	padTokenID int64
	unkTokenID int64
}

// NewWordPieceTokenizer creates a tokenizer from a vocabulary file with one
// token per line. An empty or missing path falls back to a minimal built-in
// vocabulary so the engines degrade instead of failing.
func NewWordPieceTokenizer(vocabPath string) (*WordPieceTokenizer, error) {
	t := &WordPieceTokenizer{
		vocab:     make(map[string]int64),
		idToToken: make(map[int64]string),
	}

	if vocabPath == "" {
		t.initMinimalVocab()
		return t, nil
	}

	file, err := os.Open(vocabPath)
	if err != nil {
		t.initMinimalVocab()
		return t, nil
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	var id int64
	for scanner.Scan() {
		token := scanner.Text()
		t.vocab[token] = id
		t.idToToken[id] = token
		id++
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading vocabulary: %w", err)
	}

	t.setSpecialTokenIDs()
	return t, nil
}

func (t *WordPieceTokenizer) initMinimalVocab() {
	minimalVocab := []string{
		"[PAD]", "[UNK]", "[CLS]", "[SEP]", "[MASK]",
		"the", "a", "an", "is", "are", "was", "were",
		"to", "of", "in", "for", "on", "with", "at",
		"by", "from", "as", "or", "and", "but", "not",
		"this", "that", "it", "be", "have", "has", "had",
		"do", "does", "did", "will", "would", "could", "should",
		"can", "may", "might", "must", "shall",
		"i", "you", "he", "she", "we", "they", "me", "him", "her", "us", "them",
		"my", "your", "his", "its", "our", "their",
		"what", "which", "who", "whom", "whose", "where", "when", "why", "how",
		"all", "each", "every", "both", "few", "more", "most", "other", "some", "such",
		"no", "nor", "only", "own", "same", "so", "than", "too", "very",
		"just", "also", "now", "here", "there", "then", "once",
		"statement", "evidence", "snippet", "page", "source", "claim",
		"true", "false", "support", "contradict", "neutral", "fact",
		"news", "article", "report", "said", "according", "study",
		"##s", "##ed", "##ing", "##er", "##ly", "##tion", "##ment",
	}

	for i, token := range minimalVocab {
		t.vocab[token] = int64(i)
		t.idToToken[int64(i)] = token
	}

	t.setSpecialTokenIDs()
}

func (t *WordPieceTokenizer) setSpecialTokenIDs() {
	if id, ok := t.vocab["[CLS]"]; ok {
		t.clsTokenID = id
	}
	if id, ok := t.vocab["[SEP]"]; ok {
		t.sepTokenID = id
	}
	if id, ok := t.vocab["[PAD]"]; ok {
		t.padTokenID = id
	}
	if id, ok := t.vocab["[UNK]"]; ok {
		t.unkTokenID = id
	}
}

// Tokenize converts a single text into model input:
// [CLS] text [SEP], truncated to maxLength.
func (t *WordPieceTokenizer) Tokenize(text string, maxLength int) (*TokenizedInput, error) {
	tokens := []int64{t.clsTokenID}
	tokens = append(tokens, t.wordPieces(text, maxLength-2)...)
	tokens = append(tokens, t.sepTokenID)

	return t.finish(tokens, len(tokens)), nil
}

// TokenizePair encodes a (premise, hypothesis) pair for a cross-encoder:
// [CLS] premise [SEP] hypothesis [SEP], with segment ids 0/1. Each side gets
// roughly half the budget when both are long.
func (t *WordPieceTokenizer) TokenizePair(first, second string, maxLength int) (*TokenizedInput, error) {
	budget := maxLength - 3
	if budget < 2 {
		return nil, fmt.Errorf("max length %d leaves no room for text", maxLength)
	}

	firstPieces := t.wordPieces(first, budget)
	secondPieces := t.wordPieces(second, budget)
	for len(firstPieces)+len(secondPieces) > budget {
		if len(firstPieces) >= len(secondPieces) {
			firstPieces = firstPieces[:len(firstPieces)-1]
		} else {
			secondPieces = secondPieces[:len(secondPieces)-1]
		}
	}

	tokens := []int64{t.clsTokenID}
	tokens = append(tokens, firstPieces...)
	tokens = append(tokens, t.sepTokenID)
	firstLen := len(tokens)
	tokens = append(tokens, secondPieces...)
	tokens = append(tokens, t.sepTokenID)

	out := t.finish(tokens, firstLen)
	return out, nil
}

// finish builds the attention mask and segment ids; positions from
// firstSegmentLen onward belong to segment 1.
func (t *WordPieceTokenizer) finish(tokens []int64, firstSegmentLen int) *TokenizedInput {
	seqLen := len(tokens)
	attentionMask := make([]int64, seqLen)
	tokenTypeIDs := make([]int64, seqLen)
	for i := 0; i < seqLen; i++ {
		attentionMask[i] = 1
		if i >= firstSegmentLen {
			tokenTypeIDs[i] = 1
		}
	}
	return &TokenizedInput{
		InputIDs:      tokens,
		AttentionMask: attentionMask,
		TokenTypeIDs:  tokenTypeIDs,
	}
}

// wordPieces lowercases, normalizes, and tokenizes text into at most limit
// WordPiece ids.
func (t *WordPieceTokenizer) wordPieces(text string, limit int) []int64 {
	text = t.normalizeText(strings.ToLower(text))

	var pieces []int64
	for _, word := range strings.Fields(text) {
		pieces = append(pieces, t.tokenizeWord(word)...)
		if len(pieces) >= limit {
			pieces = pieces[:limit]
			break
		}
	}
	return pieces
}

// normalizeText collapses whitespace and spaces out punctuation.
func (t *WordPieceTokenizer) normalizeText(text string) string {
	text = strings.Join(strings.Fields(text), " ")

	var result strings.Builder
	for _, r := range text {
		if unicode.IsPunct(r) {
			result.WriteRune(' ')
			result.WriteRune(r)
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(result.String()), " ")
}

// tokenizeWord applies greedy longest-match-first WordPiece tokenization to
// a single word.
func (t *WordPieceTokenizer) tokenizeWord(word string) []int64 {
	if id, ok := t.vocab[word]; ok {
		return []int64{id}
	}

	var tokens []int64
	start := 0
	for start < len(word) {
		end := len(word)
		var currentID int64 = -1

		for end > start {
			substr := word[start:end]
			if start > 0 {
				substr = "##" + substr
			}
			if id, ok := t.vocab[substr]; ok {
				currentID = id
				break
			}
			end--
		}

		if currentID == -1 {
			return []int64{t.unkTokenID}
		}
		tokens = append(tokens, currentID)
		start = end
	}
	return tokens
}
