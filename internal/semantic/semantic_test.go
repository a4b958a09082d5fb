// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/sjson"
)

func TestSoftmaxStable(t *testing.T) {
	probs := softmax([]float32{1000, 1001, 1002})
	var sum float64
	for _, p := range probs {
		require.False(t, p != p, "softmax must not produce NaN")
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, probs[2], probs[1])
	assert.Greater(t, probs[1], probs[0])
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity([]float32{1, 0}, []float32{-3, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 5}), 1e-9)
	assert.Equal(t, 0.0, CosineSimilarity([]float32{1}, []float32{1, 2}), "mismatched lengths")
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
}

func TestTokenizePairSegments(t *testing.T) {
	tok, err := NewWordPieceTokenizer("")
	require.NoError(t, err)

	out, err := tok.TokenizePair("the statement is true", "the page said so", 64)
	require.NoError(t, err)

	require.Equal(t, len(out.InputIDs), len(out.TokenTypeIDs))
	require.Equal(t, len(out.InputIDs), len(out.AttentionMask))

	// Segment ids must be a run of zeros followed by a run of ones.
	seenOne := false
	for _, id := range out.TokenTypeIDs {
		if id == 1 {
			seenOne = true
		} else {
			assert.False(t, seenOne, "segment 0 token after segment 1 began")
		}
	}
	assert.True(t, seenOne, "second segment missing")
}

func TestTokenizePairRespectsBudget(t *testing.T) {
	tok, err := NewWordPieceTokenizer("")
	require.NoError(t, err)

	long := ""
	for i := 0; i < 500; i++ {
		long += "the statement is true and that is that "
	}
	out, err := tok.TokenizePair(long, long, 128)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out.InputIDs), 128)
}

func TestParseAssessment(t *testing.T) {
	chat := []byte(`{"choices":[{"message":{"content":"{\"response\":\"SUPPORT\",\"score_pair_distrib\":{\"contradiction\":0.05,\"neutral\":0.15,\"entailment\":0.8},\"is_search_url\":false}"}}]}`)
	a := ParseAssessment(chat)
	require.NotNil(t, a)
	assert.Equal(t, RelationSupport, a.Response)
	assert.InDelta(t, 0.8, a.Distribution.Entailment, 1e-9)
	assert.False(t, a.IsSearchURL)
}

func TestParseAssessmentFenced(t *testing.T) {
	content := "```json\n{\"response\": \"UNRELATED\", \"score_pair_distrib\": {\"contradiction\": 0.1, \"neutral\": 0.8, \"entailment\": 0.1}, \"is_search_url\": true}\n```"
	chat := []byte(`{}`)
	chat = mustSet(t, chat, "choices.0.message.content", content)

	a := ParseAssessment(chat)
	require.NotNil(t, a)
	assert.Equal(t, RelationUnrelated, a.Response)
	assert.True(t, a.IsSearchURL)
}

func TestParseAssessmentFailuresYieldNil(t *testing.T) {
	cases := map[string][]byte{
		"empty response":   []byte(`{}`),
		"non-json content": mustSet(t, []byte(`{}`), "choices.0.message.content", "I think the page supports it."),
		"bad enum":         mustSet(t, []byte(`{}`), "choices.0.message.content", `{"response":"MAYBE"}`),
	}
	for name, chat := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Nil(t, ParseAssessment(chat))
		})
	}
}

func TestAssessorEndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/chat/completions", r.URL.Path)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"response\":\"CONTRADICT\",\"score_pair_distrib\":{\"contradiction\":0.7,\"neutral\":0.2,\"entailment\":0.1},\"is_search_url\":false}"}}]}`))
	}))
	defer srv.Close()

	a := NewAssessor(srv.URL, "test-model")
	got, err := a.Assess(context.Background(), "statement", "page text")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, RelationContradict, got.Response)
}

func TestAssessorDisabled(t *testing.T) {
	a := NewAssessor("", "model")
	got, err := a.Assess(context.Background(), "s", "p")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPoolSerializesSlots(t *testing.T) {
	const size = 3
	p := NewPool(size)

	var inflight, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.With(context.Background(), func() error {
				n := atomic.AddInt64(&inflight, 1)
				for {
					old := atomic.LoadInt64(&peak)
					if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt64(&inflight, -1)
				return nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak, int64(size))
}

func mustSet(t *testing.T, data []byte, path, value string) []byte {
	t.Helper()
	out, err := sjson.SetBytes(data, path, value)
	require.NoError(t, err)
	return out
}
