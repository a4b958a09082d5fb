// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package semantic

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"github.com/tiktoken-go/tokenizer"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

const (
	// assessorMaxTokens bounds the completion length.
	assessorMaxTokens = 300

	// assessorPromptTokenBudget bounds how much page text goes into the
	// prompt, measured in model tokens.
	assessorPromptTokenBudget = 1024

	assessorTimeout = 60 * time.Second
)

// Relation labels the assessor may return.
const (
	RelationSupport    = "SUPPORT"
	RelationContradict = "CONTRADICT"
	RelationUnrelated  = "UNRELATED"
	RelationFake       = "FAKE"
)

// RelationAssessment is the parsed verdict of the instruction LLM on a
// (statement, webpage) pair.
type RelationAssessment struct {
	Response     string                   `json:"response"`
	Distribution protocol.NLIDistribution `json:"score_pair_distrib"`
	IsSearchURL  bool                     `json:"is_search_url"`
}

const assessorSystemPrompt = `You are a strict fact-checking assistant. Given a STATEMENT and the text of a WEBPAGE, decide how the page relates to the statement. Respond with JSON only, no prose, in this exact shape:
{"response": "SUPPORT" | "CONTRADICT" | "UNRELATED" | "FAKE", "score_pair_distrib": {"contradiction": 0.0, "neutral": 0.0, "entailment": 0.0}, "is_search_url": false}
Use "FAKE" when the page is fabricated or adversarial, and set is_search_url to true when the page is a search results listing.`

// Assessor calls the remote vLLM chat-completions endpoint at temperature 0
// and parses its strict-JSON reply. A nil assessment with nil error means
// the reply could not be parsed; callers then skip the LLM rejection
// branches.
type Assessor struct {
	apiURL string
	model  string
	client *http.Client
	codec  tokenizer.Codec
}

// NewAssessor builds the assessor. apiURL is the vLLM base URL without the
// /v1 suffix; empty disables the assessor (Assess returns nil, nil).
func NewAssessor(apiURL, model string) *Assessor {
	codec, err := tokenizer.Get(tokenizer.Cl100kBase)
	if err != nil {
		log.Warnf("assessor: tokenizer unavailable, falling back to rune truncation: %v", err)
	}
	return &Assessor{
		apiURL: strings.TrimSuffix(apiURL, "/"),
		model:  model,
		client: &http.Client{Timeout: assessorTimeout},
		codec:  codec,
	}
}

// Assess asks the LLM how pageText relates to statement.
func (a *Assessor) Assess(ctx context.Context, statement, pageText string) (*RelationAssessment, error) {
	if a.apiURL == "" {
		return nil, nil
	}

	pageText = a.truncate(pageText, assessorPromptTokenBudget)
	user := fmt.Sprintf("STATEMENT:\n%s\n\nWEBPAGE:\n%s", statement, pageText)

	payload := []byte(`{}`)
	payload, _ = sjson.SetBytes(payload, "model", a.model)
	payload, _ = sjson.SetBytes(payload, "temperature", 0)
	payload, _ = sjson.SetBytes(payload, "max_tokens", assessorMaxTokens)
	payload, _ = sjson.SetBytes(payload, "messages.0.role", "system")
	payload, _ = sjson.SetBytes(payload, "messages.0.content", assessorSystemPrompt)
	payload, _ = sjson.SetBytes(payload, "messages.1.role", "user")
	payload, _ = sjson.SetBytes(payload, "messages.1.content", user)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.apiURL+"/v1/chat/completions", strings.NewReader(string(payload)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("assessor request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("assessor: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("assessor: read body: %w", err)
	}
	return ParseAssessment(body), nil
}

// ParseAssessment extracts the assessment JSON from an OpenAI-style chat
// response. Unparseable content yields nil: the pipeline then proceeds
// without the LLM branches.
func ParseAssessment(chatResponse []byte) *RelationAssessment {
	content := gjson.GetBytes(chatResponse, "choices.0.message.content").String()
	if content == "" {
		return nil
	}
	content = stripCodeFences(content)

	parsed := gjson.Parse(content)
	response := strings.ToUpper(strings.TrimSpace(parsed.Get("response").String()))
	switch response {
	case RelationSupport, RelationContradict, RelationUnrelated, RelationFake:
	default:
		log.Debugf("assessor: unrecognized response %q", response)
		return nil
	}

	dist := parsed.Get("score_pair_distrib")
	return &RelationAssessment{
		Response: response,
		Distribution: protocol.NLIDistribution{
			Contradiction: dist.Get("contradiction").Float(),
			Neutral:       dist.Get("neutral").Float(),
			Entailment:    dist.Get("entailment").Float(),
		},
		IsSearchURL: parsed.Get("is_search_url").Bool(),
	}
}

// stripCodeFences removes a leading/trailing triple-backtick fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.HasPrefix(s, "{") {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// truncate bounds text to at most budget model tokens.
func (a *Assessor) truncate(text string, budget int) string {
	if a.codec == nil {
		runes := []rune(text)
		if len(runes) > budget*4 {
			return string(runes[:budget*4])
		}
		return text
	}

	ids, _, err := a.codec.Encode(text)
	if err != nil || len(ids) <= budget {
		return text
	}
	out, err := a.codec.Decode(ids[:budget])
	if err != nil {
		return text
	}
	return out
}
