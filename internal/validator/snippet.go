// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package validator implements the per-snippet validation cascade. Given a
// statement and one piece of miner evidence it produces exactly one verdict;
// no error ever escapes, every failure mode maps to a tag from the closed
// reason set.
package validator

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/dfusionai/Vericore-sub000/internal/cache"
	"github.com/dfusionai/Vericore-sub000/internal/gate"
	"github.com/dfusionai/Vericore-sub000/internal/logging"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/semantic"
)

// minExcerptWords is the floor below which an excerpt is not a sentence.
const minExcerptWords = 5

// searchPagePhraseThreshold flags a page whose text embeds too close to a
// canonical search-results phrase.
const searchPagePhraseThreshold = 0.7

// assessorPageLimit is how many characters of page text go to the LLM.
const assessorPageLimit = 1500

// Multipliers applied in the final semantic score path depending on
// top-site cache membership.
const (
	ApprovedURLMultiplier   = 1.0
	UnapprovedURLMultiplier = 0.5
)

// searchPagePhrases are the canonical phrasings of a search results page.
// The whole page text is compared against each; lossy, but it catches the
// common engines.
var searchPagePhrases = []string{
	"search results for",
	"about results for your query",
	"did you mean",
	"no results found for",
	"people also ask",
}

// PageFetcher retrieves cleaned page text; empty text means unfetchable.
type PageFetcher interface {
	FetchEntirePage(ctx context.Context, requestID string, minerUID int, url string) string
}

// Scorers is the semantic capability surface the cascade needs.
type Scorers interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
	Classify(ctx context.Context, statement, snippet string) (protocol.NLIDistribution, error)
	Assess(ctx context.Context, statement, pageText string) (*semantic.RelationAssessment, error)
}

// URLGate runs the ordered fast-reject rules.
type URLGate interface {
	Check(ctx context.Context, rawURL, excerpt string) (protocol.Reason, bool)
}

// SnippetValidator runs the cascade.
type SnippetValidator struct {
	fetcher  PageFetcher
	gate     URLGate
	scorers  Scorers
	topSites *cache.DomainCache

	// IncludePageText attaches the fetched page text to verdicts for
	// debugging.
	IncludePageText bool
}

// New builds a snippet validator. topSites may be nil; every URL is then
// unapproved.
func New(fetcher PageFetcher, urlGate URLGate, scorers Scorers, topSites *cache.DomainCache) *SnippetValidator {
	return &SnippetValidator{
		fetcher:  fetcher,
		gate:     urlGate,
		scorers:  scorers,
		topSites: topSites,
	}
}

// clipToRuneBoundary cuts s to at most limit bytes without splitting a
// UTF-8 sequence.
func clipToRuneBoundary(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// ValidateSnippet produces exactly one verdict for one piece of evidence.
func (v *SnippetValidator) ValidateSnippet(ctx context.Context, requestID string, minerUID int, statement string, ev protocol.Evidence) (verdict protocol.StatementVerdict) {
	logger := logging.WithRequestID(requestID).WithField("uid", minerUID)

	domain := ""
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("snippet validation panicked for %s: %v", ev.URL, r)
			verdict = protocol.RejectionVerdict(ev, domain, protocol.ReasonValidationError)
		}
	}()

	// 1. Domain extraction; a non-https or unparseable URL is terminal.
	domain, err := gate.RegistrableDomain(ev.URL)
	if err != nil {
		return protocol.RejectionVerdict(ev, "", protocol.ReasonSSLRequired)
	}

	// 2. Ordered gate rules.
	if reason, rejected := v.gate.Check(ctx, ev.URL, ev.Excerpt); rejected {
		return protocol.RejectionVerdict(ev, domain, reason)
	}

	// 3. Top-site membership feeds the final semantic score path only.
	approvedMultiplier := UnapprovedURLMultiplier
	if v.topSites != nil && v.topSites.Contains(ctx, domain) {
		approvedMultiplier = ApprovedURLMultiplier
	}

	// 4-6. Cheap excerpt shape checks.
	snippet := strings.TrimSpace(ev.Excerpt)
	if snippet == "" {
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonNoSnippet)
	}
	if snippet == strings.TrimSpace(statement) {
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonSnippetIsStatement)
	}
	if len(strings.Fields(snippet)) < minExcerptWords {
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonInvalidExcerpt)
	}

	// 7. A near-identical embedding means the miner is regurgitating the
	// statement instead of citing a source.
	statementSim, err := v.scorers.Similarity(ctx, statement, snippet)
	if err != nil {
		logger.Errorf("statement similarity failed: %v", err)
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonValidationError)
	}
	if statementSim >= semantic.SentenceSimilarityThreshold {
		verdict = protocol.RejectionVerdict(ev, domain, protocol.ReasonExcerptTooSimilar)
		verdict.StatementSimilarityScore = statementSim
		return verdict
	}

	// 8. Fetch. Empty text is a legitimate, scorable outcome.
	pageText := v.fetcher.FetchEntirePage(ctx, requestID, minerUID, ev.URL)
	if pageText == "" {
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonNoPageText)
	}

	// 9. Pages that read like a results listing.
	for _, phrase := range searchPagePhrases {
		sim, err := v.scorers.Similarity(ctx, pageText, phrase)
		if err != nil {
			logger.Errorf("search phrase similarity failed: %v", err)
			return protocol.RejectionVerdict(ev, domain, protocol.ReasonValidationError)
		}
		if sim > searchPagePhraseThreshold {
			return protocol.RejectionVerdict(ev, domain, protocol.ReasonSearchWebPage)
		}
	}

	// 10. LLM relation assessment; an unusable reply skips these branches.
	assessment, err := v.scorers.Assess(ctx, statement, clipToRuneBoundary(pageText, assessorPageLimit))
	if err != nil {
		logger.Warnf("relation assessor unavailable: %v", err)
		assessment = nil
	}
	if assessment != nil {
		switch {
		case assessment.Response == semantic.RelationUnrelated:
			return protocol.RejectionVerdict(ev, domain, protocol.ReasonUnrelatedPage)
		case assessment.Response == semantic.RelationFake:
			return protocol.RejectionVerdict(ev, domain, protocol.ReasonFakePage)
		case assessment.IsSearchURL:
			return protocol.RejectionVerdict(ev, domain, protocol.ReasonSearchWebPage)
		}
	}

	// 11. The excerpt must actually be on the page.
	if !ContainsNormalized(pageText, snippet) {
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonSnippetNotOnPage)
	}

	// 12. And it must bear on the statement.
	contextSim, err := v.scorers.Similarity(ctx, statement, snippet)
	if err != nil {
		logger.Errorf("context similarity failed: %v", err)
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonValidationError)
	}
	if contextSim < semantic.MinSnippetContextSimilarity {
		verdict = protocol.RejectionVerdict(ev, domain, protocol.ReasonNotContextSimilar)
		verdict.ContextSimilarityScore = contextSim
		verdict.StatementSimilarityScore = statementSim
		return verdict
	}

	// 13. Full semantic score. The query handler composes the final miner
	// score, so snippet_score stays 0 on this path.
	dist, err := v.scorers.Classify(ctx, statement, snippet)
	if err != nil {
		logger.Errorf("nli classification failed: %v", err)
		return protocol.RejectionVerdict(ev, domain, protocol.ReasonValidationError)
	}

	verdict = protocol.StatementVerdict{
		URL:                      ev.URL,
		Excerpt:                  ev.Excerpt,
		Domain:                   domain,
		SnippetFound:             true,
		SnippetScore:             0,
		SnippetScoreReason:       protocol.ReasonValidStatement,
		LocalScore:               dist.LocalScore(),
		NLI:                      dist,
		ContextSimilarityScore:   contextSim,
		StatementSimilarityScore: statementSim,
		ApprovedURLMultiplier:    approvedMultiplier,
	}
	if v.IncludePageText {
		verdict.PageText = pageText
	}
	return verdict
}
