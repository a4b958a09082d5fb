// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package protocol

// Reason tags the outcome of a single snippet validation. Every verdict
// produced by the validator carries exactly one tag from this closed set.
type Reason string

const (
	ReasonValidStatement     Reason = "valid_statement"
	ReasonSSLRequired        Reason = "ssl_url_required"
	ReasonBlacklistedURL     Reason = "blacklisted_url"
	ReasonSearchAsEvidence   Reason = "using_search_as_evidence"
	ReasonRecentlyRegistered Reason = "domain_is_recently_registered"
	ReasonNoSnippet          Reason = "no_snippet_provided"
	ReasonSnippetIsStatement Reason = "snippet_same_as_statement"
	ReasonInvalidExcerpt     Reason = "invalid_excerpt"
	ReasonExcerptTooSimilar  Reason = "excerpt_too_similar"
	ReasonNoPageText         Reason = "could_not_extract_html_from_url"
	ReasonSearchWebPage      Reason = "is_search_web_page"
	ReasonUnrelatedPage      Reason = "unrelated_page_snippet"
	ReasonFakePage           Reason = "fake_page_snippet"
	ReasonSnippetNotOnPage   Reason = "snippet_not_verified_in_url"
	ReasonNotContextSimilar  Reason = "snippet_not_context_similar"
	ReasonValidationError    Reason = "error_verifying_miner_snippet"
)

// reasonScores is the central score table. Rejection tags map to the fixed
// penalty applied as the verdict's snippet_score; the terminal semantic path
// carries 0 because the query handler composes the final miner score itself.
var reasonScores = map[Reason]float64{
	ReasonValidStatement:     0.0,
	ReasonSSLRequired:        -1.0,
	ReasonBlacklistedURL:     -2.0,
	ReasonSearchAsEvidence:   -2.0,
	ReasonRecentlyRegistered: -1.0,
	ReasonNoSnippet:          -1.0,
	ReasonSnippetIsStatement: -1.5,
	ReasonInvalidExcerpt:     -1.0,
	ReasonExcerptTooSimilar:  -1.0,
	ReasonNoPageText:         -0.5,
	ReasonSearchWebPage:      -2.0,
	ReasonUnrelatedPage:      -1.0,
	ReasonFakePage:           -3.0,
	ReasonSnippetNotOnPage:   -1.0,
	ReasonNotContextSimilar:  -0.5,
	ReasonValidationError:    -1.0,
}

// Score returns the fixed numeric score paired with the tag. Unknown tags
// score as a validation error.
func (r Reason) Score() float64 {
	if s, ok := reasonScores[r]; ok {
		return s
	}
	return reasonScores[ReasonValidationError]
}

// Valid reports whether the tag belongs to the closed set.
func (r Reason) Valid() bool {
	_, ok := reasonScores[r]
	return ok
}

// Reasons returns the closed tag set.
func Reasons() []Reason {
	out := make([]Reason, 0, len(reasonScores))
	for r := range reasonScores {
		out = append(out, r)
	}
	return out
}
