// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gate

import (
	"context"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/cache"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

// RecentRegistrationWindow rejects domains registered within this period.
const RecentRegistrationWindow = 30 * 24 * time.Hour

// SearchSegmentSimilarityThreshold rejects URLs whose final path segment is
// an embedding near-match of the excerpt.
const SearchSegmentSimilarityThreshold = 0.8

// SimilarityFunc computes embedding cosine similarity of two short texts.
type SimilarityFunc func(ctx context.Context, a, b string) (float64, error)

// Gate evaluates the ordered fast-reject rules for a miner URL.
type Gate struct {
	blacklist  *cache.DomainCache
	whois      WhoisLookup
	similarity SimilarityFunc
}

// New builds a gate. whois and similarity may be nil; the corresponding
// checks are then skipped, which only ever lets more URLs through.
func New(blacklist *cache.DomainCache, whois WhoisLookup, similarity SimilarityFunc) *Gate {
	return &Gate{blacklist: blacklist, whois: whois, similarity: similarity}
}

// Check runs the rules in order and returns the first matching rejection
// tag. The boolean is false when every rule passes.
func (g *Gate) Check(ctx context.Context, rawURL, excerpt string) (protocol.Reason, bool) {
	domain, err := RegistrableDomain(rawURL)
	if err != nil {
		// Includes ErrInsecureScheme and unparseable URLs.
		return protocol.ReasonSSLRequired, true
	}

	if g.blacklist != nil && g.blacklist.Contains(ctx, domain) {
		return protocol.ReasonBlacklistedURL, true
	}

	if g.isSearchURL(ctx, rawURL, excerpt) {
		return protocol.ReasonSearchAsEvidence, true
	}

	if g.whois != nil {
		created, err := g.whois.CreationDate(ctx, domain)
		if err != nil {
			log.Debugf("whois lookup for %s failed: %v", domain, err)
		} else if time.Since(created) < RecentRegistrationWindow {
			return protocol.ReasonRecentlyRegistered, true
		}
	}

	return "", false
}

// isSearchURL applies the search-as-evidence heuristics. Any URL carrying
// query parameters is rejected outright; the upstream dashboard relies on
// this behavior, so the per-parameter similarity comparison is intentionally
// not reinstated.
func (g *Gate) isSearchURL(ctx context.Context, rawURL, excerpt string) bool {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return false
	}

	segments := strings.Split(strings.Trim(parsed.EscapedPath(), "/"), "/")
	for _, segment := range segments {
		if strings.EqualFold(segment, "search") {
			return true
		}
	}

	last := segments[len(segments)-1]
	if last != "" {
		if strings.Contains(last, "%20") {
			return true
		}
		decoded, err := url.PathUnescape(last)
		if err != nil {
			decoded = last
		}
		if len(strings.Fields(decoded)) > 3 {
			return true
		}
		if g.similarity != nil && excerpt != "" {
			if sim, err := g.similarity(ctx, decoded, excerpt); err == nil && sim >= SearchSegmentSimilarityThreshold {
				return true
			}
		}
	}

	if len(parsed.Query()) > 0 {
		return true
	}

	return false
}
