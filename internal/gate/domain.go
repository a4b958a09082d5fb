// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package gate fast-rejects miner URLs that cannot yield legitimate
// evidence: insecure schemes, blacklisted or freshly registered domains, and
// search result pages passed off as sources.
package gate

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// ErrInsecureScheme marks a URL whose scheme is not https. The snippet
// validator maps it to the ssl_url_required tag.
var ErrInsecureScheme = errors.New("url scheme is not https")

// RegistrableDomain extracts the public-suffix-aware registrable domain from
// a URL. Literal IP hosts are returned as-is. A non-https scheme yields
// ErrInsecureScheme.
func RegistrableDomain(rawURL string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if !strings.EqualFold(parsed.Scheme, "https") {
		return "", ErrInsecureScheme
	}

	host := parsed.Hostname()
	if host == "" {
		return "", fmt.Errorf("url %q has no host", rawURL)
	}
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(strings.ToLower(host))
	if err != nil {
		return "", fmt.Errorf("registrable domain for %q: %w", host, err)
	}
	return domain, nil
}
