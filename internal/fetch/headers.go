// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fetch

import (
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
)

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.2478.97",
}

var acceptLanguages = []string{
	"en-US,en;q=0.9",
	"en-GB,en;q=0.9",
	"en-US,en;q=0.8,de;q=0.5",
	"en,en-US;q=0.9,fr;q=0.6",
}

var refererEngines = []string{
	"https://www.google.com/search?q=%s",
	"https://www.bing.com/search?q=%s",
	"https://duckduckgo.com/?q=%s",
}

// randomizeHeaders fills req with a browser-like header set drawn from the
// agent and language pools. The Referer is synthesized to look like a search
// engine hit on the target host unless the caller supplied one.
func randomizeHeaders(req *http.Request) {
	req.Header.Set("User-Agent", userAgents[rand.Intn(len(userAgents))])
	req.Header.Set("Accept-Language", acceptLanguages[rand.Intn(len(acceptLanguages))])
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, br, zstd")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	if req.Header.Get("Referer") == "" {
		engine := refererEngines[rand.Intn(len(refererEngines))]
		req.Header.Set("Referer", fmt.Sprintf(engine, url.QueryEscape(req.URL.Hostname())))
	}
}
