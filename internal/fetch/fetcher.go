// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package fetch retrieves rendered page content for miner-supplied URLs.
// Plain HTTP with anti-bot header randomization is the fast path; a bounded
// headless-browser pool handles pages that 403 the plain client. Every
// failure mode yields empty text, never an error: an unfetchable page is a
// legitimate, scorable outcome.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/semaphore"

	"github.com/dfusionai/Vericore-sub000/internal/logging"
)

const (
	// maxPageBytes caps how much of a page body is read.
	maxPageBytes = 4 << 20
	// requestTimeout bounds one HTTP attempt.
	requestTimeout = 30 * time.Second
)

// Options configures a Fetcher.
type Options struct {
	// Concurrency caps simultaneous HTTP fetches. Defaults to 5.
	Concurrency int
	// Browsers is the fallback driver pool. May be nil.
	Browsers *DriverPool
	// HTMLParserAPIURL, when set together with UseHTMLParserAPI, is asked
	// for rendered text before any direct fetch.
	HTMLParserAPIURL string
	UseHTMLParserAPI bool
}

// Fetcher retrieves and cleans page text. Safe for concurrent use.
type Fetcher struct {
	client    *http.Client
	sem       *semaphore.Weighted
	browsers  *DriverPool
	parserURL string
	useParser bool
}

// NewFetcher builds a fetcher whose HTTP client persists cookies across
// calls.
func NewFetcher(opts Options) *Fetcher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 5
	}
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Fetcher{
		client: &http.Client{
			Jar:     jar,
			Timeout: requestTimeout,
		},
		sem:       semaphore.NewWeighted(int64(opts.Concurrency)),
		browsers:  opts.Browsers,
		parserURL: opts.HTMLParserAPIURL,
		useParser: opts.UseHTMLParserAPI && opts.HTMLParserAPIURL != "",
	}
}

// FetchEntirePage returns the cleaned visible text of the page at pageURL,
// or the empty string when the page cannot be retrieved.
func (f *Fetcher) FetchEntirePage(ctx context.Context, requestID string, minerUID int, pageURL string) string {
	logger := logging.WithRequestID(requestID).WithField("uid", minerUID)

	if f.useParser {
		if text := f.fetchViaParserAPI(ctx, pageURL); text != "" {
			return text
		}
		logger.Debugf("html parser api returned nothing for %s, falling back to direct fetch", pageURL)
	}

	body, status, err := f.fetchHTTP(ctx, pageURL)
	if err != nil {
		logger.Debugf("page fetch failed for %s: %v", pageURL, err)
		return ""
	}

	// 403 means the site is bot-gating the plain client; retry through a
	// real browser, outside the HTTP semaphore.
	if status == http.StatusForbidden && f.browsers != nil {
		source, err := f.browsers.Fetch(ctx, pageURL)
		if err != nil {
			logger.Debugf("browser fallback failed for %s: %v", pageURL, err)
			return ""
		}
		return CleanHTML(source)
	}

	if status != http.StatusOK {
		logger.Debugf("page fetch for %s returned status %d", pageURL, status)
		return ""
	}
	return CleanHTML(body)
}

// fetchHTTP performs one semaphore-bounded HTTP attempt and returns the
// decoded body and status code.
func (f *Fetcher) fetchHTTP(ctx context.Context, pageURL string) (string, int, error) {
	if err := f.sem.Acquire(ctx, 1); err != nil {
		return "", 0, err
	}
	defer f.sem.Release(1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", 0, err
	}
	randomizeHeaders(req)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp)
	if err != nil {
		return "", resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}

// decodeBody reads the response body, reversing any Content-Encoding the
// server applied.
func decodeBody(resp *http.Response) (string, error) {
	var reader io.Reader = io.LimitReader(resp.Body, maxPageBytes)

	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		gz, err := gzip.NewReader(reader)
		if err != nil {
			return "", fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(reader)
	case "zstd":
		zr, err := zstd.NewReader(reader)
		if err != nil {
			return "", fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		reader = zr
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// fetchViaParserAPI asks the external HTML parser service for rendered page
// text. Any failure yields empty text so the direct path can run.
func (f *Fetcher) fetchViaParserAPI(ctx context.Context, pageURL string) string {
	endpoint := fmt.Sprintf("%s/parse?url=%s", f.parserURL, url.QueryEscape(pageURL))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return ""
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.Debugf("html parser api request failed: %v", err)
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return ""
	}
	return string(data)
}
