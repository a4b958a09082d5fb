// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cache maintains the blacklist and top-site domain sets consumed by
// the snippet validator. Each cache refreshes itself from the dashboard API
// once its TTL lapses; refresh failures leave the previous set in place.
package cache

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

// RefreshTTL is how long a fetched domain set stays fresh.
const RefreshTTL = time.Hour

// DomainCache is a TTL-refreshed set of domain strings.
type DomainCache struct {
	name     string
	endpoint string
	field    string
	client   *http.Client
	limiter  *rate.Limiter

	mu            sync.RWMutex
	domains       map[string]struct{}
	override      map[string]struct{}
	timeRefreshed time.Time

	watcher *fsnotify.Watcher
}

// NewBlacklistCache builds the cache behind the blacklisted_url gate rule.
// dashboardURL may be empty; the cache then stays empty and every lookup
// misses, which is the conservative default.
func NewBlacklistCache(dashboardURL string) *DomainCache {
	return newDomainCache("blacklist", dashboardURL+"/blacklisted-domains", "domain")
}

// NewTopSiteCache builds the approved-site cache consulted for the
// approved_url_multiplier.
func NewTopSiteCache(dashboardURL string) *DomainCache {
	return newDomainCache("top-sites", dashboardURL+"/acceptable-top-level-domains", "tld")
}

func newDomainCache(name, endpoint, field string) *DomainCache {
	return &DomainCache{
		name:     name,
		endpoint: endpoint,
		field:    field,
		client:   &http.Client{Timeout: 15 * time.Second},
		limiter:  rate.NewLimiter(rate.Every(10*time.Second), 1),
		domains:  map[string]struct{}{},
		override: map[string]struct{}{},
	}
}

// Contains reports whether domain is in the set, refreshing first when the
// TTL has lapsed. Lookups are case-insensitive.
func (c *DomainCache) Contains(ctx context.Context, domain string) bool {
	c.refreshIfStale(ctx)

	key := strings.ToLower(strings.TrimSpace(domain))
	c.mu.RLock()
	defer c.mu.RUnlock()
	if _, ok := c.override[key]; ok {
		return true
	}
	_, ok := c.domains[key]
	return ok
}

// Len returns the current set size including overrides.
func (c *DomainCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.domains) + len(c.override)
}

func (c *DomainCache) refreshIfStale(ctx context.Context) {
	c.mu.RLock()
	stale := time.Since(c.timeRefreshed) >= RefreshTTL
	c.mu.RUnlock()
	if !stale {
		return
	}
	// The limiter stops a burst of concurrent lookups from hammering the
	// dashboard when a refresh keeps failing.
	if !c.limiter.Allow() {
		return
	}
	if err := c.Refresh(ctx); err != nil {
		log.Warnf("%s cache refresh failed: %v", c.name, err)
	}
}

// Refresh fetches the domain list from the dashboard endpoint and replaces
// the current set. The previous set survives any failure.
func (c *DomainCache) Refresh(ctx context.Context) error {
	if strings.HasPrefix(c.endpoint, "/") {
		// No dashboard configured. Mark refreshed so lookups stay cheap.
		c.mu.Lock()
		c.timeRefreshed = time.Now()
		c.mu.Unlock()
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s cache: build request: %w", c.name, err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s cache: fetch: %w", c.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s cache: unexpected status %d", c.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("%s cache: read body: %w", c.name, err)
	}

	parsed := gjson.ParseBytes(body)
	if !parsed.IsArray() {
		return fmt.Errorf("%s cache: response is not a list", c.name)
	}
	fresh := map[string]struct{}{}
	for _, record := range parsed.Array() {
		value := record.Get(c.field).String()
		if value == "" {
			// Some dashboard deployments serve bare strings.
			value = record.String()
		}
		if value = strings.ToLower(strings.TrimSpace(value)); value != "" {
			fresh[value] = struct{}{}
		}
	}

	c.mu.Lock()
	c.domains = fresh
	c.timeRefreshed = time.Now()
	c.mu.Unlock()

	log.Infof("%s cache refreshed with %d domains", c.name, len(fresh))
	return nil
}

// WatchOverride merges a local one-domain-per-line file into the set and
// reloads it whenever the file changes. Intended for the blacklist cache.
func (c *DomainCache) WatchOverride(path string) error {
	if path == "" {
		return nil
	}
	c.loadOverride(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("%s cache: create watcher: %w", c.name, err)
	}
	if err = watcher.Add(path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("%s cache: watch %s: %w", c.name, path, err)
	}
	c.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					c.loadOverride(path)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warnf("%s cache: override watcher: %v", c.name, err)
			}
		}
	}()
	return nil
}

// Close stops the override watcher if one is running.
func (c *DomainCache) Close() error {
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

func (c *DomainCache) loadOverride(path string) {
	file, err := os.Open(path)
	if err != nil {
		log.Warnf("%s cache: open override %s: %v", c.name, path, err)
		return
	}
	defer file.Close()

	fresh := map[string]struct{}{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fresh[line] = struct{}{}
	}

	c.mu.Lock()
	c.override = fresh
	c.mu.Unlock()
	log.Infof("%s cache: loaded %d override domains from %s", c.name, len(fresh), path)
}
