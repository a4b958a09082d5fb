// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package gate

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// WhoisLookup resolves the registration creation date of a domain.
type WhoisLookup interface {
	CreationDate(ctx context.Context, domain string) (time.Time, error)
}

// whoisClient talks the plain-text WHOIS protocol: one query to the IANA
// root to find the registry server, one query to the registry itself.
type whoisClient struct {
	timeout time.Duration
	limiter *rate.Limiter
}

// NewWhoisClient returns the default WHOIS lookup, paced to avoid registry
// rate limits.
func NewWhoisClient() WhoisLookup {
	return &whoisClient{
		timeout: 10 * time.Second,
		limiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

var creationKeys = []string{
	"creation date:",
	"created:",
	"created on:",
	"registered on:",
	"registration time:",
	"domain record activated:",
}

var creationLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02 15:04:05",
}

func (c *whoisClient) CreationDate(ctx context.Context, domain string) (time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return time.Time{}, err
	}

	tld := domain
	if i := strings.LastIndex(domain, "."); i >= 0 {
		tld = domain[i+1:]
	}

	root, err := c.query(ctx, "whois.iana.org:43", tld)
	if err != nil {
		return time.Time{}, fmt.Errorf("whois root query: %w", err)
	}
	server := scanField(root, "refer:")
	if server == "" {
		return time.Time{}, fmt.Errorf("whois: no registry server for tld %q", tld)
	}

	body, err := c.query(ctx, net.JoinHostPort(server, "43"), domain)
	if err != nil {
		return time.Time{}, fmt.Errorf("whois registry query: %w", err)
	}
	return parseCreationDate(body)
}

func (c *whoisClient) query(ctx context.Context, addr, q string) (string, error) {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(c.timeout))
	if _, err = fmt.Fprintf(conn, "%s\r\n", q); err != nil {
		return "", err
	}

	var sb strings.Builder
	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		sb.WriteString(scanner.Text())
		sb.WriteByte('\n')
	}
	return sb.String(), scanner.Err()
}

func scanField(body, key string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(strings.ToLower(trimmed), key) {
			return strings.TrimSpace(trimmed[len(key):])
		}
	}
	return ""
}

func parseCreationDate(body string) (time.Time, error) {
	for _, line := range strings.Split(body, "\n") {
		lower := strings.ToLower(strings.TrimSpace(line))
		for _, key := range creationKeys {
			if !strings.HasPrefix(lower, key) {
				continue
			}
			value := strings.TrimSpace(line[strings.Index(strings.ToLower(line), key)+len(key):])
			for _, layout := range creationLayouts {
				if ts, err := time.Parse(layout, value); err == nil {
					return ts, nil
				}
			}
		}
	}
	return time.Time{}, fmt.Errorf("whois: no creation date found")
}
