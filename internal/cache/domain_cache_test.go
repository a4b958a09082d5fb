// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefreshParsesDomainRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/blacklisted-domains", r.URL.Path)
		_, _ = w.Write([]byte(`[{"domain":"spam.example"},{"domain":"Fake.News"},{"id":3}]`))
	}))
	defer srv.Close()

	c := NewBlacklistCache(srv.URL)
	require.NoError(t, c.Refresh(context.Background()))

	assert.True(t, c.Contains(context.Background(), "spam.example"))
	assert.True(t, c.Contains(context.Background(), "FAKE.news"), "lookup is case-insensitive")
	assert.False(t, c.Contains(context.Background(), "clean.example"))
}

func TestRefreshParsesTLDRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/acceptable-top-level-domains", r.URL.Path)
		_, _ = w.Write([]byte(`[{"tld":"wikipedia.org"},{"tld":"reuters.com"}]`))
	}))
	defer srv.Close()

	c := NewTopSiteCache(srv.URL)
	require.NoError(t, c.Refresh(context.Background()))
	assert.True(t, c.Contains(context.Background(), "wikipedia.org"))
	assert.Equal(t, 2, c.Len())
}

func TestRefreshFailureKeepsPreviousSet(t *testing.T) {
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"domain":"spam.example"}]`))
	}))
	defer srv.Close()

	c := NewBlacklistCache(srv.URL)
	require.NoError(t, c.Refresh(context.Background()))

	fail = true
	require.Error(t, c.Refresh(context.Background()))
	assert.True(t, c.Contains(context.Background(), "spam.example"))
}

func TestNoDashboardConfigured(t *testing.T) {
	c := NewBlacklistCache("")
	assert.False(t, c.Contains(context.Background(), "anything.example"))
	assert.Equal(t, 0, c.Len())
}

func TestOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blacklist.txt")
	require.NoError(t, os.WriteFile(path, []byte("# local additions\nbad.example\n\nWorse.Example\n"), 0o644))

	c := NewBlacklistCache("")
	require.NoError(t, c.WatchOverride(path))
	defer c.Close()

	assert.True(t, c.Contains(context.Background(), "bad.example"))
	assert.True(t, c.Contains(context.Background(), "worse.example"))

	require.NoError(t, os.WriteFile(path, []byte("other.example\n"), 0o644))
	assert.Eventually(t, func() bool {
		return c.Contains(context.Background(), "other.example")
	}, 2*time.Second, 20*time.Millisecond)
}
