// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DASHBOARD_API_URL", "")
	t.Setenv("NETUID", "")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultResultsDir, cfg.ResultsDir)
	assert.Equal(t, DefaultFetchConcurrency, cfg.FetchConcurrency)
	assert.Equal(t, DefaultMinerSampleSize, cfg.MinerSampleSize)
	assert.Equal(t, DefaultMinerTimeoutSecs, cfg.MinerTimeoutSeconds)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DASHBOARD_API_URL", "https://dash.example.com/")
	t.Setenv("VLLM_API_URL", "http://127.0.0.1:8000")
	t.Setenv("ENABLE_STORE_JSON", "true")
	t.Setenv("USE_HTML_PARSER_API", "0")
	t.Setenv("NETUID", "70")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://dash.example.com", cfg.DashboardAPIURL, "trailing slash trimmed")
	assert.Equal(t, "http://127.0.0.1:8000", cfg.VLLMAPIURL)
	assert.True(t, cfg.EnableStoreJSON)
	assert.False(t, cfg.UseHTMLParserAPI)
	assert.Equal(t, 70, cfg.NetUID)
}

func TestLoadInvalidNetUID(t *testing.T) {
	t.Setenv("NETUID", "not-a-number")

	_, err := Load("")
	require.Error(t, err)
}

func TestLoadYAMLFile(t *testing.T) {
	t.Setenv("NETUID", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "port: 9099\nresults-dir: /tmp/vericore-results\nfetch-concurrency: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9099, cfg.Port)
	assert.Equal(t, "/tmp/vericore-results", cfg.ResultsDir)
	assert.Equal(t, 3, cfg.FetchConcurrency)
}
