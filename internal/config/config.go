// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config provides configuration for the validator and aggregator
// processes. Service endpoints and chain credentials come from environment
// variables (optionally seeded from a .env file); server and tuning knobs can
// be overridden by an optional YAML file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Config represents the full runtime configuration of a Vericore process.
type Config struct {
	// Host is the interface the intake API binds to. Empty binds all.
	Host string `yaml:"host"`
	// Port is the intake API port.
	Port int `yaml:"port"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
	// LoggingToFile routes logs into rotating files under LogDir.
	LoggingToFile bool `yaml:"logging-to-file"`
	// LogDir is the directory for rotating log files.
	LogDir string `yaml:"log-dir"`

	// ResultsDir is the on-disk queue shared by the query handler (producer)
	// and the aggregator (consumer).
	ResultsDir string `yaml:"results-dir"`

	// BlacklistOverridePath is an optional local file with one domain per
	// line, merged into the blacklist cache and hot-reloaded on change.
	BlacklistOverridePath string `yaml:"blacklist-override"`

	// FetchConcurrency caps simultaneous page fetches.
	FetchConcurrency int `yaml:"fetch-concurrency"`
	// BrowserPoolSize caps the headless browser fallback drivers.
	BrowserPoolSize int `yaml:"browser-pool-size"`
	// ScorerPoolSize is the slot count of each semantic scorer pool.
	ScorerPoolSize int `yaml:"scorer-pool-size"`

	// MinerSampleSize is how many miners one query fans out to.
	MinerSampleSize int `yaml:"miner-sample-size"`
	// MinerTimeoutSeconds is the per-miner synapse timeout.
	MinerTimeoutSeconds int `yaml:"miner-timeout-seconds"`

	// Environment-sourced endpoints and flags.
	DashboardAPIURL    string `yaml:"-"`
	VLLMAPIURL         string `yaml:"-"`
	VLLMModel          string `yaml:"-"`
	LoggerAPIURL       string `yaml:"-"`
	HTMLParserAPIURL   string `yaml:"-"`
	UseHTMLParserAPI   bool   `yaml:"-"`
	EnableProxyLogging bool   `yaml:"-"`
	EnableStoreJSON    bool   `yaml:"-"`
	DebugLocal         bool   `yaml:"-"`

	// Chain settings.
	SubtensorEndpoint string `yaml:"-"`
	NetUID            int    `yaml:"-"`
	WalletHotkeySeed  string `yaml:"-"`

	// ONNX model locations.
	EmbeddingModelPath string `yaml:"embedding-model-path"`
	EmbeddingVocabPath string `yaml:"embedding-vocab-path"`
	NLIModelPath       string `yaml:"nli-model-path"`
	NLIVocabPath       string `yaml:"nli-vocab-path"`
	ONNXLibraryPath    string `yaml:"onnx-library-path"`
}

// Default values for knobs the YAML file leaves unset.
const (
	DefaultPort             = 8080
	DefaultResultsDir       = "results"
	DefaultFetchConcurrency = 5
	DefaultBrowserPoolSize  = 5
	DefaultScorerPoolSize   = 5
	DefaultMinerSampleSize  = 5
	DefaultMinerTimeoutSecs = 120
)

// Load builds a Config from the environment and an optional YAML file.
// A .env file in the working directory is honored when present; real
// environment variables win over .env entries.
func Load(yamlPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                DefaultPort,
		ResultsDir:          DefaultResultsDir,
		FetchConcurrency:    DefaultFetchConcurrency,
		BrowserPoolSize:     DefaultBrowserPoolSize,
		ScorerPoolSize:      DefaultScorerPoolSize,
		MinerSampleSize:     DefaultMinerSampleSize,
		MinerTimeoutSeconds: DefaultMinerTimeoutSecs,
	}

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
		}
		if err = yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", yamlPath, err)
		}
	}

	cfg.DashboardAPIURL = strings.TrimSuffix(os.Getenv("DASHBOARD_API_URL"), "/")
	cfg.VLLMAPIURL = strings.TrimSuffix(os.Getenv("VLLM_API_URL"), "/")
	cfg.VLLMModel = envOr("VLLM_MODEL", "Qwen/Qwen2.5-7B-Instruct")
	cfg.LoggerAPIURL = strings.TrimSuffix(os.Getenv("LOGGER_API_URL"), "/")
	cfg.HTMLParserAPIURL = strings.TrimSuffix(os.Getenv("HTML_PARSER_API_URL"), "/")
	cfg.UseHTMLParserAPI = envBool("USE_HTML_PARSER_API")
	cfg.EnableProxyLogging = envBool("ENABLE_PROXY_LOGGING")
	cfg.EnableStoreJSON = envBool("ENABLE_STORE_JSON")
	cfg.DebugLocal = envBool("DEBUG_LOCAL")

	cfg.SubtensorEndpoint = envOr("SUBTENSOR_ENDPOINT", "wss://entrypoint-finney.opentensor.ai:443")
	cfg.WalletHotkeySeed = os.Getenv("WALLET_HOTKEY_SEED")
	if v := os.Getenv("NETUID"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("config: invalid NETUID %q: %w", v, err)
		}
		cfg.NetUID = n
	}

	if cfg.EmbeddingModelPath == "" {
		cfg.EmbeddingModelPath = os.Getenv("EMBEDDING_MODEL_PATH")
	}
	if cfg.NLIModelPath == "" {
		cfg.NLIModelPath = os.Getenv("NLI_MODEL_PATH")
	}
	if cfg.ONNXLibraryPath == "" {
		cfg.ONNXLibraryPath = os.Getenv("ONNX_LIBRARY_PATH")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
