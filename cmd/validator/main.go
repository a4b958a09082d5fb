// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// The validator binary serves the intake API: it receives statements, fans
// them out to miners, validates the returned evidence, and persists scored
// artifacts for the aggregator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dfusionai/Vericore-sub000/internal/api"
	"github.com/dfusionai/Vericore-sub000/internal/buildinfo"
	"github.com/dfusionai/Vericore-sub000/internal/cache"
	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/config"
	"github.com/dfusionai/Vericore-sub000/internal/fetch"
	"github.com/dfusionai/Vericore-sub000/internal/gate"
	"github.com/dfusionai/Vericore-sub000/internal/logging"
	"github.com/dfusionai/Vericore-sub000/internal/query"
	"github.com/dfusionai/Vericore-sub000/internal/results"
	"github.com/dfusionai/Vericore-sub000/internal/semantic"
	"github.com/dfusionai/Vericore-sub000/internal/sink"
	"github.com/dfusionai/Vericore-sub000/internal/validator"
	"github.com/dfusionai/Vericore-sub000/internal/wallet"
)

// metagraphRefresh is how often the intake side re-reads the metagraph. The
// aggregator syncs on its own cadence.
const metagraphRefresh = 5 * time.Minute

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vericore-validator %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
		return
	}

	logging.SetupBaseLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Debug || cfg.DebugLocal {
		log.SetLevel(log.DebugLevel)
	}
	if err = logging.ConfigureLogOutput(cfg.LoggingToFile, cfg.LogDir); err != nil {
		log.Fatalf("configure log output: %v", err)
	}

	if err = run(cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("validator exited: %v", err)
	}
}

func run(cfg *config.Config) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := wallet.FromSeedHex(cfg.WalletHotkeySeed)
	if err != nil {
		return fmt.Errorf("load hotkey wallet: %w", err)
	}
	log.Infof("validator hotkey %s on netuid %d", w.Address(), cfg.NetUID)

	client, err := chain.NewSubstrate(cfg.SubtensorEndpoint, cfg.NetUID, w)
	if err != nil {
		return fmt.Errorf("connect subtensor: %w", err)
	}
	syncer := chain.NewSyncer(client, metagraphRefresh)

	store, err := results.NewStore(cfg.ResultsDir)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}

	blacklist := cache.NewBlacklistCache(cfg.DashboardAPIURL)
	defer blacklist.Close()
	if cfg.BlacklistOverridePath != "" {
		if err = blacklist.WatchOverride(cfg.BlacklistOverridePath); err != nil {
			log.Warnf("blacklist override watch: %v", err)
		}
	}
	topSites := cache.NewTopSiteCache(cfg.DashboardAPIURL)
	defer topSites.Close()

	scorers, cleanup, err := buildScorers(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	fetcher := fetch.NewFetcher(fetch.Options{
		Concurrency:      cfg.FetchConcurrency,
		HTMLParserAPIURL: cfg.HTMLParserAPIURL,
		UseHTMLParserAPI: cfg.UseHTMLParserAPI,
	})

	urlGate := gate.New(blacklist, gate.NewWhoisClient(), scorers.Similarity)
	snippets := validator.New(fetcher, urlGate, scorers, topSites)
	snippets.IncludePageText = cfg.DebugLocal

	handler := query.NewHandler(
		query.NewHTTPMinerClient(),
		snippets,
		syncer,
		store,
		sink.New(cfg.LoggerAPIURL, cfg.EnableStoreJSON, w),
		w.Address(),
		cfg.MinerSampleSize,
		time.Duration(cfg.MinerTimeoutSeconds)*time.Second,
	)

	server := api.NewServer(handler, cfg.Debug || cfg.DebugLocal, cfg.EnableProxyLogging)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		syncer.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return server.Run(gctx, fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
	})
	return g.Wait()
}

// buildScorers initializes the local ONNX engines and the remote assessor.
// Engines without configured model paths stay disabled; the validator then
// rejects snippets with a validation error instead of crashing.
func buildScorers(cfg *config.Config) (*semantic.Scorers, func(), error) {
	var embedding *semantic.EmbeddingEngine
	var nli *semantic.NLIEngine

	if cfg.EmbeddingModelPath != "" {
		engine, err := semantic.NewEmbeddingEngine(semantic.EmbeddingConfig{
			ModelPath: cfg.EmbeddingModelPath,
			VocabPath: cfg.EmbeddingVocabPath,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("embedding engine: %w", err)
		}
		if err = engine.Initialize(cfg.ONNXLibraryPath); err != nil {
			return nil, nil, fmt.Errorf("initialize embedding engine: %w", err)
		}
		embedding = engine
	} else {
		log.Warn("no embedding model configured, similarity scoring disabled")
	}

	if cfg.NLIModelPath != "" {
		engine, err := semantic.NewNLIEngine(semantic.NLIConfig{
			ModelPath: cfg.NLIModelPath,
			VocabPath: cfg.NLIVocabPath,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("nli engine: %w", err)
		}
		if err = engine.Initialize(cfg.ONNXLibraryPath); err != nil {
			return nil, nil, fmt.Errorf("initialize nli engine: %w", err)
		}
		nli = engine
	} else {
		log.Warn("no nli model configured, entailment scoring disabled")
	}

	var assessor *semantic.Assessor
	if cfg.VLLMAPIURL != "" {
		assessor = semantic.NewAssessor(cfg.VLLMAPIURL, cfg.VLLMModel)
	} else {
		log.Warn("no vllm endpoint configured, relation assessment disabled")
	}

	cleanup := func() {
		if embedding != nil {
			embedding.Close()
		}
		if nli != nil {
			nli.Close()
		}
	}
	return semantic.NewScorers(embedding, nli, assessor, cfg.ScorerPoolSize), cleanup, nil
}
