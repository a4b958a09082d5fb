// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// The aggregator binary runs the chain-facing loop: it drains artifacts
// persisted by the validator, folds them into moving scores, and submits
// weights once per tempo window.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/aggregator"
	"github.com/dfusionai/Vericore-sub000/internal/buildinfo"
	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/config"
	"github.com/dfusionai/Vericore-sub000/internal/logging"
	"github.com/dfusionai/Vericore-sub000/internal/results"
	"github.com/dfusionai/Vericore-sub000/internal/sink"
	"github.com/dfusionai/Vericore-sub000/internal/wallet"
)

// tickInterval is the sleep between aggregation loop iterations.
const tickInterval = 60 * time.Second

func main() {
	configPath := flag.String("config", "", "path to optional YAML config file")
	checkoutDir := flag.String("checkout", "", "git checkout for self-update probes ('' disables)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("vericore-aggregator %s (%s, built %s)\n", buildinfo.Version, buildinfo.Commit, buildinfo.BuildDate)
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

	err = run(cfg, *checkoutDir)
	switch {
	case errors.Is(err, aggregator.ErrUpdated):
		log.Info("exiting for restart on updated code")
		os.Exit(0)
	case err != nil && !errors.Is(err, context.Canceled):
		log.Fatalf("aggregator exited: %v", err)
	}
}

func run(cfg *config.Config, checkoutDir string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := wallet.FromSeedHex(cfg.WalletHotkeySeed)
	if err != nil {
		return fmt.Errorf("load hotkey wallet: %w", err)
	}
	log.Infof("aggregator hotkey %s on netuid %d", w.Address(), cfg.NetUID)

	client, err := chain.NewSubstrate(cfg.SubtensorEndpoint, cfg.NetUID, w)
	if err != nil {
		return fmt.Errorf("connect subtensor: %w", err)
	}

	store, err := results.NewStore(cfg.ResultsDir)
	if err != nil {
		return fmt.Errorf("open results store: %w", err)
	}

	var updater *aggregator.Updater
	if checkoutDir != "" {
		updater = aggregator.NewUpdater(checkoutDir)
	}

	snk := sink.New(cfg.LoggerAPIURL, cfg.EnableStoreJSON, w)
	daemon := aggregator.NewDaemon(client, store, snk, updater, w.Address(), tickInterval)
	return daemon.Run(ctx)
}
