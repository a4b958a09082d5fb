// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package chain

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// Syncer keeps a periodically refreshed metagraph snapshot. Metagraph
// returns nil until the first successful sync.
type Syncer struct {
	client   Client
	interval time.Duration

	mu sync.RWMutex
	mg *Metagraph
}

func NewSyncer(client Client, interval time.Duration) *Syncer {
	return &Syncer{client: client, interval: interval}
}

// Metagraph returns the latest snapshot, or nil before the first sync.
func (s *Syncer) Metagraph() *Metagraph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mg
}

// Sync fetches a fresh snapshot immediately.
func (s *Syncer) Sync(ctx context.Context) error {
	mg, err := s.client.SyncMetagraph(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.mg = mg
	s.mu.Unlock()
	log.Infof("metagraph synced: netuid %d, %d neurons", mg.NetUID, mg.Size())
	return nil
}

// Run syncs on the configured interval until ctx is cancelled. A failed
// refresh keeps the previous snapshot.
func (s *Syncer) Run(ctx context.Context) {
	if err := s.Sync(ctx); err != nil {
		log.Errorf("initial metagraph sync failed: %v", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sync(ctx); err != nil {
				log.Errorf("metagraph sync failed: %v", err)
			}
		}
	}
}
