// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package results implements the filesystem rendezvous between the query
// handler and the aggregator: one uniquely named JSON artifact per query,
// written atomically by the producer and deleted by the consumer so each is
// processed at most once.
package results

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

// Store is the on-disk queue rooted at one directory.
type Store struct {
	dir string
}

// NewStore creates the directory when missing.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("results: create %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the queue directory.
func (s *Store) Dir() string { return s.dir }

// Write persists one artifact as <request_id>.json using the rename-swap
// pattern so the consumer never observes a partial file.
func (s *Store) Write(resp *protocol.QueryResponse) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("results: marshal %s: %w", resp.RequestID, err)
	}

	tmp := filepath.Join(s.dir, fmt.Sprintf(".%s.%s.tmp", resp.RequestID, uuid.NewString()[:8]))
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("results: write temp: %w", err)
	}
	final := filepath.Join(s.dir, resp.RequestID+".json")
	if err = os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("results: rename: %w", err)
	}
	return nil
}

// Drain reads every artifact in directory-listing order, deletes each file
// whether or not it parsed, and returns the parseable ones. Deleting first
// failures included keeps the queue at-most-once.
func (s *Store) Drain() []*protocol.QueryResponse {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Errorf("results: scan %s: %v", s.dir, err)
		return nil
	}

	var out []*protocol.QueryResponse
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())

		data, err := os.ReadFile(path)
		if removeErr := os.Remove(path); removeErr != nil {
			log.Errorf("results: delete %s: %v", path, removeErr)
		}
		if err != nil {
			log.Errorf("results: read %s: %v", path, err)
			continue
		}

		var resp protocol.QueryResponse
		if err = json.Unmarshal(data, &resp); err != nil {
			log.Errorf("results: parse %s: %v", path, err)
			continue
		}
		out = append(out, &resp)
	}
	return out
}
