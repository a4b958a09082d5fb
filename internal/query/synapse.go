// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package query fans one fact-check statement out to a sample of miners,
// validates every piece of returned evidence, and composes the per-miner
// scores into a persisted query artifact.
package query

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"github.com/dfusionai/Vericore-sub000/internal/chain"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
)

const synapsePath = "/veridex_query"

// maxSynapseBytes bounds a miner reply; anything larger is hostile.
const maxSynapseBytes = 8 << 20

// MinerClient dispatches one synapse to one miner axon.
type MinerClient interface {
	Query(ctx context.Context, axon chain.AxonInfo, q protocol.StatementQuery) (*protocol.SynapseResponse, error)
}

// HTTPMinerClient speaks the miner synapse protocol over plain HTTP. The
// per-call deadline comes from the caller's context.
type HTTPMinerClient struct {
	client *http.Client
}

func NewHTTPMinerClient() *HTTPMinerClient {
	return &HTTPMinerClient{client: &http.Client{}}
}

func (c *HTTPMinerClient) Query(ctx context.Context, axon chain.AxonInfo, q protocol.StatementQuery) (*protocol.SynapseResponse, error) {
	endpoint := axon.Endpoint()
	if endpoint == "" {
		return nil, fmt.Errorf("query: axon %d has no endpoint", axon.UID)
	}

	payload, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("query: marshal synapse: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+endpoint+synapsePath, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query: miner %d returned %s", axon.UID, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxSynapseBytes))
	if err != nil {
		return nil, fmt.Errorf("query: read synapse body: %w", err)
	}

	var synapse protocol.SynapseResponse
	if err = json.Unmarshal(body, &synapse); err != nil {
		return nil, fmt.Errorf("query: decode synapse: %w", err)
	}
	return &synapse, nil
}

// elapsedSince reports seconds since start, as recorded in miner results.
func elapsedSince(start time.Time) float64 {
	return time.Since(start).Seconds()
}
