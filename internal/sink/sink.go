// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sink forwards finalized query artifacts to the external dashboard
// logger service, authenticated by the validator's hotkey signature.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/wallet"
)

const storePath = "/store_json_response"

// Sink posts query artifacts to the logger API. A Sink with an empty base
// URL or Enabled=false drops everything silently, so callers never have to
// guard the forwarding path.
type Sink struct {
	baseURL string
	enabled bool
	wallet  *wallet.Wallet
	client  *http.Client
}

// New builds a Sink for baseURL. wallet signs the request identifier so the
// dashboard can verify which validator produced the artifact.
func New(baseURL string, enabled bool, w *wallet.Wallet) *Sink {
	return &Sink{
		baseURL: baseURL,
		enabled: enabled && baseURL != "",
		wallet:  w,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Forward sends one payload under a stable identifier, which is what gets
// signed. Errors are logged, not returned: the dashboard is an observer, and
// a failed forward must never stall weight submission.
func (s *Sink) Forward(ctx context.Context, identifier string, payload any) {
	if !s.enabled {
		return
	}
	if err := s.send(ctx, identifier, payload); err != nil {
		log.Warnf("sink: forward %s failed: %v", identifier, err)
	}
}

// ForwardArtifact sends one finished query artifact keyed by its request id.
func (s *Sink) ForwardArtifact(ctx context.Context, resp *protocol.QueryResponse) {
	s.Forward(ctx, resp.RequestID, resp)
}

func (s *Sink) send(ctx context.Context, identifier string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	sig, err := s.wallet.SignHex([]byte(identifier))
	if err != nil {
		return fmt.Errorf("sign identifier: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+storePath, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("wallet", s.wallet.Address())
	req.Header.Set("signature", sig)

	res, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	io.Copy(io.Discard, io.LimitReader(res.Body, 4096))

	if res.StatusCode >= 300 {
		return fmt.Errorf("logger api returned %s", res.Status)
	}
	return nil
}
