// Copyright 2026 The Vericore Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package api exposes the validator's intake HTTP surface: one endpoint
// that accepts a statement and synchronously returns the composed query
// artifact.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/dfusionai/Vericore-sub000/internal/buildinfo"
	"github.com/dfusionai/Vericore-sub000/internal/protocol"
	"github.com/dfusionai/Vericore-sub000/internal/query"
)

// keepAliveTimeout matches the long-poll behavior of clients that hold the
// intake connection open across slow miner fan-outs.
const keepAliveTimeout = 500 * time.Second

// QueryService runs one statement through the miner pipeline.
type QueryService interface {
	HandleQuery(ctx context.Context, statement string, sources []string) (*protocol.QueryResponse, error)
}

// Server is the intake HTTP server.
type Server struct {
	queries QueryService
	engine  *gin.Engine
	srv     *http.Server
}

// queryRequest is the intake body.
type queryRequest struct {
	Statement string   `json:"statement"`
	Sources   []string `json:"sources"`
}

// NewServer wires the intake routes. queries may be nil until the pipeline
// finishes initializing; requests arriving before that get a 500. accessLogs
// enables per-request logging, routed through the shared logrus writers.
func NewServer(queries QueryService, debug, accessLogs bool) *Server {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{queries: queries, engine: gin.New()}
	s.engine.Use(gin.Recovery())
	if accessLogs {
		s.engine.Use(gin.Logger())
	}

	s.engine.POST("/", s.handleQuery)
	s.engine.POST("/veridex_query", s.handleQuery)
	s.engine.GET("/healthz", s.handleHealth)
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       keepAliveTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	log.Infof("intake api listening on %s", addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api: shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleQuery(c *gin.Context) {
	if s.queries == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "validator not initialized"})
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.Statement == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "statement is required"})
		return
	}

	resp, err := s.queries.HandleQuery(c.Request.Context(), req.Statement, req.Sources)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, query.ErrNoMetagraph) {
			status = http.StatusServiceUnavailable
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": buildinfo.Version,
		"commit":  buildinfo.Commit,
	})
}
