// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package httpbridge carries boundary requests over loopback HTTP, for UI
// processes that cannot share memory with the host.
package httpbridge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/htapp/pkg/config"
	"github.com/united-manufacturing-hub/htapp/pkg/ipc"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
)

// RequestIDHeader carries the request id; the response echoes it.
const RequestIDHeader = "X-Request-ID"

const jsonContentType = "application/json"

// Server exposes POST /ipc/:channel and GET /metrics.
type Server struct {
	transport ipc.Transport
	addr      string
	router    *gin.Engine
	server    *http.Server
	listener  net.Listener
	logger    *zap.SugaredLogger
}

// NewServer returns a server forwarding requests to transport. addr must be
// a loopback host:port.
func NewServer(transport ipc.Transport, addr string) (*Server, error) {
	if err := config.CheckLoopback(addr); err != nil {
		return nil, fmt.Errorf("refusing to listen on %s: %w", addr, err)
	}

	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		transport: transport,
		addr:      addr,
		logger:    logger.For(logger.ComponentHTTPBridge),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(s.loggingMiddleware())
	router.POST("/ipc/:channel", s.requireLocalCaller(), s.handleIPC)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router = router

	return s, nil
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start listens and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}

	s.listener = ln
	s.server = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	s.logger.Infof("http bridge listening on %s", ln.Addr())

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("http bridge failed: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.addr
	}

	return s.listener.Addr().String()
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("stopping http bridge")

	return s.server.Shutdown(ctx)
}

// requireLocalCaller refuses requests a browser page can issue without a
// preflight: anything carrying an Origin header or a non-JSON body.
func (s *Server) requireLocalCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if origin := c.GetHeader("Origin"); origin != "" {
			metrics.IncErrorCount(metrics.ComponentBridge, "refused")
			s.logger.Warnf("refused %s from origin %q", c.Request.URL.Path, origin)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("cross-origin request from %q refused", origin)})

			return
		}

		if c.ContentType() != jsonContentType {
			metrics.IncErrorCount(metrics.ComponentBridge, "refused")
			c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": "content type must be " + jsonContentType})

			return
		}

		c.Next()
	}
}

func (s *Server) handleIPC(c *gin.Context) {
	channel := ipc.Channel(c.Param("channel"))
	if !channel.Valid() {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("unknown channel %q", channel)})

		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	req := ipc.Request{
		ID:      c.GetHeader(RequestIDHeader),
		Channel: channel,
		Payload: body,
	}

	resp, err := s.transport.RoundTrip(c.Request.Context(), req)
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentBridge, string(channel), err, s.logger)
		resp = ipc.ErrorResponse(req.ID, err.Error())
	}

	c.Header(RequestIDHeader, resp.ID)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Debugw("bridge request",
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
