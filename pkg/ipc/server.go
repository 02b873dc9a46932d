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

package ipc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/united-manufacturing-hub/htapp/pkg/constants"
	"github.com/united-manufacturing-hub/htapp/pkg/logger"
	"github.com/united-manufacturing-hub/htapp/pkg/metrics"
)

// ErrServerClosed is returned by RoundTrip once the server has stopped.
var ErrServerClosed = errors.New("ipc server closed")

// Handler answers requests. It must not panic and must always return a response.
type Handler interface {
	Handle(ctx context.Context, req Request) Response
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, req Request) Response

func (f HandlerFunc) Handle(ctx context.Context, req Request) Response {
	return f(ctx, req)
}

// Transport carries a request to the gateway and returns its response.
// An error means the request could not be delivered or answered; failures
// of the operation itself are reported inside the Response.
type Transport interface {
	RoundTrip(ctx context.Context, req Request) (Response, error)
}

type call struct {
	ctx   context.Context
	req   Request
	reply chan Response
}

// Server is the in-process transport. Requests are queued on a channel and
// answered by a fixed pool of workers, so unrelated requests run
// concurrently and only the store's own locking orders them.
type Server struct {
	handler Handler
	workers int
	queue   chan call
	done    chan struct{}
	once    sync.Once
	logger  *zap.SugaredLogger
}

// NewServer creates a server with the given number of workers (at least one).
func NewServer(handler Handler, workers int) *Server {
	if workers < 1 {
		workers = 1
	}

	return &Server{
		handler: handler,
		workers: workers,
		queue:   make(chan call, constants.IPCQueueSize),
		done:    make(chan struct{}),
		logger:  logger.For(logger.ComponentIPC),
	}
}

// Serve runs the workers until ctx is cancelled. Requests already taken by a
// worker run to completion before Serve returns.
func (s *Server) Serve(ctx context.Context) error {
	defer s.once.Do(func() { close(s.done) })

	group, groupCtx := errgroup.WithContext(ctx)

	for i := 0; i < s.workers; i++ {
		group.Go(func() error {
			for {
				select {
				case <-groupCtx.Done():
					return nil
				case c := <-s.queue:
					c.reply <- s.dispatch(c)
				}
			}
		})
	}

	s.logger.Debugf("serving with %d workers", s.workers)

	err := group.Wait()
	s.drain()

	return err
}

// drain answers queued requests that no worker picked up.
func (s *Server) drain() {
	for {
		select {
		case c := <-s.queue:
			c.reply <- ErrorResponse(c.req.ID, ErrServerClosed.Error())
		default:
			return
		}
	}
}

func (s *Server) dispatch(c call) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncErrorCountAndLog(metrics.ComponentIPC, string(c.req.Channel), fmt.Errorf("panic: %v", r), s.logger)
			resp = ErrorResponse(c.req.ID, fmt.Sprintf("internal error: %v", r))
		}
	}()

	resp = s.handler.Handle(c.ctx, c.req)
	resp.ID = c.req.ID

	return resp
}

// RoundTrip queues req and waits for its response. Cancelling ctx stops the
// wait only; a request already queued still runs.
func (s *Server) RoundTrip(ctx context.Context, req Request) (Response, error) {
	c := call{ctx: ctx, req: req, reply: make(chan Response, 1)}

	select {
	case <-s.done:
		return Response{}, ErrServerClosed
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case s.queue <- c:
	}

	select {
	case resp := <-c.reply:
		return resp, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	case <-s.done:
		select {
		case resp := <-c.reply:
			return resp, nil
		default:
			return Response{}, ErrServerClosed
		}
	}
}

// Transport returns the client side of the server.
func (s *Server) Transport() Transport {
	return s
}
