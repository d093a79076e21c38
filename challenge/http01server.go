// Copyright 2026 cloudeng llc. All rights reserved.
// Use of this source code is governed by the Apache-2.0
// license that can be found in the LICENSE file.

package challenge

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"cloudeng.io/logging/ctxlog"
	"cloudeng.io/net/netutil"
)

// HTTP01Server solves HTTP-01 challenges by serving the key
// authorizations itself, for hosts that do not already run a web
// server on port 80. It must be started before any challenge is
// presented and stopped once the order completes.
type HTTP01Server struct {
	addr string

	mu     sync.Mutex
	tokens map[string]string
	ln     net.Listener
}

// NewHTTP01Server returns a server that will listen on the supplied
// address; the port defaults to 80 if not specified.
func NewHTTP01Server(addr string) *HTTP01Server {
	return &HTTP01Server{addr: addr, tokens: map[string]string{}}
}

// Type implements Solver.
func (s *HTTP01Server) Type() string { return TypeHTTP01 }

// Present implements Solver.
func (s *HTTP01Server) Present(ctx context.Context, domain, token, response string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return fmt.Errorf("http-01 challenge server is not running")
	}
	s.tokens[token] = response
	ctxlog.Info(ctx, "serving http-01 challenge", "domain", domain, "addr", s.ln.Addr().String())
	return nil
}

// CleanUp implements Solver.
func (s *HTTP01Server) CleanUp(_ context.Context, _, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
	return nil
}

// Addr returns the address the server is listening on, or the empty
// string if it has not been started.
func (s *HTTP01Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *HTTP01Server) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.URL.Path, ACMEHTTP01Prefix)
		if token == r.URL.Path || strings.Contains(token, "/") {
			http.NotFound(w, r)
			return
		}
		s.mu.Lock()
		response, ok := s.tokens[token]
		s.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, response)
	})
}

// Start starts the server and returns a function that stops it,
// allowing the specified grace period for outstanding requests. The
// server also stops when the supplied context is canceled.
func (s *HTTP01Server) Start(ctx context.Context, grace time.Duration) (func() error, error) {
	ap, err := netutil.ParseAddrDefaultPort(s.addr, "http")
	if err != nil {
		return nil, err
	}
	ln, err := net.Listen("tcp", netutil.HTTPServerAddr(ap))
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.handler(),
		ReadHeaderTimeout: time.Minute,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
	serveErrCh := make(chan error, 1)
	go func() {
		err := srv.Serve(ln)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErrCh <- err
			return
		}
		serveErrCh <- nil
	}()
	ctxlog.Info(ctx, "http-01 challenge server listening", "addr", ln.Addr().String())

	return func() error {
		// A new context tree: the caller's may already be canceled.
		sctx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("http-01 challenge server shutdown failed: %w", err)
		}
		s.mu.Lock()
		s.ln = nil
		s.mu.Unlock()
		select {
		case err := <-serveErrCh:
			return err
		case <-sctx.Done():
			return sctx.Err()
		}
	}, nil
}
