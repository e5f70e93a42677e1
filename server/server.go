// Package server hosts JASM programs: a worker pool, a Connect execution
// service with CBOR and JSON codecs, its client, and an LSP server.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/jasm/manifest"
)

// JasmServer is the execution server. It serves Connect over HTTP.
type JasmServer struct {
	pool *Pool
	mux  *http.ServeMux
	http *http.Server
	log  commonlog.Logger
}

// ServerOption configures a JasmServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	handlerOpts []connect.HandlerOption
}

// WithHandlerOptions passes extra options to the Connect handlers, such as
// interceptors.
func WithHandlerOptions(opts ...connect.HandlerOption) ServerOption {
	return func(c *serverConfig) { c.handlerOpts = append(c.handlerOpts, opts...) }
}

// New creates a JasmServer configured by m. A nil m uses manifest.Default().
func New(m *manifest.Manifest, opts ...ServerOption) *JasmServer {
	if m == nil {
		m = manifest.Default()
	}
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	pool := NewPool(m.Server.Workers, m.Server.Queue,
		WithRunLimits(m.Engine.MaxSteps, m.TimeoutDuration()),
		WithRunTrace(m.Engine.Trace),
	)

	s := &JasmServer{
		pool: pool,
		mux:  http.NewServeMux(),
		log:  commonlog.GetLogger("jasm.server"),
	}
	s.http = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	execPath, execHandler := NewExecutionServiceHandler(NewExecService(pool, m.Server.MaxSourceBytes), cfg.handlerOpts...)
	s.mux.Handle(execPath, execHandler)

	return s
}

// Handler returns the server's HTTP handler.
func (s *JasmServer) Handler() http.Handler {
	return s.mux
}

// Pool returns the worker pool runs are executed on.
func (s *JasmServer) Pool() *Pool {
	return s.pool
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
func (s *JasmServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	fmt.Printf("JASM execution server listening on %s\n", addr)
	fmt.Printf("  Connect (CBOR/JSON): http://%s%s\n", addr, ExecuteProcedure)
	s.log.Infof("listening on %s", addr)

	err = s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP server and the worker pool.
func (s *JasmServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		s.log.Warningf("shutdown: %v", err)
	}
	s.pool.Stop()
}
