// Package server exposes the intcode machine and calibrator over Connect
// (HTTP/JSON).
package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"sync"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/derwiath/adventofcode-2019/store"
)

var log = commonlog.GetLogger("intcode.server")

var errWorkerStopped = errors.New("server: worker stopped")

// shutdownTimeout bounds how long Stop waits for in-flight requests.
const shutdownTimeout = 5 * time.Second

// IntcodeServer serves MachineService over HTTP.
type IntcodeServer struct {
	worker *SearchWorker
	store  *store.Store
	mux    *http.ServeMux

	mu         sync.Mutex
	httpServer *http.Server
}

// ServerOption configures an IntcodeServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	store       *store.Store
	concurrency int
	maxWorkers  int
}

// WithStore caches calibration outcomes in st. The server does not close it.
func WithStore(st *store.Store) ServerOption {
	return func(c *serverConfig) { c.store = st }
}

// WithConcurrency sets how many runs or searches execute at once.
func WithConcurrency(n int) ServerOption {
	return func(c *serverConfig) { c.concurrency = n }
}

// WithMaxSearchWorkers caps the per-request calibration worker count.
func WithMaxSearchWorkers(n int) ServerOption {
	return func(c *serverConfig) { c.maxWorkers = n }
}

// New creates an IntcodeServer.
func New(opts ...ServerOption) *IntcodeServer {
	cfg := &serverConfig{
		concurrency: runtime.NumCPU(),
		maxWorkers:  runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	worker := NewSearchWorker(cfg.concurrency)
	s := &IntcodeServer{
		worker: worker,
		store:  cfg.store,
		mux:    http.NewServeMux(),
	}

	svc := NewMachineService(worker, cfg.store, cfg.maxWorkers)
	path, handler := NewMachineServiceHandler(svc, connect.WithInterceptors(logRequests()))
	s.mux.Handle(path, handler)

	return s
}

// Handler returns the HTTP handler serving every procedure.
func (s *IntcodeServer) Handler() http.Handler {
	return s.mux
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
// It returns nil once Stop has shut the server down.
func (s *IntcodeServer) ListenAndServe(addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.mux}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	log.Info("intcode server listening", "addr", addr)
	log.Info("Connect (HTTP/JSON)", "url", "http://"+addr+CalibrateProcedure)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts down the server.
func (s *IntcodeServer) Stop() {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Warning("shutdown", "error", err)
		}
	}
	s.worker.Stop()
}

// logRequests logs every procedure call at debug level.
func logRequests() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)
			if err != nil {
				log.Debug("request failed", "procedure", req.Spec().Procedure, "code", connect.CodeOf(err).String(), "elapsed", time.Since(start))
			} else {
				log.Debug("request", "procedure", req.Spec().Procedure, "elapsed", time.Since(start))
			}
			return resp, err
		}
	}
}
