// Copyright (c) 2023 BVK Chaitanya

package httputil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Server multiplexes a dynamic set of handlers over one or more listeners.
// Handlers can be added and removed while the server is running.
type Server struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	wg     sync.WaitGroup

	opts Options

	nextServerID atomic.Int64

	mux atomic.Pointer[http.ServeMux]

	mutex      sync.Mutex
	handlerMap map[string]http.Handler
	listeners  map[int64]*listener
}

type listener struct {
	addr   *net.TCPAddr
	server *http.Server
}

// New creates a http server.
func New(opts *Options) (_ *Server, status error) {
	if opts == nil {
		opts = new(Options)
	}
	opts.setDefaults()
	if err := opts.Check(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer func() {
		if status != nil {
			cancel(status)
		}
	}()

	s := &Server{
		ctx:        ctx,
		cancel:     cancel,
		opts:       *opts,
		handlerMap: make(map[string]http.Handler),
		listeners:  make(map[int64]*listener),
	}
	s.updateHandlerMux()
	return s, nil
}

func (s *Server) Close() error {
	s.cancel(os.ErrClosed)

	s.mutex.Lock()
	for id, l := range s.listeners {
		l.server.Close()
		delete(s.listeners, id)
	}
	s.mutex.Unlock()

	s.wg.Wait()
	return nil
}

func (s *Server) sleep(d time.Duration) error {
	select {
	case <-s.ctx.Done():
		return context.Cause(s.ctx)
	case <-time.After(d):
		return nil
	}
}

// StartTCP starts serving on the address and waits until the server responds
// to a probe request. A zero port in the address is updated with the port
// picked by the kernel.
func (s *Server) StartTCP(ctx context.Context, addr *net.TCPAddr) (id int64, status error) {
	l, err := net.Listen("tcp", addr.String())
	if err != nil {
		return -1, err
	}
	defer func() {
		if status != nil {
			l.Close()
		}
	}()

	if addr.Port == 0 {
		laddr, ok := l.Addr().(*net.TCPAddr)
		if !ok {
			return -1, fmt.Errorf("created listener addr is not *net.TCPAddr type")
		}
		addr.Port = laddr.Port
	}

	testPath := "/" + uuid.New().String()
	testHandler := http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		slog.Debug("received http server probe request", "addr", addr, "remote", r.RemoteAddr)
	})
	s.AddHandler(testPath, testHandler)
	defer s.RemoveHandler(testPath)

	server := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: s.opts.ReadHeaderTimeout,
		BaseContext: func(net.Listener) context.Context {
			return s.ctx
		},
	}
	defer func() {
		if status != nil {
			server.Close()
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.serve(server, l)
	}()

	u := url.URL{
		Scheme: "http",
		Host:   l.Addr().String(),
		Path:   testPath,
	}
	if err := s.waitReady(ctx, &u); err != nil {
		return -1, err
	}

	id = s.nextServerID.Add(1) - 1

	s.mutex.Lock()
	laddr := *addr
	s.listeners[id] = &listener{addr: &laddr, server: server}
	s.mutex.Unlock()

	slog.Info("http server is listening", "id", id, "addr", addr)
	return id, nil
}

// serve runs the http server on the listener until it is closed. Serve errors
// other than close are logged and retried.
func (s *Server) serve(server *http.Server, l net.Listener) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("CAUGHT PANIC", "panic", r)
			slog.Error(string(debug.Stack()))
			panic(r)
		}
	}()

	for s.ctx.Err() == nil {
		err := server.Serve(l)
		if errors.Is(err, http.ErrServerClosed) {
			return
		}
		slog.Error("http server failed", "addr", l.Addr(), "err", err)
		if err := s.sleep(s.opts.ReadyProbeInterval); err != nil {
			return
		}
	}
}

// Addr returns the address of a listener started by StartTCP.
func (s *Server) Addr(id int64) (*net.TCPAddr, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if l, ok := s.listeners[id]; ok {
		return l.addr, true
	}
	return nil, false
}

func (s *Server) waitReady(ctx context.Context, u *url.URL) error {
	c := http.Client{
		Timeout: s.opts.ReadyTimeout,
	}

	tctx, tcancel := context.WithTimeout(ctx, s.opts.ReadyTimeout)
	defer tcancel()

	for tctx.Err() == nil {
		r, err := http.NewRequestWithContext(tctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return fmt.Errorf("could not create test request: %w", err)
		}
		resp, err := c.Do(r)
		if err != nil {
			s.sleep(s.opts.ReadyProbeInterval)
			continue
		}
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}
	return fmt.Errorf("could not invoke test handler: %w", context.Cause(tctx))
}

// Stop shuts down a listener started by StartTCP. In-flight requests get up
// to ShutdownTimeout to finish.
func (s *Server) Stop(id int64) error {
	s.mutex.Lock()
	l, ok := s.listeners[id]
	delete(s.listeners, id)
	s.mutex.Unlock()

	if !ok {
		return fmt.Errorf("http server %d not found: %w", id, os.ErrNotExist)
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := l.server.Shutdown(ctx); err != nil {
		slog.Warn("http server did not shutdown gracefully", "addr", l.addr, "err", err)
		_ = l.server.Close()
	}
	return nil
}

func (s *Server) AddHandler(pattern string, handler http.Handler) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.handlerMap[pattern] = handler
	s.updateHandlerMux()
}

func (s *Server) RemoveHandler(pattern string) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.handlerMap[pattern]; !ok {
		return false
	}
	delete(s.handlerMap, pattern)
	s.updateHandlerMux()
	return true
}

func (s *Server) updateHandlerMux() {
	m := http.NewServeMux()
	for k, v := range s.handlerMap {
		m.Handle(k, v)
	}
	s.mux.Store(m)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.Load().ServeHTTP(w, r)
}
