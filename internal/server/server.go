// Package server owns the listener lifecycle for the greeter: it prints the
// startup banner, binds the configured backend and shuts it down gracefully.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"github.com/janisto/greeter/internal/config"
	applog "github.com/janisto/greeter/internal/platform/logging"
)

// State is the lifecycle position of a Server.
type State int

const (
	StateNotStarted State = iota
	StateListening
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateListening:
		return "listening"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrAlreadyStarted is returned by Start on a server that has left StateNotStarted.
	ErrAlreadyStarted = errors.New("server already started")
	// ErrNotStarted is returned by Shutdown on a server that never listened.
	ErrNotStarted = errors.New("server not started")
)

const (
	readTimeout       = 5 * time.Second
	readHeaderTimeout = 2 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	maxHeaderBytes    = 64 << 10 // 64 KB
)

// Option customizes a Server.
type Option func(*Server)

// WithBannerWriter redirects the startup banner, which defaults to os.Stdout.
func WithBannerWriter(w io.Writer) Option {
	return func(s *Server) { s.bannerOut = w }
}

// WithListenFunc replaces net.Listen, mainly so tests can bind ephemeral ports.
func WithListenFunc(fn func(network, addr string) (net.Listener, error)) Option {
	return func(s *Server) { s.listen = fn }
}

// Server runs an http.Handler on the backend chosen in config.
type Server struct {
	cfg       config.Config
	handler   http.Handler
	banner    string
	bannerOut io.Writer
	listen    func(network, addr string) (net.Listener, error)

	mu       sync.Mutex
	state    State
	httpSrv  *http.Server
	listener net.Listener
	done     chan error
}

// New prepares a server; nothing is printed or bound until Start.
func New(cfg config.Config, handler http.Handler, banner string, opts ...Option) *Server {
	s := &Server{
		cfg:       cfg,
		handler:   handler,
		banner:    banner,
		bannerOut: os.Stdout,
		listen:    net.Listen,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start prints the banner, binds the listener and begins serving in the
// background. It returns once connections can be accepted. A server can be
// started at most once.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateNotStarted {
		return ErrAlreadyStarted
	}

	httpSrv, err := s.buildHTTPServer()
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(s.bannerOut, s.banner); err != nil {
		return fmt.Errorf("write banner: %w", err)
	}

	ln, err := s.listen("tcp", httpSrv.Addr)
	if err != nil {
		s.state = StateStopped
		return fmt.Errorf("listen %s: %w", httpSrv.Addr, err)
	}
	if s.cfg.Backend == config.BackendReference {
		ln = netutil.LimitListener(ln, s.cfg.ReferenceMaxConns)
	}

	s.httpSrv = httpSrv
	s.listener = ln
	s.done = make(chan error, 1)
	s.state = StateListening

	applog.LogLifecycleEvent(ctx, "listening", string(s.cfg.Backend), ln.Addr().String())

	go func() {
		err := httpSrv.Serve(ln)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		s.done <- err
		close(s.done)
	}()
	return nil
}

func (s *Server) buildHTTPServer() (*http.Server, error) {
	switch s.cfg.Backend {
	case config.BackendThreaded:
		// Unencrypted HTTP/2 is served by net/http itself so Shutdown drains
		// those connections like HTTP/1.1 ones.
		protocols := new(http.Protocols)
		protocols.SetHTTP1(true)
		protocols.SetUnencryptedHTTP2(true)
		return &http.Server{
			Addr:              s.cfg.Addr(),
			Handler:           s.handler,
			Protocols:         protocols,
			ReadTimeout:       readTimeout,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
			MaxHeaderBytes:    maxHeaderBytes,
		}, nil
	case config.BackendReference:
		if s.cfg.ReferenceMaxConns <= 0 {
			return nil, fmt.Errorf("reference backend: max conns must be positive, got %d", s.cfg.ReferenceMaxConns)
		}
		protocols := new(http.Protocols)
		protocols.SetHTTP1(true)
		srv := &http.Server{
			Addr:              s.cfg.Addr(),
			Handler:           s.handler,
			Protocols:         protocols,
			ReadHeaderTimeout: readHeaderTimeout,
		}
		// One request per connection. An idle keep-alive connection would
		// otherwise hold a LimitListener slot forever.
		srv.SetKeepAlivesEnabled(false)
		return srv, nil
	default:
		return nil, fmt.Errorf("%w %q", config.ErrInvalidBackend, s.cfg.Backend)
	}
}

// Addr reports the bound address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// State reports the current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done yields the terminal Serve error (nil after a clean shutdown) and is
// then closed. It is nil before Start.
func (s *Server) Done() <-chan error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Shutdown stops accepting connections and waits for in-flight requests
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateListening {
		state := s.state
		s.mu.Unlock()
		if state == StateStopped {
			return nil
		}
		return ErrNotStarted
	}
	s.state = StateStopped
	httpSrv, addr := s.httpSrv, s.listener.Addr().String()
	s.mu.Unlock()

	err := httpSrv.Shutdown(ctx)
	applog.LogLifecycleEvent(ctx, "stopped", string(s.cfg.Backend), addr, zap.Bool("clean", err == nil))
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
