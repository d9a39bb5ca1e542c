// Package natsserver runs an in-process NATS server for development and
// tests, so the bot and a gateway can talk without external infrastructure.
package natsserver

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
)

// ErrNotReady is returned when the server does not accept connections in time.
var ErrNotReady = errors.New("nats server not ready")

// Option configures the embedded server.
type Option func(*server.Options)

// WithHost sets the listen host. Default is 127.0.0.1.
func WithHost(host string) Option {
	return func(o *server.Options) {
		o.Host = host
	}
}

// WithPort sets the listen port. Default is a random free port.
func WithPort(port int) Option {
	return func(o *server.Options) {
		o.Port = port
	}
}

// WithToken requires clients to authenticate with token.
func WithToken(token string) Option {
	return func(o *server.Options) {
		o.Authorization = token
	}
}

// WithDebug enables server debug logging.
func WithDebug(debug bool) Option {
	return func(o *server.Options) {
		o.Debug = debug
		o.NoLog = !debug
	}
}

// Server wraps an embedded NATS server.
type Server struct {
	server       *server.Server
	url          string
	shutdownOnce sync.Once
}

// Start starts an embedded NATS server and waits until it accepts
// connections.
func Start(opts ...Option) (*Server, error) {
	sopts := &server.Options{
		Host:   "127.0.0.1",
		Port:   server.RANDOM_PORT,
		NoLog:  true,
		NoSigs: true,
	}
	for _, opt := range opts {
		opt(sopts)
	}

	s, err := server.NewServer(sopts)
	if err != nil {
		return nil, fmt.Errorf("create embedded server: %w", err)
	}

	go s.Start()

	if !s.ReadyForConnections(5 * time.Second) {
		s.Shutdown()
		return nil, ErrNotReady
	}

	return &Server{server: s, url: s.ClientURL()}, nil
}

// URL returns the client connection URL.
func (s *Server) URL() string {
	return s.url
}

// Connect opens a client connection to the server.
func (s *Server) Connect(opts ...nats.Option) (*nats.Conn, error) {
	return nats.Connect(s.url, opts...)
}

// Shutdown stops the server, waiting at most timeout. It is safe to call
// more than once.
func (s *Server) Shutdown(timeout time.Duration) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.server.Shutdown()

		done := make(chan struct{})
		go func() {
			s.server.WaitForShutdown()
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(timeout):
			err = fmt.Errorf("nats server shutdown timed out after %s", timeout)
		}
	})
	return err
}

// Running reports whether the server is still running.
func (s *Server) Running() bool {
	return s.server.Running()
}
