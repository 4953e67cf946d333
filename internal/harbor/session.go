package harbor

import (
	"net/http"
	"sync"
	"time"

	"github.com/rxtech-lab/harbor-dex-proxy/internal/logger"
	"github.com/rxtech-lab/harbor-dex-proxy/pkg/errors"
	"go.uber.org/zap"
)

// Session owns the single outbound HTTP client used for every Harbor call.
// It is created on Start and released on Stop.
type Session struct {
	timeout   time.Duration
	client    *http.Client
	transport *http.Transport
	startedAt time.Time
	mu        sync.Mutex
	logger    *logger.Logger
}

// NewSession creates a Session whose client uses timeout as the total request timeout.
// A zero timeout leaves requests bounded only by their context.
func NewSession(timeout time.Duration, log *logger.Logger) *Session {
	return &Session{
		timeout:   timeout,
		client:    nil,
		transport: nil,
		startedAt: time.Time{},
		mu:        sync.Mutex{},
		logger:    log,
	}
}

// Start creates the shared client. Calling Start on a running session replaces
// the previous client after releasing its connections.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}

	transport, ok := http.DefaultTransport.(*http.Transport)
	if ok {
		transport = transport.Clone()
	} else {
		transport = &http.Transport{} //nolint:exhaustruct // zero transport is usable
	}

	s.transport = transport
	s.client = &http.Client{
		Transport: transport,
		Timeout:   s.timeout,
	}
	s.startedAt = time.Now()

	s.logger.Info("Harbor session started",
		zap.Duration("timeout", s.timeout),
	)
}

// Stop releases pooled connections and drops the client. It is safe to call
// before Start, after a partial start, and more than once.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.transport != nil {
		s.transport.CloseIdleConnections()
	}

	wasRunning := s.client != nil
	s.transport = nil
	s.client = nil

	if wasRunning {
		s.logger.Info("Harbor session stopped",
			zap.Duration("uptime", time.Since(s.startedAt)),
		)
	}
}

// HTTPClient returns the shared client or an error when the session is not running.
func (s *Session) HTTPClient() (*http.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil, errors.New(errors.ErrCodeSessionClosed, "harbor session is not started")
	}

	return s.client, nil
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.client != nil
}
