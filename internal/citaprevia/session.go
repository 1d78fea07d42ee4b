package citaprevia

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"citaprevia/internal/components/telemetry"
)

const (
	report_session_landing = "session.landing"
	report_session_auth    = "session.anonymous-auth"
)

// session owns the cookie jar and the knowledge of whether the anonymous handshake has happened.
// The upstream hands out the session cookie on the landing page and only accepts calls after the
// anonymous authentication, so this must happen exactly once per client.
type session struct {
	mutex       sync.Mutex
	initialized atomic.Bool

	transport transport
	endpoints endpoints
	tel       telemetry.API
}

// ensureInit performs the handshake if it has not succeeded yet. Concurrent callers wait for the
// one in progress, a failed handshake leaves the session uninitialized so the next call retries.
func (s *session) ensureInit(ctx context.Context) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.initialized.Load() {
		return nil
	}

	_, err := s.transport.send(s.transport.request(ctx), http.MethodGet, s.endpoints.landing)
	if err != nil {
		s.tel.ReportBroken(report_session_landing, err)
		return fmt.Errorf("%w: landing page: %w", ErrSessionInit, err)
	}

	// the auth endpoint rejects POSTs that carry no explicit Content-Length
	req := s.transport.request(ctx).SetContentLength(true)
	_, err = s.transport.send(req, http.MethodPost, s.endpoints.anonymousAuth)
	if err != nil {
		s.tel.ReportBroken(report_session_auth, err)
		return fmt.Errorf("%w: anonymous auth: %w", ErrSessionInit, err)
	}

	s.initialized.Store(true)
	s.tel.ReportDebug("session initialized")
	return nil
}
