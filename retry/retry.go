// Package retry implements the bounded, fixed-delay retry policy used by every
// external call wrapper.
package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"fandom-explainer/types"
)

// Policy is a bounded retry budget with a fixed delay between attempts
type Policy struct {
	MaxAttempts int
	Delay       time.Duration
}

// Default matches the upstream behaviour the services expect: 3 tries, 2s apart
var Default = Policy{MaxAttempts: 3, Delay: 2 * time.Second}

// StatusError is returned by HTTP clients for non-2xx responses
type StatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.Service, e.StatusCode, truncate(e.Body, 200))
}

// Permanent marks an error that must not be retried
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Transient reports whether err is worth another attempt: authorization
// hiccups, throttling, server errors and network failures.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var perm *permanentError
	if errors.As(err, &perm) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return IsTransientStatus(se.StatusCode)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return true
	}
	var oe *net.OpError
	return errors.As(err, &oe)
}

// IsTransientStatus classifies an HTTP status code
func IsTransientStatus(code int) bool {
	switch {
	case code == http.StatusUnauthorized,
		code == http.StatusRequestTimeout,
		code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	}
	return false
}

// Do runs fn until it succeeds, returns a non-transient error, or the policy
// is exhausted. Exhaustion and non-transient failures are wrapped in
// types.ErrUpstream.
func (p Policy) Do(ctx context.Context, label string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	tried := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		tried = attempt
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if errors.Is(err, types.ErrUpstream) || !Transient(err) || attempt == attempts {
			break
		}
		log.Warn().Err(err).Str("call", label).Int("attempt", attempt).Int("max", attempts).
			Dur("delay", p.Delay).Msg("transient failure, retrying")

		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %s: %v", types.ErrUpstream, label, ctx.Err())
		case <-time.After(p.Delay):
		}
	}
	if errors.Is(err, types.ErrUpstream) {
		return err
	}
	return fmt.Errorf("%w: %s after %d attempt(s): %w", types.ErrUpstream, label, tried, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
