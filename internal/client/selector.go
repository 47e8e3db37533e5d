package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/congsh/PeerHaiguitang/internal/application/constant"
)

const defaultCandidateTimeout = 8 * time.Second

// Candidate is one relay endpoint in the failover list.
type Candidate struct {
	Name     string
	Endpoint string
}

// Selector walks an ordered candidate list until one endpoint answers a
// ping within the per-candidate timeout. Every top-level connect starts
// again from the head of the list; nothing is remembered across calls.
type Selector struct {
	candidates []Candidate
	timeout    time.Duration
	peerID     string
	httpClient *http.Client

	// fallback, when set, is returned once the whole list is exhausted.
	fallback Relay
}

type SelectorOption func(*Selector)

func WithCandidateTimeout(d time.Duration) SelectorOption {
	return func(s *Selector) { s.timeout = d }
}

func WithHTTPClient(c *http.Client) SelectorOption {
	return func(s *Selector) { s.httpClient = c }
}

// WithLocalFallback degrades to the given in-process relay instead of
// failing when no remote candidate answers.
func WithLocalFallback(fallback Relay) SelectorOption {
	return func(s *Selector) { s.fallback = fallback }
}

func NewSelector(peerID string, candidates []Candidate, opts ...SelectorOption) *Selector {
	s := &Selector{
		candidates: candidates,
		timeout:    defaultCandidateTimeout,
		peerID:     peerID,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Connect returns the first reachable relay, trying candidates strictly in
// list order.
func (s *Selector) Connect(ctx context.Context) (Relay, error) {
	for _, cand := range s.candidates {
		relay := NewHTTPRelay(cand.Endpoint, s.peerID, s.httpClient)

		candCtx, cancel := context.WithTimeout(ctx, s.timeout)
		err := relay.Ping(candCtx)
		cancel()

		if err == nil {
			slog.Info("relay candidate selected", slog.String(constant.Candidate, cand.Name))
			return relay, nil
		}

		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%s: %w", cand.Name, ErrConnectionTimeout)
		}

		slog.Warn(
			"relay candidate failed",
			slog.String(constant.Candidate, cand.Name),
			slog.Any(constant.Error, err),
		)

		// The parent context being done means the whole operation was
		// abandoned, not that this candidate was slow.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if s.fallback != nil {
		slog.Warn("all relay candidates failed, degrading to local mode")
		return s.fallback, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ErrAllCandidatesExhausted)
}
