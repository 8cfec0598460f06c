package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Gateway is the registry of installed wallets and the entry point for
// opening sessions.
type Gateway struct {
	logger          *slog.Logger
	expectedNetwork int
	attempts        uint
	retryInterval   time.Duration

	mu        sync.RWMutex
	providers map[string]Provider
}

// Option tunes a Gateway.
type Option func(*Gateway)

// WithConnectAttempts bounds ConnectAny retries.
func WithConnectAttempts(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.attempts = uint(n)
		}
	}
}

// WithRetryInterval sets the initial backoff between ConnectAny attempts.
func WithRetryInterval(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.retryInterval = d
		}
	}
}

// NewGateway creates an empty gateway checking sessions against expectedNetwork.
func NewGateway(logger *slog.Logger, expectedNetwork int, opts ...Option) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	g := &Gateway{
		logger:          logger.With("component", "wallet-gateway"),
		expectedNetwork: expectedNetwork,
		attempts:        3,
		retryInterval:   time.Second,
		providers:       make(map[string]Provider),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Register makes a provider available. A provider with the same name replaces the previous one.
func (g *Gateway) Register(p Provider) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.providers[p.Descriptor().Name] = p
}

// ListAvailable returns the installed wallets sorted by name. No wallets is not an error.
func (g *Gateway) ListAvailable() []Descriptor {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]Descriptor, 0, len(g.providers))
	for _, p := range g.providers {
		out = append(out, p.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Connect enables the named wallet.
func (g *Gateway) Connect(ctx context.Context, name string) (*Session, error) {
	g.mu.RLock()
	p, ok := g.providers[name]
	g.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q is not installed", ErrNoWallet, name)
	}

	api, err := p.Enable(ctx)
	if err != nil {
		g.logger.Warn("wallet enable failed", "wallet", name, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrConnection, name, err)
	}
	g.logger.Info("wallet connected", "wallet", name)
	return NewSession(name, api, g.expectedNetwork, g.logger), nil
}

// ConnectAny tries every installed wallet in name order, retrying the whole
// round with exponential backoff. A round in which the user declined a wallet
// is not retried.
func (g *Gateway) ConnectAny(ctx context.Context) (*Session, error) {
	attempt := 0
	op := func() (*Session, error) {
		attempt++
		available := g.ListAvailable()
		if len(available) == 0 {
			return nil, backoff.Permanent(ErrNoWallet)
		}
		var errs []error
		for _, d := range available {
			s, err := g.Connect(ctx, d.Name)
			if err == nil {
				return s, nil
			}
			errs = append(errs, err)
		}
		joined := errors.Join(errs...)
		if declined(joined) {
			g.logger.Info("wallet connection declined", "attempt", attempt)
			return nil, backoff.Permanent(joined)
		}
		g.logger.Warn("wallet connection attempt failed", "attempt", attempt, "max_attempts", g.attempts)
		return nil, joined
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = g.retryInterval
	return backoff.Retry(ctx, op,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(g.attempts),
	)
}

func declined(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == APIErrorRefused
}
