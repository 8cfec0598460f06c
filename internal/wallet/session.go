package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Session is a connected wallet. Calls are serialized; a session that reports
// a refused or changed account is marked disconnected and fails fast afterwards.
type Session struct {
	name            string
	api             API
	expectedNetwork int
	logger          *slog.Logger

	mu           sync.Mutex
	disconnected bool
}

// NewSession wraps an already enabled wallet API.
func NewSession(name string, api API, expectedNetwork int, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		name:            name,
		api:             api,
		expectedNetwork: expectedNetwork,
		logger:          logger.With("component", "wallet", "wallet", name),
	}
}

// Name is the wallet the session was opened against.
func (s *Session) Name() string { return s.name }

// Disconnected reports whether a previous call found the session invalid.
func (s *Session) Disconnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disconnected
}

// NetworkID returns the network the wallet is configured for.
func (s *Session) NetworkID(ctx context.Context) (int, error) {
	var id int
	err := s.do("getNetworkId", func() (err error) {
		id, err = s.api.NetworkID(ctx)
		return err
	})
	return id, err
}

// EnsureNetwork fails with a NetworkMismatchError when the wallet is on the
// wrong network. Every address dependent operation calls it first.
func (s *Session) EnsureNetwork(ctx context.Context) error {
	id, err := s.NetworkID(ctx)
	if err != nil {
		return err
	}
	if id != s.expectedNetwork {
		s.logger.Warn("wallet network mismatch", "expected", s.expectedNetwork, "actual", id)
		return &NetworkMismatchError{Expected: s.expectedNetwork, Actual: id}
	}
	return nil
}

// UsedAddresses returns addresses with on-chain history.
func (s *Session) UsedAddresses(ctx context.Context) ([]string, error) {
	var out []string
	err := s.do("getUsedAddresses", func() (err error) {
		out, err = s.api.UsedAddresses(ctx)
		return err
	})
	return out, err
}

// UnusedAddresses returns fresh addresses.
func (s *Session) UnusedAddresses(ctx context.Context) ([]string, error) {
	var out []string
	err := s.do("getUnusedAddresses", func() (err error) {
		out, err = s.api.UnusedAddresses(ctx)
		return err
	})
	return out, err
}

// ChangeAddress returns the wallet's designated change address.
func (s *Session) ChangeAddress(ctx context.Context) (string, error) {
	var out string
	err := s.do("getChangeAddress", func() (err error) {
		out, err = s.api.ChangeAddress(ctx)
		if err == nil && strings.TrimSpace(out) == "" {
			err = errors.New("no change address available")
		}
		return err
	})
	return out, err
}

// Assets returns the wallet's asset inventory.
func (s *Session) Assets(ctx context.Context) ([]Asset, error) {
	var out []Asset
	err := s.do("getAssets", func() (err error) {
		out, err = s.api.Assets(ctx)
		return err
	})
	return out, err
}

// SignTx asks the wallet to sign. The partial flag asks for a witness set
// only, but wallets may return a full transaction regardless.
func (s *Session) SignTx(ctx context.Context, unsignedHex string, partial bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return "", fmt.Errorf("signTx: %w", ErrDisconnected)
	}

	signed, err := s.api.SignTx(ctx, unsignedHex, partial)
	if err == nil {
		return signed, nil
	}
	if isRejection(err) {
		s.logger.Info("signature declined by user")
		return "", fmt.Errorf("%w: %w", ErrSignatureRejected, err)
	}
	if s.markIfInvalid(err) {
		return "", fmt.Errorf("%w: signTx: %w", ErrDisconnected, err)
	}
	return "", fmt.Errorf("%w: %w", ErrSignatureFailed, err)
}

func (s *Session) do(op string, fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.disconnected {
		return fmt.Errorf("%s: %w", op, ErrDisconnected)
	}
	err := fn()
	if err == nil {
		return nil
	}
	if s.markIfInvalid(err) {
		return fmt.Errorf("%w: %s: %w", ErrDisconnected, op, err)
	}
	return fmt.Errorf("wallet %s: %w", op, err)
}

// markIfInvalid must be called with mu held.
func (s *Session) markIfInvalid(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Code == APIErrorRefused || apiErr.Code == APIErrorAccountChange) {
		s.disconnected = true
		s.logger.Warn("wallet session invalidated", "code", apiErr.Code, "info", apiErr.Info)
		return true
	}
	return false
}

func isRejection(err error) bool {
	var signErr *TxSignError
	if errors.As(err, &signErr) {
		return signErr.Code == TxSignUserDeclined
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "rejected") || strings.Contains(msg, "declined")
}
