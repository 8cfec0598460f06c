package wallet

import (
	"errors"
	"fmt"

	"github.com/vanshika/beltledger/internal/domain"
)

var (
	// ErrNoWallet means no provider is installed or the requested one is unknown.
	ErrNoWallet = errors.New("no CIP-30 wallet detected")
	// ErrConnection means the wallet refused or failed the connection request.
	ErrConnection = errors.New("failed to connect to wallet")
	// ErrNetworkMismatch means the wallet is on a different network than configured.
	ErrNetworkMismatch = errors.New("wallet network mismatch, switch networks")
	// ErrDisconnected means the session is no longer usable and must be reconnected.
	ErrDisconnected = errors.New("wallet disconnected, reconnect to continue")
	// ErrSignatureRejected means the user declined to sign. It is never retried.
	ErrSignatureRejected = errors.New("transaction was rejected by the user")
	// ErrSignatureFailed covers every other signing failure.
	ErrSignatureFailed = errors.New("transaction signature failed")
)

// NetworkMismatchError reports the expected and actual network ids.
type NetworkMismatchError struct {
	Expected int
	Actual   int
}

func (e *NetworkMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s",
		ErrNetworkMismatch, domain.NetworkName(e.Expected), domain.NetworkName(e.Actual))
}

func (e *NetworkMismatchError) Unwrap() error {
	return ErrNetworkMismatch
}

// Code maps wallet errors to the user facing error code.
func Code(err error) domain.ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNoWallet):
		return domain.CodeNoWallet
	case errors.Is(err, ErrConnection), errors.Is(err, ErrDisconnected):
		return domain.CodeConnectionFailed
	case errors.Is(err, ErrNetworkMismatch):
		return domain.CodeNetworkMismatch
	case errors.Is(err, ErrSignatureRejected):
		return domain.CodeUserRejected
	case errors.Is(err, ErrSignatureFailed):
		return domain.CodeSignatureFailed
	default:
		return domain.CodeUnknown
	}
}
