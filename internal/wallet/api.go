// Package wallet adapts external CIP-30 signing wallets to a uniform session
// with network checks and normalized error reporting.
package wallet

import (
	"context"
	"fmt"
)

// API is the subset of the CIP-30 wallet contract the client calls.
type API interface {
	NetworkID(ctx context.Context) (int, error)
	UsedAddresses(ctx context.Context) ([]string, error)
	UnusedAddresses(ctx context.Context) ([]string, error)
	ChangeAddress(ctx context.Context) (string, error)
	Assets(ctx context.Context) ([]Asset, error)
	SignTx(ctx context.Context, txHex string, partial bool) (string, error)
}

// Asset is one entry of a wallet's inventory. Unit is the policy id followed
// by the asset name hex, or "lovelace".
type Asset struct {
	Unit     string `json:"unit"`
	Quantity string `json:"quantity"`
}

// Descriptor identifies an installed wallet.
type Descriptor struct {
	Name       string `json:"name"`
	Icon       string `json:"icon,omitempty"`
	APIVersion string `json:"apiVersion,omitempty"`
}

// Provider is an installed wallet that can be asked for a session.
type Provider interface {
	Descriptor() Descriptor
	Enable(ctx context.Context) (API, error)
}

// APIErrorCode mirrors the CIP-30 APIError codes.
type APIErrorCode int

const (
	APIErrorInvalidRequest APIErrorCode = -1
	APIErrorInternal       APIErrorCode = -2
	APIErrorRefused        APIErrorCode = -3
	APIErrorAccountChange  APIErrorCode = -4
)

// APIError is raised by a wallet for failed API calls.
type APIError struct {
	Code APIErrorCode `json:"code"`
	Info string       `json:"info"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wallet api error %d: %s", e.Code, e.Info)
}

// TxSignErrorCode mirrors the CIP-30 TxSignError codes.
type TxSignErrorCode int

const (
	TxSignProofGeneration TxSignErrorCode = 1
	TxSignUserDeclined    TxSignErrorCode = 2
)

// TxSignError is raised by a wallet when signing does not complete.
type TxSignError struct {
	Code TxSignErrorCode `json:"code"`
	Info string          `json:"info"`
}

func (e *TxSignError) Error() string {
	return fmt.Sprintf("wallet sign error %d: %s", e.Code, e.Info)
}
