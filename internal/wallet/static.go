package wallet

import (
	"context"
	"sync"
)

// StaticAPI is an in-memory wallet. It backs tests and offline tooling where
// addresses and signatures are supplied up front.
type StaticAPI struct {
	Network int
	Used    []string
	Unused  []string
	Change  string
	Items   []Asset
	// Sign produces the signing response; when nil the unsigned hex is echoed.
	Sign func(txHex string, partial bool) (string, error)
	// Err, when set, is returned by every call.
	Err error

	mu        sync.Mutex
	signCalls int
}

func (w *StaticAPI) NetworkID(context.Context) (int, error) {
	if w.Err != nil {
		return 0, w.Err
	}
	return w.Network, nil
}

func (w *StaticAPI) UsedAddresses(context.Context) ([]string, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return append([]string(nil), w.Used...), nil
}

func (w *StaticAPI) UnusedAddresses(context.Context) ([]string, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return append([]string(nil), w.Unused...), nil
}

func (w *StaticAPI) ChangeAddress(context.Context) (string, error) {
	if w.Err != nil {
		return "", w.Err
	}
	return w.Change, nil
}

func (w *StaticAPI) Assets(context.Context) ([]Asset, error) {
	if w.Err != nil {
		return nil, w.Err
	}
	return append([]Asset(nil), w.Items...), nil
}

func (w *StaticAPI) SignTx(_ context.Context, txHex string, partial bool) (string, error) {
	w.mu.Lock()
	w.signCalls++
	w.mu.Unlock()
	if w.Err != nil {
		return "", w.Err
	}
	if w.Sign == nil {
		return txHex, nil
	}
	return w.Sign(txHex, partial)
}

// SignCalls reports how many signing requests reached the wallet.
func (w *StaticAPI) SignCalls() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.signCalls
}

// StaticProvider hands out a fixed API.
type StaticProvider struct {
	Info      Descriptor
	API       API
	EnableErr error
}

func (p *StaticProvider) Descriptor() Descriptor { return p.Info }

func (p *StaticProvider) Enable(context.Context) (API, error) {
	if p.EnableErr != nil {
		return nil, p.EnableErr
	}
	return p.API, nil
}
