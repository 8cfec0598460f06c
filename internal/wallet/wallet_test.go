package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/beltledger/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGatewayListAndConnect(t *testing.T) {
	g := NewGateway(testLogger(), 0)
	assert.Empty(t, g.ListAvailable())

	api := &StaticAPI{Network: 0, Change: "ab"}
	g.Register(&StaticProvider{Info: Descriptor{Name: "nami"}, API: api})
	g.Register(&StaticProvider{Info: Descriptor{Name: "eternl"}, API: api})

	names := []string{}
	for _, d := range g.ListAvailable() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"eternl", "nami"}, names)

	s, err := g.Connect(context.Background(), "nami")
	require.NoError(t, err)
	assert.Equal(t, "nami", s.Name())

	_, err = g.Connect(context.Background(), "flint")
	assert.ErrorIs(t, err, ErrNoWallet)
}

func TestGatewayConnectRejected(t *testing.T) {
	g := NewGateway(testLogger(), 0)
	g.Register(&StaticProvider{
		Info:      Descriptor{Name: "lace"},
		EnableErr: &APIError{Code: APIErrorRefused, Info: "user refused"},
	})

	_, err := g.Connect(context.Background(), "lace")
	assert.ErrorIs(t, err, ErrConnection)
	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, domain.CodeConnectionFailed, Code(err))
}

type flakyProvider struct {
	failures int
	calls    int
	api      API
}

func (p *flakyProvider) Descriptor() Descriptor { return Descriptor{Name: "flaky"} }

func (p *flakyProvider) Enable(context.Context) (API, error) {
	p.calls++
	if p.calls <= p.failures {
		return nil, errors.New("extension busy")
	}
	return p.api, nil
}

func TestGatewayConnectAnyRetries(t *testing.T) {
	p := &flakyProvider{failures: 2, api: &StaticAPI{}}
	g := NewGateway(testLogger(), 0, WithConnectAttempts(3), WithRetryInterval(time.Millisecond))
	g.Register(p)

	s, err := g.ConnectAny(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "flaky", s.Name())
	assert.Equal(t, 3, p.calls)
}

func TestGatewayConnectAnyGivesUp(t *testing.T) {
	p := &flakyProvider{failures: 10, api: &StaticAPI{}}
	g := NewGateway(testLogger(), 0, WithConnectAttempts(2), WithRetryInterval(time.Millisecond))
	g.Register(p)

	_, err := g.ConnectAny(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.Equal(t, 2, p.calls)
}

type refusingProvider struct {
	calls int
}

func (p *refusingProvider) Descriptor() Descriptor { return Descriptor{Name: "refusing"} }

func (p *refusingProvider) Enable(context.Context) (API, error) {
	p.calls++
	return nil, &APIError{Code: APIErrorRefused, Info: "user declined"}
}

func TestGatewayConnectAnyDoesNotRetryDeclined(t *testing.T) {
	p := &refusingProvider{}
	g := NewGateway(testLogger(), 0, WithConnectAttempts(3), WithRetryInterval(time.Millisecond))
	g.Register(p)

	_, err := g.ConnectAny(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnection)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, APIErrorRefused, apiErr.Code)
	assert.Equal(t, 1, p.calls)
}

func TestGatewayConnectAnyWithoutWallets(t *testing.T) {
	g := NewGateway(testLogger(), 0, WithRetryInterval(time.Millisecond))
	_, err := g.ConnectAny(context.Background())
	assert.ErrorIs(t, err, ErrNoWallet)
	assert.Equal(t, domain.CodeNoWallet, Code(err))
}

func TestSessionEnsureNetwork(t *testing.T) {
	s := NewSession("nami", &StaticAPI{Network: 1}, 0, testLogger())
	err := s.EnsureNetwork(context.Background())

	var mismatch *NetworkMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 0, mismatch.Expected)
	assert.Equal(t, 1, mismatch.Actual)
	assert.ErrorIs(t, err, ErrNetworkMismatch)
	assert.Contains(t, err.Error(), "expected testnet, got mainnet")

	ok := NewSession("nami", &StaticAPI{Network: 1}, 1, testLogger())
	assert.NoError(t, ok.EnsureNetwork(context.Background()))
}

func TestSessionMarksDisconnected(t *testing.T) {
	api := &StaticAPI{Err: &APIError{Code: APIErrorAccountChange, Info: "account changed"}}
	s := NewSession("nami", api, 0, testLogger())

	_, err := s.UsedAddresses(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
	assert.True(t, s.Disconnected())

	api.Err = nil
	_, err = s.ChangeAddress(context.Background())
	assert.ErrorIs(t, err, ErrDisconnected)
}

func TestSessionChangeAddressRequired(t *testing.T) {
	s := NewSession("nami", &StaticAPI{}, 0, testLogger())
	_, err := s.ChangeAddress(context.Background())
	assert.Error(t, err)
	assert.False(t, s.Disconnected())
}

func TestSessionSignTxErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"declined code", &TxSignError{Code: TxSignUserDeclined, Info: "no"}, ErrSignatureRejected},
		{"declined message", errors.New("User rejected the request"), ErrSignatureRejected},
		{"proof", &TxSignError{Code: TxSignProofGeneration, Info: "missing key"}, ErrSignatureFailed},
		{"refused", &APIError{Code: APIErrorRefused, Info: "gone"}, ErrDisconnected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := &StaticAPI{Sign: func(string, bool) (string, error) { return "", tc.err }}
			s := NewSession("nami", api, 0, testLogger())
			_, err := s.SignTx(context.Background(), "84a0", true)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestSessionSignTxPassesPartialFlag(t *testing.T) {
	var gotPartial bool
	api := &StaticAPI{Sign: func(tx string, partial bool) (string, error) {
		gotPartial = partial
		return "a0", nil
	}}
	s := NewSession("nami", api, 0, testLogger())
	out, err := s.SignTx(context.Background(), "84a0", true)
	require.NoError(t, err)
	assert.Equal(t, "a0", out)
	assert.True(t, gotPartial)
	assert.Equal(t, 1, api.SignCalls())
}

func newBridgeServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/wallets", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, []Descriptor{{Name: "eternl", APIVersion: "0.1.0"}})
	})
	mux.HandleFunc("/enable", func(w http.ResponseWriter, r *http.Request) {
		write(w, http.StatusOK, map[string]string{"session": "s-1"})
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sessionHeader) != "s-1" {
			write(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"kind": "api", "code": -3, "info": "no session"}})
			return
		}
		var body struct {
			Params []any `json:"params"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		switch r.URL.Path {
		case "/api/getNetworkId":
			write(w, http.StatusOK, map[string]any{"result": 0})
		case "/api/getAssets":
			write(w, http.StatusOK, map[string]any{"result": []Asset{{Unit: "lovelace", Quantity: "5"}}})
		case "/api/signTx":
			if len(body.Params) == 2 && body.Params[1] == true {
				write(w, http.StatusOK, map[string]any{"error": map[string]any{"kind": "sign", "code": 2, "info": "declined"}})
				return
			}
			write(w, http.StatusOK, map[string]any{"result": "a0"})
		default:
			write(w, http.StatusNotFound, map[string]any{"error": map[string]any{"kind": "api", "code": -1, "info": "unknown method"}})
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestBridgeProvider(t *testing.T) {
	srv := newBridgeServer(t)
	ctx := context.Background()

	providers, err := DiscoverBridgeWallets(ctx, srv.URL, testLogger())
	require.NoError(t, err)
	require.Len(t, providers, 1)
	assert.Equal(t, "eternl", providers[0].Descriptor().Name)

	g := NewGateway(testLogger(), 0)
	g.Register(providers[0])
	s, err := g.Connect(ctx, "eternl")
	require.NoError(t, err)

	require.NoError(t, s.EnsureNetwork(ctx))

	assets, err := s.Assets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Asset{{Unit: "lovelace", Quantity: "5"}}, assets)

	_, err = s.SignTx(ctx, "84a0", true)
	assert.ErrorIs(t, err, ErrSignatureRejected)

	signed, err := s.SignTx(ctx, "84a0", false)
	require.NoError(t, err)
	assert.Equal(t, "a0", signed)

	_, err = s.UnusedAddresses(ctx)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, APIErrorInvalidRequest, apiErr.Code)
	assert.False(t, s.Disconnected())
}
