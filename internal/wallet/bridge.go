package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/vanshika/beltledger/internal/logging"
)

// The bridge is a local signer process exposing wallets over HTTP:
//
//	GET  /wallets          -> [Descriptor]
//	POST /enable           {"wallet": name}            -> {"session": id}
//	POST /api/{method}     {"params": [...]} + session -> {"result": ..., "error": {...}}
const sessionHeader = "X-Wallet-Session"

type bridgeEnvelope struct {
	Result json.RawMessage `json:"result"`
	Error  *bridgeError    `json:"error"`
}

type bridgeError struct {
	Kind string `json:"kind"` // api|sign
	Code int    `json:"code"`
	Info string `json:"info"`
}

func (e *bridgeError) asError() error {
	if e.Kind == "sign" {
		return &TxSignError{Code: TxSignErrorCode(e.Code), Info: e.Info}
	}
	return &APIError{Code: APIErrorCode(e.Code), Info: e.Info}
}

// BridgeProvider exposes one wallet served by a bridge process.
type BridgeProvider struct {
	client *resty.Client
	info   Descriptor
}

func newBridgeClient(baseURL string, logger *slog.Logger) *resty.Client {
	return resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(5*time.Minute).
		SetHeader("Accept", "application/json").
		SetLogger(logging.RestyAdapter(logger))
}

// DiscoverBridgeWallets lists the wallets a bridge serves as providers.
func DiscoverBridgeWallets(ctx context.Context, baseURL string, logger *slog.Logger) ([]*BridgeProvider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client := newBridgeClient(baseURL, logger)

	var wallets []Descriptor
	resp, err := client.R().SetContext(ctx).SetResult(&wallets).Get("/wallets")
	if err != nil {
		return nil, fmt.Errorf("list bridge wallets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list bridge wallets: HTTP %d: %s", resp.StatusCode(), resp.String())
	}

	providers := make([]*BridgeProvider, 0, len(wallets))
	for _, d := range wallets {
		providers = append(providers, &BridgeProvider{client: client, info: d})
	}
	return providers, nil
}

func (p *BridgeProvider) Descriptor() Descriptor { return p.info }

// Enable opens a bridge session for the wallet.
func (p *BridgeProvider) Enable(ctx context.Context) (API, error) {
	var out struct {
		Session string       `json:"session"`
		Error   *bridgeError `json:"error"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"wallet": p.info.Name}).
		SetResult(&out).
		SetError(&out).
		Post("/enable")
	if err != nil {
		return nil, err
	}
	if out.Error != nil {
		return nil, out.Error.asError()
	}
	if resp.IsError() || out.Session == "" {
		return nil, fmt.Errorf("enable %s: HTTP %d", p.info.Name, resp.StatusCode())
	}
	return &bridgeAPI{client: p.client, session: out.Session}, nil
}

type bridgeAPI struct {
	client  *resty.Client
	session string
}

func (b *bridgeAPI) call(ctx context.Context, method string, out any, params ...any) error {
	if params == nil {
		params = []any{}
	}
	var env bridgeEnvelope
	resp, err := b.client.R().
		SetContext(ctx).
		SetHeader(sessionHeader, b.session).
		SetBody(map[string]any{"params": params}).
		SetResult(&env).
		SetError(&env).
		Post("/api/" + method)
	if err != nil {
		return err
	}
	if env.Error != nil {
		return env.Error.asError()
	}
	if resp.IsError() {
		return fmt.Errorf("%s: HTTP %d: %s", method, resp.StatusCode(), resp.String())
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

func (b *bridgeAPI) NetworkID(ctx context.Context) (int, error) {
	var id int
	if err := b.call(ctx, "getNetworkId", &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (b *bridgeAPI) UsedAddresses(ctx context.Context) ([]string, error) {
	var out []string
	if err := b.call(ctx, "getUsedAddresses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *bridgeAPI) UnusedAddresses(ctx context.Context) ([]string, error) {
	var out []string
	if err := b.call(ctx, "getUnusedAddresses", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *bridgeAPI) ChangeAddress(ctx context.Context) (string, error) {
	var out string
	if err := b.call(ctx, "getChangeAddress", &out); err != nil {
		return "", err
	}
	return out, nil
}

func (b *bridgeAPI) Assets(ctx context.Context) ([]Asset, error) {
	var out []Asset
	if err := b.call(ctx, "getAssets", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (b *bridgeAPI) SignTx(ctx context.Context, txHex string, partial bool) (string, error) {
	var out string
	if err := b.call(ctx, "signTx", &out, txHex, partial); err != nil {
		return "", err
	}
	return out, nil
}
