package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/interaction"
	"github.com/vanshika/beltledger/internal/wallet"
)

const policy = "0123456789abcdef0123456789abcdef0123456789abcdef01234567"

func TestActionInputParams(t *testing.T) {
	p, err := actionInput{Kind: "promote", ProfileID: policy + "000de14aa", PromotedBy: policy + ".000643bbb", Belt: "Blue"}.params()
	require.NoError(t, err)
	promote, ok := p.(interaction.PromoteProfile)
	require.True(t, ok)
	assert.Equal(t, policy+".000643baa", promote.PromotedProfileID)
	assert.Equal(t, policy+".000643bbb", promote.PromotedByProfileID)
	assert.Equal(t, domain.Belt("Blue"), promote.Belt)

	p, err = actionInput{Kind: "ACCEPT", PromotionID: "promo-1"}.params()
	require.NoError(t, err)
	assert.Equal(t, interaction.AcceptPromotion{PromotionID: "promo-1"}, p)

	p, err = actionInput{Kind: "delete", ProfileID: policy + ".000643bcc"}.params()
	require.NoError(t, err)
	assert.Equal(t, interaction.KindDeleteProfile, p.Kind())

	_, err = actionInput{Kind: "burn"}.params()
	assert.ErrorContains(t, err, "unknown action kind")
}

func runApp(t *testing.T, cmd *cli.Command, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	app := &cli.App{Name: "beltctl", Writer: &out, Commands: []*cli.Command{cmd}}
	require.NoError(t, app.Run(append([]string{"beltctl"}, args...)))
	return out.Bytes()
}

func TestAddressCommand(t *testing.T) {
	hexAddr := "00" + "11111111111111111111111111111111111111111111111111111111" + "22222222222222222222222222222222222222222222222222222222"
	out := runApp(t, addressCommand(), "address", hexAddr, "not-an-address")

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(out, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, hexAddr, rows[0]["Hex"])
	assert.Equal(t, true, rows[0]["valid"])
	assert.Equal(t, false, rows[1]["valid"])
}

func TestInteractionCommand(t *testing.T) {
	change := "00" + "11111111111111111111111111111111111111111111111111111111" + "22222222222222222222222222222222222222222222222222222222"
	out := runApp(t, interactionCommand(), "interaction", "--kind", "accept", "--promotion-id", "promo-9", "--change", change)

	var in interaction.Interaction
	require.NoError(t, json.Unmarshal(out, &in))
	assert.Equal(t, interaction.KindAcceptPromotion, in.Action.Tag)
	assert.Equal(t, "promo-9", in.Action.PromotionID)
	assert.Equal(t, change, in.UserAddresses.ChangeAddress)
	assert.Equal(t, []string{change}, in.UserAddresses.UsedAddresses)
}

func TestWitnessCommand(t *testing.T) {
	// {0: []}
	out := runApp(t, witnessCommand(), "witness", "a10080")

	var res struct {
		Witness string
		Summary struct{ VKeys, Fields int }
	}
	require.NoError(t, json.Unmarshal(out, &res))
	assert.Equal(t, "a10080", res.Witness)
	assert.Equal(t, 0, res.Summary.VKeys)
	assert.Equal(t, 1, res.Summary.Fields)
}

// bridgeStub serves one wallet on the given network and records API calls.
type bridgeStub struct {
	network int
	mu      sync.Mutex
	calls   []string
}

func (b *bridgeStub) handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/wallets":
		_ = json.NewEncoder(w).Encode([]wallet.Descriptor{{Name: "lace"}})
	case r.URL.Path == "/enable":
		_ = json.NewEncoder(w).Encode(map[string]string{"session": "s-1"})
	case strings.HasPrefix(r.URL.Path, "/api/"):
		method := strings.TrimPrefix(r.URL.Path, "/api/")
		b.mu.Lock()
		b.calls = append(b.calls, method)
		b.mu.Unlock()
		var result any
		switch method {
		case "getNetworkId":
			result = b.network
		case "getAssets":
			result = []wallet.Asset{{Unit: policy + "000de14aa", Quantity: "1"}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": result})
	default:
		http.NotFound(w, r)
	}
}

func (b *bridgeStub) methods() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}

func TestResolveChecksWalletNetwork(t *testing.T) {
	bridge := &bridgeStub{network: 1}
	bridgeSrv := httptest.NewServer(http.HandlerFunc(bridge.handler))
	defer bridgeSrv.Close()

	ledgerHits := 0
	ledgerSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		ledgerHits++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ledgerSrv.Close()

	t.Setenv("LEDGER_BASE_URL", ledgerSrv.URL)
	t.Setenv("WALLET_BRIDGE_URL", bridgeSrv.URL)
	t.Setenv("WALLET_EXPECTED_NETWORK_ID", "0")
	t.Setenv("WALLET_ISSUING_AUTHORITY_ID", policy)

	var out bytes.Buffer
	app := &cli.App{Name: "beltctl", Writer: &out, Commands: []*cli.Command{resolveCommand()}}
	err := app.Run([]string{"beltctl", "resolve"})

	require.Error(t, err)
	assert.ErrorIs(t, err, wallet.ErrNetworkMismatch)
	assert.Contains(t, err.Error(), domain.CodeNetworkMismatch.Message())
	assert.Equal(t, []string{"getNetworkId"}, bridge.methods())
	assert.Zero(t, ledgerHits)
	assert.Empty(t, out.String())
}
