// Package txflow drives one ledger transaction from interaction to
// submission: build, sign, normalize the witness, submit.
package txflow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/vanshika/beltledger/internal/interaction"
	"github.com/vanshika/beltledger/internal/ledger"
	"github.com/vanshika/beltledger/internal/metrics"
	"github.com/vanshika/beltledger/internal/witness"
)

// Wallet is the connected wallet the flow signs with.
type Wallet interface {
	interaction.AddressSource
	EnsureNetwork(ctx context.Context) error
	SignTx(ctx context.Context, unsignedHex string, partial bool) (string, error)
}

// InteractionBuilder turns action params into a backend request.
type InteractionBuilder interface {
	Build(ctx context.Context, params interaction.Params, src interaction.AddressSource, opts ...interaction.Option) (interaction.Interaction, error)
}

// Backend builds and submits transactions.
type Backend interface {
	BuildTx(ctx context.Context, in interaction.Interaction) (string, error)
	SubmitTx(ctx context.Context, req ledger.SubmitRequest) (string, error)
}

// InvalidateFunc is called after a successful submission with the data
// families the action changed.
type InvalidateFunc func(kind interaction.Kind, scopes []Scope)

// Snapshot is a consistent view of the controller.
type Snapshot struct {
	State      State            `json:"state"`
	Kind       interaction.Kind `json:"kind,omitempty"`
	UnsignedTx string           `json:"unsigned_tx,omitempty"`
	Witness    string           `json:"witness,omitempty"`
	TxID       string           `json:"tx_id,omitempty"`
	Error      string           `json:"error,omitempty"`
}

var invalidationScopes = map[interaction.Kind][]Scope{
	interaction.KindCreateProfileWithRank: {ScopeProfiles, ScopeBelts},
	interaction.KindInitProfile:           {ScopeProfiles},
	interaction.KindPromoteProfile:        {ScopePromotions},
	interaction.KindAcceptPromotion:       {ScopePromotions, ScopeBelts, ScopeProfiles},
	interaction.KindUpdateProfileImage:    {ScopeProfiles},
	interaction.KindDeleteProfile:         {ScopeProfiles, ScopeBelts, ScopePromotions},
}

// Purger is a cache that can be emptied, such as cache.Store.
type Purger interface {
	Purge()
}

// PurgeCaches returns an InvalidateFunc that empties the caches registered
// for each invalidated scope.
func PurgeCaches(caches map[Scope][]Purger) InvalidateFunc {
	return func(_ interaction.Kind, scopes []Scope) {
		for _, scope := range scopes {
			for _, p := range caches[scope] {
				p.Purge()
			}
		}
	}
}

// ScopesFor lists the data families invalidated by a confirmed action.
func ScopesFor(kind interaction.Kind) []Scope {
	return append([]Scope(nil), invalidationScopes[kind]...)
}

// Controller runs a single transaction flow at a time. Calls are safe from
// multiple goroutines; a call made while another is in flight is rejected.
type Controller struct {
	wallet  Wallet
	builder InteractionBuilder
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics

	mu          sync.Mutex
	snap        Snapshot
	invalidates []InvalidateFunc
}

// NewController wires a flow. m may be nil.
func NewController(w Wallet, b InteractionBuilder, backend Backend, logger *slog.Logger, m *metrics.Metrics) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		wallet:  w,
		builder: b,
		backend: backend,
		logger:  logger.With("component", "txflow"),
		metrics: m,
		snap:    Snapshot{State: StateIdle},
	}
}

// OnInvalidate registers fn to run after every successful submission.
func (c *Controller) OnInvalidate(fn InvalidateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidates = append(c.invalidates, fn)
}

// Snapshot returns the current state and artifacts.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Reset discards the current flow. It fails while an operation is in flight.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snap.State.Busy() {
		return &IllegalStateError{Op: "reset", State: c.snap.State}
	}
	c.transition(StateIdle)
	c.snap = Snapshot{State: StateIdle}
	return nil
}

// Build prepares an unsigned transaction for params. It may start from any
// state that has no operation in flight and leaves the controller ready or
// in error.
func (c *Controller) Build(ctx context.Context, params interaction.Params, opts ...interaction.Option) (string, error) {
	if params == nil {
		return "", fmt.Errorf("%w: no action given", interaction.ErrInvalidParams)
	}
	c.mu.Lock()
	if c.snap.State.Busy() {
		state := c.snap.State
		c.mu.Unlock()
		return "", &IllegalStateError{Op: "build", State: state}
	}
	c.transition(StateBuilding)
	c.snap = Snapshot{State: StateBuilding, Kind: params.Kind()}
	c.mu.Unlock()

	tx, err := c.build(ctx, params, opts)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.fail(err)
		return "", err
	}
	c.transition(StateReady)
	c.snap.UnsignedTx = tx
	c.logger.Info("transaction built", "kind", params.Kind(), "bytes", len(tx)/2)
	return tx, nil
}

func (c *Controller) build(ctx context.Context, params interaction.Params, opts []interaction.Option) (string, error) {
	if err := c.wallet.EnsureNetwork(ctx); err != nil {
		return "", err
	}
	in, err := c.builder.Build(ctx, params, c.wallet, opts...)
	if err != nil {
		return "", err
	}
	raw, err := c.backend.BuildTx(ctx, in)
	if err != nil {
		return "", err
	}
	tx := ledger.UnwrapTransaction(raw)
	if tx == "" {
		return "", fmt.Errorf("build %s: backend returned an empty transaction", params.Kind())
	}
	return tx, nil
}

// SignAndSubmit signs the built transaction, extracts its witness set and
// submits both. It is only valid from the ready state.
func (c *Controller) SignAndSubmit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.snap.State != StateReady {
		state := c.snap.State
		c.mu.Unlock()
		return "", &IllegalStateError{Op: "sign and submit", State: state}
	}
	c.transition(StateSubmitting)
	unsigned, kind := c.snap.UnsignedTx, c.snap.Kind
	c.mu.Unlock()

	wit, txID, err := c.submit(ctx, unsigned)

	c.mu.Lock()
	if err != nil {
		c.snap.Witness = wit
		c.fail(err)
		c.mu.Unlock()
		return "", err
	}
	c.transition(StateSuccess)
	c.snap.Witness = wit
	c.snap.TxID = txID
	callbacks := append([]InvalidateFunc(nil), c.invalidates...)
	c.mu.Unlock()

	c.logger.Info("transaction submitted", "kind", kind, "tx_id", txID)
	scopes := ScopesFor(kind)
	for _, fn := range callbacks {
		fn(kind, scopes)
	}
	return txID, nil
}

func (c *Controller) submit(ctx context.Context, unsigned string) (string, string, error) {
	if err := c.wallet.EnsureNetwork(ctx); err != nil {
		return "", "", err
	}
	signed, err := c.wallet.SignTx(ctx, unsigned, true)
	if err != nil {
		return "", "", err
	}
	wit, err := witness.Normalize(signed)
	if err != nil {
		return "", "", err
	}
	txID, err := c.backend.SubmitTx(ctx, ledger.SubmitRequest{UnsignedTx: unsigned, Witness: wit})
	if err != nil {
		return wit, "", err
	}
	return wit, txID, nil
}

// fail records err and moves to the error state. c.mu must be held.
func (c *Controller) fail(err error) {
	c.transition(StateError)
	c.snap.Error = err.Error()
	c.logger.Warn("transaction flow failed", "kind", c.snap.Kind, "err", err)
}

// transition must be called with c.mu held.
func (c *Controller) transition(to State) {
	from := c.snap.State
	c.snap.State = to
	c.metrics.ObserveTransition(string(from), string(to))
}
