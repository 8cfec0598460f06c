// Package resolver finds the ledger profile a wallet owns by probing the
// backend with ids derived from the wallet's asset inventory.
package resolver

import (
	"context"
	"log/slog"

	"github.com/vanshika/beltledger/internal/cache"
	"github.com/vanshika/beltledger/internal/domain"
	"github.com/vanshika/beltledger/internal/metrics"
	"github.com/vanshika/beltledger/internal/wallet"
)

// ProfileLookup fetches profiles by id. Any error is a negative probe.
type ProfileLookup interface {
	GetPractitioner(ctx context.Context, id string) (domain.PractitionerProfile, error)
	GetOrganization(ctx context.Context, id string) (domain.OrganizationProfile, error)
}

// OwnedProfile is the outcome of a successful resolution.
type OwnedProfile struct {
	ProfileID string             `json:"profile_id"`
	Type      domain.ProfileType `json:"profile_type"`
	Name      string             `json:"name,omitempty"`
}

// Resolver probes candidates one at a time and stops at the first hit.
type Resolver struct {
	lookup    ProfileLookup
	authority string
	cache     cache.Store[string, OwnedProfile]
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithCache memoizes resolved profiles by id.
func WithCache(store cache.Store[string, OwnedProfile]) Option {
	return func(r *Resolver) {
		if store != nil {
			r.cache = store
		}
	}
}

// WithMetrics records resolution outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

// New builds a Resolver for profiles issued by authority.
func New(lookup ProfileLookup, authority string, logger *slog.Logger, opts ...Option) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		lookup:    lookup,
		authority: authority,
		cache:     cache.Noop[string, OwnedProfile]{},
		logger:    logger.With("component", "resolver"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveOwnedProfile returns the first candidate the backend knows, trying
// the practitioner lookup before the organization lookup for each one. It
// returns nil, nil when no candidate resolves. Only context errors abort the
// search.
func (r *Resolver) ResolveOwnedProfile(ctx context.Context, assets []wallet.Asset) (*OwnedProfile, error) {
	candidates := Candidates(assets, r.authority)
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if cached, ok := r.cache.Get(id); ok {
			r.metrics.ObserveResolution("cached")
			return &cached, nil
		}

		owned, ok, err := r.probe(ctx, id)
		if err != nil {
			return nil, err
		}
		if ok {
			r.cache.Set(id, owned)
			r.metrics.ObserveResolution(string(owned.Type))
			r.logger.Debug("profile resolved", "profile_id", id, "type", owned.Type)
			return &owned, nil
		}
	}

	r.metrics.ObserveResolution("none")
	r.logger.Debug("no owned profile", "candidates", len(candidates))
	return nil, nil
}

func (r *Resolver) probe(ctx context.Context, id string) (OwnedProfile, bool, error) {
	p, err := r.lookup.GetPractitioner(ctx, id)
	if err == nil {
		return OwnedProfile{ProfileID: id, Type: domain.ProfileTypePractitioner, Name: p.Name}, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OwnedProfile{}, false, ctxErr
	}

	o, err := r.lookup.GetOrganization(ctx, id)
	if err == nil {
		return OwnedProfile{ProfileID: id, Type: domain.ProfileTypeOrganization, Name: o.Name}, true, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return OwnedProfile{}, false, ctxErr
	}
	return OwnedProfile{}, false, nil
}
