package resolver

import (
	"context"
	"strings"

	"github.com/vanshika/beltledger/internal/cache"
)

// Names maps profile ids to display names, remembering what it found.
type Names struct {
	lookup ProfileLookup
	cache  cache.Store[string, string]
}

// NewNames builds a name lookup. store may be nil to disable caching.
func NewNames(lookup ProfileLookup, store cache.Store[string, string]) *Names {
	if store == nil {
		store = cache.Noop[string, string]{}
	}
	return &Names{lookup: lookup, cache: store}
}

// Name returns the profile's display name, or id when neither lookup knows it.
func (n *Names) Name(ctx context.Context, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if name, ok := n.cache.Get(id); ok {
		return name
	}

	if p, err := n.lookup.GetPractitioner(ctx, id); err == nil && p.Name != "" {
		n.cache.Set(id, p.Name)
		return p.Name
	}
	if o, err := n.lookup.GetOrganization(ctx, id); err == nil && o.Name != "" {
		n.cache.Set(id, o.Name)
		return o.Name
	}
	return id
}

// Forget drops a cached name, e.g. after the profile was edited.
func (n *Names) Forget(id string) {
	n.cache.Delete(id)
}
