package resolver

import (
	"strings"

	"github.com/vanshika/beltledger/internal/wallet"
)

// Asset name markers. Profiles minted before the label change carry the
// legacy marker; lookups accept either.
const (
	LegacyNamePrefix    = "000de14"
	CanonicalNamePrefix = "000643b"
)

// PolicyIDLength is the hex length of a minting policy id.
const PolicyIDLength = 56

const lovelaceUnit = "lovelace"

// AdjustLegacyPrefix lower-cases an asset name and swaps a leading legacy
// marker for the canonical one. Canonical names are returned unchanged.
func AdjustLegacyPrefix(nameHex string) string {
	name := strings.ToLower(strings.TrimSpace(nameHex))
	if strings.HasPrefix(name, LegacyNamePrefix) {
		return CanonicalNamePrefix + name[len(LegacyNamePrefix):]
	}
	return name
}

// NormalizeProfileID returns the dotted policy.assetName form of raw,
// inserting the dot after the policy id when it is missing and adjusting
// a legacy asset name.
func NormalizeProfileID(raw string) string {
	id := strings.TrimSpace(raw)
	if id == "" {
		return ""
	}
	policy, name, found := strings.Cut(id, ".")
	if !found {
		if len(id) <= PolicyIDLength {
			return id
		}
		policy, name = id[:PolicyIDLength], id[PolicyIDLength:]
	}
	return policy + "." + AdjustLegacyPrefix(name)
}

// Candidates lists the profile ids an inventory may own under authority, in
// inventory order. Each asset yields its id as held and then its adjusted
// form when that differs. Duplicates are dropped.
func Candidates(assets []wallet.Asset, authority string) []string {
	authority = strings.ToLower(strings.TrimSpace(authority))
	if authority == "" {
		return nil
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	for _, asset := range assets {
		unit := strings.TrimSpace(asset.Unit)
		if unit == "" || unit == lovelaceUnit {
			continue
		}
		if len(unit) <= len(authority) || !strings.EqualFold(unit[:len(authority)], authority) {
			continue
		}
		name := unit[len(authority):]
		add(authority + "." + name)
		add(authority + "." + AdjustLegacyPrefix(name))
	}
	return out
}
