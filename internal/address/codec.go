// Package address converts user and wallet supplied ledger addresses into the
// raw hex encoding the ledger backend accepts.
package address

import (
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// RequiredHexLength is the only address length the backend accepts: a 57 byte
// base address rendered as hex.
const RequiredHexLength = 114

// Type is the structural kind of an address, derived from its header byte.
type Type string

const (
	TypeBase       Type = "base"
	TypeEnterprise Type = "enterprise"
	TypePointer    Type = "pointer"
	TypeReward     Type = "reward"
	TypeByron      Type = "byron"
	TypeUnknown    Type = "unknown"
)

// Result is the outcome of a conversion. Hex holds the input verbatim when
// nothing could decode it, so callers must gate on Valid before use.
type Result struct {
	Hex     string
	Length  int
	Type    Type
	Decoded bool
}

// Valid reports whether the result can be placed in an outgoing request.
func (r Result) Valid() bool {
	return r.Length == RequiredHexLength
}

var hexPattern = regexp.MustCompile(`^[0-9a-fA-F]+$`)

var shelleyPrefixes = map[string]struct{}{
	"addr":       {},
	"addr_test":  {},
	"stake":      {},
	"stake_test": {},
}

// Convert turns input into its binary hex form. It never fails: undecodable
// input is passed through with its raw length.
func Convert(input string) Result {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Result{Type: TypeUnknown}
	}
	if hexPattern.MatchString(trimmed) {
		return Result{Hex: trimmed, Length: len(trimmed), Type: TypeUnknown}
	}

	if raw, ok := decodeShelley(trimmed); ok {
		return decoded(raw, Classify(raw))
	}
	if raw, typ, ok := decodeLoose(trimmed); ok {
		return decoded(raw, typ)
	}

	return Result{Hex: trimmed, Length: len(trimmed), Type: TypeUnknown}
}

// ToHex returns the converted hex only when it has the required length.
func ToHex(input string) (string, bool) {
	res := Convert(input)
	if !res.Valid() {
		return "", false
	}
	return res.Hex, true
}

// Classify reads the header nibble of a raw address.
func Classify(raw []byte) Type {
	if len(raw) == 0 {
		return TypeUnknown
	}
	switch raw[0] >> 4 {
	case 0, 1, 2, 3:
		return TypeBase
	case 4, 5:
		return TypePointer
	case 6, 7:
		return TypeEnterprise
	case 8:
		return TypeByron
	case 14, 15:
		return TypeReward
	default:
		return TypeUnknown
	}
}

// ClassifyHex is Classify for an already hex encoded address.
func ClassifyHex(s string) Type {
	if len(s) < 2 {
		return TypeUnknown
	}
	head, err := hex.DecodeString(s[:2])
	if err != nil {
		return TypeUnknown
	}
	return Classify(head)
}

func decoded(raw []byte, typ Type) Result {
	h := hex.EncodeToString(raw)
	return Result{Hex: h, Length: len(h), Type: typ, Decoded: true}
}

// decodeShelley accepts bech32 addresses with a known ledger prefix.
func decodeShelley(s string) ([]byte, bool) {
	hrp, data, err := bech32.DecodeNoLimit(s)
	if err != nil {
		return nil, false
	}
	if _, ok := shelleyPrefixes[hrp]; !ok {
		return nil, false
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	return raw, true
}

// decodeLoose ignores the human readable part, then falls back to base58 for
// legacy addresses.
func decodeLoose(s string) ([]byte, Type, bool) {
	if _, data, err := bech32.DecodeNoLimit(s); err == nil {
		if raw, err := bech32.ConvertBits(data, 5, 8, false); err == nil && len(raw) > 0 {
			return raw, TypeUnknown, true
		}
	}

	raw := base58.Decode(s)
	// legacy addresses are a two element CBOR array
	if len(raw) > 0 && raw[0] == 0x82 {
		return raw, TypeByron, true
	}
	return nil, TypeUnknown, false
}
