// Package witness turns whatever a wallet returns from a signing request into
// the bare witness set the ledger backend expects.
package witness

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

// ErrUnrecognizedPayload is returned when the signed blob is neither a witness
// set nor a full transaction.
var ErrUnrecognizedPayload = errors.New("signed data is neither a witness set nor a transaction")

// Witness set map keys.
const (
	KeyVKeyWitnesses   uint64 = 0
	KeyNativeScripts   uint64 = 1
	KeyBootstrap       uint64 = 2
	KeyPlutusV1Scripts uint64 = 3
	KeyPlutusData      uint64 = 4
	KeyRedeemers       uint64 = 5
	KeyPlutusV2Scripts uint64 = 6
	KeyPlutusV3Scripts uint64 = 7
)

const (
	maxWitnessSetKey        = KeyPlutusV3Scripts
	transactionWitnessIndex = 1
)

// WitnessSet is a decoded witness set with its fields left raw.
type WitnessSet struct {
	Raw    []byte
	Fields map[uint64]cbor.RawMessage
}

// Transaction is a decoded signed transaction.
type Transaction struct {
	Raw        []byte
	Body       cbor.RawMessage
	WitnessSet WitnessSet
	Elements   int
}

var decMode = func() cbor.DecMode {
	mode, err := cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

// TryDecodeWitnessSet decodes raw as a witness set.
func TryDecodeWitnessSet(raw []byte) (WitnessSet, bool) {
	if len(raw) == 0 {
		return WitnessSet{}, false
	}
	var fields map[uint64]cbor.RawMessage
	if err := decMode.Unmarshal(raw, &fields); err != nil {
		return WitnessSet{}, false
	}
	for key := range fields {
		if key > maxWitnessSetKey {
			return WitnessSet{}, false
		}
	}
	return WitnessSet{Raw: raw, Fields: fields}, true
}

// TryDecodeTransaction decodes raw as a full transaction:
// [body, witness_set, is_valid, auxiliary_data] or the three element pre-Alonzo form.
func TryDecodeTransaction(raw []byte) (Transaction, bool) {
	if len(raw) == 0 {
		return Transaction{}, false
	}
	var elements []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &elements); err != nil {
		return Transaction{}, false
	}
	if len(elements) != 3 && len(elements) != 4 {
		return Transaction{}, false
	}
	var body map[uint64]cbor.RawMessage
	if err := decMode.Unmarshal(elements[0], &body); err != nil {
		return Transaction{}, false
	}
	ws, ok := TryDecodeWitnessSet(elements[transactionWitnessIndex])
	if !ok {
		return Transaction{}, false
	}
	return Transaction{
		Raw:        raw,
		Body:       elements[0],
		WitnessSet: ws,
		Elements:   len(elements),
	}, true
}

// Normalize returns the witness set hex for a wallet signing response.
// Witness sets pass through unchanged; full transactions have their witness
// set extracted and re-encoded.
func Normalize(signed string) (string, error) {
	trimmed := strings.TrimSpace(signed)
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnrecognizedPayload, err)
	}

	if _, ok := TryDecodeWitnessSet(raw); ok {
		return trimmed, nil
	}
	if tx, ok := TryDecodeTransaction(raw); ok {
		return hex.EncodeToString(tx.WitnessSet.Raw), nil
	}
	return "", ErrUnrecognizedPayload
}

// Summary counts the key witnesses in a set, for logging.
type Summary struct {
	VKeys     int
	Bootstrap int
	Fields    int
}

// Summarize inspects the vkey and bootstrap witness lists.
func Summarize(ws WitnessSet) Summary {
	return Summary{
		VKeys:     countItems(ws.Fields[KeyVKeyWitnesses]),
		Bootstrap: countItems(ws.Fields[KeyBootstrap]),
		Fields:    len(ws.Fields),
	}
}

// countItems handles both plain arrays and tag 258 sets.
func countItems(raw cbor.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var items []cbor.RawMessage
	if err := decMode.Unmarshal(raw, &items); err == nil {
		return len(items)
	}
	var tagged cbor.RawTag
	if err := decMode.Unmarshal(raw, &tagged); err == nil {
		if err := decMode.Unmarshal(tagged.Content, &items); err == nil {
			return len(items)
		}
	}
	return 0
}
