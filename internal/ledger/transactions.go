package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/vanshika/beltledger/internal/interaction"
)

// SubmitRequest pairs the unsigned transaction with its witness set.
type SubmitRequest struct {
	UnsignedTx string `json:"tx_unsigned"`
	Witness    string `json:"tx_wit"`
}

// BuildTx asks the backend for the unsigned transaction of an interaction.
func (c *Client) BuildTx(ctx context.Context, in interaction.Interaction) (string, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(in).
		Post("/build-tx")
	if err := c.check("build-tx", resp, err); err != nil {
		return "", err
	}
	tx := UnwrapTransaction(resp.String())
	if tx == "" {
		return "", errors.New("ledger build-tx: empty transaction")
	}
	return tx, nil
}

// SubmitTx submits a signed transaction and returns its id.
func (c *Client) SubmitTx(ctx context.Context, req SubmitRequest) (string, error) {
	resp, err := c.request(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(req).
		Post("/submit-tx")
	if err := c.check("submit-tx", resp, err); err != nil {
		return "", err
	}
	id := ParseTxID(resp.String())
	if id == "" {
		return "", errors.New("ledger submit-tx: response carried no transaction id")
	}
	c.logger.Info("transaction submitted", "tx_id", id)
	return id, nil
}

// UnwrapTransaction strips one level of JSON string quoting from a build
// response, leaving bare hex untouched.
func UnwrapTransaction(body string) string {
	text := strings.TrimSpace(body)
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		text = strings.TrimSpace(s)
	}
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = text[1 : len(text)-1]
	}
	return text
}

// ParseTxID reads {"id": ...}, a JSON string, or a bare id.
func ParseTxID(body string) string {
	text := strings.TrimSpace(body)
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj.ID
	}
	var s string
	if err := json.Unmarshal([]byte(text), &s); err == nil {
		return strings.TrimSpace(s)
	}
	return text
}

// Describe is a short human readable summary for logs and CLI output.
func (r SubmitRequest) Describe() string {
	return fmt.Sprintf("tx_unsigned=%d hex chars, tx_wit=%d hex chars", len(r.UnsignedTx), len(r.Witness))
}
