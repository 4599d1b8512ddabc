package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Node talks to a TRON full node HTTP API (trongrid or compatible). It is
// used only by the fund forwarder: balance lookup, transfer construction and
// broadcast. Addresses are passed in base58 form ("visible" mode).
type Node struct {
	baseURL string
	client  *http.Client
}

func NewNode(baseURL string) *Node {
	return &Node{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// AccountBalance returns the TRX balance of address in sun. An account the
// chain has never seen yields 0, not an error.
func (n *Node) AccountBalance(ctx context.Context, address string) (int64, error) {
	var resp struct {
		Balance int64  `json:"balance"`
		Error   string `json:"Error"`
	}
	err := n.postJSON(ctx, "/wallet/getaccount", map[string]any{
		"address": address,
		"visible": true,
	}, &resp)
	if err != nil {
		return 0, err
	}
	if resp.Error != "" {
		return 0, errors.New(resp.Error)
	}
	return resp.Balance, nil
}

// UnsignedTx is a transfer built by the node. The raw body is kept verbatim so
// the signed transaction can be broadcast without re-encoding.
type UnsignedTx struct {
	TxID string
	raw  map[string]json.RawMessage
}

func (n *Node) CreateTransfer(ctx context.Context, from, to string, amountSun int64) (*UnsignedTx, error) {
	var raw map[string]json.RawMessage
	err := n.postJSON(ctx, "/wallet/createtransaction", map[string]any{
		"owner_address": from,
		"to_address":    to,
		"amount":        amountSun,
		"visible":       true,
	}, &raw)
	if err != nil {
		return nil, err
	}
	if msg, ok := raw["Error"]; ok {
		return nil, fmt.Errorf("create transfer: %s", string(msg))
	}
	var txID string
	if err := json.Unmarshal(raw["txID"], &txID); err != nil || txID == "" {
		return nil, errors.New("create transfer: missing txID")
	}
	return &UnsignedTx{TxID: txID, raw: raw}, nil
}

// Broadcast submits tx with the given signature attached. signatureHex is the
// 65-byte R||S||V signature over the transaction ID.
func (n *Node) Broadcast(ctx context.Context, tx *UnsignedTx, signatureHex string) error {
	body := make(map[string]json.RawMessage, len(tx.raw)+1)
	for k, v := range tx.raw {
		body[k] = v
	}
	sig, err := json.Marshal([]string{signatureHex})
	if err != nil {
		return err
	}
	body["signature"] = sig

	var resp struct {
		Result  bool   `json:"result"`
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := n.postJSON(ctx, "/wallet/broadcasttransaction", body, &resp); err != nil {
		return err
	}
	if !resp.Result {
		return fmt.Errorf("broadcast rejected: %s %s", resp.Code, resp.Message)
	}
	return nil
}

func (n *Node) postJSON(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("node http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("node http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
