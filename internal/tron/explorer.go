package tron

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Explorer queries the tronscan API for transactions addressed to an account.
type Explorer struct {
	baseURL string
	client  *http.Client
}

func NewExplorer(baseURL string) *Explorer {
	return &Explorer{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Transaction is one entry of the explorer's per-address transaction list.
type Transaction struct {
	TxID        string
	FromAddress string
	ToAddress   string
	AmountSun   int64
	ContractRet string
	Timestamp   time.Time
}

// Settled reports whether the transaction executed successfully on chain.
func (t Transaction) Settled() bool {
	return t.ContractRet == "SUCCESS"
}

// Transactions returns the most recent transactions touching address, newest
// first, bounded by limit. It is a read-only window scan, not a full history.
func (c *Explorer) Transactions(ctx context.Context, address string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	u, err := url.Parse(c.baseURL + "/api/transaction")
	if err != nil {
		return nil, err
	}
	values := url.Values{}
	values.Set("address", address)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("sort", "-timestamp")
	u.RawQuery = values.Encode()

	var resp txListResponse
	if err := c.getJSON(ctx, u.String(), &resp); err != nil {
		return nil, err
	}

	out := make([]Transaction, 0, len(resp.Data))
	for _, tx := range resp.Data {
		amount, _ := tx.Amount.Int64()
		out = append(out, Transaction{
			TxID:        tx.Hash,
			FromAddress: tx.OwnerAddress,
			ToAddress:   tx.ToAddress,
			AmountSun:   amount,
			ContractRet: tx.ContractRet,
			Timestamp:   time.UnixMilli(tx.Timestamp).UTC(),
		})
	}
	return out, nil
}

func (c *Explorer) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		msg := strings.TrimSpace(string(body))
		if msg != "" {
			return fmt.Errorf("explorer http status %d: %s", resp.StatusCode, msg)
		}
		return fmt.Errorf("explorer http status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// Explorer response types

type txListResponse struct {
	Total int64      `json:"total"`
	Data  []listedTx `json:"data"`
}

type listedTx struct {
	Hash         string      `json:"hash"`
	OwnerAddress string      `json:"ownerAddress"`
	ToAddress    string      `json:"toAddress"`
	Amount       json.Number `json:"amount"`
	ContractRet  string      `json:"contractRet"`
	Timestamp    int64       `json:"timestamp"`
}
