package tron

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const txListBody = `{
	"total": 2,
	"data": [
		{
			"hash": "aa11",
			"ownerAddress": "TBuyer",
			"toAddress": "TDeposit",
			"amount": "1000000000",
			"contractRet": "SUCCESS",
			"timestamp": 1700000000000
		},
		{
			"hash": "bb22",
			"ownerAddress": "TBuyer",
			"toAddress": "TDeposit",
			"amount": 500,
			"contractRet": "REVERT",
			"timestamp": 1700000001000
		}
	]
}`

func TestExplorerTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/transaction", r.URL.Path)
		assert.Equal(t, "TDeposit", r.URL.Query().Get("address"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(txListBody))
	}))
	defer srv.Close()

	txs, err := NewExplorer(srv.URL).Transactions(context.Background(), "TDeposit", 50)
	require.NoError(t, err)
	require.Len(t, txs, 2)

	// Amount arrives as a string on some deployments and a number on others.
	assert.Equal(t, "aa11", txs[0].TxID)
	assert.Equal(t, int64(1_000_000_000), txs[0].AmountSun)
	assert.True(t, txs[0].Settled())
	assert.Equal(t, int64(500), txs[1].AmountSun)
	assert.False(t, txs[1].Settled())
	assert.Equal(t, int64(1700000000000), txs[0].Timestamp.UnixMilli())
}

func TestExplorerHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewExplorer(srv.URL).Transactions(context.Background(), "TDeposit", 50)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestMultiExplorerFailover(t *testing.T) {
	var badCalls, goodCalls atomic.Int32
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		badCalls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		goodCalls.Add(1)
		_, _ = w.Write([]byte(txListBody))
	}))
	defer good.Close()

	m, err := NewMultiExplorer([]string{bad.URL, good.URL}, 3)
	require.NoError(t, err)

	txs, err := m.Transactions(context.Background(), "TDeposit", 50)
	require.NoError(t, err)
	assert.Len(t, txs, 2)
	assert.Equal(t, int32(1), badCalls.Load())
	assert.Equal(t, int32(1), goodCalls.Load())
}

func TestMultiExplorerAllDown(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	m, err := NewMultiExplorer([]string{bad.URL, bad.URL + "/"}, 3)
	require.NoError(t, err)

	_, err = m.Transactions(context.Background(), "TDeposit", 50)
	assert.Error(t, err)
}

func TestMultiExplorerRejectsEmpty(t *testing.T) {
	_, err := NewMultiExplorer([]string{" ", ""}, 3)
	assert.Error(t, err)
}
