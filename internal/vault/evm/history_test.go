package evm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-vault/internal/history"
	"chain-vault/pkg/wallet/types"
)

// fakeExplorer 记录查询参数并返回固定的 /account/transfers 响应
type fakeExplorer struct {
	mu      sync.Mutex
	queries []url.Values
	code    int
	list    []map[string]any
}

func (e *fakeExplorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	e.queries = append(e.queries, r.URL.Query())
	e.mu.Unlock()

	if r.URL.Path != "/account/transfers" {
		http.NotFound(w, r)
		return
	}
	resp := map[string]any{
		"code":    e.code,
		"message": "",
		"data":    map[string]any{"total": len(e.list), "list": e.list},
	}
	if e.code != 0 {
		resp["message"] = "rate limited"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func (e *fakeExplorer) lastQuery() url.Values {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queries) == 0 {
		return nil
	}
	return e.queries[len(e.queries)-1]
}

func newExplorerVault(t *testing.T, f *fixture, e *fakeExplorer) *Vault {
	t.Helper()
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return f.vault(t, hdAccountID, WithExplorer(func(string) ExplorerAPI { return NewExplorer(srv.URL) }))
}

func TestFetchOnChainHistoryTransactions(t *testing.T) {
	f := newFixture(t)
	e := &fakeExplorer{list: []map[string]any{
		{
			"transactionHash": "0xaaa",
			"from":            testAddress,
			"to":              recipient,
			"amount":          "1000000000000000000",
			"input":           "0x",
			"nonce":           3,
			"gasFee":          "21000000000000",
			"status":          0,
			"timestamp":       1700000000,
		},
		{
			"transactionHash": "0xbbb",
			"from":            recipient,
			"to":              testAddress,
			"amount":          "500000000000000000",
			"input":           "0x",
			"nonce":           9,
			"gasFee":          "21000000000000",
			"status":          1,
			"timestamp":       1700000100,
		},
		{
			"transactionHash": "0xccc",
			"from":            testAddress,
			"to":              recipient,
			"amount":          "1",
			"input":           "0x",
			"status":          0,
			"timestamp":       1700000200,
		},
	}}
	v := newExplorerVault(t, f, e)
	f.rpc.On("CodeAt", recipient).Return([]byte{}, nil)
	f.rpc.On("CodeAt", testAddress).Return([]byte{}, nil)

	local := []types.HistoryTx{
		{
			ID:             "evm--1_0xBBB",
			IsLocalCreated: true,
			DecodedTx:      types.DecodedTx{TxID: "0xBBB", Status: types.StatusPending, CreatedAt: 1699999999000},
		},
		{
			ID:        "evm--1_0xccc",
			DecodedTx: types.DecodedTx{TxID: "0xccc", Status: types.StatusConfirmed, IsFinal: true},
		},
	}

	out, err := v.FetchOnChainHistory(context.Background(), history.FetchOptions{LocalHistory: local})
	require.NoError(t, err)
	require.Len(t, out, 2)

	q := e.lastQuery()
	assert.Equal(t, testAddress, q.Get("account"))
	assert.Equal(t, "50", q.Get("limit"))
	assert.Equal(t, TransferTypeTransaction, q.Get("transferType"))
	assert.Empty(t, q.Get("contract"))

	first := out[0]
	assert.Equal(t, "evm--1_0xaaa", first.ID)
	assert.Equal(t, types.StatusConfirmed, first.DecodedTx.Status)
	assert.True(t, first.DecodedTx.IsFinal)
	assert.Equal(t, uint64(3), first.DecodedTx.Nonce)
	assert.Equal(t, "0.000021", first.DecodedTx.TotalFeeInNative)
	assert.Equal(t, int64(1700000000000), first.DecodedTx.CreatedAt)
	require.Len(t, first.DecodedTx.Actions, 1)
	assert.Equal(t, types.ActionNativeTransfer, first.DecodedTx.Actions[0].Type)
	assert.Equal(t, "1", first.DecodedTx.Actions[0].NativeTransfer.Amount)
	assert.Equal(t, types.DirectionOut, first.DecodedTx.Actions[0].Direction)

	second := out[1]
	assert.Equal(t, "evm--1_0xBBB", second.ID)
	assert.True(t, second.IsLocalCreated)
	assert.Equal(t, types.StatusFailed, second.DecodedTx.Status)
	assert.False(t, second.DecodedTx.IsFinal)
	assert.Equal(t, int64(1699999999000), second.DecodedTx.CreatedAt)
	assert.Equal(t, int64(1700000100000), second.DecodedTx.UpdatedAt)
	assert.Equal(t, types.DirectionIn, second.DecodedTx.Actions[0].Direction)
}

func TestFetchOnChainHistoryTokenTransfers(t *testing.T) {
	f := newFixture(t)
	e := &fakeExplorer{list: []map[string]any{{
		"transactionHash": "0xddd",
		"from":            recipient,
		"to":              testAddress,
		"amount":          "2000001",
		"contract":        usdcAddress,
		"status":          0,
		"timestamp":       1700000300,
	}}}
	v := newExplorerVault(t, f, e)
	f.rpc.On("TransactionByHash", "0xddd").Return(&TxDetail{
		Hash:     "0xddd",
		From:     recipient,
		To:       usdcAddress,
		Nonce:    12,
		Gas:      50000,
		GasPrice: "1000000000",
		Data:     "0xa9059cbb",
	}, nil)

	token := usdcAddress
	out, err := v.FetchOnChainHistory(context.Background(), history.FetchOptions{TokenIDOnNetwork: &token})
	require.NoError(t, err)
	require.Len(t, out, 1)

	q := e.lastQuery()
	assert.Equal(t, TransferType20, q.Get("transferType"))
	assert.Equal(t, usdcAddress, q.Get("contract"))

	decoded := out[0].DecodedTx
	assert.Equal(t, uint64(12), decoded.Nonce)
	assert.Equal(t, "0.00005", decoded.TotalFeeInNative)
	require.Len(t, decoded.Actions, 1)
	action := decoded.Actions[0]
	assert.Equal(t, types.ActionTokenTransfer, action.Type)
	assert.Equal(t, "2.000001", action.TokenTransfer.Amount)
	assert.Equal(t, "USDC", action.TokenTransfer.TokenInfo.Symbol)
	assert.Equal(t, types.DirectionIn, action.Direction)

	encoded := decoded.EncodedTx.(*EncodedTx)
	assert.Equal(t, usdcAddress, encoded.To)
	assert.Equal(t, "0x0", encoded.Value)
}

func TestFetchOnChainHistoryExplorerError(t *testing.T) {
	f := newFixture(t)
	e := &fakeExplorer{code: 429, list: []map[string]any{{"transactionHash": "0xeee"}}}
	v := newExplorerVault(t, f, e)

	out, err := v.FetchOnChainHistory(context.Background(), history.FetchOptions{})
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.NotNil(t, out)
	f.rpc.AssertNotCalled(t, "CodeAt", recipient)
}

func TestFetchOnChainHistoryDropsFailedEnrichment(t *testing.T) {
	f := newFixture(t)
	e := &fakeExplorer{list: []map[string]any{
		{"transactionHash": "0xf01", "from": testAddress, "to": recipient, "status": 0, "timestamp": 1},
		{"transactionHash": "0xf02", "from": testAddress, "to": recipient, "status": 0, "timestamp": 2},
	}}
	v := newExplorerVault(t, f, e)
	f.rpc.On("TransactionByHash", "0xf01").Return(nil, assert.AnError)
	f.rpc.On("TransactionByHash", "0xf02").Return(nil, nil)
	f.rpc.On("CodeAt", recipient).Return([]byte{}, nil)

	call := ""
	out, err := v.FetchOnChainHistory(context.Background(), history.FetchOptions{TokenIDOnNetwork: &call})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "0xf02", out[0].DecodedTx.TxID)
}
