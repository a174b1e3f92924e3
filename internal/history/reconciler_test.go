package history

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chain-vault/pkg/monitor"
	"chain-vault/pkg/wallet/types"
)

type remoteTx struct {
	hash   string
	ts     int64
	status types.TxStatus
	fail   bool
}

func (r remoteTx) GetTxID() string     { return r.hash }
func (r remoteTx) GetTimestamp() int64 { return r.ts }

func enrichStub(calls *atomic.Int32) EnrichFunc[remoteTx] {
	return func(ctx context.Context, r remoteTx, local *types.HistoryTx) (*types.DecodedTx, error) {
		calls.Add(1)
		if r.fail {
			return nil, errors.New("tx detail unavailable")
		}
		return &types.DecodedTx{
			TxID:    r.hash,
			Status:  r.status,
			Actions: []types.Action{types.NewUnknown("", types.UnknownAction{})},
		}, nil
	}
}

func TestReconcileNewRecords(t *testing.T) {
	r := NewReconciler[remoteTx]("evm--1", 2, nil, nil)
	var calls atomic.Int32

	out := r.Reconcile(context.Background(), []remoteTx{
		{hash: "0x01", ts: 100, status: types.StatusConfirmed},
		{hash: "0x02", ts: 200, status: types.StatusFailed},
		{hash: "0x03", ts: 300, status: types.StatusDropped},
	}, nil, enrichStub(&calls))

	require.Len(t, out, 3)
	assert.Equal(t, "evm--1_0x01", out[0].ID)
	assert.Equal(t, int64(100000), out[0].DecodedTx.CreatedAt)
	assert.Equal(t, int64(100000), out[0].DecodedTx.UpdatedAt)
	assert.True(t, out[0].DecodedTx.IsFinal)
	assert.False(t, out[1].DecodedTx.IsFinal)
	assert.False(t, out[2].DecodedTx.IsFinal)
	assert.Equal(t, "evm--1", out[2].DecodedTx.NetworkID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestReconcileFinalityIsSticky(t *testing.T) {
	r := NewReconciler[remoteTx]("evm--1", 2, nil, nil)
	var calls atomic.Int32

	final := types.HistoryTx{
		ID: "local-1",
		DecodedTx: types.DecodedTx{
			TxID: "0xAB", Status: types.StatusConfirmed, IsFinal: true, CreatedAt: 5, UpdatedAt: 6,
		},
	}
	local := []types.HistoryTx{final}

	out := r.Reconcile(context.Background(), []remoteTx{
		{hash: "0xab", ts: 999, status: types.StatusFailed},
	}, local, enrichStub(&calls))

	assert.Empty(t, out)
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, final, local[0])

	merged := Merge(local, out)
	require.Len(t, merged, 1)
	assert.Equal(t, final, merged[0])
}

func TestReconcilePreservesCreatedAt(t *testing.T) {
	r := NewReconciler[remoteTx]("evm--1", 1, nil, nil)
	var calls atomic.Int32

	local := []types.HistoryTx{{
		ID:             "evm--1_0x01",
		IsLocalCreated: true,
		DecodedTx:      types.DecodedTx{TxID: "0x01", Status: types.StatusPending, CreatedAt: 42},
	}}

	out := r.Reconcile(context.Background(), []remoteTx{
		{hash: "0x01", ts: 100, status: types.StatusConfirmed},
	}, local, enrichStub(&calls))

	require.Len(t, out, 1)
	assert.Equal(t, int64(42), out[0].DecodedTx.CreatedAt)
	assert.Equal(t, int64(100000), out[0].DecodedTx.UpdatedAt)
	assert.True(t, out[0].IsLocalCreated)
	assert.True(t, out[0].DecodedTx.IsFinal)
}

func TestReconcileDropsFailedEnrichmentOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := monitor.NewVaultMetrics(reg)
	r := NewReconciler[remoteTx]("evm--1", 3, nil, metrics)
	var calls atomic.Int32

	out := r.Reconcile(context.Background(), []remoteTx{
		{hash: "0x01", ts: 1, status: types.StatusConfirmed},
		{hash: "0x02", ts: 2, fail: true},
		{hash: "0x03", ts: 3, status: types.StatusConfirmed},
	}, nil, enrichStub(&calls))

	require.Len(t, out, 2)
	assert.Equal(t, "0x01", out[0].DecodedTx.TxID)
	assert.Equal(t, "0x03", out[1].DecodedTx.TxID)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.HistoryRecordsTotal.WithLabelValues("evm--1", "dropped")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.HistoryRecordsTotal.WithLabelValues("evm--1", "merged")))
}

func TestReconcileRunsEnrichmentConcurrently(t *testing.T) {
	r := NewReconciler[remoteTx]("evm--1", 4, nil, nil)
	var inFlight, maxInFlight atomic.Int32

	enrich := func(ctx context.Context, rec remoteTx, local *types.HistoryTx) (*types.DecodedTx, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return &types.DecodedTx{TxID: rec.hash}, nil
	}

	remote := make([]remoteTx, 8)
	for i := range remote {
		remote[i] = remoteTx{hash: string(rune('a' + i)), ts: int64(i)}
	}
	out := r.Reconcile(context.Background(), remote, nil, enrich)

	require.Len(t, out, 8)
	for i := range remote {
		assert.Equal(t, remote[i].hash, out[i].DecodedTx.TxID)
	}
	assert.Greater(t, maxInFlight.Load(), int32(1))
	assert.LessOrEqual(t, maxInFlight.Load(), int32(4))
}
