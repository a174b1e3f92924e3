// Package history 合并浏览器返回的远端交易记录与本地已知的历史记录。
package history

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"chain-vault/pkg/logger"
	"chain-vault/pkg/monitor"
	"chain-vault/pkg/wallet/types"
)

// Record 远端记录需要提供的最少信息
type Record interface {
	GetTxID() string
	// GetTimestamp 秒
	GetTimestamp() int64
}

// EnrichFunc 链相关的补全逻辑：按需查询交易详情、解码 actions、计算状态。
// 返回 error 时该条记录被丢弃。
type EnrichFunc[R Record] func(ctx context.Context, record R, local *types.HistoryTx) (*types.DecodedTx, error)

// FetchOptions 拉取远端历史的参数
type FetchOptions struct {
	// TokenIDOnNetwork nil 表示普通交易，"" 表示合约调用，其它为代币合约地址
	TokenIDOnNetwork *string
	LocalHistory     []types.HistoryTx
}

type Reconciler[R Record] struct {
	networkID string
	workers   int
	log       *zap.Logger
	metrics   *monitor.VaultMetrics
}

func NewReconciler[R Record](networkID string, workers int, log *zap.Logger, metrics *monitor.VaultMetrics) *Reconciler[R] {
	if workers <= 0 {
		workers = 4
	}
	return &Reconciler[R]{
		networkID: networkID,
		workers:   workers,
		log:       logger.OrNop(log).With(zap.String("network", networkID)),
		metrics:   metrics,
	}
}

// Reconcile 对每条远端记录:
//  1. 按 txid 查找本地记录
//  2. 本地记录已是终态则跳过
//  3. 调用 enrich 生成 DecodedTx
//  4. IsFinal = (status == Confirmed)
//  5. 保留本地的 CreatedAt，否则 CreatedAt = UpdatedAt = 远端时间
//
// enrich 并发执行，输出保持远端顺序；enrich 失败的记录被丢弃。
func (r *Reconciler[R]) Reconcile(ctx context.Context, remote []R, local []types.HistoryTx, enrich EnrichFunc[R]) []types.HistoryTx {
	byTxID := make(map[string]*types.HistoryTx, len(local))
	for i := range local {
		byTxID[normalizeTxID(local[i].DecodedTx.TxID)] = &local[i]
	}

	results := make([]*types.HistoryTx, len(remote))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)

	for i, record := range remote {
		i, record := i, record
		localTx := byTxID[normalizeTxID(record.GetTxID())]
		if localTx != nil && localTx.DecodedTx.IsFinal {
			r.metrics.HistoryRecord(r.networkID, "skipped_final")
			continue
		}

		g.Go(func() error {
			decoded, err := enrich(gctx, record, localTx)
			if err != nil {
				r.log.Warn("drop history record", zap.String("txid", record.GetTxID()), zap.Error(err))
				r.metrics.HistoryRecord(r.networkID, "dropped")
				return nil
			}
			results[i] = r.merge(record, localTx, decoded)
			r.metrics.HistoryRecord(r.networkID, "merged")
			return nil
		})
	}
	_ = g.Wait()

	out := make([]types.HistoryTx, 0, len(remote))
	for _, h := range results {
		if h != nil {
			out = append(out, *h)
		}
	}
	return out
}

func (r *Reconciler[R]) merge(record R, localTx *types.HistoryTx, decoded *types.DecodedTx) *types.HistoryTx {
	updatedAt := record.GetTimestamp() * 1000
	decoded.UpdatedAt = updatedAt
	decoded.IsFinal = decoded.Status == types.StatusConfirmed
	if decoded.TxID == "" {
		decoded.TxID = record.GetTxID()
	}
	if decoded.NetworkID == "" {
		decoded.NetworkID = r.networkID
	}

	h := &types.HistoryTx{ID: HistoryID(r.networkID, decoded.TxID)}
	if localTx != nil {
		h.ID = localTx.ID
		h.IsLocalCreated = localTx.IsLocalCreated
		decoded.CreatedAt = localTx.DecodedTx.CreatedAt
	}
	if decoded.CreatedAt == 0 {
		decoded.CreatedAt = updatedAt
	}
	h.DecodedTx = *decoded
	return h
}

// HistoryID 历史记录 id: <networkId>_<txid>
func HistoryID(networkID, txid string) string {
	return networkID + "_" + txid
}

func normalizeTxID(txid string) string {
	return strings.ToLower(txid)
}
