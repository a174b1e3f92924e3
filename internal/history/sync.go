package history

import (
	"context"
	"fmt"
	"time"

	"chain-vault/pkg/wallet/types"
)

// Fetcher 由各链的 vault 实现
type Fetcher interface {
	FetchOnChainHistory(ctx context.Context, opts FetchOptions) ([]types.HistoryTx, error)
}

// Syncer 读取本地记录 -> 拉取远端并合并 -> 写回
type Syncer struct {
	store Store
}

func NewSyncer(store Store) *Syncer {
	return &Syncer{store: store}
}

func (s *Syncer) Sync(ctx context.Context, networkID, accountID string, fetcher Fetcher, tokenIDOnNetwork *string) ([]types.HistoryTx, error) {
	stored, err := s.store.List(ctx, networkID, accountID)
	if err != nil {
		return nil, err
	}

	reconciled, err := fetcher.FetchOnChainHistory(ctx, FetchOptions{
		TokenIDOnNetwork: tokenIDOnNetwork,
		LocalHistory:     stored,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch on-chain history: %w", err)
	}

	merged := Merge(stored, reconciled)
	if err := s.store.Save(ctx, networkID, accountID, reconciled); err != nil {
		return nil, err
	}
	return merged, nil
}

// AddLocal 保存本地刚广播的交易 (Pending)
func (s *Syncer) AddLocal(ctx context.Context, networkID, accountID string, decoded types.DecodedTx) (*types.HistoryTx, error) {
	h := types.HistoryTx{
		ID:             HistoryID(networkID, decoded.TxID),
		IsLocalCreated: true,
		DecodedTx:      decoded,
	}
	h.DecodedTx.Status = types.StatusPending
	h.DecodedTx.IsFinal = false
	if h.DecodedTx.CreatedAt == 0 {
		h.DecodedTx.CreatedAt = time.Now().UnixMilli()
	}
	h.DecodedTx.UpdatedAt = h.DecodedTx.CreatedAt
	if err := s.store.Save(ctx, networkID, accountID, []types.HistoryTx{h}); err != nil {
		return nil, err
	}
	return &h, nil
}
