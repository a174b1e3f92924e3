package history

import (
	"context"
	"sort"
	"sync"

	"chain-vault/pkg/wallet/types"
)

// Store 历史记录持久层，按 (network, account) 分组
type Store interface {
	List(ctx context.Context, networkID, accountID string) ([]types.HistoryTx, error)
	// Save 按 ID 覆盖写入
	Save(ctx context.Context, networkID, accountID string, txs []types.HistoryTx) error
}

// Merge 把本次同步结果合并进已保存的记录。已是终态的本地记录不会被覆盖。
// 结果按 CreatedAt 倒序。
func Merge(stored, reconciled []types.HistoryTx) []types.HistoryTx {
	byID := make(map[string]int, len(stored))
	out := make([]types.HistoryTx, 0, len(stored)+len(reconciled))
	for _, h := range stored {
		byID[h.ID] = len(out)
		out = append(out, h)
	}
	for _, h := range reconciled {
		if i, ok := byID[h.ID]; ok {
			if out[i].DecodedTx.IsFinal {
				continue
			}
			out[i] = h
			continue
		}
		byID[h.ID] = len(out)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DecodedTx.CreatedAt > out[j].DecodedTx.CreatedAt
	})
	return out
}

// MemoryStore 内存实现
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]map[string]types.HistoryTx
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]map[string]types.HistoryTx)}
}

func groupKey(networkID, accountID string) string {
	return networkID + "|" + accountID
}

func (s *MemoryStore) List(ctx context.Context, networkID, accountID string) ([]types.HistoryTx, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	group := s.data[groupKey(networkID, accountID)]
	out := make([]types.HistoryTx, 0, len(group))
	for _, h := range group {
		out = append(out, h)
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *MemoryStore) Save(ctx context.Context, networkID, accountID string, txs []types.HistoryTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := groupKey(networkID, accountID)
	group, ok := s.data[key]
	if !ok {
		group = make(map[string]types.HistoryTx)
		s.data[key] = group
	}
	for _, h := range txs {
		group[h.ID] = h
	}
	return nil
}

func sortByCreatedAt(txs []types.HistoryTx) {
	sort.SliceStable(txs, func(i, j int) bool {
		if txs[i].DecodedTx.CreatedAt == txs[j].DecodedTx.CreatedAt {
			return txs[i].ID < txs[j].ID
		}
		return txs[i].DecodedTx.CreatedAt > txs[j].DecodedTx.CreatedAt
	})
}
