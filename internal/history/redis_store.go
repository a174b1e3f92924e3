package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"chain-vault/pkg/wallet/types"
)

// RedisStore 每个 (network, account) 一个 Hash: field 为历史 id，value 为 JSON
type RedisStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisStore(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client, prefix: "vault:history:"}
}

func (s *RedisStore) key(networkID, accountID string) string {
	return s.prefix + networkID + ":" + accountID
}

func (s *RedisStore) List(ctx context.Context, networkID, accountID string) ([]types.HistoryTx, error) {
	values, err := s.client.HGetAll(ctx, s.key(networkID, accountID)).Result()
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	out := make([]types.HistoryTx, 0, len(values))
	for id, raw := range values {
		var h types.HistoryTx
		if err := json.Unmarshal([]byte(raw), &h); err != nil {
			return nil, fmt.Errorf("decode history %s: %w", id, err)
		}
		out = append(out, h)
	}
	sortByCreatedAt(out)
	return out, nil
}

func (s *RedisStore) Save(ctx context.Context, networkID, accountID string, txs []types.HistoryTx) error {
	if len(txs) == 0 {
		return nil
	}
	fields := make([]interface{}, 0, len(txs)*2)
	for _, h := range txs {
		b, err := json.Marshal(h)
		if err != nil {
			return err
		}
		fields = append(fields, h.ID, b)
	}
	return s.client.HSet(ctx, s.key(networkID, accountID), fields...).Err()
}
