package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cooking-agent/internal/pkg/common"

	"github.com/go-redis/redis/v8"
)

// 編譯期介面檢查
var _ Store = (*RedisStore)(nil)

const redisStoreKey = "enrich:records"

// RedisStore Redis 後端的富集結果存儲，
// 由 cache.backend=redis 選用；整張表存在單一鍵下
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore 創建 Redis 存儲並測試連接
func NewRedisStore(addr string, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

// Load 讀取既有富集結果
func (s *RedisStore) Load(ctx context.Context) (map[string]common.EnrichedRecord, error) {
	data, err := s.client.Get(ctx, redisStoreKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, common.NewNotFoundError("富集快取不存在", err)
		}
		return nil, fmt.Errorf("failed to get enrichment cache: %w", err)
	}

	var records map[string]common.EnrichedRecord
	if err := common.ParseJSONStrict(string(data), &records); err != nil {
		return nil, common.NewDataIntegrityError("富集快取損壞", err)
	}
	return records, nil
}

// Save 寫入富集結果
func (s *RedisStore) Save(ctx context.Context, records map[string]common.EnrichedRecord) error {
	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment cache: %w", err)
	}

	if err := s.client.Set(ctx, redisStoreKey, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set enrichment cache: %w", err)
	}
	return nil
}

// Close 關閉 Redis 連接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
