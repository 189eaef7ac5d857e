package ai

import (
	"context"
	"sync"

	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// memoCapacity 行程內記憶快取的條目上限，滿了之後不再收新條目
const memoCapacity = 256

// memoClient 行程內記憶快取：同一 (system, prompt) 只出網一次。
// 富集重跑與對話重試常帶完全相同的 prompt。
type memoClient struct {
	next Client

	mu   sync.Mutex
	memo map[string]Response
}

func withMemo(next Client) Client {
	return &memoClient{next: next, memo: make(map[string]Response)}
}

// Generate 先查記憶快取，未命中才轉交下游
func (m *memoClient) Generate(ctx context.Context, system string, prompt string) (string, error) {
	key := system + "\x00" + prompt

	if resp, ok := m.lookup(key); ok {
		common.LogDebug("生成結果命中行程內快取", zap.Bool("cache_hit", resp.CacheHit))
		return resp.Content, nil
	}

	content, err := m.next.Generate(ctx, system, prompt)
	if err != nil {
		return "", err
	}
	m.store(key, content)
	return content, nil
}

func (m *memoClient) lookup(key string) (Response, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.memo[key]
	if ok {
		resp.CacheHit = true
	}
	return resp, ok
}

func (m *memoClient) store(key, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.memo) >= memoCapacity {
		return
	}
	m.memo[key] = Response{Content: content}
}
