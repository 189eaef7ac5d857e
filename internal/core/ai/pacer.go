package ai

import (
	"context"
	"sync"
	"time"

	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// Pacer 外部調用節流器：每累積 N 次實際調用後插入一段延遲，
// 保護外部服務免受突發流量。快取命中不經過 Pacer。
type Pacer struct {
	batchSize int
	delay     time.Duration
	mu        sync.Mutex
	count     int
}

// NewPacer 創建節流器
func NewPacer(batchSize int, delay time.Duration) *Pacer {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Pacer{
		batchSize: batchSize,
		delay:     delay,
	}
}

// Tick 記錄一次實際外部調用；到達批次邊界時阻塞等待。
// ctx 取消時提前返回。
func (p *Pacer) Tick(ctx context.Context) {
	p.mu.Lock()
	p.count++
	atBoundary := p.count%p.batchSize == 0
	p.mu.Unlock()

	if !atBoundary || p.delay <= 0 {
		return
	}

	common.LogInfo("到達批次邊界，暫停外部調用",
		zap.Int("已調用次數", p.Count()),
		zap.Duration("暫停時長", p.delay),
	)

	timer := time.NewTimer(p.delay)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Count 返回累計實際調用次數
func (p *Pacer) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}
