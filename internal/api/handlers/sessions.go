package handlers

import (
	"sync"
	"time"

	"cooking-agent/internal/core/dialogue"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// sessionEntry 一個會話與其獨占鎖。
// 同一會話同時只允許一輪在途請求，跨會話互不阻塞。
type sessionEntry struct {
	mu       sync.Mutex
	session  *dialogue.Session
	lastSeen time.Time
}

// SessionRegistry 以會話 ID 為鍵的註冊表，
// 閒置會話由後台 goroutine 定期清理。
type SessionRegistry struct {
	mu      sync.RWMutex
	entries map[string]*sessionEntry

	idleTTL     time.Duration
	cleanupOnce sync.Once
}

// NewSessionRegistry 創建會話註冊表
func NewSessionRegistry(idleTTL time.Duration) *SessionRegistry {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	return &SessionRegistry{
		entries: make(map[string]*sessionEntry),
		idleTTL: idleTTL,
	}
}

// startCleanup 啟動閒置會話清理 goroutine（只啟動一次）
func (r *SessionRegistry) startCleanup() {
	r.cleanupOnce.Do(func() {
		go func() {
			ticker := time.NewTicker(10 * time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				now := time.Now()
				r.mu.Lock()
				for id, entry := range r.entries {
					if now.Sub(entry.lastSeen) > r.idleTTL {
						delete(r.entries, id)
						common.LogInfo("閒置會話已清理", zap.String("會話", id))
					}
				}
				r.mu.Unlock()
			}
		}()
	})
}

// Acquire 取得（必要時創建）會話並鎖定它。
// 調用方用完必須調用返回的 release。
func (r *SessionRegistry) Acquire(id string) (*dialogue.Session, func()) {
	r.startCleanup()

	r.mu.Lock()
	entry, ok := r.entries[id]
	if !ok {
		session := dialogue.NewSession()
		entry = &sessionEntry{session: session}
		r.entries[session.ID] = entry
	}
	entry.lastSeen = time.Now()
	r.mu.Unlock()

	entry.mu.Lock()
	return entry.session, entry.mu.Unlock
}

// Get 查找既有會話並鎖定它，不存在返回 nil
func (r *SessionRegistry) Get(id string) (*dialogue.Session, func()) {
	r.mu.RLock()
	entry, ok := r.entries[id]
	r.mu.RUnlock()
	if !ok {
		return nil, nil
	}

	r.mu.Lock()
	entry.lastSeen = time.Now()
	r.mu.Unlock()

	entry.mu.Lock()
	return entry.session, entry.mu.Unlock
}
