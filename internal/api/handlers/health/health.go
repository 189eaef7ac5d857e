package health

import (
	"net/http"
	"runtime"
	"time"

	"cooking-agent/internal/core/knowledge"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 健康檢查處理器，就緒判定依賴知識庫載入狀態
type Handler struct {
	cfg *config.Config
	kb  *knowledge.Base
}

// NewHandler 創建健康檢查處理器
func NewHandler(cfg *config.Config, kb *knowledge.Base) *Handler {
	return &Handler{cfg: cfg, kb: kb}
}

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Knowledge *KnowledgeStatus       `json:"knowledge,omitempty"`
}

// KnowledgeStatus 知識庫狀態
type KnowledgeStatus struct {
	Ready bool `json:"ready"`
	Total int  `json:"total"`
}

// HealthCheck 健康檢查處理器
func (h *Handler) HealthCheck(c *gin.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   h.cfg.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Knowledge: &KnowledgeStatus{
			Ready: h.kb.Ready(),
			Total: h.kb.Stats().Total,
		},
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 就緒檢查：知識庫未載入時返回 503
func (h *Handler) ReadinessCheck(c *gin.Context) {
	if !h.kb.Ready() {
		common.WriteError(c.Writer, common.ErrKnowledgeNotReady)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// LivenessCheck 存活檢查處理器
func (h *Handler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
