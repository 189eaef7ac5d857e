package handlers

import (
	"net/http"
	"strings"

	"cooking-agent/internal/core/dialogue"
	"cooking-agent/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ChatHandler 對話接口處理器
type ChatHandler struct {
	registry   *SessionRegistry
	controller *dialogue.Controller
}

// NewChatHandler 創建對話處理器
func NewChatHandler(registry *SessionRegistry, controller *dialogue.Controller) *ChatHandler {
	return &ChatHandler{
		registry:   registry,
		controller: controller,
	}
}

// chatRequest 對話請求體
type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message" binding:"required"`
}

// chatResponse 對話響應體
type chatResponse struct {
	SessionID string `json:"session_id"`
	Reply     string `json:"reply"`
	State     string `json:"state"`
}

// HandleChat 處理一輪對話。
// session_id 缺失或未知時創建新會話；同一會話的輪次串行執行。
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("對話請求格式錯誤", zap.Error(err))
		common.WriteError(c.Writer, common.NewError(
			common.ErrCodeInvalidRequest, "message is required", http.StatusBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		common.WriteError(c.Writer, common.ErrInvalidRequest)
		return
	}

	session, release := h.registry.Acquire(req.SessionID)
	defer release()

	reply := h.controller.HandleTurn(c.Request.Context(), session, req.Message)

	common.LogInfo("對話輪次完成",
		zap.String("會話", session.ID),
		zap.String("狀態", string(session.State)),
		zap.String("request_id", c.GetHeader("X-Request-ID")),
	)

	c.JSON(http.StatusOK, chatResponse{
		SessionID: session.ID,
		Reply:     reply,
		State:     string(session.State),
	})
}

// resetRequest 重置請求體
type resetRequest struct {
	SessionID string `json:"session_id" binding:"required"`
}

// HandleReset 重置指定會話，回到等待偏好態
func (h *ChatHandler) HandleReset(c *gin.Context) {
	var req resetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.WriteError(c.Writer, common.NewError(
			common.ErrCodeInvalidRequest, "session_id is required", http.StatusBadRequest, err))
		return
	}

	session, release := h.registry.Get(req.SessionID)
	if session == nil {
		common.WriteError(c.Writer, common.ErrNotFound)
		return
	}
	defer release()

	session.Reset()
	c.JSON(http.StatusOK, chatResponse{
		SessionID: session.ID,
		Reply:     "好的，我们重新开始。请告诉我用餐人数和口味偏好。",
		State:     string(session.State),
	})
}
