package ai

import (
	"context"
	"fmt"
	"strings"

	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"
)

// Client 外部生成服務介面。每一次調用都視為可失敗，
// 調用方必須自備確定性的回退路徑。
type Client interface {
	Generate(ctx context.Context, system string, prompt string) (string, error)
}

// Response 生成服務回應結構
type Response struct {
	Content  string `json:"content"`
	CacheHit bool   `json:"cache_hit,omitempty"`
}

// NewClient 依設定組裝生成服務客戶端：
// 未啟用時返回恆定失敗的替身，所有調用方走本地回退；
// 啟用時包一層行程內記憶快取，重複 prompt 不再出網。
func NewClient(cfg *config.Config) Client {
	if !cfg.OpenRouter.Enabled {
		common.LogInfo("生成服務未啟用，全部走本地回退")
		return disabledClient{}
	}
	return withMemo(NewOpenRouterClient(cfg))
}

// disabledClient 未啟用生成服務時的替身
type disabledClient struct{}

func (disabledClient) Generate(ctx context.Context, system string, prompt string) (string, error) {
	return "", fmt.Errorf("生成服務未啟用: %w", common.ErrCollaborator)
}

// collapsePrompt 統一 prompt 格式：去除前後空白、壓縮連續空白
func collapsePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	prompt = strings.ReplaceAll(prompt, "\t", " ")
	return strings.Join(strings.Fields(prompt), " ")
}

// chatRequest OpenRouter 聊天請求
type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatResponse OpenRouter 聊天回應
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}
