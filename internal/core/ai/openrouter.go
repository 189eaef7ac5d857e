package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

// 編譯期介面檢查
var _ Client = (*OpenRouterClient)(nil)

// OpenRouterClient OpenRouter 生成服務客戶端
type OpenRouterClient struct {
	config *config.Config
	client *resty.Client
}

// NewOpenRouterClient 創建 OpenRouter 客戶端
func NewOpenRouterClient(cfg *config.Config) *OpenRouterClient {
	client := resty.New().
		SetBaseURL("https://openrouter.ai/api/v1").
		SetHeader("Authorization", fmt.Sprintf("Bearer %s", cfg.OpenRouter.APIKey)).
		SetHeader("HTTP-Referer", "https://cooking-agent.local").
		SetHeader("X-Title", "Cooking Agent").
		SetTimeout(cfg.OpenRouter.Timeout)

	return &OpenRouterClient{
		config: cfg,
		client: client,
	}
}

// Generate 發送一輪對話請求並返回文字內容
func (c *OpenRouterClient) Generate(ctx context.Context, system string, prompt string) (string, error) {
	start := time.Now()

	messages := make([]chatMessage, 0, 2)
	if system != "" {
		messages = append(messages, chatMessage{Role: "system", Content: collapsePrompt(system)})
	}
	messages = append(messages, chatMessage{Role: "user", Content: collapsePrompt(prompt)})

	req := chatRequest{
		Model:     c.config.OpenRouter.Model,
		Messages:  messages,
		MaxTokens: c.config.OpenRouter.MaxTokens,
	}

	// 發送請求
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(req).
		Post("/chat/completions")

	if err != nil {
		common.LogCollaboratorCall("chat", time.Since(start), err)
		return "", fmt.Errorf("failed to send request to OpenRouter: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		err := fmt.Errorf("OpenRouter API returned error: %s", resp.String())
		common.LogCollaboratorCall("chat", time.Since(start), err)
		return "", err
	}

	// 解析回應
	var result chatResponse
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		common.LogCollaboratorCall("chat", time.Since(start), err)
		return "", fmt.Errorf("failed to parse OpenRouter response: %w", err)
	}

	if len(result.Choices) == 0 {
		err := fmt.Errorf("no choices in OpenRouter response")
		common.LogCollaboratorCall("chat", time.Since(start), err)
		return "", err
	}

	common.LogCollaboratorCall("chat", time.Since(start), nil)
	return result.Choices[0].Message.Content, nil
}
