package ai

import (
	"context"
	"errors"
	"testing"

	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingClient 記錄調用次數的下游替身
type countingClient struct {
	calls    int
	response string
}

func (c *countingClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	c.calls++
	return c.response, nil
}

func TestNewClientDisabledAlwaysFails(t *testing.T) {
	client := NewClient(&config.Config{})

	_, err := client.Generate(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrCollaborator))
}

func TestMemoClientGeneratesOnce(t *testing.T) {
	next := &countingClient{response: "回應"}
	client := withMemo(next)

	first, err := client.Generate(context.Background(), "sys", "同一段 prompt")
	require.NoError(t, err)
	second, err := client.Generate(context.Background(), "sys", "同一段 prompt")
	require.NoError(t, err)

	assert.Equal(t, "回應", first)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, next.calls)

	// 不同 prompt 仍然出網
	_, err = client.Generate(context.Background(), "sys", "另一段 prompt")
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls)
}

func TestCollapsePrompt(t *testing.T) {
	assert.Equal(t, "a b c", collapsePrompt("  a\tb\n\n c "))
	assert.Equal(t, "", collapsePrompt("   "))
}
