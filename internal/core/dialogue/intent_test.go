package dialogue

import (
	"context"
	"testing"

	"cooking-agent/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMenu() common.Menu {
	return common.Menu{Items: []common.MenuItem{
		{Name: "宫保鸡丁"},
		{Name: "红烧肉"},
		{Name: "清炒时蔬"},
	}}
}

func TestRuleClassifier(t *testing.T) {
	classifier := NewRuleClassifier()

	tests := []struct {
		input    string
		wantKind IntentKind
		wantDish string
	}{
		{"确认", IntentConfirm, ""},
		{"就这些吧", IntentConfirm, ""},
		{"好的没问题", IntentConfirm, ""},
		{"把红烧肉换掉", IntentReplace, "红烧肉"},
		{"不想吃宫保鸡丁了", IntentReplace, "宫保鸡丁"},
		{"换个别的代替清炒时蔬", IntentReplace, "清炒时蔬"},
		{"人数改成5个人", IntentModify, ""},
		{"口味再清淡一点", IntentModify, ""},
		{"不吃香菜", IntentModify, ""},
		{"今天天气不错", IntentUnrecognized, ""},
		{"", IntentUnrecognized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			intent, err := classifier.Classify(context.Background(), tt.input, testMenu())
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, intent.Kind)
			assert.Equal(t, tt.wantDish, intent.Dish)
		})
	}
}

func TestRuleClassifierReplaceNeedsMenuDish(t *testing.T) {
	classifier := NewRuleClassifier()

	// 換菜關鍵詞但提的菜不在菜單 → 落到調整偏好（想吃）
	intent, err := classifier.Classify(context.Background(), "换成水煮鱼想吃辣的", testMenu())
	require.NoError(t, err)
	assert.Equal(t, IntentModify, intent.Kind)
}

// fakeLLMClient 返回固定內容的生成服務替身
type fakeLLMClient struct {
	response string
	err      error
}

func (f *fakeLLMClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func TestLLMClassifierValidatesLabel(t *testing.T) {
	// 封閉集合外的標籤視為失敗，交回退分類器處理
	classifier := NewLLMClassifier(&fakeLLMClient{response: `{"intent":"whatever"}`})
	_, err := classifier.Classify(context.Background(), "确认", testMenu())
	assert.Error(t, err)

	// replace 指向菜單外的菜同樣失敗
	classifier = NewLLMClassifier(&fakeLLMClient{response: `{"intent":"replace","dish":"不存在的菜"}`})
	_, err = classifier.Classify(context.Background(), "换掉", testMenu())
	assert.Error(t, err)

	// 合法回應
	classifier = NewLLMClassifier(&fakeLLMClient{response: "```json\n{\"intent\":\"replace\",\"dish\":\"红烧肉\"}\n```"})
	intent, err := classifier.Classify(context.Background(), "把红烧肉换掉", testMenu())
	require.NoError(t, err)
	assert.Equal(t, IntentReplace, intent.Kind)
	assert.Equal(t, "红烧肉", intent.Dish)
}
