package dialogue

import (
	"context"
	"fmt"
	"strings"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/pkg/common"
)

// IntentKind 菜單跟進意圖
type IntentKind string

const (
	IntentConfirm      IntentKind = "confirm"
	IntentReplace      IntentKind = "replace"
	IntentModify       IntentKind = "modify"
	IntentUnrecognized IntentKind = "unrecognized"
)

// Intent 分類結果；換菜時帶被換的菜名
type Intent struct {
	Kind IntentKind `json:"intent"`
	Dish string     `json:"dish,omitempty"`
}

// IntentClassifier 菜單跟進意圖分類。
// 生成服務版為主路徑，規則版為回退；兩者可互換，
// 規則版不可被硬編碼為主路徑。
type IntentClassifier interface {
	Classify(ctx context.Context, input string, menu common.Menu) (Intent, error)
}

// 編譯期介面檢查
var (
	_ IntentClassifier = (*LLMClassifier)(nil)
	_ IntentClassifier = (*RuleClassifier)(nil)
)

// LLMClassifier 生成服務版意圖分類
type LLMClassifier struct {
	client ai.Client
}

// NewLLMClassifier 創建生成服務版分類器
func NewLLMClassifier(client ai.Client) *LLMClassifier {
	return &LLMClassifier{client: client}
}

const classifySystemPrompt = `你是菜单对话意图分类助手。判断用户对推荐菜单的回复属于哪类意图。只输出 JSON，不要输出任何解释文字。`

// Classify 調用生成服務分類意圖；回應標籤不在封閉集合內視為失敗
func (c *LLMClassifier) Classify(ctx context.Context, input string, menu common.Menu) (Intent, error) {
	var names []string
	for _, item := range menu.Items {
		names = append(names, item.Name)
	}

	prompt := fmt.Sprintf(`当前推荐菜单：%s

用户回复：%s

意图类别：
- confirm：接受菜单
- replace：想换掉菜单里的某道菜（dish 填被换的菜名，必须是菜单里的菜）
- modify：想调整偏好重新推荐（人数、口味、忌口变了）
- unrecognized：无法判断

只回传一个独立的 JSON，所有字段都必须使用双引号：
{"intent":"confirm","dish":""}`,
		common.StringSliceToString(names), input)

	content, err := c.client.Generate(ctx, classifySystemPrompt, prompt)
	if err != nil {
		return Intent{}, err
	}

	var intent Intent
	if err := common.ParseGeneratedJSON(content, &intent); err != nil {
		return Intent{}, fmt.Errorf("failed to parse intent response: %w", err)
	}

	switch intent.Kind {
	case IntentConfirm, IntentReplace, IntentModify, IntentUnrecognized:
	default:
		return Intent{}, fmt.Errorf("unknown intent label: %s", intent.Kind)
	}

	// replace 必須指向菜單內的菜，否則交給回退分類器
	if intent.Kind == IntentReplace && !menu.Contains(intent.Dish) {
		return Intent{}, fmt.Errorf("replace intent with unknown dish: %s", intent.Dish)
	}
	return intent, nil
}

// RuleClassifier 規則版意圖分類
type RuleClassifier struct{}

// NewRuleClassifier 創建規則版分類器
func NewRuleClassifier() *RuleClassifier {
	return &RuleClassifier{}
}

// confirmKeywords 確認菜單的常見說法
var confirmKeywords = []string{
	"确认", "可以", "就这些", "就这样", "好的", "没问题", "没意见", "OK", "ok", "行",
}

// replaceKeywords 換菜意圖關鍵詞
var replaceKeywords = []string{
	"换", "替换", "不想吃", "别的", "换掉",
}

// modifyKeywords 調整偏好意圖關鍵詞
var modifyKeywords = []string{
	"人数", "口味", "偏好", "忌口", "不吃", "想吃", "清淡", "改成", "再加", "人",
}

// Classify 按關鍵詞規則分類，永不失敗
func (c *RuleClassifier) Classify(ctx context.Context, input string, menu common.Menu) (Intent, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return Intent{Kind: IntentUnrecognized}, nil
	}

	// 先找換菜：輸入同時命中菜單菜名與換菜關鍵詞
	if containsAnyKeyword(trimmed, replaceKeywords) {
		for _, item := range menu.Items {
			if strings.Contains(trimmed, item.Name) {
				return Intent{Kind: IntentReplace, Dish: item.Name}, nil
			}
		}
	}

	if containsAnyKeyword(trimmed, confirmKeywords) {
		return Intent{Kind: IntentConfirm}, nil
	}

	if containsAnyKeyword(trimmed, modifyKeywords) {
		return Intent{Kind: IntentModify}, nil
	}

	return Intent{Kind: IntentUnrecognized}, nil
}

func containsAnyKeyword(input string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(input, kw) {
			return true
		}
	}
	return false
}
