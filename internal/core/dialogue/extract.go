package dialogue

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/pkg/common"
)

// PreferenceExtractor 從一句自由文字中抽取偏好欄位。
// 生成服務版為主路徑，規則版為回退；兩者可互換。
type PreferenceExtractor interface {
	Extract(ctx context.Context, input string) (common.Preferences, error)
}

// 編譯期介面檢查
var (
	_ PreferenceExtractor = (*LLMExtractor)(nil)
	_ PreferenceExtractor = (*RuleExtractor)(nil)
)

// LLMExtractor 生成服務版偏好抽取
type LLMExtractor struct {
	client ai.Client
}

// NewLLMExtractor 創建生成服務版抽取器
func NewLLMExtractor(client ai.Client) *LLMExtractor {
	return &LLMExtractor{client: client}
}

const extractSystemPrompt = `你是用餐偏好抽取助手。从用户的一句话里抽取结构化偏好字段。只输出 JSON，不要输出任何解释文字。`

// Extract 調用生成服務抽取偏好，解析後統一做同義詞正規化
func (e *LLMExtractor) Extract(ctx context.Context, input string) (common.Preferences, error) {
	prompt := fmt.Sprintf(`请从下面这句话里抽取用餐偏好。

用户输入：%s

要求：
1. people_count 为用餐人数，没提到填 0
2. taste_preferences 为口味偏好列表，从 辣、甜、酸、清淡、咸鲜 中选，没提到填空列表
3. ingredient_exclusions 为忌口/过敏食材列表，没提到填空列表
4. special_group 为特殊人群列表，从 儿童、孕妇、老人 中选，没提到填空列表
5. max_cooking_time_minutes 为做饭时间上限（分钟），没提到填 0
6. 只回传一个独立的 JSON，所有字段都必须使用双引号

请以以下 JSON 格式返回（仅作为范例，请勿直接复制内容）：
{"people_count":3,"taste_preferences":["辣"],"ingredient_exclusions":["香菜"],"special_group":["儿童"],"max_cooking_time_minutes":60}`, input)

	content, err := e.client.Generate(ctx, extractSystemPrompt, prompt)
	if err != nil {
		return common.Preferences{}, err
	}

	var prefs common.Preferences
	if err := common.ParseGeneratedJSON(content, &prefs); err != nil {
		return common.Preferences{}, fmt.Errorf("failed to parse preference response: %w", err)
	}

	prefs.TastePreferences = common.NormalizeTastes(prefs.TastePreferences)
	prefs.SpecialGroup = common.NormalizeGroups(prefs.SpecialGroup)
	return prefs, nil
}

// RuleExtractor 規則版偏好抽取：數字/中文數字人數、
// 關鍵詞口味與人群、忌口句式、時間上限
type RuleExtractor struct{}

// NewRuleExtractor 創建規則版抽取器
func NewRuleExtractor() *RuleExtractor {
	return &RuleExtractor{}
}

var (
	peoplePattern    = regexp.MustCompile(`([0-9]+|[一两二三四五六七八九十]+)\s*(?:个人|口人|位|人)`)
	minutesPattern   = regexp.MustCompile(`([0-9]+)\s*分钟`)
	hoursPattern     = regexp.MustCompile(`([0-9]+|半|[一两二三四五六七八九]?)\s*个?小时`)
	exclusionPattern = regexp.MustCompile(`(?:不吃|不要|别放|忌口)([\p{Han}a-zA-Z]+)`)
	allergyPattern   = regexp.MustCompile(`对([\p{Han}a-zA-Z]+)过敏`)
)

// chineseDigits 中文數字對照
var chineseDigits = map[rune]int{
	'一': 1, '两': 2, '二': 2, '三': 3, '四': 4,
	'五': 5, '六': 6, '七': 7, '八': 8, '九': 9,
}

// tasteHints 口味關鍵詞（按表序，先查否定式）
var tasteHints = []struct {
	keyword string
	label   string
}{
	{"不辣", "清淡"},
	{"清淡", "清淡"},
	{"麻辣", "辣"},
	{"香辣", "辣"},
	{"微辣", "辣"},
	{"辣", "辣"},
	{"甜", "甜"},
	{"酸", "酸"},
	{"咸鲜", "咸鲜"},
	{"咸香", "咸鲜"},
}

// groupHints 特殊人群關鍵詞
var groupHints = []struct {
	keyword string
	label   string
}{
	{"儿童", common.GroupKid},
	{"小孩", common.GroupKid},
	{"孩子", common.GroupKid},
	{"宝宝", common.GroupKid},
	{"小朋友", common.GroupKid},
	{"孕妇", common.GroupPregnant},
	{"怀孕", common.GroupPregnant},
	{"孕妈", common.GroupPregnant},
	{"老人", common.GroupElderly},
	{"长辈", common.GroupElderly},
	{"老年人", common.GroupElderly},
}

// Extract 按規則抽取偏好，永不失敗
func (e *RuleExtractor) Extract(ctx context.Context, input string) (common.Preferences, error) {
	var prefs common.Preferences

	if m := peoplePattern.FindStringSubmatch(input); m != nil {
		prefs.PeopleCount = parseCount(m[1])
	}

	// 忌口先抽，避免「不吃辣」被當成口味匹配
	remaining := input
	for _, m := range exclusionPattern.FindAllStringSubmatch(input, -1) {
		for _, item := range splitListItems(m[1]) {
			prefs.IngredientExclusions = append(prefs.IngredientExclusions, item)
		}
		remaining = strings.ReplaceAll(remaining, m[0], "")
	}
	for _, m := range allergyPattern.FindAllStringSubmatch(input, -1) {
		for _, item := range splitListItems(m[1]) {
			prefs.IngredientExclusions = append(prefs.IngredientExclusions, item)
		}
		remaining = strings.ReplaceAll(remaining, m[0], "")
	}

	for _, hint := range tasteHints {
		if strings.Contains(remaining, hint.keyword) {
			prefs.TastePreferences = append(prefs.TastePreferences, hint.label)
			remaining = strings.ReplaceAll(remaining, hint.keyword, "")
		}
	}
	prefs.TastePreferences = common.NormalizeTastes(prefs.TastePreferences)

	for _, hint := range groupHints {
		if strings.Contains(input, hint.keyword) {
			prefs.SpecialGroup = append(prefs.SpecialGroup, hint.label)
		}
	}
	prefs.SpecialGroup = common.NormalizeGroups(prefs.SpecialGroup)

	if m := minutesPattern.FindStringSubmatch(input); m != nil {
		prefs.MaxCookingTimeMinutes = parseCount(m[1])
	} else if m := hoursPattern.FindStringSubmatch(input); m != nil {
		switch m[1] {
		case "半":
			prefs.MaxCookingTimeMinutes = 30
		case "":
			prefs.MaxCookingTimeMinutes = 60
		default:
			prefs.MaxCookingTimeMinutes = parseCount(m[1]) * 60
		}
	}

	return prefs, nil
}

// parseCount 解析阿拉伯數字或簡單中文數字
func parseCount(s string) int {
	if s == "" {
		return 0
	}
	if s[0] >= '0' && s[0] <= '9' {
		n := 0
		for _, r := range s {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
		}
		return n
	}
	return parseChineseNumeral(s)
}

// parseChineseNumeral 解析 一~九十九 範圍的中文數字
func parseChineseNumeral(s string) int {
	runes := []rune(s)
	if len(runes) == 1 {
		if runes[0] == '十' {
			return 10
		}
		return chineseDigits[runes[0]]
	}

	tenIdx := -1
	for i, r := range runes {
		if r == '十' {
			tenIdx = i
			break
		}
	}
	if tenIdx == -1 {
		return chineseDigits[runes[0]]
	}

	tens := 1
	if tenIdx > 0 {
		tens = chineseDigits[runes[tenIdx-1]]
	}
	units := 0
	if tenIdx < len(runes)-1 {
		units = chineseDigits[runes[tenIdx+1]]
	}
	return tens*10 + units
}

// splitListItems 拆開「香菜和葱」這類並列表達
func splitListItems(s string) []string {
	items := strings.FieldsFunc(s, func(r rune) bool {
		switch r {
		case '和', '跟', '及', '、', '，', ',':
			return true
		}
		return false
	})
	var out []string
	for _, item := range items {
		item = strings.TrimSuffix(strings.TrimSpace(item), "的")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
