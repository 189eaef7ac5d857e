package menu

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// Role 菜色角色桶
type Role string

const (
	RoleMain      Role = "main"
	RoleVegetable Role = "vegetable"
	RoleSoup      Role = "soup"
)

// Composer 菜單生成器：主路徑走外部推薦服務，
// 驗證失敗或服務失敗時退回確定性貪心選取。Compose 從不失敗。
type Composer struct {
	client       ai.Client
	candidateCap int
}

// NewComposer 創建菜單生成器
func NewComposer(cfg *config.Config, client ai.Client) *Composer {
	return &Composer{
		client:       client,
		candidateCap: cfg.Menu.CandidateCap,
	}
}

// CompositionFor 計算菜色構成：菜量隨人數增長、葷菜不少於素菜、
// 人多才配湯。peopleCount 缺省按 2 人計。
func CompositionFor(peopleCount int) (mainCount, vegetableCount, soupCount int) {
	if peopleCount <= 0 {
		peopleCount = 2
	}
	total := peopleCount + 1
	vegetableCount = total / 2
	mainCount = total - vegetableCount
	if peopleCount > 4 {
		soupCount = 1
	}
	return mainCount, vegetableCount, soupCount
}

const composeSystemPrompt = `你是家常菜搭配助手。根据用餐偏好从候选菜里挑选一份搭配合理的菜单。只输出 JSON，不要输出任何解释文字。`

// composeResponse 推薦服務的目標結構
type composeResponse struct {
	Menu []common.MenuItem `json:"menu"`
}

// Compose 生成菜單。
// 回應中的菜名必須存在於候選桶聯集，未知菜名丟棄並記警告；
// 有效項少於 required-1 時整份丟棄改走回退。
func (c *Composer) Compose(ctx context.Context, prefs common.Preferences, buckets common.CandidateBuckets) common.Menu {
	mainCount, vegCount, soupCount := CompositionFor(prefs.PeopleCount)
	required := mainCount + vegCount + soupCount

	items, err := c.requestMenu(ctx, prefs, buckets, mainCount, vegCount, soupCount)
	if err != nil {
		common.LogWarn("推薦服務失敗，改用貪心回退菜單", zap.Error(err))
		items = nil
	} else {
		items = c.validateItems(items, &buckets)
	}

	if len(items) < required-1 {
		if err == nil {
			common.LogWarn("推薦結果有效項不足，整份丟棄改用回退",
				zap.Int("有效項", len(items)),
				zap.Int("需求", required),
			)
		}
		items = greedyFallback(&buckets, mainCount, vegCount, soupCount)
	} else if len(items) > required {
		items = items[:required]
	}

	return common.Menu{
		Items:          items,
		MainCount:      mainCount,
		VegetableCount: vegCount,
		SoupCount:      soupCount,
	}
}

// requestMenu 調用外部推薦服務
func (c *Composer) requestMenu(ctx context.Context, prefs common.Preferences, buckets common.CandidateBuckets, mainCount, vegCount, soupCount int) ([]common.MenuItem, error) {
	prompt := fmt.Sprintf(`请根据以下用餐偏好，从候选菜里挑选菜单。

用餐偏好：%s

搭配规则：
- 荤素搭配、口味互补，避免主料重复
- 有忌口时绝对不选含忌口食材的菜
- 有特殊人群时优先选带对应安全标签的菜

候选荤菜/主菜：
%s
候选素菜：
%s
候选汤羹：
%s

要求：
1. 必须选 %d 道荤菜/主菜、%d 道素菜、%d 道汤羹，不多不少
2. 只能从上面列出的候选菜名中选，菜名必须一字不差
3. 每道菜给一句推荐理由（reason）
4. 只回传一个独立的 JSON，所有字段都必须使用双引号

请以以下 JSON 格式返回（仅作为范例，请勿直接复制内容）：
{"menu":[{"name":"菜名","reason":"推荐理由"}]}`,
		prefs.Summary(),
		c.formatCandidates(buckets.Mains),
		c.formatCandidates(buckets.Vegetables),
		c.formatCandidates(buckets.Soups),
		mainCount, vegCount, soupCount)

	content, err := c.client.Generate(ctx, composeSystemPrompt, prompt)
	if err != nil {
		return nil, err
	}

	var resp composeResponse
	if err := common.ParseGeneratedJSON(content, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse menu response: %w", err)
	}
	return resp.Menu, nil
}

// formatCandidates 將候選桶格式化為限幅後的 prompt 片段
func (c *Composer) formatCandidates(records []common.EnrichedRecord) string {
	if len(records) > c.candidateCap {
		records = records[:c.candidateCap]
	}
	if len(records) == 0 {
		return "（无候选）"
	}
	var sb strings.Builder
	for i := range records {
		r := &records[i]
		sb.WriteString(fmt.Sprintf("- %s（口味：%s；难度：%d）\n",
			r.Name,
			common.StringSliceToString(r.Tags.Taste),
			r.Difficulty,
		))
	}
	return sb.String()
}

// validateItems 丟棄候選桶聯集之外的菜名，記警告但不致命
func (c *Composer) validateItems(items []common.MenuItem, buckets *common.CandidateBuckets) []common.MenuItem {
	var valid []common.MenuItem
	for _, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		if _, ok := buckets.Find(item.Name); !ok {
			common.LogWarn("推薦結果含未知菜名，已丟棄",
				zap.String("菜名", item.Name),
			)
			continue
		}
		valid = append(valid, item)
	}
	return valid
}

// greedyFallback 確定性回退：按桶序取前 N 個候選，理由用固定模板
func greedyFallback(buckets *common.CandidateBuckets, mainCount, vegCount, soupCount int) []common.MenuItem {
	var items []common.MenuItem
	take := func(records []common.EnrichedRecord, n int, reason string) {
		for i := 0; i < n && i < len(records); i++ {
			items = append(items, common.MenuItem{
				Name:   records[i].Name,
				Reason: fmt.Sprintf(reason, records[i].Name),
			})
		}
	}
	take(buckets.Mains, mainCount, "%s 是符合偏好的荤菜，营养均衡")
	take(buckets.Vegetables, vegCount, "%s 是符合偏好的素菜，清爽解腻")
	take(buckets.Soups, soupCount, "%s 适合多人用餐时佐餐")
	return items
}

// Alternative 替換候選：完整記錄加偏好匹配分
type Alternative struct {
	Record common.EnrichedRecord
	Score  int
}

// maxAlternatives 單次替換最多返回的備選數
const maxAlternatives = 5

// Replace 為指定菜品計算同角色桶內的替換備選：
// 排除當前菜單與被換菜品本身，按偏好匹配分降序、難度升序，
// 最多返回 5 個。純本地計算，不經過外部服務。
func (c *Composer) Replace(dish string, prefs common.Preferences, current common.Menu, buckets common.CandidateBuckets, role Role) []Alternative {
	var pool []common.EnrichedRecord
	switch role {
	case RoleVegetable:
		pool = buckets.Vegetables
	case RoleSoup:
		pool = buckets.Soups
	default:
		pool = buckets.Mains
	}

	var alts []Alternative
	for i := range pool {
		record := pool[i]
		if record.Name == dish || current.Contains(record.Name) {
			continue
		}
		alts = append(alts, Alternative{
			Record: record,
			Score:  preferenceScore(&record, &prefs),
		})
	}

	sort.SliceStable(alts, func(i, j int) bool {
		if alts[i].Score != alts[j].Score {
			return alts[i].Score > alts[j].Score
		}
		return alts[i].Record.Difficulty < alts[j].Record.Difficulty
	})

	if len(alts) > maxAlternatives {
		alts = alts[:maxAlternatives]
	}
	return alts
}

// RoleOf 判斷記錄所屬的角色桶
func RoleOf(record *common.EnrichedRecord) Role {
	switch {
	case record.Category == common.CategoryVegetable:
		return RoleVegetable
	case record.Category == common.CategorySoup:
		return RoleSoup
	default:
		return RoleMain
	}
}

// groupTagMap 特殊人群 → 對應安全標籤
var groupTagMap = map[string]string{
	common.GroupKid:      common.TagKidFriendly,
	common.GroupPregnant: common.TagPregnancySafe,
	common.GroupElderly:  common.TagElderlySuited,
}

// preferenceScore 偏好匹配分：口味交集每項 +2、
// 命中忌口子串每項 −5、匹配人群安全標籤每項 +1
func preferenceScore(record *common.EnrichedRecord, prefs *common.Preferences) int {
	score := 0

	for _, taste := range prefs.TastePreferences {
		if common.HasTag(record.Tags.Taste, taste) {
			score += 2
		}
	}

	ingredients := strings.ToLower(record.Section(common.SectionIngredients))
	for _, ex := range prefs.IngredientExclusions {
		if ex != "" && strings.Contains(ingredients, strings.ToLower(ex)) {
			score -= 5
		}
	}

	for _, g := range prefs.SpecialGroup {
		if tag, ok := groupTagMap[g]; ok && common.HasTag(record.Tags.Suitability, tag) {
			score += 1
		}
	}

	return score
}
