package enrich

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// Enricher 增量富集器：對每筆原始記錄補上語義標籤與難度。
// 指紋未變的記錄直接沿用舊結果；外部服務失敗時以關鍵詞啟發式兜底，
// 保證任何一筆記錄都不會處於未標註狀態。
type Enricher struct {
	client         ai.Client
	pacer          *ai.Pacer
	promptMaxChars int
}

// Stats 單次增量富集的統計
type Stats struct {
	Total     int `json:"total"`
	Reused    int `json:"reused"`
	Called    int `json:"called"`
	Fallbacks int `json:"fallbacks"`
}

// NewEnricher 創建富集器
func NewEnricher(cfg *config.Config, client ai.Client) *Enricher {
	return &Enricher{
		client:         client,
		pacer:          ai.NewPacer(cfg.Pipeline.BatchSize, cfg.Pipeline.BatchDelay),
		promptMaxChars: cfg.Pipeline.PromptMaxChars,
	}
}

const tagSystemPrompt = `你是菜谱语义标注助手。根据给出的菜谱内容标注口味、烹饪方式、适宜季节和适宜人群。只输出 JSON，不要输出任何解释文字。`

// EnrichIncremental 增量富集一批原始記錄。
// previous 為上一次的富集結果（可為 nil）；返回順序與輸入一致。
func (e *Enricher) EnrichIncremental(ctx context.Context, raw []common.RawRecord, previous map[string]common.EnrichedRecord) ([]common.EnrichedRecord, Stats) {
	stats := Stats{Total: len(raw)}
	out := make([]common.EnrichedRecord, 0, len(raw))

	for i := range raw {
		record := raw[i]

		// 指紋未變：直接沿用，不經過外部服務也不計入節流
		if prev, ok := previous[record.Name]; ok && prev.Fingerprint == record.Fingerprint {
			common.LogFingerprintHit(record.Name)
			stats.Reused++
			out = append(out, prev)
			continue
		}

		common.LogFingerprintMiss(record.Name)
		enriched := e.enrichOne(ctx, record, &stats)
		out = append(out, enriched)
	}

	common.LogInfo("增量富集完成",
		zap.Int("總數", stats.Total),
		zap.Int("沿用", stats.Reused),
		zap.Int("外部調用", stats.Called),
		zap.Int("回退", stats.Fallbacks),
	)
	return out, stats
}

// enrichOne 富集單筆記錄，任何失敗都落到確定性回退
func (e *Enricher) enrichOne(ctx context.Context, record common.RawRecord, stats *Stats) common.EnrichedRecord {
	difficulty := EstimateDifficulty(
		record.Section(common.SectionSteps),
		record.Section(common.SectionIngredients),
	)

	stats.Called++
	tags, err := e.requestTags(ctx, record)
	if err != nil {
		common.LogWarn("標籤服務失敗，改用關鍵詞回退",
			zap.String("菜名", record.Name),
			zap.Error(err),
		)
		stats.Fallbacks++
		tags = FallbackTags(record)
	} else {
		// 服務回應中缺證據的維度補上明確預設，欄位永不缺失
		tags = ensureTagDefaults(record, tags)
	}

	return common.EnrichedRecord{
		RawRecord:  record,
		Difficulty: difficulty,
		Tags:       tags,
		EnrichedAt: time.Now(),
	}
}

// requestTags 調用外部標籤服務並解析回應
func (e *Enricher) requestTags(ctx context.Context, record common.RawRecord) (common.TagSet, error) {
	prompt := e.buildTagPrompt(record)

	content, err := e.client.Generate(ctx, tagSystemPrompt, prompt)
	e.pacer.Tick(ctx)
	if err != nil {
		return common.TagSet{}, err
	}

	var tags common.TagSet
	if err := common.ParseGeneratedJSON(content, &tags); err != nil {
		return common.TagSet{}, fmt.Errorf("failed to parse tag response: %w", err)
	}
	return tags, nil
}

// buildTagPrompt 以限幅後的段落內容組裝標註 prompt
func (e *Enricher) buildTagPrompt(record common.RawRecord) string {
	body := truncateRunes(strings.Join([]string{
		"描述：" + record.Section(common.SectionDescription),
		"原料与工具：" + record.Section(common.SectionIngredients),
		"步骤：" + record.Section(common.SectionSteps),
	}, "\n"), e.promptMaxChars)

	return fmt.Sprintf(`请为以下菜谱标注语义标签。

菜名：%s
分类：%s

%s

要求：
1. taste 从这些值中选：辣、甜、酸、清淡、咸鲜，至少一个
2. cooking_style 从这些值中选：炒、炖、蒸、煮、烤、炸、凉拌、煎，至少一个
3. season 为适宜季节，从 春、夏、秋、冬 中选，四季皆宜时全选
4. suitability 为适宜人群安全标签，仅当确定安全时才给出 儿童友好 或 孕妇适宜
5. 只回传一个独立的 JSON，所有字段都必须使用双引号

请以以下 JSON 格式返回（仅作为范例，请勿直接复制内容）：
{"taste":["咸鲜"],"cooking_style":["炒"],"season":["春","夏","秋","冬"],"suitability":["儿童友好"]}`,
		record.Name,
		record.Category.DisplayName(),
		body)
}

// truncateRunes 按 rune 截斷文字，限制 prompt 成本
func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

// ---------------- 確定性回退標註 ----------------

// tasteKeywords 口味關鍵詞表，按表序匹配
var tasteKeywords = []struct {
	label    string
	keywords []string
}{
	{"辣", []string{"辣椒", "麻辣", "剁椒", "泡椒", "花椒", "香辣", "豆瓣酱"}},
	{"甜", []string{"白糖", "冰糖", "红糖", "蜂蜜", "甜"}},
	{"酸", []string{"醋", "柠檬", "酸菜", "番茄"}},
	{"清淡", []string{"清蒸", "白灼", "水煮", "清炒", "清汤"}},
}

// styleKeywords 烹飪方式關鍵詞表
var styleKeywords = []struct {
	label    string
	keywords []string
}{
	{"炒", []string{"炒", "煸", "爆香"}},
	{"炖", []string{"炖", "煨", "焖", "慢煮"}},
	{"蒸", []string{"蒸"}},
	{"煮", []string{"煮", "汆", "焯"}},
	{"烤", []string{"烤", "焗", "烤箱"}},
	{"炸", []string{"油炸", "炸至", "下锅炸"}},
	{"凉拌", []string{"凉拌", "拌匀后直接食用"}},
	{"煎", []string{"煎"}},
}

// categoryStyleDefaults 分類兜底的烹飪方式
var categoryStyleDefaults = map[common.Category]string{
	common.CategoryMeat:      "炒",
	common.CategoryAquatic:   "蒸",
	common.CategoryVegetable: "炒",
	common.CategorySoup:      "炖",
	common.CategoryStaple:    "煮",
	common.CategoryBreakfast: "煎",
	common.CategoryDessert:   "烤",
	common.CategoryDrink:     "煮",
	common.CategoryCondiment: "凉拌",
	common.CategorySemi:      "炒",
}

// riskKeywords 人群安全風險關鍵詞：命中任一就不給安全標籤
var riskKeywords = []string{
	"酒", "生食", "刺身", "生鱼", "溏心", "咖啡", "浓茶", "槟榔",
}

// spiceKeywords 辛辣關鍵詞：同樣阻止安全標籤
var spiceKeywords = []string{
	"辣椒", "花椒", "麻辣", "芥末", "胡椒", "辣",
}

// FallbackTags 以關鍵詞/分類啟發式生成保底標籤集。
// 四個維度都保證非空或有明確預設：口味兜底「咸鲜」、
// 方式按分類兜底、季節預設四季、人群安全採保守判定。
func FallbackTags(record common.RawRecord) common.TagSet {
	text := record.Name + "\n" +
		record.Section(common.SectionSteps) + "\n" +
		record.Section(common.SectionIngredients)

	var tags common.TagSet

	for _, entry := range tasteKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				tags.Taste = append(tags.Taste, entry.label)
				break
			}
		}
	}
	if len(tags.Taste) == 0 {
		tags.Taste = []string{common.DefaultTaste}
	}

	for _, entry := range styleKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				tags.CookingStyle = append(tags.CookingStyle, entry.label)
				break
			}
		}
	}
	if len(tags.CookingStyle) == 0 {
		if style, ok := categoryStyleDefaults[record.Category]; ok {
			tags.CookingStyle = []string{style}
		} else {
			tags.CookingStyle = []string{"炒"}
		}
	}

	// 無季節證據時預設四季皆宜
	tags.Season = append([]string(nil), common.AllSeasons...)

	// 保守的人群安全判定：沒有任何風險或辛辣關鍵詞才標安全
	tags.Suitability = []string{}
	if !containsAny(text, riskKeywords) && !containsAny(text, spiceKeywords) {
		tags.Suitability = []string{common.TagKidFriendly, common.TagPregnancySafe}
	}

	return tags
}

// ensureTagDefaults 補齊服務回應中缺失的維度，維持「永不缺欄位」不變式
func ensureTagDefaults(record common.RawRecord, tags common.TagSet) common.TagSet {
	fallback := FallbackTags(record)
	if len(tags.Taste) == 0 {
		tags.Taste = fallback.Taste
	}
	if len(tags.CookingStyle) == 0 {
		tags.CookingStyle = fallback.CookingStyle
	}
	if len(tags.Season) == 0 {
		tags.Season = fallback.Season
	}
	if tags.Suitability == nil {
		tags.Suitability = fallback.Suitability
	}
	return tags
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
