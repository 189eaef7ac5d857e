package common

import (
	"strconv"
	"strings"
	"time"
)

// Category 菜品分類（封閉集合，對應語料庫目錄結構）
type Category string

const (
	CategoryMeat      Category = "meat"      // 葷菜
	CategoryAquatic   Category = "aquatic"   // 水產
	CategoryVegetable Category = "vegetable" // 素菜
	CategorySoup      Category = "soup"      // 湯羹
	CategoryStaple    Category = "staple"    // 主食
	CategoryBreakfast Category = "breakfast" // 早餐
	CategoryDessert   Category = "dessert"   // 甜品
	CategoryDrink     Category = "drink"     // 飲品
	CategoryCondiment Category = "condiment" // 調味料
	CategorySemi      Category = "semi"      // 半成品
)

// CategoryDisplayNames 分類的中文顯示名稱
var CategoryDisplayNames = map[Category]string{
	CategoryMeat:      "荤菜",
	CategoryAquatic:   "水产",
	CategoryVegetable: "素菜",
	CategorySoup:      "汤羹",
	CategoryStaple:    "主食",
	CategoryBreakfast: "早餐",
	CategoryDessert:   "甜品",
	CategoryDrink:     "饮品",
	CategoryCondiment: "调味料",
	CategorySemi:      "半成品",
}

// DisplayName 返回分類的中文名稱，未知分類原樣返回
func (c Category) DisplayName() string {
	if name, ok := CategoryDisplayNames[c]; ok {
		return name
	}
	return string(c)
}

// IsProtein 是否屬於葷菜/主菜桶
func (c Category) IsProtein() bool {
	return c == CategoryMeat || c == CategoryAquatic
}

// 原始記錄的段落鍵（由外部語料解析器產生）
const (
	SectionDescription = "描述"
	SectionIngredients = "原料与工具"
	SectionQuantities  = "计量"
	SectionSteps       = "步骤"
	SectionExtras      = "附加内容"
)

// RawRecord 原始菜譜記錄，指紋固定後不可變
type RawRecord struct {
	Name        string            `json:"name"`
	SourcePath  string            `json:"source_path"`
	Fingerprint string            `json:"fingerprint"`
	Category    Category          `json:"category"`
	Sections    map[string]string `json:"sections"`
}

// Section 取得指定段落文字，缺失返回空字串
func (r *RawRecord) Section(key string) string {
	if r.Sections == nil {
		return ""
	}
	return r.Sections[key]
}

// TagSet 語義標籤集合。富集完成後四個欄位都不會是 nil：
// 沒有證據時填入明確的預設值，而不是缺欄位。
type TagSet struct {
	Taste        []string `json:"taste"`
	CookingStyle []string `json:"cooking_style"`
	Season       []string `json:"season"`
	Suitability  []string `json:"suitability"`
}

// 標籤預設值
const (
	DefaultTaste      = "咸鲜"
	TagKidFriendly    = "儿童友好"
	TagPregnancySafe  = "孕妇适宜"
	TagElderlySuited  = "老人适宜"
	GroupKid          = "儿童"
	GroupPregnant     = "孕妇"
	GroupElderly      = "老人"
)

// AllSeasons 四季皆宜的預設季節標籤
var AllSeasons = []string{"春", "夏", "秋", "冬"}

// HasTag 檢查某個標籤維度是否包含指定值
func HasTag(tags []string, value string) bool {
	for _, t := range tags {
		if t == value {
			return true
		}
	}
	return false
}

// EnrichedRecord 富集後的菜譜記錄。指紋變更時整筆替換，不做局部修改。
type EnrichedRecord struct {
	RawRecord
	Difficulty int       `json:"difficulty"`
	Tags       TagSet    `json:"tags"`
	EnrichedAt time.Time `json:"enriched_at"`
}

// IndexEntry 輕量索引條目（EnrichedRecord 的投影）
type IndexEntry struct {
	Name       string   `json:"name"`
	Category   Category `json:"category"`
	Difficulty int      `json:"difficulty"`
	Tags       TagSet   `json:"tags"`
}

// Statistics 知識庫聚合統計，每次重建時整體重算
type Statistics struct {
	Total          int            `json:"total"`
	ByCategory     map[string]int `json:"by_category"`
	ByDifficulty   map[string]int `json:"by_difficulty"`
	ByTaste        map[string]int `json:"by_taste"`
	ByCookingStyle map[string]int `json:"by_cooking_style"`
	BySeason       map[string]int `json:"by_season"`
	BySuitability  map[string]int `json:"by_suitability"`
	GeneratedAt    string         `json:"generated_at"`
}

// Preferences 使用者偏好。合併語義：後到的非空值覆蓋舊值，缺省鍵保留舊值。
type Preferences struct {
	PeopleCount           int      `json:"people_count,omitempty"`
	TastePreferences      []string `json:"taste_preferences,omitempty"`
	IngredientExclusions  []string `json:"ingredient_exclusions,omitempty"`
	SpecialGroup          []string `json:"special_group,omitempty"`
	MaxCookingTimeMinutes int      `json:"max_cooking_time_minutes,omitempty"`
}

// Merge 以 newer 的非空欄位覆蓋 p 的對應欄位
func (p *Preferences) Merge(newer Preferences) {
	if newer.PeopleCount > 0 {
		p.PeopleCount = newer.PeopleCount
	}
	if len(newer.TastePreferences) > 0 {
		p.TastePreferences = newer.TastePreferences
	}
	if len(newer.IngredientExclusions) > 0 {
		p.IngredientExclusions = newer.IngredientExclusions
	}
	if len(newer.SpecialGroup) > 0 {
		p.SpecialGroup = newer.SpecialGroup
	}
	if newer.MaxCookingTimeMinutes > 0 {
		p.MaxCookingTimeMinutes = newer.MaxCookingTimeMinutes
	}
}

// IsEmpty 是否沒有任何有效欄位
func (p *Preferences) IsEmpty() bool {
	return p.PeopleCount == 0 &&
		len(p.TastePreferences) == 0 &&
		len(p.IngredientExclusions) == 0 &&
		len(p.SpecialGroup) == 0 &&
		p.MaxCookingTimeMinutes == 0
}

// Summary 偏好的中文摘要，用於組裝 prompt
func (p *Preferences) Summary() string {
	var parts []string
	if p.PeopleCount > 0 {
		parts = append(parts, "用餐人数："+strconv.Itoa(p.PeopleCount)+"人")
	}
	if len(p.TastePreferences) > 0 {
		parts = append(parts, "口味偏好："+StringSliceToString(p.TastePreferences))
	}
	if len(p.IngredientExclusions) > 0 {
		parts = append(parts, "忌口食材："+StringSliceToString(p.IngredientExclusions))
	}
	if len(p.SpecialGroup) > 0 {
		parts = append(parts, "特殊人群："+StringSliceToString(p.SpecialGroup))
	}
	if p.MaxCookingTimeMinutes > 0 {
		parts = append(parts, "时间上限："+strconv.Itoa(p.MaxCookingTimeMinutes)+"分钟")
	}
	if len(parts) == 0 {
		return "无特殊偏好"
	}
	return strings.Join(parts, "；")
}

// tasteSynonyms 口味同義詞正規化表
var tasteSynonyms = map[string]string{
	"麻辣": "辣", "香辣": "辣", "微辣": "辣", "辣的": "辣", "辣味": "辣",
	"清爽": "清淡", "不辣": "清淡", "淡一点": "清淡",
	"甜的": "甜", "甜味": "甜",
	"酸的": "酸", "酸味": "酸",
	"咸": "咸鲜", "鲜": "咸鲜", "咸香": "咸鲜",
}

// NormalizeTaste 將口味詞正規化為標準標籤
func NormalizeTaste(taste string) string {
	taste = strings.TrimSpace(taste)
	if canonical, ok := tasteSynonyms[taste]; ok {
		return canonical
	}
	return taste
}

// NormalizeTastes 批次正規化並去重
func NormalizeTastes(tastes []string) []string {
	seen := make(map[string]struct{}, len(tastes))
	var out []string
	for _, t := range tastes {
		norm := NormalizeTaste(t)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// groupSynonyms 特殊人群同義詞正規化表
var groupSynonyms = map[string]string{
	"小孩": GroupKid, "孩子": GroupKid, "宝宝": GroupKid, "小朋友": GroupKid,
	"怀孕": GroupPregnant, "孕妈": GroupPregnant,
	"长辈": GroupElderly, "老年人": GroupElderly, "老年": GroupElderly,
}

// NormalizeGroup 將人群詞正規化為標準標籤
func NormalizeGroup(group string) string {
	group = strings.TrimSpace(group)
	if canonical, ok := groupSynonyms[group]; ok {
		return canonical
	}
	return group
}

// NormalizeGroups 批次正規化並去重
func NormalizeGroups(groups []string) []string {
	seen := make(map[string]struct{}, len(groups))
	var out []string
	for _, g := range groups {
		norm := NormalizeGroup(g)
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// MenuItem 菜單條目：菜名加推薦理由
type MenuItem struct {
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Menu 推薦菜單。構成數量僅在生成時成立，替換單品後不重新驗證。
type Menu struct {
	Items          []MenuItem `json:"items"`
	MainCount      int        `json:"main_count"`
	VegetableCount int        `json:"vegetable_count"`
	SoupCount      int        `json:"soup_count"`
}

// Contains 檢查菜單是否已包含指定菜名
func (m *Menu) Contains(name string) bool {
	for _, item := range m.Items {
		if item.Name == name {
			return true
		}
	}
	return false
}

// CandidateBuckets 依菜色角色分桶的候選集合
type CandidateBuckets struct {
	Mains      []EnrichedRecord `json:"mains"`
	Vegetables []EnrichedRecord `json:"vegetables"`
	Soups      []EnrichedRecord `json:"soups"`
}

// Find 在三個桶中查找指定菜名
func (b *CandidateBuckets) Find(name string) (*EnrichedRecord, bool) {
	for i := range b.Mains {
		if b.Mains[i].Name == name {
			return &b.Mains[i], true
		}
	}
	for i := range b.Vegetables {
		if b.Vegetables[i].Name == name {
			return &b.Vegetables[i], true
		}
	}
	for i := range b.Soups {
		if b.Soups[i].Name == name {
			return &b.Soups[i], true
		}
	}
	return nil, false
}

// Total 三桶候選總數
func (b *CandidateBuckets) Total() int {
	return len(b.Mains) + len(b.Vegetables) + len(b.Soups)
}
