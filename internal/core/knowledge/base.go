package knowledge

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"cooking-agent/internal/core/index"
	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// Base 知識庫：衍生產物之上的唯讀查詢層。
// 載入在進程生命週期內最多發生一次，之後的 Initialize 都是 no-op；
// 進程內沒有失效/重載路徑，要刷新只能重啟。
type Base struct {
	store *index.Store

	once    sync.Once
	loadErr error

	index []common.IndexEntry
	table map[string]common.EnrichedRecord
	stats common.Statistics
}

// New 創建知識庫
func New(store *index.Store) *Base {
	return &Base{store: store}
}

// Initialize 載入索引與資料表，冪等。
// 產物缺失時返回 NOT_FOUND 給調用方決策，不會默默給出空知識庫。
func (b *Base) Initialize(ctx context.Context) error {
	b.once.Do(func() {
		idx, table, err := b.store.Load(ctx)
		if err != nil {
			b.loadErr = err
			common.LogError("知識庫載入失敗",
				zap.Error(err),
			)
			return
		}
		b.index = idx
		b.table = table

		if stats, err := b.store.LoadStats(ctx); err != nil {
			// 統計缺失只降級不阻斷查詢
			common.LogWarn("統計產物缺失，查詢功能不受影響", zap.Error(err))
		} else {
			b.stats = stats
		}

		common.LogInfo("知識庫已載入",
			zap.Int("索引條目", len(b.index)),
			zap.Int("資料表條目", len(b.table)),
		)
	})
	return b.loadErr
}

// Ready 知識庫是否已成功載入
func (b *Base) Ready() bool {
	return b.loadErr == nil && b.table != nil
}

// Stats 返回載入時的聚合統計
func (b *Base) Stats() common.Statistics {
	return b.stats
}

// groupTagMap 特殊人群 → 對應的安全標籤
var groupTagMap = map[string]string{
	common.GroupKid:      common.TagKidFriendly,
	common.GroupPregnant: common.TagPregnancySafe,
	common.GroupElderly:  common.TagElderlySuited,
}

// Search 依偏好做多階段、順序敏感的檢索：
//  1. 全量索引起步；
//  2. 口味軟過濾：交集非空才取子集，否則保留全集（軟過濾降級）；
//  3. 特殊人群穩定排序：只排序不過濾；
//  4. 忌口硬過濾：大小寫不敏感的子串匹配，允許清空結果；
//  5. 倖存條目映射回完整記錄。
func (b *Base) Search(prefs common.Preferences) []common.EnrichedRecord {
	working := make([]common.IndexEntry, len(b.index))
	copy(working, b.index)

	// 口味軟過濾
	if len(prefs.TastePreferences) > 0 {
		var matched []common.IndexEntry
		for _, entry := range working {
			if intersects(entry.Tags.Taste, prefs.TastePreferences) {
				matched = append(matched, entry)
			}
		}
		// 交集為空時保留全集：口味偏好不可以把結果清零
		if len(matched) > 0 {
			working = matched
		} else {
			common.LogDebug("口味偏好無匹配，保留全量候選",
				zap.Strings("口味", prefs.TastePreferences),
			)
		}
	}

	// 特殊人群：穩定排序，從不過濾
	if len(prefs.SpecialGroup) > 0 {
		sort.SliceStable(working, func(i, j int) bool {
			return suitabilityScore(prefs.SpecialGroup, working[i].Tags.Suitability) >
				suitabilityScore(prefs.SpecialGroup, working[j].Tags.Suitability)
		})
	}

	// 忌口硬過濾，最後執行，無降級
	if len(prefs.IngredientExclusions) > 0 {
		var kept []common.IndexEntry
		for _, entry := range working {
			record, ok := b.table[entry.Name]
			if !ok {
				continue
			}
			ingredients := strings.ToLower(record.Section(common.SectionIngredients))
			excluded := false
			for _, ex := range prefs.IngredientExclusions {
				if ex == "" {
					continue
				}
				if strings.Contains(ingredients, strings.ToLower(ex)) {
					excluded = true
					break
				}
			}
			if !excluded {
				kept = append(kept, entry)
			}
		}
		working = kept
	}

	// 映射回完整記錄
	out := make([]common.EnrichedRecord, 0, len(working))
	for _, entry := range working {
		record, ok := b.table[entry.Name]
		if !ok {
			common.LogWarn("索引條目在資料表中缺失",
				zap.String("菜名", entry.Name),
			)
			continue
		}
		out = append(out, record)
	}
	return out
}

// suitabilityScore 每個匹配到對應安全標籤的人群 +2，不匹配計 0
func suitabilityScore(groups []string, suitability []string) int {
	score := 0
	for _, g := range groups {
		if tag, ok := groupTagMap[g]; ok && common.HasTag(suitability, tag) {
			score += 2
		}
	}
	return score
}

// RecommendCandidates 將檢索結果按菜色角色分成三個互斥桶。
// 不屬於葷菜/素菜/湯羹任何一桶的分類不可作為獨立菜單項。
func (b *Base) RecommendCandidates(prefs common.Preferences) common.CandidateBuckets {
	var buckets common.CandidateBuckets
	for _, record := range b.Search(prefs) {
		switch {
		case record.Category.IsProtein():
			buckets.Mains = append(buckets.Mains, record)
		case record.Category == common.CategoryVegetable:
			buckets.Vegetables = append(buckets.Vegetables, record)
		case record.Category == common.CategorySoup:
			buckets.Soups = append(buckets.Soups, record)
		}
	}
	return buckets
}

// GetByName 按菜名查找完整記錄
func (b *Base) GetByName(name string) (common.EnrichedRecord, error) {
	record, ok := b.table[name]
	if !ok {
		return common.EnrichedRecord{}, common.NewNotFoundError(fmt.Sprintf("菜谱 %s 不存在", name), nil)
	}
	return record, nil
}

// GetByCategory 按分類直接投影，無評分
func (b *Base) GetByCategory(category common.Category) []common.EnrichedRecord {
	var out []common.EnrichedRecord
	for _, entry := range b.index {
		if entry.Category != category {
			continue
		}
		if record, ok := b.table[entry.Name]; ok {
			out = append(out, record)
		}
	}
	return out
}

// GetByMaxDifficulty 按難度上限直接投影，無評分
func (b *Base) GetByMaxDifficulty(max int) []common.EnrichedRecord {
	var out []common.EnrichedRecord
	for _, entry := range b.index {
		if entry.Difficulty > max {
			continue
		}
		if record, ok := b.table[entry.Name]; ok {
			out = append(out, record)
		}
	}
	return out
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
