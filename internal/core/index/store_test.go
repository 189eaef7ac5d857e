package index

import (
	"context"
	"testing"

	"cooking-agent/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enrichedRecord(name string, category common.Category, difficulty int, taste ...string) common.EnrichedRecord {
	return common.EnrichedRecord{
		RawRecord: common.RawRecord{
			Name:        name,
			Category:    category,
			Fingerprint: "fp-" + name,
			Sections: map[string]string{
				common.SectionIngredients: "- 主料 适量",
			},
		},
		Difficulty: difficulty,
		Tags: common.TagSet{
			Taste:        taste,
			CookingStyle: []string{"炒"},
			Season:       common.AllSeasons,
			Suitability:  []string{},
		},
	}
}

func TestBuildCoverageAndOrder(t *testing.T) {
	enriched := []common.EnrichedRecord{
		enrichedRecord("红烧肉", common.CategoryMeat, 3, "咸鲜"),
		enrichedRecord("清炒时蔬", common.CategoryVegetable, 1, "清淡"),
		enrichedRecord("番茄蛋汤", common.CategorySoup, 1, "酸"),
	}

	result := Build(enriched)

	// 索引順序與輸入一致，且每筆都能在資料表找到
	require.Len(t, result.Index, 3)
	assert.Equal(t, "红烧肉", result.Index[0].Name)
	assert.Equal(t, "清炒时蔬", result.Index[1].Name)
	assert.Equal(t, "番茄蛋汤", result.Index[2].Name)
	for _, entry := range result.Index {
		record, ok := result.DataTable[entry.Name]
		require.True(t, ok)
		assert.Equal(t, entry.Category, record.Category)
		assert.Equal(t, entry.Difficulty, record.Difficulty)
	}
}

func TestBuildDuplicateLastWriteWins(t *testing.T) {
	first := enrichedRecord("红烧肉", common.CategoryMeat, 2, "咸鲜")
	second := enrichedRecord("红烧肉", common.CategoryMeat, 4, "甜")

	result := Build([]common.EnrichedRecord{first, second})

	// 索引保留兩條，資料表後寫覆蓋
	assert.Len(t, result.Index, 2)
	assert.Equal(t, 4, result.DataTable["红烧肉"].Difficulty)
	assert.Equal(t, []string{"甜"}, result.DataTable["红烧肉"].Tags.Taste)
}

func TestBuildStatistics(t *testing.T) {
	enriched := []common.EnrichedRecord{
		enrichedRecord("红烧肉", common.CategoryMeat, 3, "咸鲜", "甜"),
		enrichedRecord("辣子鸡", common.CategoryMeat, 3, "辣"),
		enrichedRecord("清炒时蔬", common.CategoryVegetable, 1, "清淡"),
	}

	stats := Build(enriched).Stats

	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.ByCategory[string(common.CategoryMeat)])
	assert.Equal(t, 1, stats.ByCategory[string(common.CategoryVegetable)])
	assert.Equal(t, 2, stats.ByDifficulty["3"])
	assert.Equal(t, 1, stats.ByDifficulty["1"])
	assert.Equal(t, 1, stats.ByTaste["咸鲜"])
	assert.Equal(t, 1, stats.ByTaste["甜"])
	assert.Equal(t, 1, stats.ByTaste["辣"])
	assert.Equal(t, 3, stats.ByCookingStyle["炒"])
	assert.Equal(t, 3, stats.BySeason["春"])
	assert.NotEmpty(t, stats.GeneratedAt)
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())
	ctx := context.Background()

	// 產物缺失 → NOT_FOUND
	_, _, err := store.Load(ctx)
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))
	_, err = store.LoadStats(ctx)
	assert.True(t, common.IsNotFound(err))

	result := Build([]common.EnrichedRecord{
		enrichedRecord("红烧肉", common.CategoryMeat, 3, "咸鲜"),
		enrichedRecord("清炒时蔬", common.CategoryVegetable, 1, "清淡"),
	})
	require.NoError(t, store.Save(ctx, result))

	index, table, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, index, 2)
	assert.Len(t, table, 2)
	assert.Equal(t, result.Index[0].Name, index[0].Name)
	assert.Equal(t, 3, table["红烧肉"].Difficulty)

	stats, err := store.LoadStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}
