package enrich

import (
	"context"
	"errors"
	"testing"
	"time"

	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient 計數版生成服務替身
type fakeClient struct {
	calls    int
	response string
	err      error
}

func (f *fakeClient) Generate(ctx context.Context, system, prompt string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Pipeline: config.PipelineConfig{
			BatchSize:      100,
			BatchDelay:     0,
			PromptMaxChars: 2000,
		},
	}
}

func rawRecord(name string, category common.Category, steps string) common.RawRecord {
	record := common.RawRecord{
		Name:     name,
		Category: category,
		Sections: map[string]string{
			common.SectionSteps:       steps,
			common.SectionIngredients: "- 主料 适量",
		},
	}
	record.Fingerprint = Fingerprint(name + steps)
	return record
}

func TestEnrichIncrementalReusesUnchanged(t *testing.T) {
	client := &fakeClient{response: `{"taste":["辣"],"cooking_style":["炒"],"season":["夏"],"suitability":[]}`}
	enricher := NewEnricher(testConfig(), client)

	raw := []common.RawRecord{
		rawRecord("宫保鸡丁", common.CategoryMeat, "腌制鸡丁后下锅爆炒"),
		rawRecord("清炒时蔬", common.CategoryVegetable, "大火快炒两分钟出锅"),
	}

	// 第一輪：全部走外部服務
	first, stats := enricher.EnrichIncremental(context.Background(), raw, nil)
	require.Len(t, first, 2)
	assert.Equal(t, 2, stats.Called)
	assert.Equal(t, 0, stats.Reused)
	assert.Equal(t, 2, client.calls)

	previous := map[string]common.EnrichedRecord{
		first[0].Name: first[0],
		first[1].Name: first[1],
	}

	// 第二輪指紋全部未變：零外部調用
	client.calls = 0
	second, stats := enricher.EnrichIncremental(context.Background(), raw, previous)
	require.Len(t, second, 2)
	assert.Equal(t, 0, client.calls)
	assert.Equal(t, 2, stats.Reused)
	assert.Equal(t, 0, stats.Called)
	assert.Equal(t, first[0].EnrichedAt, second[0].EnrichedAt)
}

func TestEnrichIncrementalReprocessesChanged(t *testing.T) {
	client := &fakeClient{response: `{"taste":["清淡"],"cooking_style":["蒸"],"season":[],"suitability":["儿童友好"]}`}
	enricher := NewEnricher(testConfig(), client)

	original := rawRecord("清蒸鲈鱼", common.CategoryAquatic, "大火蒸八分钟")
	first, _ := enricher.EnrichIncremental(context.Background(), []common.RawRecord{original}, nil)

	previous := map[string]common.EnrichedRecord{first[0].Name: first[0]}

	// 改動步驟文字 → 指紋變化 → 重新富集
	changed := rawRecord("清蒸鲈鱼", common.CategoryAquatic, "大火蒸十分钟再淋热油")
	client.calls = 0
	out, stats := enricher.EnrichIncremental(context.Background(), []common.RawRecord{changed}, previous)
	require.Len(t, out, 1)
	assert.Equal(t, 1, client.calls)
	assert.Equal(t, 1, stats.Called)
	assert.Equal(t, changed.Fingerprint, out[0].Fingerprint)
}

func TestEnrichIncrementalFallsBackOnFailure(t *testing.T) {
	client := &fakeClient{err: errors.New("service unavailable")}
	enricher := NewEnricher(testConfig(), client)

	raw := []common.RawRecord{rawRecord("麻婆豆腐", common.CategoryVegetable, "豆瓣酱炒香后加辣椒焖豆腐")}
	out, stats := enricher.EnrichIncremental(context.Background(), raw, nil)

	require.Len(t, out, 1)
	assert.Equal(t, 1, stats.Fallbacks)

	// 回退標註仍然完整：四個維度都有值或明確預設
	tags := out[0].Tags
	assert.NotEmpty(t, tags.Taste)
	assert.NotEmpty(t, tags.CookingStyle)
	assert.Equal(t, common.AllSeasons, tags.Season)
	assert.NotNil(t, tags.Suitability)
	assert.GreaterOrEqual(t, out[0].Difficulty, 1)
	assert.LessOrEqual(t, out[0].Difficulty, 5)
}

func TestFallbackTags(t *testing.T) {
	tests := []struct {
		name            string
		record          common.RawRecord
		wantTaste       []string
		wantStyle       []string
		wantSuitability []string
	}{
		{
			name:            "辣味菜不給安全標籤",
			record:          rawRecord("辣子鸡", common.CategoryMeat, "辣椒炒至酥脆"),
			wantTaste:       []string{"辣"},
			wantStyle:       []string{"炒"},
			wantSuitability: []string{},
		},
		{
			name:            "白灼命中清淡並按分類兜底方式",
			record:          rawRecord("白灼菜心", common.CategoryVegetable, "白灼后装盘"),
			wantTaste:       []string{"清淡"},
			wantStyle:       []string{"炒"},
			wantSuitability: []string{common.TagKidFriendly, common.TagPregnancySafe},
		},
		{
			name:            "含酒類不給安全標籤",
			record:          rawRecord("醉鸡", common.CategoryMeat, "用花雕酒浸泡一夜"),
			wantTaste:       []string{common.DefaultTaste},
			wantStyle:       []string{"炒"},
			wantSuitability: []string{},
		},
		{
			name:            "湯羹分類兜底為燉",
			record:          rawRecord("番茄蛋汤", common.CategorySoup, "水开后淋入蛋液"),
			wantTaste:       []string{"酸"},
			wantStyle:       []string{"炖"},
			wantSuitability: []string{common.TagKidFriendly, common.TagPregnancySafe},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := FallbackTags(tt.record)
			assert.Equal(t, tt.wantTaste, tags.Taste)
			assert.Equal(t, tt.wantStyle, tags.CookingStyle)
			assert.Equal(t, common.AllSeasons, tags.Season)
			assert.Equal(t, tt.wantSuitability, tags.Suitability)
		})
	}
}

func TestEnsureTagDefaults(t *testing.T) {
	record := rawRecord("白灼菜心", common.CategoryVegetable, "白灼后装盘")

	// 服務回應缺季節與人群 → 補預設
	got := ensureTagDefaults(record, common.TagSet{
		Taste:        []string{"清淡"},
		CookingStyle: []string{"煮"},
	})
	assert.Equal(t, []string{"清淡"}, got.Taste)
	assert.Equal(t, []string{"煮"}, got.CookingStyle)
	assert.Equal(t, common.AllSeasons, got.Season)
	assert.NotNil(t, got.Suitability)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := NewFileStore(t.TempDir())
	ctx := context.Background()

	// 無存檔 → NOT_FOUND，視為全新狀態
	_, err := store.Load(ctx)
	require.Error(t, err)
	assert.True(t, common.IsNotFound(err))

	records := map[string]common.EnrichedRecord{
		"宫保鸡丁": {
			RawRecord:  rawRecord("宫保鸡丁", common.CategoryMeat, "爆炒"),
			Difficulty: 2,
			Tags: common.TagSet{
				Taste:        []string{"辣"},
				CookingStyle: []string{"炒"},
				Season:       common.AllSeasons,
				Suitability:  []string{},
			},
			EnrichedAt: time.Now().Truncate(time.Second),
		},
	}
	require.NoError(t, store.Save(ctx, records))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, records["宫保鸡丁"].Fingerprint, loaded["宫保鸡丁"].Fingerprint)
	assert.Equal(t, records["宫保鸡丁"].Tags, loaded["宫保鸡丁"].Tags)
}

func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("红烧肉\n先焯水再慢炖")
	b := Fingerprint("红烧肉\n先焯水再慢炖")
	c := Fingerprint("红烧肉\n先焯水再慢炖收汁")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}
