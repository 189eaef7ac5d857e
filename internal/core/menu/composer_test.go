package menu

import (
	"context"
	"errors"
	"testing"

	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient 生成服務替身
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

func newComposer(client *fakeClient) *Composer {
	return NewComposer(&config.Config{
		Menu: config.MenuConfig{CandidateCap: 15},
	}, client)
}

func record(name string, category common.Category, difficulty int, taste []string, suitability []string, ingredients string) common.EnrichedRecord {
	return common.EnrichedRecord{
		RawRecord: common.RawRecord{
			Name:     name,
			Category: category,
			Sections: map[string]string{
				common.SectionIngredients: ingredients,
			},
		},
		Difficulty: difficulty,
		Tags: common.TagSet{
			Taste:        taste,
			CookingStyle: []string{"炒"},
			Season:       common.AllSeasons,
			Suitability:  suitability,
		},
	}
}

func testBuckets() common.CandidateBuckets {
	return common.CandidateBuckets{
		Mains: []common.EnrichedRecord{
			record("宫保鸡丁", common.CategoryMeat, 3, []string{"辣"}, nil, "- 鸡胸肉"),
			record("红烧肉", common.CategoryMeat, 3, []string{"咸鲜"}, nil, "- 五花肉"),
			record("清蒸鲈鱼", common.CategoryAquatic, 2, []string{"清淡"}, nil, "- 鲈鱼"),
		},
		Vegetables: []common.EnrichedRecord{
			record("清炒时蔬", common.CategoryVegetable, 1, []string{"清淡"}, nil, "- 应季蔬菜"),
			record("香菜拌豆腐", common.CategoryVegetable, 1, []string{"清淡"}, nil, "- 豆腐\n- 香菜"),
		},
		Soups: []common.EnrichedRecord{
			record("番茄蛋汤", common.CategorySoup, 1, []string{"酸"}, nil, "- 番茄"),
		},
	}
}

func TestCompositionFor(t *testing.T) {
	tests := []struct {
		people   int
		wantMain int
		wantVeg  int
		wantSoup int
	}{
		{0, 2, 1, 0}, // 缺省按 2 人計
		{1, 1, 1, 0},
		{2, 2, 1, 0},
		{3, 2, 2, 0},
		{4, 3, 2, 0},
		{5, 3, 3, 1},
		{6, 4, 3, 1},
	}

	for _, tt := range tests {
		mainCount, vegCount, soupCount := CompositionFor(tt.people)
		assert.Equal(t, tt.wantMain, mainCount, "people=%d main", tt.people)
		assert.Equal(t, tt.wantVeg, vegCount, "people=%d veg", tt.people)
		assert.Equal(t, tt.wantSoup, soupCount, "people=%d soup", tt.people)
	}
}

func TestComposeAcceptsValidResponse(t *testing.T) {
	client := &fakeClient{response: `{"menu":[
		{"name":"宫保鸡丁","reason":"下饭"},
		{"name":"红烧肉","reason":"经典"},
		{"name":"清炒时蔬","reason":"解腻"},
		{"name":"香菜拌豆腐","reason":"清爽"}]}`}
	composer := newComposer(client)

	// 3 人 → 2 葷 2 素 0 湯
	menu := composer.Compose(context.Background(), common.Preferences{PeopleCount: 3}, testBuckets())
	require.Len(t, menu.Items, 4)
	assert.Equal(t, 2, menu.MainCount)
	assert.Equal(t, 2, menu.VegetableCount)
	assert.Equal(t, 0, menu.SoupCount)
	assert.Equal(t, "宫保鸡丁", menu.Items[0].Name)
}

func TestComposeDropsUnknownNames(t *testing.T) {
	client := &fakeClient{response: `{"menu":[
		{"name":"宫保鸡丁","reason":"下饭"},
		{"name":"凭空捏造的菜","reason":"不存在"},
		{"name":"红烧肉","reason":"经典"},
		{"name":"清炒时蔬","reason":"解腻"}]}`}
	composer := newComposer(client)

	menu := composer.Compose(context.Background(), common.Preferences{PeopleCount: 3}, testBuckets())

	// 未知菜名被丟棄，剩 3 項 = required-1，仍然採納
	require.Len(t, menu.Items, 3)
	assert.False(t, menu.Contains("凭空捏造的菜"))
}

func TestComposeFallsBackWhenTooFewValid(t *testing.T) {
	client := &fakeClient{response: `{"menu":[
		{"name":"宫保鸡丁","reason":"下饭"},
		{"name":"假菜一","reason":"x"},
		{"name":"假菜二","reason":"y"}]}`}
	composer := newComposer(client)

	// 有效項 1 < required-1=3 → 整份丟棄，貪心回退：6 人 → 4 葷 3 素 1 湯
	buckets := testBuckets()
	menu := composer.Compose(context.Background(), common.Preferences{PeopleCount: 6}, buckets)

	// 回退只能取桶內候選：葷菜桶只有 3 個
	require.Len(t, menu.Items, 6)
	for _, item := range menu.Items {
		_, ok := buckets.Find(item.Name)
		assert.True(t, ok, "回退菜單只能來自候選桶：%s", item.Name)
		assert.NotEmpty(t, item.Reason)
	}
}

func TestComposeFallsBackOnClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("service unavailable")}
	composer := newComposer(client)

	menu := composer.Compose(context.Background(), common.Preferences{PeopleCount: 2}, testBuckets())

	// 2 人 → 2 葷 1 素：確定性按桶序取前 N
	require.Len(t, menu.Items, 3)
	assert.Equal(t, "宫保鸡丁", menu.Items[0].Name)
	assert.Equal(t, "红烧肉", menu.Items[1].Name)
	assert.Equal(t, "清炒时蔬", menu.Items[2].Name)
}

func TestReplaceScoringOrder(t *testing.T) {
	composer := newComposer(&fakeClient{})

	prefs := common.Preferences{
		TastePreferences:     []string{"辣"},
		IngredientExclusions: []string{"香菜"},
		SpecialGroup:         []string{common.GroupKid},
	}
	current := common.Menu{Items: []common.MenuItem{{Name: "水煮鱼"}, {Name: "清炒时蔬"}}}

	buckets := common.CandidateBuckets{
		Mains: []common.EnrichedRecord{
			record("水煮鱼", common.CategoryAquatic, 4, []string{"辣"}, nil, "- 草鱼"),
			record("香菜炒牛肉", common.CategoryMeat, 3, []string{"辣"}, nil, "- 牛肉\n- 香菜"),
			record("辣子鸡", common.CategoryMeat, 3, []string{"辣"}, nil, "- 鸡腿肉"),
			record("麻婆豆腐", common.CategoryMeat, 2, []string{"辣"}, []string{common.TagKidFriendly}, "- 豆腐"),
			record("白切鸡", common.CategoryMeat, 2, []string{"清淡"}, nil, "- 鸡"),
		},
	}

	alts := composer.Replace("水煮鱼", prefs, current, buckets, RoleMain)

	// 被換菜品與當前菜單成員都不出現
	for _, alt := range alts {
		assert.NotEqual(t, "水煮鱼", alt.Record.Name)
	}

	// 麻婆豆腐：辣 +2、兒童友好 +1 = 3
	// 辣子鸡：辣 +2 = 2
	// 白切鸡：0
	// 香菜炒牛肉：辣 +2、香菜 -5 = -3
	require.Len(t, alts, 4)
	assert.Equal(t, "麻婆豆腐", alts[0].Record.Name)
	assert.Equal(t, 3, alts[0].Score)
	assert.Equal(t, "辣子鸡", alts[1].Record.Name)
	assert.Equal(t, "白切鸡", alts[2].Record.Name)
	assert.Equal(t, "香菜炒牛肉", alts[3].Record.Name)
}

func TestReplaceTieBreaksByDifficulty(t *testing.T) {
	composer := newComposer(&fakeClient{})

	buckets := common.CandidateBuckets{
		Mains: []common.EnrichedRecord{
			record("红烧肉", common.CategoryMeat, 3, []string{"咸鲜"}, nil, "- 五花肉"),
			record("难做的菜", common.CategoryMeat, 5, []string{"咸鲜"}, nil, "- 某食材"),
			record("好做的菜", common.CategoryMeat, 1, []string{"咸鲜"}, nil, "- 某食材"),
		},
	}

	alts := composer.Replace("红烧肉", common.Preferences{}, common.Menu{}, buckets, RoleMain)

	// 同分按難度升序
	require.Len(t, alts, 2)
	assert.Equal(t, "好做的菜", alts[0].Record.Name)
	assert.Equal(t, "难做的菜", alts[1].Record.Name)
}

func TestRoleOf(t *testing.T) {
	meat := record("红烧肉", common.CategoryMeat, 3, nil, nil, "")
	veg := record("清炒时蔬", common.CategoryVegetable, 1, nil, nil, "")
	soup := record("番茄蛋汤", common.CategorySoup, 1, nil, nil, "")

	assert.Equal(t, RoleMain, RoleOf(&meat))
	assert.Equal(t, RoleVegetable, RoleOf(&veg))
	assert.Equal(t, RoleSoup, RoleOf(&soup))
}
