package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreferencesMerge(t *testing.T) {
	tests := []struct {
		name  string
		base  Preferences
		newer Preferences
		want  Preferences
	}{
		{
			name:  "非空欄位覆蓋",
			base:  Preferences{PeopleCount: 3, TastePreferences: []string{"辣"}},
			newer: Preferences{PeopleCount: 5},
			want:  Preferences{PeopleCount: 5, TastePreferences: []string{"辣"}},
		},
		{
			name:  "空欄位保留原值",
			base:  Preferences{PeopleCount: 3, IngredientExclusions: []string{"香菜"}},
			newer: Preferences{TastePreferences: []string{"清淡"}},
			want: Preferences{
				PeopleCount:          3,
				TastePreferences:     []string{"清淡"},
				IngredientExclusions: []string{"香菜"},
			},
		},
		{
			name:  "全空不動原值",
			base:  Preferences{PeopleCount: 2, SpecialGroup: []string{GroupKid}},
			newer: Preferences{},
			want:  Preferences{PeopleCount: 2, SpecialGroup: []string{GroupKid}},
		},
		{
			name:  "時間上限覆蓋",
			base:  Preferences{PeopleCount: 2, MaxCookingTimeMinutes: 60},
			newer: Preferences{MaxCookingTimeMinutes: 30},
			want:  Preferences{PeopleCount: 2, MaxCookingTimeMinutes: 30},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base
			got.Merge(tt.newer)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPreferencesIsEmpty(t *testing.T) {
	assert.True(t, (&Preferences{}).IsEmpty())
	assert.False(t, (&Preferences{PeopleCount: 1}).IsEmpty())
	assert.False(t, (&Preferences{SpecialGroup: []string{GroupElderly}}).IsEmpty())
}

func TestNormalizeTastes(t *testing.T) {
	got := NormalizeTastes([]string{"麻辣", "香辣", "清爽", "咸香", "甜"})
	assert.Equal(t, []string{"辣", "清淡", "咸鲜", "甜"}, got)

	// 未知口味原樣保留
	assert.Equal(t, []string{"苦"}, NormalizeTastes([]string{"苦"}))
	assert.Nil(t, NormalizeTastes(nil))
}

func TestNormalizeGroups(t *testing.T) {
	got := NormalizeGroups([]string{"小孩", "宝宝", "怀孕", "长辈"})
	assert.Equal(t, []string{GroupKid, GroupPregnant, GroupElderly}, got)
}

func TestCategoryIsProtein(t *testing.T) {
	assert.True(t, CategoryMeat.IsProtein())
	assert.True(t, CategoryAquatic.IsProtein())
	assert.False(t, CategoryVegetable.IsProtein())
	assert.False(t, CategorySoup.IsProtein())
	assert.False(t, CategoryStaple.IsProtein())
}

func TestMenuContains(t *testing.T) {
	m := Menu{Items: []MenuItem{{Name: "红烧肉"}, {Name: "清炒时蔬"}}}
	assert.True(t, m.Contains("红烧肉"))
	assert.False(t, m.Contains("糖醋排骨"))
}

func TestRawRecordSection(t *testing.T) {
	r := RawRecord{Sections: map[string]string{SectionSteps: "焯水后红烧"}}
	assert.Equal(t, "焯水后红烧", r.Section(SectionSteps))
	assert.Equal(t, "", r.Section(SectionDescription))

	var empty RawRecord
	assert.Equal(t, "", empty.Section(SectionSteps))
}
