package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "純 JSON 原樣返回",
			raw:  `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "去掉 json 圍欄",
			raw:  "```json\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "去掉無語言標記的圍欄",
			raw:  "```\n{\"a\":1}\n```",
			want: `{"a":1}`,
		},
		{
			name: "截掉前後說明文字",
			raw:  "好的，结果如下：{\"a\":1} 以上。",
			want: `{"a":1}`,
		},
		{
			name: "取第一個左括號到最後一個右括號",
			raw:  `前缀 {"a":{"b":2}} 后缀`,
			want: `{"a":{"b":2}}`,
		},
		{
			name: "無大括號時原樣返回",
			raw:  "没有结构化内容",
			want: "没有结构化内容",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.raw))
		})
	}
}

func TestParseGeneratedJSON(t *testing.T) {
	var out struct {
		Taste []string `json:"taste"`
	}
	raw := "```json\n{\"taste\":[\"辣\",\"咸鲜\"]}\n```"
	require.NoError(t, ParseGeneratedJSON(raw, &out))
	assert.Equal(t, []string{"辣", "咸鲜"}, out.Taste)

	err := ParseGeneratedJSON("不是 JSON", &out)
	assert.Error(t, err)
}

func TestQuoteJSONKeys(t *testing.T) {
	assert.Equal(t, `{"a":1,"b":2}`, QuoteJSONKeys(`{a:1,b:2}`))
	assert.Equal(t, `{"a":1}`, QuoteJSONKeys(`{"a":1}`))
}

func TestDecodeJSONStrictRejectsUnknownFields(t *testing.T) {
	var out struct {
		Name string `json:"name"`
	}
	require.NoError(t, DecodeJSONStrict(strings.NewReader(`{"name":"红烧肉"}`), &out))
	assert.Equal(t, "红烧肉", out.Name)

	err := DecodeJSONStrict(strings.NewReader(`{"name":"红烧肉","extra":1}`), &out)
	assert.Error(t, err)

	// 寬鬆版容忍未知欄位
	require.NoError(t, DecodeJSON(strings.NewReader(`{"name":"红烧肉","extra":1}`), &out))
}

func TestToJSON(t *testing.T) {
	got, err := ToJSON(map[string]int{"total": 7})
	require.NoError(t, err)
	assert.JSONEq(t, `{"total":7}`, got)
}

func TestStringSliceToString(t *testing.T) {
	assert.Equal(t, "辣、甜", StringSliceToString([]string{"辣", "甜"}))
	assert.Equal(t, "", StringSliceToString(nil))
}
