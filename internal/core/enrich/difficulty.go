package enrich

import (
	"math"
	"strings"
)

// 步驟文字切段後，長於此長度才算一個有效步驟
const minStepSegmentLen = 6

// complexMethodKeywords 複雜工序關鍵詞，命中任一即難度 +1
var complexMethodKeywords = []string{
	"腌制", "腌渍", "发酵", "油温", "揉面", "醒发", "勾芡", "收汁", "隔水炖", "吊汤",
}

// EstimateDifficulty 根據步驟與原料文字在本地估算難度，範圍 [1,5]。
// 與外部標籤服務無關：即使富集走了生成服務，難度也一律本地計算。
func EstimateDifficulty(steps, ingredients string) int {
	score := 1.0

	stepCount := countSegments(steps)
	switch {
	case stepCount > 10:
		score += 2
	case stepCount > 5:
		score += 1
	}

	for _, kw := range complexMethodKeywords {
		if strings.Contains(steps, kw) {
			score += 1
			break
		}
	}

	lineCount := countLines(ingredients)
	switch {
	case lineCount > 15:
		score += 1
	case lineCount > 10:
		score += 0.5
	}

	rounded := int(math.Round(score))
	if rounded < 1 {
		rounded = 1
	}
	if rounded > 5 {
		rounded = 5
	}
	return rounded
}

// countSegments 按句讀與換行切分步驟文字，計有效段落數
func countSegments(text string) int {
	segments := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case '\n', '。', '；', ';', '！', '!':
			return true
		}
		return false
	})
	count := 0
	for _, seg := range segments {
		if len([]rune(strings.TrimSpace(seg))) >= minStepSegmentLen {
			count++
		}
	}
	return count
}

// countLines 計原料文字的非空行數
func countLines(text string) int {
	count := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			count++
		}
	}
	return count
}
