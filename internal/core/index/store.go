package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// 衍生產物文件名（UTF-8 JSON）
const (
	IndexFileName = "recipes_index.json"
	DataFileName  = "recipes_data.json"
	StatsFileName = "statistics.json"
)

// BuildResult 一次重建的全部衍生產物
type BuildResult struct {
	Index     []common.IndexEntry
	DataTable map[string]common.EnrichedRecord
	Stats     common.Statistics
}

// Store 衍生產物的構建與持久化
type Store struct {
	dir string
}

// NewStore 創建索引存儲
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Build 從富集結果構建索引、資料表與統計。
// 索引順序 = 輸入順序；統計每次整體重算，不做局部更新。
func Build(enriched []common.EnrichedRecord) BuildResult {
	result := BuildResult{
		Index:     make([]common.IndexEntry, 0, len(enriched)),
		DataTable: make(map[string]common.EnrichedRecord, len(enriched)),
	}

	for i := range enriched {
		record := enriched[i]
		result.Index = append(result.Index, common.IndexEntry{
			Name:       record.Name,
			Category:   record.Category,
			Difficulty: record.Difficulty,
			Tags:       record.Tags,
		})

		// 菜名應唯一；重複時後寫覆蓋並記警告，不視為致命
		if _, exists := result.DataTable[record.Name]; exists {
			common.LogWarn("語料中出現重複菜名，後寫覆蓋",
				zap.String("菜名", record.Name),
				zap.String("來源", record.SourcePath),
			)
		}
		result.DataTable[record.Name] = record
	}

	result.Stats = buildStatistics(enriched)
	return result
}

// buildStatistics 重算聚合統計
func buildStatistics(enriched []common.EnrichedRecord) common.Statistics {
	stats := common.Statistics{
		Total:          len(enriched),
		ByCategory:     make(map[string]int),
		ByDifficulty:   make(map[string]int),
		ByTaste:        make(map[string]int),
		ByCookingStyle: make(map[string]int),
		BySeason:       make(map[string]int),
		BySuitability:  make(map[string]int),
		GeneratedAt:    time.Now().Format(time.RFC3339),
	}

	for i := range enriched {
		record := &enriched[i]
		stats.ByCategory[string(record.Category)]++
		stats.ByDifficulty[strconv.Itoa(record.Difficulty)]++
		for _, t := range record.Tags.Taste {
			stats.ByTaste[t]++
		}
		for _, s := range record.Tags.CookingStyle {
			stats.ByCookingStyle[s]++
		}
		for _, s := range record.Tags.Season {
			stats.BySeason[s]++
		}
		for _, s := range record.Tags.Suitability {
			stats.BySuitability[s]++
		}
	}

	return stats
}

// Save 將三個衍生產物寫入產物目錄
func (s *Store) Save(ctx context.Context, result BuildResult) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact dir: %w", err)
	}

	if err := s.writeJSON(IndexFileName, result.Index); err != nil {
		return err
	}
	if err := s.writeJSON(DataFileName, result.DataTable); err != nil {
		return err
	}
	if err := s.writeJSON(StatsFileName, result.Stats); err != nil {
		return err
	}

	common.LogInfo("衍生產物已保存",
		zap.Int("索引條目", len(result.Index)),
		zap.Int("資料表條目", len(result.DataTable)),
		zap.String("目錄", s.dir),
	)
	return nil
}

// Load 讀取索引與資料表；文件缺失返回 NOT_FOUND，
// 由調用方決定視為全新狀態還是降級信號
func (s *Store) Load(ctx context.Context) ([]common.IndexEntry, map[string]common.EnrichedRecord, error) {
	var index []common.IndexEntry
	if err := s.readJSON(IndexFileName, &index); err != nil {
		return nil, nil, err
	}

	var table map[string]common.EnrichedRecord
	if err := s.readJSON(DataFileName, &table); err != nil {
		return nil, nil, err
	}

	return index, table, nil
}

// LoadStats 讀取統計產物
func (s *Store) LoadStats(ctx context.Context) (common.Statistics, error) {
	var stats common.Statistics
	if err := s.readJSON(StatsFileName, &stats); err != nil {
		return common.Statistics{}, err
	}
	return stats, nil
}

func (s *Store) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// readJSON 嚴格解析自家產物，欄位漂移視為損壞
func (s *Store) readJSON(name string, v interface{}) error {
	path := filepath.Join(s.dir, name)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return common.NewNotFoundError(fmt.Sprintf("衍生產物 %s 不存在", name), err)
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	defer f.Close()

	if err := common.DecodeJSONStrict(f, v); err != nil {
		return common.NewDataIntegrityError(fmt.Sprintf("衍生產物 %s 損壞", name), err)
	}
	return nil
}
