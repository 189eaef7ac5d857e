package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"cooking-agent/internal/pkg/common"

	"go.uber.org/zap"
)

// Store 富集結果存儲：菜名 → 上一次的富集記錄（含指紋）。
// Load 找不到既有存檔時返回 NOT_FOUND，調用方視為全新狀態，不是錯誤。
type Store interface {
	Load(ctx context.Context) (map[string]common.EnrichedRecord, error)
	Save(ctx context.Context, records map[string]common.EnrichedRecord) error
}

// 編譯期介面檢查
var (
	_ Store = (*FileStore)(nil)
)

const fileStoreName = "enriched_cache.json"

// FileStore 以單一 JSON 檔保存富集結果（預設後端）
type FileStore struct {
	dir string
}

// NewFileStore 創建文件存儲
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

// Load 讀取既有富集結果
func (s *FileStore) Load(ctx context.Context) (map[string]common.EnrichedRecord, error) {
	path := filepath.Join(s.dir, fileStoreName)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.NewNotFoundError("富集快取不存在", err)
		}
		return nil, fmt.Errorf("failed to read enrichment cache: %w", err)
	}

	var records map[string]common.EnrichedRecord
	if err := common.ParseJSONBytes(data, &records); err != nil {
		return nil, common.NewDataIntegrityError("富集快取損壞", err)
	}

	common.LogInfo("已載入富集快取",
		zap.Int("記錄數", len(records)),
		zap.String("路徑", path),
	)
	return records, nil
}

// Save 寫入富集結果
func (s *FileStore) Save(ctx context.Context, records map[string]common.EnrichedRecord) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal enrichment cache: %w", err)
	}

	path := filepath.Join(s.dir, fileStoreName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write enrichment cache: %w", err)
	}

	common.LogInfo("已保存富集快取",
		zap.Int("記錄數", len(records)),
		zap.String("路徑", path),
	)
	return nil
}
