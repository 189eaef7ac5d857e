package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/core/enrich"
	"cooking-agent/internal/core/index"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// 載入 .env
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	// 載入設定
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// Ctrl-C 取消整批富集，不留半套產物
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		common.LogError("語料同步失敗", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	raw, err := loadRawRecords(cfg.Data.RawRecordsPath)
	if err != nil {
		return fmt.Errorf("failed to load raw records: %w", err)
	}
	common.LogInfo("原始記錄已載入",
		zap.String("路徑", cfg.Data.RawRecordsPath),
		zap.Int("筆數", len(raw)),
	)

	// 富集快取後端：預設檔案，redis 可選
	store, closeStore, err := newEnrichStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open enrichment cache: %w", err)
	}
	defer closeStore()

	// 上一次的富集結果；缺失視為全新狀態
	previous, err := store.Load(ctx)
	if err != nil {
		if !common.IsNotFound(err) {
			return fmt.Errorf("failed to load previous enrichment: %w", err)
		}
		common.LogInfo("無既有富集結果，全量富集")
		previous = nil
	}

	enricher := enrich.NewEnricher(cfg, ai.NewClient(cfg))
	enriched, stats := enricher.EnrichIncremental(ctx, raw, previous)
	if ctx.Err() != nil {
		return ctx.Err()
	}

	// 持久化富集結果供下一次增量使用
	table := make(map[string]common.EnrichedRecord, len(enriched))
	for _, record := range enriched {
		table[record.Name] = record
	}
	if err := store.Save(ctx, table); err != nil {
		return fmt.Errorf("failed to save enrichment cache: %w", err)
	}

	// 重建並落盤索引/資料表/統計
	result := index.Build(enriched)
	indexStore := index.NewStore(cfg.Data.ArtifactDir)
	if err := indexStore.Save(ctx, result); err != nil {
		return fmt.Errorf("failed to save artifacts: %w", err)
	}
	if statsJSON, err := common.ToJSON(result.Stats); err == nil {
		common.LogDebug("統計摘要", zap.String("statistics", statsJSON))
	}

	common.LogInfo("語料同步完成",
		zap.String("產物目錄", cfg.Data.ArtifactDir),
		zap.Int("總數", stats.Total),
		zap.Int("沿用", stats.Reused),
		zap.Int("外部調用", stats.Called),
		zap.Int("回退", stats.Fallbacks),
	)
	return nil
}

// loadRawRecords 讀取外部解析器產生的原始記錄 JSON；
// 缺指紋的記錄以段落內容現算，保證指紋欄位總是可比較
func loadRawRecords(path string) ([]common.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var raw []common.RawRecord
	if err := common.DecodeJSON(f, &raw); err != nil {
		return nil, fmt.Errorf("invalid raw records json: %w", err)
	}

	for i := range raw {
		if raw[i].Fingerprint == "" {
			raw[i].Fingerprint = enrich.Fingerprint(recordSourceText(&raw[i]))
		}
	}
	return raw, nil
}

// recordSourceText 以固定段落順序拼出指紋輸入，與段落在 map 中的順序無關
func recordSourceText(record *common.RawRecord) string {
	keys := []string{
		common.SectionDescription,
		common.SectionIngredients,
		common.SectionQuantities,
		common.SectionSteps,
		common.SectionExtras,
	}
	parts := []string{record.Name}
	for _, key := range keys {
		parts = append(parts, record.Section(key))
	}
	return strings.Join(parts, "\n")
}

// newEnrichStore 依設定選擇富集快取後端
func newEnrichStore(cfg *config.Config) (enrich.Store, func(), error) {
	if cfg.Cache.Enabled && cfg.Cache.Backend == "redis" {
		redisStore, err := enrich.NewRedisStore(cfg.Cache.RedisAddr, cfg.Cache.TTL)
		if err != nil {
			return nil, nil, err
		}
		return redisStore, func() { redisStore.Close() }, nil
	}
	return enrich.NewFileStore(cfg.Data.ArtifactDir), func() {}, nil
}
