package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置，在 main 建立一次後以指標傳入各元件
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Server     ServerConfig     `mapstructure:"server"`
	OpenRouter OpenRouterConfig `mapstructure:"openrouter"`
	Data       DataConfig       `mapstructure:"data"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Cache      CacheConfig      `mapstructure:"cache"`
	Menu       MenuConfig       `mapstructure:"menu"`
	Dialogue   DialogueConfig   `mapstructure:"dialogue"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env      string `mapstructure:"env"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
	Version  string `mapstructure:"version"`
	Name     string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// OpenRouterConfig OpenRouter 配置
type OpenRouterConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	APIKey    string        `mapstructure:"api_key"`
	Model     string        `mapstructure:"model"`
	MaxTokens int           `mapstructure:"max_tokens"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// DataConfig 語料與衍生產物路徑設定
type DataConfig struct {
	RawRecordsPath string `mapstructure:"raw_records_path"` // 外部解析器產生的原始記錄 JSON
	ArtifactDir    string `mapstructure:"artifact_dir"`     // 索引/資料表/統計輸出目錄
}

// PipelineConfig 富集管線設定
type PipelineConfig struct {
	BatchSize      int           `mapstructure:"batch_size"`       // 每 N 次外部調用後暫停
	BatchDelay     time.Duration `mapstructure:"batch_delay"`      // 暫停時長（保護外部限流）
	PromptMaxChars int           `mapstructure:"prompt_max_chars"` // 單篇語料進 prompt 的上限
}

// CacheConfig 富集快取設定
type CacheConfig struct {
	Backend   string        `mapstructure:"backend"` // file | redis
	Enabled   bool          `mapstructure:"enabled"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// MenuConfig 菜單生成設定
type MenuConfig struct {
	CandidateCap int `mapstructure:"candidate_cap"` // 每個候選桶進 prompt 的上限
}

// DialogueConfig 對話設定
type DialogueConfig struct {
	MacroPlanThreshold int    `mapstructure:"macro_plan_threshold"` // 超過此字節數改用粗粒度規劃
	GuideDir           string `mapstructure:"guide_dir"`            // 烹飪指南輸出目錄
}

// RateLimitConfig 速率限制配置
type RateLimitConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件（允許不存在，由環境變數提供）
	_ = godotenv.Load()

	// 設定預設值
	setDefaults()

	// 設定環境變數前綴
	viper.SetEnvPrefix("APP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 綁定環境變量
	viper.BindEnv("openrouter.enabled", "OPENROUTER_ENABLED")
	viper.BindEnv("openrouter.api_key", "OPENROUTER_API_KEY")
	viper.BindEnv("openrouter.model", "OPENROUTER_MODEL")
	viper.BindEnv("openrouter.max_tokens", "MODEL_MAX_TOKENS")
	viper.BindEnv("data.raw_records_path", "RAW_RECORDS_PATH")
	viper.BindEnv("data.artifact_dir", "ARTIFACT_DIR")
	viper.BindEnv("cache.backend", "CACHE_BACKEND")
	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.redis_addr", "REDIS_ADDR")
	viper.BindEnv("rate_limit.enabled", "RATE_LIMIT_ENABLED")
	viper.BindEnv("rate_limit.requests", "RATE_LIMIT_REQUESTS")
	viper.BindEnv("rate_limit.window", "RATE_LIMIT_WINDOW")
	viper.BindEnv("log_level", "LOG_LEVEL")

	// 設定設定檔名稱和路徑
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	// 讀取設定檔
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 添加調試日誌（logger 尚未初始化，改用 fmt.Println）
	fmt.Println("Loading configuration", "openrouter_api_key:", maskAPIKey(viper.GetString("openrouter.api_key")), "openrouter_model:", viper.GetString("openrouter.model"))

	// 解析設定
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 驗證必要設定
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults() {
	// 應用程式設定
	viper.SetDefault("app.env", "development")
	viper.SetDefault("app.debug", true)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("app.version", "1.0.0")
	viper.SetDefault("app.name", "cooking-agent")

	// 伺服器設定
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("server.write_timeout", "30s")
	viper.SetDefault("server.idle_timeout", "120s")

	// OpenRouter 設定
	viper.SetDefault("openrouter.enabled", false)
	viper.SetDefault("openrouter.model", "qwen/qwen2.5-72b-instruct:free")
	viper.SetDefault("openrouter.max_tokens", 2000)
	viper.SetDefault("openrouter.timeout", "60s")

	// 語料路徑設定
	viper.SetDefault("data.raw_records_path", "data/raw_records.json")
	viper.SetDefault("data.artifact_dir", "data")

	// 富集管線設定
	viper.SetDefault("pipeline.batch_size", 5)
	viper.SetDefault("pipeline.batch_delay", "2s")
	viper.SetDefault("pipeline.prompt_max_chars", 2000)

	// 快取設定
	viper.SetDefault("cache.backend", "file")
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.redis_addr", "localhost:6379")
	viper.SetDefault("cache.ttl", "720h")

	// 菜單設定
	viper.SetDefault("menu.candidate_cap", 15)

	// 對話設定
	viper.SetDefault("dialogue.macro_plan_threshold", 8000)
	viper.SetDefault("dialogue.guide_dir", "guides")

	// 限流設定
	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.requests", 100)
	viper.SetDefault("rate_limit.window", "1m")
}

// validateConfig 驗證設定，違反者視為啟動期致命錯誤
func validateConfig(config *Config) error {
	// 驗證伺服器設定
	if config.Server.Port == 0 {
		return fmt.Errorf("server port is required")
	}

	// 驗證 OpenRouter 設定：啟用時必須帶金鑰
	if config.OpenRouter.Enabled && config.OpenRouter.APIKey == "" {
		return fmt.Errorf("openrouter api key is required when openrouter is enabled")
	}

	// 驗證語料路徑設定
	if config.Data.ArtifactDir == "" {
		return fmt.Errorf("data artifact dir is required")
	}

	// 驗證富集管線設定
	if config.Pipeline.BatchSize <= 0 {
		return fmt.Errorf("invalid pipeline batch size")
	}
	if config.Pipeline.BatchDelay < 0 {
		return fmt.Errorf("invalid pipeline batch delay")
	}
	if config.Pipeline.PromptMaxChars <= 0 {
		return fmt.Errorf("invalid pipeline prompt max chars")
	}

	// 驗證快取設定
	if config.Cache.Enabled {
		switch config.Cache.Backend {
		case "file", "redis":
		default:
			return fmt.Errorf("invalid cache backend: %s", config.Cache.Backend)
		}
		if config.Cache.Backend == "redis" && config.Cache.RedisAddr == "" {
			return fmt.Errorf("redis addr is required for redis cache backend")
		}
	}

	// 驗證菜單設定
	if config.Menu.CandidateCap <= 0 {
		return fmt.Errorf("invalid menu candidate cap")
	}

	return nil
}
