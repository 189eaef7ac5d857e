package api

import (
	"context"
	"net/http"
	"time"

	"cooking-agent/internal/api/handlers"
	"cooking-agent/internal/api/handlers/health"
	"cooking-agent/internal/api/middleware"
	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/core/dialogue"
	"cooking-agent/internal/core/knowledge"
	"cooking-agent/internal/core/menu"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// 單輪對話可能串多次外部生成調用
	timeoutDuration = 120 * time.Second
	// 請求體大小限制 (1MB)，純文字對話用不到更大
	maxBodySize = 1 << 20
	// 閒置會話保留時長
	sessionIdleTTL = 30 * time.Minute
)

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, kb *knowledge.Base, client ai.Client) (*gin.Engine, error) {
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	// 創建路由引擎
	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(requestid.New()) // 自動生成請求 ID

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// 請求體大小限制
	router.Use(middleware.BodySizeLimit(maxBodySize))

	// 限流
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	// 全局中間件：請求超時
	router.Use(func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeoutDuration)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if ctx.Err() == context.DeadlineExceeded {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", c.GetHeader("X-Request-ID")),
				zap.Duration("timeout", timeoutDuration),
			)
			c.JSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  "REQUEST_TIMEOUT",
			})
			c.Abort()
		}
	})

	// 組裝對話控制器：共享知識庫，會話各自獨立
	composer := menu.NewComposer(cfg, client)
	planner := dialogue.NewPlanner(client, cfg.Dialogue.MacroPlanThreshold)
	controller := dialogue.NewController(cfg, kb, composer, planner,
		dialogue.NewLLMExtractor(client),
		dialogue.NewLLMClassifier(client),
	)
	registry := handlers.NewSessionRegistry(sessionIdleTTL)

	chatHandler := handlers.NewChatHandler(registry, controller)
	knowledgeHandler := handlers.NewKnowledgeHandler(kb)
	healthHandler := health.NewHandler(cfg, kb)

	// 健康檢查路由
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	apiGroup := router.Group("/api/v1")
	{
		apiGroup.POST("/chat", chatHandler.HandleChat)
		apiGroup.POST("/session/reset", chatHandler.HandleReset)

		recipes := apiGroup.Group("/recipes")
		{
			recipes.GET("/search", knowledgeHandler.HandleSearch)
			recipes.GET("/:name", knowledgeHandler.HandleGetByName)
		}

		apiGroup.GET("/statistics", knowledgeHandler.HandleStatistics)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
		zap.Bool("knowledge_ready", kb.Ready()),
		zap.Duration("timeout", timeoutDuration),
		zap.Int64("max_body_size", maxBodySize),
	)

	return router, nil
}
