package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"cooking-agent/internal/core/ai"
	"cooking-agent/internal/core/dialogue"
	"cooking-agent/internal/core/index"
	"cooking-agent/internal/core/knowledge"
	"cooking-agent/internal/core/menu"
	"cooking-agent/internal/infrastructure/config"
	"cooking-agent/internal/pkg/common"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// exitPhrases 結束對話的指令
var exitPhrases = []string{"退出", "quit", "exit"}

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

	// 載入知識庫
	kb := knowledge.New(index.NewStore(cfg.Data.ArtifactDir))
	if err := kb.Initialize(context.Background()); err != nil {
		common.LogError("知識庫載入失敗，請先執行 cmd/ingest 生成產物",
			zap.String("artifact_dir", cfg.Data.ArtifactDir),
			zap.Error(err),
		)
		os.Exit(1)
	}

	// 組裝對話控制器；生成服務未啟用時全部走本地回退
	client := ai.NewClient(cfg)
	controller := dialogue.NewController(cfg, kb,
		menu.NewComposer(cfg, client),
		dialogue.NewPlanner(client, cfg.Dialogue.MacroPlanThreshold),
		dialogue.NewLLMExtractor(client),
		dialogue.NewLLMClassifier(client),
	)
	session := dialogue.NewSession()

	// Ctrl-C 視為正常退出
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("你好！我是做饭助手。告诉我用餐人数和口味偏好，我来帮你配菜单。")
	fmt.Println("（输入「退出」结束，「重新开始」重新规划）")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitPhrase(input) {
			break
		}

		reply := controller.HandleTurn(ctx, session, input)
		fmt.Println(reply)
	}

	fmt.Println("祝用餐愉快，下次见！")
}

func isExitPhrase(input string) bool {
	lower := strings.ToLower(input)
	for _, phrase := range exitPhrases {
		if lower == phrase {
			return true
		}
	}
	return false
}
