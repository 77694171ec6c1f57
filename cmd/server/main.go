// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"finsight-go/internal/config"
	"finsight-go/internal/handler"
	"finsight-go/internal/middleware"
	"finsight-go/internal/model"
	"finsight-go/internal/repository"
	"finsight-go/internal/service"
	"finsight-go/pkg/database"
	"finsight-go/pkg/kafka"
	"finsight-go/pkg/llm"
	"finsight-go/pkg/log"
	"finsight-go/pkg/storage"
	"finsight-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库、Redis 与外围设施
	database.InitPostgres(cfg.Database.Postgres.DSN)
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	if err := database.DB.AutoMigrate(&model.StockPrice{}, &model.UserQuery{}, &model.TranscriptChunk{}); err != nil {
		log.Fatal("数据库迁移失败", err)
	}

	// 4. 初始化 Repository
	stockRepo := repository.NewStockRepository(database.DB)
	queryLogRepo := repository.NewQueryLogRepository(database.DB)
	transcriptRepo := repository.NewTranscriptRepository(database.DB)

	// 5. 初始化 Service (依赖注入)
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.ChatTokenExpireMinutes)
	llmClient := llm.NewClient(cfg.LLM)
	ingestService := service.NewIngestService(stockRepo, cfg.MinIO)
	chatService := service.NewChatService(stockRepo, queryLogRepo, llmClient)
	statsService := service.NewStatsService(stockRepo, transcriptRepo, queryLogRepo, database.RDB)

	// 6. 初始化导入 seed 目录下的 CSV：走标准导入流程，按 date 键幂等
	seedCtx, cancelSeed := context.WithCancel(context.Background())
	defer cancelSeed()
	go seedStockFiles(seedCtx, cfg.Seed.Dir, ingestService)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		apiV1.GET("/health", handler.NewHealthHandler(transcriptRepo).Check)
		apiV1.GET("/stats", handler.NewStatsHandler(statsService).GetStats)

		upload := apiV1.Group("/upload")
		{
			upload.POST("/stock", handler.NewUploadHandler(ingestService).UploadStockCSV)
		}

		chatHandler := handler.NewChatHandler(chatService, jwtManager)
		chatGroup := apiV1.Group("/chat")
		{
			chatGroup.GET("/websocket-token", chatHandler.GetWebsocketToken)
		}
		r.GET("/chat/:token", chatHandler.Handle)
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	log.Info("服务已优雅关闭")
}

// seedStockFiles 扫描目录下的 CSV 并通过标准导入流程写入（幂等）。
func seedStockFiles(ctx context.Context, dir string, ingestSvc service.IngestService) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("seedStockFiles: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".csv") {
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("seedStockFiles: 读取文件失败: %s, err=%v", path, err)
			return nil
		}

		count, err := ingestSvc.IngestCSV(ctx, info.Name(), string(content))
		if err != nil {
			log.Warnf("seedStockFiles: 导入失败: %s, err=%v", path, err)
			return nil
		}
		log.Infof("seedStockFiles: 导入完成: %s, records=%d", info.Name(), count)
		return nil
	})
	if walkErr != nil {
		log.Warnf("seedStockFiles: 遍历目录发生错误: %v", walkErr)
	}
}
