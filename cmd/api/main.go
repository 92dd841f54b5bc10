package main

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uc-package/swimctl/internal/auth"
	"github.com/uc-package/swimctl/internal/catalyst"
	"github.com/uc-package/swimctl/internal/cleanup"
	"github.com/uc-package/swimctl/internal/handlers"
	"github.com/uc-package/swimctl/internal/logger"
	"github.com/uc-package/swimctl/internal/metrics"
	"github.com/uc-package/swimctl/internal/models"
	"github.com/uc-package/swimctl/internal/task"
	"go.uber.org/zap"
)

func main() {
	// 加载配置（优先使用环境变量指定的路径）
	config, configPath, loadErr := models.Load()

	if err := logger.Init(&logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	}); err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Named("api")

	if loadErr != nil {
		log.Warn("Failed to load config, using defaults",
			zap.String("path", configPath),
			zap.Error(loadErr))
	}

	// 初始化 Catalyst Center 客户端
	client, err := catalyst.NewClient(&config.Catalyst)
	if err != nil {
		log.Fatal("Failed to initialize Catalyst Center client", zap.Error(err))
	}

	poller := task.NewPoller(client, task.PolicyFromConfig(config.Polling))
	cleaner := cleanup.NewImageCleaner(client, poller)
	recorder := metrics.NewRecorder()

	// 初始化处理器
	imageHandler := handlers.NewImageHandler(cleaner)
	cleanupHandler := handlers.NewCleanupHandler(cleaner, recorder)
	configHandler := handlers.NewConfigHandler(config)

	// 设置 Gin 路由
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(logger.GinLogger(), logger.GinRecovery())

	// CORS 配置
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
	}))

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "healthy"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(recorder.Registry(), promhttp.HandlerOpts{})))

	// API 路由
	api := r.Group("/api")
	api.Use(auth.AuthMiddleware(&config.Server))
	{
		api.GET("/config", configHandler.GetConfig)
		api.GET("/images", imageHandler.ListImages)
		api.POST("/cleanup", cleanupHandler.RunCleanup)
	}

	port := config.Server.Port
	if port == "" {
		port = "8080"
	}

	log.Info("Starting swimctl API server",
		zap.String("port", port),
		zap.String("catalyst", config.Catalyst.BaseURL),
		zap.Bool("authEnabled", config.Server.JWTSecret != "" || len(config.Server.APIKeys) > 0))
	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server", zap.Error(err))
	}
}
