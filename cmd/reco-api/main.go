// Package main 推荐检索服务入口
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"movie-reco-api/internal/application/reco"
	"movie-reco-api/internal/config"
	"movie-reco-api/internal/infrastructure/catalog"
	"movie-reco-api/internal/infrastructure/inference"
	"movie-reco-api/internal/infrastructure/persistence/milvus"
	"movie-reco-api/internal/infrastructure/persistence/redis"
	"movie-reco-api/internal/infrastructure/vecindex"
	"movie-reco-api/internal/interfaces/http/handler"
	"movie-reco-api/internal/interfaces/http/middleware"
	"movie-reco-api/internal/interfaces/http/router"
	"movie-reco-api/pkg/logger"
	"movie-reco-api/pkg/tracer"

	"github.com/gin-gonic/gin"
)

// Version 版本信息，构建时注入
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	// 加载 .env 文件（如果存在）
	_ = godotenv.Load()

	// 加载配置
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化日志
	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()
	log := logger.FromContext(ctx)
	log.Info("starting reco-api",
		"version", Version,
		"build_time", BuildTime,
		"env", cfg.App.Env,
	)

	// 初始化追踪
	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: cfg.App.Name,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		log.Error("failed to init tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Error("failed to shutdown tracer", "error", err)
		}
	}()

	// 检索管线按固定顺序装配：目录 -> 索引 -> 编码器 -> 引擎。
	// 任一环节失败即退出，不以半就绪状态对外服务。

	// 1. 影片目录快照
	snapshot, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal(ctx, "failed to load movie catalog", err, "path", cfg.Catalog.Path)
	}
	log.Info("movie catalog loaded", "path", cfg.Catalog.Path, "movies", snapshot.Size())

	// 2. 向量索引后端
	var (
		index        reco.VectorIndex
		milvusClient *milvus.Client
	)
	switch cfg.Index.Backend {
	case "milvus":
		milvusClient, err = milvus.NewClient(ctx, &cfg.Index.Milvus)
		if err != nil {
			logger.Fatal(ctx, "failed to connect milvus", err)
		}
		defer milvusClient.Close()

		movieIndex, err := milvus.NewMovieIndex(ctx, milvusClient, cfg.Encoder.Dimension)
		if err != nil {
			logger.Fatal(ctx, "failed to open milvus movie index", err)
		}
		index = movieIndex
	case "flat", "":
		flatIndex, err := vecindex.Load(cfg.Index.Path)
		if err != nil {
			logger.Fatal(ctx, "failed to load vector index", err, "path", cfg.Index.Path)
		}
		if flatIndex.Dimension() != cfg.Encoder.Dimension {
			logger.Fatal(ctx, "vector index dimension mismatch", nil,
				"index_dim", flatIndex.Dimension(),
				"encoder_dim", cfg.Encoder.Dimension,
			)
		}
		index = flatIndex
	default:
		logger.Fatal(ctx, "unknown index backend", nil, "backend", cfg.Index.Backend)
	}
	log.Info("vector index ready", "backend", cfg.Index.Backend, "vectors", index.Size())

	// 索引与目录规模必须一致，否则部分内部 id 无法富化
	if index.Size() != snapshot.Size() {
		log.Warn("index and catalog size mismatch",
			"index_size", index.Size(),
			"catalog_size", snapshot.Size(),
		)
	}

	// 3. 文本编码器（推理运行时探活后装配）
	inferenceClient := inference.NewClient(&cfg.Encoder)
	probeCtx, cancelProbe := context.WithTimeout(ctx, 10*time.Second)
	if err := inferenceClient.HealthCheck(probeCtx); err != nil {
		cancelProbe()
		logger.Fatal(ctx, "inference runtime not reachable", err, "endpoint", cfg.Encoder.Endpoint)
	}
	cancelProbe()
	encoder := reco.NewTextEncoder(inferenceClient, inferenceClient)
	log.Info("text encoder ready", "endpoint", cfg.Encoder.Endpoint, "model", cfg.Encoder.Model)

	// 4. 推荐引擎
	engine := reco.NewEngine(encoder, index, snapshot,
		reco.WithTopKBounds(cfg.Recommend.DefaultTopK, cfg.Recommend.MaxTopK),
	)

	// 结果缓存（可选）
	var (
		redisClient *redis.Client
		recoCache   *redis.Cache
	)
	if cfg.Cache.Redis.Enabled {
		redisClient, err = redis.NewClient(&cfg.Cache.Redis)
		if err != nil {
			logger.Fatal(ctx, "failed to connect redis", err)
		}
		defer redisClient.Close()
		recoCache = redis.NewCache(redisClient)
		log.Info("recommendation cache enabled", "ttl", cfg.Recommend.CacheTTL)
	}

	// HTTP 层
	recoHandler := handler.NewRecoHandler(engine, recoCache, cfg.Recommend.CacheTTL)
	healthHandler := handler.NewHealthHandler(engine, inferenceClient, redisClient, milvusClient)

	var rateLimit gin.HandlerFunc
	if cfg.Security.RateLimit.Enabled && redisClient != nil {
		rateLimit = middleware.NewRateLimitMiddleware(middleware.RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
			Burst:             cfg.Security.RateLimit.Burst,
		}, redisClient.Redis())
	}

	r := router.New(cfg, recoHandler, healthHandler, rateLimit)

	// 创建 HTTP 服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.HTTP.Host, cfg.Server.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	// 启动服务器
	go func() {
		log.Info("http server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// 优雅关闭
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
	}

	log.Info("server exited")
}
