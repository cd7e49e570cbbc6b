// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"movie-reco-api/internal/application/reco"
	"movie-reco-api/internal/infrastructure/persistence/milvus"
	"movie-reco-api/internal/infrastructure/persistence/redis"
)

// HealthChecker 外部依赖健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler 健康检查处理器
type HealthHandler struct {
	engine    *reco.Engine
	inference HealthChecker
	redis     *redis.Client
	milvus    *milvus.Client
}

// NewHealthHandler 创建健康检查处理器。
// redis 与 milvus 可为 nil（未启用对应后端时）。
func NewHealthHandler(engine *reco.Engine, inference HealthChecker, redisClient *redis.Client, milvusClient *milvus.Client) *HealthHandler {
	return &HealthHandler{
		engine:    engine,
		inference: inference,
		redis:     redisClient,
		milvus:    milvusClient,
	}
}

// HealthResponse 健康检查响应
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

type readinessCheck struct {
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
	LatencyMs int64  `json:"latency_ms,omitempty"`
}

type readinessResponse struct {
	Status string                     `json:"status"`
	Checks map[string]*readinessCheck `json:"checks,omitempty"`
}

// Health 健康检查接口
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}

// Ready 就绪检查接口。
// 检索管线（目录 + 索引 + 编码器）未就绪时返回 503，不放行流量。
// @Summary 就绪检查
// @Description 检查服务是否可以接收流量
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (h *HealthHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]*readinessCheck{
		"pipeline": {Status: "unknown"},
	}

	ready := true

	// 检索管线（必需）
	if h == nil || h.engine == nil || !h.engine.Ready() {
		checks["pipeline"].Status = "not_loaded"
		checks["pipeline"].Error = "recommendation pipeline not loaded"
		ready = false
	} else {
		checks["pipeline"].Status = "ok"
	}

	// 推理运行时（必需，冷启动依赖）
	if h != nil && h.inference != nil {
		checks["inference"] = &readinessCheck{Status: "unknown"}
		start := time.Now()
		err := h.inference.HealthCheck(ctx)
		checks["inference"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["inference"].Status = "error"
			checks["inference"].Error = err.Error()
			ready = false
		} else {
			checks["inference"].Status = "ok"
		}
	}

	// Milvus（仅 milvus 后端时必需）
	if h != nil && h.milvus != nil {
		checks["milvus"] = &readinessCheck{Status: "unknown"}
		start := time.Now()
		err := h.milvus.HealthCheck(ctx)
		checks["milvus"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["milvus"].Status = "error"
			checks["milvus"].Error = err.Error()
			ready = false
		} else {
			checks["milvus"].Status = "ok"
		}
	}

	// Redis（可选，缓存退化不影响就绪态）
	if h != nil && h.redis != nil {
		checks["redis"] = &readinessCheck{Status: "unknown"}
		start := time.Now()
		err := h.redis.HealthCheck(ctx)
		checks["redis"].LatencyMs = time.Since(start).Milliseconds()
		if err != nil {
			checks["redis"].Status = "degraded"
			checks["redis"].Error = err.Error()
		} else {
			checks["redis"].Status = "ok"
		}
	}

	resp := readinessResponse{
		Status: "ok",
		Checks: checks,
	}
	if !ready {
		resp.Status = "not_ready"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Live 存活检查接口
// @Summary 存活检查
// @Description 检查服务是否存活
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /live [get]
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status: "ok",
	})
}
