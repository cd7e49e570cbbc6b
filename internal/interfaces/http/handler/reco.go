// Package handler 提供 HTTP 请求处理器
package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"

	"movie-reco-api/internal/application/reco"
	"movie-reco-api/internal/infrastructure/persistence/redis"
	"movie-reco-api/internal/interfaces/http/dto"
	"movie-reco-api/pkg/errors"
	"movie-reco-api/pkg/logger"
)

// RecoHandler 推荐处理器
type RecoHandler struct {
	engine   *reco.Engine
	cache    *redis.Cache
	cacheTTL time.Duration
}

// NewRecoHandler 创建推荐处理器。cache 可为 nil，表示不启用结果缓存。
func NewRecoHandler(engine *reco.Engine, cache *redis.Cache, cacheTTL time.Duration) *RecoHandler {
	return &RecoHandler{
		engine:   engine,
		cache:    cache,
		cacheTTL: cacheTTL,
	}
}

// Recommend 按影片或元数据推荐
// @Summary 推荐相似影片
// @Description 按 movie_id（暖启动）或元数据（冷启动）检索语义最相近的影片
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param body body dto.RecommendRequest true "推荐请求"
// @Success 200 {object} dto.Response[dto.RecommendResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/recommendations [post]
func (h *RecoHandler) Recommend(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	if h.cache != nil {
		key := redis.RecommendKey(req.CanonicalString(), req.TopK)
		raw, err := h.cache.GetOrLoadSafe(ctx, key, h.cacheTTL, func() (any, error) {
			result, err := h.engine.Recommend(ctx, req.ToQuery())
			if err != nil {
				return nil, err
			}
			return dto.ToRecommendResponse(result), nil
		})
		if err != nil {
			h.respondError(c, err)
			return
		}
		var resp dto.RecommendResponse
		if uerr := json.Unmarshal(raw, &resp); uerr == nil {
			dto.Success(c, resp)
			return
		}
		// 缓存内容损坏时退化为直接检索
		logger.Warn(ctx, "recommend cache entry corrupted, recomputing", "key", key)
	}

	result, err := h.engine.Recommend(ctx, req.ToQuery())
	if err != nil {
		h.respondError(c, err)
		return
	}
	dto.Success(c, dto.ToRecommendResponse(result))
}

// RecommendBySynopsis 按剧情简介推荐
// @Summary 按剧情简介推荐
// @Description 对自由文本简介实时编码后检索语义最相近的影片（始终冷启动）
// @Tags Recommendations
// @Accept json
// @Produce json
// @Param body body dto.SynopsisRequest true "简介推荐请求"
// @Success 200 {object} dto.Response[dto.RecommendResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /v1/recommendations/by-synopsis [post]
func (h *RecoHandler) RecommendBySynopsis(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.SynopsisRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return
	}

	result, err := h.engine.Recommend(ctx, req.ToQuery())
	if err != nil {
		h.respondError(c, err)
		return
	}
	dto.Success(c, dto.ToRecommendResponse(result))
}

// respondError 统一错误出口：业务错误按其 HTTP 状态返回，其余按 500
func (h *RecoHandler) respondError(c *gin.Context, err error) {
	if errors.IsAppError(err) {
		appErr := errors.AsAppError(err)
		if appErr.HTTPStatus >= 500 {
			logger.Error(c.Request.Context(), "recommendation failed", err)
		}
		dto.AppError(c, appErr)
		return
	}
	logger.Error(c.Request.Context(), "recommendation failed", err)
	dto.InternalError(c, "recommendation failed")
}
