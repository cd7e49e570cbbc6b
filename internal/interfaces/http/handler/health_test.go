package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-reco-api/internal/application/reco"
	"movie-reco-api/internal/domain/entity"
)

func doGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func healthRouter(h *HealthHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/live", h.Live)
	return r
}

func TestHealth_AlwaysOK(t *testing.T) {
	h := NewHealthHandler(nil, nil, nil, nil)
	r := healthRouter(h)

	for _, path := range []string{"/health", "/live"} {
		w := doGet(t, r, path)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestReady_PipelineNotLoaded(t *testing.T) {
	// 管线未装配完成时不放行流量
	h := NewHealthHandler(reco.NewEngine(nil, nil, nil), nil, nil, nil)
	r := healthRouter(h)

	w := doGet(t, r, "/ready")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_ready", resp["status"])
}

func TestReady_PipelineLoaded(t *testing.T) {
	engine := reco.NewEngine(
		&stubEncoder{vec: []float32{1, 0}},
		&stubIndex{vectors: map[int][]float32{0: {1, 0}}},
		&stubCatalog{movies: map[int]*entity.Movie{0: {InternalID: 0, ExternalID: 550}}},
	)
	h := NewHealthHandler(engine, nil, nil, nil)
	r := healthRouter(h)

	w := doGet(t, r, "/ready")
	assert.Equal(t, http.StatusOK, w.Code)
}
