package inference

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"movie-reco-api/internal/config"
)

func testConfig(endpoint string) *config.EncoderConfig {
	return &config.EncoderConfig{
		Endpoint:          endpoint,
		Model:             "all-MiniLM-L6-v2",
		Dimension:         4,
		MaxSequenceLength: 128,
		Timeout:           5 * time.Second,
	}
}

func TestClient_Tokenize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/tokenize", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)

		var req tokenizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "hello world", req.Text)
		assert.Equal(t, "all-MiniLM-L6-v2", req.Model)
		assert.Equal(t, 128, req.MaxLength)

		json.NewEncoder(w).Encode(tokenizeResponse{
			InputIDs:      []int64{101, 7592, 2088, 102},
			AttentionMask: []int64{1, 1, 1, 1},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	ids, mask, err := c.Tokenize(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 7592, 2088, 102}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)
}

func TestClient_TokenizeLengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tokenizeResponse{
			InputIDs:      []int64{101, 102},
			AttentionMask: []int64{1},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, _, err := c.Tokenize(context.Background(), "text")
	assert.Error(t, err)
}

func TestClient_Forward(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forward", r.URL.Path)

		var req forwardRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []int64{101, 102}, req.InputIDs)

		json.NewEncoder(w).Encode(forwardResponse{
			HiddenStates: [][]float32{
				{0.1, 0.2, 0.3, 0.4},
				{0.5, 0.6, 0.7, 0.8},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	hidden, err := c.Forward(context.Background(), []int64{101, 102}, []int64{1, 1})
	require.NoError(t, err)
	require.Len(t, hidden, 2)
	assert.Equal(t, []float32{0.1, 0.2, 0.3, 0.4}, hidden[0])
}

func TestClient_ForwardDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(forwardResponse{
			HiddenStates: [][]float32{{0.1, 0.2}}, // 维度与配置不符
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, err := c.Forward(context.Background(), []int64{101}, []int64{1})
	assert.Error(t, err)
}

func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	_, _, err := c.Tokenize(context.Background(), "text")
	assert.Error(t, err)
}

func TestClient_HealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	assert.NoError(t, c.HealthCheck(context.Background()))

	srv.Close()
	assert.Error(t, c.HealthCheck(context.Background()))
}

func TestClient_EmptyEndpoint(t *testing.T) {
	c := NewClient(testConfig(""))
	err := c.HealthCheck(context.Background())
	assert.Error(t, err)
}
