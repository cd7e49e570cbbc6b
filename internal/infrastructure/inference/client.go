// Package inference 提供推理运行时客户端。
// 运行时托管量化后的嵌入模型，暴露 tokenize 与 forward 两个接口；
// 池化与归一化不在这里做，属于应用层编码器。
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"movie-reco-api/internal/application/reco"
	"movie-reco-api/internal/config"
)

// Client 推理运行时 HTTP 客户端
type Client struct {
	endpoint   string
	model      string
	dimension  int
	maxSeqLen  int
	httpClient *http.Client
}

type tokenizeRequest struct {
	Text      string `json:"text"`
	Model     string `json:"model"`
	MaxLength int    `json:"max_length,omitempty"`
}

type tokenizeResponse struct {
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
}

type forwardRequest struct {
	InputIDs      []int64 `json:"input_ids"`
	AttentionMask []int64 `json:"attention_mask"`
	Model         string  `json:"model"`
}

type forwardResponse struct {
	// HiddenStates 逐 token 隐层，形状 [seq_len][hidden_dim]
	HiddenStates [][]float32 `json:"hidden_states"`
}

// NewClient 创建推理运行时客户端
func NewClient(cfg *config.EncoderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxSeqLen := cfg.MaxSequenceLength
	if maxSeqLen <= 0 {
		maxSeqLen = 512
	}
	model := cfg.Model
	if model == "" {
		model = "all-MiniLM-L6-v2"
	}
	return &Client{
		endpoint:  cfg.Endpoint,
		model:     model,
		dimension: cfg.Dimension,
		maxSeqLen: maxSeqLen,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var (
	_ reco.Tokenizer      = (*Client)(nil)
	_ reco.EmbeddingModel = (*Client)(nil)
)

// Dimension 模型隐层维度
func (c *Client) Dimension() int {
	return c.dimension
}

// Tokenize 文本转 token id 序列与注意力掩码
func (c *Client) Tokenize(ctx context.Context, text string) ([]int64, []int64, error) {
	var resp tokenizeResponse
	err := c.post(ctx, "/tokenize", &tokenizeRequest{
		Text:      text,
		Model:     c.model,
		MaxLength: c.maxSeqLen,
	}, &resp)
	if err != nil {
		return nil, nil, err
	}
	if len(resp.InputIDs) != len(resp.AttentionMask) {
		return nil, nil, fmt.Errorf("tokenize response length mismatch: ids=%d mask=%d",
			len(resp.InputIDs), len(resp.AttentionMask))
	}
	return resp.InputIDs, resp.AttentionMask, nil
}

// Forward 运行模型，返回逐 token 隐层向量
func (c *Client) Forward(ctx context.Context, ids []int64, mask []int64) ([][]float32, error) {
	var resp forwardResponse
	err := c.post(ctx, "/forward", &forwardRequest{
		InputIDs:      ids,
		AttentionMask: mask,
		Model:         c.model,
	}, &resp)
	if err != nil {
		return nil, err
	}
	for i, row := range resp.HiddenStates {
		if len(row) != c.dimension {
			return nil, fmt.Errorf("hidden state %d has dimension %d, want %d", i, len(row), c.dimension)
		}
	}
	return resp.HiddenStates, nil
}

// HealthCheck 探测运行时是否可用（启动检查用）
func (c *Client) HealthCheck(ctx context.Context) error {
	u, err := c.resolve("/health")
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("inference runtime unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("inference runtime unhealthy: status=%d", resp.StatusCode)
	}
	return nil
}

// post 发送 JSON 请求并解码响应
func (c *Client) post(ctx context.Context, path string, in any, out any) error {
	reqBody, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	u, err := c.resolve(path)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("inference request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("inference request failed: path=%s status=%d", path, httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}

// resolve 拼接运行时地址与接口路径
func (c *Client) resolve(path string) (string, error) {
	endpoint := strings.TrimRight(c.endpoint, "/")
	if endpoint == "" {
		return "", fmt.Errorf("inference endpoint is empty")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("invalid inference endpoint: %w", err)
	}
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String(), nil
}
