package reco

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "movie-reco-api/pkg/errors"
	"movie-reco-api/pkg/metrics"
)

var encoderTracer = otel.Tracer("reco.encoder")

// TextEncoder 文本编码器：分词 -> 逐 token 隐层 -> 注意力掩码均值池化 -> L2 归一化。
// 分词和模型推理委托给外部 port，池化与归一化是编码器自身的职责。
type TextEncoder struct {
	tokenizer Tokenizer
	model     EmbeddingModel
}

// NewTextEncoder 创建文本编码器
func NewTextEncoder(tokenizer Tokenizer, model EmbeddingModel) *TextEncoder {
	return &TextEncoder{
		tokenizer: tokenizer,
		model:     model,
	}
}

var _ Encoder = (*TextEncoder)(nil)

// Loaded 检查分词器与模型是否就绪
func (e *TextEncoder) Loaded() bool {
	return e != nil && e.tokenizer != nil && e.model != nil
}

// Encode 将文本编码为单位长度的定长向量。
// 相同输入在固定模型下输出确定。
func (e *TextEncoder) Encode(ctx context.Context, text string) ([]float32, error) {
	if !e.Loaded() {
		return nil, apperrors.ErrPipelineNotLoaded
	}

	ctx, span := encoderTracer.Start(ctx, "encoder.Encode",
		trace.WithAttributes(attribute.Int("text_len", len(text))))
	defer span.End()

	start := time.Now()

	ids, mask, err := e.tokenizer.Tokenize(ctx, text)
	if err != nil {
		span.RecordError(err)
		metrics.EncodeTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeInferenceError, "tokenize failed")
	}
	if len(ids) == 0 || len(ids) != len(mask) {
		metrics.EncodeTotal.WithLabelValues("error").Inc()
		return nil, apperrors.New(apperrors.CodeEncodingFailed, "tokenizer returned inconsistent output").
			WithDetail(fmt.Sprintf("ids=%d mask=%d", len(ids), len(mask)))
	}

	hidden, err := e.model.Forward(ctx, ids, mask)
	if err != nil {
		span.RecordError(err)
		metrics.EncodeTotal.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(err, apperrors.CodeInferenceError, "model forward failed")
	}
	if len(hidden) != len(ids) {
		metrics.EncodeTotal.WithLabelValues("error").Inc()
		return nil, apperrors.New(apperrors.CodeEncodingFailed, "hidden state length mismatch").
			WithDetail(fmt.Sprintf("tokens=%d hidden=%d", len(ids), len(hidden)))
	}

	vec := poolAndNormalize(hidden, mask, e.model.Dimension())

	metrics.EncodeDuration.Observe(time.Since(start).Seconds())
	metrics.EncodeTotal.WithLabelValues("ok").Inc()
	return vec, nil
}

// poolAndNormalize 注意力掩码均值池化 + L2 归一化。
// 掩码和为 0 或范数为 0 时以 1 兜底，避免除零。
func poolAndNormalize(hidden [][]float32, mask []int64, dim int) []float32 {
	sums := make([]float64, dim)
	var maskSum float64

	for t, row := range hidden {
		m := float64(mask[t])
		if m == 0 {
			continue
		}
		maskSum += m
		for d := 0; d < dim && d < len(row); d++ {
			sums[d] += float64(row[d]) * m
		}
	}
	if maskSum == 0 {
		maskSum = 1
	}

	var norm float64
	for d := range sums {
		sums[d] /= maskSum
		norm += sums[d] * sums[d]
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		norm = 1
	}

	out := make([]float32, dim)
	for d := range sums {
		out[d] = float32(sums[d] / norm)
	}
	return out
}
