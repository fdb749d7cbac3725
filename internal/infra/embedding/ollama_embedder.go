package embedding

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/cloudwego/eino-ext/components/embedding/ollama"
)

type embedder struct {
	model     *ollama.Embedder
	batchSize int
}

// InitEmbedder 初始化 ollama 嵌入器
func InitEmbedder(ctx context.Context, cfg config.EmbedderConfig) (Embedder, error) {
	model, err := ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
		Model:   cfg.Model,
		BaseURL: baseURL(cfg.Host, cfg.Port),
	})
	if err != nil {
		return nil, fmt.Errorf("初始化 ollama 嵌入器失败: %w", err)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 1
	}
	return &embedder{model: model, batchSize: batchSize}, nil
}

func baseURL(host string, port int) string {
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if port <= 0 {
		return host
	}
	return host + ":" + strconv.Itoa(port)
}

func (e *embedder) BatchSize() int {
	return e.batchSize
}

// Embed 分批调用模型, 返回与输入顺序一致的向量
func (e *embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := min(start+e.batchSize, len(texts))
		batch, err := e.model.EmbedStrings(ctx, texts[start:end])
		if err != nil {
			return nil, fmt.Errorf("生成向量失败: %w", err)
		}
		vectors = append(vectors, toFloat32(batch)...)
	}
	return vectors, nil
}

// toFloat32 EmbedStrings 返回 float64, 索引中的 dense_vector 使用 float32
func toFloat32(vectors [][]float64) [][]float32 {
	out := make([][]float32, 0, len(vectors))
	for _, v := range vectors {
		f := make([]float32, len(v))
		for i, x := range v {
			f[i] = float32(x)
		}
		out = append(out, f)
	}
	return out
}
