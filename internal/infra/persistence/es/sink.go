package es

import (
	"context"
	"fmt"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
)

// ListingSink 把车辆文档写入索引, 可选地先生成向量
type ListingSink struct {
	client   TypedEsClient[*model.ListingDoc]
	embedder embedding.Embedder
	log      logger.Logger
}

// NewListingSink embedder 可以为 nil
func NewListingSink(client TypedEsClient[*model.ListingDoc], embedder embedding.Embedder, log logger.Logger) *ListingSink {
	return &ListingSink{client: client, embedder: embedder, log: log}
}

// Append 写入的是 doc 的副本, 向量不会出现在调用方的文档上
// 向量生成失败只记录警告, 文档仍然写入
func (s *ListingSink) Append(ctx context.Context, doc *model.ListingDoc) error {
	indexed := *doc
	s.embed(ctx, []*model.ListingDoc{&indexed})
	if err := s.client.IndexDocWithID(ctx, &indexed); err != nil {
		return fmt.Errorf("es sink: %w", err)
	}
	return nil
}

// AppendAll 按 embedder 的批大小生成向量, 再整体批量写入; 用于把本地数据集回灌到索引
func (s *ListingSink) AppendAll(ctx context.Context, docs []*model.ListingDoc) error {
	if s.embedder != nil {
		size := max(s.embedder.BatchSize(), 1)
		for start := 0; start < len(docs); start += size {
			end := min(start+size, len(docs))
			s.embed(ctx, docs[start:end])
			s.log.Debug("Embedded batch", logger.Int("from", start), logger.Int("to", end))
		}
	}
	if err := s.client.BulkIndexDocsWithID(ctx, docs); err != nil {
		return fmt.Errorf("es bulk sink: %w", err)
	}
	return nil
}

// embed 就地设置向量, 失败时保持无向量
func (s *ListingSink) embed(ctx context.Context, docs []*model.ListingDoc) {
	if s.embedder == nil {
		return
	}
	var targets []*model.ListingDoc
	var texts []string
	for _, doc := range docs {
		if text := doc.GetEmbeddingString(); text != "" {
			targets = append(targets, doc)
			texts = append(texts, text)
		}
	}
	if len(texts) == 0 {
		return
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		s.log.Warn("Embedding failed, indexing without vector", logger.Int("docs", len(texts)), logger.Error(err))
		return
	}
	if len(vectors) != len(targets) {
		s.log.Warn("Embedding count mismatch, indexing without vector",
			logger.Int("want", len(targets)),
			logger.Int("got", len(vectors)),
		)
		return
	}
	for i, doc := range targets {
		doc.SetEmbedding(vectors[i])
	}
}

// DropIndex 删除索引, 下次写入前会按映射重新创建
func (s *ListingSink) DropIndex(ctx context.Context) error {
	return s.client.DeleteIndex(ctx)
}

// Count 索引中的文档数
func (s *ListingSink) Count(ctx context.Context) (int64, error) {
	return s.client.CountDocs(ctx)
}

func (s *ListingSink) Close() error {
	return nil
}
