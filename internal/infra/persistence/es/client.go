package es

import (
	"context"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
)

// TypedEsClient 按文档类型绑定索引的 Elasticsearch 客户端
type TypedEsClient[D model.Document] interface {
	CreateIndexWithMapping(ctx context.Context) error
	DeleteIndex(ctx context.Context) error
	IndexDocWithID(ctx context.Context, doc D) error
	BulkIndexDocsWithID(ctx context.Context, docs []D) error
	CountDocs(ctx context.Context) (int64, error)
}
