package model

import (
	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

// Document 可写入搜索引擎的文档
// 使用类型集合约束, 目前只有 *ListingDoc 一种文档
type Document interface {
	*ListingDoc
	GetID() string
	GetIndex() string
	GetTypeMapping() *types.TypeMapping
	GetEmbeddingString() string
	SetEmbedding(embedding []float32)
	GetEmbedding() []float32
}
