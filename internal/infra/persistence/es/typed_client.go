package es

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/elastic/go-elasticsearch/v9"
	"github.com/elastic/go-elasticsearch/v9/esutil"
)

type typedEsClient[D model.Document] struct {
	client *elasticsearch.TypedClient
	log    logger.Logger
	// 只用来读取索引名和映射, 不存数据
	schemaDoc D
}

// InitTypedEsClient transport 为 nil 时使用默认的连接池配置
func InitTypedEsClient[D model.Document](cfg config.ElasticsearchConfig, transport http.RoundTripper, log logger.Logger) (TypedEsClient[D], error) {
	if transport == nil {
		transport = &http.Transport{
			MaxIdleConnsPerHost:   10,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       90 * time.Second,
			// 跳过TLS验证（仅在开发环境中使用）
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	typedClient, err := elasticsearch.NewTypedClient(elasticsearch.Config{
		Username:  cfg.Username,
		Password:  cfg.Password,
		Addresses: []string{cfg.Address},
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Elasticsearch client: %w", err)
	}
	return &typedEsClient[D]{client: typedClient, log: log}, nil
}

func (tec *typedEsClient[D]) CreateIndexWithMapping(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	exists, err := tec.client.Indices.Exists(index).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check index existence in es: %w", err)
	}
	if exists {
		tec.log.Info("Index already exists, skip create", logger.String("index", index))
		return nil
	}

	mapping := tec.schemaDoc.GetTypeMapping()
	if mapping == nil {
		_, err = tec.client.Indices.Create(index).Do(ctx)
	} else {
		_, err = tec.client.Indices.Create(index).Mappings(mapping).Do(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to create index in es: %w", err)
	}
	tec.log.Info("Index created", logger.String("index", index))
	return nil
}

func (tec *typedEsClient[D]) DeleteIndex(ctx context.Context) error {
	index := tec.schemaDoc.GetIndex()
	if _, err := tec.client.Indices.Delete(index).Do(ctx); err != nil {
		return fmt.Errorf("failed to delete index in es: %w", err)
	}
	return nil
}

func (tec *typedEsClient[D]) IndexDocWithID(ctx context.Context, doc D) error {
	_, err := tec.client.Index(tec.schemaDoc.GetIndex()).
		Id(doc.GetID()).
		Document(doc).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index doc %s to es: %w", doc.GetID(), err)
	}
	return nil
}

// BulkIndexDocsWithID 任一文档失败时返回错误, 其余文档仍会写入
func (tec *typedEsClient[D]) BulkIndexDocsWithID(ctx context.Context, docs []D) error {
	if len(docs) == 0 {
		return nil
	}
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         tec.schemaDoc.GetIndex(),
		Client:        tec.client,
		NumWorkers:    2,
		FlushBytes:    5 * 1024 * 1024,
		FlushInterval: 30 * time.Second,
		OnError: func(ctx context.Context, err error) {
			tec.log.Error("Bulk indexer error", logger.Error(err))
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	for _, doc := range docs {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal doc %s: %w", doc.GetID(), err)
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.GetID(),
			Body:       bytes.NewReader(data),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				if err != nil {
					tec.log.Error("Failed to index document", logger.String("id", item.DocumentID), logger.Error(err))
					return
				}
				tec.log.Error("Failed to index document", logger.String("id", item.DocumentID), logger.String("reason", res.Error.Reason))
			},
		})
		if err != nil {
			return fmt.Errorf("failed to add doc %s to bulk indexer: %w", doc.GetID(), err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}
	stats := bi.Stats()
	tec.log.Info("Bulk indexing completed",
		logger.Int64("indexed", int64(stats.NumIndexed)),
		logger.Int64("failed", int64(stats.NumFailed)),
	)
	if stats.NumFailed > 0 {
		return fmt.Errorf("bulk indexing failed for %d documents", stats.NumFailed)
	}
	return nil
}

func (tec *typedEsClient[D]) CountDocs(ctx context.Context) (int64, error) {
	resp, err := tec.client.Count().Index(tec.schemaDoc.GetIndex()).Do(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count docs in es: %w", err)
	}
	return resp.Count, nil
}
