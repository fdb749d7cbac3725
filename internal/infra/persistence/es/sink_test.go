package es

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const indexResponse = `{"_index":"car_listings","_id":"doc-1","_version":1,"result":"created",` +
	`"_shards":{"total":1,"successful":1,"failed":0},"_seq_no":0,"_primary_term":1}`

func esResponder(status int, body string, captured *[]byte) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		if captured != nil && req.Body != nil {
			data, err := io.ReadAll(req.Body)
			if err != nil {
				return nil, err
			}
			*captured = data
		}
		resp := httpmock.NewStringResponse(status, body)
		resp.Header.Set("Content-Type", "application/json")
		resp.Header.Set("X-Elastic-Product", "Elasticsearch")
		return resp, nil
	}
}

func newMockClient(t *testing.T) (TypedEsClient[*model.ListingDoc], *httpmock.MockTransport) {
	t.Helper()
	transport := httpmock.NewMockTransport()
	client, err := InitTypedEsClient[*model.ListingDoc](config.ElasticsearchConfig{Address: "http://es.test:9200"}, transport, logger.NewNop())
	require.NoError(t, err)
	return client, transport
}

type stubEmbedder struct {
	vectors [][]float32
	err     error
	texts   []string
}

func (s *stubEmbedder) BatchSize() int {
	return 1
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.texts = append(s.texts, texts...)
	return s.vectors, s.err
}

func TestListingSinkIndexesWithEmbedding(t *testing.T) {
	client, transport := newMockClient(t)
	var body []byte
	transport.RegisterResponder(http.MethodPut, "http://es.test:9200/car_listings/_doc/doc-1", esResponder(201, indexResponse, &body))

	emb := &stubEmbedder{vectors: [][]float32{{0.1, 0.2}}}
	sink := NewListingSink(client, emb, logger.NewNop())

	doc := &model.ListingDoc{ID: "doc-1", Type: model.ListingType, Title: "2023 Cadillac Escalade"}
	require.NoError(t, sink.Append(context.Background(), doc))

	assert.Equal(t, []string{"2023 Cadillac Escalade"}, emb.texts)
	assert.Equal(t, 1, transport.NumberOfCalls())

	var sent map[string]any
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.Equal(t, "2023 Cadillac Escalade", sent["title"])
	assert.Len(t, sent["embedding"], 2)
	assert.Nil(t, doc.Embedding, "caller's doc must stay without vector")
}

func TestListingSinkIndexesWithoutVectorWhenEmbeddingFails(t *testing.T) {
	client, transport := newMockClient(t)
	var body []byte
	transport.RegisterResponder(http.MethodPut, "http://es.test:9200/car_listings/_doc/doc-1", esResponder(201, indexResponse, &body))

	sink := NewListingSink(client, &stubEmbedder{err: errors.New("ollama down")}, logger.NewNop())
	require.NoError(t, sink.Append(context.Background(), &model.ListingDoc{ID: "doc-1", Title: "x"}))

	var sent map[string]any
	require.NoError(t, json.Unmarshal(body, &sent))
	assert.NotContains(t, sent, "embedding")
}

func TestListingSinkReturnsIndexError(t *testing.T) {
	client, transport := newMockClient(t)
	errBody := `{"error":{"type":"mapper_parsing_exception","reason":"failed to parse"},"status":400}`
	transport.RegisterResponder(http.MethodPut, "http://es.test:9200/car_listings/_doc/doc-1", esResponder(400, errBody, nil))

	sink := NewListingSink(client, nil, logger.NewNop())
	err := sink.Append(context.Background(), &model.ListingDoc{ID: "doc-1", Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "es sink")
}

func TestCountDocs(t *testing.T) {
	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodPost, "http://es.test:9200/car_listings/_count",
		esResponder(200, `{"count":42,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0}}`, nil))
	transport.RegisterResponder(http.MethodGet, "http://es.test:9200/car_listings/_count",
		esResponder(200, `{"count":42,"_shards":{"total":1,"successful":1,"skipped":0,"failed":0}}`, nil))

	n, err := client.CountDocs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)
}

// bulkResponder 为每个 action 行返回一个成功条目, 并记录收到的文档 ID
func bulkResponder(mu *sync.Mutex, ids *[]string, bodies *[]map[string]any) httpmock.Responder {
	return func(req *http.Request) (*http.Response, error) {
		data, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		var items []string
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := scanner.Bytes()
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			var action map[string]map[string]any
			if err := json.Unmarshal(line, &action); err != nil {
				return nil, err
			}
			meta, ok := action["index"]
			if !ok {
				continue
			}
			id, _ := meta["_id"].(string)
			if !scanner.Scan() {
				return nil, fmt.Errorf("missing source for %s", id)
			}
			var source map[string]any
			if err := json.Unmarshal(scanner.Bytes(), &source); err != nil {
				return nil, err
			}
			mu.Lock()
			*ids = append(*ids, id)
			*bodies = append(*bodies, source)
			mu.Unlock()
			items = append(items, fmt.Sprintf(`{"index":{"_index":"car_listings","_id":%q,"status":201,"result":"created"}}`, id))
		}
		body := `{"took":1,"errors":false,"items":[` + strings.Join(items, ",") + `]}`
		return esResponder(200, body, nil)(req)
	}
}

func TestListingSinkAppendAllEmbedsInBatches(t *testing.T) {
	client, transport := newMockClient(t)
	var (
		mu     sync.Mutex
		ids    []string
		bodies []map[string]any
	)
	transport.RegisterResponder(http.MethodPost, "http://es.test:9200/car_listings/_bulk", bulkResponder(&mu, &ids, &bodies))
	transport.RegisterResponder(http.MethodPost, "http://es.test:9200/_bulk", bulkResponder(&mu, &ids, &bodies))

	emb := &stubEmbedder{vectors: [][]float32{{0.5, 0.5}}}
	sink := NewListingSink(client, emb, logger.NewNop())

	docs := []*model.ListingDoc{
		{ID: "a", Type: model.ListingType, Title: "2021 Honda Civic"},
		{ID: "b", Type: model.ListingType, Title: "2022 Kia Sorento"},
		{ID: "c", Type: model.ListingType, Title: "2019 Jeep Wrangler"},
	}
	require.NoError(t, sink.AppendAll(context.Background(), docs))

	// BatchSize 为 1, 每个文档单独请求一次向量
	assert.Equal(t, []string{"2021 Honda Civic", "2022 Kia Sorento", "2019 Jeep Wrangler"}, emb.texts)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)
	for _, body := range bodies {
		assert.Len(t, body["embedding"], 2)
	}
}

func TestListingSinkAppendAllWithoutEmbedder(t *testing.T) {
	client, transport := newMockClient(t)
	var (
		mu     sync.Mutex
		ids    []string
		bodies []map[string]any
	)
	transport.RegisterResponder(http.MethodPost, "http://es.test:9200/car_listings/_bulk", bulkResponder(&mu, &ids, &bodies))
	transport.RegisterResponder(http.MethodPost, "http://es.test:9200/_bulk", bulkResponder(&mu, &ids, &bodies))

	sink := NewListingSink(client, nil, logger.NewNop())
	require.NoError(t, sink.AppendAll(context.Background(), []*model.ListingDoc{{ID: "a", Title: "x"}}))

	assert.Equal(t, []string{"a"}, ids)
	assert.NotContains(t, bodies[0], "embedding")
}

func TestListingSinkAppendAllEmptyIsNoop(t *testing.T) {
	client, transport := newMockClient(t)
	sink := NewListingSink(client, nil, logger.NewNop())

	require.NoError(t, sink.AppendAll(context.Background(), nil))
	assert.Equal(t, 0, transport.NumberOfCalls())
}

func TestListingSinkDropIndex(t *testing.T) {
	client, transport := newMockClient(t)
	transport.RegisterResponder(http.MethodDelete, "http://es.test:9200/car_listings",
		esResponder(200, `{"acknowledged":true}`, nil))

	sink := NewListingSink(client, nil, logger.NewNop())
	require.NoError(t, sink.DropIndex(context.Background()))
	assert.Equal(t, 1, transport.NumberOfCalls())
}

func TestListingSinkDropIndexMissing(t *testing.T) {
	client, transport := newMockClient(t)
	errBody := `{"error":{"type":"index_not_found_exception","reason":"no such index [car_listings]"},"status":404}`
	transport.RegisterResponder(http.MethodDelete, "http://es.test:9200/car_listings", esResponder(404, errBody, nil))

	sink := NewListingSink(client, nil, logger.NewNop())
	err := sink.DropIndex(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete index")
}
