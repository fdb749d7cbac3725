// Package dataset 追加写入的本地数据集, 每条记录一行 JSON
package dataset

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
)

type JSONLWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	encoder *json.Encoder
}

// OpenJSONL 以追加模式打开, 已有记录不会被覆盖
func OpenJSONL(path string) (*JSONLWriter, error) {
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", path, err)
	}
	writer := bufio.NewWriter(file)
	return &JSONLWriter{
		file:    file,
		writer:  writer,
		encoder: json.NewEncoder(writer),
	}, nil
}

// Append 每条记录写完立即 flush, 进程崩溃最多丢失当前这一条
func (w *JSONLWriter) Append(ctx context.Context, doc *model.ListingDoc) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.encoder.Encode(doc); err != nil {
		return fmt.Errorf("encode listing %s: %w", doc.ID, err)
	}
	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return nil
}

func (w *JSONLWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.writer.Flush(); err != nil {
		return fmt.Errorf("flush dataset: %w", err)
	}
	return w.file.Close()
}

// maxLineBytes 单条记录的上限, 带向量的记录也远小于这个值
const maxLineBytes = 4 << 20

// ReadJSONL 读取数据集中的全部记录, 空行忽略
func ReadJSONL(path string) ([]*model.ListingDoc, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset %q: %w", path, err)
	}
	defer file.Close()

	var docs []*model.ListingDoc
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for line := 1; scanner.Scan(); line++ {
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var doc model.ListingDoc
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("decode %s line %d: %w", path, line, err)
		}
		docs = append(docs, &doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read dataset %q: %w", path, err)
	}
	return docs, nil
}

func ensureDir(filename string) error {
	dir := filepath.Dir(filename)
	if dir == "" || dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}
