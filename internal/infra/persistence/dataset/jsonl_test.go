package dataset

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var rows []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var row map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())
	return rows
}

func TestJSONLWriterAppendsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "listings.jsonl")
	ctx := context.Background()

	w, err := OpenJSONL(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, &model.ListingDoc{ID: "a", Type: model.ListingType, Title: "2020 Ford Escape"}))
	require.NoError(t, w.Close())

	w, err = OpenJSONL(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, &model.ListingDoc{ID: "b", Type: model.ListingType, VIN: "1GNSKCKD5MR123456"}))
	require.NoError(t, w.Close())

	rows := readLines(t, path)
	require.Len(t, rows, 2)
	assert.Equal(t, "2020 Ford Escape", rows[0]["title"])
	assert.Equal(t, "car_listing", rows[1]["type"])
	assert.Equal(t, "1GNSKCKD5MR123456", rows[1]["vin"])
}

func TestJSONLWriterFlushesEachRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.jsonl")
	w, err := OpenJSONL(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	require.NoError(t, w.Append(context.Background(), &model.ListingDoc{ID: "a", Title: "x"}))
	assert.Len(t, readLines(t, path), 1)
}

func TestReadJSONLRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.jsonl")
	ctx := context.Background()

	w, err := OpenJSONL(path)
	require.NoError(t, err)
	require.NoError(t, w.Append(ctx, &model.ListingDoc{ID: "a", Title: "2020 Ford Escape"}))
	require.NoError(t, w.Append(ctx, &model.ListingDoc{ID: "b", VIN: "1GTU9DED5MZ123456"}))
	require.NoError(t, w.Close())

	docs, err := ReadJSONL(path)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "1GTU9DED5MZ123456", docs[1].VIN)
}

func TestReadJSONLReportsBadLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "listings.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("{\"id\":\"a\"}\n\nnot json\n"), 0o644))

	_, err := ReadJSONL(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 3")
}
