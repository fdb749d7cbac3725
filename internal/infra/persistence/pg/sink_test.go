package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type execCall struct {
	sql  string
	args []any
}

type fakeExecer struct {
	calls []execCall
	err   error
}

func (f *fakeExecer) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.calls = append(f.calls, execCall{sql: sql, args: args})
	if f.err != nil {
		return pgconn.CommandTag{}, f.err
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func TestSinkAppendBindsDocument(t *testing.T) {
	db := &fakeExecer{}
	sink := NewSink(db, "car_listings")
	price := 52000.0
	doc := &model.ListingDoc{
		ID:          "doc-1",
		Type:        model.ListingType,
		IdentityKey: "VIN1",
		VIN:         "VIN1",
		Title:       "2022 GMC Sierra 1500",
		Price:       &price,
		SourceURL:   "https://example.test/vdp",
		PageNumber:  2,
		ExtractedAt: "2025-11-13T10:00:00Z",
		ScrapedAt:   "2025-11-13T10:00:01Z",
	}

	require.NoError(t, sink.Append(context.Background(), doc))
	require.Len(t, db.calls, 1)
	call := db.calls[0]
	assert.Contains(t, call.sql, `INSERT INTO "car_listings"`)
	require.Len(t, call.args, 23)
	assert.Equal(t, "doc-1", call.args[0])
	assert.Equal(t, &price, call.args[5])
	assert.Nil(t, call.args[6])
	assert.Equal(t, 2, call.args[19])
	scraped, ok := call.args[22].(*time.Time)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, 11, 13, 10, 0, 1, 0, time.UTC), scraped.UTC())
}

func TestSinkAppendWrapsError(t *testing.T) {
	db := &fakeExecer{err: errors.New("connection reset")}
	sink := NewSink(db, "car_listings")

	err := sink.Append(context.Background(), &model.ListingDoc{ID: "doc-9"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "doc-9")
}

func TestEnsureTableQuotesIdentifier(t *testing.T) {
	db := &fakeExecer{}
	require.NoError(t, NewSink(db, `weird"name`).EnsureTable(context.Background()))
	assert.Contains(t, db.calls[0].sql, `CREATE TABLE IF NOT EXISTS "weird""name"`)
}
