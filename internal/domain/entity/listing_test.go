package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingRecordValid(t *testing.T) {
	tests := []struct {
		name string
		rec  ListingRecord
		want bool
	}{
		{name: "empty", rec: ListingRecord{}, want: false},
		{name: "blank title no vin", rec: ListingRecord{Title: "  "}, want: false},
		{name: "title only", rec: ListingRecord{Title: "2020 Ford Escape"}, want: true},
		{name: "vin only", rec: ListingRecord{VIN: "1FMCU9G67LUC12345"}, want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.rec.Valid())
		})
	}
}

func TestListingRecordIdentityKey(t *testing.T) {
	withVIN := ListingRecord{VIN: "VIN123", Title: "2021 GMC Yukon", SourceURL: "https://example.test/a"}
	assert.Equal(t, "VIN123", withVIN.IdentityKey())

	noVIN := ListingRecord{Title: "2021 GMC Yukon", SourceURL: "https://example.test/a"}
	assert.Equal(t, "2021 GMC Yukonhttps://example.test/a", noVIN.IdentityKey())
}

func TestToDocumentCarriesTypeAndTimestamps(t *testing.T) {
	price := 45990.0
	extracted := time.Date(2025, 11, 13, 10, 0, 0, 0, time.UTC)
	rec := ListingRecord{
		Title:        "2022 Chevrolet Tahoe LT",
		Price:        &price,
		PriceDisplay: "$45,990",
		SourceURL:    "https://example.test/vdp/1",
		PageNumber:   4,
		SearchRadius: 50000,
		ExtractedAt:  extracted,
	}

	doc := rec.ToDocument(extracted.Add(time.Second))
	require.NotEmpty(t, doc.ID)
	assert.Equal(t, "car_listing", doc.Type)
	assert.Equal(t, "2025-11-13T10:00:00Z", doc.ExtractedAt)
	assert.Equal(t, "2025-11-13T10:00:01Z", doc.ScrapedAt)
	assert.Equal(t, rec.IdentityKey(), doc.IdentityKey)

	body, err := json.Marshal(doc)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "car_listing", decoded["type"])
	assert.Equal(t, 45990.0, decoded["price"])
	assert.EqualValues(t, 4, decoded["pageNumber"])
	assert.NotContains(t, decoded, "embedding")
}
