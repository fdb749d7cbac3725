package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEmbeddingStringSkipsEmptyParts(t *testing.T) {
	doc := &ListingDoc{Title: "2021 Ford F-150 XLT", BodyType: "Pickup Truck", DealerCity: "Toronto, ON"}
	assert.Equal(t, "2021 Ford F-150 XLT | Pickup Truck | Toronto, ON", doc.GetEmbeddingString())
}

func TestTypeMappingCoversDocumentFields(t *testing.T) {
	mapping := (&ListingDoc{}).GetTypeMapping()
	for _, field := range []string{"vin", "title", "price", "identityKey", "scrapedAt", "embedding"} {
		assert.Contains(t, mapping.Properties, field)
	}
}
