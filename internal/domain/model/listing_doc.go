package model

import (
	"strings"

	"github.com/elastic/go-elasticsearch/v9/typedapi/types"
)

const (
	ListingIndex = "car_listings"
	// ListingType webhook 消息体中的类型标识
	ListingType = "car_listing"
	// 与 ollama 嵌入模型(nomic-embed-text)的输出维度保持一致
	embeddingDims = 768
)

// ListingDoc 发布到数据集与 webhook 的车辆文档
type ListingDoc struct {
	ID            string    `json:"id"`
	Type          string    `json:"type"`
	IdentityKey   string    `json:"identityKey"`
	VIN           string    `json:"vin,omitempty"`
	Title         string    `json:"title"`
	Price         *float64  `json:"price"`
	PriceDisplay  string    `json:"priceDisplay,omitempty"`
	Year          string    `json:"year,omitempty"`
	Make          string    `json:"make,omitempty"`
	Model         string    `json:"model,omitempty"`
	Trim          string    `json:"trim,omitempty"`
	Mileage       string    `json:"mileage,omitempty"`
	DealerName    string    `json:"dealerName,omitempty"`
	DealerCity    string    `json:"dealerCity,omitempty"`
	DealerAddress string    `json:"dealerAddress,omitempty"`
	DealRating    string    `json:"dealRating,omitempty"`
	BodyType      string    `json:"bodyType,omitempty"`
	FuelType      string    `json:"fuelType,omitempty"`
	SourceURL     string    `json:"sourceUrl"`
	PageNumber    int       `json:"pageNumber"`
	SearchRadius  int       `json:"searchRadius"`
	ExtractedAt   string    `json:"extractedAt"`
	ScrapedAt     string    `json:"scrapedAt"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

func (d *ListingDoc) GetID() string {
	return d.ID
}

func (d *ListingDoc) GetIndex() string {
	return ListingIndex
}

func (d *ListingDoc) GetTypeMapping() *types.TypeMapping {
	dims := embeddingDims
	embedding := types.NewDenseVectorProperty()
	embedding.Dims = &dims
	return &types.TypeMapping{
		Properties: map[string]types.Property{
			"id":            types.NewKeywordProperty(),
			"type":          types.NewKeywordProperty(),
			"identityKey":   types.NewKeywordProperty(),
			"vin":           types.NewKeywordProperty(),
			"title":         types.NewTextProperty(),
			"price":         types.NewDoubleNumberProperty(),
			"priceDisplay":  types.NewKeywordProperty(),
			"year":          types.NewKeywordProperty(),
			"make":          types.NewKeywordProperty(),
			"model":         types.NewKeywordProperty(),
			"trim":          types.NewKeywordProperty(),
			"mileage":       types.NewKeywordProperty(),
			"dealerName":    types.NewTextProperty(),
			"dealerCity":    types.NewKeywordProperty(),
			"dealerAddress": types.NewTextProperty(),
			"dealRating":    types.NewKeywordProperty(),
			"bodyType":      types.NewKeywordProperty(),
			"fuelType":      types.NewKeywordProperty(),
			"sourceUrl":     types.NewKeywordProperty(),
			"pageNumber":    types.NewIntegerNumberProperty(),
			"searchRadius":  types.NewIntegerNumberProperty(),
			"extractedAt":   types.NewDateProperty(),
			"scrapedAt":     types.NewDateProperty(),
			"embedding":     embedding,
		},
	}
}

// GetEmbeddingString 用于生成向量的文本: 标题 + 配置 + 经销商
func (d *ListingDoc) GetEmbeddingString() string {
	parts := []string{d.Title, d.Trim, d.BodyType, d.FuelType, d.DealRating, d.DealerName, d.DealerCity}
	nonEmpty := parts[:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " | ")
}

func (d *ListingDoc) SetEmbedding(embedding []float32) {
	d.Embedding = embedding
}

func (d *ListingDoc) GetEmbedding() []float32 {
	return d.Embedding
}
