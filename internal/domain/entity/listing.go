package entity

import (
	"strings"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/google/uuid"
)

// ListingRecord 从详情页提取出的一条车辆记录
type ListingRecord struct {
	VIN           string
	Title         string
	Price         *float64
	PriceDisplay  string
	Year          string
	Make          string
	Model         string
	Trim          string
	Mileage       string
	DealerName    string
	DealerCity    string
	DealerAddress string
	DealRating    string
	BodyType      string
	FuelType      string
	SourceURL     string
	PageNumber    int
	SearchRadius  int
	ExtractedAt   time.Time
}

// Valid VIN 或标题至少有一个非空
func (r *ListingRecord) Valid() bool {
	return strings.TrimSpace(r.VIN) != "" || strings.TrimSpace(r.Title) != ""
}

// IdentityKey 下游去重用的标识: 优先 VIN, 否则 标题+来源URL
func (r *ListingRecord) IdentityKey() string {
	if vin := strings.TrimSpace(r.VIN); vin != "" {
		return vin
	}
	return r.Title + r.SourceURL
}

func (r *ListingRecord) ToDocument(scrapedAt time.Time) *model.ListingDoc {
	return &model.ListingDoc{
		ID:            uuid.NewString(),
		Type:          model.ListingType,
		IdentityKey:   r.IdentityKey(),
		VIN:           r.VIN,
		Title:         r.Title,
		Price:         r.Price,
		PriceDisplay:  r.PriceDisplay,
		Year:          r.Year,
		Make:          r.Make,
		Model:         r.Model,
		Trim:          r.Trim,
		Mileage:       r.Mileage,
		DealerName:    r.DealerName,
		DealerCity:    r.DealerCity,
		DealerAddress: r.DealerAddress,
		DealRating:    r.DealRating,
		BodyType:      r.BodyType,
		FuelType:      r.FuelType,
		SourceURL:     r.SourceURL,
		PageNumber:    r.PageNumber,
		SearchRadius:  r.SearchRadius,
		ExtractedAt:   r.ExtractedAt.UTC().Format(time.RFC3339),
		ScrapedAt:     scrapedAt.UTC().Format(time.RFC3339),
	}
}
