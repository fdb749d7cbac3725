package extractor

import (
	"strconv"
	"strings"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/PuerkitoBio/goquery"
)

// Source 字段值的来源
type Source string

const (
	SourceDOM       Source = "dom"
	SourceHydration Source = "hydration"
	SourceSpecs     Source = "specs"
)

// detail 详情页的一次快照: 渲染后的 DOM 与 hydration 数据
type detail struct {
	doc       *goquery.Document
	preflight preflight
}

// Strategy 从详情页读取某个字段的一种方式
type Strategy struct {
	Source Source
	Read   func(d *detail) (string, bool)
}

// field 一个字段按顺序尝试的策略, 第一个成功的生效
type field struct {
	name       string
	strategies []Strategy
	set        func(r *entity.ListingRecord, v string)
}

func dom(selector string) Strategy {
	return Strategy{Source: SourceDOM, Read: func(d *detail) (string, bool) {
		if d.doc == nil {
			return "", false
		}
		text := strings.TrimSpace(d.doc.Find(selector).First().Text())
		return text, text != ""
	}}
}

func hydration(get func(p *preflight) flexString) Strategy {
	return Strategy{Source: SourceHydration, Read: func(d *detail) (string, bool) {
		return get(&d.preflight).value()
	}}
}

func specs(labelSubstr string) Strategy {
	return Strategy{Source: SourceSpecs, Read: func(d *detail) (string, bool) {
		return d.preflight.specValue(labelSubstr)
	}}
}

// numeric 只有值能解析成价格时才算成功, 例如 "Call for price" 会落到下一个来源
func numeric(s Strategy) Strategy {
	return Strategy{Source: s.Source, Read: func(d *detail) (string, bool) {
		v, ok := s.Read(d)
		if !ok {
			return "", false
		}
		_, ok = ParsePrice(v)
		return v, ok
	}}
}

// fields 每个字段的读取顺序, 通常是 DOM → hydration → 规格列表
var fields = []field{
	{
		name: "vin",
		strategies: []Strategy{
			dom(statSelector("vin")),
			hydration(func(p *preflight) flexString { return p.Listing.VIN }),
			specs("vin"),
		},
		set: func(r *entity.ListingRecord, v string) { r.VIN = v },
	},
	{
		name: "title",
		strategies: []Strategy{
			dom(selTitle),
			hydration(func(p *preflight) flexString { return p.ListingTitle }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Title = v },
	},
	{
		name: "price",
		strategies: []Strategy{
			numeric(dom(selPrice)),
			numeric(hydration(func(p *preflight) flexString { return p.ListingPriceValue })),
			numeric(hydration(func(p *preflight) flexString { return p.Listing.Price })),
		},
		set: func(r *entity.ListingRecord, v string) {
			if price, ok := ParsePrice(v); ok {
				r.Price = &price
			}
		},
	},
	{
		name: "priceDisplay",
		strategies: []Strategy{
			dom(selPrice),
			hydration(func(p *preflight) flexString { return p.ListingPriceString }),
			hydration(func(p *preflight) flexString { return p.Listing.PriceString }),
		},
		set: func(r *entity.ListingRecord, v string) { r.PriceDisplay = v },
	},
	{
		name: "year",
		strategies: []Strategy{
			dom(statSelector("year")),
			hydration(func(p *preflight) flexString { return p.Listing.Year }),
			hydration(func(p *preflight) flexString { return p.ListingYear }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Year = v },
	},
	{
		name: "make",
		strategies: []Strategy{
			dom(statSelector("make")),
			hydration(func(p *preflight) flexString { return p.Listing.Make }),
			hydration(func(p *preflight) flexString { return p.ListingMake }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Make = v },
	},
	{
		name: "model",
		strategies: []Strategy{
			dom(statSelector("model")),
			hydration(func(p *preflight) flexString { return p.Listing.Model }),
			hydration(func(p *preflight) flexString { return p.ListingModel }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Model = v },
	},
	{
		name: "trim",
		strategies: []Strategy{
			dom(statSelector("trim")),
			hydration(func(p *preflight) flexString { return p.Listing.Trim }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Trim = v },
	},
	{
		name: "mileage",
		strategies: []Strategy{
			dom(statSelector("mileage")),
			hydration(func(p *preflight) flexString { return p.Listing.Mileage }),
			hydration(func(p *preflight) flexString { return p.Listing.Odometer }),
		},
		set: func(r *entity.ListingRecord, v string) { r.Mileage = v },
	},
	{
		name: "dealerName",
		strategies: []Strategy{
			dom(selDealerName),
			hydration(func(p *preflight) flexString { return p.Listing.DealerName }),
			hydration(func(p *preflight) flexString { return p.ListingSellerName }),
		},
		set: func(r *entity.ListingRecord, v string) { r.DealerName = v },
	},
	{
		name: "dealerCity",
		strategies: []Strategy{
			dom(selDealerCity),
			hydration(func(p *preflight) flexString { return p.Listing.DealerCity }),
			hydration(func(p *preflight) flexString { return p.ListingSellerCity }),
		},
		set: func(r *entity.ListingRecord, v string) { r.DealerCity = v },
	},
	{
		name:       "dealerAddress",
		strategies: []Strategy{dom(selDealerAddress)},
		set:        func(r *entity.ListingRecord, v string) { r.DealerAddress = v },
	},
	{
		name: "dealRating",
		strategies: []Strategy{
			hydration(func(p *preflight) flexString { return p.Listing.DealRating }),
			hydration(func(p *preflight) flexString { return p.Listing.DealBadge }),
		},
		set: func(r *entity.ListingRecord, v string) { r.DealRating = v },
	},
	{
		name: "bodyType",
		strategies: []Strategy{
			dom(statSelector("bodyType")),
			hydration(func(p *preflight) flexString { return p.Listing.BodyType }),
		},
		set: func(r *entity.ListingRecord, v string) { r.BodyType = v },
	},
	{
		name: "fuelType",
		strategies: []Strategy{
			dom(statSelector("fuelType")),
			specs("fuel"),
			specs("engine"),
		},
		set: func(r *entity.ListingRecord, v string) { r.FuelType = v },
	},
}

// readRecord 依次应用每个字段的策略, 返回记录以及每个字段实际使用的来源
func readRecord(d *detail) (entity.ListingRecord, map[string]Source) {
	var rec entity.ListingRecord
	sources := make(map[string]Source, len(fields))
	for _, f := range fields {
		for _, s := range f.strategies {
			v, ok := s.Read(d)
			if !ok {
				continue
			}
			f.set(&rec, v)
			sources[f.name] = s.Source
			break
		}
	}
	return rec, sources
}

// ParsePrice 只取第一个数字串, 去掉千分位后解析, 例如 "$45,990 $2,000 below market" → 45990
func ParsePrice(text string) (float64, bool) {
	start := strings.IndexFunc(text, isDigit)
	if start < 0 {
		return 0, false
	}
	run := text[start:]
	if end := strings.IndexFunc(run, func(r rune) bool { return !isDigit(r) && r != ',' && r != '.' }); end >= 0 {
		run = run[:end]
	}
	digits := strings.TrimRight(strings.ReplaceAll(run, ",", ""), ".")
	price, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, false
	}
	return price, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
