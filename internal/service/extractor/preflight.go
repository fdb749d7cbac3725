package extractor

import (
	"bytes"
	"encoding/json"
	"strings"
)

// flexString 接受字符串、数字或 null; 其他类型按空值处理
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(strings.TrimSpace(s))
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*f = flexString(data)
	default:
		*f = ""
	}
	return nil
}

func (f flexString) value() (string, bool) {
	return string(f), f != ""
}

type spec struct {
	Label flexString `json:"label"`
	Value flexString `json:"value"`
}

type preflightListing struct {
	VIN         flexString `json:"vin"`
	Price       flexString `json:"price"`
	PriceString flexString `json:"priceString"`
	Year        flexString `json:"year"`
	Make        flexString `json:"make"`
	Model       flexString `json:"model"`
	Trim        flexString `json:"trim"`
	Mileage     flexString `json:"mileage"`
	Odometer    flexString `json:"odometer"`
	DealerName  flexString `json:"dealerName"`
	DealerCity  flexString `json:"dealerCity"`
	DealRating  flexString `json:"dealRating"`
	DealBadge   flexString `json:"dealBadge"`
	BodyType    flexString `json:"bodyType"`
	Specs       []spec     `json:"specs"`
}

// preflight 页面加载时嵌入的 window.__PREFLIGHT__ 数据
type preflight struct {
	ListingTitle       flexString       `json:"listingTitle"`
	ListingPriceValue  flexString       `json:"listingPriceValue"`
	ListingPriceString flexString       `json:"listingPriceString"`
	ListingYear        flexString       `json:"listingYear"`
	ListingMake        flexString       `json:"listingMake"`
	ListingModel       flexString       `json:"listingModel"`
	ListingSellerName  flexString       `json:"listingSellerName"`
	ListingSellerCity  flexString       `json:"listingSellerCity"`
	Listing            preflightListing `json:"listing"`
}

// specValue 在规格列表中按标签子串(不区分大小写)查找第一个非空值
func (p *preflight) specValue(labelSubstr string) (string, bool) {
	needle := strings.ToLower(labelSubstr)
	for _, s := range p.Listing.Specs {
		if s.Label == "" || s.Value == "" {
			continue
		}
		if strings.Contains(strings.ToLower(string(s.Label)), needle) {
			return string(s.Value), true
		}
	}
	return "", false
}
