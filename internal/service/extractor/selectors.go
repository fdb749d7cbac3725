package extractor

// 结果列表
const (
	selListingAnchor = `a[data-testid="car-blade-link"]`
	selDetailMarker  = `div[data-cg-ft="listing-vdp-stats"]`
)

// 详情页
const (
	selTitle         = `h1[data-cg-ft="vdp-listing-title"]`
	selPrice         = `div._price_1yep1_1 h2`
	selDealerName    = `[data-testid="dealerName"]`
	selDealerCity    = `hgroup p.oqywn.sCSIz`
	selDealerAddress = `[data-testid="dealerAddress"] span[data-track-ui="dealer-address"]`
)

// statSelector 详情页统计区块中某一项的值, 例如 vin、mileage
func statSelector(field string) string {
	return `div[data-cg-ft="` + field + `"] span._value_ujq1z_13`
}

const (
	jsScrollTo = `(top) => window.scrollTo({ top: top, behavior: 'smooth' })`

	jsCountListings = `(sel) => document.querySelectorAll(sel).length`

	// jsClickListing 每次按下标重新查询, 列表在两次点击之间可能已经变化
	jsClickListing = `(sel, i) => {
	const links = document.querySelectorAll(sel);
	if (!links[i]) return false;
	links[i].click();
	return true;
}`

	// jsPreflight 只取需要的字段, 避免把整个 hydration 对象传回来
	jsPreflight = `() => {
	const p = window.__PREFLIGHT__ || {};
	const l = p.listing || {};
	return {
		listingTitle: p.listingTitle,
		listingPriceValue: p.listingPriceValue,
		listingPriceString: p.listingPriceString,
		listingYear: p.listingYear,
		listingMake: p.listingMake,
		listingModel: p.listingModel,
		listingSellerName: p.listingSellerName,
		listingSellerCity: p.listingSellerCity,
		listing: {
			vin: l.vin,
			price: l.price,
			priceString: l.priceString,
			year: l.year,
			make: l.make,
			model: l.model,
			trim: l.trim,
			mileage: l.mileage,
			odometer: l.odometer,
			dealerName: l.dealerName,
			dealerCity: l.dealerCity,
			dealRating: l.dealRating,
			dealBadge: l.dealBadge,
			bodyType: l.bodyType,
			specs: Array.isArray(l.specs) ? l.specs.map((s) => ({ label: s && s.label, value: s && s.value })) : [],
		},
	};
}`
)
