package filter

// 搜索页上筛选控件的选择器
const (
	selDistance           = `select[data-testid="select-filter-distance"]`
	selBodyStyleAccordion = `#BodyStyle-accordion-trigger`
	selMakeAccordion      = `#MakeAndModel-accordion-trigger`
	selPriceAccordion     = `#Price-accordion-trigger`
	selMinPriceSlider     = `[role="slider"][aria-label="Minimum"]`
	selDealAccordion      = `#DealRating-accordion-trigger`
	selSortCombobox       = `button[role="combobox"][aria-label="Sort by:"]`
	selSortOption         = `div[role="option"]`
)

// jsClickOptionByText 点击第一个文本包含 text 的选项, 找不到返回 false
const jsClickOptionByText = `(sel, text) => {
	const option = [...document.querySelectorAll(sel)].find((o) => o.textContent.includes(text));
	if (!option) return false;
	option.click();
	return true;
}`

// 车身类型按钮 id 中的标记; 基础 URL 已经选中 SUV / Crossover
var bodyTypeTokens = map[string]string{
	"Pickup Truck": "PICKUP",
	"Sedan":        "SEDAN",
	"Coupe":        "COUPE",
	"Minivan":      "MINIVAN",
	"Hatchback":    "HATCHBACK",
	"Convertible":  "CONVERTIBLE",
	"Wagon":        "WAGON",
	"Van":          "VAN",
}

func makeSelector(brand string) string {
	return `#FILTER\.MAKE_MODEL\.` + makeID(brand)
}

func dealRatingSelector(tag string) string {
	return `#FILTER\.DEAL_RATING\.` + tag
}

func bodyTypeSelector(token string) string {
	return `button[id*="` + token + `"]`
}
