package param

// Filters 搜索页上依次应用的筛选条件
type Filters struct {
	Makes       []string `json:"makes" mapstructure:"makes"`
	BodyTypes   []string `json:"body_types" mapstructure:"body_types"`
	MinPrice    int      `json:"min_price" mapstructure:"min_price"`
	DealRatings []string `json:"deal_ratings" mapstructure:"deal_ratings"`
}

// RunInput 单次运行的输入参数
// CurrentPage 为 0 表示未设置, 由持久化状态决定起始页
type RunInput struct {
	SearchRadius int     `json:"search_radius" mapstructure:"search_radius"`
	CurrentPage  int     `json:"current_page" mapstructure:"current_page"`
	MaxPages     int     `json:"max_pages" mapstructure:"max_pages"`
	MaxResults   int     `json:"max_results" mapstructure:"max_results"`
	WindowSize   int     `json:"window_size" mapstructure:"window_size"`
	Filters      Filters `json:"filters" mapstructure:"filters"`
}

const (
	DefaultSearchRadius = 50000
	DefaultMaxPages     = 73
	DefaultMaxResults   = 24
	DefaultWindowSize   = 3
	DefaultMinPrice     = 35000
)

func DefaultRunInput() RunInput {
	return RunInput{
		SearchRadius: DefaultSearchRadius,
		MaxPages:     DefaultMaxPages,
		MaxResults:   DefaultMaxResults,
		WindowSize:   DefaultWindowSize,
		Filters: Filters{
			Makes:       []string{"Ford", "GMC", "Chevrolet", "Cadillac"},
			BodyTypes:   []string{"SUV / Crossover", "Pickup Truck"},
			MinPrice:    DefaultMinPrice,
			DealRatings: []string{"GREAT_PRICE", "GOOD_PRICE", "FAIR_PRICE"},
		},
	}
}

func (in *RunInput) IsValid() bool {
	if in.SearchRadius <= 0 ||
		in.CurrentPage < 0 ||
		in.MaxPages <= 0 ||
		in.MaxResults <= 0 ||
		in.WindowSize <= 0 ||
		in.Filters.MinPrice < 0 {
		return false
	}
	return true
}
