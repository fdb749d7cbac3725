package entity

import "time"

// DateLayout lastScrapedDate 的日期格式
const DateLayout = "2006-01-02"

// RunState 跨运行持久化的分页进度
// NextPage 永远是尚未确认完成的最小页码, 只在一整页处理结束后前进
type RunState struct {
	NextPage        int       `json:"nextPage"`
	LastScrapedDate string    `json:"lastScrapedDate,omitempty"`
	BaseURL         string    `json:"baseUrl,omitempty"`
	SearchRadius    int       `json:"searchRadius,omitempty"`
	LastScraped     time.Time `json:"lastScraped,omitempty"`
	LastPage        int       `json:"lastPage,omitempty"`
	PagesScraped    []int     `json:"pagesScraped,omitempty"`
}
