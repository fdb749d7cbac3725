package chrome

import (
	"context"
	"time"
)

// Key 键盘按键, 取值与 DOM KeyboardEvent.key 一致
type Key string

const (
	KeyHome       Key = "Home"
	KeyArrowRight Key = "ArrowRight"
)

// Browser 单页面的浏览器自动化能力
// 所有选择器均为 CSS 选择器; Eval 的 js 必须是函数表达式, 例如 `(i) => i + 1`,
// 返回值以 JSON 解码到 out (out 为 nil 时丢弃)
type Browser interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	URL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Click(ctx context.Context, selector string, timeout time.Duration) error
	SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error
	PressKey(ctx context.Context, key Key) error
	Eval(ctx context.Context, js string, out any, args ...any) error
	HTML(ctx context.Context) (string, error)
	Back(ctx context.Context) error
	Screenshot(ctx context.Context) ([]byte, error)
	Close() error
}

// PageSetup 新页面的上下文参数
type PageSetup struct {
	UserAgent      string
	Locale         string
	Timezone       string
	ViewportWidth  int
	ViewportHeight int
}
