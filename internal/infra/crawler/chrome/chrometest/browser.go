// Package chrometest 提供可编程的 chrome.Browser 假实现, 供服务层测试使用
package chrometest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
)

type Call struct {
	Method string
	Arg    string
}

// Browser 每个操作都记录到 Calls; 对应的 Func 为空时操作直接成功
type Browser struct {
	mu    sync.Mutex
	calls []Call

	CurrentURL string
	PageTitle  string
	Closed     bool

	NavigateFunc     func(url string) error
	WaitVisibleFunc  func(selector string) error
	ClickFunc        func(selector string) error
	SelectOptionFunc func(selector, value string) error
	PressKeyFunc     func(key chrome.Key) error
	EvalFunc         func(js string, args []any) (any, error)
	HTMLFunc         func() (string, error)
	BackFunc         func() error
	ScreenshotFunc   func() ([]byte, error)
}

var _ chrome.Browser = (*Browser)(nil)

func New() *Browser {
	return &Browser{}
}

func (b *Browser) record(method, arg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, Call{Method: method, Arg: arg})
}

// Calls 返回所有已记录调用的副本
func (b *Browser) Calls() []Call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Call(nil), b.calls...)
}

// CallsTo 只返回指定方法的调用
func (b *Browser) CallsTo(method string) []Call {
	var out []Call
	for _, c := range b.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (b *Browser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	b.record("Navigate", url)
	if b.NavigateFunc != nil {
		if err := b.NavigateFunc(url); err != nil {
			return err
		}
	}
	b.CurrentURL = url
	return nil
}

func (b *Browser) URL(ctx context.Context) (string, error) {
	b.record("URL", "")
	return b.CurrentURL, nil
}

func (b *Browser) Title(ctx context.Context) (string, error) {
	b.record("Title", "")
	return b.PageTitle, nil
}

func (b *Browser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	b.record("WaitVisible", selector)
	if b.WaitVisibleFunc != nil {
		return b.WaitVisibleFunc(selector)
	}
	return nil
}

func (b *Browser) Click(ctx context.Context, selector string, timeout time.Duration) error {
	b.record("Click", selector)
	if b.ClickFunc != nil {
		return b.ClickFunc(selector)
	}
	return nil
}

func (b *Browser) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	b.record("SelectOption", selector+"="+value)
	if b.SelectOptionFunc != nil {
		return b.SelectOptionFunc(selector, value)
	}
	return nil
}

func (b *Browser) PressKey(ctx context.Context, key chrome.Key) error {
	b.record("PressKey", string(key))
	if b.PressKeyFunc != nil {
		return b.PressKeyFunc(key)
	}
	return nil
}

// Eval 把 EvalFunc 的返回值经过一次 JSON 编解码写入 out, 与真实驱动的行为一致
func (b *Browser) Eval(ctx context.Context, js string, out any, args ...any) error {
	b.record("Eval", js)
	if b.EvalFunc == nil {
		return nil
	}
	res, err := b.EvalFunc(js, args)
	if err != nil {
		return err
	}
	if out == nil || res == nil {
		return nil
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal eval result: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (b *Browser) HTML(ctx context.Context) (string, error) {
	b.record("HTML", "")
	if b.HTMLFunc != nil {
		return b.HTMLFunc()
	}
	return "<html><body></body></html>", nil
}

func (b *Browser) Back(ctx context.Context) error {
	b.record("Back", "")
	if b.BackFunc != nil {
		return b.BackFunc()
	}
	return nil
}

func (b *Browser) Screenshot(ctx context.Context) ([]byte, error) {
	b.record("Screenshot", "")
	if b.ScreenshotFunc != nil {
		return b.ScreenshotFunc()
	}
	return []byte("\x89PNG"), nil
}

func (b *Browser) Close() error {
	b.record("Close", "")
	b.Closed = true
	return nil
}
