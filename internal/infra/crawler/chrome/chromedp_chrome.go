package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

var chromedpKeys = map[Key]string{
	KeyHome:       kb.Home,
	KeyArrowRight: kb.ArrowRight,
}

// ChromedpOptions chromedp 启动参数
type ChromedpOptions struct {
	UserDataDir          string
	Headless             bool
	DisableBlinkFeatures string
	Incognito            bool
	DisableDevShmUsage   bool
	NoSandbox            bool
}

type chromedpBrowser struct {
	allocCtxFuc context.CancelFunc
	pageCtx     context.Context
	pageCtxFuc  context.CancelFunc
}

// InitChromedpBrowser 页面生命周期绑定在 ctx 上, ctx 结束时浏览器随之关闭
func InitChromedpBrowser(ctx context.Context, setup PageSetup, opt ChromedpOptions) (Browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opt.Headless),
		chromedp.Flag("disable-blink-features", opt.DisableBlinkFeatures),
		chromedp.Flag("incognito", opt.Incognito),
		chromedp.Flag("disable-dev-shm-usage", opt.DisableDevShmUsage),
		chromedp.Flag("no-sandbox", opt.NoSandbox),
	)
	if opt.UserDataDir != "" {
		opts = append(opts, chromedp.UserDataDir(opt.UserDataDir))
	}
	if setup.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(setup.UserAgent))
	}
	if setup.ViewportWidth > 0 && setup.ViewportHeight > 0 {
		opts = append(opts, chromedp.WindowSize(setup.ViewportWidth, setup.ViewportHeight))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	pageCtx, cancelPage := chromedp.NewContext(allocCtx)
	cb := &chromedpBrowser{
		allocCtxFuc: cancelAlloc,
		pageCtx:     pageCtx,
		pageCtxFuc:  cancelPage,
	}

	if err := chromedp.Run(pageCtx, cb.setupActions(setup)...); err != nil {
		_ = cb.Close()
		return nil, fmt.Errorf("初始化页面失败: %w", err)
	}
	return cb, nil
}

func (cb *chromedpBrowser) setupActions(setup PageSetup) []chromedp.Action {
	var actions []chromedp.Action
	if setup.ViewportWidth > 0 && setup.ViewportHeight > 0 {
		actions = append(actions, emulation.SetDeviceMetricsOverride(int64(setup.ViewportWidth), int64(setup.ViewportHeight), 1, false))
	}
	if setup.UserAgent != "" {
		actions = append(actions, emulation.SetUserAgentOverride(setup.UserAgent).WithAcceptLanguage(setup.Locale))
	}
	if setup.Locale != "" {
		actions = append(actions, emulation.SetLocaleOverride().WithLocale(setup.Locale))
	}
	if setup.Timezone != "" {
		actions = append(actions, emulation.SetTimezoneOverride(setup.Timezone))
	}
	return actions
}

// run 在页面上下文中执行动作, 同时受调用方 ctx 和 timeout 约束
func (cb *chromedpBrowser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(cb.pageCtx)
	defer cancel()
	if timeout > 0 {
		runCtx, cancel = context.WithTimeout(runCtx, timeout)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (cb *chromedpBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := cb.run(ctx, timeout, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("导航到 %s 失败: %w", url, err)
	}
	return nil
}

func (cb *chromedpBrowser) URL(ctx context.Context) (string, error) {
	var url string
	err := cb.run(ctx, 0, chromedp.Location(&url))
	return url, err
}

func (cb *chromedpBrowser) Title(ctx context.Context) (string, error) {
	var title string
	err := cb.run(ctx, 0, chromedp.Title(&title))
	return title, err
}

func (cb *chromedpBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := cb.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("等待元素 %s 可见失败: %w", selector, err)
	}
	return nil
}

func (cb *chromedpBrowser) Click(ctx context.Context, selector string, timeout time.Duration) error {
	if err := cb.run(ctx, timeout, chromedp.Click(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("点击元素 %s 失败: %w", selector, err)
	}
	return nil
}

// SelectOption 设置值后补发 change 事件, 让前端框架感知到变化
func (cb *chromedpBrowser) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	const dispatch = `(sel) => document.querySelector(sel).dispatchEvent(new Event('change', { bubbles: true }))`
	err := cb.run(ctx, timeout,
		chromedp.SetValue(selector, value, chromedp.ByQuery),
		chromedp.Evaluate(callExpression(dispatch, selector), nil),
	)
	if err != nil {
		return fmt.Errorf("选择 %s=%s 失败: %w", selector, value, err)
	}
	return nil
}

func (cb *chromedpBrowser) PressKey(ctx context.Context, key Key) error {
	k, ok := chromedpKeys[key]
	if !ok {
		return fmt.Errorf("不支持的按键: %s", key)
	}
	return cb.run(ctx, 0, chromedp.KeyEvent(k))
}

func (cb *chromedpBrowser) Eval(ctx context.Context, js string, out any, args ...any) error {
	expr := callExpression(js, args...)
	if out == nil {
		if err := cb.run(ctx, 0, chromedp.Evaluate(expr, nil)); err != nil {
			return fmt.Errorf("执行脚本失败: %w", err)
		}
		return nil
	}
	var raw []byte
	if err := cb.run(ctx, 0, chromedp.Evaluate(expr, &raw)); err != nil {
		return fmt.Errorf("执行脚本失败: %w", err)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, out)
}

func (cb *chromedpBrowser) HTML(ctx context.Context) (string, error) {
	var html string
	err := cb.run(ctx, 0, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (cb *chromedpBrowser) Back(ctx context.Context) error {
	return cb.run(ctx, 0, chromedp.Evaluate(`history.back()`, nil))
}

func (cb *chromedpBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	err := cb.run(ctx, 0, chromedp.FullScreenshot(&buf, 100))
	return buf, err
}

func (cb *chromedpBrowser) Close() error {
	cb.pageCtxFuc()
	cb.allocCtxFuc()
	return nil
}

// callExpression 把函数表达式和参数拼成一次调用, 参数以 JSON 字面量传入
func callExpression(js string, args ...any) string {
	encoded := make([]string, 0, len(args))
	for _, arg := range args {
		b, err := json.Marshal(arg)
		if err != nil {
			b = []byte("null")
		}
		encoded = append(encoded, string(b))
	}
	return fmt.Sprintf("(%s)(%s)", js, strings.Join(encoded, ", "))
}
