package chrome

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/options"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

var rodKeys = map[Key]input.Key{
	KeyHome:       input.Home,
	KeyArrowRight: input.ArrowRight,
}

type rodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// InitRodBrowser 启动浏览器并打开一个带 stealth 脚本的页面
func InitRodBrowser(setup PageSetup, opts ...options.LauncherOption) (Browser, error) {
	l := options.CreateLauncher(opts...)
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("启动浏览器失败: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("连接浏览器失败: %w", err)
	}

	page, err := stealth.Page(browser)
	if err != nil {
		_ = browser.Close()
		l.Kill()
		return nil, fmt.Errorf("创建页面失败: %w", err)
	}

	rb := &rodBrowser{launcher: l, browser: browser, page: page}
	if err := rb.applySetup(setup); err != nil {
		_ = rb.Close()
		return nil, err
	}
	return rb, nil
}

func (rb *rodBrowser) applySetup(setup PageSetup) error {
	if setup.ViewportWidth > 0 && setup.ViewportHeight > 0 {
		err := rb.page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             setup.ViewportWidth,
			Height:            setup.ViewportHeight,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			return fmt.Errorf("设置视口失败: %w", err)
		}
	}
	if setup.UserAgent != "" {
		err := rb.page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent:      setup.UserAgent,
			AcceptLanguage: setup.Locale,
		})
		if err != nil {
			return fmt.Errorf("设置 User-Agent 失败: %w", err)
		}
	}
	if setup.Locale != "" {
		if err := (proto.EmulationSetLocaleOverride{Locale: setup.Locale}).Call(rb.page); err != nil {
			return fmt.Errorf("设置语言失败: %w", err)
		}
	}
	if setup.Timezone != "" {
		if err := (proto.EmulationSetTimezoneOverride{TimezoneID: setup.Timezone}).Call(rb.page); err != nil {
			return fmt.Errorf("设置时区失败: %w", err)
		}
	}
	return nil
}

// bounded 与 chromedp 一致: timeout <= 0 时只受 ctx 约束
func bounded(ctx context.Context, page *rod.Page, timeout time.Duration) *rod.Page {
	page = page.Context(ctx)
	if timeout > 0 {
		page = page.Timeout(timeout)
	}
	return page
}

func (rb *rodBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	page := bounded(ctx, rb.page, timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("导航到 %s 失败: %w", url, err)
	}
	if err := page.WaitDOMStable(time.Second, 0.1); err != nil {
		return fmt.Errorf("等待页面加载失败: %w", err)
	}
	return nil
}

func (rb *rodBrowser) URL(ctx context.Context) (string, error) {
	info, err := rb.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (rb *rodBrowser) Title(ctx context.Context) (string, error) {
	info, err := rb.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (rb *rodBrowser) element(ctx context.Context, selector string, timeout time.Duration) (*rod.Element, error) {
	el, err := bounded(ctx, rb.page, timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("查找元素 %s 失败: %w", selector, err)
	}
	return el, nil
}

func (rb *rodBrowser) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := rb.element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.WaitVisible(); err != nil {
		return fmt.Errorf("等待元素 %s 可见失败: %w", selector, err)
	}
	return nil
}

func (rb *rodBrowser) Click(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := rb.element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	if err := el.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("点击元素 %s 失败: %w", selector, err)
	}
	return nil
}

func (rb *rodBrowser) SelectOption(ctx context.Context, selector, value string, timeout time.Duration) error {
	el, err := rb.element(ctx, selector, timeout)
	if err != nil {
		return err
	}
	option := fmt.Sprintf("option[value=%q]", value)
	if err := el.Select([]string{option}, true, rod.SelectorTypeCSSSector); err != nil {
		return fmt.Errorf("选择 %s=%s 失败: %w", selector, value, err)
	}
	return nil
}

func (rb *rodBrowser) PressKey(ctx context.Context, key Key) error {
	k, ok := rodKeys[key]
	if !ok {
		return fmt.Errorf("不支持的按键: %s", key)
	}
	return rb.page.Context(ctx).Keyboard.Type(k)
}

func (rb *rodBrowser) Eval(ctx context.Context, js string, out any, args ...any) error {
	res, err := rb.page.Context(ctx).Eval(js, args...)
	if err != nil {
		return fmt.Errorf("执行脚本失败: %w", err)
	}
	if out == nil {
		return nil
	}
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("读取脚本结果失败: %w", err)
	}
	return json.Unmarshal(raw, out)
}

func (rb *rodBrowser) HTML(ctx context.Context) (string, error) {
	return rb.page.Context(ctx).HTML()
}

func (rb *rodBrowser) Back(ctx context.Context) error {
	return rb.page.Context(ctx).NavigateBack()
}

func (rb *rodBrowser) Screenshot(ctx context.Context) ([]byte, error) {
	return rb.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (rb *rodBrowser) Close() error {
	err := rb.browser.Close()
	rb.launcher.Kill()
	return err
}
