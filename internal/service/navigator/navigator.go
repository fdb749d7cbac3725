// Package navigator 把结果列表从当前页移动到目标页
package navigator

import (
	"context"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
)

const selNextPage = `button[data-testid="srp-desktop-page-navigation-next-page"]`

const (
	jsScrollBottom = `() => window.scrollTo(0, document.body.scrollHeight)`
	jsScrollTop    = `() => window.scrollTo(0, 0)`
	jsHashJump     = `(page) => { window.location.hash = "resultsPage=" + page; }`
)

// Outcome 一次导航的结果, 仅用于日志和测试
type Outcome struct {
	From     int
	To       int
	Clicks   int
	Fallback bool
}

type Navigator struct {
	browser chrome.Browser
	pacing  types.Pacing
	log     logger.Logger
}

func New(browser chrome.Browser, pacing types.Pacing, log logger.Logger) *Navigator {
	return &Navigator{browser: browser, pacing: pacing, log: log}
}

// GoTo 从第 current 页前进到第 target 页
// 优先逐页点击"下一页"; 任一次等待或点击失败后改为直接修改 URL 片段跳到目标页, 并停止继续点击。
// 导航失败不会返回错误, 调用方通过随后的列表数量检查发现异常
func (n *Navigator) GoTo(ctx context.Context, current, target int) Outcome {
	out := Outcome{From: current, To: target}
	if target < current {
		n.log.Warn("Backward navigation not supported", logger.Int("current", current), logger.Int("target", target))
		out.To = current
		return out
	}
	if target == current {
		return out
	}

	steps := target - current
	n.log.Info("Navigating", logger.Int("from", current), logger.Int("to", target), logger.Int("clicks", steps))
	for i := range steps {
		if err := n.clickNext(ctx); err != nil {
			n.log.Warn("Next button failed, falling back to hash navigation",
				logger.Int("click", i+1),
				logger.Int("target", target),
				logger.Error(err),
			)
			n.hashJump(ctx, target)
			out.Fallback = true
			break
		}
		out.Clicks++
		n.log.Debug("Clicked next", logger.Int("click", i+1), logger.Int("of", steps))
	}

	if err := n.browser.Eval(ctx, jsScrollTop, nil); err != nil {
		n.log.Warn("Scroll to top failed", logger.Error(err))
	}
	_ = types.Pause(ctx, n.pacing.Settle/2)
	return out
}

func (n *Navigator) clickNext(ctx context.Context) error {
	if err := n.browser.Eval(ctx, jsScrollBottom, nil); err != nil {
		return err
	}
	_ = types.Pause(ctx, n.pacing.Settle/2)
	if err := n.browser.WaitVisible(ctx, selNextPage, n.pacing.NextButtonTimeout); err != nil {
		return err
	}
	if err := n.browser.Click(ctx, selNextPage, n.pacing.NextButtonTimeout); err != nil {
		return err
	}
	return types.Pause(ctx, n.pacing.PageSettle)
}

// hashJump 跳转是否真正落在目标页无法确认, 只作为尽力而为的提示
func (n *Navigator) hashJump(ctx context.Context, target int) {
	if err := n.browser.Eval(ctx, jsHashJump, nil, target); err != nil {
		n.log.Warn("Hash navigation failed", logger.Int("target", target), logger.Error(err))
		return
	}
	_ = types.Pause(ctx, n.pacing.PageSettle)
}
