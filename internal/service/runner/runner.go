// Package runner 一次完整的抓取: 打开搜索页, 应用筛选, 按批次窗口逐页处理并保存进度
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/metrics"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/kv"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/internal/service/extractor"
	"github.com/LouYuanbo1/listingcrawler/internal/service/filter"
	"github.com/LouYuanbo1/listingcrawler/internal/service/navigator"
	"github.com/LouYuanbo1/listingcrawler/internal/service/scheduler"
	"github.com/LouYuanbo1/listingcrawler/param"
)

type Filters interface {
	Apply(ctx context.Context, radius int, f param.Filters) (filter.Result, error)
}

type Navigator interface {
	GoTo(ctx context.Context, current, target int) navigator.Outcome
}

type Extractor interface {
	LoadLazyContent(ctx context.Context)
	ProcessPage(ctx context.Context, page, radius, maxResults int) (extractor.PageResult, error)
}

// Deps 由 cmd 组装
type Deps struct {
	Browser   chrome.Browser
	Scheduler *scheduler.Scheduler
	Filters   Filters
	Navigator Navigator
	Extractor Extractor
	// Debug 零条结果时的截图存放位置, 通常与状态共用一个存储
	Debug kv.Store
}

type Options struct {
	BaseURL string
	Input   param.RunInput
	Pacing  types.Pacing
}

// Summary 一次运行的结果
type Summary struct {
	Plan        scheduler.Plan
	FilteredURL string
	Pages       []extractor.PageResult
	Saved       int
}

type Runner struct {
	deps    Deps
	opts    Options
	log     logger.Logger
	metrics *metrics.Metrics
}

func New(deps Deps, opts Options, log logger.Logger, m *metrics.Metrics) *Runner {
	return &Runner{deps: deps, opts: opts, log: log, metrics: m}
}

// ScreenshotKey 零条结果页面截图的存储键
func ScreenshotKey(page int) string {
	return fmt.Sprintf("debug-screenshot-page%d.png", page)
}

// Run 结束时总会关闭浏览器
// 页面循环中的 panic 会被转换为错误返回; 已完成的页面进度已经保存, 下次运行从断点继续
func (r *Runner) Run(ctx context.Context) (summary Summary, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("run aborted: %v", rec)
			r.log.Error("Run aborted by panic", logger.Any("panic", rec))
		}
		if cerr := r.deps.Browser.Close(); cerr != nil {
			r.log.Warn("Close browser failed", logger.Error(cerr))
		}
	}()

	in := r.opts.Input
	plan, err := r.deps.Scheduler.Plan(ctx, in)
	if err != nil {
		return summary, err
	}
	summary.Plan = plan
	if plan.Exhausted() {
		r.log.Info("All pages scraped", logger.Int("startPage", plan.StartPage), logger.Int("maxPages", plan.MaxPages))
		return summary, nil
	}

	r.log.Info("Opening search page", logger.String("url", r.opts.BaseURL))
	if err := r.deps.Browser.Navigate(ctx, r.opts.BaseURL, r.opts.Pacing.InitialLoad); err != nil {
		return summary, fmt.Errorf("open search page: %w", err)
	}
	_ = types.Pause(ctx, r.opts.Pacing.PageSettle)

	summary.FilteredURL = r.applyFilters(ctx, in)
	_ = types.Pause(ctx, r.opts.Pacing.PageSettle)

	current := 1
	for _, page := range plan.Pages {
		if err := ctx.Err(); err != nil {
			r.log.Warn("Run stopped before page", logger.Int("page", page), logger.Error(err))
			return summary, err
		}
		res, err := r.processPage(ctx, current, page)
		if err != nil {
			return summary, err
		}
		current = page
		summary.Pages = append(summary.Pages, res)
		summary.Saved += res.Saved

		if _, err := r.deps.Scheduler.Checkpoint(ctx, plan, page, summary.FilteredURL, in.SearchRadius); err != nil {
			return summary, err
		}
	}

	r.log.Info("Run complete",
		logger.Int("pagesProcessed", len(summary.Pages)),
		logger.Int("listingsSaved", summary.Saved),
		logger.Ints("pages", plan.Pages),
	)
	return summary, nil
}

// applyFilters 读取 URL 失败时退回基础 URL
func (r *Runner) applyFilters(ctx context.Context, in param.RunInput) string {
	res, err := r.deps.Filters.Apply(ctx, in.SearchRadius, in.Filters)
	if err != nil || res.FilteredURL == "" {
		r.log.Warn("Filtered URL unavailable, keeping base URL", logger.Error(err))
		return filter.StripFragment(r.opts.BaseURL)
	}
	r.log.Info("Filters applied",
		logger.String("filteredUrl", res.FilteredURL),
		logger.Strings("failedSteps", res.FailedSteps),
	)
	return res.FilteredURL
}

// processPage 只有 ctx 结束才返回错误; 其他失败都当作空页处理
func (r *Runner) processPage(ctx context.Context, current, page int) (extractor.PageResult, error) {
	start := time.Now()
	in := r.opts.Input

	r.deps.Navigator.GoTo(ctx, current, page)
	r.deps.Extractor.LoadLazyContent(ctx)

	res, err := r.deps.Extractor.ProcessPage(ctx, page, in.SearchRadius, in.MaxResults)
	if err != nil {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		r.log.Warn("Page processing failed, treating as empty", logger.Int("page", page), logger.Error(err))
		res = extractor.PageResult{Page: page}
	}
	if res.Found == 0 {
		r.captureEmptyPage(ctx, page)
	}

	r.metrics.IncPage(res.Found == 0)
	r.metrics.ObservePage(time.Since(start).Seconds())
	r.log.Info("Page done",
		logger.Int("page", page),
		logger.Int("found", res.Found),
		logger.Int("saved", res.Saved),
		logger.Int("invalid", res.Invalid),
		logger.Int("failed", res.Failed),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

// captureEmptyPage 记录 URL、标题并保存整页截图, 用于排查
func (r *Runner) captureEmptyPage(ctx context.Context, page int) {
	url, _ := r.deps.Browser.URL(ctx)
	title, _ := r.deps.Browser.Title(ctx)
	r.log.Warn("No listings found, skipping page",
		logger.Int("page", page),
		logger.String("url", url),
		logger.String("title", title),
	)
	if r.deps.Debug == nil {
		return
	}
	png, err := r.deps.Browser.Screenshot(ctx)
	if err != nil {
		r.log.Warn("Screenshot failed", logger.Int("page", page), logger.Error(err))
		return
	}
	if err := r.deps.Debug.Set(ctx, ScreenshotKey(page), png); err != nil {
		r.log.Warn("Save screenshot failed", logger.Int("page", page), logger.Error(err))
	}
}
