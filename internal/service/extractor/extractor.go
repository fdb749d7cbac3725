// Package extractor 逐条打开结果页上的车辆, 从详情页提取记录并发布
package extractor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/metrics"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/PuerkitoBio/goquery"
)

// lazyScrolls 计数前向下滚动的次数, 每次 1000px
const lazyScrolls = 3

var (
	errListingGone     = errors.New("listing anchor no longer present")
	errDetailNotLoaded = errors.New("detail view did not load")
)

// Publisher 发布一条有效记录
type Publisher interface {
	Publish(ctx context.Context, rec entity.ListingRecord) error
}

// PageResult 一页的处理统计
type PageResult struct {
	Page      int
	Found     int
	Attempted int
	Saved     int
	Invalid   int
	Failed    int
	Missing   int
}

type Extractor struct {
	browser   chrome.Browser
	publisher Publisher
	pacing    types.Pacing
	log       logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(browser chrome.Browser, publisher Publisher, pacing types.Pacing, log logger.Logger, m *metrics.Metrics, now func() time.Time) *Extractor {
	if now == nil {
		now = time.Now
	}
	return &Extractor{
		browser:   browser,
		publisher: publisher,
		pacing:    pacing,
		log:       log,
		metrics:   m,
		now:       now,
	}
}

// LoadLazyContent 分几次向下滚动, 让懒加载的车辆卡片渲染出来
func (e *Extractor) LoadLazyContent(ctx context.Context) {
	for i := 1; i <= lazyScrolls; i++ {
		if err := e.browser.Eval(ctx, jsScrollTo, nil, i*1000); err != nil {
			e.log.Warn("Lazy scroll failed", logger.Int("step", i), logger.Error(err))
			return
		}
		_ = types.Pause(ctx, e.pacing.Settle/2)
	}
	_ = types.Pause(ctx, e.pacing.Settle)
}

// CountListings 当前结果页上的车辆链接数量
func (e *Extractor) CountListings(ctx context.Context) (int, error) {
	var count int
	if err := e.browser.Eval(ctx, jsCountListings, &count, selListingAnchor); err != nil {
		return 0, fmt.Errorf("count listings: %w", err)
	}
	return count, nil
}

// ProcessPage 处理当前结果页上前 maxResults 条车辆
// 单条车辆的失败只影响它自己, 循环总是继续到下一条。
// 只有计数失败才返回错误
func (e *Extractor) ProcessPage(ctx context.Context, page, radius, maxResults int) (PageResult, error) {
	res := PageResult{Page: page}
	count, err := e.CountListings(ctx)
	if err != nil {
		return res, err
	}
	res.Found = count
	n := min(count, maxResults)
	e.log.Info("Listings found", logger.Int("page", page), logger.Int("found", count), logger.Int("processing", n))

	for i := range n {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		res.Attempted++
		outcome := e.processListing(ctx, i, page, radius)
		e.metrics.IncListing(outcome)
		switch outcome {
		case metrics.OutcomeSaved:
			res.Saved++
		case metrics.OutcomeInvalid:
			res.Invalid++
		case metrics.OutcomeMissing:
			res.Missing++
		default:
			res.Failed++
		}
		_ = types.Pause(ctx, e.pacing.Jitter())
	}
	return res, nil
}

// processListing 打开第 index 条车辆的详情页, 提取、发布后返回列表
func (e *Extractor) processListing(ctx context.Context, index, page, radius int) (outcome string) {
	log := e.log.With(logger.Int("page", page), logger.Int("index", index))
	defer func() {
		if r := recover(); r != nil {
			log.Error("Listing panicked", logger.Any("panic", r))
			e.backToList(ctx, log)
			outcome = metrics.OutcomeFailed
		}
	}()

	rec, err := e.openAndRead(ctx, index)
	switch {
	case errors.Is(err, errListingGone):
		log.Warn("Listing anchor missing, skipping")
		return metrics.OutcomeMissing
	case err != nil:
		log.Warn("Listing failed, returning to list", logger.Error(err))
		e.backToList(ctx, log)
		return metrics.OutcomeFailed
	}

	rec.PageNumber = page
	rec.SearchRadius = radius
	rec.ExtractedAt = e.now()
	logRecord(log, &rec)

	if !rec.Valid() {
		log.Warn("Listing has neither VIN nor title, not publishing", logger.String("url", rec.SourceURL))
		if err := e.returnToList(ctx); err != nil {
			log.Warn("Result list did not reappear", logger.Error(err))
		}
		return metrics.OutcomeInvalid
	}
	if err := e.publisher.Publish(ctx, rec); err != nil {
		log.Error("Publish failed", logger.String("vin", rec.VIN), logger.Error(err))
		e.backToList(ctx, log)
		return metrics.OutcomeFailed
	}
	if err := e.returnToList(ctx); err != nil {
		log.Warn("Result list did not reappear", logger.Error(err))
	}
	return metrics.OutcomeSaved
}

func (e *Extractor) openAndRead(ctx context.Context, index int) (entity.ListingRecord, error) {
	var rec entity.ListingRecord
	var clicked bool
	if err := e.browser.Eval(ctx, jsClickListing, &clicked, selListingAnchor, index); err != nil {
		return rec, fmt.Errorf("click listing: %w", err)
	}
	if !clicked {
		return rec, errListingGone
	}
	if err := e.browser.WaitVisible(ctx, selDetailMarker, e.pacing.DetailTimeout); err != nil {
		return rec, fmt.Errorf("%w: %w", errDetailNotLoaded, err)
	}
	_ = types.Pause(ctx, e.pacing.Settle)

	d, err := e.snapshot(ctx)
	if err != nil {
		return rec, err
	}
	rec, sources := readRecord(d)
	if url, err := e.browser.URL(ctx); err == nil {
		rec.SourceURL = url
	}
	e.log.Debug("Field sources", logger.Any("sources", sources))
	return rec, nil
}

// snapshot 读取详情页 DOM 和 hydration 数据, 两者任一缺失时另一个仍然可用
func (e *Extractor) snapshot(ctx context.Context) (*detail, error) {
	d := &detail{}
	html, htmlErr := e.browser.HTML(ctx)
	if htmlErr == nil {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
		if err != nil {
			htmlErr = err
		} else {
			d.doc = doc
		}
	}
	pfErr := e.browser.Eval(ctx, jsPreflight, &d.preflight)
	if htmlErr != nil && pfErr != nil {
		return nil, fmt.Errorf("read detail view: %w", errors.Join(htmlErr, pfErr))
	}
	if htmlErr != nil {
		e.log.Debug("Detail HTML unavailable", logger.Error(htmlErr))
	}
	if pfErr != nil {
		e.log.Debug("Preflight data unavailable", logger.Error(pfErr))
	}
	return d, nil
}

// returnToList 后退并等待结果列表重新出现
func (e *Extractor) returnToList(ctx context.Context) error {
	if err := e.browser.Back(ctx); err != nil {
		return fmt.Errorf("go back: %w", err)
	}
	if err := e.browser.WaitVisible(ctx, selListingAnchor, e.pacing.DetailTimeout); err != nil {
		return fmt.Errorf("wait for result list: %w", err)
	}
	return nil
}

// backToList 出错后的尽力恢复
func (e *Extractor) backToList(ctx context.Context, log logger.Logger) {
	if err := e.browser.Back(ctx); err != nil {
		log.Warn("Go back failed", logger.Error(err))
	}
	_ = types.Pause(ctx, e.pacing.Settle)
}

func logRecord(log logger.Logger, rec *entity.ListingRecord) {
	price := rec.PriceDisplay
	if rec.Price != nil {
		price = fmt.Sprintf("%.0f", *rec.Price)
	}
	log.Info("Listing extracted",
		logger.String("vin", rec.VIN),
		logger.String("title", rec.Title),
		logger.String("price", price),
		logger.String("year", rec.Year),
		logger.String("mileage", rec.Mileage),
		logger.String("body", rec.BodyType),
		logger.String("fuel", rec.FuelType),
		logger.String("dealer", rec.DealerName),
	)
}
