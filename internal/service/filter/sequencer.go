// Package filter 在搜索页上依次应用筛选条件
//
// 顺序固定: 距离 → 车身类型 → 品牌 → 最低价格 → 评级 → 按最新排序。
// 排序必须最后应用, 否则会被前面步骤引起的重新渲染重置。
// 每一步相互独立, 失败只记录日志, 不影响后续步骤。
package filter

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/metrics"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/param"
)

// 步骤名, 同时用作指标标签
const (
	StepRadius     = "radius"
	StepBodyType   = "body_type"
	StepMake       = "make"
	StepMinPrice   = "min_price"
	StepDealRating = "deal_rating"
	StepSort       = "sort"
)

type Options struct {
	SortLabel  string
	PriceSteps map[int]int
	Pacing     types.Pacing
}

type Sequencer struct {
	browser chrome.Browser
	opts    Options
	log     logger.Logger
	metrics *metrics.Metrics
}

// Result FilteredURL 已去掉 # 片段
type Result struct {
	FilteredURL string
	FailedSteps []string
}

type step struct {
	name  string
	apply func(ctx context.Context) error
}

func NewSequencer(browser chrome.Browser, opts Options, log logger.Logger, m *metrics.Metrics) *Sequencer {
	return &Sequencer{browser: browser, opts: opts, log: log, metrics: m}
}

// Apply 只有读取当前 URL 失败才返回错误
func (s *Sequencer) Apply(ctx context.Context, radius int, f param.Filters) (Result, error) {
	steps := []step{
		{name: StepRadius, apply: func(ctx context.Context) error { return s.setRadius(ctx, radius) }},
		{name: StepBodyType, apply: func(ctx context.Context) error { return s.applyBodyTypes(ctx, f.BodyTypes) }},
		{name: StepMake, apply: func(ctx context.Context) error { return s.applyMakes(ctx, f.Makes) }},
		{name: StepMinPrice, apply: func(ctx context.Context) error { return s.applyMinPrice(ctx, f.MinPrice) }},
		{name: StepDealRating, apply: func(ctx context.Context) error { return s.applyDealRatings(ctx, f.DealRatings) }},
		{name: StepSort, apply: s.sortByNewest},
	}

	var res Result
	for _, st := range steps {
		if err := st.apply(ctx); err != nil {
			s.log.Warn("Filter step failed, continuing", logger.String("step", st.name), logger.Error(err))
			s.metrics.IncFilterFailure(st.name)
			res.FailedSteps = append(res.FailedSteps, st.name)
			continue
		}
		s.log.Info("Filter step applied", logger.String("step", st.name))
	}

	_ = types.Pause(ctx, s.opts.Pacing.Settle)
	current, err := s.browser.URL(ctx)
	if err != nil {
		return res, fmt.Errorf("read filtered url: %w", err)
	}
	res.FilteredURL = StripFragment(current)
	s.log.Info("Filters applied",
		logger.String("filteredUrl", res.FilteredURL),
		logger.Strings("failedSteps", res.FailedSteps),
	)
	return res, nil
}

func (s *Sequencer) setRadius(ctx context.Context, radius int) error {
	timeout := s.opts.Pacing.ControlTimeout
	if err := s.browser.WaitVisible(ctx, selDistance, timeout); err != nil {
		return err
	}
	if err := s.browser.SelectOption(ctx, selDistance, strconv.Itoa(radius), timeout); err != nil {
		return err
	}
	return types.Pause(ctx, s.opts.Pacing.Settle)
}

func (s *Sequencer) applyBodyTypes(ctx context.Context, bodyTypes []string) error {
	if len(bodyTypes) == 0 {
		return nil
	}
	if err := s.openAccordion(ctx, selBodyStyleAccordion); err != nil {
		return err
	}
	var errs []error
	for _, bodyType := range bodyTypes {
		token, ok := bodyTypeToken(bodyType)
		if !ok {
			continue
		}
		if err := s.toggle(ctx, bodyTypeSelector(token)); err != nil {
			errs = append(errs, fmt.Errorf("body type %s: %w", bodyType, err))
		}
	}
	return s.settleAfter(ctx, errs)
}

func (s *Sequencer) applyMakes(ctx context.Context, makes []string) error {
	if len(makes) == 0 {
		return nil
	}
	if err := s.openAccordion(ctx, selMakeAccordion); err != nil {
		return err
	}
	var errs []error
	for _, brand := range makes {
		if err := s.toggle(ctx, makeSelector(brand)); err != nil {
			s.log.Warn("Could not select make", logger.String("make", brand), logger.Error(err))
			errs = append(errs, fmt.Errorf("make %s: %w", brand, err))
		}
	}
	return s.settleAfter(ctx, errs)
}

// applyMinPrice 滑块没有可输入的文本框, 只能先按 Home 归零再按 ArrowRight 逐格移动
func (s *Sequencer) applyMinPrice(ctx context.Context, minPrice int) error {
	if minPrice <= 0 {
		return nil
	}
	steps, ok := s.opts.PriceSteps[minPrice]
	if !ok {
		return fmt.Errorf("no slider position known for min price %d", minPrice)
	}
	if err := s.openAccordion(ctx, selPriceAccordion); err != nil {
		return err
	}
	timeout := s.opts.Pacing.ControlTimeout
	if err := s.browser.WaitVisible(ctx, selMinPriceSlider, timeout); err != nil {
		return err
	}
	if err := s.browser.Click(ctx, selMinPriceSlider, timeout); err != nil {
		return err
	}
	if err := s.browser.PressKey(ctx, chrome.KeyHome); err != nil {
		return err
	}
	gap := s.opts.Pacing.Settle / 40
	for range steps {
		if err := s.browser.PressKey(ctx, chrome.KeyArrowRight); err != nil {
			return err
		}
		_ = types.Pause(ctx, gap)
	}
	return types.Pause(ctx, s.opts.Pacing.Settle)
}

func (s *Sequencer) applyDealRatings(ctx context.Context, ratings []string) error {
	if len(ratings) == 0 {
		return nil
	}
	if err := s.openAccordion(ctx, selDealAccordion); err != nil {
		return err
	}
	var errs []error
	for _, rating := range ratings {
		if err := s.toggle(ctx, dealRatingSelector(rating)); err != nil {
			s.log.Warn("Could not select deal rating", logger.String("rating", rating), logger.Error(err))
			errs = append(errs, fmt.Errorf("deal rating %s: %w", rating, err))
		}
	}
	return s.settleAfter(ctx, errs)
}

func (s *Sequencer) sortByNewest(ctx context.Context) error {
	timeout := s.opts.Pacing.ControlTimeout
	if err := s.browser.WaitVisible(ctx, selSortCombobox, timeout); err != nil {
		return err
	}
	if err := s.browser.Click(ctx, selSortCombobox, timeout); err != nil {
		return err
	}
	_ = types.Pause(ctx, s.opts.Pacing.Settle/2)

	var clicked bool
	if err := s.browser.Eval(ctx, jsClickOptionByText, &clicked, selSortOption, s.opts.SortLabel); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("sort option %q not found", s.opts.SortLabel)
	}
	return types.Pause(ctx, s.opts.Pacing.Settle)
}

func (s *Sequencer) openAccordion(ctx context.Context, selector string) error {
	if err := s.browser.Click(ctx, selector, s.opts.Pacing.ControlTimeout); err != nil {
		return err
	}
	return types.Pause(ctx, s.opts.Pacing.Settle/2)
}

func (s *Sequencer) toggle(ctx context.Context, selector string) error {
	if err := s.browser.Click(ctx, selector, s.opts.Pacing.ControlTimeout); err != nil {
		return err
	}
	return types.Pause(ctx, s.opts.Pacing.Settle/4)
}

// settleAfter 部分选项失败时仍然等待页面重新渲染
func (s *Sequencer) settleAfter(ctx context.Context, errs []error) error {
	_ = types.Pause(ctx, s.opts.Pacing.Settle)
	return errors.Join(errs...)
}

// StripFragment 去掉 URL 中 # 之后的部分
func StripFragment(u string) string {
	base, _, _ := strings.Cut(u, "#")
	return base
}

// bodyTypeToken 返回 false 表示该类型已由基础 URL 选中
func bodyTypeToken(bodyType string) (string, bool) {
	if strings.Contains(strings.ToUpper(bodyType), "SUV") {
		return "", false
	}
	if token, ok := bodyTypeTokens[bodyType]; ok {
		return token, true
	}
	var b strings.Builder
	for _, r := range strings.ToUpper(bodyType) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), b.Len() > 0
}

// makeID 按钮 id 使用品牌原名, RAM 例外为全大写
func makeID(brand string) string {
	if strings.EqualFold(brand, "RAM") {
		return "RAM"
	}
	return brand
}
