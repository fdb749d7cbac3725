// Package scheduler 决定本次运行要处理的结果页窗口, 并在每页完成后记录进度
//
// 状态只有两个字段驱动决策: lastScrapedDate 和 nextPage。
// 同一天内的运行从 nextPage 继续; 换了一天(或首次运行)从第 1 页重新开始。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/kv"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/param"
)

// StateKey 状态在存储中的固定键
const StateKey = "state"

// Plan 本次运行的批次窗口
type Plan struct {
	Today     string
	StartPage int
	MaxPages  int
	Pages     []int
	Resumed   bool
}

// Exhausted 起始页已超过 maxPages, 本次运行什么都不用做
func (p Plan) Exhausted() bool {
	return len(p.Pages) == 0
}

// Today 按 UTC 日历日计算
func Today(now time.Time) string {
	return now.UTC().Format(entity.DateLayout)
}

// Window 返回 [start, min(start+size-1, maxPages)], start > maxPages 时为空
func Window(start, maxPages, size int) []int {
	if start < 1 || size < 1 || start > maxPages {
		return nil
	}
	end := min(start+size-1, maxPages)
	pages := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		pages = append(pages, p)
	}
	return pages
}

// NewPlan prev 为 nil 表示首次运行
// in.CurrentPage > 0 时覆盖持久化的进度
func NewPlan(prev *entity.RunState, now time.Time, in param.RunInput) Plan {
	today := Today(now)
	start := 1
	resumed := false
	switch {
	case in.CurrentPage > 0:
		start = in.CurrentPage
	case prev != nil && prev.LastScrapedDate == today:
		resumed = true
		if prev.NextPage > 0 {
			start = prev.NextPage
		}
	}
	return Plan{
		Today:     today,
		StartPage: start,
		MaxPages:  in.MaxPages,
		Pages:     Window(start, in.MaxPages, in.WindowSize),
		Resumed:   resumed,
	}
}

// Checkpoint 第 page 页处理完成后的状态, page 之后才前进
func Checkpoint(plan Plan, page int, baseURL string, radius int, now time.Time) entity.RunState {
	scraped := []int{page}
	if idx := slices.Index(plan.Pages, page); idx >= 0 {
		scraped = slices.Clone(plan.Pages[:idx+1])
	}
	return entity.RunState{
		NextPage:        page + 1,
		LastScrapedDate: plan.Today,
		BaseURL:         baseURL,
		SearchRadius:    radius,
		LastScraped:     now.UTC(),
		LastPage:        page,
		PagesScraped:    scraped,
	}
}

// Scheduler 状态的唯一写入者
type Scheduler struct {
	store kv.Store
	log   logger.Logger
	now   func() time.Time
}

// New now 为 nil 时使用 time.Now
func New(store kv.Store, log logger.Logger, now func() time.Time) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{store: store, log: log, now: now}
}

// Load 状态不存在时返回 nil, nil
func (s *Scheduler) Load(ctx context.Context) (*entity.RunState, error) {
	var state entity.RunState
	err := kv.GetJSON(ctx, s.store, StateKey, &state)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load run state: %w", err)
	}
	return &state, nil
}

// Plan 读取状态并计算窗口; 状态损坏时按首次运行处理
func (s *Scheduler) Plan(ctx context.Context, in param.RunInput) (Plan, error) {
	prev, err := s.Load(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return Plan{}, ctx.Err()
		}
		s.log.Warn("Run state unreadable, starting from page 1", logger.Error(err))
		prev = nil
	}
	plan := NewPlan(prev, s.now(), in)

	fields := []logger.Field{
		logger.String("today", plan.Today),
		logger.Int("startPage", plan.StartPage),
		logger.Ints("pages", plan.Pages),
		logger.Bool("resumed", plan.Resumed),
	}
	if prev != nil {
		fields = append(fields, logger.String("lastScrapedDate", prev.LastScrapedDate), logger.Int("nextPage", prev.NextPage))
	}
	s.log.Info("Pagination plan", fields...)
	return plan, nil
}

// Checkpoint 持久化第 page 页完成后的状态
func (s *Scheduler) Checkpoint(ctx context.Context, plan Plan, page int, baseURL string, radius int) (entity.RunState, error) {
	state := Checkpoint(plan, page, baseURL, radius, s.now())
	if err := kv.SetJSON(ctx, s.store, StateKey, state); err != nil {
		return state, fmt.Errorf("save run state: %w", err)
	}
	s.log.Info("State saved",
		logger.Int("page", page),
		logger.Int("nextPage", state.NextPage),
		logger.String("date", state.LastScrapedDate),
	)
	return state, nil
}

// Reset 删除持久化状态, 下次运行从第 1 页开始
func (s *Scheduler) Reset(ctx context.Context) error {
	if err := s.store.Delete(ctx, StateKey); err != nil {
		return fmt.Errorf("reset run state: %w", err)
	}
	return nil
}
