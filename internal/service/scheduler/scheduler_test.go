package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/kv"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 11, 13, 15, 30, 0, 0, time.UTC)

func input(maxPages, window int) param.RunInput {
	in := param.DefaultRunInput()
	in.MaxPages = maxPages
	in.WindowSize = window
	return in
}

func newStore(t *testing.T) kv.Store {
	t.Helper()
	db, err := kv.OpenBadger("")
	require.NoError(t, err)
	store := kv.InitBadgerStore(db, "scraper-state-newest")
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestScenarios(t *testing.T) {
	yesterday := now.AddDate(0, 0, -1).Format(entity.DateLayout)
	today := now.Format(entity.DateLayout)

	tests := []struct {
		name      string
		prev      *entity.RunState
		in        param.RunInput
		wantStart int
		wantPages []int
	}{
		{name: "A first run", prev: nil, in: input(73, 3), wantStart: 1, wantPages: []int{1, 2, 3}},
		{name: "B resume today", prev: &entity.RunState{NextPage: 5, LastScrapedDate: today}, in: input(73, 3), wantStart: 5, wantPages: []int{5, 6, 7}},
		{name: "C reset on new day", prev: &entity.RunState{NextPage: 5, LastScrapedDate: yesterday}, in: input(73, 3), wantStart: 1, wantPages: []int{1, 2, 3}},
		{name: "D short tail window", prev: &entity.RunState{NextPage: 72, LastScrapedDate: today}, in: input(73, 3), wantStart: 72, wantPages: []int{72, 73}},
		{name: "exhausted", prev: &entity.RunState{NextPage: 74, LastScrapedDate: today}, in: input(73, 3), wantStart: 74, wantPages: nil},
		{name: "resume with unset next page", prev: &entity.RunState{LastScrapedDate: today}, in: input(73, 3), wantStart: 1, wantPages: []int{1, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := NewPlan(tt.prev, now, tt.in)
			assert.Equal(t, tt.wantStart, plan.StartPage)
			assert.Equal(t, tt.wantPages, plan.Pages)
			assert.Equal(t, len(tt.wantPages) == 0, plan.Exhausted())
		})
	}
}

func TestCurrentPageOverridesResumption(t *testing.T) {
	in := input(73, 3)
	in.CurrentPage = 10
	plan := NewPlan(&entity.RunState{NextPage: 5, LastScrapedDate: Today(now)}, now, in)
	assert.Equal(t, []int{10, 11, 12}, plan.Pages)
	assert.False(t, plan.Resumed)
}

func TestTodayUsesUTC(t *testing.T) {
	toronto := time.FixedZone("EST", -5*3600)
	late := time.Date(2025, 11, 13, 21, 0, 0, 0, toronto)
	assert.Equal(t, "2025-11-14", Today(late))
}

func TestResumeCorrectness(t *testing.T) {
	today := Today(now)
	for next := 1; next <= 80; next++ {
		plan := NewPlan(&entity.RunState{NextPage: next, LastScrapedDate: today}, now, input(73, 3))
		assert.Equal(t, next, plan.StartPage)

		reset := NewPlan(&entity.RunState{NextPage: next, LastScrapedDate: "2020-01-01"}, now, input(73, 3))
		assert.Equal(t, 1, reset.StartPage)
	}
}

func TestWindowBound(t *testing.T) {
	for maxPages := 1; maxPages <= 20; maxPages++ {
		for start := 1; start <= 25; start++ {
			for size := 1; size <= 5; size++ {
				pages := Window(start, maxPages, size)
				for _, p := range pages {
					assert.LessOrEqual(t, p, maxPages)
				}
				assert.Equal(t, start > maxPages, len(pages) == 0, "start=%d max=%d size=%d", start, maxPages, size)
				assert.LessOrEqual(t, len(pages), size)
			}
		}
	}
}

func TestCheckpointAdvancesPastPage(t *testing.T) {
	plan := NewPlan(nil, now, input(73, 3))
	for _, page := range plan.Pages {
		state := Checkpoint(plan, page, "https://example.test/search?searchId=1", 50000, now)
		assert.Equal(t, page+1, state.NextPage)
		assert.Equal(t, page, state.LastPage)
		assert.Equal(t, plan.Today, state.LastScrapedDate)
		assert.Equal(t, plan.Pages[:page], state.PagesScraped)
	}
}

func TestSchedulerRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s := New(store, logger.NewNop(), func() time.Time { return now })

	prev, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, prev)

	plan, err := s.Plan(ctx, input(73, 3))
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, plan.Pages)

	_, err = s.Checkpoint(ctx, plan, 1, "https://example.test/search", 50000)
	require.NoError(t, err)
	_, err = s.Checkpoint(ctx, plan, 2, "https://example.test/search", 50000)
	require.NoError(t, err)

	saved, err := s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, 3, saved.NextPage)
	assert.Equal(t, []int{1, 2}, saved.PagesScraped)
	assert.Equal(t, "https://example.test/search", saved.BaseURL)

	// 同一天再次运行: 从第 3 页继续
	next, err := s.Plan(ctx, input(73, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{3, 4, 5}, next.Pages)
	assert.True(t, next.Resumed)

	require.NoError(t, s.Reset(ctx))
	cleared, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cleared)
}

func TestStateBlobUsesOriginalKeys(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	s := New(store, logger.NewNop(), func() time.Time { return now })

	_, err := s.Checkpoint(ctx, NewPlan(nil, now, input(73, 3)), 1, "https://example.test/search", 50000)
	require.NoError(t, err)

	raw, err := store.Get(ctx, StateKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nextPage": 2,
		"lastScrapedDate": "2025-11-13",
		"baseUrl": "https://example.test/search",
		"searchRadius": 50000,
		"lastScraped": "2025-11-13T15:30:00Z",
		"lastPage": 1,
		"pagesScraped": [1]
	}`, string(raw))
}

func TestCorruptStateStartsOver(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, StateKey, []byte("{broken")))

	s := New(store, logger.NewNop(), func() time.Time { return now })
	plan, err := s.Plan(ctx, input(73, 3))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, plan.Pages)
}
