package runner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome/chrometest"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/kv"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/internal/service/extractor"
	"github.com/LouYuanbo1/listingcrawler/internal/service/filter"
	"github.com/LouYuanbo1/listingcrawler/internal/service/navigator"
	"github.com/LouYuanbo1/listingcrawler/internal/service/scheduler"
	"github.com/LouYuanbo1/listingcrawler/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseURL = "https://www.example.test/Cars/l-Used-SUV-Crossover-bg7"

var now = time.Date(2025, 11, 13, 15, 30, 0, 0, time.UTC)

type fakeFilters struct {
	url string
	err error
}

func (f *fakeFilters) Apply(ctx context.Context, radius int, filters param.Filters) (filter.Result, error) {
	return filter.Result{FilteredURL: f.url}, f.err
}

type fakeNavigator struct {
	moves [][2]int
}

func (n *fakeNavigator) GoTo(ctx context.Context, current, target int) navigator.Outcome {
	n.moves = append(n.moves, [2]int{current, target})
	return navigator.Outcome{From: current, To: target, Clicks: target - current}
}

// fakeExtractor 每页找到的数量由 found 给出, 未列出的页为 0
type fakeExtractor struct {
	found  map[int]int
	panics map[int]bool
	pages  []int
}

func (e *fakeExtractor) LoadLazyContent(ctx context.Context) {}

func (e *fakeExtractor) ProcessPage(ctx context.Context, page, radius, maxResults int) (extractor.PageResult, error) {
	if err := ctx.Err(); err != nil {
		return extractor.PageResult{Page: page}, err
	}
	if e.panics[page] {
		panic("detail view exploded")
	}
	e.pages = append(e.pages, page)
	n := e.found[page]
	saved := min(n, maxResults)
	return extractor.PageResult{Page: page, Found: n, Attempted: saved, Saved: saved}, nil
}

type harness struct {
	browser   *chrometest.Browser
	store     kv.Store
	scheduler *scheduler.Scheduler
	navigator *fakeNavigator
	extractor *fakeExtractor
	input     param.RunInput
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db, err := kv.OpenBadger("")
	require.NoError(t, err)
	store := kv.InitBadgerStore(db, "scraper-state-newest")
	t.Cleanup(func() { _ = store.Close() })

	return &harness{
		browser:   chrometest.New(),
		store:     store,
		scheduler: scheduler.New(store, logger.NewNop(), func() time.Time { return now }),
		navigator: &fakeNavigator{},
		extractor: &fakeExtractor{found: map[int]int{}, panics: map[int]bool{}},
		input:     param.DefaultRunInput(),
	}
}

func (h *harness) runner(filters Filters) *Runner {
	deps := Deps{
		Browser:   h.browser,
		Scheduler: h.scheduler,
		Filters:   filters,
		Navigator: h.navigator,
		Extractor: h.extractor,
		Debug:     h.store,
	}
	return New(deps, Options{BaseURL: baseURL, Input: h.input}, logger.NewNop(), nil)
}

func (h *harness) state(t *testing.T) *entity.RunState {
	t.Helper()
	state, err := h.scheduler.Load(context.Background())
	require.NoError(t, err)
	return state
}

func TestFirstRunProcessesWindowAndCheckpoints(t *testing.T) {
	h := newHarness(t)
	h.extractor.found = map[int]int{1: 24, 2: 30, 3: 5}

	summary, err := h.runner(&fakeFilters{url: baseURL + "?makes=Ford"}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{1, 2, 3}, summary.Plan.Pages)
	assert.Equal(t, 24+24+5, summary.Saved)
	assert.Equal(t, [][2]int{{1, 1}, {1, 2}, {2, 3}}, h.navigator.moves)
	assert.True(t, h.browser.Closed)
	require.Len(t, h.browser.CallsTo("Navigate"), 1)
	assert.Equal(t, baseURL, h.browser.CallsTo("Navigate")[0].Arg)

	state := h.state(t)
	require.NotNil(t, state)
	assert.Equal(t, 4, state.NextPage)
	assert.Equal(t, 3, state.LastPage)
	assert.Equal(t, "2025-11-13", state.LastScrapedDate)
	assert.Equal(t, []int{1, 2, 3}, state.PagesScraped)
	assert.Equal(t, baseURL+"?makes=Ford", state.BaseURL)
}

func TestResumesFromCheckpointSameDay(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, kv.SetJSON(context.Background(), h.store, scheduler.StateKey,
		entity.RunState{NextPage: 5, LastScrapedDate: "2025-11-13"}))
	h.extractor.found = map[int]int{5: 1, 6: 1, 7: 1}

	summary, err := h.runner(&fakeFilters{url: baseURL}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{5, 6, 7}, h.extractor.pages)
	assert.Equal(t, [2]int{1, 5}, h.navigator.moves[0])
	assert.Equal(t, 3, summary.Saved)
	assert.Equal(t, 8, h.state(t).NextPage)
}

func TestEmptyPageIsCapturedAndStillCheckpointed(t *testing.T) {
	h := newHarness(t)
	h.input.WindowSize = 2
	h.extractor.found = map[int]int{2: 3}
	h.browser.ScreenshotFunc = func() ([]byte, error) { return []byte("png-page"), nil }

	_, err := h.runner(&fakeFilters{url: baseURL}).Run(context.Background())
	require.NoError(t, err)

	shot, err := h.store.Get(context.Background(), ScreenshotKey(1))
	require.NoError(t, err)
	assert.Equal(t, []byte("png-page"), shot)
	_, err = h.store.Get(context.Background(), ScreenshotKey(2))
	assert.ErrorIs(t, err, kv.ErrNotFound)

	state := h.state(t)
	assert.Equal(t, 3, state.NextPage)
	assert.Equal(t, []int{1, 2}, state.PagesScraped)
}

func TestExhaustedWindowIsANoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, kv.SetJSON(context.Background(), h.store, scheduler.StateKey,
		entity.RunState{NextPage: 74, LastScrapedDate: "2025-11-13"}))

	summary, err := h.runner(&fakeFilters{url: baseURL}).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, summary.Plan.Exhausted())
	assert.Empty(t, h.browser.CallsTo("Navigate"))
	assert.Empty(t, h.extractor.pages)
	assert.True(t, h.browser.Closed)
	assert.Equal(t, 74, h.state(t).NextPage)
}

func TestPanicEndsRunButKeepsProgress(t *testing.T) {
	h := newHarness(t)
	h.extractor.found = map[int]int{1: 2}
	h.extractor.panics = map[int]bool{2: true}

	_, err := h.runner(&fakeFilters{url: baseURL}).Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "detail view exploded")

	assert.True(t, h.browser.Closed)
	assert.Equal(t, 2, h.state(t).NextPage)
}

func TestNavigateFailureAbortsWithoutState(t *testing.T) {
	h := newHarness(t)
	h.browser.NavigateFunc = func(url string) error { return errors.New("net::ERR_NAME_NOT_RESOLVED") }

	_, err := h.runner(&fakeFilters{url: baseURL}).Run(context.Background())
	require.Error(t, err)

	assert.True(t, h.browser.Closed)
	assert.Nil(t, h.state(t))
}

func TestFilterFailureFallsBackToBaseURL(t *testing.T) {
	h := newHarness(t)
	h.input.WindowSize = 1
	h.extractor.found = map[int]int{1: 1}

	summary, err := h.runner(&fakeFilters{err: errors.New("read url")}).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, baseURL, summary.FilteredURL)
	assert.Equal(t, baseURL, h.state(t).BaseURL)
}

func TestCancelledContextStopsBeforeNextPage(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	h.extractor.found = map[int]int{1: 1}
	nav := &cancellingNavigator{cancelAt: 2, cancel: cancel}

	r := h.runner(&fakeFilters{url: baseURL})
	r.deps.Navigator = nav
	_, err := r.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, h.state(t).NextPage)
}

// cancellingNavigator 到达 cancelAt 页时取消 ctx
type cancellingNavigator struct {
	cancelAt int
	cancel   context.CancelFunc
}

func (n *cancellingNavigator) GoTo(ctx context.Context, current, target int) navigator.Outcome {
	if target == n.cancelAt {
		n.cancel()
	}
	return navigator.Outcome{From: current, To: target}
}
