package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/metrics"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/webhook"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/internal/service/extractor"
	"github.com/LouYuanbo1/listingcrawler/internal/service/filter"
	"github.com/LouYuanbo1/listingcrawler/internal/service/navigator"
	"github.com/LouYuanbo1/listingcrawler/internal/service/publisher"
	"github.com/LouYuanbo1/listingcrawler/internal/service/runner"
	"github.com/LouYuanbo1/listingcrawler/internal/service/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var runFlags struct {
	currentPage int
	maxPages    int
	maxResults  int
	radius      int
	deadline    time.Duration
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Apply the search filters and scrape the next window of result pages.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := setup()
		if err != nil {
			return err
		}
		defer log.Sync()

		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}

		ctx := cmd.Context()
		if runFlags.deadline > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, runFlags.deadline)
			defer cancel()
		}
		return run(ctx, cfg, log)
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.currentPage, "current-page", 0, "start at this page instead of the saved progress")
	f.IntVar(&runFlags.maxPages, "max-pages", 0, "last result page to scrape")
	f.IntVar(&runFlags.maxResults, "max-results", 0, "listings to open per page")
	f.IntVar(&runFlags.radius, "radius", 0, "search radius, 50000 for nationwide")
	f.DurationVar(&runFlags.deadline, "deadline", 0, "stop the run after this long, 0 for no limit")
	rootCmd.AddCommand(runCmd)
}

// applyRunFlags 只覆盖命令行上显式给出的参数
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	in := &cfg.Scraper.Input
	flags := cmd.Flags()
	if flags.Changed("current-page") {
		in.CurrentPage = runFlags.currentPage
	}
	if flags.Changed("max-pages") {
		in.MaxPages = runFlags.maxPages
	}
	if flags.Changed("max-results") {
		in.MaxResults = runFlags.maxResults
	}
	if flags.Changed("radius") {
		in.SearchRadius = runFlags.radius
	}
	if !in.IsValid() {
		return fmt.Errorf("invalid run input: %+v", *in)
	}
	return nil
}

func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer store.Close()

	out, err := openSink(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer out.Close()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.NewMetrics()
	}

	browser, err := openBrowser(ctx, cfg)
	if err != nil {
		return fmt.Errorf("start browser: %w", err)
	}

	pacing := cfg.Pacing.Pacing()
	hook := webhook.NewClient(cfg.Webhook.URL, time.Duration(cfg.Webhook.TimeoutSeconds)*time.Second)
	pub := publisher.New(out, hook, log, m, nil)

	filters := filter.NewSequencer(browser, filter.Options{
		SortLabel:  cfg.Scraper.SortLabel,
		PriceSteps: cfg.Scraper.PriceStepTable(),
		Pacing:     pacing,
	}, log, m)

	r := runner.New(runner.Deps{
		Browser:   browser,
		Scheduler: scheduler.New(store, log, nil),
		Filters:   filters,
		Navigator: navigator.New(browser, pacing, log),
		Extractor: extractor.New(browser, pub, pacing, log, m, nil),
		Debug:     store,
	}, runner.Options{
		BaseURL: cfg.Scraper.BaseURL,
		Input:   cfg.Scraper.Input,
		Pacing:  pacing,
	}, log, m)

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	if m != nil {
		serveMetrics(gctx, g, done, cfg.Metrics.Address, m.Handler(), log)
	}
	g.Go(func() error {
		defer close(done)
		if _, err := r.Run(gctx); err != nil {
			log.Error("Run failed, progress is saved up to the last completed page", logger.Error(err))
			return err
		}
		return nil
	})
	return g.Wait()
}

// serveMetrics 任务结束后关闭 /metrics 服务
func serveMetrics(ctx context.Context, g *errgroup.Group, done <-chan struct{}, addr string, handler http.Handler, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	g.Go(func() error {
		log.Info("Serving metrics", logger.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		select {
		case <-done:
		case <-ctx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
