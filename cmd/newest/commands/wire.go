package commands

import (
	"context"
	"fmt"
	"net/http"

	"github.com/LouYuanbo1/listingcrawler/internal/config"
	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/chrome"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/options"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/embedding"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/dataset"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/es"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/kv"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/persistence/pg"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/internal/service/publisher"
	"github.com/jackc/pgx/v5/pgxpool"
)

// esTransport 为 nil 时使用客户端默认的连接池
var esTransport http.RoundTripper

// sink 数据集, 运行结束时关闭
type sink interface {
	publisher.Sink
	Close() error
}

func openStore(cfg *config.Config) (kv.Store, error) {
	switch cfg.Store.Kind {
	case config.StoreRedis:
		client, err := kv.NewRedisClient(cfg.Store.RedisAddr, cfg.Store.RedisPass, cfg.Store.RedisDB)
		if err != nil {
			return nil, err
		}
		return kv.InitRedisStore(client, cfg.Store.Name), nil
	default:
		db, err := kv.OpenBadger(cfg.Store.BadgerDir)
		if err != nil {
			return nil, err
		}
		return kv.InitBadgerStore(db, cfg.Store.Name), nil
	}
}

type pgSink struct {
	*pg.Sink
	pool *pgxpool.Pool
}

func (s pgSink) Close() error {
	s.pool.Close()
	return nil
}

func openSink(ctx context.Context, cfg *config.Config, log logger.Logger) (sink, error) {
	switch cfg.Sink.Kind {
	case config.SinkElasticsearch:
		return openListingSink(ctx, cfg, log)
	case config.SinkPostgres:
		pool, err := pg.OpenPool(ctx, cfg.Postgres.DSN, 2)
		if err != nil {
			return nil, err
		}
		s := pg.NewSink(pool, cfg.Postgres.Table)
		if err := s.EnsureTable(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return pgSink{Sink: s, pool: pool}, nil
	default:
		w, err := dataset.OpenJSONL(cfg.Sink.Path)
		if err != nil {
			return nil, err
		}
		return w, nil
	}
}

// openListingSink 确保索引存在; 启用 embedder 时一并创建
func openListingSink(ctx context.Context, cfg *config.Config, log logger.Logger) (*es.ListingSink, error) {
	client, err := es.InitTypedEsClient[*model.ListingDoc](cfg.Elasticsearch, esTransport, log)
	if err != nil {
		return nil, err
	}
	if err := client.CreateIndexWithMapping(ctx); err != nil {
		return nil, err
	}
	var embedder embedding.Embedder
	if cfg.Embedder.Enabled {
		if embedder, err = embedding.InitEmbedder(ctx, cfg.Embedder); err != nil {
			return nil, err
		}
	}
	return es.NewListingSink(client, embedder, log), nil
}

func openBrowser(ctx context.Context, cfg *config.Config) (chrome.Browser, error) {
	setup := chrome.PageSetup{
		UserAgent:      cfg.Browser.UserAgent,
		Locale:         cfg.Browser.Locale,
		Timezone:       cfg.Browser.Timezone,
		ViewportWidth:  cfg.Browser.ViewportWidth,
		ViewportHeight: cfg.Browser.ViewportHeight,
	}
	switch cfg.Driver {
	case config.DriverChromedp:
		return chrome.InitChromedpBrowser(ctx, setup, chrome.ChromedpOptions{
			UserDataDir:          cfg.Chromedp.UserDataDir,
			Headless:             cfg.Chromedp.Headless,
			DisableBlinkFeatures: cfg.Chromedp.DisableBlinkFeatures,
			Incognito:            cfg.Chromedp.Incognito,
			DisableDevShmUsage:   cfg.Chromedp.DisableDevShmUsage,
			NoSandbox:            cfg.Chromedp.NoSandbox,
		})
	case config.DriverRod:
		return chrome.InitRodBrowser(setup,
			options.WithBin(cfg.Rod.Bin),
			options.WithUserDataDir(cfg.Rod.UserDataDir),
			options.WithHeadless(cfg.Rod.Headless),
			options.WithDisableBlinkFeatures(cfg.Rod.DisableBlinkFeatures),
			options.WithIncognito(cfg.Rod.Incognito),
			options.WithDisableDevShmUsage(cfg.Rod.DisableDevShmUsage),
			options.WithNoSandbox(cfg.Rod.NoSandbox),
			options.WithLeakless(cfg.Rod.Leakless),
			options.WithUserAgent(cfg.Browser.UserAgent),
			options.WithWindowSize(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight),
		)
	default:
		return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
	}
}
