package config

import (
	"fmt"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/infra/crawler/types"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
	"github.com/LouYuanbo1/listingcrawler/param"
)

// 可选的浏览器驱动
const (
	DriverRod      = "rod"
	DriverChromedp = "chromedp"
)

// 可选的状态存储
const (
	StoreBadger = "badger"
	StoreRedis  = "redis"
)

// 可选的数据集写入目标
const (
	SinkJSONL         = "jsonl"
	SinkElasticsearch = "elasticsearch"
	SinkPostgres      = "postgres"
)

type Config struct {
	Driver        string              `json:"driver" mapstructure:"driver"`
	Rod           RodConfig           `json:"rod" mapstructure:"rod"`
	Chromedp      ChromedpConfig      `json:"chromedp" mapstructure:"chromedp"`
	Browser       BrowserConfig       `json:"browser" mapstructure:"browser"`
	Elasticsearch ElasticsearchConfig `json:"elasticsearch" mapstructure:"elasticsearch"`
	Embedder      EmbedderConfig      `json:"embedder" mapstructure:"embedder"`
	Store         StoreConfig         `json:"store" mapstructure:"store"`
	Sink          SinkConfig          `json:"sink" mapstructure:"sink"`
	Postgres      PostgresConfig      `json:"postgres" mapstructure:"postgres"`
	Webhook       WebhookConfig       `json:"webhook" mapstructure:"webhook"`
	Metrics       MetricsConfig       `json:"metrics" mapstructure:"metrics"`
	Logger        logger.Config       `json:"logger" mapstructure:"logger"`
	Scraper       ScraperConfig       `json:"scraper" mapstructure:"scraper"`
	Pacing        PacingConfig        `json:"pacing" mapstructure:"pacing"`
}

type RodConfig struct {
	UserDataDir          string `json:"user_data_dir" mapstructure:"user_data_dir"`
	Headless             bool   `json:"headless" mapstructure:"headless"`
	DisableBlinkFeatures string `json:"disable_blink_features" mapstructure:"disable_blink_features"`
	Incognito            bool   `json:"incognito" mapstructure:"incognito"`
	DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" mapstructure:"disable_dev_shm_usage"`
	NoSandbox            bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
	Leakless             bool   `json:"leakless" mapstructure:"leakless"`
	Bin                  string `json:"bin" mapstructure:"bin"`
}

type ChromedpConfig struct {
	UserDataDir          string `json:"user_data_dir" mapstructure:"user_data_dir"`
	Headless             bool   `json:"headless" mapstructure:"headless"`
	DisableBlinkFeatures string `json:"disable_blink_features" mapstructure:"disable_blink_features"`
	Incognito            bool   `json:"incognito" mapstructure:"incognito"`
	DisableDevShmUsage   bool   `json:"disable_dev_shm_usage" mapstructure:"disable_dev_shm_usage"`
	NoSandbox            bool   `json:"no_sandbox" mapstructure:"no_sandbox"`
}

// BrowserConfig 页面级别的浏览器上下文, 两种驱动共用
type BrowserConfig struct {
	UserAgent      string `json:"user_agent" mapstructure:"user_agent"`
	Locale         string `json:"locale" mapstructure:"locale"`
	Timezone       string `json:"timezone" mapstructure:"timezone"`
	ViewportWidth  int    `json:"viewport_width" mapstructure:"viewport_width"`
	ViewportHeight int    `json:"viewport_height" mapstructure:"viewport_height"`
}

type ElasticsearchConfig struct {
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Address  string `json:"address" mapstructure:"address"`
}

type EmbedderConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	Host      string `json:"host" mapstructure:"host"`
	Port      int    `json:"port" mapstructure:"port"`
	Model     string `json:"model" mapstructure:"model"`
	BatchSize int    `json:"batch_size" mapstructure:"batch_size"`
}

type StoreConfig struct {
	Kind      string `json:"kind" mapstructure:"kind"`
	Name      string `json:"name" mapstructure:"name"`
	BadgerDir string `json:"badger_dir" mapstructure:"badger_dir"`
	RedisAddr string `json:"redis_addr" mapstructure:"redis_addr"`
	RedisPass string `json:"redis_password" mapstructure:"redis_password"`
	RedisDB   int    `json:"redis_db" mapstructure:"redis_db"`
}

type SinkConfig struct {
	Kind string `json:"kind" mapstructure:"kind"`
	Path string `json:"path" mapstructure:"path"`
}

type PostgresConfig struct {
	DSN   string `json:"dsn" mapstructure:"dsn"`
	Table string `json:"table" mapstructure:"table"`
}

type WebhookConfig struct {
	URL            string `json:"url" mapstructure:"url"`
	TimeoutSeconds int    `json:"timeout_seconds" mapstructure:"timeout_seconds"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// PriceStep 最低价格滑块: 从最左端按 ArrowRight 的次数
type PriceStep struct {
	Price int `json:"price" mapstructure:"price"`
	Steps int `json:"steps" mapstructure:"steps"`
}

type ScraperConfig struct {
	BaseURL    string         `json:"base_url" mapstructure:"base_url"`
	SortLabel  string         `json:"sort_label" mapstructure:"sort_label"`
	PriceSteps []PriceStep    `json:"price_steps" mapstructure:"price_steps"`
	Input      param.RunInput `json:"input" mapstructure:"input"`
}

// PacingConfig 各类等待时间, 与原爬虫一样用整数秒/毫秒表示
type PacingConfig struct {
	StandardSleepMillis      int `json:"standard_sleep_millis" mapstructure:"standard_sleep_millis"`
	RandomDelayMillis        int `json:"random_delay_millis" mapstructure:"random_delay_millis"`
	SettleMillis             int `json:"settle_millis" mapstructure:"settle_millis"`
	PageSettleMillis         int `json:"page_settle_millis" mapstructure:"page_settle_millis"`
	InitialLoadSeconds       int `json:"initial_load_seconds" mapstructure:"initial_load_seconds"`
	DetailTimeoutSeconds     int `json:"detail_timeout_seconds" mapstructure:"detail_timeout_seconds"`
	NextButtonTimeoutSeconds int `json:"next_button_timeout_seconds" mapstructure:"next_button_timeout_seconds"`
	ControlTimeoutSeconds    int `json:"control_timeout_seconds" mapstructure:"control_timeout_seconds"`
}

func (c PacingConfig) Pacing() types.Pacing {
	return types.Pacing{
		StandardSleep:     time.Duration(c.StandardSleepMillis) * time.Millisecond,
		RandomDelay:       time.Duration(c.RandomDelayMillis) * time.Millisecond,
		Settle:            time.Duration(c.SettleMillis) * time.Millisecond,
		PageSettle:        time.Duration(c.PageSettleMillis) * time.Millisecond,
		InitialLoad:       time.Duration(c.InitialLoadSeconds) * time.Second,
		DetailTimeout:     time.Duration(c.DetailTimeoutSeconds) * time.Second,
		NextButtonTimeout: time.Duration(c.NextButtonTimeoutSeconds) * time.Second,
		ControlTimeout:    time.Duration(c.ControlTimeoutSeconds) * time.Second,
	}
}

// validate 超时为 0 表示不限时, 两种驱动都只受运行上下文约束
func (c PacingConfig) validate() error {
	values := map[string]int{
		"standard_sleep_millis":       c.StandardSleepMillis,
		"random_delay_millis":         c.RandomDelayMillis,
		"settle_millis":               c.SettleMillis,
		"page_settle_millis":          c.PageSettleMillis,
		"initial_load_seconds":        c.InitialLoadSeconds,
		"detail_timeout_seconds":      c.DetailTimeoutSeconds,
		"next_button_timeout_seconds": c.NextButtonTimeoutSeconds,
		"control_timeout_seconds":     c.ControlTimeoutSeconds,
	}
	for name, v := range values {
		if v < 0 {
			return fmt.Errorf("pacing.%s must not be negative, got %d", name, v)
		}
	}
	return nil
}

// PriceStepTable 价格到滑块步数的映射
func (c *ScraperConfig) PriceStepTable() map[int]int {
	table := make(map[int]int, len(c.PriceSteps))
	for _, s := range c.PriceSteps {
		table[s.Price] = s.Steps
	}
	return table
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverRod, DriverChromedp:
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	switch c.Store.Kind {
	case StoreBadger:
		if c.Store.BadgerDir == "" {
			return fmt.Errorf("store.badger_dir is required for badger store")
		}
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			return fmt.Errorf("store.redis_addr is required for redis store")
		}
	default:
		return fmt.Errorf("unknown store kind %q", c.Store.Kind)
	}
	switch c.Sink.Kind {
	case SinkJSONL:
		if c.Sink.Path == "" {
			return fmt.Errorf("sink.path is required for jsonl sink")
		}
	case SinkElasticsearch:
		if c.Elasticsearch.Address == "" {
			return fmt.Errorf("elasticsearch.address is required for elasticsearch sink")
		}
	case SinkPostgres:
		if c.Postgres.DSN == "" || c.Postgres.Table == "" {
			return fmt.Errorf("postgres.dsn and postgres.table are required for postgres sink")
		}
	default:
		return fmt.Errorf("unknown sink kind %q", c.Sink.Kind)
	}
	if c.Embedder.Enabled && c.Sink.Kind != SinkElasticsearch {
		return fmt.Errorf("embedder is only supported with the elasticsearch sink")
	}
	if c.Metrics.Enabled && c.Metrics.Address == "" {
		return fmt.Errorf("metrics.address is required when metrics are enabled")
	}
	if err := c.Pacing.validate(); err != nil {
		return err
	}
	if c.Scraper.BaseURL == "" {
		return fmt.Errorf("scraper.base_url is required")
	}
	if !c.Scraper.Input.IsValid() {
		return fmt.Errorf("scraper.input is invalid: %+v", c.Scraper.Input)
	}
	return nil
}
