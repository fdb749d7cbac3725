// Package publisher 把有效记录写入数据集, 再尽力投递到 webhook
package publisher

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/entity"
	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/LouYuanbo1/listingcrawler/internal/infra/metrics"
	"github.com/LouYuanbo1/listingcrawler/internal/logger"
)

// Sink 只追加的数据集
type Sink interface {
	Append(ctx context.Context, doc *model.ListingDoc) error
}

// Webhook 由 webhook.Client 实现
type Webhook interface {
	Enabled() bool
	Post(ctx context.Context, payload any) (int, error)
}

type Publisher struct {
	sink    Sink
	webhook Webhook
	log     logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(sink Sink, webhook Webhook, log logger.Logger, m *metrics.Metrics, now func() time.Time) *Publisher {
	if now == nil {
		now = time.Now
	}
	return &Publisher{sink: sink, webhook: webhook, log: log, metrics: m, now: now}
}

// Publish 数据集写入失败时返回错误; webhook 失败只记录日志, 不影响返回值
func (p *Publisher) Publish(ctx context.Context, rec entity.ListingRecord) error {
	if !rec.Valid() {
		return fmt.Errorf("refusing to publish record without vin or title (url %q)", rec.SourceURL)
	}
	doc := rec.ToDocument(p.now())
	if err := p.sink.Append(ctx, doc); err != nil {
		return fmt.Errorf("append to dataset: %w", err)
	}
	p.metrics.IncPublished()
	p.log.Info("Saved listing", logger.String("id", doc.ID), logger.String("identity", doc.IdentityKey))

	if p.webhook == nil || !p.webhook.Enabled() {
		return nil
	}
	status, err := p.webhook.Post(ctx, doc)
	if err != nil {
		p.metrics.IncWebhookFailure()
		p.log.Warn("Webhook delivery failed",
			logger.String("identity", doc.IdentityKey),
			logger.Int("status", status),
			logger.Error(err),
		)
		return nil
	}
	p.log.Debug("Webhook delivered", logger.String("identity", doc.IdentityKey), logger.Int("status", status))
	return nil
}
