// Package pg 把车辆记录追加写入 Postgres
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/LouYuanbo1/listingcrawler/internal/domain/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer *pgxpool.Pool 和 pgx.Tx 都满足
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

type Sink struct {
	db    Execer
	table string
}

// OpenPool 与数据集任务一致, 连接数保持很小
func OpenPool(ctx context.Context, dsn string, maxConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = maxConns
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

func NewSink(db Execer, table string) *Sink {
	return &Sink{db: db, table: pgx.Identifier{table}.Sanitize()}
}

func (s *Sink) EnsureTable(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS ` + s.table + ` (
		id             TEXT PRIMARY KEY,
		type           TEXT NOT NULL,
		identity_key   TEXT NOT NULL,
		vin            TEXT,
		title          TEXT,
		price          DOUBLE PRECISION,
		price_display  TEXT,
		year           TEXT,
		make           TEXT,
		model          TEXT,
		trim           TEXT,
		mileage        TEXT,
		dealer_name    TEXT,
		dealer_city    TEXT,
		dealer_address TEXT,
		deal_rating    TEXT,
		body_type      TEXT,
		fuel_type      TEXT,
		source_url     TEXT,
		page_number    INTEGER,
		search_radius  INTEGER,
		extracted_at   TIMESTAMPTZ,
		scraped_at     TIMESTAMPTZ NOT NULL
	)`
	if _, err := s.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

func (s *Sink) Append(ctx context.Context, doc *model.ListingDoc) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO `+s.table+`
		(id, type, identity_key, vin, title, price, price_display, year, make, model, trim, mileage,
		 dealer_name, dealer_city, dealer_address, deal_rating, body_type, fuel_type, source_url,
		 page_number, search_radius, extracted_at, scraped_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)`,
		doc.ID, doc.Type, doc.IdentityKey, nullable(doc.VIN), nullable(doc.Title), doc.Price, nullable(doc.PriceDisplay),
		nullable(doc.Year), nullable(doc.Make), nullable(doc.Model), nullable(doc.Trim), nullable(doc.Mileage),
		nullable(doc.DealerName), nullable(doc.DealerCity), nullable(doc.DealerAddress), nullable(doc.DealRating),
		nullable(doc.BodyType), nullable(doc.FuelType), doc.SourceURL,
		doc.PageNumber, doc.SearchRadius, parseTimePtr(doc.ExtractedAt), parseTimePtr(doc.ScrapedAt),
	)
	if err != nil {
		return fmt.Errorf("insert listing %s: %w", doc.ID, err)
	}
	return nil
}

func (s *Sink) Close() error {
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func parseTimePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}
