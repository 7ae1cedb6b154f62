package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/logger"
)

//go:embed schema.sql
var schema string

// Postgres is a Repository backed by a pgx connection pool
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn and verifies the connection
func OpenPostgres(ctx context.Context, dsn string, maxConns int) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if maxConns <= 0 {
		maxConns = 2
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger.ForStore().Info().Int("max_conns", maxConns).Msg("Connected to postgres")
	return &Postgres{pool: pool}, nil
}

// NewPostgres wraps an existing pool
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Migrate creates the tables when they do not exist
func (r *Postgres) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// UpsertProduct registers a product, keyed by URL
func (r *Postgres) UpsertProduct(ctx context.Context, p *model.Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return r.pool.QueryRow(ctx, `
INSERT INTO products (id, name, store, url, sku, is_active)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (url) DO UPDATE
   SET name = EXCLUDED.name, store = EXCLUDED.store, sku = EXCLUDED.sku,
       is_active = EXCLUDED.is_active, updated_at = now()
RETURNING id, created_at, updated_at`,
		p.ID, p.Name, string(p.Store), p.URL, p.SKU, p.IsActive,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *Postgres) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, name, store, url, sku, is_active, last_checked_at, created_at, updated_at
FROM products
WHERE is_active
ORDER BY last_checked_at ASC NULLS FIRST, updated_at ASC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		var p model.Product
		var store string
		if err := rows.Scan(&p.ID, &p.Name, &store, &p.URL, &p.SKU, &p.IsActive,
			&p.LastCheckedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Store = model.Store(store)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Postgres) CountActiveProducts(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM products WHERE is_active`).Scan(&n)
	return n, err
}

func (r *Postgres) LatestObservation(ctx context.Context, productID string) (*model.PriceObservation, error) {
	row := r.pool.QueryRow(ctx, `
SELECT id, product_id, price_decimal::text, currency, collected_at
FROM price_history
WHERE product_id = $1
ORDER BY collected_at DESC
LIMIT 1`, productID)

	obs, err := scanObservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return obs, nil
}

func (r *Postgres) InsertObservation(ctx context.Context, obs *model.PriceObservation) error {
	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
INSERT INTO price_history (id, product_id, price_decimal, currency, collected_at)
VALUES ($1, $2, $3::text::numeric, $4, $5)`,
		obs.ID, obs.ProductID, obs.Price.StringFixed(2), obs.Currency, obs.CollectedAt)
	return err
}

func (r *Postgres) UpdateLastChecked(ctx context.Context, productID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE products SET last_checked_at = $2 WHERE id = $1`, productID, at)
	return err
}

func (r *Postgres) ListObservations(ctx context.Context, productID string, since time.Time, limit int) ([]model.PriceObservation, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, product_id, price_decimal::text, currency, collected_at
FROM price_history
WHERE product_id = $1 AND collected_at >= $2
ORDER BY collected_at ASC
LIMIT $3`, productID, since, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PriceObservation
	for rows.Next() {
		obs, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *obs)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Postgres) Close() {
	r.pool.Close()
}

func scanObservation(row pgx.Row) (*model.PriceObservation, error) {
	var obs model.PriceObservation
	var priceText string
	if err := row.Scan(&obs.ID, &obs.ProductID, &priceText, &obs.Currency, &obs.CollectedAt); err != nil {
		return nil, err
	}
	d, err := decimal.NewFromString(priceText)
	if err != nil {
		return nil, fmt.Errorf("observation %s: bad price %q: %w", obs.ID, priceText, err)
	}
	obs.Price = d
	return &obs, nil
}
