// Package catalog persists finished imports into the storefront's
// Postgres catalog. The importer core never touches this; the HTTP
// layer calls it after a successful import, playing the "external
// caller" role that owns persistence.
package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lurebay/product-importer/internal/models"
)

type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	MaxConns int32
}

type Store struct {
	pool    *pgxpool.Pool
	builder sq.StatementBuilderType
	logger  *slog.Logger
}

func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{
		pool:    pool,
		builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
		logger:  logger.With("component", "catalog"),
	}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// SaveImportedProduct writes the product plus its images and variants
// in one transaction and returns the new product id.
func (s *Store) SaveImportedProduct(ctx context.Context, p *models.ImportedProduct) (string, error) {
	productID := uuid.New().String()
	now := time.Now()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query, args, err := s.builder.
		Insert("products").
		Columns("id", "title", "description", "price", "price_found", "original_price",
			"price_range", "discount", "rating", "review_count", "orders_count",
			"shipping_cost", "delivery_time", "sku", "slug", "affiliate_link",
			"aliexpress_url", "created_at", "updated_at").
		Values(productID, p.Title, p.Description, p.Price, p.PriceFound, p.OriginalPrice,
			p.PriceRange, p.Discount, p.Rating, p.ReviewCount, p.OrdersCount,
			p.ShippingCost, p.DeliveryTime, p.SKU, p.Slug, p.AffiliateLink,
			p.AliexpressURL, now, now).
		ToSql()
	if err != nil {
		return "", fmt.Errorf("failed to build product insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("failed to insert product: %w", err)
	}

	if err := s.insertImages(ctx, tx, productID, p.Images); err != nil {
		return "", err
	}
	if err := s.insertVariants(ctx, tx, productID, p.Variants); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}

	s.logger.Info("product saved",
		"product_id", productID,
		"slug", p.Slug,
		"images", len(p.Images),
		"variants", len(p.Variants),
	)

	return productID, nil
}

func (s *Store) insertImages(ctx context.Context, tx pgx.Tx, productID string, images []string) error {
	if len(images) == 0 {
		return nil
	}

	builder := s.builder.
		Insert("product_images").
		Columns("id", "product_id", "url", "position")
	for i, url := range images {
		builder = builder.Values(uuid.New().String(), productID, url, i)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build image insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert images: %w", err)
	}
	return nil
}

func (s *Store) insertVariants(ctx context.Context, tx pgx.Tx, productID string, variants []models.Variant) error {
	if len(variants) == 0 {
		return nil
	}

	builder := s.builder.
		Insert("product_variants").
		Columns("id", "product_id", "group_name", "label", "image_url", "position")
	for gi, variant := range variants {
		for oi, option := range variant.Options {
			builder = builder.Values(uuid.New().String(), productID, variant.Group,
				option.Label, option.ImageURL, gi*1000+oi)
		}
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build variant insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert variants: %w", err)
	}
	return nil
}
