package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

const productColumns = `id, title, author, description, category, image_url, price_minor,
	discount_price_minor, stock, is_active, featured, rating, review_count, created_at`

// CatalogRepository reads the products table. Both supported drivers accept $n placeholders.
type CatalogRepository struct {
	db *sql.DB
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(db *sql.DB) (*CatalogRepository, error) {
	if db == nil {
		return nil, errors.New("sqlstore: db is required")
	}
	return &CatalogRepository{db: db}, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY position, id`)
	if err != nil {
		return nil, repositories.NewStoreError("sql.catalog.list", repositories.KindUnavailable, err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, repositories.NewStoreError("sql.catalog.list", repositories.KindCorrupt, err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, repositories.NewStoreError("sql.catalog.list", repositories.KindUnavailable, err)
	}
	return products, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, strings.TrimSpace(productID))
	product, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, repositories.NotFound("sql.catalog.get", "product %s not found", productID)
	}
	if err != nil {
		return domain.Product{}, repositories.NewStoreError("sql.catalog.get", repositories.KindUnavailable, err)
	}
	return product, nil
}

// UpsertProducts inserts or replaces products, keeping their slice order as the listing order.
func (r *CatalogRepository) UpsertProducts(ctx context.Context, products []domain.Product) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlstore: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO products (`+productColumns+`, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			title = excluded.title,
			author = excluded.author,
			description = excluded.description,
			category = excluded.category,
			image_url = excluded.image_url,
			price_minor = excluded.price_minor,
			discount_price_minor = excluded.discount_price_minor,
			stock = excluded.stock,
			is_active = excluded.is_active,
			featured = excluded.featured,
			rating = excluded.rating,
			review_count = excluded.review_count,
			created_at = excluded.created_at,
			position = excluded.position`)
	if err != nil {
		return fmt.Errorf("sqlstore: prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i, p := range products {
		var discount sql.NullInt64
		if p.DiscountPrice != nil {
			discount = sql.NullInt64{Int64: *p.DiscountPrice, Valid: true}
		}
		var createdAt sql.NullTime
		if !p.CreatedAt.IsZero() {
			createdAt = sql.NullTime{Time: p.CreatedAt.UTC(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			p.ID, p.Title, p.Author, p.Description, p.Category, p.ImageURL, p.Price,
			discount, p.Stock, p.IsActive, p.Featured, p.Rating, p.ReviewCount, createdAt, i,
		); err != nil {
			return fmt.Errorf("sqlstore: upsert product %s: %w", p.ID, err)
		}
	}
	return tx.Commit()
}

// Ping checks the database answers.
func (r *CatalogRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(row scanner) (domain.Product, error) {
	var (
		p         domain.Product
		discount  sql.NullInt64
		createdAt sql.NullTime
	)
	if err := row.Scan(
		&p.ID, &p.Title, &p.Author, &p.Description, &p.Category, &p.ImageURL, &p.Price,
		&discount, &p.Stock, &p.IsActive, &p.Featured, &p.Rating, &p.ReviewCount, &createdAt,
	); err != nil {
		return domain.Product{}, err
	}
	if discount.Valid {
		value := discount.Int64
		p.DiscountPrice = &value
	}
	if createdAt.Valid {
		p.CreatedAt = createdAt.Time.UTC()
	}
	return p, nil
}
