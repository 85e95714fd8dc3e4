package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/hanko-field/bookstore/internal/domain"
	pfirestore "github.com/hanko-field/bookstore/internal/platform/firestore"
	"github.com/hanko-field/bookstore/internal/repositories"
)

const defaultCatalogCollection = "products"

// CatalogRepository reads products from a Firestore collection, one document per product.
// The document id is the product id unless the document carries its own "id" field.
type CatalogRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(provider *pfirestore.Provider, collection string) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultCatalogCollection
	}
	return &CatalogRepository{base: pfirestore.NewBaseRepository[productDocument](provider, collection)}, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}
	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.Data.toDomain(doc.ID))
	}
	return products, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return domain.Product{}, repositories.NotFound("firestore.catalog.get", "product id is empty")
	}
	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

type productDocument struct {
	ID            string    `firestore:"id,omitempty"`
	Title         string    `firestore:"title"`
	Author        string    `firestore:"author"`
	Description   string    `firestore:"description,omitempty"`
	Category      string    `firestore:"category"`
	ImageURL      string    `firestore:"imageUrl,omitempty"`
	Price         float64   `firestore:"price"`
	DiscountPrice *float64  `firestore:"discountPrice,omitempty"`
	Stock         int       `firestore:"stock"`
	IsActive      bool      `firestore:"isActive"`
	Featured      bool      `firestore:"featured"`
	Rating        float64   `firestore:"rating"`
	ReviewCount   int       `firestore:"reviewCount"`
	CreatedAt     time.Time `firestore:"createdAt"`
}

func (d productDocument) toDomain(docID string) domain.Product {
	id := strings.TrimSpace(d.ID)
	if id == "" {
		id = docID
	}
	stock := d.Stock
	if stock < 0 {
		stock = 0
	}
	product := domain.Product{
		ID:          id,
		Title:       d.Title,
		Author:      d.Author,
		Description: d.Description,
		Category:    d.Category,
		ImageURL:    d.ImageURL,
		Price:       domain.MinorUnits(d.Price),
		Stock:       stock,
		IsActive:    d.IsActive,
		Featured:    d.Featured,
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		CreatedAt:   d.CreatedAt.UTC(),
	}
	if d.DiscountPrice != nil {
		discount := domain.MinorUnits(*d.DiscountPrice)
		product.DiscountPrice = &discount
	}
	return product
}
