package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
	pfirestore "github.com/hanko-field/bookstore/internal/platform/firestore"
	"github.com/hanko-field/bookstore/internal/repositories"
)

const (
	defaultCartCollection = "carts"
	defaultCartDocumentID = "global"
)

// CartRepository persists the singleton cart as one Firestore document with embedded lines.
type CartRepository struct {
	base       *pfirestore.BaseRepository[cartDocument]
	documentID string
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func NewCartRepository(provider *pfirestore.Provider, collection, documentID string) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	if strings.TrimSpace(collection) == "" {
		collection = defaultCartCollection
	}
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		documentID = defaultCartDocumentID
	}
	return &CartRepository{
		base:       pfirestore.NewBaseRepository[cartDocument](provider, collection),
		documentID: documentID,
	}, nil
}

func (r *CartRepository) LoadCart(ctx context.Context) (domain.Cart, error) {
	doc, err := r.base.Get(ctx, r.documentID)
	if err != nil {
		return domain.Cart{}, err
	}
	return doc.Data.toDomain(), nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	return r.base.Set(ctx, r.documentID, newCartDocument(cart))
}

type cartDocument struct {
	ID          string             `firestore:"id"`
	Items       []cartItemDocument `firestore:"items"`
	Total       int64              `firestore:"totalMinor"`
	TotalItems  int                `firestore:"totalItems"`
	LastUpdated time.Time          `firestore:"lastUpdated"`
}

type cartItemDocument struct {
	ProductID string    `firestore:"productId"`
	Title     string    `firestore:"title"`
	Author    string    `firestore:"author"`
	ImageURL  string    `firestore:"imageUrl,omitempty"`
	Price     int64     `firestore:"priceMinor"`
	Quantity  int       `firestore:"quantity"`
	AddedAt   time.Time `firestore:"addedAt"`
}

func newCartDocument(cart domain.Cart) cartDocument {
	doc := cartDocument{
		ID:          cart.ID,
		Items:       make([]cartItemDocument, 0, len(cart.Items)),
		Total:       cart.Total,
		TotalItems:  cart.TotalItems,
		LastUpdated: cart.LastUpdated.UTC(),
	}
	for _, item := range cart.Items {
		doc.Items = append(doc.Items, cartItemDocument{
			ProductID: item.ProductID,
			Title:     item.Title,
			Author:    item.Author,
			ImageURL:  item.ImageURL,
			Price:     item.Price,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt.UTC(),
		})
	}
	return doc
}

func (d cartDocument) toDomain() domain.Cart {
	cart := domain.Cart{
		ID:          d.ID,
		Items:       make([]domain.CartItem, 0, len(d.Items)),
		LastUpdated: d.LastUpdated.UTC(),
	}
	for _, item := range d.Items {
		if item.ProductID == "" || item.Quantity <= 0 {
			continue
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: item.ProductID,
			Title:     item.Title,
			Author:    item.Author,
			ImageURL:  item.ImageURL,
			Price:     item.Price,
			Quantity:  item.Quantity,
			AddedAt:   item.AddedAt.UTC(),
		})
	}
	cart.Recalculate()
	return cart
}
