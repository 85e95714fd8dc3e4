package firestore

import (
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

func TestProductDocumentToDomain(t *testing.T) {
	discount := 39.99
	doc := productDocument{
		Title:         "Ion",
		Author:        "Liviu Rebreanu",
		Category:      "Clasici",
		Price:         49.9,
		DiscountPrice: &discount,
		Stock:         -2,
		IsActive:      true,
	}

	product := doc.toDomain("7")
	if product.ID != "7" {
		t.Fatalf("expected document id fallback, got %q", product.ID)
	}
	if product.Price != 4990 || product.EffectivePrice() != 3999 {
		t.Fatalf("unexpected prices %d/%d", product.Price, product.EffectivePrice())
	}
	if product.Stock != 0 {
		t.Fatalf("expected negative stock clamped, got %d", product.Stock)
	}

	doc.ID = "ion-1"
	if got := doc.toDomain("7").ID; got != "ion-1" {
		t.Fatalf("expected explicit id to win, got %q", got)
	}
}

func TestCartDocumentRoundTripRecomputesTotals(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	cart := domain.Cart{
		ID: "cart-1",
		Items: []domain.CartItem{
			{ProductID: "1", Title: "Ion", Price: 3999, Quantity: 2, AddedAt: now},
			{ProductID: "2", Title: "Enigma Otiliei", Price: 2500, Quantity: 1, AddedAt: now},
		},
		LastUpdated: now,
	}
	cart.Recalculate()

	doc := newCartDocument(cart)
	doc.Total = 1
	doc.Items = append(doc.Items, cartItemDocument{ProductID: "3", Quantity: 0})

	restored := doc.toDomain()
	if restored.Total != 10498 || restored.TotalItems != 3 {
		t.Fatalf("unexpected totals %d/%d", restored.Total, restored.TotalItems)
	}
	if len(restored.Items) != 2 {
		t.Fatalf("expected invalid line dropped, got %d items", len(restored.Items))
	}
}
