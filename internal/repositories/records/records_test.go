package records

import (
	"strings"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

const jsonCatalog = `{"products":[
 {"id":1,"title":"Ion","author":"Liviu Rebreanu","category":"Roman","price":50,"discountPrice":40,"stock":2,"isActive":true,"createdAt":"2024-01-15"},
 {"id":"b-2","title":"Enigma Otiliei","author":"George Calinescu","category":"Roman","price":45.5,"stock":0,"isActive":false,"createdAt":"2024-02-01T10:00:00Z"}
]}`

func TestDecodeCatalogJSON(t *testing.T) {
	products, err := DecodeCatalog(strings.NewReader(jsonCatalog), FormatJSON)
	if err != nil {
		t.Fatalf("DecodeCatalog: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	first := products[0]
	if first.ID != "1" || first.Price != 5000 || first.DiscountPrice == nil || *first.DiscountPrice != 4000 {
		t.Fatalf("unexpected first product %+v", first)
	}
	if first.EffectivePrice() != 4000 {
		t.Fatalf("expected effective price 4000, got %d", first.EffectivePrice())
	}
	if !first.CreatedAt.Equal(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt %s", first.CreatedAt)
	}
	if products[1].ID != "b-2" || products[1].Price != 4550 || products[1].IsActive {
		t.Fatalf("unexpected second product %+v", products[1])
	}
}

func TestDecodeCatalogBareArrayAndYAML(t *testing.T) {
	products, err := DecodeCatalog(strings.NewReader(`[{"id":7,"title":"T","price":1,"stock":1,"isActive":true}]`), FormatJSON)
	if err != nil || len(products) != 1 || products[0].ID != "7" {
		t.Fatalf("bare array: %v %+v", err, products)
	}

	yamlDoc := "products:\n  - id: 3\n    title: Maitreyi\n    author: Mircea Eliade\n    price: 39.99\n    stock: 5\n    isActive: true\n    featured: true\n    createdAt: 2023-11-20\n"
	products, err = DecodeCatalog(strings.NewReader(yamlDoc), FormatFromPath("books.yml"))
	if err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if len(products) != 1 || products[0].ID != "3" || products[0].Price != 3999 || !products[0].Featured {
		t.Fatalf("unexpected yaml product %+v", products)
	}

	products, err = DecodeCatalog(strings.NewReader("- id: x\n  title: Y\n  price: 2\n"), FormatYAML)
	if err != nil || len(products) != 1 || products[0].ID != "x" {
		t.Fatalf("yaml list: %v %+v", err, products)
	}
}

func TestDecodeCatalogRejectsMissingID(t *testing.T) {
	if _, err := DecodeCatalog(strings.NewReader(`[{"title":"no id"}]`), FormatJSON); err == nil {
		t.Fatal("expected error for missing id")
	}
}

func TestCartRoundTripRecomputesTotals(t *testing.T) {
	added := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cart := domain.Cart{
		ID: "c1",
		Items: []domain.CartItem{
			{ProductID: "1", Quantity: 2, Title: "Ion", Author: "Liviu Rebreanu", Price: 4000, AddedAt: added},
			{ProductID: "3", Quantity: 1, Title: "Maitreyi", Price: 3999, AddedAt: added},
		},
		Total:       1,
		TotalItems:  1,
		LastUpdated: added,
	}

	data, err := EncodeCart(cart)
	if err != nil {
		t.Fatalf("EncodeCart: %v", err)
	}
	if !strings.Contains(string(data), `"price": 39.99`) {
		t.Fatalf("expected decimal price in %s", data)
	}

	decoded, err := DecodeCart(data)
	if err != nil {
		t.Fatalf("DecodeCart: %v", err)
	}
	if decoded.Total != 11999 || decoded.TotalItems != 3 {
		t.Fatalf("expected recomputed totals, got %d/%d", decoded.Total, decoded.TotalItems)
	}
	if decoded.Items[1].Price != 3999 {
		t.Fatalf("price drifted: %d", decoded.Items[1].Price)
	}
}

func TestDecodeCartDropsInvalidLines(t *testing.T) {
	cart, err := DecodeCart([]byte(`{"items":[{"productId":"","quantity":1,"price":1},{"productId":"2","quantity":0,"price":1},{"productId":"3","quantity":1,"price":2.5}]}`))
	if err != nil {
		t.Fatalf("DecodeCart: %v", err)
	}
	if len(cart.Items) != 1 || cart.Total != 250 {
		t.Fatalf("unexpected cart %+v", cart)
	}
}
