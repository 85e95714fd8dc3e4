package services

import (
	"testing"
	"time"

	"golang.org/x/text/language"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

func queryFixture() []Product {
	return []Product{
		{ID: "1", Title: "Ion", Author: "Liviu Rebreanu", Category: "Clasici", Price: 5000, DiscountPrice: int64Ptr(4000), Stock: 2, IsActive: true, Rating: 4.6, CreatedAt: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "2", Title: "Enigma Otiliei", Author: "George Călinescu", Category: "Clasici", Price: 4500, Stock: 0, IsActive: true, Featured: true, Rating: 4.8, CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "3", Title: "Ștefan cel Mare", Author: "Ana Blandiana", Category: "Istorie", Price: 3000, Stock: 7, IsActive: true, Featured: true, Rating: 4.1, CreatedAt: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "4", Title: "Baltagul", Author: "Mihail Sadoveanu", Category: "clasici", Price: 2500, DiscountPrice: int64Ptr(1999), Stock: 3, IsActive: true, Rating: 4.3, CreatedAt: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func ids(products []Product) string {
	out := ""
	for i, p := range products {
		if i > 0 {
			out += ","
		}
		out += p.ID
	}
	return out
}

func TestApplyQuery(t *testing.T) {
	minPrice := func(v int64) *int64 { return &v }

	tests := []struct {
		name  string
		query ProductQuery
		want  string
	}{
		{name: "no filters keeps source order", want: "1,2,3,4"},
		{name: "category is case insensitive", query: ProductQuery{Category: "CLASICI"}, want: "1,2,4"},
		{name: "search matches author", query: ProductQuery{Search: "sadov"}, want: "4"},
		{name: "search matches title", query: ProductQuery{Search: "ENIGMA"}, want: "2"},
		{name: "price range uses effective price", query: ProductQuery{MinPrice: minPrice(3500), MaxPrice: minPrice(4200)}, want: "1"},
		{name: "inverted price bounds are swapped", query: ProductQuery{MinPrice: minPrice(4200), MaxPrice: minPrice(3500)}, want: "1"},
		{name: "only min price", query: ProductQuery{MinPrice: minPrice(4000)}, want: "1,2"},
		{name: "in stock", query: ProductQuery{InStockOnly: true}, want: "1,3,4"},
		{name: "featured", query: ProductQuery{FeaturedOnly: true}, want: "2,3"},
		{name: "filters compose", query: ProductQuery{Category: "clasici", InStockOnly: true, Sort: domain.ProductSortPriceLow}, want: "4,1"},
		{name: "price low", query: ProductQuery{Sort: domain.ProductSortPriceLow}, want: "4,3,1,2"},
		{name: "price high", query: ProductQuery{Sort: domain.ProductSortPriceHigh}, want: "2,1,3,4"},
		{name: "rating", query: ProductQuery{Sort: domain.ProductSortRating}, want: "2,1,4,3"},
		{name: "newest", query: ProductQuery{Sort: domain.ProductSortNewest}, want: "2,1,3,4"},
		{name: "name uses collation", query: ProductQuery{Sort: domain.ProductSortName}, want: "4,2,1,3"},
		{name: "name desc", query: ProductQuery{Sort: domain.ProductSortNameDesc}, want: "3,1,2,4"},
		{name: "author", query: ProductQuery{Sort: domain.ProductSortAuthor}, want: "3,2,1,4"},
		{name: "legacy alias", query: ProductQuery{Sort: "price_asc"}, want: "4,3,1,2"},
		{name: "unknown sort leaves order", query: ProductQuery{Sort: "popularity"}, want: "1,2,3,4"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ids(ApplyQuery(queryFixture(), tc.query, language.Romanian))
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestApplyQuery_DoesNotModifyInput(t *testing.T) {
	products := queryFixture()
	_ = ApplyQuery(products, ProductQuery{Sort: domain.ProductSortPriceHigh}, language.Romanian)
	if ids(products) != "1,2,3,4" {
		t.Fatalf("input reordered: %s", ids(products))
	}
}

func TestApplyQuery_StableOnTies(t *testing.T) {
	products := []Product{
		{ID: "a", Price: 1000},
		{ID: "b", Price: 1000},
		{ID: "c", Price: 500},
	}
	if got := ids(ApplyQuery(products, ProductQuery{Sort: domain.ProductSortPriceLow}, language.English)); got != "c,a,b" {
		t.Fatalf("expected stable ordering, got %s", got)
	}
}
