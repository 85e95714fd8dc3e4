package services

import (
	"cmp"
	"slices"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// ApplyQuery filters products and then applies exactly one ordering. The input slice is never modified.
// Filters run in order: category, search, price range, stock, featured.
func ApplyQuery(products []Product, query ProductQuery, lang language.Tag) []Product {
	category := strings.ToLower(strings.TrimSpace(query.Category))
	search := strings.ToLower(strings.TrimSpace(query.Search))
	minPrice, maxPrice := query.MinPrice, query.MaxPrice
	if minPrice != nil && maxPrice != nil && *minPrice > *maxPrice {
		minPrice, maxPrice = maxPrice, minPrice
	}

	out := make([]Product, 0, len(products))
	for _, p := range products {
		if category != "" && strings.ToLower(strings.TrimSpace(p.Category)) != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.Title), search) && !strings.Contains(strings.ToLower(p.Author), search) {
			continue
		}
		price := p.EffectivePrice()
		if minPrice != nil && price < *minPrice {
			continue
		}
		if maxPrice != nil && price > *maxPrice {
			continue
		}
		if query.InStockOnly && !p.InStock() {
			continue
		}
		if query.FeaturedOnly && !p.Featured {
			continue
		}
		out = append(out, p)
	}

	sortProducts(out, domain.ParseProductSort(string(query.Sort)), lang)
	return out
}

func sortProducts(products []Product, mode domain.ProductSort, lang language.Tag) {
	var compare func(a, b Product) int
	switch mode {
	case domain.ProductSortName:
		col := collate.New(lang)
		compare = func(a, b Product) int { return col.CompareString(a.Title, b.Title) }
	case domain.ProductSortNameDesc:
		col := collate.New(lang)
		compare = func(a, b Product) int { return col.CompareString(b.Title, a.Title) }
	case domain.ProductSortAuthor:
		col := collate.New(lang)
		compare = func(a, b Product) int { return col.CompareString(a.Author, b.Author) }
	case domain.ProductSortPriceLow:
		compare = func(a, b Product) int { return cmp.Compare(a.EffectivePrice(), b.EffectivePrice()) }
	case domain.ProductSortPriceHigh:
		compare = func(a, b Product) int { return cmp.Compare(b.EffectivePrice(), a.EffectivePrice()) }
	case domain.ProductSortRating:
		compare = func(a, b Product) int { return cmp.Compare(b.Rating, a.Rating) }
	case domain.ProductSortNewest:
		compare = func(a, b Product) int { return b.CreatedAt.Compare(a.CreatedAt) }
	default:
		return
	}
	slices.SortStableFunc(products, compare)
}
