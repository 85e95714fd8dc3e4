package domain

import "strings"

// ProductSort selects the single ordering applied to a product listing.
type ProductSort string

const (
	ProductSortName      ProductSort = "name"
	ProductSortNameDesc  ProductSort = "name-desc"
	ProductSortPriceLow  ProductSort = "price-low"
	ProductSortPriceHigh ProductSort = "price-high"
	ProductSortRating    ProductSort = "rating"
	ProductSortAuthor    ProductSort = "author"
	ProductSortNewest    ProductSort = "newest"
)

// ProductQuery describes catalog filters. Zero values disable the corresponding filter.
type ProductQuery struct {
	Category     string
	Search       string
	MinPrice     *int64
	MaxPrice     *int64
	InStockOnly  bool
	FeaturedOnly bool
	Sort         ProductSort
}

var productSortAliases = map[string]ProductSort{
	"title_asc":  ProductSortName,
	"title_desc": ProductSortNameDesc,
	"price_asc":  ProductSortPriceLow,
	"price_desc": ProductSortPriceHigh,
}

// ParseProductSort resolves legacy aliases. Unrecognised keys are returned unchanged and sort nothing.
func ParseProductSort(raw string) ProductSort {
	key := strings.ToLower(strings.TrimSpace(raw))
	if alias, ok := productSortAliases[key]; ok {
		return alias
	}
	return ProductSort(key)
}
