package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hanko-field/bookstore/internal/di"
	domain "github.com/hanko-field/bookstore/internal/domain"
)

type catalogListOptions struct {
	category string
	search   string
	sort     string
	minPrice string
	maxPrice string
	inStock  bool
	featured bool
}

// ProductView is the printed product shape. Prices are in major units.
type ProductView struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Author        string   `json:"author" yaml:"author"`
	Category      string   `json:"category" yaml:"category"`
	Price         float64  `json:"price" yaml:"price"`
	DiscountPrice *float64 `json:"discountPrice" yaml:"discountPrice"`
	Stock         int      `json:"stock" yaml:"stock"`
	Featured      bool     `json:"featured" yaml:"featured"`
	Rating        float64  `json:"rating" yaml:"rating"`
}

func newProductView(p domain.Product) ProductView {
	view := ProductView{
		ID:       p.ID,
		Title:    p.Title,
		Author:   p.Author,
		Category: p.Category,
		Price:    domain.MajorUnits(p.Price),
		Stock:    p.Stock,
		Featured: p.Featured,
		Rating:   p.Rating,
	}
	if p.DiscountPrice != nil {
		discount := domain.MajorUnits(*p.DiscountPrice)
		view.DiscountPrice = &discount
	}
	return view
}

// NewCatalogCommand creates the catalog command group.
func NewCatalogCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the active catalog",
	}
	cmd.AddCommand(newCatalogListCommand(rootOpts))
	return cmd
}

func newCatalogListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &catalogListOptions{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List active products with the same filters and sorts as GET /products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, err := opts.query()
			if err != nil {
				return NewExitError(ExitCommandError, err.Error())
			}
			return rootOpts.withContainer(cmd.Context(), func(c *di.Container) error {
				products := c.Services.Catalog.Query(cmd.Context(), query)
				views := make([]ProductView, 0, len(products))
				for _, p := range products {
					views = append(views, newProductView(p))
				}
				return render(cmd.OutOrStdout(), rootOpts.Output, views, func(w io.Writer) {
					fmt.Fprintln(w, "ID\tTITLE\tAUTHOR\tCATEGORY\tPRICE\tSTOCK")
					for _, v := range views {
						price := fmt.Sprintf("%.2f", v.Price)
						if v.DiscountPrice != nil {
							price = fmt.Sprintf("%.2f (was %.2f)", *v.DiscountPrice, v.Price)
						}
						fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", v.ID, v.Title, v.Author, v.Category, price, v.Stock)
					}
				})
			})
		},
	}
	cmd.Flags().StringVar(&opts.category, "category", "", "exact category, case-insensitive")
	cmd.Flags().StringVar(&opts.search, "search", "", "substring of title or author")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "name|name-desc|price-low|price-high|rating|author|newest")
	cmd.Flags().StringVar(&opts.minPrice, "min-price", "", "lowest effective price")
	cmd.Flags().StringVar(&opts.maxPrice, "max-price", "", "highest effective price")
	cmd.Flags().BoolVar(&opts.inStock, "in-stock", false, "only products with stock")
	cmd.Flags().BoolVar(&opts.featured, "featured", false, "only featured products")
	return cmd
}

func (o *catalogListOptions) query() (domain.ProductQuery, error) {
	query := domain.ProductQuery{
		Category:     strings.TrimSpace(o.category),
		Search:       strings.TrimSpace(o.search),
		Sort:         domain.ParseProductSort(strings.TrimSpace(o.sort)),
		InStockOnly:  o.inStock,
		FeaturedOnly: o.featured,
	}
	if o.minPrice != "" {
		v, err := domain.ParseMajorUnits(o.minPrice)
		if err != nil {
			return domain.ProductQuery{}, fmt.Errorf("invalid --min-price %q", o.minPrice)
		}
		query.MinPrice = &v
	}
	if o.maxPrice != "" {
		v, err := domain.ParseMajorUnits(o.maxPrice)
		if err != nil {
			return domain.ProductQuery{}, fmt.Errorf("invalid --max-price %q", o.maxPrice)
		}
		query.MaxPrice = &v
	}
	return query, nil
}
