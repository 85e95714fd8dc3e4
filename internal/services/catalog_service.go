package services

import (
	"context"
	"errors"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"

	"github.com/hanko-field/bookstore/internal/repositories"
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Catalog repositories.CatalogRepository
	Locale  string
	Logger  Logger
	Metrics MetricsRecorder
}

type catalogService struct {
	repo     repositories.CatalogRepository
	lang     language.Tag
	sanitize *bluemonday.Policy
	logger   Logger
	metrics  MetricsRecorder
}

var _ CatalogService = (*catalogService)(nil)

func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Catalog == nil {
		return nil, errors.New("catalog service: catalog repository is required")
	}
	lang, err := language.Parse(strings.TrimSpace(deps.Locale))
	if err != nil {
		lang = language.Romanian
	}
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger
	}
	return &catalogService{
		repo:     deps.Catalog,
		lang:     lang,
		sanitize: bluemonday.StrictPolicy(),
		logger:   logger,
		metrics:  deps.Metrics,
	}, nil
}

// ListActive never fails: an unreadable catalog yields an empty listing.
func (s *catalogService) ListActive(ctx context.Context) []Product {
	products, err := s.repo.ListProducts(ctx)
	if err != nil {
		s.logger(ctx, "catalog.list_failed", map[string]any{"error": err.Error()})
		s.record("error")
		return []Product{}
	}
	s.record("ok")

	active := make([]Product, 0, len(products))
	for _, product := range products {
		if product.IsActive {
			active = append(active, s.clean(product))
		}
	}
	return active
}

func (s *catalogService) FindActive(ctx context.Context, productID string) (Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, ErrProductNotFound
	}
	product, err := s.repo.GetProduct(ctx, productID)
	if err != nil {
		if !repositories.IsNotFound(err) {
			s.logger(ctx, "catalog.lookup_failed", map[string]any{"productId": productID, "error": err.Error()})
			s.record("error")
		}
		return Product{}, storageError(err, ErrProductNotFound)
	}
	s.record("ok")
	if !product.IsActive {
		return Product{}, ErrProductNotFound
	}
	return s.clean(product), nil
}

func (s *catalogService) Query(ctx context.Context, query ProductQuery) []Product {
	return ApplyQuery(s.ListActive(ctx), query, s.lang)
}

func (s *catalogService) clean(product Product) Product {
	product.Title = s.text(product.Title)
	product.Author = s.text(product.Author)
	product.Category = s.text(product.Category)
	product.Description = s.text(product.Description)
	return product
}

// text strips markup, then decodes the entities bluemonday escapes so JSON output stays readable.
func (s *catalogService) text(value string) string {
	if value == "" || !strings.ContainsAny(value, "<>&") {
		return strings.TrimSpace(value)
	}
	return strings.TrimSpace(html.UnescapeString(s.sanitize.Sanitize(value)))
}

func (s *catalogService) record(outcome string) {
	if s.metrics != nil {
		s.metrics.CatalogRead(outcome)
	}
}
