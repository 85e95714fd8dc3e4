// Package filestore keeps the catalog and cart in local files.
package filestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/records"
)

// CatalogRepository reads products from a JSON or YAML file on every call.
type CatalogRepository struct {
	path   string
	format records.Format
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

// NewCatalogRepository returns a repository for path. The format follows the file extension.
func NewCatalogRepository(path string) (*CatalogRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("filestore: catalog path is required")
	}
	return &CatalogRepository{path: path, format: records.FormatFromPath(path)}, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, repositories.NewStoreError("filestore.catalog.list", repositories.KindUnavailable, err)
	}
	file, err := os.Open(r.path)
	if err != nil {
		return nil, repositories.NewStoreError("filestore.catalog.list", repositories.KindUnavailable, err)
	}
	defer file.Close()

	products, err := records.DecodeCatalog(file, r.format)
	if err != nil {
		return nil, repositories.NewStoreError("filestore.catalog.list", repositories.KindCorrupt, err)
	}
	return products, nil
}

func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, err
	}
	productID = strings.TrimSpace(productID)
	for _, product := range products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, repositories.NotFound("filestore.catalog.get", "product %s not found", productID)
}

// Ping checks the catalog file is readable.
func (r *CatalogRepository) Ping(context.Context) error {
	info, err := os.Stat(r.path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("filestore: %s is a directory", r.path)
	}
	return nil
}
