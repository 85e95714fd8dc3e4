// Package gcs serves the catalog from a JSON or YAML object in Cloud Storage.
package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/records"
)

// ObjectOpener opens a bucket object for reading.
type ObjectOpener func(ctx context.Context, bucket, object string) (io.ReadCloser, error)

// ClientOpener adapts a storage client.
func ClientOpener(client *storage.Client) ObjectOpener {
	return func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
		return client.Bucket(bucket).Object(object).NewReader(ctx)
	}
}

// CatalogRepository downloads the object on every read; wrap it with the cached package in production.
type CatalogRepository struct {
	open   ObjectOpener
	bucket string
	object string
	format records.Format
}

var _ repositories.CatalogRepository = (*CatalogRepository)(nil)

func NewCatalogRepository(open ObjectOpener, bucket, object string) (*CatalogRepository, error) {
	bucket = strings.TrimSpace(bucket)
	object = strings.TrimPrefix(strings.TrimSpace(object), "/")
	if open == nil {
		return nil, errors.New("gcs: object opener is required")
	}
	if bucket == "" || object == "" {
		return nil, errors.New("gcs: bucket and object are required")
	}
	return &CatalogRepository{open: open, bucket: bucket, object: object, format: records.FormatFromPath(object)}, nil
}

func (r *CatalogRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	reader, err := r.open(ctx, r.bucket, r.object)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			err = fmt.Errorf("gs://%s/%s: %w", r.bucket, r.object, err)
		}
		return nil, repositories.NewStoreError("gcs.catalog.list", repositories.KindUnavailable, err)
	}
	defer reader.Close()

	products, err := records.DecodeCatalog(reader, r.format)
	if err != nil {
		return nil, repositories.NewStoreError("gcs.catalog.list", repositories.KindCorrupt, err)
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
	return domain.Product{}, repositories.NotFound("gcs.catalog.get", "product %s not found", productID)
}
