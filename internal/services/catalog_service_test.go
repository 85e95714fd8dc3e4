package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories/memory"
)

func TestCatalogService_ListActiveFiltersInactive(t *testing.T) {
	hidden := scenarioProduct()
	hidden.ID = "2"
	hidden.IsActive = false
	repo := memory.NewCatalogRepository(scenarioProduct(), hidden)

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatal(err)
	}

	products := svc.ListActive(context.Background())
	if len(products) != 1 || products[0].ID != "1" {
		t.Fatalf("expected only the active product, got %+v", products)
	}
}

func TestCatalogService_ListActiveDegradesToEmpty(t *testing.T) {
	repo := memory.NewCatalogRepository(scenarioProduct())
	repo.FailWith(errors.New("file missing"))
	logs := &eventRecorder{}
	metrics := newMetricsStub()

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo, Logger: logs.log, Metrics: metrics})
	if err != nil {
		t.Fatal(err)
	}

	products := svc.ListActive(context.Background())
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil listing, got %#v", products)
	}
	if !logs.has("catalog.list_failed") {
		t.Fatal("expected read failure to be logged")
	}
	if metrics.reads["error"] != 1 {
		t.Fatalf("expected error read metric, got %v", metrics.reads)
	}
	if got := svc.Query(context.Background(), ProductQuery{Sort: domain.ProductSortName}); len(got) != 0 {
		t.Fatalf("expected empty query result, got %+v", got)
	}
}

func TestCatalogService_FindActive(t *testing.T) {
	hidden := scenarioProduct()
	hidden.ID = "2"
	hidden.IsActive = false
	repo := memory.NewCatalogRepository(scenarioProduct(), hidden)

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	product, err := svc.FindActive(ctx, " 1 ")
	if err != nil || product.Title != "Ion" {
		t.Fatalf("expected product 1, got %+v %v", product, err)
	}
	for _, id := range []string{"2", "missing", ""} {
		if _, err := svc.FindActive(ctx, id); !errors.Is(err, ErrProductNotFound) {
			t.Fatalf("FindActive(%q): expected ErrProductNotFound, got %v", id, err)
		}
	}

	repo.FailWith(errors.New("io error"))
	if _, err := svc.FindActive(ctx, "1"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}

func TestCatalogService_SanitisesMarkup(t *testing.T) {
	product := scenarioProduct()
	product.Title = "<b>Ion</b> & Ana"
	product.Description = `<script>alert(1)</script>Roman`
	repo := memory.NewCatalogRepository(product)

	svc, err := NewCatalogService(CatalogServiceDeps{Catalog: repo})
	if err != nil {
		t.Fatal(err)
	}

	got := svc.ListActive(context.Background())[0]
	if got.Title != "Ion & Ana" {
		t.Fatalf("unexpected title %q", got.Title)
	}
	if got.Description != "Roman" {
		t.Fatalf("unexpected description %q", got.Description)
	}
}

func TestNewCatalogServiceRequiresRepository(t *testing.T) {
	if _, err := NewCatalogService(CatalogServiceDeps{}); err == nil {
		t.Fatal("expected error")
	}
}
