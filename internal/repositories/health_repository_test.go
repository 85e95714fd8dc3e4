package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

func TestDependencyHealthRepositoryCollectSuccess(t *testing.T) {
	checks := []DependencyCheck{
		{Name: "catalog", Check: func(context.Context) error { return nil }},
		{Name: "cartStore", Check: func(context.Context) error { return nil }},
	}

	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	repo, err := NewDependencyHealthRepository(checks, WithDependencyClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusOK {
		t.Fatalf("expected status ok, got %s", report.Status)
	}
	if len(report.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(report.Checks))
	}
	for name, check := range report.Checks {
		if check.Status != domain.HealthStatusOK || check.CheckedAt != now {
			t.Fatalf("unexpected check %s: %+v", name, check)
		}
	}
}

func TestDependencyHealthRepositoryCollectFailure(t *testing.T) {
	boom := errors.New("redis: connection refused")
	repo, err := NewDependencyHealthRepository([]DependencyCheck{
		{Name: "redis", Check: func(context.Context) error { return boom }},
		{Name: "catalog", Check: func(context.Context) error { return nil }},
	})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusDegraded {
		t.Fatalf("expected status degraded, got %s", report.Status)
	}
	if got := report.Checks["redis"]; got.Status != domain.HealthStatusDegraded || got.Error != boom.Error() {
		t.Fatalf("unexpected redis check %+v", got)
	}
	if got := report.Checks["catalog"]; got.Status != domain.HealthStatusOK {
		t.Fatalf("expected catalog ok, got %+v", got)
	}
}

func TestDependencyHealthRepositoryCollectTimeout(t *testing.T) {
	repo, err := NewDependencyHealthRepository([]DependencyCheck{{
		Name:    "paymentGateway",
		Timeout: 5 * time.Millisecond,
		Check: func(ctx context.Context) error {
			select {
			case <-time.After(time.Second):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	}})
	if err != nil {
		t.Fatalf("NewDependencyHealthRepository: %v", err)
	}

	report, err := repo.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if report.Status != domain.HealthStatusError {
		t.Fatalf("expected status error, got %s", report.Status)
	}
	if check := report.Checks["paymentGateway"]; check.Detail != "timeout" {
		t.Fatalf("expected detail timeout, got %s", check.Detail)
	}
}

func TestNewDependencyHealthRepositoryValidates(t *testing.T) {
	cases := map[string][]DependencyCheck{
		"empty":     nil,
		"no name":   {{Check: func(context.Context) error { return nil }}},
		"no func":   {{Name: "catalog"}},
		"duplicate": {{Name: "a", Check: func(context.Context) error { return nil }}, {Name: "a", Check: func(context.Context) error { return nil }}},
	}
	for name, checks := range cases {
		if _, err := NewDependencyHealthRepository(checks); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestStoreErrorClassification(t *testing.T) {
	err := error(NewStoreError("cart.load", KindCorrupt, errors.New("bad json")))
	var repoErr RepositoryError
	if !errors.As(err, &repoErr) {
		t.Fatal("expected RepositoryError")
	}
	if !repoErr.IsUnavailable() || repoErr.IsNotFound() {
		t.Fatalf("corrupt payload should be unavailable only")
	}
	if !IsNotFound(NotFound("catalog.get", "product %s", "7")) {
		t.Fatal("expected not found")
	}
	if IsNotFound(errors.New("plain")) {
		t.Fatal("plain errors are not classified")
	}
}
