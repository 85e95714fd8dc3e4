package redisstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
)

func setup(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo, err := NewCartRepository(client, "", 0)
	require.NoError(t, err)
	return repo, mr
}

func TestCartRepository_SaveAndLoad(t *testing.T) {
	repo, mr := setup(t)
	ctx := context.Background()

	_, err := repo.LoadCart(ctx)
	assert.True(t, repositories.IsNotFound(err), "expected not found, got %v", err)

	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	cart := domain.Cart{
		ID:          "01HZX",
		Items:       []domain.CartItem{{ProductID: "1", Title: "Ion", Author: "Liviu Rebreanu", Price: 4000, Quantity: 2, AddedAt: now}},
		LastUpdated: now,
	}
	cart.Recalculate()
	require.NoError(t, repo.SaveCart(ctx, cart))
	assert.True(t, mr.Exists(defaultCartKey))

	loaded, err := repo.LoadCart(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), loaded.Total)
	assert.Equal(t, 2, loaded.TotalItems)
	assert.Equal(t, "Ion", loaded.Items[0].Title)
	assert.NoError(t, repo.Ping(ctx))
}

func TestCartRepository_CorruptValue(t *testing.T) {
	repo, mr := setup(t)
	require.NoError(t, mr.Set(defaultCartKey, "{not json"))

	_, err := repo.LoadCart(context.Background())
	var repoErr repositories.RepositoryError
	require.True(t, errors.As(err, &repoErr))
	assert.True(t, repoErr.IsUnavailable())
}

func TestCartRepository_ServerDown(t *testing.T) {
	repo, mr := setup(t)
	mr.Close()

	err := repo.SaveCart(context.Background(), domain.Cart{})
	var repoErr repositories.RepositoryError
	require.True(t, errors.As(err, &repoErr))
	assert.True(t, repoErr.IsUnavailable())
}
