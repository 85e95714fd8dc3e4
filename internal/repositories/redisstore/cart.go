// Package redisstore keeps the cart in Redis as a single JSON value.
package redisstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/records"
)

const defaultCartKey = "cart:global"

// CartRepository stores the cart under one key. A zero TTL keeps the value forever.
type CartRepository struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

var _ repositories.CartRepository = (*CartRepository)(nil)

func NewCartRepository(client redis.UniversalClient, key string, ttl time.Duration) (*CartRepository, error) {
	if client == nil {
		return nil, errors.New("redisstore: client is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = defaultCartKey
	}
	return &CartRepository{client: client, key: key, ttl: ttl}, nil
}

func (r *CartRepository) LoadCart(ctx context.Context) (domain.Cart, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Cart{}, repositories.NotFound("redis.cart.load", "key %s not set", r.key)
	}
	if err != nil {
		return domain.Cart{}, repositories.NewStoreError("redis.cart.load", repositories.KindUnavailable, err)
	}
	cart, err := records.DecodeCart(data)
	if err != nil {
		return domain.Cart{}, repositories.NewStoreError("redis.cart.load", repositories.KindCorrupt, err)
	}
	return cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	data, err := records.EncodeCart(cart)
	if err != nil {
		return repositories.NewStoreError("redis.cart.save", repositories.KindUnknown, err)
	}
	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return repositories.NewStoreError("redis.cart.save", repositories.KindUnavailable, err)
	}
	return nil
}

// Ping checks the server answers.
func (r *CartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
