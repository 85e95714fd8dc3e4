package filestore

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"

	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/repositories"
	"github.com/hanko-field/bookstore/internal/repositories/records"
)

// CartRepository stores the cart as a JSON document. Writes go through a temp file and rename so
// readers never observe a partially written cart.
type CartRepository struct {
	path string
}

var _ repositories.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates the parent directory of path when missing.
func NewCartRepository(path string) (*CartRepository, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("filestore: cart path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &CartRepository{path: path}, nil
}

func (r *CartRepository) LoadCart(ctx context.Context) (domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return domain.Cart{}, repositories.NewStoreError("filestore.cart.load", repositories.KindUnavailable, err)
	}
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return domain.Cart{}, repositories.NotFound("filestore.cart.load", "cart file %s does not exist", r.path)
	}
	if err != nil {
		return domain.Cart{}, repositories.NewStoreError("filestore.cart.load", repositories.KindUnavailable, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Cart{}, repositories.NotFound("filestore.cart.load", "cart file %s is empty", r.path)
	}
	cart, err := records.DecodeCart(data)
	if err != nil {
		return domain.Cart{}, repositories.NewStoreError("filestore.cart.load", repositories.KindCorrupt, err)
	}
	return cart, nil
}

func (r *CartRepository) SaveCart(ctx context.Context, cart domain.Cart) error {
	if err := ctx.Err(); err != nil {
		return repositories.NewStoreError("filestore.cart.save", repositories.KindUnavailable, err)
	}
	data, err := records.EncodeCart(cart)
	if err != nil {
		return repositories.NewStoreError("filestore.cart.save", repositories.KindUnknown, err)
	}
	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return repositories.NewStoreError("filestore.cart.save", repositories.KindUnavailable, err)
	}
	return nil
}

// Ping checks the cart directory is writable.
func (r *CartRepository) Ping(context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(r.path), ".cart-ping-*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}
