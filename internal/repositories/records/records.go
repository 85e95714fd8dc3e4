// Package records holds the JSON/YAML wire shapes shared by the file, object storage and
// Redis backends. Amounts are stored as decimal major units, matching the catalog files.
package records

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/hanko-field/bookstore/internal/domain"
)

// Format identifies a catalog encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the encoding from a file or object name. Unknown extensions are JSON.
func FormatFromPath(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// ID accepts both numeric and string identifiers.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("records: id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

func (id *ID) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.New("records: id must be a scalar")
	}
	*id = ID(strings.TrimSpace(node.Value))
	return nil
}

// Date accepts RFC3339 timestamps and bare YYYY-MM-DD dates.
type Date struct {
	time.Time
}

func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("records: invalid date %q", raw)
	}
	return t.UTC(), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		d.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d *Date) UnmarshalYAML(node *yaml.Node) error {
	t, err := parseDate(node.Value)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Time.UTC().Format(time.RFC3339Nano))
}

// Product is the catalog file shape.
type Product struct {
	ID            ID       `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Author        string   `json:"author" yaml:"author"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty"`
	Category      string   `json:"category" yaml:"category"`
	ImageURL      string   `json:"imageUrl,omitempty" yaml:"imageUrl,omitempty"`
	Price         float64  `json:"price" yaml:"price"`
	DiscountPrice *float64 `json:"discountPrice,omitempty" yaml:"discountPrice,omitempty"`
	Stock         int      `json:"stock" yaml:"stock"`
	IsActive      bool     `json:"isActive" yaml:"isActive"`
	Featured      bool     `json:"featured,omitempty" yaml:"featured,omitempty"`
	Rating        float64  `json:"rating,omitempty" yaml:"rating,omitempty"`
	ReviewCount   int      `json:"reviewCount,omitempty" yaml:"reviewCount,omitempty"`
	CreatedAt     Date     `json:"createdAt" yaml:"createdAt"`
}

// Catalog is the top-level document. Files may also be a bare array of products.
type Catalog struct {
	Products []Product `json:"products" yaml:"products"`
}

// ToDomain converts the record, rejecting records without an id.
func (p Product) ToDomain() (domain.Product, error) {
	id := strings.TrimSpace(string(p.ID))
	if id == "" {
		return domain.Product{}, errors.New("records: product id is required")
	}
	if p.Stock < 0 {
		return domain.Product{}, fmt.Errorf("records: product %s has negative stock", id)
	}
	product := domain.Product{
		ID:          id,
		Title:       p.Title,
		Author:      p.Author,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       domain.MinorUnits(p.Price),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		Featured:    p.Featured,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   p.CreatedAt.Time,
	}
	if p.DiscountPrice != nil {
		discount := domain.MinorUnits(*p.DiscountPrice)
		product.DiscountPrice = &discount
	}
	return product, nil
}

// DecodeCatalog reads a catalog document in the given format.
func DecodeCatalog(r io.Reader, format Format) ([]domain.Product, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []domain.Product{}, nil
	}

	var items []Product
	switch format {
	case FormatYAML:
		var doc Catalog
		if err := yaml.Unmarshal(raw, &doc); err != nil || doc.Products == nil {
			if listErr := yaml.Unmarshal(raw, &items); listErr != nil {
				if err == nil {
					err = listErr
				}
				return nil, fmt.Errorf("records: decode yaml catalog: %w", err)
			}
		} else {
			items = doc.Products
		}
	default:
		if raw[0] == '[' {
			if err := json.Unmarshal(raw, &items); err != nil {
				return nil, fmt.Errorf("records: decode json catalog: %w", err)
			}
		} else {
			var doc Catalog
			if err := json.Unmarshal(raw, &doc); err != nil {
				return nil, fmt.Errorf("records: decode json catalog: %w", err)
			}
			items = doc.Products
		}
	}

	products := make([]domain.Product, 0, len(items))
	for i, item := range items {
		product, err := item.ToDomain()
		if err != nil {
			return nil, fmt.Errorf("records: product #%d: %w", i, err)
		}
		products = append(products, product)
	}
	return products, nil
}

// CartItem is the persisted cart line.
type CartItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Price     float64   `json:"price"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart is the persisted cart document.
type Cart struct {
	ID          string     `json:"id,omitempty"`
	Items       []CartItem `json:"items"`
	Total       float64    `json:"total"`
	TotalItems  int        `json:"totalItems"`
	LastUpdated time.Time  `json:"lastUpdated"`
}

// FromCart converts a domain cart into its persisted shape.
func FromCart(cart domain.Cart) Cart {
	out := Cart{
		ID:          cart.ID,
		Items:       make([]CartItem, 0, len(cart.Items)),
		Total:       domain.MajorUnits(cart.Total),
		TotalItems:  cart.TotalItems,
		LastUpdated: cart.LastUpdated.UTC(),
	}
	for _, item := range cart.Items {
		out.Items = append(out.Items, CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Title:     item.Title,
			Author:    item.Author,
			Price:     domain.MajorUnits(item.Price),
			ImageURL:  item.ImageURL,
			AddedAt:   item.AddedAt.UTC(),
		})
	}
	return out
}

// ToDomain converts the persisted cart, recomputing totals rather than trusting stored values.
func (c Cart) ToDomain() domain.Cart {
	cart := domain.Cart{
		ID:          c.ID,
		Items:       make([]domain.CartItem, 0, len(c.Items)),
		LastUpdated: c.LastUpdated,
	}
	for _, item := range c.Items {
		if strings.TrimSpace(item.ProductID) == "" || item.Quantity <= 0 {
			continue
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Title:     item.Title,
			Author:    item.Author,
			Price:     domain.MinorUnits(item.Price),
			ImageURL:  item.ImageURL,
			AddedAt:   item.AddedAt,
		})
	}
	cart.Recalculate()
	return cart
}

// EncodeCart marshals a domain cart to indented JSON.
func EncodeCart(cart domain.Cart) ([]byte, error) {
	return json.MarshalIndent(FromCart(cart), "", "  ")
}

// DecodeCart unmarshals a JSON cart document.
func DecodeCart(data []byte) (domain.Cart, error) {
	var rec Cart
	if err := json.Unmarshal(data, &rec); err != nil {
		return domain.Cart{}, fmt.Errorf("records: decode cart: %w", err)
	}
	return rec.ToDomain(), nil
}
