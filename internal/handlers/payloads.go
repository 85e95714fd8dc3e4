package handlers

import (
	domain "github.com/hanko-field/bookstore/internal/domain"
	"github.com/hanko-field/bookstore/internal/services"
)

// Prices leave the API as decimal major units, matching the catalog files.
type productPayload struct {
	ID            any      `json:"id"`
	Title         string   `json:"title"`
	Author        string   `json:"author"`
	Description   string   `json:"description,omitempty"`
	Category      string   `json:"category"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Price         float64  `json:"price"`
	DiscountPrice *float64 `json:"discountPrice"`
	Stock         int      `json:"stock"`
	IsActive      bool     `json:"isActive"`
	Featured      bool     `json:"featured"`
	Rating        float64  `json:"rating,omitempty"`
	ReviewCount   int      `json:"reviewCount,omitempty"`
	CreatedAt     string   `json:"createdAt,omitempty"`
}

func buildProductPayload(p services.Product) productPayload {
	payload := productPayload{
		ID:          jsonID(p.ID),
		Title:       p.Title,
		Author:      p.Author,
		Description: p.Description,
		Category:    p.Category,
		ImageURL:    p.ImageURL,
		Price:       domain.MajorUnits(p.Price),
		Stock:       p.Stock,
		IsActive:    p.IsActive,
		Featured:    p.Featured,
		Rating:      p.Rating,
		ReviewCount: p.ReviewCount,
		CreatedAt:   formatTime(p.CreatedAt),
	}
	if p.DiscountPrice != nil {
		discount := domain.MajorUnits(*p.DiscountPrice)
		payload.DiscountPrice = &discount
	}
	return payload
}

func buildProductPayloads(products []services.Product) []productPayload {
	out := make([]productPayload, 0, len(products))
	for _, p := range products {
		out = append(out, buildProductPayload(p))
	}
	return out
}

type cartPayload struct {
	ID          string            `json:"id,omitempty"`
	Items       []cartItemPayload `json:"items"`
	Total       float64           `json:"total"`
	TotalItems  int               `json:"totalItems"`
	LastUpdated string            `json:"lastUpdated,omitempty"`
}

type cartItemPayload struct {
	ProductID any     `json:"productId"`
	Quantity  int     `json:"quantity"`
	Title     string  `json:"title"`
	Author    string  `json:"author"`
	Price     float64 `json:"price"`
	Subtotal  float64 `json:"subtotal"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	AddedAt   string  `json:"addedAt,omitempty"`
}

func buildCartPayload(cart services.Cart) cartPayload {
	payload := cartPayload{
		ID:          cart.ID,
		Items:       make([]cartItemPayload, 0, len(cart.Items)),
		Total:       domain.MajorUnits(cart.Total),
		TotalItems:  cart.TotalItems,
		LastUpdated: formatTime(cart.LastUpdated),
	}
	for _, item := range cart.Items {
		payload.Items = append(payload.Items, cartItemPayload{
			ProductID: jsonID(item.ProductID),
			Quantity:  item.Quantity,
			Title:     item.Title,
			Author:    item.Author,
			Price:     domain.MajorUnits(item.Price),
			Subtotal:  domain.MajorUnits(item.Subtotal()),
			ImageURL:  item.ImageURL,
			AddedAt:   formatTime(item.AddedAt),
		})
	}
	return payload
}
