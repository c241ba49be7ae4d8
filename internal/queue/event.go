// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import (
	"time"

	"github.com/iliyamo/product-catalog/internal/model"
)

// ProductCreatedEvent is published after a product is stored.  It carries
// the full row so consumers never need to query the catalog database.
type ProductCreatedEvent struct {
	ProductID   uint64  `json:"product_id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Price       int64   `json:"price"`
	Stock       int64   `json:"stock"`
	CreatedAt   string  `json:"created_at"` // RFC 3339, UTC
}

// NewProductCreatedEvent builds the event for p at time at.
func NewProductCreatedEvent(p model.Product, at time.Time) ProductCreatedEvent {
	return ProductCreatedEvent{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		CreatedAt:   at.UTC().Format(time.RFC3339),
	}
}
