package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/storefront/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventProductCreated EventType = "product.created"
	EventProductUpdated EventType = "product.updated"
	EventProductDeleted EventType = "product.deleted"
)

// ProductEvents lists every catalog mutation event.
func ProductEvents() []EventType {
	return []EventType{EventProductCreated, EventProductUpdated, EventProductDeleted}
}

// Event represents a committed catalog mutation.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	ProductID string          `json:"product_id"`
	Timestamp time.Time       `json:"timestamp"`
	Product   *domain.Product `json:"product,omitempty"`
}

// NewProductEvent stamps a new event for product.
func NewProductEvent(eventType EventType, product *domain.Product) Event {
	evt := Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Product:   product,
	}
	if product != nil {
		evt.ProductID = product.ID
	}
	return evt
}
