package publisher

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ObservationEvent announces a newly stored price observation
type ObservationEvent struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"productId"`
	Store         string           `json:"store"`
	Price         decimal.Decimal  `json:"price"`
	Currency      string           `json:"currency"`
	CollectedAt   time.Time        `json:"collectedAt"`
	PreviousPrice *decimal.Decimal `json:"previousPrice,omitempty"`
}

// Publisher represents a service for publishing observation events
type Publisher interface {
	// Publish appends an event to the stream
	Publish(ctx context.Context, event ObservationEvent) error

	// TrimStreams trims the stream to the configured maximum length
	TrimStreams(ctx context.Context) error

	// Close closes the publisher connection
	Close() error
}
