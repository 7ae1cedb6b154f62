// Package store persists products and price observations.
package store

import (
	"context"
	"sort"
	"time"

	"sjsage522/pricetracker/internal/model"
)

// MaxHistoryPoints caps a single history read
const MaxHistoryPoints = 200

// Repository is the narrow persistence surface used by the pipeline
type Repository interface {
	// ListActiveProducts returns active products, least recently checked first
	ListActiveProducts(ctx context.Context) ([]model.Product, error)

	// CountActiveProducts returns the size of the active catalog
	CountActiveProducts(ctx context.Context) (int, error)

	// LatestObservation returns the newest observation, or nil when there is none
	LatestObservation(ctx context.Context, productID string) (*model.PriceObservation, error)

	// InsertObservation stores obs, assigning an ID when it has none
	InsertObservation(ctx context.Context, obs *model.PriceObservation) error

	// UpdateLastChecked records that a product was attempted at the given time
	UpdateLastChecked(ctx context.Context, productID string, at time.Time) error

	// ListObservations returns observations collected at or after since,
	// oldest first, at most limit rows
	ListObservations(ctx context.Context, productID string, since time.Time, limit int) ([]model.PriceObservation, error)

	Close()
}

// SortByStaleness orders products by last check (never checked first),
// then last update, then ID
func SortByStaleness(products []model.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch {
		case a.LastCheckedAt == nil && b.LastCheckedAt != nil:
			return true
		case a.LastCheckedAt != nil && b.LastCheckedAt == nil:
			return false
		case a.LastCheckedAt != nil && b.LastCheckedAt != nil && !a.LastCheckedAt.Equal(*b.LastCheckedAt):
			return a.LastCheckedAt.Before(*b.LastCheckedAt)
		}
		if !a.UpdatedAt.Equal(b.UpdatedAt) {
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
		return a.ID < b.ID
	})
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > MaxHistoryPoints {
		return MaxHistoryPoints
	}
	return limit
}
