package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/store"
)

// Outcome is what the gate did with a price
type Outcome struct {
	Inserted    bool
	Observation *model.PriceObservation
	// Previous is the latest observation before this one, if any
	Previous *model.PriceObservation
}

// Gate persists a price unless it repeats the latest observation within the window
type Gate struct {
	repo   store.Repository
	window time.Duration
	now    func() time.Time
}

// NewGate creates a dedup gate
func NewGate(repo store.Repository, window time.Duration) *Gate {
	return &Gate{repo: repo, window: window, now: time.Now}
}

// IsDuplicate reports whether price repeats latest inside the window at now
func (g *Gate) IsDuplicate(latest *model.PriceObservation, price decimal.Decimal, now time.Time) bool {
	if latest == nil {
		return false
	}
	return latest.Price.Equal(price) && now.Sub(latest.CollectedAt) < g.window
}

// Persist inserts the observation or skips it. force bypasses duplicate suppression.
func (g *Gate) Persist(ctx context.Context, productID string, price decimal.Decimal, currency string, force bool) (*Outcome, error) {
	latest, err := g.repo.LatestObservation(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("latest observation: %w", err)
	}

	now := g.now()
	if !force && g.IsDuplicate(latest, price, now) {
		return &Outcome{Inserted: false, Observation: latest, Previous: latest}, nil
	}

	obs := &model.PriceObservation{
		ProductID:   productID,
		Price:       price,
		Currency:    currency,
		CollectedAt: now,
	}
	if err := g.repo.InsertObservation(ctx, obs); err != nil {
		return nil, fmt.Errorf("insert observation: %w", err)
	}
	return &Outcome{Inserted: true, Observation: obs, Previous: latest}, nil
}
