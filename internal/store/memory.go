package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"sjsage522/pricetracker/internal/model"
)

// Memory is an in-process Repository used for local runs and tests
type Memory struct {
	mu           sync.RWMutex
	products     map[string]model.Product
	observations map[string][]model.PriceObservation

	// FailList makes ListActiveProducts return this error when set
	FailList error
}

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		products:     make(map[string]model.Product),
		observations: make(map[string][]model.PriceObservation),
	}
}

// AddProduct inserts or replaces a product
func (m *Memory) AddProduct(p model.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	m.products[p.ID] = p
}

// Product returns a copy of the stored product
func (m *Memory) Product(id string) (model.Product, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	return p, ok
}

// Observations returns every observation of a product, oldest first
func (m *Memory) Observations(productID string) []model.PriceObservation {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]model.PriceObservation, len(m.observations[productID]))
	copy(out, m.observations[productID])
	return out
}

func (m *Memory) ListActiveProducts(ctx context.Context) ([]model.Product, error) {
	if m.FailList != nil {
		return nil, m.FailList
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Product
	for _, p := range m.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	SortByStaleness(out)
	return out, nil
}

func (m *Memory) CountActiveProducts(ctx context.Context) (int, error) {
	if m.FailList != nil {
		return 0, m.FailList
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var n int
	for _, p := range m.products {
		if p.IsActive {
			n++
		}
	}
	return n, nil
}

func (m *Memory) LatestObservation(ctx context.Context, productID string) (*model.PriceObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	obs := m.observations[productID]
	if len(obs) == 0 {
		return nil, nil
	}
	latest := obs[len(obs)-1]
	return &latest, nil
}

func (m *Memory) InsertObservation(ctx context.Context, obs *model.PriceObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if obs.ID == "" {
		obs.ID = uuid.NewString()
	}
	list := append(m.observations[obs.ProductID], *obs)
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CollectedAt.Before(list[j].CollectedAt)
	})
	m.observations[obs.ProductID] = list
	return nil
}

func (m *Memory) UpdateLastChecked(ctx context.Context, productID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[productID]
	if !ok {
		return nil
	}
	checked := at
	p.LastCheckedAt = &checked
	m.products[productID] = p
	return nil
}

func (m *Memory) ListObservations(ctx context.Context, productID string, since time.Time, limit int) ([]model.PriceObservation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	limit = clampLimit(limit)
	var out []model.PriceObservation
	for _, o := range m.observations[productID] {
		if o.CollectedAt.Before(since) {
			continue
		}
		out = append(out, o)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *Memory) Close() {}
