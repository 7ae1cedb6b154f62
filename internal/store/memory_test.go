package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/internal/model"
)

var base = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) *time.Time {
	t := base.Add(time.Duration(minutes) * time.Minute)
	return &t
}

func TestSortByStaleness(t *testing.T) {
	products := []model.Product{
		{ID: "c", LastCheckedAt: at(10), UpdatedAt: base},
		{ID: "b", UpdatedAt: base.Add(time.Hour)},
		{ID: "e", LastCheckedAt: at(5), UpdatedAt: base.Add(time.Hour)},
		{ID: "a", UpdatedAt: base},
		{ID: "d", LastCheckedAt: at(5), UpdatedAt: base},
	}
	SortByStaleness(products)

	var ids []string
	for _, p := range products {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "e", "c"}, ids)
}

func TestMemoryListActiveProducts(t *testing.T) {
	m := NewMemory()
	m.AddProduct(model.Product{ID: "1", IsActive: true, LastCheckedAt: at(3)})
	m.AddProduct(model.Product{ID: "2", IsActive: false})
	m.AddProduct(model.Product{ID: "3", IsActive: true})

	products, err := m.ListActiveProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "3", products[0].ID)
	assert.Equal(t, "1", products[1].ID)

	count, err := m.CountActiveProducts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	m.FailList = errors.New("connection refused")
	_, err = m.ListActiveProducts(context.Background())
	assert.Error(t, err)
}

func TestMemoryObservations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddProduct(model.Product{ID: "p1", IsActive: true})

	latest, err := m.LatestObservation(ctx, "p1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	for i, v := range []string{"1899.90", "1850.00", "1799.00"} {
		obs := &model.PriceObservation{
			ProductID:   "p1",
			Price:       decimal.RequireFromString(v),
			Currency:    "BRL",
			CollectedAt: base.Add(time.Duration(i) * 24 * time.Hour),
		}
		require.NoError(t, m.InsertObservation(ctx, obs))
		assert.NotEmpty(t, obs.ID)
	}

	latest, err = m.LatestObservation(ctx, "p1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, decimal.RequireFromString("1799").Equal(latest.Price))

	history, err := m.ListObservations(ctx, "p1", base.Add(12*time.Hour), 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].CollectedAt.Before(history[1].CollectedAt))

	limited, err := m.ListObservations(ctx, "p1", time.Time{}, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.True(t, decimal.RequireFromString("1899.90").Equal(limited[0].Price))
}

func TestMemoryUpdateLastChecked(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddProduct(model.Product{ID: "p1", IsActive: true})

	require.NoError(t, m.UpdateLastChecked(ctx, "p1", base))
	p, ok := m.Product("p1")
	require.True(t, ok)
	require.NotNil(t, p.LastCheckedAt)
	assert.True(t, base.Equal(*p.LastCheckedAt))

	assert.NoError(t, m.UpdateLastChecked(ctx, "missing", base))
}
