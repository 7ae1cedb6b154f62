package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Store identifies a supported storefront
type Store string

const (
	StoreKabum    Store = "KABUM"
	StoreTerabyte Store = "TERABYTE"
	StorePichau   Store = "PICHAU"
)

// Stores lists every storefront the tracker knows about
var Stores = []Store{StoreKabum, StoreTerabyte, StorePichau}

// ParseStore normalizes a store identifier, reporting whether it is known
func ParseStore(s string) (Store, bool) {
	st := Store(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Stores {
		if st == known {
			return st, true
		}
	}
	return st, false
}

// Product is a catalog entry whose price is tracked
type Product struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Store         Store      `json:"store"`
	URL           string     `json:"url"`
	SKU           *string    `json:"sku,omitempty"`
	IsActive      bool       `json:"isActive"`
	LastCheckedAt *time.Time `json:"lastCheckedAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PriceObservation is one append-only point of a product's price series
type PriceObservation struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"productId"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	CollectedAt time.Time       `json:"collectedAt"`
}
