package crawler

import (
	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/model"
)

// Strategy names one step of the extraction cascade
type Strategy string

const (
	StrategyStructuredData Strategy = "structured-data"
	StrategyPageState      Strategy = "page-state"
	StrategySelector       Strategy = "selector"
	StrategyScriptScan     Strategy = "script-scan"
)

// Result is a validated price found on a page
type Result struct {
	Price    decimal.Decimal
	Currency string
	Strategy Strategy
	// Raw is the text or value the price was read from
	Raw string
}

// Extractor finds the current price in a product page
type Extractor interface {
	// Extract returns a validated price, or a no-price-found / validation-failed error
	Extract(page []byte) (*Result, error)

	// GetStore returns the storefront this extractor handles
	GetStore() model.Store
}

// Selector points at an element expected to hold the displayed price
type Selector struct {
	// Query is a CSS selector; the first match is used
	Query string
	// Attr reads an attribute instead of the element text
	Attr string
}

// StoreConfig describes a storefront for the shared cascade
type StoreConfig struct {
	Store     model.Store
	BaseURL   string
	Currency  string
	Selectors []Selector
	// PageStateSelector locates the hydration payload, defaults to #__NEXT_DATA__
	PageStateSelector string
}

// candidate is a raw value produced by a strategy, in document order
type candidate struct {
	value interface{}
	// locale marks displayed text that must be read with the pt-BR parser
	locale bool
}
