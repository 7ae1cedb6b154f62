package crawler

import (
	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/price"
	"sjsage522/pricetracker/logger"
)

// Registry maps each supported store to its extractor
type Registry struct {
	extractors map[model.Store]Extractor
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[model.Store]Extractor)}
}

// Register adds or replaces the extractor for its store
func (r *Registry) Register(e Extractor) {
	r.extractors[e.GetStore()] = e
}

// Lookup returns the extractor for store
func (r *Registry) Lookup(store model.Store) (Extractor, bool) {
	e, ok := r.extractors[store]
	return e, ok
}

// Len returns the number of registered stores
func (r *Registry) Len() int {
	return len(r.extractors)
}

// CreateRegistry builds the registry with every supported storefront
func CreateRegistry(normalizer *price.Normalizer) *Registry {
	log := logger.ForComponent("registry")

	registry := NewRegistry()
	for _, cfg := range StoreConfigurations() {
		registry.Register(NewConfigurableExtractor(cfg, normalizer))
		log.Debug().
			Str("store", string(cfg.Store)).
			Int("selectors", len(cfg.Selectors)).
			Msg("Extractor registered")
	}
	return registry
}

// StoreConfigurations lists selector fallbacks per store in priority order
func StoreConfigurations() []StoreConfig {
	return []StoreConfig{
		{
			Store:    model.StoreKabum,
			BaseURL:  "https://www.kabum.com.br",
			Currency: "BRL",
			Selectors: []Selector{
				{Query: "span.price__current"},
				{Query: "strong.finalPrice"},
				{Query: "div.priceCard > strong"},
			},
		},
		{
			Store:    model.StorePichau,
			BaseURL:  "https://www.pichau.com.br",
			Currency: "BRL",
			Selectors: []Selector{
				{Query: ".product-price"},
				{Query: ".finalPrice"},
				{Query: "meta[itemprop='price']", Attr: "content"},
			},
		},
		{
			Store:    model.StoreTerabyte,
			BaseURL:  "https://www.terabyteshop.com.br",
			Currency: "BRL",
			Selectors: []Selector{
				{Query: ".preco-promocional"},
				{Query: ".price"},
				{Query: ".product-price"},
				{Query: "[class*='preco'] [class*='valor']"},
				{Query: "[data-price]", Attr: "data-price"},
			},
		},
	}
}
