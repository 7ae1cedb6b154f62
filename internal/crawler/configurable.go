package crawler

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"

	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/price"
	perrors "sjsage522/pricetracker/pkg/errors"
)

// ConfigurableExtractor runs the shared cascade with a store's selectors.
// Strategies are tried in a fixed order and the first validated candidate wins.
type ConfigurableExtractor struct {
	Config     StoreConfig
	Normalizer *price.Normalizer
}

// NewConfigurableExtractor creates an extractor for one storefront
func NewConfigurableExtractor(config StoreConfig, normalizer *price.Normalizer) *ConfigurableExtractor {
	if normalizer == nil {
		normalizer = price.DefaultNormalizer()
	}
	if config.Currency == "" {
		config.Currency = "BRL"
	}
	return &ConfigurableExtractor{Config: config, Normalizer: normalizer}
}

// GetStore returns the storefront handled by this extractor
func (e *ConfigurableExtractor) GetStore() model.Store {
	return e.Config.Store
}

// Extract runs the cascade over an HTML page
func (e *ConfigurableExtractor) Extract(page []byte) (*Result, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return nil, perrors.New(perrors.ReasonNoPriceFound, "", "unparseable page", err)
	}
	return e.ExtractDocument(doc)
}

// ExtractDocument runs the cascade over an already parsed page
func (e *ConfigurableExtractor) ExtractDocument(doc *goquery.Document) (*Result, error) {
	steps := []struct {
		strategy Strategy
		collect  func() []candidate
	}{
		{StrategyStructuredData, func() []candidate { return structuredDataCandidates(doc) }},
		{StrategyPageState, func() []candidate { return pageStateCandidates(doc, e.Config.PageStateSelector) }},
		{StrategySelector, func() []candidate { return selectorCandidates(doc, e.Config.Selectors) }},
		{StrategyScriptScan, func() []candidate { return scriptScanCandidates(doc) }},
	}

	var rejected []string
	for _, step := range steps {
		for _, c := range step.collect() {
			d, ok := e.parse(c)
			if !ok {
				continue
			}
			valid, ok := e.Normalizer.Validate(d)
			if !ok {
				rejected = append(rejected, d.String())
				continue
			}
			return &Result{
				Price:    valid,
				Currency: e.Config.Currency,
				Strategy: step.strategy,
				Raw:      fmt.Sprint(c.value),
			}, nil
		}
	}

	if len(rejected) > 0 {
		return nil, perrors.NewValidation("", fmt.Sprintf("price out of range [%s, %s]: %s",
			e.Normalizer.Min, e.Normalizer.Max, strings.Join(rejected, ", ")))
	}
	return nil, perrors.NewNoPriceFound("")
}

func (e *ConfigurableExtractor) parse(c candidate) (decimal.Decimal, bool) {
	if c.locale {
		if s, ok := c.value.(string); ok {
			return price.ParseLocale(s)
		}
	}
	return price.Candidate(c.value)
}
