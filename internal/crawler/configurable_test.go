package crawler

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/pricetracker/internal/model"
	"sjsage522/pricetracker/internal/price"
	perrors "sjsage522/pricetracker/pkg/errors"
)

func extractorFor(t *testing.T, store model.Store) Extractor {
	t.Helper()
	e, ok := CreateRegistry(price.DefaultNormalizer()).Lookup(store)
	require.True(t, ok, "no extractor for %s", store)
	return e
}

func assertPrice(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func TestStructuredDataWinsOverSelectors(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@type":"Product","offers":{"@type":"Offer","price":"2799.90","priceCurrency":"BRL"}}</script>
</head><body><span class="price__current">R$ 2.999,90</span></body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "2799.90", res.Price)
	assert.Equal(t, StrategyStructuredData, res.Strategy)
	assert.Equal(t, "BRL", res.Currency)
}

func TestStructuredDataGraphAndOfferArrays(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"@context":"https://schema.org","@graph":[
  {"@type":"BreadcrumbList"},
  {"@type":"Product","offers":[{"@type":"AggregateOffer","lowPrice":1649.5}]}
]}</script>
</head><body></body></html>`

	res, err := extractorFor(t, model.StorePichau).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "1649.50", res.Price)
	assert.Equal(t, StrategyStructuredData, res.Strategy)
}

func TestStructuredDataBadJSONIsIgnored(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"offers": {"price": </script>
</head><body><span class="price__current">R$ 1.899,90</span></body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "1899.90", res.Price)
	assert.Equal(t, StrategySelector, res.Strategy)
}

func TestPageStateInDocumentOrder(t *testing.T) {
	page := `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"props":{"pageProps":{"product":{
  "id": 98765,
  "stock": 12,
  "priceDetails": {"installments": 12, "current": 1499.9},
  "oldPrice": 1799.9
}}}}</script>
</body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	// installments is rejected by range, current is the next candidate
	assertPrice(t, "1499.90", res.Price)
	assert.Equal(t, StrategyPageState, res.Strategy)
}

func TestPageStateAcceptsLocaleStrings(t *testing.T) {
	page := `<html><body>
<script id="__NEXT_DATA__" type="application/json">{"produto":{"valorVenda":"R$ 3.249,00"}}</script>
</body></html>`

	res, err := extractorFor(t, model.StoreTerabyte).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "3249.00", res.Price)
}

func TestSelectorLocaleText(t *testing.T) {
	page := `<html><body><div><span class="price__current">R$ 1.899,90</span></div></body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "1899.90", res.Price)
	assert.Equal(t, StrategySelector, res.Strategy)
}

func TestSelectorAttributeFallback(t *testing.T) {
	page := `<html><head><meta itemprop="price" content="1899.9"></head><body></body></html>`

	res, err := extractorFor(t, model.StorePichau).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "1899.90", res.Price)
	assert.Equal(t, StrategySelector, res.Strategy)
}

func TestSelectorNestedClassFragments(t *testing.T) {
	page := `<html><body><div class="area-preco"><span class="valor-final">R$ 4.199,00</span></div></body></html>`

	res, err := extractorFor(t, model.StoreTerabyte).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "4199.00", res.Price)
}

func TestScriptScan(t *testing.T) {
	page := `<html><body>
<script>window.dataLayer = [{"event":"view_item","price":"3299,00","qty":1}];</script>
</body></html>`

	res, err := extractorFor(t, model.StorePichau).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "3299.00", res.Price)
	assert.Equal(t, StrategyScriptScan, res.Strategy)
}

func TestScriptScanKeepsDecimalPoint(t *testing.T) {
	page := `<html><body><script>var p = {"Price": 1999.90};</script></body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "1999.90", res.Price)
}

func TestScriptScanSingleDecimalDigit(t *testing.T) {
	for raw, want := range map[string]string{
		`{"price": 1899.9}`:   "1899.90",
		`{"price": "2499,5"}`: "2499.50",
		`{"price": 1299}`:     "1299.00",
	} {
		page := `<html><body><script>var item = ` + raw + `;</script></body></html>`

		res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
		require.NoError(t, err, raw)
		assertPrice(t, want, res.Price)
		assert.Equal(t, StrategyScriptScan, res.Strategy, raw)
	}
}

func TestRejectedCandidateFallsThrough(t *testing.T) {
	page := `<html><head>
<script type="application/ld+json">{"offers":{"price":"5"}}</script>
</head><body><span class="price__current">R$ 749,00</span></body></html>`

	res, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.NoError(t, err)
	assertPrice(t, "749.00", res.Price)
	assert.Equal(t, StrategySelector, res.Strategy)
}

func TestNoPriceFound(t *testing.T) {
	page := `<html><body><h1>Produto indisponível</h1><span class="price__current">   </span></body></html>`

	_, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.Error(t, err)
	assert.Equal(t, perrors.ReasonNoPriceFound, perrors.ReasonOf(err))
}

func TestOutOfRangeIsValidationFailure(t *testing.T) {
	page := `<html><body><span class="price__current">R$ 10,00</span></body></html>`

	_, err := extractorFor(t, model.StoreKabum).Extract([]byte(page))
	require.Error(t, err)
	assert.Equal(t, perrors.ReasonValidationFailed, perrors.ReasonOf(err))
}

func TestCustomBoundsApply(t *testing.T) {
	normalizer := price.NewNormalizer(decimal.NewFromInt(1), decimal.NewFromInt(100))
	e := NewConfigurableExtractor(StoreConfig{
		Store:     model.StoreKabum,
		Selectors: []Selector{{Query: ".p"}},
	}, normalizer)

	res, err := e.Extract([]byte(`<p class="p">R$ 10,00</p>`))
	require.NoError(t, err)
	assertPrice(t, "10", res.Price)
	assert.Equal(t, "BRL", res.Currency)
}

func TestRegistry(t *testing.T) {
	registry := CreateRegistry(nil)
	assert.Equal(t, len(model.Stores), registry.Len())

	for _, store := range model.Stores {
		e, ok := registry.Lookup(store)
		require.True(t, ok)
		assert.Equal(t, store, e.GetStore())
	}

	_, ok := registry.Lookup(model.Store("AMAZON"))
	assert.False(t, ok)
}
