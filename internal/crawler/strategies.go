package crawler

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// key names that hold prices in hydration payloads, including pt-BR spellings
	priceKeyRegex = regexp.MustCompile(`(?i)price|preco|preço|valor`)

	// requires three integer digits so small ids and indexes are ignored;
	// serializers drop trailing zeros, so one decimal digit is accepted too
	scriptPriceRegex = regexp.MustCompile(`(?i)"price"\s*:\s*"?(\d{3,}(?:[.,]\d{1,2})?)"?`)
)

const defaultPageStateSelector = "script#__NEXT_DATA__"

// structuredDataCandidates collects offers.price / offers.lowPrice from every
// schema.org JSON-LD block in document order
func structuredDataCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var data interface{}
		dec := json.NewDecoder(strings.NewReader(s.Text()))
		dec.UseNumber()
		if err := dec.Decode(&data); err != nil {
			return
		}
		for _, item := range ldItems(data) {
			out = append(out, offerCandidates(item)...)
		}
	})
	return out
}

// ldItems flattens top level arrays and @graph containers
func ldItems(data interface{}) []map[string]interface{} {
	var items []map[string]interface{}
	switch v := data.(type) {
	case []interface{}:
		for _, el := range v {
			items = append(items, ldItems(el)...)
		}
	case map[string]interface{}:
		items = append(items, v)
		if graph, ok := v["@graph"]; ok {
			items = append(items, ldItems(graph)...)
		}
	}
	return items
}

func offerCandidates(item map[string]interface{}) []candidate {
	var out []candidate

	var offers []map[string]interface{}
	switch o := item["offers"].(type) {
	case map[string]interface{}:
		offers = append(offers, o)
	case []interface{}:
		for _, el := range o {
			if m, ok := el.(map[string]interface{}); ok {
				offers = append(offers, m)
			}
		}
	}

	for _, offer := range offers {
		for _, key := range []string{"price", "lowPrice"} {
			if v, ok := scalar(offer[key]); ok {
				out = append(out, candidate{value: v})
			}
		}
	}

	if v, ok := scalar(item["price"]); ok {
		out = append(out, candidate{value: v})
	}
	return out
}

func scalar(v interface{}) (interface{}, bool) {
	switch t := v.(type) {
	case json.Number:
		return t, true
	case string:
		if strings.TrimSpace(t) == "" {
			return nil, false
		}
		return t, true
	default:
		return nil, false
	}
}

// pageStateCandidates walks the hydration payload in document order and
// returns every scalar found under a price-like key
func pageStateCandidates(doc *goquery.Document, selector string) []candidate {
	if selector == "" {
		selector = defaultPageStateSelector
	}
	raw := strings.TrimSpace(doc.Find(selector).First().Text())
	if raw == "" {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	var out []candidate
	// a broken payload keeps what was collected before the error
	_ = walkPriceKeys(dec, false, &out)
	return out
}

// walkPriceKeys reads one JSON value from dec. Scalars are collected when
// they sit below a key matching priceKeyRegex.
func walkPriceKeys(dec *json.Decoder, inPrice bool, out *[]candidate) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				if err := walkPriceKeys(dec, inPrice || priceKeyRegex.MatchString(key), out); err != nil {
					return err
				}
			}
		case '[':
			for dec.More() {
				if err := walkPriceKeys(dec, inPrice, out); err != nil {
					return err
				}
			}
		}
		// closing delimiter
		_, err := dec.Token()
		return err
	case json.Number, string:
		if inPrice {
			if v, ok := scalar(t); ok {
				*out = append(*out, candidate{value: v})
			}
		}
	}
	return nil
}

// selectorCandidates returns the first non-empty value among the store's selectors
func selectorCandidates(doc *goquery.Document, selectors []Selector) []candidate {
	for _, sel := range selectors {
		found := doc.Find(sel.Query).First()
		if found.Length() == 0 {
			continue
		}

		if sel.Attr != "" {
			if v, ok := found.Attr(sel.Attr); ok && strings.TrimSpace(v) != "" {
				return []candidate{{value: strings.TrimSpace(v)}}
			}
			continue
		}

		if text := strings.TrimSpace(found.Text()); text != "" {
			return []candidate{{value: text, locale: true}}
		}
	}
	return nil
}

// scriptScanCandidates looks for "price": <value> in every inline script
func scriptScanCandidates(doc *goquery.Document) []candidate {
	var out []candidate
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		for _, m := range scriptPriceRegex.FindAllStringSubmatch(s.Text(), -1) {
			// the match has no thousands separator, so a comma is decimal
			out = append(out, candidate{value: json.Number(strings.Replace(m[1], ",", ".", 1))})
		}
	})
	return out
}
