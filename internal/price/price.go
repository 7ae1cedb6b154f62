// Package price turns scraped numeric text into validated decimal prices.
package price

import (
	"encoding/json"
	"math"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	nonNumeric      = regexp.MustCompile(`[^\d,.\-]`)
	twoDigitDecimal = regexp.MustCompile(`\.\d{2}$`)
)

// Normalizer parses and validates candidate prices against a sane range
type Normalizer struct {
	Min decimal.Decimal
	Max decimal.Decimal
}

// NewNormalizer creates a normalizer accepting values in [min, max]
func NewNormalizer(min, max decimal.Decimal) *Normalizer {
	return &Normalizer{Min: min, Max: max}
}

// DefaultNormalizer accepts values between 50 and 200000
func DefaultNormalizer() *Normalizer {
	return NewNormalizer(decimal.NewFromInt(50), decimal.NewFromInt(200000))
}

// ParseLocale parses pt-BR style text such as "R$ 1.234,56".
//
// Everything but digits, comma, period and minus is dropped. When a comma is
// present the last comma is the decimal separator and every period is a
// thousands separator. Text with only a period followed by exactly two digits
// is already decimal. Anything else is read as an integer digit string.
func ParseLocale(text string) (decimal.Decimal, bool) {
	cleaned := nonNumeric.ReplaceAllString(text, "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	switch {
	case strings.Contains(cleaned, ","):
		idx := strings.LastIndex(cleaned, ",")
		intPart := strings.ReplaceAll(cleaned[:idx], ".", "")
		decPart := strings.ReplaceAll(cleaned[idx+1:], ".", "")
		intPart = strings.ReplaceAll(intPart, ",", "")
		cleaned = intPart + "." + decPart
	case strings.Count(cleaned, ".") == 1 && twoDigitDecimal.MatchString(cleaned):
		// already decimal
	default:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	cleaned = strings.TrimSuffix(cleaned, ".")
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseMachine parses machine formatted numbers ("2799.90", "2799,90") found
// in structured data. Locale formatted text is rejected.
func ParseMachine(text string) (decimal.Decimal, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(text), " ", "")
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Candidate converts a raw value from structured data into a decimal.
// Strings are read as machine numbers first and as locale text second.
func Candidate(raw interface{}) (decimal.Decimal, bool) {
	switch v := raw.(type) {
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(v), true
	case float32:
		return Candidate(float64(v))
	case int:
		return decimal.NewFromInt(int64(v)), true
	case int64:
		return decimal.NewFromInt(v), true
	case json.Number:
		return ParseMachine(v.String())
	case decimal.Decimal:
		return v, true
	case string:
		if d, ok := ParseMachine(v); ok {
			return d, true
		}
		return ParseLocale(v)
	default:
		return decimal.Zero, false
	}
}

// Validate checks the range and quantizes to two decimal places
func (n *Normalizer) Validate(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.LessThan(n.Min) || d.GreaterThan(n.Max) {
		return decimal.Zero, false
	}
	return d.Round(2), true
}

// Normalize converts and validates a raw candidate in one step
func (n *Normalizer) Normalize(raw interface{}) (decimal.Decimal, bool) {
	d, ok := Candidate(raw)
	if !ok {
		return decimal.Zero, false
	}
	return n.Validate(d)
}

// NormalizeText parses displayed price text and validates it
func (n *Normalizer) NormalizeText(text string) (decimal.Decimal, bool) {
	d, ok := ParseLocale(text)
	if !ok {
		return decimal.Zero, false
	}
	return n.Validate(d)
}
