package price

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Format renders a price the way Brazilian storefronts display it: "R$ 1.234,56"
func Format(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, decPart, _ := strings.Cut(s, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return "R$ " + sign + b.String() + "," + decPart
}
