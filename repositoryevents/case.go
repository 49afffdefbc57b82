package repositoryevents

import (
	"strings"
	"unicode"
)

// toSnake turns reflected Go type names into event entity names:
// "Product" -> "product", "ProductOffer" -> "product_offer", "SKUItem" -> "sku_item".
// Anything that is not a letter or digit (generic brackets, package dots) becomes
// a single underscore so the result is usable as a cache namespace.
func toSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(runes) + 4)

	pendingSep := false
	for i, r := range runes {
		switch {
		case unicode.IsUpper(r):
			if i > 0 && b.Len() > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					pendingSep = true
				}
			}
			r = unicode.ToLower(r)
		case unicode.IsLower(r), unicode.IsDigit(r):
		default:
			pendingSep = b.Len() > 0
			continue
		}

		if pendingSep {
			b.WriteByte('_')
			pendingSep = false
		}
		b.WriteRune(r)
	}

	return b.String()
}
