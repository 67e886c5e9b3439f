package converter

// price.go extracts a numeric price string from the representations vendors
// actually ship: bare numbers, currency-formatted strings ("$1,234.56"),
// and occasionally garbage. Unparseable values pass through unchanged so the
// export preserves whatever the vendor sent; nothing here raises an error.

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

// priceRegex matches an optional dollar sign followed by digits with
// optional thousands separators and an optional decimal part.
var priceRegex = regexp.MustCompile(`\$?([\d,]+\.?\d*)`)

// ExtractPrice extracts a price value from various formats.
// Numeric input returns its string form; strings are scanned for a
// currency-style number and returned with separators stripped; anything
// else is stringified as-is.
func ExtractPrice(value any) string {
	switch v := value.(type) {
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case string:
		if m := priceRegex.FindStringSubmatch(v); m != nil {
			return strings.ReplaceAll(m[1], ",", "")
		}
		return v
	}
	return stringify(value)
}
