package converter

// standardize.go turns one flat product mapping into one canonical row.
//
// Each target column resolves through an ordered chain of extractors; the
// first one that yields a non-empty value wins and the rest are skipped.
// The same "only if still unset" rule applies to the nested identifiers
// block and to the residual field-mapping pass at the end. Missing data is
// never an error: the column simply stays empty.

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// consumedFields are the input keys handled by the explicit extraction rules.
// The residual pass skips them so a field is never mapped twice.
var consumedFields = map[string]bool{
	"identifiers":    true,
	"title":          true,
	"name":           true,
	"description":    true,
	"details":        true,
	"price":          true,
	"brand":          true,
	"category":       true,
	"categories":     true,
	"link":           true,
	"url":            true,
	"specifications": true,
}

// extractor pulls a candidate value for one column out of a flat product.
type extractor func(FlatProduct) string

// firstNonEmpty evaluates extractors in order and returns the first
// non-empty result.
func firstNonEmpty(rec FlatProduct, chain ...extractor) string {
	for _, fn := range chain {
		if v := fn(rec); v != "" {
			return v
		}
	}
	return ""
}

// field returns the stringified value of a top-level key, empty if absent.
func field(name string) extractor {
	return func(rec FlatProduct) string {
		if v, ok := rec[name]; ok {
			return stringify(v)
		}
		return ""
	}
}

// truthyField is like field but also treats falsy values (empty strings,
// zero numbers, empty collections) as absent.
func truthyField(name string) extractor {
	return func(rec FlatProduct) string {
		if v, ok := rec[name]; ok && truthy(v) {
			return stringify(v)
		}
		return ""
	}
}

// nestedField returns the stringified value of inner inside the outer
// sub-mapping, empty if either level is absent.
func nestedField(outer, inner string) extractor {
	return func(rec FlatProduct) string {
		sub, ok := rec[outer].(map[string]any)
		if !ok {
			return ""
		}
		if v, ok := sub[inner]; ok {
			return stringify(v)
		}
		return ""
	}
}

// StandardizeRecord produces one canonical row from a flat product mapping.
// It never fails for missing fields; absent data yields empty strings.
func StandardizeRecord(rec FlatProduct) Row {
	row := NewRow()

	row["Item ID"] = firstNonEmpty(rec,
		field("item_id"),
		field("model_number"),
		nestedField("identifiers", "product_id"),
		nestedField("identifiers", "item_id"),
	)

	row["SKU"] = firstNonEmpty(rec,
		field("model_number"),
		field("store_sku"),
		nestedField("identifiers", "sku"),
		nestedField("identifiers", "model_number"),
	)

	row["Item Name"] = firstNonEmpty(rec,
		field("title"),
		field("name"),
	)

	desc := firstNonEmpty(rec,
		truthyField("description"),
		truthyField("details"),
		truthyField("title"),
	)
	if desc == "" {
		desc = row["Item Name"]
	}
	row["Description"] = desc
	row["CF.Description"] = desc

	if price := resolvePrice(rec); price != "" {
		row["Rate"] = price
		row["Purchase Rate"] = price
		row["CF.Cost"] = price
	}

	row["CF.Manufacturer"] = truthyField("brand")(rec)

	row["Item Type"] = firstNonEmpty(rec,
		truthyField("category"),
		firstCategory,
	)

	row["CF.URL"] = firstNonEmpty(rec,
		truthyField("link"),
		truthyField("url"),
	)

	row["CF.Material"] = materialFromSpecs(rec)

	// Residual pass: opportunistically fill still-empty standard columns from
	// fields the rules above did not consume. First matching input field wins.
	for name, value := range rec {
		if consumedFields[name] {
			continue
		}
		mapped := MapFieldName(name)
		if standardHeaderSet[mapped] && row[mapped] == "" {
			row[mapped] = stringify(value)
		}
	}

	// Constant columns win over anything the residual pass may have written.
	row["Source"] = sourceValue
	row["Purchase Account"] = purchaseAccountValue
	row["Vendor"] = vendorValue
	row["CF.Markup"] = markupValue
	row["CF.Supplier"] = supplierValue

	return row
}

// resolvePrice locates the authoritative price: the buybox_winner sub-mapping
// first, then the top-level price field. Empty means no price was found; a
// non-numeric result is kept as-is (present but unparsed).
func resolvePrice(rec FlatProduct) string {
	if bb, ok := rec["buybox_winner"].(map[string]any); ok {
		if raw, ok := bb["price"]; ok {
			if price := ExtractPrice(raw); price != "" {
				return price
			}
		}
	}
	if raw, ok := rec["price"]; ok {
		if price := ExtractPrice(raw); price != "" {
			return price
		}
	}
	return ""
}

// firstCategory returns the first element of a categories list, if any.
func firstCategory(rec FlatProduct) string {
	categories, ok := rec["categories"].([]any)
	if !ok || len(categories) == 0 {
		return ""
	}
	return stringify(categories[0])
}

// materialFromSpecs scans a specifications list of {key, value} mappings for
// a material entry, case-insensitively. The last match wins.
func materialFromSpecs(rec FlatProduct) string {
	specs, ok := rec["specifications"].([]any)
	if !ok {
		return ""
	}
	material := ""
	for _, s := range specs {
		spec, ok := s.(map[string]any)
		if !ok {
			continue
		}
		key, _ := spec["key"].(string)
		value, hasValue := spec["value"]
		if !hasValue {
			continue
		}
		switch strings.ToLower(key) {
		case "material", "materials":
			material = stringify(value)
		}
	}
	return material
}

// stringify renders a JSON-decoded value as its string form. Nil becomes
// the empty string; numbers keep their source formatting via json.Number.
func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// truthy reports whether a JSON-decoded value carries data: non-empty
// strings and collections, non-zero numbers, true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err != nil || f != 0
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
