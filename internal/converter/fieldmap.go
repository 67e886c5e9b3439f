package converter

// fieldmap.go translates arbitrary vendor field names to standard column
// names. Lookup is exact-match first, then a substring scan in table order.
// The table is an ordered slice rather than a map: the substring fallback is
// first-match-wins, so definition order is load-bearing (a field such as
// "subcategory" will match the "category" entry before anything later).

import "strings"

// fieldMapping pairs a lowercase source field name with its standard column.
type fieldMapping struct {
	source    string
	canonical string
}

// fieldMappings covers the naming conventions observed across vendor exports:
// snake_case, camelCase, and a handful of vendor-specific aliases.
var fieldMappings = []fieldMapping{
	// Item ID
	{"id", "Item ID"},
	{"item_id", "Item ID"},
	{"itemid", "Item ID"},
	{"product_id", "Item ID"},
	{"productid", "Item ID"},

	// Item Name
	{"name", "Item Name"},
	{"item_name", "Item Name"},
	{"itemname", "Item Name"},
	{"product_name", "Item Name"},
	{"productname", "Item Name"},
	{"title", "Item Name"},

	// SKU
	{"sku", "SKU"},
	{"item_sku", "SKU"},
	{"itemsku", "SKU"},
	{"product_sku", "SKU"},
	{"productsku", "SKU"},
	{"model", "SKU"},
	{"model_number", "SKU"},
	{"modelnumber", "SKU"},

	// Description
	{"description", "Description"},
	{"item_description", "Description"},
	{"itemdescription", "Description"},
	{"product_description", "Description"},
	{"productdescription", "Description"},
	{"details", "Description"},
	{"product_details", "Description"},
	{"productdetails", "Description"},

	// Rate
	{"price", "Rate"},
	{"rate", "Rate"},
	{"item_price", "Rate"},
	{"itemprice", "Rate"},
	{"product_price", "Rate"},
	{"productprice", "Rate"},
	{"unit_price", "Rate"},
	{"unitprice", "Rate"},

	// Reference ID
	{"reference_id", "Reference ID"},
	{"referenceid", "Reference ID"},
	{"ref_id", "Reference ID"},
	{"refid", "Reference ID"},
	{"external_id", "Reference ID"},
	{"externalid", "Reference ID"},

	// Usage unit
	{"unit", "Usage unit"},
	{"usage_unit", "Usage unit"},
	{"usageunit", "Usage unit"},
	{"measure_unit", "Usage unit"},
	{"measureunit", "Usage unit"},

	// Purchase Rate
	{"purchase_price", "Purchase Rate"},
	{"purchaseprice", "Purchase Rate"},
	{"cost_price", "Purchase Rate"},
	{"costprice", "Purchase Rate"},
	{"wholesale_price", "Purchase Rate"},
	{"wholesaleprice", "Purchase Rate"},

	// Item Type
	{"category", "Item Type"},
	{"item_type", "Item Type"},
	{"itemtype", "Item Type"},
	{"product_type", "Item Type"},
	{"producttype", "Item Type"},
	{"product_category", "Item Type"},
	{"productcategory", "Item Type"},

	// Manufacturer
	{"manufacturer", "CF.Manufacturer"},
	{"brand", "CF.Manufacturer"},
	{"maker", "CF.Manufacturer"},

	// URL
	{"url", "CF.URL"},
	{"product_url", "CF.URL"},
	{"producturl", "CF.URL"},
	{"link", "CF.URL"},
	{"web_link", "CF.URL"},
	{"weblink", "CF.URL"},

	// Material
	{"material", "CF.Material"},
	{"materials", "CF.Material"},
	{"item_material", "CF.Material"},
	{"itemmaterial", "CF.Material"},
	{"product_material", "CF.Material"},
	{"productmaterial", "CF.Material"},
}

// exactMappings is the exact-match index over fieldMappings. Later duplicates
// of the same source key do not override earlier ones.
var exactMappings = func() map[string]string {
	m := make(map[string]string, len(fieldMappings))
	for _, fm := range fieldMappings {
		if _, ok := m[fm.source]; !ok {
			m[fm.source] = fm.canonical
		}
	}
	return m
}()

// MapFieldName maps a source field name to a standard column name.
// Matching is case-insensitive: exact match first, then the first table
// entry whose source key is a substring of the input. Unmapped names are
// returned unchanged; callers drop them unless they happen to equal a
// standard column name verbatim.
func MapFieldName(name string) string {
	lower := strings.ToLower(name)

	if canonical, ok := exactMappings[lower]; ok {
		return canonical
	}

	for _, fm := range fieldMappings {
		if strings.Contains(lower, fm.source) {
			return fm.canonical
		}
	}

	return name
}
