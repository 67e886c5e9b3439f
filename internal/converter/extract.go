package converter

// extract.go resolves the shape of a decoded vendor document and pulls out
// flat product mappings for standardization.
//
// Recognized top-level layouts, tried in priority order:
//
//  1. product document: {"product": {...}} with an optional buybox_winner
//     carrying the authoritative price (at top level or inside the product)
//  2. search results, array form: {"search_results": [{product, offers}, ...]}
//  3. search results, object form: {"search_results": {"products": [...]}}
//  4. bare product list: {"products": [...]}
//
// Shapes are not mutually exclusive; the first structural match wins.
// Documents matching none of these return nil and the caller falls back to
// passing the document through as-is (intentionally lenient: a near-empty
// row beats a silently dropped file).

// ExtractProducts pulls zero or more flat product mappings out of a decoded
// JSON document. A nil result means no recognized product structure.
func ExtractProducts(doc any) []FlatProduct {
	root, ok := doc.(map[string]any)
	if !ok {
		return nil
	}

	if product, ok := root["product"].(map[string]any); ok {
		return []FlatProduct{extractProductDocument(root, product)}
	}

	if results, ok := root["search_results"].([]any); ok {
		return extractSearchResultsArray(results)
	}

	if sr, ok := root["search_results"].(map[string]any); ok {
		if list, ok := sr["products"].([]any); ok {
			return extractProductList(list, true)
		}
	}

	if list, ok := root["products"].([]any); ok {
		return extractProductList(list, false)
	}

	return nil
}

// extractProductDocument merges a single product document with its
// buybox_winner pricing. The winner's price is hoisted to the flat price
// field whether the winner sits at the top level or inside the product.
func extractProductDocument(root, product map[string]any) FlatProduct {
	flat := make(FlatProduct, len(product)+2)
	for k, v := range product {
		flat[k] = v
	}

	if bb, ok := root["buybox_winner"].(map[string]any); ok {
		if price, ok := bb["price"]; ok {
			flat["price"] = price
		}
		flat["buybox_winner"] = bb
	} else if bb, ok := flat["buybox_winner"].(map[string]any); ok {
		if price, ok := bb["price"]; ok {
			flat["price"] = price
		}
	}

	enrichProductDescription(flat)
	return flat
}

// extractSearchResultsArray merges each result's product sub-mapping with its
// offers sub-mapping. The primary offer price is hoisted into the flat price
// field; the full offers block is kept for later inspection. Elements
// yielding no data at all are skipped.
func extractSearchResultsArray(results []any) []FlatProduct {
	var products []FlatProduct
	for _, elem := range results {
		item, ok := elem.(map[string]any)
		if !ok {
			continue
		}

		flat := FlatProduct{}
		if p, ok := item["product"].(map[string]any); ok {
			for k, v := range p {
				flat[k] = v
			}
		}
		if offers, ok := item["offers"].(map[string]any); ok {
			flat["offers"] = offers
			if primary, ok := offers["primary"].(map[string]any); ok {
				if price, ok := primary["price"]; ok {
					flat["price"] = price
				}
			}
		}
		if len(flat) == 0 {
			continue
		}

		enrichSearchDescription(flat, item)
		products = append(products, flat)
	}
	return products
}

// extractProductList yields each mapping element as-is. Search-result
// product lists additionally get the description enrichment probe.
func extractProductList(list []any, enrich bool) []FlatProduct {
	var products []FlatProduct
	for _, elem := range list {
		item, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		flat := FlatProduct(item)
		if enrich {
			enrichSearchDescription(flat, item)
		}
		products = append(products, flat)
	}
	return products
}

// enrichSearchDescription fills a missing description on a search-result
// item before standardization. Probe order: the sibling description field,
// a snippet, content_spec.description, a specifications entry keyed
// "Description", then the item's own title.
func enrichSearchDescription(flat FlatProduct, item map[string]any) {
	if truthy(flat["description"]) {
		return
	}
	if truthy(item["description"]) {
		flat["description"] = item["description"]
		return
	}
	if truthy(item["snippet"]) {
		flat["description"] = item["snippet"]
		return
	}
	if cs, ok := item["content_spec"].(map[string]any); ok && truthy(cs["description"]) {
		flat["description"] = cs["description"]
		return
	}
	if specs, ok := item["specifications"].([]any); ok {
		for _, s := range specs {
			spec, ok := s.(map[string]any)
			if !ok {
				continue
			}
			if key, _ := spec["key"].(string); key == "Description" && truthy(spec["value"]) {
				flat["description"] = spec["value"]
				return
			}
		}
	}
	if truthy(flat["title"]) {
		flat["description"] = flat["title"]
	}
}

// enrichProductDescription backfills a missing description on a product
// document from the longer-form fields some exports use instead.
func enrichProductDescription(flat FlatProduct) {
	if truthy(flat["description"]) {
		return
	}
	for _, key := range []string{"description_full", "long_description", "details", "title"} {
		if truthy(flat[key]) {
			flat["description"] = flat[key]
			return
		}
	}
}
