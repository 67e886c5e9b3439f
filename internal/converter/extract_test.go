package converter

import (
	"encoding/json"
	"strings"
	"testing"
)

// decodeDoc decodes a JSON document the way the batch pipeline does, with
// numbers preserved as json.Number.
func decodeDoc(t *testing.T, src string) any {
	t.Helper()
	dec := json.NewDecoder(strings.NewReader(src))
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		t.Fatalf("decode test document: %v", err)
	}
	return doc
}

func TestExtractProductsSingleProduct(t *testing.T) {
	doc := decodeDoc(t, `{
		"product": {
			"item_id": "100123",
			"title": "Hammer",
			"description": "Steel framing hammer"
		},
		"buybox_winner": {"price": 24.98}
	}`)

	products := ExtractProducts(doc)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}

	p := products[0]
	if got := stringify(p["item_id"]); got != "100123" {
		t.Errorf("item_id = %q, want %q", got, "100123")
	}
	// The buybox price is hoisted to the flat price field.
	if got := stringify(p["price"]); got != "24.98" {
		t.Errorf("price = %q, want %q", got, "24.98")
	}
}

func TestExtractProductsBuyboxInsideProduct(t *testing.T) {
	doc := decodeDoc(t, `{
		"product": {
			"title": "Drill",
			"buybox_winner": {"price": "$99.00"}
		}
	}`)

	products := ExtractProducts(doc)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	if got := stringify(products[0]["price"]); got != "$99.00" {
		t.Errorf("price = %q, want %q", got, "$99.00")
	}
}

func TestExtractProductsSearchResultsArray(t *testing.T) {
	doc := decodeDoc(t, `{
		"search_results": [
			{
				"product": {"title": "Hammer", "model_number": "H-1"},
				"offers": {"primary": {"price": 19.99}}
			},
			{
				"product": {"title": "Wrench"},
				"snippet": "Adjustable wrench, chrome finish"
			},
			"not an object",
			{}
		]
	}`)

	products := ExtractProducts(doc)
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}

	if got := stringify(products[0]["price"]); got != "19.99" {
		t.Errorf("first price = %q, want %q", got, "19.99")
	}
	// Missing description is backfilled from the result's snippet.
	if got := stringify(products[1]["description"]); got != "Adjustable wrench, chrome finish" {
		t.Errorf("second description = %q", got)
	}
}

func TestExtractProductsSearchResultsObject(t *testing.T) {
	doc := decodeDoc(t, `{
		"search_results": {
			"products": [
				{"title": "Saw", "price": 32.00},
				{"title": "Plane"}
			]
		}
	}`)

	products := ExtractProducts(doc)
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	// Enrichment falls back to the title when nothing better exists.
	if got := stringify(products[1]["description"]); got != "Plane" {
		t.Errorf("description = %q, want %q", got, "Plane")
	}
}

func TestExtractProductsBareProductList(t *testing.T) {
	doc := decodeDoc(t, `{
		"products": [
			{"title": "Chisel", "price": 12.50},
			{"title": "Mallet"}
		]
	}`)

	products := ExtractProducts(doc)
	if len(products) != 2 {
		t.Fatalf("products = %d, want 2", len(products))
	}
	// Bare lists are not enriched; a missing description stays missing.
	if _, ok := products[1]["description"]; ok {
		t.Error("bare list item gained a description")
	}
}

func TestExtractProductsUnrecognized(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"top-level array", `[{"title": "Hammer"}]`},
		{"scalar", `42`},
		{"unrelated object", `{"status": "ok", "count": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractProducts(decodeDoc(t, tt.src)); got != nil {
				t.Errorf("ExtractProducts = %v, want nil", got)
			}
		})
	}
}

func TestEnrichSearchDescriptionProbeOrder(t *testing.T) {
	tests := []struct {
		name string
		item string
		want string
	}{
		{
			name: "existing description untouched",
			item: `{"product": {"title": "T", "description": "keep"}, "snippet": "snip"}`,
			want: "keep",
		},
		{
			name: "snippet",
			item: `{"product": {"title": "T"}, "snippet": "snip"}`,
			want: "snip",
		},
		{
			name: "content spec",
			item: `{"product": {"title": "T"}, "content_spec": {"description": "cs"}}`,
			want: "cs",
		},
		{
			name: "specifications entry",
			item: `{"product": {"title": "T"}, "specifications": [{"key": "Description", "value": "spec"}]}`,
			want: "spec",
		},
		{
			name: "title last",
			item: `{"product": {"title": "T"}}`,
			want: "T",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := decodeDoc(t, `{"search_results": [`+tt.item+`]}`)
			products := ExtractProducts(doc)
			if len(products) != 1 {
				t.Fatalf("products = %d, want 1", len(products))
			}
			if got := stringify(products[0]["description"]); got != tt.want {
				t.Errorf("description = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEnrichProductDescriptionFallbacks(t *testing.T) {
	doc := decodeDoc(t, `{
		"product": {"title": "Ladder", "long_description": "6 ft aluminum step ladder"}
	}`)

	products := ExtractProducts(doc)
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1", len(products))
	}
	if got := stringify(products[0]["description"]); got != "6 ft aluminum step ladder" {
		t.Errorf("description = %q", got)
	}
}
