package converter

// headers.go defines the canonical output schema. Every exported row carries
// exactly these columns in this order; five of them are constants that
// identify the import source to the receiving inventory system.

// StandardHeaders is the fixed, ordered set of output column names.
var StandardHeaders = []string{
	"Item ID",
	"Item Name",
	"SKU",
	"Description",
	"Rate",
	"Source",
	"Reference ID",
	"Usage unit",
	"Purchase Rate",
	"Purchase Account",
	"Vendor",
	"Item Type",
	"Is Combo Product",
	"CF.Manufacturer",
	"CF.URL",
	"CF.Markup",
	"CF.Description",
	"CF.Supplier",
	"CF.Material",
	"CF.Cost",
}

// Constant column values stamped onto every row regardless of input.
const (
	sourceValue          = "HD"
	purchaseAccountValue = "HD"
	vendorValue          = "HD"
	markupValue          = "43%"
	supplierValue        = "HD"
)

// constantColumns are the columns whose values never depend on the input.
var constantColumns = map[string]bool{
	"Source":           true,
	"Purchase Account": true,
	"Vendor":           true,
	"CF.Markup":        true,
	"CF.Supplier":      true,
}

// standardHeaderSet allows O(1) membership tests during the residual
// field-mapping pass.
var standardHeaderSet = func() map[string]bool {
	set := make(map[string]bool, len(StandardHeaders))
	for _, h := range StandardHeaders {
		set[h] = true
	}
	return set
}()

// FlatProduct is one product's raw fields flattened to a single level by the
// shape resolver. Values may still contain nested sub-structures (such as
// specifications or buybox_winner) that the standardizer inspects directly.
type FlatProduct map[string]any

// Row is one standardized output record keyed by standard header name.
// Every standard column is present; absent data is an empty string.
type Row map[string]string

// NewRow returns a Row with every standard column present and the constant
// columns pre-filled.
func NewRow() Row {
	row := make(Row, len(StandardHeaders))
	for _, h := range StandardHeaders {
		row[h] = ""
	}
	row["Source"] = sourceValue
	row["Purchase Account"] = purchaseAccountValue
	row["Vendor"] = vendorValue
	row["CF.Markup"] = markupValue
	row["CF.Supplier"] = supplierValue
	return row
}

// Values returns the row's values in StandardHeaders order.
func (r Row) Values() []string {
	values := make([]string, len(StandardHeaders))
	for i, h := range StandardHeaders {
		values[i] = r[h]
	}
	return values
}

// HasData reports whether the row carries anything beyond the constant
// columns. Rows that fail this check are near-empty artifacts of the
// lenient shape fallback and are not worth exporting.
func (r Row) HasData() bool {
	for _, h := range StandardHeaders {
		if constantColumns[h] {
			continue
		}
		if r[h] != "" {
			return true
		}
	}
	return false
}
