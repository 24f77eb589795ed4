package constants

// Canonical field names used across the extraction result. OCR form labels
// vary by layout and locale; everything is normalized onto these keys.
const (
	FieldDate      = "Date"
	FieldTotal     = "Total Amount Requested"
	FieldVendor    = "Vendor Name"
	FieldCurrency  = "Currency"
	FieldBillTotal = "Bill Total"
	FieldSignature = "Signature"
	FieldRawText   = "raw_text"
	FieldError     = "error"
)

// Line item keys.
const (
	ItemDescription = "Description"
	ItemAmount      = "Amount"
	ItemDate        = "Date"
)

// CurrencyNotDetected is the sentinel stored when no currency indicator
// matched anywhere in the document.
const CurrencyNotDetected = "Not Detected"

// FieldCategory buckets fields for the critical-field coverage check.
type FieldCategory string

const (
	CategoryDate      FieldCategory = "date"
	CategoryAmount    FieldCategory = "amount"
	CategoryVendor    FieldCategory = "vendor"
	CategorySignature FieldCategory = "signature"
)

// CriticalCategories lists every category the confidence validator looks for.
var CriticalCategories = []FieldCategory{CategoryDate, CategoryAmount, CategoryVendor, CategorySignature}
