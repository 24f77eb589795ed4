package extract

import (
	"github.com/sunbeam-data/ocr-pipeline/constants"
)

// ExtractedField is a single key/value detection from the OCR backend.
// Confidence is the backend's percentage score in [0,100].
type ExtractedField struct {
	Key        string
	Value      string
	Confidence float64
}

// TableCell is one detected cell in a table. Rows and columns are 0-indexed;
// sparse grids are normal and missing cells are treated as empty strings.
type TableCell struct {
	Row  int
	Col  int
	Text string
}

// Table is a sparse grid of detected cells belonging to one table instance.
type Table struct {
	Cells []TableCell
}

// Rows materializes the sparse cells into a dense [row][col] grid,
// padding unpopulated positions with empty strings.
func (t Table) Rows() [][]string {
	maxRow, maxCol := -1, -1
	for _, c := range t.Cells {
		if c.Row > maxRow {
			maxRow = c.Row
		}
		if c.Col > maxCol {
			maxCol = c.Col
		}
	}
	if maxRow < 0 {
		return nil
	}
	grid := make([][]string, maxRow+1)
	for i := range grid {
		grid[i] = make([]string, maxCol+1)
	}
	for _, c := range t.Cells {
		if c.Row >= 0 && c.Col >= 0 {
			grid[c.Row][c.Col] = c.Text
		}
	}
	return grid
}

// LineItem is a reconstructed expense entry keyed by inferred column role.
// An item only survives to the final result if it carries both a qualifying
// description and a strictly positive amount.
type LineItem map[string]string

// Description returns the item's description value, if any.
func (li LineItem) Description() string { return li[constants.ItemDescription] }

// Amount returns the item's cleaned amount value, if any.
func (li LineItem) Amount() string { return li[constants.ItemAmount] }

// ValidationReport summarizes the quality checks run over a result.
// ConfidenceScore is always derived from the other fields, never set
// independently.
type ValidationReport struct {
	HasCriticalFields bool     `json:"has_critical_fields"`
	HasCompleteItems  bool     `json:"has_complete_items"`
	ConfidenceScore   float64  `json:"confidence_score"`
	Issues            []string `json:"issues"`
}

// ExtractionResult is the structured record produced for one document.
// Data maps canonical field names to cleaned values; Items holds the
// reconstructed line items. Immutable once returned by the orchestrator.
type ExtractionResult struct {
	Data               map[string]string `json:"data"`
	Items              []LineItem        `json:"items"`
	Validation         ValidationReport  `json:"validation"`
	HasProhibitedItems bool              `json:"has_prohibited_items"`
}

// NewResult returns an empty result ready to be populated.
func NewResult() *ExtractionResult {
	return &ExtractionResult{
		Data:  make(map[string]string),
		Items: nil,
	}
}

// Field returns the cleaned value for a canonical field name, or "".
func (r *ExtractionResult) Field(name string) string {
	if r.Data == nil {
		return ""
	}
	return r.Data[name]
}

// OCRResponse is the capability boundary with the cloud OCR backend. A
// backend returns one or more of these shapes per document; absent shapes
// are nil/empty.
type OCRResponse struct {
	Fields   []ExtractedField
	Tables   []Table
	RawLines []string
}

// RawText joins the plain-text lines into a single newline-delimited string.
func (o OCRResponse) RawText() string {
	if len(o.RawLines) == 0 {
		return ""
	}
	out := o.RawLines[0]
	for _, l := range o.RawLines[1:] {
		out += "\n" + l
	}
	return out
}
