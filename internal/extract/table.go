package extract

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sunbeam-data/ocr-pipeline/constants"
)

// Reconstructor turns sparse table grids into structured line items. Receipt
// layouts carry no fixed schema, so column semantics are inferred per table
// from the first few rows that look like real data.
type Reconstructor struct {
	H      Heuristics
	Logger *slog.Logger
}

func NewReconstructor(h Heuristics, logger *slog.Logger) *Reconstructor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconstructor{H: h, Logger: logger}
}

// ReconstructResult carries the retained items plus the running subtotal
// accumulated from single-cell numeric rows interleaved with the items.
type ReconstructResult struct {
	Items     []LineItem
	BillTotal string
}

// Reconstruct processes every table and returns the line items that satisfy
// the retention invariant: a qualifying description AND a strictly positive
// amount. Rows that fail are dropped, not errored.
func (r *Reconstructor) Reconstruct(tables []Table) ReconstructResult {
	var out ReconstructResult
	subtotal := decimal.Zero
	hasSubtotal := false

	for ti, tbl := range tables {
		grid := tbl.Rows()
		if len(grid) == 0 {
			continue
		}

		roles := r.inferColumnRoles(grid)
		firstData := -1

		for ri, row := range grid {
			switch r.classifyRow(row) {
			case rowData:
				if firstData == -1 {
					firstData = ri
				}
				item := r.materialize(row, roles)
				if r.retain(item) {
					out.Items = append(out.Items, item)
				} else {
					r.Logger.Debug("line item dropped", "table", ti, "row", ri)
				}
			case rowSubtotal:
				if v, ok := r.singleAmount(row); ok {
					subtotal = subtotal.Add(v)
					hasSubtotal = true
				}
			case rowSkip:
			}
		}
	}

	if hasSubtotal && subtotal.IsPositive() {
		out.BillTotal = subtotal.StringFixed(2)
	}
	r.Logger.Info("table reconstruction complete", "items", len(out.Items), "bill_total", out.BillTotal)
	return out
}

type rowKind int

const (
	rowSkip rowKind = iota
	rowData
	rowSubtotal
)

// classifyRow decides whether a row is data, noise, or a subtotal
// contribution. Qualification beats the skip patterns: a row containing both
// a day name and a valid expense entry is kept. A missed expense claim costs
// more than a stray noise row a reviewer filters later. A lone amount cell
// can never form a complete item, so it becomes a subtotal contribution.
func (r *Reconstructor) classifyRow(row []string) rowKind {
	if rowEmpty(row) || r.isNoise(row) {
		if r.qualifiesAsData(row) {
			return rowData
		}
		return rowSkip
	}
	if _, ok := r.singleAmount(row); ok {
		return rowSubtotal
	}
	if r.qualifiesAsData(row) {
		return rowData
	}
	return rowSkip
}

func rowEmpty(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func (r *Reconstructor) isNoise(row []string) bool {
	for _, c := range row {
		cell := strings.ToLower(strings.TrimSpace(c))
		if cell == "" {
			continue
		}
		for _, tok := range r.H.NoiseTokens {
			if strings.Contains(cell, strings.ToLower(tok)) {
				return true
			}
		}
	}
	return false
}

// qualifiesAsData: at least one cell is a valid positive amount or a
// description-shaped string.
func (r *Reconstructor) qualifiesAsData(row []string) bool {
	for _, c := range row {
		if looksLikeAmount(c) || r.looksLikeDescription(c) {
			return true
		}
	}
	return false
}

// looksLikeDescription: longer than the configured minimum, not purely
// numeric, not amount-shaped, and mentions at least one expense keyword.
func (r *Reconstructor) looksLikeDescription(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) <= r.H.MinDescriptionLength {
		return false
	}
	if purelyNumeric(s) || looksLikeAmount(s) {
		return false
	}
	lower := strings.ToLower(s)
	for _, kw := range r.H.ExpenseKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// singleAmount reports the value of a row holding exactly one non-empty
// cell that is amount-shaped.
func (r *Reconstructor) singleAmount(row []string) (decimal.Decimal, bool) {
	populated := 0
	var candidate string
	for _, c := range row {
		if strings.TrimSpace(c) == "" {
			continue
		}
		populated++
		candidate = c
	}
	if populated != 1 || !looksLikeAmount(candidate) {
		return decimal.Zero, false
	}
	v, ok := AmountValue(CleanAmount(candidate))
	return v, ok
}

// inferColumnRoles samples the first few qualifying data rows and assigns
// each column a role based on what its values consistently look like.
// Columns that never commit to a shape get a positional placeholder.
func (r *Reconstructor) inferColumnRoles(grid [][]string) []string {
	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	roles := make([]string, width)

	var samples [][]string
	for _, row := range grid {
		if r.qualifiesAsData(row) {
			samples = append(samples, row)
			if len(samples) >= r.H.ColumnSampleRows {
				break
			}
		}
	}

	for col := 0; col < width; col++ {
		var values []string
		for _, row := range samples {
			if col < len(row) && strings.TrimSpace(row[col]) != "" {
				values = append(values, row[col])
			}
		}
		// Date shape is checked before amount shape: stripping the separators
		// from a date leaves a plausible number, the reverse never holds.
		switch {
		case len(values) > 0 && allOf(values, func(s string) bool { return CleanDate(s) != "" }):
			roles[col] = constants.ItemDate
		case len(values) > 0 && allOf(values, looksLikeAmount):
			roles[col] = constants.ItemAmount
		case len(values) > 0 && allOf(values, r.looksLikeDescription):
			roles[col] = constants.ItemDescription
		default:
			roles[col] = fmt.Sprintf("Column %d", col+1)
		}
	}
	return roles
}

// materialize builds a LineItem from a data row, applying the relevant
// cleaner per inferred role. The first value wins when two columns share a
// role.
func (r *Reconstructor) materialize(row []string, roles []string) LineItem {
	item := make(LineItem, len(roles))
	for col, raw := range row {
		raw = strings.TrimSpace(raw)
		if raw == "" || col >= len(roles) {
			continue
		}
		role := roles[col]
		var cleaned string
		switch role {
		case constants.ItemAmount:
			cleaned = CleanAmount(raw)
		case constants.ItemDate:
			cleaned = CleanDate(raw)
		default:
			cleaned = raw
		}
		if cleaned == "" {
			continue
		}
		if _, exists := item[role]; !exists {
			item[role] = cleaned
		}
	}

	// A row can qualify through a description-shaped cell sitting in a column
	// the sampler never committed to. Promote it so the retention check sees it.
	if _, ok := item[constants.ItemDescription]; !ok {
		for _, raw := range row {
			if r.looksLikeDescription(raw) {
				item[constants.ItemDescription] = strings.TrimSpace(raw)
				break
			}
		}
	}
	if _, ok := item[constants.ItemAmount]; !ok {
		for _, raw := range row {
			if looksLikeAmount(raw) {
				item[constants.ItemAmount] = CleanAmount(raw)
				break
			}
		}
	}
	return item
}

// retain enforces the line item invariant at reconstruction time. The
// confidence validator re-checks the same predicate per item later; the
// reconstruction pass works from looser per-row heuristics, so both checks
// earn their keep.
func (r *Reconstructor) retain(item LineItem) bool {
	return r.looksLikeDescription(item.Description()) && IsPositiveAmount(item.Amount())
}

func allOf(values []string, pred func(string) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}
