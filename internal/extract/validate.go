package extract

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/sunbeam-data/ocr-pipeline/constants"
)

// Weights for the two independent sub-checks.
const (
	criticalFieldWeight  = 0.4
	itemCompletionWeight = 0.6
)

// Validator scores an assembled result: critical-field coverage (40%) plus
// line-item completeness (60%). The fuzzy key matching needed for
// locale-variant OCR labels lives here and only here; everything upstream
// works with canonical field names.
type Validator struct {
	H      Heuristics
	Logger *slog.Logger
}

func NewValidator(h Heuristics, logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{H: h, Logger: logger}
}

// Validate computes the report for a result and prunes line items that fail
// the strict completeness recheck, so no incomplete item ever reaches the
// persisted record. The confidence score is derived entirely from the two
// sub-check ratios.
func (v *Validator) Validate(res *ExtractionResult) ValidationReport {
	var report ValidationReport

	found := v.criticalCategories(res)
	report.HasCriticalFields = len(found) >= 2
	// Passing the two-category gate earns the full critical weight; the
	// continuous ratio only grades results below the gate. A receipt with
	// date, amount and vendor but no signature line still scores 1.0.
	criticalRatio := 1.0
	if !report.HasCriticalFields {
		criticalRatio = float64(len(found)) / float64(len(constants.CriticalCategories))
		report.Issues = append(report.Issues, missingCriticalIssue(found))
	}

	total := len(res.Items)
	var valid []LineItem
	recon := Reconstructor{H: v.H, Logger: v.Logger}
	for _, item := range res.Items {
		if recon.retain(item) {
			valid = append(valid, item)
		}
	}
	res.Items = valid

	var completionRate float64
	switch {
	case total == 0:
		report.Issues = append(report.Issues, "no valid line items found")
	default:
		completionRate = float64(len(valid)) / float64(total)
		report.HasCompleteItems = len(valid) == total
		if !report.HasCompleteItems {
			report.Issues = append(report.Issues,
				fmt.Sprintf("%d of %d line items incomplete", total-len(valid), total))
		}
	}

	report.ConfidenceScore = round2(criticalFieldWeight*criticalRatio + itemCompletionWeight*completionRate)
	v.Logger.Info("validation complete",
		"confidence", report.ConfidenceScore,
		"critical_fields", report.HasCriticalFields,
		"complete_items", report.HasCompleteItems,
		"issues", len(report.Issues),
	)
	return report
}

// criticalCategories buckets present fields into the four critical
// categories by key substring, since OCR field labels vary across layouts.
func (v *Validator) criticalCategories(res *ExtractionResult) []constants.FieldCategory {
	set := make(map[constants.FieldCategory]struct{})
	for key, value := range res.Data {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if cat, ok := classifyFieldKey(key); ok {
			set[cat] = struct{}{}
		}
	}
	out := make([]constants.FieldCategory, 0, len(set))
	for cat := range set {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func classifyFieldKey(key string) (constants.FieldCategory, bool) {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "signature") || strings.Contains(k, "signed"):
		return constants.CategorySignature, true
	case strings.Contains(k, "date"):
		return constants.CategoryDate, true
	case strings.Contains(k, "amount") || strings.Contains(k, "total") || strings.Contains(k, "sum"):
		return constants.CategoryAmount, true
	case strings.Contains(k, "vendor") || strings.Contains(k, "merchant") ||
		strings.Contains(k, "supplier") || strings.Contains(k, "payee") || strings.Contains(k, "name"):
		return constants.CategoryVendor, true
	}
	return "", false
}

func missingCriticalIssue(found []constants.FieldCategory) string {
	if len(found) == 0 {
		return "missing critical fields; none of date, amount, vendor or signature present"
	}
	names := make([]string, len(found))
	for i, c := range found {
		names[i] = string(c)
	}
	return "missing critical fields; found only: " + strings.Join(names, ", ")
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
