package extract

import "strings"

// CheckProhibitedItems scans every line item value and every top-level field
// key and value for the configured banned purchase terms. Matching is
// case-insensitive substring; any single hit short-circuits to true.
// False positives (a vendor named after a banned term) are an accepted
// tradeoff for recall: compliance reviews the flagged record, nothing is
// rejected automatically.
func CheckProhibitedItems(h Heuristics, result *ExtractionResult) bool {
	for _, item := range result.Items {
		for _, v := range item {
			if containsProhibited(h, v) {
				return true
			}
		}
	}
	for k, v := range result.Data {
		if containsProhibited(h, k) || containsProhibited(h, v) {
			return true
		}
	}
	return false
}

func containsProhibited(h Heuristics, s string) bool {
	if s == "" {
		return false
	}
	lower := strings.ToLower(s)
	for _, term := range h.ProhibitedTerms {
		if strings.Contains(lower, strings.ToLower(term)) {
			return true
		}
	}
	return false
}
