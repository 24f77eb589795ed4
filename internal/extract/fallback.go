package extract

import (
	"regexp"
	"strings"
)

// Raw-text regex extraction, used only for critical fields the structured
// pass failed to populate. Each field has a short ordered pattern list;
// first match wins and the candidate still goes through the same cleaner
// before being accepted.

var fallbackDatePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)date\s*:?\s*(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
	regexp.MustCompile(`(\d{1,2}[-/. ][A-Za-z]{3,9}[-/. ]\d{2,4})`),
	regexp.MustCompile(`(\d{1,2}[/.-]\d{1,2}[/.-]\d{2,4})`),
}

var fallbackTotalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)total\s*:?\s*(?:[A-Z]{2,4}\s*:?\s*)?([\d,]+\.\d{2})`),
	regexp.MustCompile(`(?i)amount\s*:?\s*(?:[A-Z]{2,4}\s*:?\s*)?([\d,]+\.\d{2})`),
	regexp.MustCompile(`([\d,]+\.\d{2})`),
}

var fallbackVendorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)vendor\s*:?\s*(\S.*)`),
	regexp.MustCompile(`(?i)(?:merchant|supplier|payee)\s*:?\s*(\S.*)`),
}

func fallbackSearch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

var reTrailingDigits = regexp.MustCompile(`[:\d.,]+$`)

// headerVendorLine guesses the vendor from the receipt header: the first of
// the opening lines that is not numeric and does not trail off into
// digits/punctuation. Same heuristic the raw-text parser has always used.
func headerVendorLine(lines []string) string {
	n := len(lines)
	if n > 5 {
		n = 5
	}
	for _, line := range lines[:n] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if purelyNumeric(line) {
			continue
		}
		if reTrailingDigits.MatchString(line) {
			continue
		}
		return line
	}
	return ""
}
