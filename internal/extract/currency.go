package extract

import (
	"regexp"
	"strings"

	"github.com/sunbeam-data/ocr-pipeline/constants"
)

// DetectCurrency scans the assembled result plus any raw OCR text for
// currency indicators. Currencies are checked in the configured order and
// the first indicator hit wins; there is no scoring. Returns the
// "Not Detected" sentinel when nothing matches.
func DetectCurrency(h Heuristics, result *ExtractionResult, rawText string) string {
	var sb strings.Builder
	for _, item := range result.Items {
		for _, v := range item {
			sb.WriteString(v)
			sb.WriteByte(' ')
		}
	}
	sb.WriteString(result.Field(constants.FieldTotal))
	sb.WriteByte(' ')
	sb.WriteString(result.Field(constants.FieldVendor))
	sb.WriteByte(' ')
	sb.WriteString(rawText)
	corpus := strings.ToLower(sb.String())

	for _, cur := range h.Currencies {
		for _, w := range cur.Words {
			if matchWholeWord(corpus, strings.ToLower(w)) {
				return cur.Code
			}
		}
		for _, sym := range cur.Symbols {
			if strings.Contains(corpus, sym) {
				return cur.Code
			}
		}
	}
	return constants.CurrencyNotDetected
}

func matchWholeWord(corpus, word string) bool {
	re, err := wordPattern(word)
	if err != nil {
		return strings.Contains(corpus, word)
	}
	return re.MatchString(corpus)
}

func wordPattern(word string) (*regexp.Regexp, error) {
	return regexp.Compile(`(^|[^a-z0-9])` + regexp.QuoteMeta(word) + `($|[^a-z0-9])`)
}
