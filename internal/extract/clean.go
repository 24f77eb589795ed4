package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// Cleaners normalize raw OCR strings into canonical representations. They
// never fail hard: an empty return means "could not normalize" and the
// caller decides whether to drop the field or trigger the fallback pass.

var (
	// Tried in priority order; first structural match wins. No cross-format
	// disambiguation beyond that.
	reDateTextMonth = regexp.MustCompile(`^(\d{1,2})([-/. ])([A-Za-z]{3,9})[-/. ](\d{2,4})$`)
	reDateDotted    = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{2})$`)
	reDateISO       = regexp.MustCompile(`^(\d{4})([-/])(\d{1,2})[-/](\d{1,2})$`)
	reDateNumeric   = regexp.MustCompile(`^(\d{1,2})([-/])(\d{1,2})[-/](\d{2}|\d{4})$`)

	reMoney        = regexp.MustCompile(`^(\d{1,3}(,\d{3})+|\d+)(\.\d{2})?$`)
	reMoneySalvage = regexp.MustCompile(`\d{1,3}(,\d{3})+(\.\d{2})?|\d+(\.\d{2})?`)
	reNonMoney     = regexp.MustCompile(`[^0-9.,]`)

	reVendorAllow = regexp.MustCompile(`^[\p{L}\p{N}&' -]+$`)
	reAllDigits   = regexp.MustCompile(`^[\d\s.,/-]+$`)
)

var monthsByName = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March, "apr": time.April,
	"may": time.May, "jun": time.June, "jul": time.July, "aug": time.August,
	"sep": time.September, "oct": time.October, "nov": time.November, "dec": time.December,
}

// CleanDate normalizes a raw date string into DD<sep>MM<sep>YYYY (or
// YYYY<sep>MM<sep>DD for ISO input), preserving the separator found in the
// input. Returns "" when no supported pattern matches; it never substitutes
// the current date here; that is the orchestrator's documented last resort.
func CleanDate(raw string) string {
	return cleanDateAt(raw, time.Now())
}

func cleanDateAt(raw string, now time.Time) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := reDateTextMonth.FindStringSubmatch(s); m != nil {
		month, ok := textMonth(m[3])
		if !ok {
			return ""
		}
		day, _ := strconv.Atoi(m[1])
		year := windowYear(m[4], now)
		return formatDMY(day, int(month), year, m[2], now)
	}

	if m := reDateDotted.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year := windowYear(m[3], now)
		return formatDMY(day, month, year, ".", now)
	}

	if m := reDateISO.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[3])
		day, _ := strconv.Atoi(m[4])
		if !validYMD(year, month, day) {
			return ""
		}
		return fmt.Sprintf("%04d%s%02d%s%02d", year, m[2], month, m[2], day)
	}

	if m := reDateNumeric.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[3])
		year := windowYear(m[4], now)
		// First component is read as the day unless it can only be a month.
		day, month := a, b
		if a <= 12 && b > 12 && b <= 31 {
			day, month = b, a
		}
		return formatDMY(day, month, year, m[2], now)
	}

	return ""
}

func textMonth(name string) (time.Month, bool) {
	m, ok := monthsByName[strings.ToLower(name)[:3]]
	return m, ok
}

// windowYear maps two-digit years around the pivot 50 (<=50 -> 2000s,
// otherwise 1900s). A windowed year more than 10 years from the current year
// is taken to be an OCR digit error and replaced with the current year.
func windowYear(ys string, now time.Time) int {
	year, _ := strconv.Atoi(ys)
	if len(ys) == 4 {
		return year
	}
	if year <= 50 {
		year += 2000
	} else {
		year += 1900
	}
	if diff := year - now.Year(); diff > 10 || diff < -10 {
		return now.Year()
	}
	return year
}

func formatDMY(day, month, year int, sep string, now time.Time) string {
	if !validYMD(year, month, day) {
		return ""
	}
	return fmt.Sprintf("%02d%s%02d%s%04d", day, sep, month, sep, year)
}

func validYMD(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || day > 31 || year < 1000 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// CleanAmount strips everything but digits, '.' and ',' and validates the
// remainder against a money shape. When the stripped string as a whole is
// not money-shaped, it tries to salvage a numeric substring before giving
// up. Already-clean amounts are a fixed point.
func CleanAmount(raw string) string {
	s := reNonMoney.ReplaceAllString(strings.TrimSpace(raw), "")
	if s == "" {
		return ""
	}
	if reMoney.MatchString(s) {
		return s
	}
	if sub := reMoneySalvage.FindString(s); sub != "" && reMoney.MatchString(sub) {
		return sub
	}
	return ""
}

// AmountValue parses a cleaned amount into a decimal. Thousands separators
// are tolerated.
func AmountValue(s string) (decimal.Decimal, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IsPositiveAmount reports whether s cleans to a strictly positive amount.
func IsPositiveAmount(s string) bool {
	cleaned := CleanAmount(s)
	if cleaned == "" {
		return false
	}
	d, ok := AmountValue(cleaned)
	return ok && d.IsPositive()
}

// CleanVendorName trims and validates a vendor name: 2-100 characters from
// a conservative allow-list (letters, digits, spaces, '&', apostrophe,
// hyphen). Returns "" otherwise.
func CleanVendorName(raw string) string {
	s := strings.TrimSpace(raw)
	n := utf8.RuneCountInString(s)
	if n < 2 || n > 100 {
		return ""
	}
	if !reVendorAllow.MatchString(s) {
		return ""
	}
	return s
}

// looksLikeAmount reports whether the cell text is amount-shaped: it cleans
// to a valid, strictly positive amount.
func looksLikeAmount(s string) bool {
	return IsPositiveAmount(s)
}

// purelyNumeric reports whether the string carries no letters at all, only
// digits, separators and whitespace.
func purelyNumeric(s string) bool {
	return reAllDigits.MatchString(strings.TrimSpace(s))
}
