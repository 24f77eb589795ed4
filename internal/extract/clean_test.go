package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanDateFormats(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"textual month abbreviated", "15-Mar-2024", "15-03-2024"},
		{"textual month full", "15 March 2024", "15 03 2024"},
		{"slash dmy", "15/03/2024", "15/03/2024"},
		{"slash mdy disambiguated", "03/15/2024", "15/03/2024"},
		{"dash numeric", "15-03-2024", "15-03-2024"},
		{"iso", "2024-03-15", "2024-03-15"},
		{"iso slash", "2024/03/15", "2024/03/15"},
		{"dotted two digit year", "15.03.24", "15.03.2024"},
		{"surrounding whitespace", "  15/03/2024  ", "15/03/2024"},
		{"impossible day", "31/02/2024", ""},
		{"month thirteen", "15/13/2024", ""},
		{"free text", "not a date", ""},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, cleanDateAt(tc.in, now))
		})
	}
}

func TestCleanDatePreservesSeparator(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "05/01/2024", cleanDateAt("5/1/2024", now))
	assert.Equal(t, "05-01-2024", cleanDateAt("5-1-2024", now))
	assert.Equal(t, "05.01.2024", cleanDateAt("5.1.24", now))
}

func TestWindowYear(t *testing.T) {
	// Pivot behavior checked at a reference year where both sides survive
	// the ten-year plausibility window.
	now := time.Date(2045, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01.01.2050", cleanDateAt("01.01.50", now))
	assert.Equal(t, "01.01.2045", cleanDateAt("01.01.51", now), "1951 is implausible, falls back to current year")

	now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01.01.2020", cleanDateAt("01.01.20", now))
	assert.Equal(t, "01.01.2024", cleanDateAt("01.01.49", now), "2049 is more than 10 years out")
	assert.Equal(t, "01.01.2024", cleanDateAt("01.01.99", now), "1999 is more than 10 years back")
}

func TestCleanDateNeverSubstitutesToday(t *testing.T) {
	// Substituting the current date is the orchestrator's documented last
	// resort, never the cleaner's.
	assert.Equal(t, "", CleanDate("garbage"))
	assert.Equal(t, "", CleanDate("99/99/9999"))
}

func TestCleanAmount(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "1250", "1250"},
		{"decimal", "1250.00", "1250.00"},
		{"thousands", "1,250.00", "1,250.00"},
		{"currency prefix", "KES 1,250.00", "1,250.00"},
		{"symbol and spaces", "$ 45.00 ", "45.00"},
		{"salvage from noise", "12,34", "12"},
		{"letters only", "free", ""},
		{"empty", "", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanAmount(tc.in))
		})
	}
}

func TestCleanAmountIdempotent(t *testing.T) {
	for _, in := range []string{"KES 1,250.00", "1250", "45.00", "$ 99.99", "1,000,000.00"} {
		once := CleanAmount(in)
		require.NotEmpty(t, once, in)
		assert.Equal(t, once, CleanAmount(once), "cleaning a cleaned amount must be a fixed point")
	}
}

func TestIsPositiveAmount(t *testing.T) {
	assert.True(t, IsPositiveAmount("1,250.00"))
	assert.True(t, IsPositiveAmount("KES 10"))
	assert.False(t, IsPositiveAmount("0"))
	assert.False(t, IsPositiveAmount("0.00"))
	assert.False(t, IsPositiveAmount(""))
	assert.False(t, IsPositiveAmount("free lunch"))
}

func TestCleanVendorName(t *testing.T) {
	assert.Equal(t, "Naivas Supermarket", CleanVendorName("  Naivas Supermarket  "))
	assert.Equal(t, "Mama's Fuel & Gas", CleanVendorName("Mama's Fuel & Gas"))
	assert.Equal(t, "7-Eleven", CleanVendorName("7-Eleven"))
	assert.Equal(t, "Jibs Café Bistro", CleanVendorName("Jibs Café Bistro"), "accented names are valid")

	assert.Equal(t, "", CleanVendorName("A"), "too short")
	long := make([]byte, 101)
	for i := range long {
		long[i] = 'a'
	}
	assert.Equal(t, "", CleanVendorName(string(long)), "too long")
	assert.Equal(t, "", CleanVendorName("Vendor #1"), "disallowed character")
	assert.Equal(t, "", CleanVendorName("   "))
}
