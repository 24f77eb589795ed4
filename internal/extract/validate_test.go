package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbeam-data/ocr-pipeline/constants"
)

func TestValidateCleanReceipt(t *testing.T) {
	v := NewValidator(DefaultHeuristics(), nil)

	// Date, amount and vendor with no signature line is the common clean
	// receipt; it scores a full 1.0.
	res := NewResult()
	res.Data[constants.FieldDate] = "15/03/2024"
	res.Data[constants.FieldTotal] = "2,050.00"
	res.Data[constants.FieldVendor] = "Java House"
	res.Items = []LineItem{
		{constants.ItemDescription: "Team lunch at Java House", constants.ItemAmount: "1,250.00"},
		{constants.ItemDescription: "Taxi transport to airport", constants.ItemAmount: "800.00"},
	}

	report := v.Validate(res)
	assert.True(t, report.HasCriticalFields)
	assert.True(t, report.HasCompleteItems)
	assert.Equal(t, 1.0, report.ConfidenceScore)
	assert.Empty(t, report.Issues)
	assert.Len(t, res.Items, 2)
}

func TestValidateEmptyResult(t *testing.T) {
	v := NewValidator(DefaultHeuristics(), nil)

	res := NewResult()
	report := v.Validate(res)

	assert.False(t, report.HasCriticalFields)
	assert.False(t, report.HasCompleteItems)
	assert.Equal(t, 0.0, report.ConfidenceScore)
	require.Len(t, report.Issues, 2)
	assert.Contains(t, report.Issues[1], "no valid line items")
}

func TestValidatePartialCredit(t *testing.T) {
	v := NewValidator(DefaultHeuristics(), nil)

	// Two of four critical categories pass the gate for the full 0.4; one
	// of two items valid: 0.4 + 0.6 * 0.5 = 0.7.
	res := NewResult()
	res.Data[constants.FieldDate] = "15/03/2024"
	res.Data[constants.FieldTotal] = "1,250.00"
	res.Items = []LineItem{
		{constants.ItemDescription: "Team lunch at Java House", constants.ItemAmount: "1,250.00"},
		{constants.ItemDescription: "misc", constants.ItemAmount: "100.00"},
	}

	report := v.Validate(res)
	assert.True(t, report.HasCriticalFields, "two categories pass the gate")
	assert.False(t, report.HasCompleteItems)
	assert.Equal(t, 0.7, report.ConfidenceScore)
	assert.Contains(t, report.Issues[0], "1 of 2 line items incomplete")
}

func TestValidateScoreUsesRatioDespiteFailedGate(t *testing.T) {
	v := NewValidator(DefaultHeuristics(), nil)

	// One category only: the boolean gate fails but the score still earns
	// 0.4 * 0.25 from the continuous ratio.
	res := NewResult()
	res.Data[constants.FieldVendor] = "Java House"
	res.Items = []LineItem{
		{constants.ItemDescription: "Team lunch at Java House", constants.ItemAmount: "1,250.00"},
	}

	report := v.Validate(res)
	assert.False(t, report.HasCriticalFields)
	assert.Equal(t, 0.7, report.ConfidenceScore)
	assert.Contains(t, report.Issues[0], "vendor")
}

func TestValidatePrunesIncompleteItems(t *testing.T) {
	v := NewValidator(DefaultHeuristics(), nil)

	res := NewResult()
	res.Items = []LineItem{
		{constants.ItemDescription: "Team lunch at Java House", constants.ItemAmount: "1,250.00"},
		{constants.ItemDescription: "Accommodation at Hilton Hotel"},
		{constants.ItemAmount: "50.00"},
	}

	v.Validate(res)
	require.Len(t, res.Items, 1, "items failing the completeness predicate never reach the persisted record")
	assert.Equal(t, "Team lunch at Java House", res.Items[0].Description())
}

func TestClassifyFieldKey(t *testing.T) {
	tests := []struct {
		key  string
		want constants.FieldCategory
		ok   bool
	}{
		{"Date", constants.CategoryDate, true},
		{"Invoice date", constants.CategoryDate, true},
		{"Total Amount Requested", constants.CategoryAmount, true},
		{"SUM", constants.CategoryAmount, true},
		{"Vendor Name", constants.CategoryVendor, true},
		{"Merchant", constants.CategoryVendor, true},
		{"Employee name", constants.CategoryVendor, true},
		{"Signature", constants.CategorySignature, true},
		{"Signed by", constants.CategorySignature, true},
		{"Currency", "", false},
		{"raw_text", "", false},
	}
	for _, tc := range tests {
		cat, ok := classifyFieldKey(tc.key)
		assert.Equal(t, tc.ok, ok, tc.key)
		assert.Equal(t, tc.want, cat, tc.key)
	}
}
