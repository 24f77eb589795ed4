package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"
)

func TestHeuristicsMergePartialOverride(t *testing.T) {
	base := DefaultHeuristics()

	merged := base.Merge(Heuristics{
		ProhibitedTerms:      []string{"tobacco"},
		MinDescriptionLength: 5,
	})

	assert.Equal(t, []string{"tobacco"}, merged.ProhibitedTerms)
	assert.Equal(t, 5, merged.MinDescriptionLength)
	// Lists not named in the override keep the defaults.
	assert.Equal(t, base.ExpenseKeywords, merged.ExpenseKeywords)
	assert.Equal(t, base.Currencies, merged.Currencies)
	assert.Equal(t, base.ColumnSampleRows, merged.ColumnSampleRows)
}

func TestHeuristicsYAMLShape(t *testing.T) {
	raw := `
prohibited_terms: [cigarettes, tobacco]
currencies:
  - code: NGN
    words: [ngn, naira]
    symbols: ["₦"]
min_description_length: 8
`
	var h Heuristics
	assert.NoError(t, yaml.Unmarshal([]byte(raw), &h))
	assert.Equal(t, []string{"cigarettes", "tobacco"}, h.ProhibitedTerms)
	assert.Equal(t, "NGN", h.Currencies[0].Code)
	assert.Equal(t, 8, h.MinDescriptionLength)
}
