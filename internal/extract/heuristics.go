package extract

// Heuristics holds the tunable keyword lists and thresholds used by the
// table reconstructor, screener and currency detector. The defaults were
// tuned against sample receipts from the operations team; deployments
// override them via the YAML heuristics file rather than editing code.
type Heuristics struct {
	// ExpenseKeywords qualifies a cell as a description: a description-shaped
	// string must contain at least one of these.
	ExpenseKeywords []string `yaml:"expense_keywords"`

	// NoiseTokens mark a row as non-data when any cell matches one
	// (case-insensitive substring): day names, form labels, stray currency
	// tokens between item rows.
	NoiseTokens []string `yaml:"noise_tokens"`

	// ProhibitedTerms flag a document for compliance review when found in
	// any field or line item value.
	ProhibitedTerms []string `yaml:"prohibited_terms"`

	// Currencies are checked in order; the first indicator hit wins.
	Currencies []CurrencyIndicator `yaml:"currencies"`

	// MinDescriptionLength is the minimum length for a description-shaped cell.
	MinDescriptionLength int `yaml:"min_description_length"`

	// ColumnSampleRows is how many qualifying data rows are sampled when
	// inferring column roles.
	ColumnSampleRows int `yaml:"column_sample_rows"`
}

// CurrencyIndicator pairs an ISO code with the lexical markers that imply it.
// Words are matched on word boundaries; symbols as plain substrings.
type CurrencyIndicator struct {
	Code    string   `yaml:"code"`
	Words   []string `yaml:"words"`
	Symbols []string `yaml:"symbols"`
}

// DefaultHeuristics returns the built-in tuning. Most receipts the team
// processes come from Kenyan, Ugandan and Tanzanian vendors, so the East
// African currencies are checked before the majors.
func DefaultHeuristics() Heuristics {
	return Heuristics{
		ExpenseKeywords: []string{
			"lunch", "dinner", "breakfast", "meal", "catering", "refreshment",
			"transport", "taxi", "boda", "bus", "fuel", "petrol", "diesel", "parking", "mileage",
			"accommodation", "hotel", "lodging", "conference", "venue",
			"airtime", "data bundle", "internet", "stationery", "printing", "photocopy",
			"facilitation", "training", "workshop", "meeting", "allowance", "per diem",
			"repair", "maintenance", "installation", "equipment", "materials", "supplies",
		},
		NoiseTokens: []string{
			"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
			"id number", "week ending", "employee name", "department", "approved by",
			"signature", "date:", "page", "subtotal carried",
			"ksh", "ugx", "tzs", "usd",
		},
		ProhibitedTerms: []string{
			"alcohol", "beer", "wine", "whisky", "whiskey", "vodka", "rum",
			"brandy", "liquor", "champagne", "tequila", "cider", "spirits",
		},
		Currencies: []CurrencyIndicator{
			{Code: "KES", Words: []string{"kes", "ksh", "kshs", "kenyan shilling", "shillings"}, Symbols: nil},
			{Code: "UGX", Words: []string{"ugx", "ushs", "ugandan shilling"}, Symbols: nil},
			{Code: "TZS", Words: []string{"tzs", "tshs", "tanzanian shilling"}, Symbols: nil},
			{Code: "USD", Words: []string{"usd", "dollar", "dollars"}, Symbols: []string{"$"}},
			{Code: "EUR", Words: []string{"eur", "euro", "euros"}, Symbols: []string{"€"}},
			{Code: "GBP", Words: []string{"gbp", "pound sterling"}, Symbols: []string{"£"}},
		},
		MinDescriptionLength: 10,
		ColumnSampleRows:     3,
	}
}

// Merge overlays non-empty values from o onto h, so a partial YAML file only
// overrides the lists it names.
func (h Heuristics) Merge(o Heuristics) Heuristics {
	if len(o.ExpenseKeywords) > 0 {
		h.ExpenseKeywords = o.ExpenseKeywords
	}
	if len(o.NoiseTokens) > 0 {
		h.NoiseTokens = o.NoiseTokens
	}
	if len(o.ProhibitedTerms) > 0 {
		h.ProhibitedTerms = o.ProhibitedTerms
	}
	if len(o.Currencies) > 0 {
		h.Currencies = o.Currencies
	}
	if o.MinDescriptionLength > 0 {
		h.MinDescriptionLength = o.MinDescriptionLength
	}
	if o.ColumnSampleRows > 0 {
		h.ColumnSampleRows = o.ColumnSampleRows
	}
	return h
}
