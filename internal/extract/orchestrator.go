package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sunbeam-data/ocr-pipeline/constants"
)

// Orchestrator drives the two-phase extraction pipeline for one document:
// a primary structured pass, a raw-text regex fallback for critical fields
// the primary pass missed, then currency detection, prohibited screening
// and confidence validation over the assembled result. Each phase runs at
// most once; cleaner failures are absorbed as empty fields, never raised.
type Orchestrator struct {
	H        Heuristics
	Client   OCRClient
	Strategy Strategy
	Logger   *slog.Logger

	// Now is overridable for tests of the today-substitution path.
	Now func() time.Time
}

func NewOrchestrator(h Heuristics, client OCRClient, strategy Strategy, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if strategy == nil {
		strategy = FormsTablesStrategy{}
	}
	return &Orchestrator{H: h, Client: client, Strategy: strategy, Logger: logger, Now: time.Now}
}

// criticalFields are the canonical fields the gap check and the fallback
// pass operate on.
var criticalFields = []string{constants.FieldDate, constants.FieldTotal, constants.FieldVendor}

// Process runs the full pipeline and always returns a result. A failing OCR
// call yields a degraded record with zero confidence rather than an error,
// so the document is marked processed-with-error instead of silently lost.
func (o *Orchestrator) Process(ctx context.Context, doc []byte) *ExtractionResult {
	result := NewResult()

	resp, err := o.Strategy.Extract(ctx, o.Client, doc)
	if err != nil {
		o.Logger.Error("extraction failed", "strategy", o.Strategy.Name(), "err", err)
		return o.degraded(err)
	}

	o.populateFields(result, resp.Fields)

	recon := NewReconstructor(o.H, o.Logger).Reconstruct(resp.Tables)
	result.Items = recon.Items
	if recon.BillTotal != "" {
		result.Data[constants.FieldBillTotal] = recon.BillTotal
	}

	rawText := resp.RawText()
	if missing := o.missingCritical(result); len(missing) > 0 {
		o.Logger.Info("primary pass incomplete, running raw-text fallback",
			"strategy", o.Strategy.Name(), "missing", missing)
		var lines []string
		if len(resp.RawLines) > 0 {
			lines = resp.RawLines
		} else if o.Client != nil {
			lines, err = o.Client.DetectText(ctx, doc)
			if err != nil {
				o.Logger.Warn("raw-text pass failed, continuing without it", "err", err)
			}
		}
		if len(lines) > 0 {
			rawText = strings.Join(lines, "\n")
			o.fallbackPass(result, missing, lines, rawText)
		}
	}

	still := o.missingCritical(result)
	if len(still) == len(criticalFields) {
		// Nothing extractable at all: hand the raw text to a human instead of
		// guessing. No date is fabricated for an unreadable document.
		if rawText != "" {
			result.Data[constants.FieldRawText] = rawText
		}
	} else if result.Field(constants.FieldDate) == "" {
		// Last resort for the one field a reviewer cannot reconstruct from
		// context: stamp today. Deliberate divergence from CleanDate, which
		// never guesses.
		result.Data[constants.FieldDate] = o.Now().Format("02-01-2006")
		o.Logger.Warn("date missing after both passes, substituting current date")
	}

	result.Data[constants.FieldCurrency] = DetectCurrency(o.H, result, rawText)
	result.HasProhibitedItems = CheckProhibitedItems(o.H, result)
	result.Validation = NewValidator(o.H, o.Logger).Validate(result)

	o.Logger.Info("document processed",
		"strategy", o.Strategy.Name(),
		"fields", len(result.Data),
		"items", len(result.Items),
		"confidence", result.Validation.ConfidenceScore,
		"prohibited", result.HasProhibitedItems,
	)
	return result
}

// populateFields routes raw form detections into canonical slots via the
// shared key classifier, cleaning each value with the matching cleaner.
// Unclassified fields keep their original key so nothing the backend found
// is thrown away.
func (o *Orchestrator) populateFields(result *ExtractionResult, fields []ExtractedField) {
	for _, f := range fields {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		key := strings.TrimSpace(f.Key)
		cat, ok := classifyFieldKey(key)
		if !ok {
			if _, exists := result.Data[key]; !exists && key != "" {
				result.Data[key] = value
			}
			continue
		}
		switch cat {
		case constants.CategoryDate:
			o.setIfEmpty(result, constants.FieldDate, CleanDate(value), f.Key)
		case constants.CategoryAmount:
			o.setIfEmpty(result, constants.FieldTotal, CleanAmount(value), f.Key)
		case constants.CategoryVendor:
			o.setIfEmpty(result, constants.FieldVendor, CleanVendorName(value), f.Key)
		case constants.CategorySignature:
			o.setIfEmpty(result, constants.FieldSignature, value, f.Key)
		}
	}
}

func (o *Orchestrator) setIfEmpty(result *ExtractionResult, field, cleaned, rawKey string) {
	if cleaned == "" {
		o.Logger.Warn("field failed normalization", "field", field, "source_key", rawKey)
		return
	}
	if result.Data[field] == "" {
		result.Data[field] = cleaned
	}
}

func (o *Orchestrator) missingCritical(result *ExtractionResult) []string {
	var missing []string
	for _, f := range criticalFields {
		if strings.TrimSpace(result.Field(f)) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// fallbackPass tries the per-field regex patterns against the raw text for
// each still-missing critical field, applying the same cleaner before
// accepting a candidate.
func (o *Orchestrator) fallbackPass(result *ExtractionResult, missing, lines []string, rawText string) {
	for _, field := range missing {
		var cleaned string
		switch field {
		case constants.FieldDate:
			cleaned = CleanDate(fallbackSearch(fallbackDatePatterns, rawText))
		case constants.FieldTotal:
			cleaned = CleanAmount(fallbackSearch(fallbackTotalPatterns, rawText))
		case constants.FieldVendor:
			cleaned = CleanVendorName(fallbackSearch(fallbackVendorPatterns, rawText))
			if cleaned == "" {
				cleaned = CleanVendorName(headerVendorLine(lines))
			}
		}
		if cleaned != "" {
			result.Data[field] = cleaned
			o.Logger.Info("field recovered from raw text", "field", field)
		}
	}
}

// degraded builds the processed-with-error record persisted when the OCR
// call itself fails.
func (o *Orchestrator) degraded(err error) *ExtractionResult {
	result := NewResult()
	result.Data[constants.FieldError] = err.Error()
	result.Validation = ValidationReport{
		ConfidenceScore: 0.0,
		Issues:          []string{fmt.Sprintf("Extraction failed: %v", err)},
	}
	return result
}
