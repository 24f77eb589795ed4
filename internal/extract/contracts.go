package extract

import (
	"context"
	"fmt"
)

// OCRClient is the capability boundary with the managed OCR backend. The
// client is constructed once at process start and injected; it must be safe
// for concurrent use across documents.
type OCRClient interface {
	// AnalyzeForms runs the structured mode: key/value form detections plus
	// table cells, with raw lines when the backend returns them alongside.
	AnalyzeForms(ctx context.Context, doc []byte) (OCRResponse, error)
	// AnalyzeExpense runs the receipt-specialized mode: summary fields plus
	// grouped line items.
	AnalyzeExpense(ctx context.Context, doc []byte) (OCRResponse, error)
	// DetectText runs the plain-text mode and returns raw text lines.
	DetectText(ctx context.Context, doc []byte) ([]string, error)
}

// Strategy is one versioned variant of the primary extraction pass. The
// heuristics were iterated many times against live receipts; pinning the
// variant in configuration keeps the current behavior explicit instead of
// depending on which revision happens to be deployed.
type Strategy interface {
	Name() string
	Extract(ctx context.Context, client OCRClient, doc []byte) (OCRResponse, error)
}

// FormsTablesStrategy asks the backend for key/value forms plus tables.
type FormsTablesStrategy struct{}

func (FormsTablesStrategy) Name() string { return "forms_tables" }

func (FormsTablesStrategy) Extract(ctx context.Context, client OCRClient, doc []byte) (OCRResponse, error) {
	return client.AnalyzeForms(ctx, doc)
}

// ExpenseStrategy uses the backend's receipt-specialized analysis.
type ExpenseStrategy struct{}

func (ExpenseStrategy) Name() string { return "expense" }

func (ExpenseStrategy) Extract(ctx context.Context, client OCRClient, doc []byte) (OCRResponse, error) {
	return client.AnalyzeExpense(ctx, doc)
}

// StrategyByName resolves a configured strategy name.
func StrategyByName(name string) (Strategy, error) {
	switch name {
	case "", "forms_tables":
		return FormsTablesStrategy{}, nil
	case "expense":
		return ExpenseStrategy{}, nil
	default:
		return nil, fmt.Errorf("unknown extraction strategy %q", name)
	}
}
