package export

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
)

// Service is a tiny façade over the document repository that produces XLSX
// bytes for compliance reporting.
type Service struct {
	docs   repository.DocumentRepository
	logger *slog.Logger
}

func NewService(docs repository.DocumentRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{docs: docs, logger: logger}
}

// ComplianceReportXLSX returns an XLSX workbook (as bytes) listing every
// document flagged for prohibited items, one row per flagged line item, so a
// reviewer sees exactly which purchases tripped the screener.
func (s *Service) ComplianceReportXLSX(ctx context.Context) ([]byte, error) {
	start := time.Now()

	docs, err := s.docs.ListProhibited(ctx)
	if err != nil {
		return nil, fmt.Errorf("query flagged documents: %w", err)
	}

	f := excelize.NewFile()
	const sheet = "Flagged Documents"
	if index, _ := f.GetSheetIndex(sheet); index == -1 {
		if _, err := f.NewSheet(sheet); err != nil {
			return nil, err
		}
	}
	activeIndex, _ := f.GetSheetIndex(sheet)
	f.SetActiveSheet(activeIndex)
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}

	headers := []string{
		"Document ID",
		"File Name",
		"Receipt Date",
		"Vendor",
		"Total Amount",
		"Line Item",
		"Item Amount",
		"Processed At",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, doc := range docs {
		var result extract.ExtractionResult
		if err := json.Unmarshal(doc.ExtractedJSON, &result); err != nil {
			s.logger.Warn("skipping document with unreadable result blob", "id", doc.ID, "err", err)
			continue
		}

		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		writeDoc := func() {
			write(1, doc.ID)
			write(2, doc.FileName)
			write(3, doc.ReceiptDate)
			write(4, doc.VendorName)
			write(5, doc.TotalAmount)
			write(8, doc.CreatedAt.Format("2006-01-02 15:04:05"))
		}

		if len(result.Items) == 0 {
			writeDoc()
			row++
			continue
		}
		for _, item := range result.Items {
			writeDoc()
			write(6, item.Description())
			write(7, item.Amount())
			row++
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render workbook: %w", err)
	}

	s.logger.Info("compliance report generated",
		"documents", len(docs), "rows", row-2, "duration_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}
