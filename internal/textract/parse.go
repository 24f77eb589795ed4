package textract

import (
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
)

// parseAnalyzeBlocks flattens an AnalyzeDocument block graph into the
// pipeline's wire shapes: key/value fields, sparse table grids, and the raw
// LINE text. Textract indexes table cells from 1; the pipeline uses 0.
func parseAnalyzeBlocks(blocks []types.Block) extract.OCRResponse {
	var resp extract.OCRResponse

	byID := make(map[string]types.Block, len(blocks))
	for _, b := range blocks {
		byID[aws.ToString(b.Id)] = b
	}

	for _, b := range blocks {
		switch b.BlockType {
		case types.BlockTypeLine:
			if b.Text != nil {
				resp.RawLines = append(resp.RawLines, *b.Text)
			}
		case types.BlockTypeKeyValueSet:
			if !hasEntityType(b, types.EntityTypeKey) {
				continue
			}
			field := extract.ExtractedField{
				Key:        childText(b, byID),
				Confidence: float64(aws.ToFloat32(b.Confidence)),
			}
			for _, rel := range b.Relationships {
				if rel.Type != types.RelationshipTypeValue {
					continue
				}
				for _, id := range rel.Ids {
					if vb, ok := byID[id]; ok {
						field.Value = strings.TrimSpace(field.Value + " " + childText(vb, byID))
					}
				}
			}
			if field.Key != "" {
				resp.Fields = append(resp.Fields, field)
			}
		case types.BlockTypeTable:
			tbl := parseTable(b, byID)
			if len(tbl.Cells) > 0 {
				resp.Tables = append(resp.Tables, tbl)
			}
		}
	}
	return resp
}

func parseTable(b types.Block, byID map[string]types.Block) extract.Table {
	var tbl extract.Table
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			cell, ok := byID[id]
			if !ok || cell.BlockType != types.BlockTypeCell {
				continue
			}
			row := int(aws.ToInt32(cell.RowIndex)) - 1
			col := int(aws.ToInt32(cell.ColumnIndex)) - 1
			if row < 0 || col < 0 {
				continue
			}
			tbl.Cells = append(tbl.Cells, extract.TableCell{
				Row:  row,
				Col:  col,
				Text: childText(cell, byID),
			})
		}
	}
	return tbl
}

// childText joins a block's child WORD and SELECTION_ELEMENT content.
func childText(b types.Block, byID map[string]types.Block) string {
	var parts []string
	for _, rel := range b.Relationships {
		if rel.Type != types.RelationshipTypeChild {
			continue
		}
		for _, id := range rel.Ids {
			child, ok := byID[id]
			if !ok {
				continue
			}
			switch child.BlockType {
			case types.BlockTypeWord:
				if child.Text != nil {
					parts = append(parts, *child.Text)
				}
			case types.BlockTypeSelectionElement:
				if child.SelectionStatus == types.SelectionStatusSelected {
					parts = append(parts, "SELECTED")
				}
			}
		}
	}
	return strings.Join(parts, " ")
}

func hasEntityType(b types.Block, want types.EntityType) bool {
	for _, et := range b.EntityTypes {
		if et == want {
			return true
		}
	}
	return false
}

// Expense line item field types mapped onto reconstructor columns. The
// receipt-specialized mode already separates description from price, so the
// adapter lays items out as a two-plus column grid the reconstructor can
// sample like any other table.
const (
	expenseColDescription = 0
	expenseColAmount      = 1
	expenseColDate        = 2
	expenseColOther       = 3
)

func expenseColumn(fieldType string) int {
	switch strings.ToUpper(fieldType) {
	case "ITEM", "DESCRIPTION", "PRODUCT_CODE":
		return expenseColDescription
	case "PRICE", "AMOUNT", "UNIT_PRICE", "TOTAL":
		return expenseColAmount
	case "DATE":
		return expenseColDate
	default:
		return expenseColOther
	}
}

// parseExpenseDocuments maps AnalyzeExpense output onto the same wire
// shapes: summary fields become key/value fields keyed by their expense
// type (VENDOR_NAME, TOTAL, INVOICE_RECEIPT_DATE, …) and line item groups
// become tables.
func parseExpenseDocuments(docs []types.ExpenseDocument) extract.OCRResponse {
	var resp extract.OCRResponse

	for _, doc := range docs {
		for _, f := range doc.SummaryFields {
			key := expenseFieldType(f)
			value, conf := expenseFieldValue(f)
			if key == "" && f.LabelDetection != nil {
				key = aws.ToString(f.LabelDetection.Text)
			}
			if key == "" || value == "" {
				continue
			}
			resp.Fields = append(resp.Fields, extract.ExtractedField{
				Key:        key,
				Value:      value,
				Confidence: conf,
			})
		}

		for _, group := range doc.LineItemGroups {
			var tbl extract.Table
			for row, item := range group.LineItems {
				for _, f := range item.LineItemExpenseFields {
					value, _ := expenseFieldValue(f)
					if value == "" {
						continue
					}
					tbl.Cells = append(tbl.Cells, extract.TableCell{
						Row:  row,
						Col:  expenseColumn(expenseFieldType(f)),
						Text: value,
					})
				}
			}
			if len(tbl.Cells) > 0 {
				resp.Tables = append(resp.Tables, tbl)
			}
		}
	}
	return resp
}

func expenseFieldType(f types.ExpenseField) string {
	if f.Type == nil {
		return ""
	}
	return aws.ToString(f.Type.Text)
}

func expenseFieldValue(f types.ExpenseField) (string, float64) {
	if f.ValueDetection == nil {
		return "", 0
	}
	return strings.TrimSpace(aws.ToString(f.ValueDetection.Text)), float64(aws.ToFloat32(f.ValueDetection.Confidence))
}
