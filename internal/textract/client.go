package textract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"

	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
)

// API is the subset of the Textract service the client uses, split out so
// tests can substitute a fake.
type API interface {
	AnalyzeDocument(ctx context.Context, params *textract.AnalyzeDocumentInput, optFns ...func(*textract.Options)) (*textract.AnalyzeDocumentOutput, error)
	AnalyzeExpense(ctx context.Context, params *textract.AnalyzeExpenseInput, optFns ...func(*textract.Options)) (*textract.AnalyzeExpenseOutput, error)
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Client adapts Textract to the pipeline's OCR capability boundary. Build it
// once at startup and inject it; it is safe for concurrent use across
// documents.
type Client struct {
	api    API
	creds  aws.CredentialsProvider
	logger *slog.Logger
}

var _ extract.OCRClient = (*Client)(nil)

func NewClient(cfg aws.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:    textract.NewFromConfig(cfg),
		creds:  cfg.Credentials,
		logger: logger,
	}
}

// NewClientWithAPI wires an explicit API implementation, for tests.
func NewClientWithAPI(api API, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{api: api, logger: logger}
}

// HealthCheck verifies the client is usable. Textract exposes no ping
// operation, so this resolves the credential chain instead, the failure
// mode we actually see in new deployments.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.api == nil {
		return errors.New("textract client not initialized")
	}
	if c.creds == nil {
		return nil
	}
	if _, err := c.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("resolve aws credentials: %w", err)
	}
	return nil
}

// AnalyzeForms runs the structured FORMS+TABLES analysis.
func (c *Client) AnalyzeForms(ctx context.Context, doc []byte) (extract.OCRResponse, error) {
	out, err := c.api.AnalyzeDocument(ctx, &textract.AnalyzeDocumentInput{
		Document:     &types.Document{Bytes: doc},
		FeatureTypes: []types.FeatureType{types.FeatureTypeForms, types.FeatureTypeTables},
	})
	if err != nil {
		return extract.OCRResponse{}, fmt.Errorf("textract analyze document: %w", err)
	}
	resp := parseAnalyzeBlocks(out.Blocks)
	c.logger.Info("textract analyze document ok",
		"fields", len(resp.Fields), "tables", len(resp.Tables), "lines", len(resp.RawLines))
	return resp, nil
}

// AnalyzeExpense runs the receipt-specialized analysis.
func (c *Client) AnalyzeExpense(ctx context.Context, doc []byte) (extract.OCRResponse, error) {
	out, err := c.api.AnalyzeExpense(ctx, &textract.AnalyzeExpenseInput{
		Document: &types.Document{Bytes: doc},
	})
	if err != nil {
		return extract.OCRResponse{}, fmt.Errorf("textract analyze expense: %w", err)
	}
	resp := parseExpenseDocuments(out.ExpenseDocuments)
	c.logger.Info("textract analyze expense ok",
		"fields", len(resp.Fields), "tables", len(resp.Tables))
	return resp, nil
}

// DetectText runs plain text detection and returns the LINE blocks in
// reading order.
func (c *Client) DetectText(ctx context.Context, doc []byte) ([]string, error) {
	out, err := c.api.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: doc},
	})
	if err != nil {
		return nil, fmt.Errorf("textract detect text: %w", err)
	}
	var lines []string
	for _, b := range out.Blocks {
		if b.BlockType == types.BlockTypeLine && b.Text != nil {
			lines = append(lines, *b.Text)
		}
	}
	c.logger.Info("textract detect text ok", "lines", len(lines))
	return lines, nil
}
