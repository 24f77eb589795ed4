package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
)

// Document is one persisted extraction record: the full result blob plus
// scalar projections for querying, and the two duplicate-detection keys
// (file name and content hash).
type Document struct {
	ID                 string
	FileName           string
	FileHash           string
	ExtractedJSON      []byte
	HasProhibitedItems bool
	VendorName         string
	TotalAmount        string
	ReceiptDate        string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type DocumentRepository interface {
	Insert(ctx context.Context, doc *Document) (string, error)
	GetByID(ctx context.Context, id string) (*Document, error)
	// FindByName and FindByHash return (nil, nil) when no record matches.
	FindByName(ctx context.Context, fileName string) (*Document, error)
	FindByHash(ctx context.Context, hash string) (*Document, error)
	ListProhibited(ctx context.Context) ([]*Document, error)
}

type documentRepository struct {
	db     *DB
	logger *slog.Logger
}

func NewDocumentRepository(db *DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &documentRepository{db: db, logger: logger}
}

var documentColumns = []string{
	"id", "file_name", "file_hash", "extracted_json", "has_prohibited_items",
	"vendor_name", "total_amount", "receipt_date", "created_at", "updated_at",
}

func (r *documentRepository) Insert(ctx context.Context, doc *Document) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	_, err := r.db.Builder.
		Insert("documents").
		Columns(documentColumns...).
		Values(doc.ID, doc.FileName, doc.FileHash, doc.ExtractedJSON, doc.HasProhibitedItems,
			doc.VendorName, doc.TotalAmount, doc.ReceiptDate, now, now).
		RunWith(r.db.SQL).
		ExecContext(ctx)
	if err != nil {
		r.logger.Error("failed to insert document", "file_name", doc.FileName, "error", err)
		return "", err
	}
	r.logger.Info("document persisted", "id", doc.ID, "file_name", doc.FileName,
		"prohibited", doc.HasProhibitedItems)
	return doc.ID, nil
}

func (r *documentRepository) GetByID(ctx context.Context, id string) (*Document, error) {
	return r.findOne(ctx, "id", id)
}

func (r *documentRepository) FindByName(ctx context.Context, fileName string) (*Document, error) {
	return r.findOne(ctx, "file_name", fileName)
}

func (r *documentRepository) FindByHash(ctx context.Context, hash string) (*Document, error) {
	return r.findOne(ctx, "file_hash", hash)
}

func (r *documentRepository) findOne(ctx context.Context, column, value string) (*Document, error) {
	row := r.db.Builder.
		Select(documentColumns...).
		From("documents").
		Where(sq.Eq{column: value}).
		Limit(1).
		RunWith(r.db.SQL).
		QueryRowContext(ctx)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("document lookup failed", "column", column, "error", err)
		return nil, err
	}
	return doc, nil
}

func (r *documentRepository) ListProhibited(ctx context.Context) ([]*Document, error) {
	rows, err := r.db.Builder.
		Select(documentColumns...).
		From("documents").
		Where(sq.Eq{"has_prohibited_items": true}).
		OrderBy("created_at DESC").
		RunWith(r.db.SQL).
		QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	err := row.Scan(
		&doc.ID, &doc.FileName, &doc.FileHash, &doc.ExtractedJSON, &doc.HasProhibitedItems,
		&doc.VendorName, &doc.TotalAmount, &doc.ReceiptDate, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}
