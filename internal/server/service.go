package server

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/sunbeam-data/ocr-pipeline/constants"
	"github.com/sunbeam-data/ocr-pipeline/internal/common"
	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
)

// ObjectStore is the slice of the storage layer the service needs.
type ObjectStore interface {
	Download(ctx context.Context, key string) ([]byte, error)
	ListPrefix(ctx context.Context, prefix string) ([]string, error)
	UploadJSON(ctx context.Context, key string, blob []byte) (string, error)
	HealthCheck(ctx context.Context) error
}

// HealthChecker is implemented by dependencies that can verify themselves at
// startup or on the health endpoint.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ProcessOutcome is the per-document result of a processing call.
type ProcessOutcome struct {
	ID      string                    `json:"id"`
	FileKey string                    `json:"file_key"`
	Result  *extract.ExtractionResult `json:"result"`
}

// Service ties the duplicate gate, object store, extraction pipeline and
// repository together. One instance serves all requests.
type Service struct {
	store        ObjectStore
	docs         repository.DocumentRepository
	orchestrator *extract.Orchestrator
	db           *repository.DB
	ocr          HealthChecker
	logger       *slog.Logger
}

func NewService(store ObjectStore, docs repository.DocumentRepository, orch *extract.Orchestrator,
	db *repository.DB, ocr HealthChecker, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, docs: docs, orchestrator: orch, db: db, ocr: ocr, logger: logger}
}

// ProcessFile runs the full pipeline for one object key.
//
// The duplicate gate runs before any OCR spend. A filename that was already
// processed is always rejected; identical content under a new name is
// rejected too but can be overridden with force, since legitimate rescans of
// near-identical receipts do happen.
func (s *Service) ProcessFile(ctx context.Context, fileKey string, force bool) (*ProcessOutcome, error) {
	if !constants.SupportedExt(fileKey) {
		return nil, common.NewAppError("UNSUPPORTED_TYPE",
			fmt.Sprintf("unsupported file type for %q", fileKey), common.ErrUnsupportedType)
	}

	existing, err := s.docs.FindByName(ctx, fileKey)
	if err != nil {
		return nil, common.WrapError(err, "duplicate check by name")
	}
	if existing != nil {
		return nil, common.NewAppError("DUPLICATE_FILENAME",
			fmt.Sprintf("file %q was already processed as document %s", fileKey, existing.ID),
			common.ErrDuplicateFilename)
	}

	doc, err := s.store.Download(ctx, fileKey)
	if err != nil {
		return nil, err
	}

	sum := md5.Sum(doc)
	hash := hex.EncodeToString(sum[:])
	if !force {
		match, err := s.docs.FindByHash(ctx, hash)
		if err != nil {
			return nil, common.WrapError(err, "duplicate check by hash")
		}
		if match != nil {
			return nil, common.NewAppError("DUPLICATE_CONTENT",
				fmt.Sprintf("content of %q matches document %s (%q, uploaded %s); resubmit with force to process anyway",
					fileKey, match.ID, match.FileName, match.CreatedAt.UTC().Format(time.RFC3339)),
				common.ErrDuplicateContent)
		}
	}

	result := s.orchestrator.Process(ctx, doc)

	blob, err := result.MarshalValidated()
	if err != nil {
		return nil, common.WrapError(err, "serialize extraction result")
	}

	id, err := s.docs.Insert(ctx, &repository.Document{
		FileName:           fileKey,
		FileHash:           hash,
		ExtractedJSON:      blob,
		HasProhibitedItems: result.HasProhibitedItems,
		VendorName:         result.Field(constants.FieldVendor),
		TotalAmount:        result.Field(constants.FieldTotal),
		ReceiptDate:        result.Field(constants.FieldDate),
	})
	if err != nil {
		return nil, common.NewAppError("PERSIST_FAILED",
			fmt.Sprintf("persist result for %q", fileKey), common.ErrDatabase)
	}

	// The S3 artifact is a convenience copy; the database row is the record.
	if pretty, err := result.MarshalIndentValidated(); err == nil {
		if _, err := s.store.UploadJSON(ctx, fileKey, pretty); err != nil {
			s.logger.Warn("result artifact upload failed", "file_key", fileKey, "err", err)
		}
	}

	return &ProcessOutcome{ID: id, FileKey: fileKey, Result: result}, nil
}

// SweepOutcome reports one file of a bulk sweep.
type SweepOutcome struct {
	FileKey string `json:"file_key"`
	Status  string `json:"status"` // processed | skipped | failed
	ID      string `json:"id,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// ProcessAll sweeps every supported object under prefix through ProcessFile.
// Duplicates are reported as skipped rather than failed, so re-running the
// sweep after a partial outage is safe.
func (s *Service) ProcessAll(ctx context.Context, prefix string) ([]SweepOutcome, error) {
	keys, err := s.store.ListPrefix(ctx, prefix)
	if err != nil {
		return nil, common.WrapError(err, "list input objects")
	}

	outcomes := make([]SweepOutcome, 0, len(keys))
	for _, key := range keys {
		if ctx.Err() != nil {
			return outcomes, ctx.Err()
		}
		out, err := s.ProcessFile(ctx, key, false)
		switch {
		case err == nil:
			outcomes = append(outcomes, SweepOutcome{FileKey: key, Status: "processed", ID: out.ID})
		case common.HTTPStatus(err) == 409:
			outcomes = append(outcomes, SweepOutcome{FileKey: key, Status: "skipped", Detail: err.Error()})
		default:
			s.logger.Error("sweep item failed", "file_key", key, "err", err)
			outcomes = append(outcomes, SweepOutcome{FileKey: key, Status: "failed", Detail: err.Error()})
		}
	}
	return outcomes, nil
}

// GetResult returns a persisted document by id.
func (s *Service) GetResult(ctx context.Context, id string) (*repository.Document, error) {
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, common.WrapError(err, "load document")
	}
	if doc == nil {
		return nil, common.NewAppError("DOCUMENT_NOT_FOUND",
			fmt.Sprintf("no document with id %s", id), common.ErrNotFound)
	}
	return doc, nil
}

// Health checks each dependency and returns per-component status.
func (s *Service) Health(ctx context.Context) map[string]string {
	status := make(map[string]string, 3)

	if err := s.db.HealthCheck(ctx, 3*time.Second); err != nil {
		status["database"] = err.Error()
	} else {
		status["database"] = "ok"
	}
	if err := s.store.HealthCheck(ctx); err != nil {
		status["storage"] = err.Error()
	} else {
		status["storage"] = "ok"
	}
	if s.ocr != nil {
		if err := s.ocr.HealthCheck(ctx); err != nil {
			status["ocr"] = err.Error()
		} else {
			status["ocr"] = "ok"
		}
	}
	return status
}
