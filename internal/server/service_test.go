package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
	"github.com/sunbeam-data/ocr-pipeline/internal/extract"
	"github.com/sunbeam-data/ocr-pipeline/internal/repository"
)

var pngBytes = append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, []byte("receipt")...)

type fakeStore struct {
	objects map[string][]byte
	uploads map[string][]byte
}

func newFakeStore() *fakeStore {
	return &fakeStore{objects: make(map[string][]byte), uploads: make(map[string][]byte)}
}

func (f *fakeStore) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := f.objects[key]
	if !ok {
		return nil, common.NewAppError("OBJECT_NOT_FOUND", "object "+key+" not found", common.ErrNotFound)
	}
	return data, nil
}

func (f *fakeStore) ListPrefix(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys, nil
}

func (f *fakeStore) UploadJSON(ctx context.Context, key string, blob []byte) (string, error) {
	out := "processed/" + key + ".json"
	f.uploads[out] = blob
	return out, nil
}

func (f *fakeStore) HealthCheck(ctx context.Context) error { return nil }

type fakeDocs struct {
	byID   map[string]*repository.Document
	byName map[string]*repository.Document
	byHash map[string]*repository.Document
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		byID:   make(map[string]*repository.Document),
		byName: make(map[string]*repository.Document),
		byHash: make(map[string]*repository.Document),
	}
}

func (f *fakeDocs) Insert(ctx context.Context, doc *repository.Document) (string, error) {
	if doc.ID == "" {
		doc.ID = "doc-" + doc.FileName
	}
	doc.CreatedAt = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	doc.UpdatedAt = doc.CreatedAt
	f.byID[doc.ID] = doc
	f.byName[doc.FileName] = doc
	f.byHash[doc.FileHash] = doc
	return doc.ID, nil
}

func (f *fakeDocs) GetByID(ctx context.Context, id string) (*repository.Document, error) {
	return f.byID[id], nil
}

func (f *fakeDocs) FindByName(ctx context.Context, fileName string) (*repository.Document, error) {
	return f.byName[fileName], nil
}

func (f *fakeDocs) FindByHash(ctx context.Context, hash string) (*repository.Document, error) {
	return f.byHash[hash], nil
}

func (f *fakeDocs) ListProhibited(ctx context.Context) ([]*repository.Document, error) {
	var out []*repository.Document
	for _, d := range f.byID {
		if d.HasProhibitedItems {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeOCR struct{ fields []extract.ExtractedField }

func (f *fakeOCR) AnalyzeForms(ctx context.Context, doc []byte) (extract.OCRResponse, error) {
	return extract.OCRResponse{Fields: f.fields}, nil
}

func (f *fakeOCR) AnalyzeExpense(ctx context.Context, doc []byte) (extract.OCRResponse, error) {
	return extract.OCRResponse{Fields: f.fields}, nil
}

func (f *fakeOCR) DetectText(ctx context.Context, doc []byte) ([]string, error) {
	return nil, nil
}

func newTestService(store *fakeStore, docs *fakeDocs) *Service {
	client := &fakeOCR{fields: []extract.ExtractedField{
		{Key: "Date", Value: "15/03/2024"},
		{Key: "Total", Value: "KES 1,250.00"},
		{Key: "Vendor Name", Value: "Java House"},
	}}
	orch := extract.NewOrchestrator(extract.DefaultHeuristics(), client, extract.FormsTablesStrategy{}, nil)
	return NewService(store, docs, orch, nil, nil, nil)
}

func TestProcessFile(t *testing.T) {
	store := newFakeStore()
	store.objects["scan.png"] = pngBytes
	docs := newFakeDocs()
	svc := newTestService(store, docs)

	out, err := svc.ProcessFile(context.Background(), "scan.png", false)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, "scan.png", out.FileKey)
	assert.Equal(t, "15/03/2024", out.Result.Field("Date"))

	stored := docs.byName["scan.png"]
	require.NotNil(t, stored)
	assert.Equal(t, "Java House", stored.VendorName)
	assert.Equal(t, "1,250.00", stored.TotalAmount)
	assert.NotEmpty(t, stored.FileHash)
	assert.NotEmpty(t, stored.ExtractedJSON)

	assert.Contains(t, store.uploads, "processed/scan.png.json")
}

func TestProcessFileUnsupportedType(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeDocs())

	_, err := svc.ProcessFile(context.Background(), "notes.txt", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrUnsupportedType))
}

func TestProcessFileNotFound(t *testing.T) {
	svc := newTestService(newFakeStore(), newFakeDocs())

	_, err := svc.ProcessFile(context.Background(), "missing.png", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestProcessFileDuplicateFilename(t *testing.T) {
	store := newFakeStore()
	store.objects["scan.png"] = pngBytes
	docs := newFakeDocs()
	svc := newTestService(store, docs)

	_, err := svc.ProcessFile(context.Background(), "scan.png", false)
	require.NoError(t, err)

	_, err = svc.ProcessFile(context.Background(), "scan.png", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateFilename))

	// The filename clash is operator error; force does not bypass it.
	_, err = svc.ProcessFile(context.Background(), "scan.png", true)
	assert.True(t, errors.Is(err, common.ErrDuplicateFilename))
}

func TestProcessFileDuplicateContent(t *testing.T) {
	store := newFakeStore()
	store.objects["scan.png"] = pngBytes
	store.objects["rescan.png"] = pngBytes
	docs := newFakeDocs()
	svc := newTestService(store, docs)

	_, err := svc.ProcessFile(context.Background(), "scan.png", false)
	require.NoError(t, err)

	_, err = svc.ProcessFile(context.Background(), "rescan.png", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrDuplicateContent))
	orig := docs.byName["scan.png"]
	assert.Contains(t, err.Error(), `"scan.png"`, "the clash names the original file")
	assert.Contains(t, err.Error(), orig.ID, "and its document id")
	assert.Contains(t, err.Error(), "2024-03-15T10:30:00Z", "and its upload timestamp")

	// A content clash is a warning, overridable by the operator.
	out, err := svc.ProcessFile(context.Background(), "rescan.png", true)
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)
}

func TestProcessAllSkipsDuplicates(t *testing.T) {
	store := newFakeStore()
	store.objects["a.png"] = pngBytes
	docs := newFakeDocs()
	svc := newTestService(store, docs)

	first, err := svc.ProcessAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, "processed", first[0].Status)

	second, err := svc.ProcessAll(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "skipped", second[0].Status)
}

func TestGetResult(t *testing.T) {
	store := newFakeStore()
	store.objects["scan.png"] = pngBytes
	docs := newFakeDocs()
	svc := newTestService(store, docs)

	out, err := svc.ProcessFile(context.Background(), "scan.png", false)
	require.NoError(t, err)

	doc, err := svc.GetResult(context.Background(), out.ID)
	require.NoError(t, err)
	assert.Equal(t, "scan.png", doc.FileName)

	_, err = svc.GetResult(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}
