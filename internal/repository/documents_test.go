package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunbeam-data/ocr-pipeline/internal/common"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(context.Background(), common.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.InitSchema(context.Background(), "sqlite"))
	return db
}

func sampleDocument(fileName, hash string) *Document {
	return &Document{
		FileName:           fileName,
		FileHash:           hash,
		ExtractedJSON:      []byte(`{"data":{"Date":"15/03/2024"}}`),
		HasProhibitedItems: false,
		VendorName:         "Java House",
		TotalAmount:        "1,250.00",
		ReceiptDate:        "15/03/2024",
	}
}

func TestDocumentRoundTrip(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t), nil)
	ctx := context.Background()

	id, err := repo.Insert(ctx, sampleDocument("scan.png", "aaaa1111"))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "scan.png", got.FileName)
	assert.Equal(t, "aaaa1111", got.FileHash)
	assert.Equal(t, "Java House", got.VendorName)
	assert.Equal(t, "1,250.00", got.TotalAmount)
	assert.Equal(t, "15/03/2024", got.ReceiptDate)
	assert.JSONEq(t, `{"data":{"Date":"15/03/2024"}}`, string(got.ExtractedJSON))
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDocumentFindByNameAndHash(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t), nil)
	ctx := context.Background()

	_, err := repo.Insert(ctx, sampleDocument("scan.png", "aaaa1111"))
	require.NoError(t, err)

	byName, err := repo.FindByName(ctx, "scan.png")
	require.NoError(t, err)
	require.NotNil(t, byName)
	assert.Equal(t, "aaaa1111", byName.FileHash)

	byHash, err := repo.FindByHash(ctx, "aaaa1111")
	require.NoError(t, err)
	require.NotNil(t, byHash)
	assert.Equal(t, "scan.png", byHash.FileName)

	// No match is (nil, nil), not an error; the duplicate gate relies on it.
	miss, err := repo.FindByName(ctx, "other.png")
	require.NoError(t, err)
	assert.Nil(t, miss)

	miss, err = repo.FindByHash(ctx, "bbbb2222")
	require.NoError(t, err)
	assert.Nil(t, miss)
}

func TestDocumentListProhibited(t *testing.T) {
	repo := NewDocumentRepository(newTestDB(t), nil)
	ctx := context.Background()

	clean := sampleDocument("clean.png", "aaaa1111")
	_, err := repo.Insert(ctx, clean)
	require.NoError(t, err)

	flagged := sampleDocument("flagged.png", "bbbb2222")
	flagged.HasProhibitedItems = true
	flaggedID, err := repo.Insert(ctx, flagged)
	require.NoError(t, err)

	docs, err := repo.ListProhibited(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, flaggedID, docs[0].ID)
	assert.Equal(t, "flagged.png", docs[0].FileName)
}
