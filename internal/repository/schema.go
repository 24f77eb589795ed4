package repository

import (
	"context"
	"fmt"
)

const createDocumentsPostgres = `
CREATE TABLE IF NOT EXISTS documents (
    id UUID PRIMARY KEY,
    file_name VARCHAR(255) NOT NULL,
    file_hash CHAR(32) NOT NULL,
    extracted_json JSONB,
    has_prohibited_items BOOLEAN DEFAULT FALSE,
    vendor_name VARCHAR(255),
    total_amount VARCHAR(64),
    receipt_date VARCHAR(32),
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

const createDocumentsSQLite = `
CREATE TABLE IF NOT EXISTS documents (
    id TEXT PRIMARY KEY,
    file_name TEXT NOT NULL,
    file_hash TEXT NOT NULL,
    extracted_json TEXT,
    has_prohibited_items BOOLEAN DEFAULT FALSE,
    vendor_name TEXT,
    total_amount TEXT,
    receipt_date TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// has_prohibited_items drives compliance queries, so it gets an index.
const createProhibitedIndex = `
CREATE INDEX IF NOT EXISTS idx_has_prohibited_items ON documents (has_prohibited_items);`

const createFileNameIndex = `
CREATE INDEX IF NOT EXISTS idx_documents_file_name ON documents (file_name);`

const createFileHashIndex = `
CREATE INDEX IF NOT EXISTS idx_documents_file_hash ON documents (file_hash);`

// InitSchema bootstraps the documents table and its indexes. The canonical
// schema definition lives in db/ent/schema; this mirrors it for the one-shot
// dbinit command so a fresh environment needs no migration tooling.
func (d *DB) InitSchema(ctx context.Context, driver string) error {
	table := createDocumentsPostgres
	if driver == "sqlite" {
		table = createDocumentsSQLite
	}
	for _, stmt := range []string{table, createProhibitedIndex, createFileNameIndex, createFileHashIndex} {
		if _, err := d.SQL.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	d.logger.Info("database schema initialized")
	return nil
}
