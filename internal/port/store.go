package port

import (
	"context"

	"chatpdf/internal/domain"
)

// DocumentStore is the registry of uploaded documents.
type DocumentStore interface {
	PutDocument(doc domain.Document) error

	// GetDocument returns domain.ErrNotFound for unknown ids.
	GetDocument(id string) (domain.Document, error)

	// ListDocuments returns documents in upload order.
	ListDocuments() ([]domain.Document, error)

	DeleteDocument(id string) error
}

// HistoryStore persists conversation turns keyed by document id.
// Save replaces the whole history.
type HistoryStore interface {
	LoadHistory(ctx context.Context, docID string) ([]domain.Turn, error)
	SaveHistory(ctx context.Context, docID string, turns []domain.Turn) error
	DeleteHistory(ctx context.Context, docID string) error
}

// RecordWriter persists an extraction record and returns its location.
type RecordWriter interface {
	WriteRecord(ctx context.Context, rec domain.Record) (string, error)
}

// BlobStore holds raw uploaded documents.
type BlobStore interface {
	// SaveUpload stores data under filename and returns its document id.
	SaveUpload(ctx context.Context, filename string, data []byte) (string, error)
	Read(ctx context.Context, id string) ([]byte, error)
}
