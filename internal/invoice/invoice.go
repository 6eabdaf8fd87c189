// Package invoice owns the persisted invoice aggregate and the HTTP
// surface built around the extraction pipeline.
package invoice

import (
	"context"
	"errors"
	"time"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

// ErrNotFound means no invoice log exists for the requested id.
var ErrNotFound = errors.New("invoice log not found")

// Log is the persisted invoice aggregate. The uploaded bytes and the
// validated extraction are committed as one row and share one lifetime:
// there is no separate file entity and no separate extraction entity.
// Rows are created once by the pipeline and never updated.
type Log struct {
	ID          int64               `json:"id"`
	Filename    string              `json:"filename"`
	FileContent []byte              `json:"-"`
	Extracted   *schema.InvoiceData `json:"extracted_schema_content"`
	CreatedAt   time.Time           `json:"created_at"`
}

// Metadata is the listing projection of a Log: everything except the
// raw bytes, plus their size.
type Metadata struct {
	ID        int64               `json:"id"`
	Filename  string              `json:"filename"`
	Extracted *schema.InvoiceData `json:"extracted_schema_content"`
	FileSize  int64               `json:"file_size"`
	CreatedAt time.Time           `json:"created_at"`
}

// SearchMode selects how ListQuery.Search is interpreted.
type SearchMode string

const (
	// SearchByFilename matches a case-insensitive substring of the
	// stored filename.
	SearchByFilename SearchMode = "filename"

	// SearchByID matches the exact numeric id. Non-numeric search text
	// yields an empty result, never an error.
	SearchByID SearchMode = "id"
)

// ListQuery selects a page of log metadata, most recent first.
type ListQuery struct {
	Offset int
	Limit  int
	Search string
	Mode   SearchMode
}

// Store defines the persistence contract for invoice logs.
type Store interface {
	// Create durably writes filename, raw bytes and the validated record
	// as one row and returns the assigned id. A reader observes either
	// the whole row or no row.
	Create(ctx context.Context, filename string, fileContent []byte, data *schema.InvoiceData) (int64, error)

	// Get retrieves a full log, raw bytes included.
	Get(ctx context.Context, id int64) (*Log, error)

	// List returns log metadata ordered by creation time, most recent
	// first. Raw bytes are never returned here.
	List(ctx context.Context, q ListQuery) ([]Metadata, error)

	// Close closes the underlying database.
	Close() error
}
