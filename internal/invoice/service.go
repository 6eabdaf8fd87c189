package invoice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adhikarip/invoice-extractor/internal/document"
	"github.com/adhikarip/invoice-extractor/internal/extraction"
)

// Service runs uploads through the extraction pipeline and answers
// retrieval queries. Each call is one independent unit of work; the
// store is the only shared resource.
type Service struct {
	store     Store
	extractor extraction.Extractor
}

// NewService creates a new Service.
func NewService(store Store, extractor extraction.Extractor) *Service {
	return &Service{
		store:     store,
		extractor: extractor,
	}
}

// ProcessUpload normalizes the upload, extracts structured data from
// its canonical image and persists the result. The pipeline is all or
// nothing: if normalization, extraction or validation fails, nothing is
// written. The persisted bytes are always the full original upload, not
// the canonical image.
func (s *Service) ProcessUpload(ctx context.Context, filename string, data []byte, contentType string) (*Log, error) {
	canonical, err := document.Normalize(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("normalizing document: %w", err)
	}

	imageJPEG, err := document.EncodeJPEG(canonical)
	if err != nil {
		return nil, fmt.Errorf("encoding canonical image: %w", err)
	}

	extracted, err := s.extractor.ExtractInvoice(ctx, imageJPEG)
	if err != nil {
		slog.Error("Failed to extract invoice",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("extracting invoice: %w", err)
	}

	id, err := s.store.Create(ctx, filename, data, extracted)
	if err != nil {
		return nil, fmt.Errorf("saving invoice log: %w", err)
	}

	log, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading saved invoice log: %w", err)
	}

	slog.Info("Processed invoice upload",
		"id", log.ID,
		"filename", filename,
		"file_size", len(data),
	)
	return log, nil
}

// GetLog retrieves a single invoice log by id.
func (s *Service) GetLog(ctx context.Context, id int64) (*Log, error) {
	log, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice log: %w", err)
	}
	return log, nil
}

// ListLogs returns a page of log metadata.
func (s *Service) ListLogs(ctx context.Context, q ListQuery) ([]Metadata, error) {
	logs, err := s.store.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("listing invoice logs: %w", err)
	}
	return logs, nil
}

// PreviewLog re-renders the stored bytes of a log as a JPEG. A preview
// failure is local: it never affects the persisted record.
func (s *Service) PreviewLog(ctx context.Context, id int64) ([]byte, error) {
	log, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting invoice log: %w", err)
	}

	preview, err := document.Preview(log.FileContent)
	if err != nil {
		return nil, fmt.Errorf("rendering preview for log %d: %w", id, err)
	}
	return preview, nil
}
