// Package extraction turns a canonical invoice image into a validated
// InvoiceData record using a vision-capable language model.
package extraction

import (
	"context"
	"errors"
	"fmt"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

var (
	// ErrTransport means the model endpoint could not be reached at all
	// (connection refused, timeout, DNS failure).
	ErrTransport = errors.New("model endpoint unreachable")

	// ErrMalformedResponse means the model's text could not be parsed as
	// JSON after sanitization.
	ErrMalformedResponse = errors.New("model response is not valid JSON")
)

// UpstreamError is a non-success response from the model endpoint.
type UpstreamError struct {
	Status int
	Body   string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("model endpoint returned status %d: %s", e.Status, e.Body)
}

// SchemaError means the parsed response does not match the invoice
// schema. Path is the JSON pointer of the offending field.
type SchemaError struct {
	Path  string
	Cause error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("response violates invoice schema at %q: %v", e.Path, e.Cause)
}

func (e *SchemaError) Unwrap() error { return e.Cause }

// Extractor defines the interface for invoice extraction backends. The
// image is the canonical JPEG produced by the document package.
type Extractor interface {
	// ExtractInvoice analyzes the invoice image and returns the validated
	// structured data. It never returns a partial record: any failure in
	// transport, parsing or validation surfaces as an error.
	ExtractInvoice(ctx context.Context, imageJPEG []byte) (*schema.InvoiceData, error)

	// Close releases backend resources.
	Close() error
}
