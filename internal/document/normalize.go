// Package document converts uploaded invoice blobs into the canonical
// raster image used for extraction and preview.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

var (
	// ErrUnsupportedFormat means the upload is neither a decodable raster
	// image nor a paginated document.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrEmptyDocument means a paginated document rendered zero pages.
	ErrEmptyDocument = errors.New("document has no pages")

	// ErrPreviewUnavailable means stored bytes could not be rendered back
	// into a displayable image.
	ErrPreviewUnavailable = errors.New("content cannot be rendered as an image")
)

// jpegQuality is the quality used for every canonical re-encode, during
// ingestion and preview alike.
const jpegQuality = 90

// Normalize converts an uploaded blob of the declared content type into
// exactly one canonical image. Paginated documents are rendered and only
// the first page is kept (invoices are treated as single page); raster
// images are decoded directly. The result is always cloned to NRGBA so
// the downstream JPEG encoding behaves identically for every input.
func Normalize(data []byte, contentType string) (*image.NRGBA, error) {
	mimeType := strings.ToLower(strings.TrimSpace(contentType))

	var (
		img image.Image
		err error
	)
	switch {
	case strings.Contains(mimeType, "pdf"):
		img, err = renderFirstPage(data)
	case strings.HasPrefix(mimeType, "image/"):
		img, err = decodeImage(data, mimeType)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, contentType)
	}
	if err != nil {
		return nil, err
	}

	return imaging.Clone(img), nil
}

// EncodeJPEG produces the canonical lossy single-frame encoding of an
// image. Encoding the same image twice yields identical bytes.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// renderFirstPage renders page one of a paginated document.
func renderFirstPage(data []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: opening document: %v", ErrUnsupportedFormat, err)
	}
	defer doc.Close()

	if doc.NumPage() == 0 {
		return nil, ErrEmptyDocument
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering first page: %w", err)
	}
	return img, nil
}

// decodeImage decodes a raster image blob. HEIC/HEIF (common on phones)
// is not covered by the standard decoders, so it is sniffed explicitly.
func decodeImage(data []byte, mimeType string) (image.Image, error) {
	if isHEICData(data) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC image: %v", ErrUnsupportedFormat, err)
		}
		return img, nil
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: decoding image: %v", ErrUnsupportedFormat, err)
	}
	return img, nil
}

// isHEICData checks for an ftyp box with a HEIC-related brand.
func isHEICData(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
