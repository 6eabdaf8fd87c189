package document

import "github.com/disintegration/imaging"

// Preview re-renders previously stored bytes as a JPEG for display. The
// stored format is unknown, so a direct image decode is attempted first
// and the bytes are treated as a paginated document only when that
// fails. The output uses the same encoder settings as ingestion.
func Preview(data []byte) ([]byte, error) {
	img, err := decodeImage(data, "")
	if err != nil {
		img, err = renderFirstPage(data)
		if err != nil {
			return nil, ErrPreviewUnavailable
		}
	}
	return EncodeJPEG(imaging.Clone(img))
}
