package invoice

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adhikarip/invoice-extractor/internal/document"
	"github.com/adhikarip/invoice-extractor/internal/extraction"
)

// maxUploadSize caps multipart parsing; high-resolution phone photos
// and scanned PDFs can run large.
const maxUploadSize = int64(50 << 20) // 50MB

// setCORSHeaders sets CORS headers on a response.
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// writeJSON writes a JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError reports a pipeline failure with its diagnostic message.
// The failure kind decides the status; the message keeps the kind and
// any offending-text trace attached by the pipeline.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusForError(err), map[string]string{"error": err.Error()})
}

// statusForError maps the pipeline's error kinds to HTTP statuses.
func statusForError(err error) int {
	var (
		upstream  *extraction.UpstreamError
		violation *extraction.SchemaError
	)
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrUnsupportedFormat),
		errors.Is(err, document.ErrEmptyDocument),
		errors.Is(err, document.ErrPreviewUnavailable):
		return http.StatusBadRequest
	case errors.Is(err, extraction.ErrMalformedResponse),
		errors.As(err, &violation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, extraction.ErrTransport),
		errors.As(err, &upstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "invoice-extractor",
	})
}

// handleUpload accepts one invoice (PDF or image) and runs it through
// the extraction pipeline.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Error parsing form"})
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer f.Close()

	if header.Filename == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No filename provided"})
		return
	}

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Error reading file"})
		return
	}

	contentType := contentTypeFor(header.Header.Get("Content-Type"), header.Filename)

	log, err := s.service.ProcessUpload(r.Context(), header.Filename, data, contentType)
	if err != nil {
		slog.Error("Error processing upload", "filename", header.Filename, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Success",
		"log_id":  log.ID,
		"data":    log.Extracted,
	})
}

// contentTypeFor normalizes the declared content type, falling back to
// the filename extension when the upload omitted it.
func contentTypeFor(declared, filename string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".pdf":
		return "application/pdf"
	default:
		return contentType
	}
}

// handleListLogs returns log metadata with pagination and search.
func (s *Server) handleListLogs(w http.ResponseWriter, r *http.Request) {
	q := ListQuery{
		Offset: intQuery(r, "skip", 0),
		Limit:  intQuery(r, "limit", 10),
		Search: r.URL.Query().Get("search"),
		Mode:   SearchByFilename,
	}
	if r.URL.Query().Get("type") == string(SearchByID) {
		q.Mode = SearchByID
	}

	logs, err := s.service.ListLogs(r.Context(), q)
	if err != nil {
		slog.Error("Error listing invoice logs", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, logs)
}

func intQuery(r *http.Request, key string, fallback int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

// handleGetLog returns one log's metadata and extracted content. The
// raw bytes are served only through the preview endpoint.
func (s *Server) handleGetLog(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid log id"})
		return
	}

	log, err := s.service.GetLog(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Metadata{
		ID:        log.ID,
		Filename:  log.Filename,
		Extracted: log.Extracted,
		FileSize:  int64(len(log.FileContent)),
		CreatedAt: log.CreatedAt,
	})
}

// handlePreview re-renders the stored bytes of a log as a JPEG.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid log id"})
		return
	}

	preview, err := s.service.PreviewLog(r.Context(), id)
	if err != nil {
		slog.Error("Error rendering preview", "id", id, "error", err)
		writeError(w, err)
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", "image/jpeg")
	w.Write(preview)
}

// handleIndex serves the admin page.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexHTML)
}
