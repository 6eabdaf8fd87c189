package invoice

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// multipartUpload builds a multipart body with a single "file" part.
func multipartUpload(filename, contentType string, data []byte) (*bytes.Buffer, string) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	Expect(err).NotTo(HaveOccurred())
	_, err = part.Write(data)
	Expect(err).NotTo(HaveOccurred())
	Expect(mw.Close()).To(Succeed())

	return &body, mw.FormDataContentType()
}

var _ = Describe("Server", func() {
	var (
		store     *mockStore
		extractor *mockExtractor
		server    *Server
		rec       *httptest.ResponseRecorder
		req       *http.Request
	)

	BeforeEach(func() {
		store = &mockStore{createID: 1}
		extractor = &mockExtractor{data: sampleInvoice("INV-001")}
		server = NewServer(NewService(store, extractor))
		rec = httptest.NewRecorder()
	})

	JustBeforeEach(func() {
		server.ServeHTTP(rec, req)
	})

	Describe("GET /api/health", func() {
		BeforeEach(func() {
			req = httptest.NewRequest("GET", "/api/health", nil)
		})

		It("reports healthy", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Body.String()).To(ContainSubstring("healthy"))
		})
	})

	Describe("POST /api/upload", func() {
		BeforeEach(func() {
			upload := uploadPNG()
			store.getLog = &Log{
				ID:          1,
				Filename:    "scan.png",
				FileContent: upload,
				Extracted:   sampleInvoice("INV-001"),
				CreatedAt:   time.Now().UTC(),
			}
			body, contentType := multipartUpload("scan.png", "image/png", upload)
			req = httptest.NewRequest("POST", "/api/upload", body)
			req.Header.Set("Content-Type", contentType)
		})

		It("returns 201 with the log id and extracted data", func() {
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var resp struct {
				Message string          `json:"message"`
				LogID   int64           `json:"log_id"`
				Data    json.RawMessage `json:"data"`
			}
			Expect(json.Unmarshal(rec.Body.Bytes(), &resp)).To(Succeed())
			Expect(resp.Message).To(Equal("Success"))
			Expect(resp.LogID).To(Equal(int64(1)))
			Expect(string(resp.Data)).To(ContainSubstring("INV-001"))
		})

		When("the body is not multipart", func() {
			BeforeEach(func() {
				req = httptest.NewRequest("POST", "/api/upload", bytes.NewBufferString("not a form"))
				req.Header.Set("Content-Type", "text/plain")
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("the upload is an unsupported document", func() {
			BeforeEach(func() {
				body, contentType := multipartUpload("notes.txt", "text/plain", []byte("plain text"))
				req = httptest.NewRequest("POST", "/api/upload", body)
				req.Header.Set("Content-Type", contentType)
			})

			It("returns 400 without touching the store", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
				Expect(store.createCalled).To(BeFalse())
			})
		})

		When("the content type is missing but the extension is known", func() {
			BeforeEach(func() {
				body, contentType := multipartUpload("scan.png", "application/octet-stream", uploadPNG())
				req = httptest.NewRequest("POST", "/api/upload", body)
				req.Header.Set("Content-Type", contentType)
			})

			It("infers image/png and succeeds", func() {
				Expect(rec.Code).To(Equal(http.StatusCreated))
			})
		})
	})

	Describe("GET /api/logs", func() {
		BeforeEach(func() {
			store.listLogs = []Metadata{
				{ID: 2, Filename: "b.pdf", FileSize: 10, CreatedAt: time.Now().UTC()},
				{ID: 1, Filename: "a.pdf", FileSize: 20, CreatedAt: time.Now().UTC()},
			}
			req = httptest.NewRequest("GET", "/api/logs?skip=0&limit=10", nil)
		})

		It("returns the metadata page as a JSON array", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))

			var logs []Metadata
			Expect(json.Unmarshal(rec.Body.Bytes(), &logs)).To(Succeed())
			Expect(logs).To(HaveLen(2))
			Expect(logs[0].Filename).To(Equal("b.pdf"))
		})

		When("the search matches nothing", func() {
			BeforeEach(func() {
				store.listLogs = []Metadata{}
				req = httptest.NewRequest("GET", "/api/logs?search=abc&type=id", nil)
			})

			It("returns an empty array, not an error", func() {
				Expect(rec.Code).To(Equal(http.StatusOK))
				Expect(rec.Body.String()).To(MatchJSON("[]"))
			})
		})
	})

	Describe("GET /api/logs/{id}", func() {
		BeforeEach(func() {
			store.getLog = &Log{
				ID:          4,
				Filename:    "scan.png",
				FileContent: []byte("raw bytes"),
				Extracted:   sampleInvoice("INV-004"),
				CreatedAt:   time.Now().UTC(),
			}
			req = httptest.NewRequest("GET", "/api/logs/4", nil)
		})

		It("returns metadata with the extracted content", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))

			var m Metadata
			Expect(json.Unmarshal(rec.Body.Bytes(), &m)).To(Succeed())
			Expect(m.ID).To(Equal(int64(4)))
			Expect(m.FileSize).To(Equal(int64(len("raw bytes"))))
			Expect(m.Extracted).To(Equal(sampleInvoice("INV-004")))
		})

		It("never includes the raw bytes", func() {
			Expect(rec.Body.String()).NotTo(ContainSubstring("raw bytes"))
		})

		When("the id is not a number", func() {
			BeforeEach(func() {
				req = httptest.NewRequest("GET", "/api/logs/abc", nil)
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})

		When("the log does not exist", func() {
			BeforeEach(func() {
				store.getLog = nil
				store.getErr = ErrNotFound
				req = httptest.NewRequest("GET", "/api/logs/999", nil)
			})

			It("returns 404", func() {
				Expect(rec.Code).To(Equal(http.StatusNotFound))
			})
		})
	})

	Describe("GET /api/logs/{id}/preview", func() {
		BeforeEach(func() {
			store.getLog = &Log{ID: 4, FileContent: uploadPNG()}
			req = httptest.NewRequest("GET", "/api/logs/4/preview", nil)
		})

		It("serves a JPEG rendition", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(Equal("image/jpeg"))
			Expect(rec.Body.Bytes()[:2]).To(Equal([]byte{0xff, 0xd8}))
		})

		When("the stored bytes cannot be rendered", func() {
			BeforeEach(func() {
				store.getLog = &Log{ID: 4, FileContent: []byte("gibberish")}
			})

			It("returns 400", func() {
				Expect(rec.Code).To(Equal(http.StatusBadRequest))
			})
		})
	})

	Describe("GET /", func() {
		BeforeEach(func() {
			req = httptest.NewRequest("GET", "/", nil)
		})

		It("serves the admin page", func() {
			Expect(rec.Code).To(Equal(http.StatusOK))
			Expect(rec.Header().Get("Content-Type")).To(ContainSubstring("text/html"))
			Expect(rec.Body.String()).To(ContainSubstring("<html"))
		})
	})
})
