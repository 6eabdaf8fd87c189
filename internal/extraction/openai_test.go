package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

func temperature(v float64) *float64 { return &v }

// completionBody wraps text in a chat-completions response envelope.
func completionBody(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": text}},
		},
	}
}

var _ = Describe("OpenAI", func() {
	var (
		endpoint  *ghttp.Server
		extractor *OpenAI
		imageJPEG []byte
		data      *schema.InvoiceData
		err       error
	)

	BeforeEach(func() {
		endpoint = ghttp.NewServer()
		imageJPEG = []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}

		extractor, err = NewOpenAI(OpenAIConfig{
			BaseURL:     endpoint.URL() + "/v1",
			Model:       "test-vision-model",
			MaxTokens:   512,
			Temperature: temperature(0.1),
			Timeout:     5 * time.Second,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		endpoint.Close()
	})

	JustBeforeEach(func() {
		data, err = extractor.ExtractInvoice(context.Background(), imageJPEG)
	})

	When("the endpoint returns a valid completion", func() {
		BeforeEach(func() {
			endpoint.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/v1/chat/completions"),
				ghttp.VerifyContentType("application/json"),
				ghttp.RespondWithJSONEncoded(http.StatusOK, completionBody(validInvoiceJSON(nil))),
			))
		})

		It("should not return an error", func() {
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns the validated invoice data", func() {
			Expect(data.InvoiceNumber).To(HaveValue(Equal("INV-001")))
			Expect(data.Summary.HasCompanyStamp).To(Equal("Yes"))
		})
	})

	When("inspecting the outgoing request", func() {
		var captured chatRequest

		BeforeEach(func() {
			endpoint.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest("POST", "/v1/chat/completions"),
				func(w http.ResponseWriter, r *http.Request) {
					Expect(json.NewDecoder(r.Body).Decode(&captured)).To(Succeed())
				},
				ghttp.RespondWithJSONEncoded(http.StatusOK, completionBody(validInvoiceJSON(nil))),
			))
		})

		It("sends the configured model and sampling parameters", func() {
			Expect(captured.Model).To(Equal("test-vision-model"))
			Expect(captured.MaxTokens).To(Equal(512))
			Expect(captured.Temperature).To(Equal(0.1))
		})

		When("an explicit zero temperature is configured", func() {
			BeforeEach(func() {
				extractor, err = NewOpenAI(OpenAIConfig{
					BaseURL:     endpoint.URL() + "/v1",
					Model:       "test-vision-model",
					Temperature: temperature(0),
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("sends zero, not the default", func() {
				Expect(captured.Temperature).To(Equal(0.0))
			})
		})

		When("no temperature is configured", func() {
			BeforeEach(func() {
				extractor, err = NewOpenAI(OpenAIConfig{
					BaseURL: endpoint.URL() + "/v1",
					Model:   "test-vision-model",
				})
				Expect(err).NotTo(HaveOccurred())
			})

			It("sends the 0.1 default", func() {
				Expect(captured.Temperature).To(Equal(0.1))
			})
		})

		It("sends one user message with prompt text and an inlined image", func() {
			Expect(captured.Messages).To(HaveLen(1))
			Expect(captured.Messages[0].Role).To(Equal("user"))
			Expect(captured.Messages[0].Content).To(HaveLen(2))

			text := captured.Messages[0].Content[0]
			Expect(text.Type).To(Equal("text"))
			Expect(text.Text).To(ContainSubstring("JSON Schema:"))

			img := captured.Messages[0].Content[1]
			Expect(img.Type).To(Equal("image_url"))
			Expect(img.ImageURL).NotTo(BeNil())
			Expect(img.ImageURL.URL).To(Equal(
				"data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG),
			))
		})
	})

	When("the endpoint returns a non-success status", func() {
		BeforeEach(func() {
			endpoint.AppendHandlers(ghttp.RespondWith(http.StatusServiceUnavailable, "model overloaded"))
		})

		It("fails with an upstream error carrying status and body", func() {
			var upstream *UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.Status).To(Equal(http.StatusServiceUnavailable))
			Expect(upstream.Body).To(ContainSubstring("model overloaded"))
		})
	})

	When("the endpoint is unreachable", func() {
		BeforeEach(func() {
			endpoint.Close()
		})

		It("fails with a transport error", func() {
			Expect(err).To(MatchError(ErrTransport))
		})
	})

	When("the completion content is not valid JSON", func() {
		BeforeEach(func() {
			endpoint.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, completionBody("not json at all")),
			)
		})

		It("fails with a malformed response error", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})

		It("does not return a default record", func() {
			Expect(data).To(BeNil())
		})
	})

	When("the response envelope has no choices", func() {
		BeforeEach(func() {
			endpoint.AppendHandlers(
				ghttp.RespondWithJSONEncoded(http.StatusOK, map[string]any{"choices": []any{}}),
			)
		})

		It("fails with a malformed response error", func() {
			Expect(err).To(MatchError(ErrMalformedResponse))
		})
	})
})
