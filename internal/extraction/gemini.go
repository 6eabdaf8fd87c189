package extraction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

// GeminiConfig holds the externally supplied parameters for the Gemini
// backend.
type GeminiConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	// Temperature nil means the default 0.1. An explicit zero requests
	// fully greedy decoding and is honored as given.
	Temperature *float64
	Timeout     time.Duration
}

// Gemini implements Extractor using Google Gemini. It shares the prompt
// and the response validation path with the chat-completions backend.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	cfg    GeminiConfig
}

// NewGemini creates a Gemini Extractor.
func NewGemini(cfg GeminiConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-pro"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Temperature == nil {
		defaultTemp := 0.1
		cfg.Temperature = &defaultTemp
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetMaxOutputTokens(int32(cfg.MaxTokens))
	model.SetTemperature(float32(*cfg.Temperature))

	return &Gemini{
		client: client,
		model:  model,
		cfg:    cfg,
	}, nil
}

// ExtractInvoice analyzes an invoice image and returns the validated
// structured data.
func (g *Gemini) ExtractInvoice(ctx context.Context, imageJPEG []byte) (*schema.InvoiceData, error) {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	parts := []genai.Part{
		genai.ImageData("jpeg", imageJPEG),
		genai.Text(BuildPrompt(schema.Definition())),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: no candidates in gemini response", ErrMalformedResponse)
	}

	var responseText strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return ParseResponse(responseText.String())
}

// Close closes the Gemini client.
func (g *Gemini) Close() error {
	return g.client.Close()
}
