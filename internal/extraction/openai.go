package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adhikarip/invoice-extractor/internal/schema"
)

// OpenAIConfig holds the externally supplied parameters for a
// chat-completions endpoint (vLLM, OpenAI, or any compatible server).
type OpenAIConfig struct {
	BaseURL   string
	APIKey    string // optional; sent as a bearer token when set
	Model     string
	MaxTokens int
	// Temperature nil means the default 0.1. An explicit zero requests
	// fully greedy decoding and is honored as given.
	Temperature *float64
	Timeout     time.Duration
}

// OpenAI implements Extractor against an OpenAI-compatible
// chat-completions endpoint. The image travels inline as a base64 data
// URL; the endpoint never receives an external URL or a separate upload.
type OpenAI struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAI creates a chat-completions Extractor.
func NewOpenAI(cfg OpenAIConfig) (*OpenAI, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("model endpoint URL is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Temperature == nil {
		// Low temperature favors literal transcription over creative
		// completion.
		defaultTemp := 0.1
		cfg.Temperature = &defaultTemp
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	return &OpenAI{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ExtractInvoice sends one multimodal user message (prompt plus inlined
// image) and validates the first choice's content. No retry is
// performed here; retrying the whole pipeline is the caller's policy.
func (o *OpenAI) ExtractInvoice(ctx context.Context, imageJPEG []byte) (*schema.InvoiceData, error) {
	raw, err := o.complete(ctx, imageJPEG)
	if err != nil {
		return nil, err
	}
	return ParseResponse(raw)
}

// complete performs the chat-completion call and returns the raw text
// of the single completion choice.
func (o *OpenAI) complete(ctx context.Context, imageJPEG []byte) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
	defer cancel()

	dataURL := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(imageJPEG)
	reqBody := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: BuildPrompt(schema.Definition())},
					{Type: "image_url", ImageURL: &imageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: *o.cfg.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(o.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if o.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &UpstreamError{Status: resp.StatusCode, Body: truncate(string(body))}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return "", fmt.Errorf("%w: %s", ErrMalformedResponse, truncate(string(body)))
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response: %s", ErrMalformedResponse, truncate(string(body)))
	}

	return chatResp.Choices[0].Message.Content, nil
}

// Close closes the client (no-op for an HTTP client).
func (o *OpenAI) Close() error {
	return nil
}
