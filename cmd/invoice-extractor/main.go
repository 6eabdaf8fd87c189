package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/adhikarip/invoice-extractor/internal/extraction"
	"github.com/adhikarip/invoice-extractor/internal/invoice"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

func main() {
	fs := ff.NewFlagSet("invoice-extractor")
	var (
		port        = fs.IntLong("port", 8501, "HTTP server port")
		dbPath      = fs.StringLong("db", "invoice-extractor.db", "Database file path")
		backend     = fs.StringLong("backend", "openai", "Extraction backend: 'openai' or 'gemini'")
		modelURL    = fs.StringLong("model-url", "http://localhost:8000/v1", "OpenAI-compatible endpoint base URL")
		modelName   = fs.StringLong("model", "Qwen/Qwen3-VL-4B-Instruct", "Model name for the OpenAI-compatible backend")
		apiKey      = fs.StringLong("api-key", "", "Bearer token for the OpenAI-compatible backend (optional)")
		geminiKey   = fs.StringLong("gemini-key", "", "Google Gemini API key (or set INVOICE_EXTRACTOR_GEMINI_KEY)")
		geminiModel = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		maxTokens   = fs.IntLong("max-tokens", 2048, "Token ceiling for model responses")
		temperature = fs.Float64Long("temperature", 0.1, "Sampling temperature for model responses")
		timeout     = fs.DurationLong("timeout", 60*time.Second, "Model request timeout")
		showVersion = fs.BoolLong("version", "Show version information")
	)

	if err := ff.Parse(fs, os.Args[1:],
		ff.WithEnvVarPrefix("INVOICE_EXTRACTOR"),
	); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *showVersion {
		fmt.Println(version)
		os.Exit(0)
	}

	slog.Info("Initializing database...", "path", *dbPath)
	store, err := invoice.NewSQLiteStore(*dbPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	var extractor extraction.Extractor
	switch *backend {
	case "openai":
		slog.Info("Initializing extraction client...", "url", *modelURL, "model", *modelName)
		extractor, err = extraction.NewOpenAI(extraction.OpenAIConfig{
			BaseURL:     *modelURL,
			APIKey:      *apiKey,
			Model:       *modelName,
			MaxTokens:   *maxTokens,
			Temperature: temperature,
			Timeout:     *timeout,
		})
		if err != nil {
			slog.Error("Failed to initialize extraction client", "error", err)
			os.Exit(1)
		}
	case "gemini":
		slog.Info("Initializing Gemini extraction client...", "model", *geminiModel)
		extractor, err = extraction.NewGemini(extraction.GeminiConfig{
			APIKey:      *geminiKey,
			Model:       *geminiModel,
			MaxTokens:   *maxTokens,
			Temperature: temperature,
			Timeout:     *timeout,
		})
		if err != nil {
			slog.Error("Failed to initialize Gemini extraction client", "error", err)
			os.Exit(1)
		}
	default:
		slog.Error("Invalid extraction backend", "backend", *backend, "valid", "openai or gemini")
		os.Exit(1)
	}
	defer extractor.Close()

	service := invoice.NewService(store, extractor)
	server := invoice.NewServer(service)

	addr := fmt.Sprintf(":%d", *port)
	go func() {
		if err := server.Start(addr); err != nil {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("Server started", "address", fmt.Sprintf("http://localhost%s", addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	slog.Info("Shutting down...")
}
