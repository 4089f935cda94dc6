package scanning

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/zombor/weighbridge/internal/extraction"
)

// ErrUnavailable is returned while the circuit breaker keeps calls away
// from an Ollama server that keeps failing
var ErrUnavailable = errors.New("ollama unavailable")

// Ollama implements Scanner using a local Ollama vision model
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*extraction.Fields]
}

// NewOllama creates a new Ollama Scanner. Vision models with decent OCR
// (llava:1.6, qwen2-vl:7b) read printed DACTEs best.
func NewOllama(baseURL string, modelName string) (*Ollama, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if modelName == "" {
		modelName = "llava"
	}

	return &Ollama{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker[*extraction.Fields](gobreaker.Settings{
			Name:        "ollama",
			MaxRequests: 1,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
				slog.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			},
		}),
	}, nil
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format,omitempty"`
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
}

// ScanDocument implements Scanner
func (o *Ollama) ScanDocument(data []byte, contentType string) (*extraction.Fields, error) {
	pngData, err := preparePNG(data, contentType)
	if err != nil {
		return nil, err
	}

	fields, err := o.breaker.Execute(func() (*extraction.Fields, error) {
		return o.chat(pngData)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fields, err
}

func (o *Ollama) chat(pngData []byte) (*extraction.Fields, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	reqBody := ollamaChatRequest{
		Model:  o.model,
		Stream: false,
		Format: "json",
		Messages: []ollamaMessage{
			{
				Role:    "system",
				Content: "You are an expert at reading Brazilian fiscal documents (DACTE and DANFE). Read all text carefully and extract accurate values.",
			},
			{
				Role:    "user",
				Content: documentScanPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(pngData)},
			},
		},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ollama API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(body))
	}

	var chatResp ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	fields, err := parseFieldsJSON(chatResp.Message.Content)
	if err != nil {
		return nil, fmt.Errorf("parsing document fields: %w", err)
	}
	return fields, nil
}

// Close is a no-op for the HTTP client
func (o *Ollama) Close() error {
	return nil
}
