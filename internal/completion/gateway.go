package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

const (
	// DefaultEndpoint is the OpenAI-compatible chat completions URL.
	DefaultEndpoint = "https://api.openai.com/v1/chat/completions"
	// DefaultModel balances cost against structural fidelity.
	DefaultModel = "gpt-4o-mini"
	// DefaultTimeout caps one completion call via the transport.
	DefaultTimeout = 60 * time.Second

	// temperature stays near zero: segment count and structural fidelity
	// matter more than creative variance.
	temperature = 0.1
	maxTokens   = 3000

	systemMessage = "Respond with JSON only, conforming exactly to the provided schema."
)

// Config holds the completion service settings. A missing APIKey disables
// the gateway: Complete short-circuits to unavailable without I/O.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// Gateway calls the external LLM completion service under the strict
// segment-batch JSON schema. It never returns an error: missing
// credentials, transport failure, and non-conformant content all report
// unavailable, and the caller moves to the next fallback tier.
type Gateway struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// New returns a Gateway for the given config, filling in defaults for
// unset endpoint, model, and timeout.
func New(cfg Config, log *slog.Logger) *Gateway {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gateway{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log,
	}
}

// Configured reports whether API credentials are present.
func (g *Gateway) Configured() bool {
	return g.cfg.APIKey != ""
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *jsonSchemaSpec `json:"json_schema,omitempty"`
}

type jsonSchemaSpec struct {
	Name   string          `json:"name"`
	Strict bool            `json:"strict"`
	Schema json.RawMessage `json:"schema"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete requests one segment batch for the given prompt. The returned
// raw JSON has passed the structural shape check; the second return is
// false when the completion is unavailable for any reason.
func (g *Gateway) Complete(ctx context.Context, prompt string) (json.RawMessage, bool) {
	if !g.Configured() {
		g.log.Debug("completion gateway has no credentials, skipping")
		return nil, false
	}

	reqBody := chatRequest{
		Model: g.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemMessage},
			{Role: "user", Content: prompt},
		},
		ResponseFormat: &responseFormat{
			Type: "json_schema",
			JSONSchema: &jsonSchemaSpec{
				Name:   "segment_batch",
				Strict: true,
				Schema: json.RawMessage(RequestSchemaJSON()),
			},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		g.log.Error("completion request marshal failed", slog.String("error", err.Error()))
		return nil, false
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		g.log.Error("completion request build failed", slog.String("error", err.Error()))
		return nil, false
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.cfg.APIKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		g.log.Warn("completion service unreachable", slog.String("error", err.Error()))
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		g.log.Warn("completion service returned error status", slog.Int("status", resp.StatusCode))
		return nil, false
	}

	var chat chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chat); err != nil {
		g.log.Warn("completion envelope not parseable", slog.String("error", err.Error()))
		return nil, false
	}
	if len(chat.Choices) == 0 {
		g.log.Warn("completion returned no choices")
		return nil, false
	}

	content := []byte(chat.Choices[0].Message.Content)

	var decoded any
	if err := json.Unmarshal(content, &decoded); err != nil {
		g.log.Warn("completion content not valid JSON", slog.String("error", err.Error()))
		return nil, false
	}
	if err := responseShapeSchema.Validate(decoded); err != nil {
		g.log.Warn("completion content failed shape check", slog.String("error", err.Error()))
		return nil, false
	}

	return json.RawMessage(content), true
}
