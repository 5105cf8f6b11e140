// internal/scoring/gemini.go

// Package scoring estimates how valuable a business is as a website lead
// and drafts outreach for the best ones.
package scoring

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/valpere/LeadScout/internal/utils"
)

// JSONGenerator returns a JSON document matching schema
type JSONGenerator interface {
	GenerateJSON(ctx context.Context, instruction, prompt string, schema *genai.Schema) (string, error)
}

// CallObserver is told about every model call
type CallObserver interface {
	ObserveLLMCall(kind string, duration time.Duration, err error)
}

// Config configures the Gemini client
type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini API base URL
	BaseURL string
	Timeout time.Duration
}

// GeminiClient generates structured JSON with the Gemini API
type GeminiClient struct {
	client   *genai.Client
	model    string
	timeout  time.Duration
	observer CallObserver
}

// NewGeminiClient creates a client for the Gemini developer API
func NewGeminiClient(ctx context.Context, cfg Config) (*GeminiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "gemini api key is required").Build()
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "gemini model is required").Build()
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeLLMFailed, "failed to create gemini client")
	}
	return &GeminiClient{
		client:  client,
		model:   strings.TrimSpace(cfg.Model),
		timeout: cfg.Timeout,
	}, nil
}

// WithObserver attaches a call observer
func (g *GeminiClient) WithObserver(o CallObserver) *GeminiClient {
	g.observer = o
	return g
}

// Model returns the model name
func (g *GeminiClient) Model() string {
	return g.model
}

// GenerateJSON runs one structured generation
func (g *GeminiClient) GenerateJSON(ctx context.Context, instruction, prompt string, schema *genai.Schema) (text string, err error) {
	start := time.Now()
	defer func() {
		if g.observer != nil {
			g.observer.ObserveLLMCall(kindOf(schema), time.Since(start), err)
		}
	}()

	config := &genai.GenerateContentConfig{
		CandidateCount:   1,
		Temperature:      genai.Ptr[float32](0.2),
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema,
	}
	if instruction != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: instruction}}}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyErr(err)
	}
	text = strings.TrimSpace(resp.Text())
	if text == "" {
		return "", utils.NewError(utils.ErrCodeLLMFailed, "gemini returned an empty response").Build()
	}
	return text, nil
}

// classifyErr keeps cancellation recognizable and marks everything else as
// an LLM failure. Quota, outage and timeout failures are flagged transient.
func classifyErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return utils.WrapError(err, utils.ErrCodeContextCanceled, "gemini call cancelled")
	}

	wrapped := utils.WrapError(err, utils.ErrCodeLLMFailed, "gemini call failed")
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		wrapped.WithContext("status", apiErr.Code)
		if apiErr.Code == 429 || apiErr.Code/100 == 5 {
			wrapped.WithContext("transient", true)
		}
		return wrapped
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		wrapped.WithContext("transient", true)
	}
	return wrapped
}

// IsTransient reports whether a failed call may succeed later. Callers
// use it to tell quota and outage failures apart from bad requests.
func IsTransient(err error) bool {
	var se *utils.StructuredError
	if !errors.As(err, &se) {
		return false
	}
	v, _ := se.Context["transient"].(bool)
	return v
}

func kindOf(schema *genai.Schema) string {
	if schema == nil {
		return "other"
	}
	if _, ok := schema.Properties["persona_json"]; ok {
		return "persona"
	}
	if _, ok := schema.Properties["predicted_probability"]; ok {
		return "score"
	}
	return "other"
}

func describe(fields ...[2]string) string {
	var b strings.Builder
	for _, f := range fields {
		v := strings.TrimSpace(f[1])
		if v == "" {
			v = "unknown"
		}
		fmt.Fprintf(&b, "%s: %s\n", f[0], v)
	}
	return b.String()
}
