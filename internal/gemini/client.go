// Package gemini provides the Google Gemini backend for the writer, built
// on the official genai SDK.
package gemini

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/genai"

	"github.com/hammamikhairi/pocketprompter/internal/domain"
	"github.com/hammamikhairi/pocketprompter/internal/logger"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// Compile-time interface check.
var _ domain.TextGenerator = (*Client)(nil)

// Option configures the Client.
type Option func(*Client)

// WithModel overrides DefaultModel.
func WithModel(model string) Option {
	return func(c *Client) {
		if model != "" {
			c.model = model
		}
	}
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float32) Option {
	return func(c *Client) { c.temperature = t }
}

// WithHTTPTimeout bounds each generate call.
func WithHTTPTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithBaseURL points the SDK at a different API host.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// Client generates text with a Gemini model. The SDK client is created
// lazily on the first call so an unconfigured Client never dials out.
type Client struct {
	apiKey      string
	model       string
	temperature float32
	timeout     time.Duration
	baseURL     string
	log         *logger.Logger

	mu     sync.Mutex
	client *genai.Client
}

// New creates a Gemini client. An empty apiKey leaves it unconfigured.
func New(apiKey string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		apiKey:      apiKey,
		model:       DefaultModel,
		temperature: 0.8,
		timeout:     60 * time.Second,
		log:         log,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Model returns the model name requests are sent to.
func (c *Client) Model() string { return c.model }

// Generate sends prompt to the model and returns the concatenated text of
// the first candidate unchanged, even when it is empty. A response without
// candidates is an error.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := c.sdk(ctx)
	if err != nil {
		return "", err
	}

	c.log.Debug("gemini: generate model=%s (%d chars)", c.model, len(prompt))

	resp, err := client.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature: genai.Ptr(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("gemini: generate: %w", err)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("gemini: no candidates in response")
	}

	text := resp.Text()
	c.log.Debug("gemini: reply (%d chars)", len(text))
	return text, nil
}

func (c *Client) sdk(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		return c.client, nil
	}
	if c.apiKey == "" {
		return nil, domain.ErrNotConfigured
	}

	cfg := &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: c.timeout},
	}
	if c.baseURL != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: c.baseURL}
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	c.client = client
	return client, nil
}
