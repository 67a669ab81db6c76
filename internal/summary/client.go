// Package summary asks a hosted language model for a narrative of the
// month's figures. It never feeds anything back into the calculations.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultModel   = "gemini-2.5-flash"
	defaultTimeout = 30 * time.Second
)

// Messages shown instead of a summary.
const (
	MsgMissingKey = "API key is missing. Please configure GEMINI_API_KEY to use AI features."
	MsgFailed     = "Failed to generate report due to an API error. Please try again later."
	MsgEmpty      = "No analysis could be generated."
)

var (
	ErrMissingAPIKey = errors.New("missing AI API key")
	ErrEmptyResponse = errors.New("empty response from AI")
)

// Generator turns a prompt into text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	http   *resty.Client
	apiKey string
	model  string
}

var _ Generator = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetHeader("content-type", "application/json").
		SetTimeout(cfg.Timeout)

	return &Client{http: http, apiKey: strings.TrimSpace(cfg.APIKey), model: cfg.Model}
}

type (
	part struct {
		Text string `json:"text"`
	}

	content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}

	generateRequest struct {
		Contents []content `json:"contents"`
	}

	generateResponse struct {
		Candidates []struct {
			Content content `json:"content"`
		} `json:"candidates"`
	}
)

func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	req := generateRequest{Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}}}

	var body generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("x-goog-api-key", c.apiKey).
		SetPathParam("model", c.model).
		SetBody(req).
		SetResult(&body).
		Post("/models/{model}:generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini api call: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("gemini api error: status %d", resp.StatusCode())
	}

	var out strings.Builder
	if len(body.Candidates) > 0 {
		for _, p := range body.Candidates[0].Content.Parts {
			out.WriteString(p.Text)
		}
	}
	text := strings.TrimSpace(out.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// FallbackMessage is the text shown to the user when Generate fails.
func FallbackMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingAPIKey):
		return MsgMissingKey
	case errors.Is(err, ErrEmptyResponse):
		return MsgEmpty
	default:
		return MsgFailed
	}
}
