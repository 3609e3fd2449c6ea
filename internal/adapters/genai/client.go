// Package genai is the HTTP client for the generative model endpoint.
// Stage executors treat the model as optional; when no endpoint is
// configured they produce deterministic template output instead.
package genai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/townready/townready/config"
	apperrors "github.com/townready/townready/internal/errors"
)

// ClientOptions groups dependencies for Client.
type ClientOptions struct {
	Config config.GenAIConfig

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client implements core.TextGenerator against a Gemini-style
// generateContent endpoint.
type Client struct {
	cfg    config.GenAIConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient constructs a Client.
func NewClient(opts ClientOptions) *Client {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Config.Timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    opts.Config,
		client: client,
		logger: logger,
	}
}

// Enabled reports whether a model endpoint is configured.
func (c *Client) Enabled() bool {
	return c.cfg.Endpoint != ""
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateJSON sends the prompt asking for a JSON response and unmarshals
// the model output into out.
func (c *Client) GenerateJSON(ctx context.Context, prompt string, out any) error {
	if !c.Enabled() {
		return apperrors.Internal("model endpoint is not configured")
	}

	body, err := json.Marshal(generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return fmt.Errorf("marshal model request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent",
		strings.TrimRight(c.cfg.Endpoint, "/"), c.cfg.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build model request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "model request")
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read path

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeUnavailable, "read model response")
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return apperrors.Unavailablef("model endpoint returned %d", resp.StatusCode)
	default:
		return apperrors.Internalf("model endpoint returned %d", resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode model response")
	}
	text := firstText(parsed)
	if text == "" {
		return apperrors.Validation("model returned no candidates")
	}

	if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, "decode model JSON output")
	}
	return nil
}

func firstText(r generateResponse) string {
	for _, cand := range r.Candidates {
		for _, p := range cand.Content.Parts {
			if p.Text != "" {
				return p.Text
			}
		}
	}
	return ""
}

// stripFences removes a surrounding markdown code fence, which some models
// emit even when asked for raw JSON.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
