// Package genai is a thin client for the Gemini generateContent REST API.
//
// Requests fall through an ordered list of models so a quota error or an
// outage on the newest model degrades to an older one instead of failing the
// caller outright.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrUnavailable reports that every configured model failed.
var ErrUnavailable = errors.New("genai: no model produced a response")

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultModels is the fallback order used when none is configured.
var DefaultModels = []string{
	"gemini-2.0-flash",
	"gemini-1.5-flash",
	"gemini-1.5-pro",
}

// Config carries the client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Models  []string
	Timeout time.Duration
}

// Client calls the Gemini API over HTTP.
type Client struct {
	apiKey  string
	baseURL string
	models  []string
	http    *http.Client
}

// NewClient builds a client. An empty API key is allowed; calls then fail
// with ErrUnavailable so callers can degrade.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	models := cfg.Models
	if len(models) == 0 {
		models = DefaultModels
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  strings.TrimSpace(cfg.APIKey),
		baseURL: base,
		models:  models,
		http:    &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether the client has a key and can make calls.
func (c *Client) Enabled() bool { return c != nil && c.apiKey != "" }

type generateRequest struct {
	Contents          []content          `json:"contents"`
	SystemInstruction *content           `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig  `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Message is one turn of a chat transcript.
type Message struct {
	Role string // "user" or "model"
	Text string
}

// GenerateText sends a single-turn prompt and returns the model's text.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	return c.generate(ctx, generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: prompt}}}},
	})
}

// GenerateChat sends a system prompt plus a transcript and returns the reply.
func (c *Client) GenerateChat(ctx context.Context, system string, history []Message) (string, error) {
	req := generateRequest{}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}
	for _, m := range history {
		role := m.Role
		if role != "model" {
			role = "user"
		}
		req.Contents = append(req.Contents, content{Role: role, Parts: []part{{Text: m.Text}}})
	}
	return c.generate(ctx, req)
}

// GenerateVision sends a prompt plus an inline image and returns the text.
func (c *Client) GenerateVision(ctx context.Context, prompt string, mimeType string, image []byte) (string, error) {
	return c.generate(ctx, generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{Text: prompt},
				{InlineData: &inlineData{
					MimeType: mimeType,
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
			},
		}},
	})
}

func (c *Client) generate(ctx context.Context, req generateRequest) (string, error) {
	if !c.Enabled() {
		return "", ErrUnavailable
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("genai: encode request: %w", err)
	}

	var lastErr error = ErrUnavailable
	for _, model := range c.models {
		text, err := c.generateOnce(ctx, model, body)
		if err == nil {
			return text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) generateOnce(ctx context.Context, model string, body []byte) (string, error) {
	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		c.baseURL, url.PathEscape(model), url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("genai: %s returned %d", model, resp.StatusCode)
	}

	var out generateResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("genai: decode response: %w", err)
	}
	if len(out.Candidates) == 0 || len(out.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("genai: %s returned no candidates", model)
	}

	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", fmt.Errorf("genai: %s returned empty text", model)
	}
	return text, nil
}
