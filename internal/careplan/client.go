package careplan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/haircarepro/haircarepro/internal/model"
)

const (
	// ClientTimeout is the total request timeout for a generation call.
	ClientTimeout = 60 * time.Second
	// DialTimeout is the connection timeout.
	DialTimeout = 10 * time.Second
	// TLSHandshakeTimeout is the TLS negotiation timeout.
	TLSHandshakeTimeout = 10 * time.Second

	// maxResponseBytes bounds how much of the API response is read.
	maxResponseBytes = 4 << 20
)

// Generation parameters sent with every request.
const (
	temperature     = 0.7
	topK            = 40
	topP            = 0.95
	maxOutputTokens = 2048
)

// NewHTTPClient creates an HTTP client configured for the generative API.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Timeout: ClientTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   DialTimeout,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout: TLSHandshakeTimeout,
			MaxIdleConns:        10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Generator produces a care plan for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) model.CarePlan
}

// Config configures a Client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client calls the Gemini generateContent endpoint.
type Client struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Client. A nil httpClient uses NewHTTPClient.
func NewClient(cfg Config, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	base := strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		apiKey:     cfg.APIKey,
		endpoint:   fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, url.PathEscape(cfg.Model)),
		httpClient: httpClient,
		logger:     logger.With("component", "careplan.client"),
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends prompt to the API and returns the normalized plan.
// Failures never surface as errors: they produce the plan's error variant.
func (c *Client) Generate(ctx context.Context, prompt string) model.CarePlan {
	text, err := c.complete(ctx, prompt)
	if err != nil {
		c.logger.Error("care plan generation failed", "error", err)
		return ErrorPlan(err)
	}

	c.logger.Info("raw model response", "text", text)

	plan, err := Parse(text)
	if err != nil {
		c.logger.Error("care plan generation failed", "error", err)
		return ErrorPlan(err)
	}
	return plan
}

// complete performs the HTTP exchange and returns the first candidate's text.
func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: generationConfig{
			Temperature:     temperature,
			TopK:            topK,
			TopP:            topP,
			MaxOutputTokens: maxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+url.QueryEscape(c.apiKey), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.Info("sending request to Gemini API", "endpoint", c.endpoint, "prompt_bytes", len(prompt))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %s", redactKey(err.Error(), c.apiKey))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	c.logger.Info("Gemini API responded",
		"status_code", resp.StatusCode,
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var decoded generateResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}
	text := decoded.Candidates[0].Content.Parts[0].Text
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}

	return text, nil
}

// redactKey strips the API key from transport errors, which echo the request URL.
func redactKey(msg, key string) string {
	if key == "" {
		return msg
	}
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "redacted")
	return strings.ReplaceAll(msg, key, "redacted")
}
