// Package ollama is the AI-assisted strategy synthesizer. It asks a local
// Ollama model for one locator strategy as a JSON object, then parses and
// schema-validates the answer before anything reaches the live page.
//
// Availability is checked up front (/api/tags) and guarded by a circuit
// breaker, so an unreachable backend fails fast with ErrServiceUnavailable
// instead of stalling every repair attempt on a timeout.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/saudraja/ollama-ai-scrapper/repair"
	"github.com/saudraja/ollama-ai-scrapper/strategy"
)

// Config configures the Ollama client.
type Config struct {
	// Endpoint is the Ollama base URL. Default: http://localhost:11434.
	Endpoint string `yaml:"endpoint"`

	// Model is the model name passed to /api/generate. Default: gpt-oss.
	Model string `yaml:"model"`

	// Timeout bounds one generate call. Default: 15s.
	Timeout time.Duration `yaml:"timeout"`

	// ProbeTimeout bounds the availability probe. Default: 3s.
	ProbeTimeout time.Duration `yaml:"probe_timeout"`

	// SnippetBudget is the max DOM snippet characters in the prompt.
	// Default: 2000.
	SnippetBudget int `yaml:"snippet_budget"`

	// MaxPredict bounds the response length in tokens. Default: 200.
	MaxPredict int `yaml:"max_predict"`

	// BreakerThreshold is the consecutive-failure count that opens the
	// circuit. Default: 3.
	BreakerThreshold int `yaml:"breaker_threshold"`

	// BreakerReset is how long the circuit stays open. Default: 30s.
	BreakerReset time.Duration `yaml:"breaker_reset"`

	Logger *slog.Logger `yaml:"-"`
}

func (c *Config) defaults() {
	if c.Endpoint == "" {
		c.Endpoint = "http://localhost:11434"
	}
	if c.Model == "" {
		c.Model = "gpt-oss"
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.SnippetBudget <= 0 {
		c.SnippetBudget = 2000
	}
	if c.MaxPredict <= 0 {
		c.MaxPredict = 200
	}
	if c.BreakerThreshold <= 0 {
		c.BreakerThreshold = 3
	}
	if c.BreakerReset <= 0 {
		c.BreakerReset = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// temperature biases the model toward literal, deterministic answers.
const temperature = 0.1

// Client talks to one Ollama endpoint. Implements repair.Generator.
type Client struct {
	cfg     Config
	client  *http.Client
	breaker *breaker
}

// New creates a Client from configuration.
func New(cfg Config) *Client {
	cfg.defaults()
	return &Client{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		breaker: newBreaker(cfg.BreakerThreshold, cfg.BreakerReset),
	}
}

func (c *Client) Name() string { return "ollama" }

// Available reports whether the endpoint is reachable and serves the
// configured model. It never blocks longer than the probe timeout.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return false
	}
	for _, m := range tags.Models {
		if strings.Contains(m.Name, c.cfg.Model) {
			return true
		}
	}
	return false
}

// generateRequest is the JSON body sent to /api/generate.
type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p"`
	NumPredict    int     `json:"num_predict"`
	NumCtx        int     `json:"num_ctx"`
	RepeatPenalty float64 `json:"repeat_penalty"`
}

// generateResponse is the JSON response from /api/generate.
type generateResponse struct {
	Response string `json:"response"`
}

// Propose asks the model for one strategy. Fails with
// ErrServiceUnavailable when the backend is unreachable (breaker open,
// connection refused, or non-2xx), or ErrInvalidResponse when the output
// does not parse into a schema-valid strategy not already failed.
func (c *Client) Propose(ctx context.Context, req *repair.Request) (*strategy.Strategy, error) {
	if !c.breaker.allow() {
		return nil, &ErrServiceUnavailable{Endpoint: c.cfg.Endpoint, Cause: fmt.Errorf("circuit open")}
	}

	prompt := buildPrompt(req, c.cfg.SnippetBudget)

	body, err := json.Marshal(generateRequest{
		Model:  c.cfg.Model,
		Prompt: prompt,
		Stream: false,
		Options: generateOptions{
			Temperature:   temperature,
			TopP:          0.9,
			NumPredict:    c.cfg.MaxPredict,
			NumCtx:        2048,
			RepeatPenalty: 1.1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("ollama: marshal request: %w", err)
	}

	url := c.cfg.Endpoint + "/api/generate"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ollama: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		c.breaker.recordFailure()
		return nil, &ErrServiceUnavailable{Endpoint: c.cfg.Endpoint, Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.breaker.recordFailure()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, &ErrServiceUnavailable{
			Endpoint: c.cfg.Endpoint,
			Cause:    fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(snippet)),
		}
	}
	c.breaker.recordSuccess()

	var gen generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&gen); err != nil {
		return nil, &ErrInvalidResponse{Reason: fmt.Sprintf("decode body: %v", err)}
	}

	s, err := parseStrategy(gen.Response)
	if err != nil {
		return nil, err
	}
	if strategy.Contains(req.Failed, s) {
		return nil, &ErrInvalidResponse{Reason: "model re-proposed a failed strategy"}
	}

	c.cfg.Logger.Info("ollama: proposed strategy",
		"field", req.Field, "provider", req.Provider, "strategy", s.String())
	return s, nil
}
