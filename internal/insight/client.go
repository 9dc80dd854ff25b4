package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Zuo-Peng/session-analyzer/internal/parse"
)

const (
	anthropicVersion = "2023-06-01"
	messagesPath     = "/v1/messages"
)

// Summarizer turns a session record into free-text insights.
type Summarizer interface {
	Summarize(ctx context.Context, rec parse.SessionRecord) (*Insight, error)
}

type Usage struct {
	InputTokens  int `json:"input_tokens" yaml:"input_tokens"`
	OutputTokens int `json:"output_tokens" yaml:"output_tokens"`
}

type Insight struct {
	Text  string `json:"insights" yaml:"insights"`
	Model string `json:"model_used" yaml:"model_used"`
	Usage Usage  `json:"usage" yaml:"usage"`
}

// ServiceError is a failed or rejected call to the messages API.
type ServiceError struct {
	Status int
	Body   string
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("anthropic API: %v", e.Err)
	}
	return fmt.Sprintf("anthropic API error (%d): %s", e.Status, e.Body)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

type ClientOptions struct {
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

// Client calls the Anthropic Messages API. It makes one attempt per call.
type Client struct {
	apiKey    string
	baseURL   string
	model     string
	maxTokens int
	http      *http.Client
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Model   string `json:"model"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage Usage `json:"usage"`
}

func NewClient(apiKey string, opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 1000
	}
	return &Client{
		apiKey:    apiKey,
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		http:      &http.Client{Timeout: opts.Timeout},
	}
}

// Summarize asks the model for an analysis of rec.
func (c *Client) Summarize(ctx context.Context, rec parse.SessionRecord) (*Insight, error) {
	return c.send(ctx, BuildPrompt(rec), c.maxTokens)
}

// Check sends a minimal request to verify credentials and connectivity.
func (c *Client) Check(ctx context.Context) (*Insight, error) {
	return c.send(ctx, "Hello, please respond with 'API connection successful'", 100)
}

func (c *Client) send(ctx context.Context, prompt string, maxTokens int) (*Insight, error) {
	body, err := json.Marshal(messageRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		Messages:  []message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+messagesPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &ServiceError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &ServiceError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var msg messageResponse
	if err := json.Unmarshal(respBody, &msg); err != nil {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(msg.Content) == 0 {
		return nil, &ServiceError{Status: resp.StatusCode, Err: fmt.Errorf("empty response content")}
	}

	var text []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = append(text, block.Text)
		}
	}
	return &Insight{
		Text:  strings.Join(text, "\n"),
		Model: msg.Model,
		Usage: msg.Usage,
	}, nil
}
