package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ai-fitness-planner/internal/shared"
)

const (
	groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"
	groqModel  = "llama-3.3-70b-versatile"

	defaultHTTPTimeout    = 30 * time.Second
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// ChatConfig captures the settings of an OpenAI compatible chat completion endpoint.
type ChatConfig struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
}

// ChatClient talks to an OpenAI compatible chat completions endpoint (Groq by default).
type ChatClient struct {
	cfg        ChatConfig
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(context.Context, time.Duration) error
}

// ChatOption customizes the chat client.
type ChatOption func(*ChatClient)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) ChatOption {
	return func(c *ChatClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count.
func WithRetryMaxAttempts(attempts int) ChatOption {
	return func(c *ChatClient) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) ChatOption {
	return func(c *ChatClient) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed.
func WithSleeper(sleeper func(context.Context, time.Duration) error) ChatOption {
	return func(c *ChatClient) {
		if sleeper != nil {
			c.sleeper = sleeper
		}
	}
}

// NewChatClient creates a chat completion client.
func NewChatClient(cfg ChatConfig, opts ...ChatOption) *ChatClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = groqAPIURL
	}
	if cfg.Model == "" {
		cfg.Model = groqModel
	}
	if cfg.Provider == "" {
		cfg.Provider = "groq"
	}
	c := &ChatClient{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: defaultHTTPTimeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
		sleeper:          sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Model string `json:"model"`
}

type httpStatusError struct {
	StatusCode int
	Body       []byte
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("chat api error: status=%d body=%s", e.StatusCode, strings.TrimSpace(string(e.Body)))
}

// GenerateContent sends a prompt to the model and returns the generated text.
func (c *ChatClient) GenerateContent(ctx context.Context, prompt string) (ContentResponse, error) {
	payload := chatRequest{
		Model:       c.cfg.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.cfg.Temperature,
	}

	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		resp, err := c.sendOnce(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			break
		}
		if err := c.sleeper(ctx, delay); err != nil {
			return ContentResponse{}, err
		}
	}

	var statusErr *httpStatusError
	if errors.As(lastErr, &statusErr) {
		return ContentResponse{}, classifyHTTP(c.cfg.Provider, statusErr.StatusCode, statusErr.Body, statusErr.RetryAfter, lastErr)
	}
	return ContentResponse{}, lastErr
}

func (c *ChatClient) sendOnce(ctx context.Context, payload chatRequest) (ContentResponse, error) {
	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return ContentResponse{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		return ContentResponse{}, &httpStatusError{StatusCode: resp.StatusCode, Body: body, RetryAfter: retryAfter}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return ContentResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(decoded.Choices) == 0 || strings.TrimSpace(decoded.Choices[0].Message.Content) == "" {
		return ContentResponse{}, fmt.Errorf("no content generated")
	}

	model := decoded.Model
	if model == "" {
		model = c.cfg.Model
	}
	return ContentResponse{
		Content: decoded.Choices[0].Message.Content,
		Usage: shared.TokenUsage{
			PromptTokens:     decoded.Usage.PromptTokens,
			CompletionTokens: decoded.Usage.CompletionTokens,
			TotalTokens:      decoded.Usage.TotalTokens,
			Model:            model,
		},
	}, nil
}

func (c *ChatClient) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				// Long quota windows are surfaced to the user instead of waited out.
				if statusErr.RetryAfter > c.retryMaxDelay {
					return 0, false
				}
				return statusErr.RetryAfter, true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

// backoffDelay doubles the base delay per attempt up to the configured maximum.
func (c *ChatClient) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	if delay <= 0 {
		return 0
	}
	for i := 1; i < attempt; i++ {
		if delay > c.retryMaxDelay/2 {
			return c.retryMaxDelay
		}
		delay *= 2
	}
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	return delay
}

func parseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := when.Sub(now); d > 0 {
			return d, true
		}
		return 0, true
	}
	return 0, false
}

func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
