package generate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/openmined/notereview/internal/version"
)

const (
	DefaultBaseURL     = "https://openrouter.ai/api/v1"
	DefaultModel       = "deepseek/deepseek-v3.2"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
	DefaultTimeout     = 30 * time.Second
	DefaultMaxRetries  = 3
)

const chatCompletionsPath = "/chat/completions"

// Config configures an OpenAI compatible chat completions client.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		Model:       DefaultModel,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
		Timeout:     DefaultTimeout,
		MaxRetries:  DefaultMaxRetries,
		MinBackoff:  1 * time.Second,
		MaxBackoff:  10 * time.Second,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

// OpenAIClient calls a /chat/completions endpoint (OpenRouter by default).
type OpenAIClient struct {
	client *req.Client
	config Config
}

func NewOpenAIClient(cfg Config) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Model == "" {
		cfg.Model = def.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.MinBackoff <= 0 {
		cfg.MinBackoff = def.MinBackoff
	}
	if cfg.MaxBackoff < cfg.MinBackoff {
		cfg.MaxBackoff = cfg.MinBackoff
	}

	client := req.C().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetUserAgent(version.UserAgent()).
		SetCommonBearerAuthToken(cfg.APIKey).
		SetCommonHeader("X-Title", version.AppName).
		SetCommonRetryCount(cfg.MaxRetries).
		SetCommonRetryBackoffInterval(cfg.MinBackoff, cfg.MaxBackoff).
		SetCommonRetryCondition(shouldRetry).
		SetCommonRetryHook(func(resp *req.Response, err error) {
			status := 0
			if resp != nil && resp.Response != nil {
				status = resp.StatusCode
			}
			slog.Warn("generate retry", "status", status, "error", err)
		}).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &OpenAIClient{client: client, config: cfg}, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	body := &chatRequest{
		Model:       c.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
	}

	var result chatResponse
	var failure chatResponse

	start := time.Now()
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(body).
		SetSuccessResult(&result).
		SetErrorResult(&failure).
		Post(chatCompletionsPath)

	if err := handleAPIError(resp, err, &failure); err != nil {
		return "", err
	}

	if result.Error != nil {
		return "", classify(http.StatusOK, result.Error.Message)
	}
	if len(result.Choices) == 0 || strings.TrimSpace(result.Choices[0].Message.Content) == "" {
		return "", ErrEmptyResponse
	}

	content := result.Choices[0].Message.Content
	slog.Debug("generate", "model", c.config.Model, "promptChars", len(prompt), "responseChars", len(content), "took", time.Since(start))
	return content, nil
}

// handleAPIError maps transport failures and error responses to errors.
func handleAPIError(resp *req.Response, requestErr error, failure *chatResponse) error {
	if requestErr != nil {
		return fmt.Errorf("chat completion request: %w", requestErr)
	}

	if resp.IsErrorState() {
		msg := ""
		if failure != nil && failure.Error != nil {
			msg = failure.Error.Message
		}
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return classify(resp.StatusCode, msg)
	}

	return nil
}

func classify(status int, msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden || strings.Contains(lower, "api key"):
		return fmt.Errorf("%w: %s", ErrAuth, msg)
	case status == http.StatusPaymentRequired || strings.Contains(lower, "quota") || strings.Contains(lower, "insufficient credits"):
		return fmt.Errorf("%w: %s", ErrQuota, msg)
	case strings.Contains(lower, "invalid model") || strings.Contains(lower, "not a valid model"):
		return fmt.Errorf("%w: %s", ErrInvalidModel, msg)
	default:
		return fmt.Errorf("chat completion failed: status %d: %s", status, msg)
	}
}

// shouldRetry retries network errors, timeouts, 408, 429 and 5xx, but never auth or quota failures.
func shouldRetry(resp *req.Response, err error) bool {
	if err != nil {
		return !errors.Is(err, context.Canceled)
	}
	if resp == nil || resp.Response == nil {
		return false
	}

	switch code := resp.StatusCode; {
	case code == http.StatusTooManyRequests:
		return !strings.Contains(strings.ToLower(resp.String()), "quota")
	case code == http.StatusRequestTimeout, code >= 500:
		return true
	default:
		return false
	}
}
