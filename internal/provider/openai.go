package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/anyspecs/anyspecs/internal/config"
	"github.com/anyspecs/anyspecs/internal/session"
)

// openAIClient speaks the OpenAI-compatible chat completions dialect used
// by aihubmix, kimi, and ppio.
type openAIClient struct {
	cfg        *config.ProviderConfig
	httpClient *http.Client
	maxInput   int
}

func newOpenAIClient(cfg *config.ProviderConfig) *openAIClient {
	return &openAIClient{
		cfg:        cfg,
		httpClient: &http.Client{},
		maxInput:   192 * 1024,
	}
}

func (c *openAIClient) Name() string { return c.cfg.Provider }

func (c *openAIClient) Model() string { return c.cfg.Model }

func (c *openAIClient) Capabilities() Capabilities {
	return Capabilities{MaxInputBytes: c.maxInput}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Compress sends the rendered session through the chat completions
// endpoint. In dry-run mode the serialized payload is returned unsent.
func (c *openAIClient) Compress(ctx context.Context, sess *session.Session, promptTemplate string, opts Options) (string, error) {
	payload, err := c.buildPayload(sess, promptTemplate)
	if err != nil {
		return "", err
	}

	if opts.DryRun {
		return string(payload), nil
	}

	endpoint := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	body, err := c.post(ctx, endpoint, payload)
	if err != nil {
		return "", err
	}
	return c.parseCompletion(body)
}

func (c *openAIClient) buildPayload(sess *session.Session, promptTemplate string) ([]byte, error) {
	prompt := fmt.Sprintf(promptTemplate, Transcript(sess, c.maxInput))
	req := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return payload, nil
}

func (c *openAIClient) post(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
			return nil, &TimeoutError{Provider: c.cfg.Provider, Err: err}
		}
		return nil, fmt.Errorf("request failed [%s]: %w", c.cfg.Provider, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response [%s]: %w", c.cfg.Provider, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &AuthenticationError{Provider: c.cfg.Provider, Err: statusError(resp.StatusCode, body)}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &RateLimitError{Provider: c.cfg.Provider, Err: statusError(resp.StatusCode, body)}
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusGatewayTimeout:
		return nil, &TimeoutError{Provider: c.cfg.Provider, Err: statusError(resp.StatusCode, body)}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &InvalidResponseError{Provider: c.cfg.Provider, Reason: statusError(resp.StatusCode, body).Error()}
	}

	return body, nil
}

func (c *openAIClient) parseCompletion(body []byte) (string, error) {
	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &InvalidResponseError{
			Provider: c.cfg.Provider,
			Reason:   fmt.Sprintf("malformed completion body: %s", truncateBody(body)),
		}
	}

	if len(parsed.Choices) == 0 {
		return "", &InvalidResponseError{Provider: c.cfg.Provider, Reason: "no choices in completion"}
	}
	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", &InvalidResponseError{Provider: c.cfg.Provider, Reason: "empty completion"}
	}
	return content, nil
}

func statusError(status int, body []byte) error {
	return fmt.Errorf("status=%d body=%s", status, truncateBody(body))
}

func truncateBody(body []byte) string {
	const maxChars = 400
	runes := []rune(string(body))
	if len(runes) <= maxChars {
		return string(runes)
	}
	return string(runes[:maxChars])
}
