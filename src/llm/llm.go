package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"omnikey/src/logutil"
)

type Config struct {
	APIKey    string
	Model     string
	Providers []string
	// Endpoint overrides the OpenRouter chat completions URL.
	Endpoint string
}

var config *Config

// ErrNotConfigured means Init was not called or no key is set.
var ErrNotConfigured = errors.New("LLM client not configured")

func Init(cfg *Config) {
	config = cfg
}

// Configured reports whether Rewrite can reach a model.
func Configured() bool {
	return config != nil && config.APIKey != "" && config.Model != ""
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ProviderPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type ChatRequest struct {
	Model       string               `json:"model"`
	Messages    []Message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens,omitempty"`
	Provider    *ProviderPreferences `json:"provider,omitempty"`
}

type ChatResponse struct {
	Choices []Choice  `json:"choices"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message Message `json:"message"`
}

type APIError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

const (
	openRouterURL = "https://openrouter.ai/api/v1/chat/completions"
	modelsURL     = "https://openrouter.ai/api/v1/models"
	maxRetries    = 3
	initialDelay  = 1 * time.Second
	temperature   = 0.3
)

var httpClient = &http.Client{Timeout: 45 * time.Second}

func getProviderPreferences() *ProviderPreferences {
	if config == nil || len(config.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &ProviderPreferences{
		Order:          config.Providers,
		AllowFallbacks: &allowFallbacks,
	}
}

func endpoint() string {
	if config != nil && config.Endpoint != "" {
		return config.Endpoint
	}
	return openRouterURL
}

// Rewrite sends text with systemPrompt and returns the trimmed reply.
// A blank reply is an error so callers can fall back.
func Rewrite(ctx context.Context, systemPrompt, text string) (string, error) {
	if config == nil {
		return "", ErrNotConfigured
	}
	if config.APIKey == "" {
		return "", fmt.Errorf("%w: API key is required", ErrNotConfigured)
	}
	if config.Model == "" {
		return "", fmt.Errorf("%w: model is required", ErrNotConfigured)
	}

	request := ChatRequest{
		Model: config.Model,
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: text},
		},
		Temperature: temperature,
		Provider:    getProviderPreferences(),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(initialDelay) * (1.5 * float64(attempt)))
			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
				return "", ctx.Err()
			case <-t.C:
			}
		}

		response, err := makeAPIRequest(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("llm: attempt %d failed: %v", attempt+1, err)
			lastErr = err
			continue
		}
		if len(response.Choices) == 0 {
			lastErr = fmt.Errorf("no choices in API response")
			continue
		}

		out := strings.TrimSpace(response.Choices[0].Message.Content)
		if out == "" {
			return "", fmt.Errorf("model returned empty content")
		}
		log.Printf("llm: %s replied %s", config.Model, logutil.Preview(out, 60))
		return out, nil
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func makeAPIRequest(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint(), bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+config.APIKey)
	req.Header.Set("X-Title", "OmniKey")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var response ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response (status %d): %w", resp.StatusCode, err)
	}
	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (type: %s, code: %v)", response.Error.Message, response.Error.Type, response.Error.Code)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return &response, nil
}

// Ping checks that the key is accepted, without spending tokens.
func Ping(ctx context.Context) error {
	if !Configured() {
		return ErrNotConfigured
	}
	url := modelsURL
	if config.Endpoint != "" {
		url = strings.TrimSuffix(config.Endpoint, "/chat/completions") + "/models"
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+config.APIKey)
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	log.Printf("llm: ping ok (key %s)", logutil.RedactKey(config.APIKey))
	return nil
}
