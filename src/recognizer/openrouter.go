package recognizer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clipboard-ocr/src/imageref"
)

const (
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	noTextMarker         = "NO_TEXT_FOUND"
	maxRetries           = 3
	initialDelay         = 1 * time.Second
)

type OpenRouterConfig struct {
	APIKey    string
	Model     string
	Providers []string
	// BaseURL defaults to DefaultOpenRouterURL.
	BaseURL    string
	HTTPClient *http.Client
	// RetryDelay overrides the initial backoff delay.
	RetryDelay time.Duration
}

// OpenRouter recognizes text with a vision model behind the OpenRouter chat API.
type OpenRouter struct {
	cfg    OpenRouterConfig
	client *http.Client
}

func NewOpenRouter(cfg OpenRouterConfig) (*OpenRouter, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("model is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = initialDelay
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 45 * time.Second}
	}
	return &OpenRouter{cfg: cfg, client: client}, nil
}

func (o *OpenRouter) Name() string { return "openrouter" }

// OpenRouter API structures
type message struct {
	Role    string    `json:"role"`
	Content []content `json:"content"`
}

type content struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type providerPreferences struct {
	Order          []string `json:"order,omitempty"`
	AllowFallbacks *bool    `json:"allow_fallbacks,omitempty"`
}

type chatRequest struct {
	Model       string               `json:"model"`
	Messages    []message            `json:"messages"`
	Temperature float64              `json:"temperature"`
	MaxTokens   int                  `json:"max_tokens"`
	Provider    *providerPreferences `json:"provider,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string      `json:"message"`
	Type    string      `json:"type"`
	Code    interface{} `json:"code"` // string or number
}

func (o *OpenRouter) providerPreferences() *providerPreferences {
	if len(o.cfg.Providers) == 0 {
		return nil
	}
	allowFallbacks := false
	return &providerPreferences{Order: o.cfg.Providers, AllowFallbacks: &allowFallbacks}
}

func prompt(language string) string {
	p := "Perform OCR on this image. Return ONLY the raw extracted text with:\n" +
		"- No formatting\n" +
		"- No XML/HTML tags\n" +
		"- No markdown\n" +
		"- No explanations\n" +
		"- Preserve line breaks accurately from the visual layout.\n"
	if langs := SplitLanguages(language); len(langs) > 0 {
		p += "The text is expected in these tesseract language codes: " + strings.Join(langs, ", ") + ".\n"
	}
	return p + "If no text found, return '" + noTextMarker + "'"
}

func (o *OpenRouter) Recognize(ctx context.Context, img Image, language string, obs ProgressObserver) (Result, error) {
	if err := ValidateImage(img); err != nil {
		return Result{}, err
	}
	start := time.Now()
	Report(obs, "encoding image", 0)

	pngData, err := imageref.ToPNG(imageref.Blob{Name: img.Name, MediaType: img.MediaType, Data: img.Data})
	if err != nil {
		return Result{}, fmt.Errorf("normalize image: %w", err)
	}

	request := chatRequest{
		Model: o.cfg.Model,
		Messages: []message{{
			Role: "user",
			Content: []content{
				{Type: "text", Text: prompt(language)},
				{Type: "image_url", ImageURL: &imageURL{URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData)}},
			},
		}},
		Temperature: 0.1,
		MaxTokens:   2000,
		Provider:    o.providerPreferences(),
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(float64(o.cfg.RetryDelay) * (1.5 * float64(attempt)))
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return Result{}, ctx.Err()
			}
		}
		Report(obs, fmt.Sprintf("requesting %s (attempt %d)", o.cfg.Model, attempt+1), 0.2+0.6*float64(attempt)/maxRetries)

		response, err := o.do(ctx, request)
		if err != nil {
			if ctx.Err() != nil {
				return Result{}, ctx.Err()
			}
			lastErr = err
			continue
		}
		if len(response.Choices) == 0 {
			lastErr = errors.New("no choices in API response")
			continue
		}

		text := cleanExtractedText(response.Choices[0].Message.Content)
		if text == noTextMarker {
			text = ""
		}
		Report(obs, "done", 1)
		return Result{Text: text, Language: language, Engine: o.Name(), Duration: time.Since(start)}, nil
	}

	return Result{}, fmt.Errorf("failed after %d attempts: %w", maxRetries, lastErr)
}

func (o *OpenRouter) do(ctx context.Context, request chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	o.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	var response chatResponse
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

// Ping verifies the API key against the key endpoint.
func (o *OpenRouter) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.cfg.BaseURL+"/key", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	o.setHeaders(req)

	resp, err := o.client.Do(req)
	if err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned status %d", resp.StatusCode)
	}
	return nil
}

func (o *OpenRouter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	req.Header.Set("X-Title", "Clipboard OCR")
}

// cleanExtractedText strips a trailing </image> artifact some models emit.
func cleanExtractedText(text string) string {
	return strings.TrimSuffix(text, "</image>")
}
