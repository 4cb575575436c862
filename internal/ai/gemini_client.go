package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// GeminiCategorizer implements Categorizer using the official Google
// Gemini SDK.
type GeminiCategorizer struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
	retry   RetryConfig
	log     *logrus.Logger
}

// NewGeminiCategorizer creates a new Gemini-backed categorizer.
func NewGeminiCategorizer(ctx context.Context, apiKey, modelName string, timeout time.Duration, retry RetryConfig, log *logrus.Logger) (*GeminiCategorizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	if log == nil {
		log = logrus.New()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	model := client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"

	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &GeminiCategorizer{
		client:  client,
		model:   model,
		timeout: timeout,
		retry:   retry,
		log:     log,
	}, nil
}

// Close closes the client connection
func (c *GeminiCategorizer) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

// SuggestCategory asks the model for a category proposal. Transient
// failures are retried with exponential backoff; the call as a whole is
// bounded by the configured timeout per attempt. The caller applies the
// confidence gate and the valid-category check.
func (c *GeminiCategorizer) SuggestCategory(ctx context.Context, req Request) (*Suggestion, error) {
	prompt := buildCategoryPrompt(req)

	var lastErr error
	delay := c.retry.InitialDelay

	for attempt := 0; attempt <= c.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			c.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"max":     c.retry.MaxRetries,
				"delay":   delay,
			}).Debug("Retrying AI categorization")
			select {
			case <-ctx.Done():
				return nil, &ServiceError{Err: ctx.Err(), Transient: false}
			case <-time.After(delay):
			}
			delay = time.Duration(float64(delay) * c.retry.BackoffMultiplier)
			if delay > c.retry.MaxDelay {
				delay = c.retry.MaxDelay
			}
		}

		suggestion, err := c.generate(ctx, prompt)
		if err == nil {
			return suggestion, nil
		}
		lastErr = err

		var svcErr *ServiceError
		if !errors.As(err, &svcErr) || !svcErr.Transient {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *GeminiCategorizer) generate(ctx context.Context, prompt string) (*Suggestion, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.model.GenerateContent(attemptCtx, genai.Text(prompt))
	if err != nil {
		return nil, &ServiceError{Err: err, Transient: isTransient(err)}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, &ServiceError{Err: fmt.Errorf("empty response from gemini"), Transient: true}
	}

	var fullText string
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			fullText += string(txt)
		}
	}

	suggestion, err := parseSuggestion(fullText)
	if err != nil {
		// Malformed payloads are not retried; the model is unlikely to
		// change its mind about the same prompt.
		return nil, &ServiceError{Err: err, Transient: false}
	}
	return suggestion, nil
}

// parseSuggestion decodes the model response, tolerating markdown code
// fences around the JSON body and a null category.
func parseSuggestion(text string) (*Suggestion, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var raw struct {
		Category   *string `json:"category"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("malformed categorization response %q: %w", text, err)
	}
	if raw.Confidence < 0 || raw.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range", raw.Confidence)
	}

	s := &Suggestion{Confidence: raw.Confidence}
	if raw.Category != nil {
		s.Category = strings.TrimSpace(*raw.Category)
	}
	return s, nil
}

// isTransient reports whether the error is a rate limit, server-side or
// network condition that a later retry could clear.
func isTransient(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case 429, 500, 502, 503, 504:
			return true
		}
		return false
	}

	var nerr net.Error
	if errors.As(err, &nerr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
