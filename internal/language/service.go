// Package language provides language detection and translation for user
// messages. Detection feeds the session's preferred language; both
// operations are best-effort and callers degrade to English on failure.
package language

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultLanguage is used whenever detection fails or input is empty.
const DefaultLanguage = "en"

// Service detects the language of free text and translates replies.
type Service interface {
	// Detect returns an ISO 639-1 language code for text.
	Detect(ctx context.Context, text string) (string, error)

	// Translate renders text in the target language.
	Translate(ctx context.Context, text, target string) (string, error)
}

// OpenAIClient is the subset of the OpenAI client used here, extracted
// for testability.
type OpenAIClient interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIService implements Service with chat completions.
type OpenAIService struct {
	client OpenAIClient
	model  string
}

// NewOpenAIService creates a Service backed by the OpenAI API.
func NewOpenAIService(apiKey, model string) *OpenAIService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// NewOpenAIServiceWithClient creates a Service with a custom client.
func NewOpenAIServiceWithClient(client OpenAIClient, model string) *OpenAIService {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIService{client: client, model: model}
}

// Detect asks the model for the ISO 639-1 code of text.
func (s *OpenAIService) Detect(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return DefaultLanguage, nil
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: "Reply with only the two-letter ISO 639-1 code of the user's language."},
			{Role: "user", Content: text},
		},
		MaxTokens:   4,
		Temperature: 0,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("language detection: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("language detection: no choices in response")
	}

	code := strings.ToLower(strings.TrimSpace(resp.Choices[0].Message.Content))
	if len(code) != 2 {
		return "", fmt.Errorf("language detection: unexpected code %q", code)
	}
	return code, nil
}

// Translate renders text in the target language.
func (s *OpenAIService) Translate(ctx context.Context, text, target string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if target == "" || target == DefaultLanguage {
		return text, nil
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: "system", Content: "You are a helpful translator."},
			{Role: "user", Content: fmt.Sprintf("Translate the following text to %s:\n\n%s", target, text)},
		},
		MaxTokens: 512,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("translation: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("translation: no choices in response")
	}
	return resp.Choices[0].Message.Content, nil
}

// HeuristicService is an offline detector used when no API key is
// configured and in tests. Translation is a pass-through.
type HeuristicService struct{}

// NewHeuristicService creates the offline detector.
func NewHeuristicService() *HeuristicService {
	return &HeuristicService{}
}

var spanishMarkers = []string{"hola", "gracias", "nombre", "ayuda", "receta", "dolor", "¿", "¡"}

// Detect guesses the language from script ranges and common words.
// Arabic-script text maps to Urdu, the dominant non-Latin script among
// the service's users.
func (h *HeuristicService) Detect(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return DefaultLanguage, nil
	}

	for _, r := range text {
		if unicode.In(r, unicode.Arabic) {
			return "ur", nil
		}
	}

	lower := strings.ToLower(text)
	for _, marker := range spanishMarkers {
		if strings.Contains(lower, marker) {
			return "es", nil
		}
	}

	return DefaultLanguage, nil
}

// Translate returns text unchanged; the offline service cannot translate.
func (h *HeuristicService) Translate(ctx context.Context, text, target string) (string, error) {
	return text, nil
}
