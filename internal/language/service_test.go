package language

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOpenAI struct {
	content string
	err     error
}

func (f *fakeOpenAI) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if f.err != nil {
		return openai.ChatCompletionResponse{}, f.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.content}},
		},
	}, nil
}

func TestOpenAIServiceDetect(t *testing.T) {
	svc := NewOpenAIServiceWithClient(&fakeOpenAI{content: " ES\n"}, "")

	code, err := svc.Detect(context.Background(), "hola, necesito ayuda")
	require.NoError(t, err)
	assert.Equal(t, "es", code)
}

func TestOpenAIServiceDetectEmptyInput(t *testing.T) {
	svc := NewOpenAIServiceWithClient(&fakeOpenAI{err: errors.New("should not be called")}, "")

	code, err := svc.Detect(context.Background(), "   ")
	require.NoError(t, err)
	assert.Equal(t, DefaultLanguage, code)
}

func TestOpenAIServiceDetectFailure(t *testing.T) {
	svc := NewOpenAIServiceWithClient(&fakeOpenAI{err: errors.New("api down")}, "")

	_, err := svc.Detect(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOpenAIServiceDetectGarbageCode(t *testing.T) {
	svc := NewOpenAIServiceWithClient(&fakeOpenAI{content: "I think it is English"}, "")

	_, err := svc.Detect(context.Background(), "hello")
	assert.Error(t, err)
}

func TestOpenAIServiceTranslatePassThroughForEnglish(t *testing.T) {
	svc := NewOpenAIServiceWithClient(&fakeOpenAI{err: errors.New("should not be called")}, "")

	out, err := svc.Translate(context.Background(), "hello", "en")
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestHeuristicServiceDetect(t *testing.T) {
	svc := NewHeuristicService()
	ctx := context.Background()

	tests := []struct {
		text string
		want string
	}{
		{"", "en"},
		{"hello there", "en"},
		{"hola, necesito una receta", "es"},
		{"¿cuál es mi dosis?", "es"},
		{"سلام، مجھے مدد چاہیے", "ur"},
		{"I have burning pain", "en"},
	}

	for _, tt := range tests {
		got, err := svc.Detect(ctx, tt.text)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "text %q", tt.text)
	}
}
