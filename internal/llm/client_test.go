package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/fachebot/tg2kb/internal/dump"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// mockOpenAIClient 模拟 OpenAI 客户端
type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(openai.ChatCompletionResponse), args.Error(1)
}

// newTestClient 创建用于测试的客户端，注入 mock
func newTestClient(mockClient openAIClientInterface) *Client {
	return &Client{
		config:       &config.LLM{Model: "test", MaxTokens: 200},
		openaiClient: mockClient,
	}
}

func completionResponse(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

func TestBuildPrompt(t *testing.T) {
	msg := dump.Message{ID: 42, Date: "2025-06-01T10:00:00Z", Text: `он сказал "привет"`}
	prompt := buildPrompt(msg)

	assert.Contains(t, prompt, "ID: 42")
	assert.Contains(t, prompt, "Дата: 2025-06-01T10:00:00Z")
	assert.Contains(t, prompt, `он сказал "привет"`, "文本应原样嵌入")
	assert.Contains(t, prompt, "Zettelkasten")
}

func TestAnnotate_Success(t *testing.T) {
	note := "---\n## Zettel: 2025-06-01-42\n### Название: Тест\n**Теги**: #тест\n\nСодержание.\n---"
	mockAPI := new(mockOpenAIClient)
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatCompletionRequest) bool {
		return req.Model == "test" && req.MaxTokens == 200
	})).Return(completionResponse("  "+note+"\n"), nil)

	client := newTestClient(mockAPI)
	result := client.Annotate(context.Background(), dump.Message{ID: 42, Date: "2025-06-01", Text: "важный факт"})

	mockAPI.AssertExpectations(t)
	assert.Equal(t, int64(42), result.ID)
	assert.Equal(t, StatusOK, result.Status)
	assert.Equal(t, note, result.Summary, "应去除首尾空白")
}

func TestAnnotate_SkipSentinel(t *testing.T) {
	mockAPI := new(mockOpenAIClient)
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(completionResponse("SKIP\n"), nil)

	client := newTestClient(mockAPI)
	result := client.Annotate(context.Background(), dump.Message{ID: 2, Text: "ok"})

	assert.Equal(t, StatusSkip, result.Status)
	assert.Equal(t, "SKIP", result.Summary, "SKIP 标记应原样透传")
}

func TestAnnotate_APIError(t *testing.T) {
	mockAPI := new(mockOpenAIClient)
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{}, errors.New("rate limit exceeded"))

	client := newTestClient(mockAPI)
	result := client.Annotate(context.Background(), dump.Message{ID: 7, Text: "текст"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, IsErrorSummary(result.Summary))
	assert.Contains(t, result.Summary, "rate limit exceeded")
}

func TestAnnotate_EmptyResponse(t *testing.T) {
	mockAPI := new(mockOpenAIClient)
	mockAPI.On("CreateChatCompletion", mock.Anything, mock.Anything).
		Return(openai.ChatCompletionResponse{Choices: nil}, nil)

	client := newTestClient(mockAPI)
	result := client.Annotate(context.Background(), dump.Message{ID: 7, Text: "текст"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, IsErrorSummary(result.Summary))
}

func TestFromSummary(t *testing.T) {
	tests := []struct {
		name    string
		summary string
		want    Status
	}{
		{"正常笔记", "## Zettel: ...", StatusOK},
		{"SKIP标记", "SKIP", StatusSkip},
		{"错误标记", "[OpenAI error: timeout]", StatusFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromSummary(1, tt.summary)
			assert.Equal(t, tt.want, result.Status)
			assert.Equal(t, tt.summary, result.Summary)
		})
	}
}

func TestIsErrorSummary(t *testing.T) {
	assert.True(t, IsErrorSummary("[OpenAI error: boom]"))
	assert.False(t, IsErrorSummary("SKIP"))
	assert.False(t, IsErrorSummary("обычная заметка"))
}
