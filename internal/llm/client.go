package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/fachebot/tg2kb/internal/dump"
	"github.com/sashabaranov/go-openai"
)

// SkipSentinel 模型判定消息无信息量时返回的标记，原样透传
const SkipSentinel = "SKIP"

// errSummaryPrefix 调用失败时写入 summary 的错误标记前缀
const errSummaryPrefix = "[OpenAI error:"

// Status 单条注释的结果状态
type Status string

const (
	StatusOK     Status = "ok"     // 生成了结构化笔记
	StatusSkip   Status = "skip"   // 模型返回 SKIP 标记
	StatusFailed Status = "failed" // 调用失败，summary 内嵌错误描述
)

// Result 一条消息的注释结果
type Result struct {
	ID      int64
	Status  Status
	Summary string
}

// annotatePrompt Zettelkasten 笔记提示词，嵌入消息的 ID、日期和文本
const annotatePrompt = `Преврати следующий пост из Telegram в Zettelkasten-заметку, только если он информативный (то есть содержит идею, действие или факт). Если он слишком короткий, водянистый или бессмысленный — верни просто ` + "`SKIP`" + `.

Используй формат вывода:

---
## Zettel: {{гггг-мм-дд}}-{{id}}
### Название: {{1–2 слова, отражающие суть}}
**Теги**: #тег1 #тег2
**Дата**: {{дата поста}}
**Источник**: ID {{id}}

{{Краткое содержание на 1–3 предложения. Без воды.}}
---

Пост:
ID: %d
Дата: %s
Текст: "%s"
`

// openAIClientInterface 定义 OpenAI 客户端接口，便于测试
type openAIClientInterface interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Client struct {
	config       *config.LLM
	openaiClient openAIClientInterface
}

// NewClient 创建注释客户端，transport 不为空时作为 HTTP 传输层（SOCKS5 代理）
func NewClient(cfg *config.LLM, transport *http.Transport) *Client {
	openaiConfig := openai.DefaultConfig(cfg.APIKey)
	openaiConfig.BaseURL = cfg.BaseURL
	if transport != nil {
		openaiConfig.HTTPClient = &http.Client{Transport: transport}
	}

	return &Client{
		config:       cfg,
		openaiClient: openai.NewClientWithConfig(openaiConfig),
	}
}

// buildPrompt 构造单条消息的提示词，消息文本原样嵌入
func buildPrompt(msg dump.Message) string {
	return fmt.Sprintf(annotatePrompt, msg.ID, msg.Date, msg.Text)
}

// Annotate 将一条消息提交给 LLM 生成笔记。
// 调用失败不返回错误，而是产出 failed 状态的结果，summary 内嵌错误描述，
// 保证批处理循环不会因单条失败而中断。
func (c *Client) Annotate(ctx context.Context, msg dump.Message) Result {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.config.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(msg)},
		},
		MaxTokens: c.config.MaxTokens,
	}

	resp, err := c.openaiClient.CreateChatCompletion(ctx, req)
	if err != nil {
		return Result{ID: msg.ID, Status: StatusFailed, Summary: fmt.Sprintf("%s %v]", errSummaryPrefix, err)}
	}
	if len(resp.Choices) == 0 {
		return Result{ID: msg.ID, Status: StatusFailed, Summary: fmt.Sprintf("%s 返回空结果]", errSummaryPrefix)}
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == SkipSentinel {
		return Result{ID: msg.ID, Status: StatusSkip, Summary: content}
	}
	return Result{ID: msg.ID, Status: StatusOK, Summary: content}
}

// FromSummary 根据已保存的 summary 还原结果状态（用于缓存命中）
func FromSummary(id int64, summary string) Result {
	switch {
	case summary == SkipSentinel:
		return Result{ID: id, Status: StatusSkip, Summary: summary}
	case IsErrorSummary(summary):
		return Result{ID: id, Status: StatusFailed, Summary: summary}
	default:
		return Result{ID: id, Status: StatusOK, Summary: summary}
	}
}

// IsErrorSummary 判断 summary 是否为内嵌错误标记
func IsErrorSummary(summary string) bool {
	return strings.HasPrefix(summary, errSummaryPrefix)
}
