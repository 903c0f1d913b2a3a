package processor

import (
	"context"

	"github.com/fachebot/tg2kb/internal/dump"
	"github.com/fachebot/tg2kb/internal/llm"
	"github.com/fachebot/tg2kb/internal/logger"
	"github.com/fachebot/tg2kb/internal/model"
)

// annotator 单条消息注释（便于测试注入 mock）
type annotator interface {
	Annotate(ctx context.Context, msg dump.Message) llm.Result
}

// noteCache 注释结果缓存（便于测试注入 mock）
type noteCache interface {
	Get(ctx context.Context, messageID int64, textHash string) (string, bool, error)
	Put(ctx context.Context, messageID int64, textHash, summary string) error
}

type Processor struct {
	annotator annotator
	cache     noteCache
}

// NewProcessor 创建批处理器，cache 为 nil 时禁用缓存
func NewProcessor(client *llm.Client, cache *model.NoteCacheModel) *Processor {
	p := &Processor{annotator: client}
	if cache != nil {
		p.cache = cache
	}
	return p
}

// ProcessDump 按输入顺序逐条注释消息。
// 空文本消息直接跳过且不产出结果；单条失败不中断循环；每完成一条上报进度。
func (p *Processor) ProcessDump(ctx context.Context, messages []dump.Message) []llm.Result {
	total := 0
	for _, msg := range messages {
		if msg.Text != "" {
			total++
		}
	}

	results := make([]llm.Result, 0, total)
	done := 0
	for _, msg := range messages {
		if msg.Text == "" {
			continue
		}
		done++

		result := p.annotateOne(ctx, msg)
		results = append(results, result)

		if result.Status == llm.StatusFailed {
			logger.Warnf("[Processor] [%d/%d] 消息 %d 注释失败: %s", done, total, msg.ID, result.Summary)
		} else {
			logger.Infof("[Processor] [%d/%d] 完成", done, total)
		}
	}

	return results
}

// annotateOne 注释一条消息，优先使用缓存，失败的结果不写入缓存
func (p *Processor) annotateOne(ctx context.Context, msg dump.Message) llm.Result {
	var hash string
	if p.cache != nil {
		hash = model.TextHash(msg.Text)
		summary, ok, err := p.cache.Get(ctx, msg.ID, hash)
		if err != nil {
			logger.Warnf("[Processor] 查询缓存失败, 消息 %d: %v", msg.ID, err)
		} else if ok {
			logger.Debugf("[Processor] 缓存命中, 消息 %d", msg.ID)
			return llm.FromSummary(msg.ID, summary)
		}
	}

	result := p.annotator.Annotate(ctx, msg)

	if p.cache != nil && result.Status != llm.StatusFailed {
		if err := p.cache.Put(ctx, msg.ID, hash, result.Summary); err != nil {
			logger.Warnf("[Processor] 写入缓存失败, 消息 %d: %v", msg.ID, err)
		}
	}
	return result
}
