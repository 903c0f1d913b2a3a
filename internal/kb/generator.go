package kb

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fachebot/tg2kb/internal/llm"
	"github.com/fachebot/tg2kb/internal/logger"
	"github.com/fachebot/tg2kb/internal/processor"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

const (
	titlePrefix = "### Название:"
	tagsPrefix  = "**Теги**:"
)

// IndexEntry 知识库索引中的一条记录
type IndexEntry struct {
	ID    int64    `json:"id"`
	File  string   `json:"file"`
	Title string   `json:"title"`
	Tags  []string `json:"tags"`
}

type Generator struct {
	outputDir string
	markdown  goldmark.Markdown
}

func NewGenerator(outputDir string) *Generator {
	return &Generator{
		outputDir: outputDir,
		markdown:  goldmark.New(),
	}
}

// Generate 将注释结果转换为 Markdown 知识库：
// 每条有效笔记写入一个 <id>.md 文件，SKIP、错误和结构不完整的条目被跳过，
// 最后生成 index.json 索引。
func (g *Generator) Generate(notes []processor.Note) ([]IndexEntry, error) {
	if err := os.MkdirAll(g.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("创建知识库目录失败: %w", err)
	}

	entries := make([]IndexEntry, 0, len(notes))
	for _, note := range notes {
		if note.Summary == llm.SkipSentinel {
			logger.Debugf("[KB] 消息 %d 被标记为 SKIP，跳过", note.ID)
			continue
		}
		if llm.IsErrorSummary(note.Summary) {
			logger.Warnf("[KB] 消息 %d 的笔记是错误标记，跳过: %s", note.ID, note.Summary)
			continue
		}
		if !g.hasHeading(note.Summary) {
			logger.Warnf("[KB] 消息 %d 的笔记缺少标题结构，跳过", note.ID)
			continue
		}

		filename := fmt.Sprintf("%d.md", note.ID)
		path := filepath.Join(g.outputDir, filename)
		content := strings.TrimSpace(note.Summary) + "\n"
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("写入笔记 %s 失败: %w", filename, err)
		}

		entries = append(entries, IndexEntry{
			ID:    note.ID,
			File:  filename,
			Title: g.parseTitle(note.Summary),
			Tags:  parseTags(note.Summary),
		})
	}

	if err := g.writeIndex(entries); err != nil {
		return nil, err
	}

	logger.Infof("[KB] 已生成 %d 条笔记到 %s", len(entries), g.outputDir)
	return entries, nil
}

// hasHeading 检查笔记是否包含至少一个 ATX 标题
func (g *Generator) hasHeading(md string) bool {
	source := []byte(md)
	doc := g.markdown.Parser().Parse(text.NewReader(source))

	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if _, ok := n.(*ast.Heading); ok && entering {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return found
}

// parseTitle 提取笔记标题：优先使用 "### Название:" 行，否则取第一个标题的文本
func (g *Generator) parseTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, titlePrefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, titlePrefix))
		}
	}

	source := []byte(md)
	doc := g.markdown.Parser().Parse(text.NewReader(source))
	title := ""
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if h, ok := n.(*ast.Heading); ok && entering {
			title = string(h.Text(source))
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return title
}

// parseTags 提取 "**Теги**:" 行中的 #标签 列表
func parseTags(md string) []string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, tagsPrefix) {
			continue
		}

		var tags []string
		for _, field := range strings.Fields(strings.TrimPrefix(line, tagsPrefix)) {
			if tag := strings.TrimPrefix(field, "#"); tag != field && tag != "" {
				tags = append(tags, tag)
			}
		}
		return tags
	}
	return nil
}

// writeIndex 生成 index.json
func (g *Generator) writeIndex(entries []IndexEntry) error {
	file, err := os.Create(filepath.Join(g.outputDir, "index.json"))
	if err != nil {
		return fmt.Errorf("创建索引文件失败: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(entries); err != nil {
		return fmt.Errorf("写入索引文件失败: %w", err)
	}
	return nil
}
