package dump

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/fachebot/tg2kb/internal/logger"
)

// Message 一条从 Telegram 导出的消息
type Message struct {
	ID        int64   `json:"id"`
	Type      string  `json:"type"`
	Date      string  `json:"date"` // ISO-8601
	From      string  `json:"from"`
	Text      string  `json:"text"`
	MediaType *string `json:"media_type"`
	MediaURL  *string `json:"media_url"`
}

// Dump 一次导出的快照：元数据 + 消息序列（按抓取顺序，最新在前）
type Dump struct {
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	ExportDate   string    `json:"export_date"`
	MessageCount int       `json:"message_count"`
	Messages     []Message `json:"messages"`
}

// New 创建导出快照，message_count 恒等于消息数量
func New(name string, messages []Message) *Dump {
	return &Dump{
		Name:         name,
		Type:         "channel",
		ExportDate:   time.Now().UTC().Format(time.RFC3339),
		MessageCount: len(messages),
		Messages:     messages,
	}
}

// Save 将快照写入 JSON 文件，自动创建父目录，覆盖已有文件。
// 写入失败只记录日志，不向调用方返回错误。
func Save(d *Dump, path string) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Errorf("[Dump] 创建目录失败: %v", err)
			return
		}
	}

	file, err := os.Create(path)
	if err != nil {
		logger.Errorf("[Dump] 创建文件失败: %v", err)
		return
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(d); err != nil {
		logger.Errorf("[Dump] 写入文件失败: %v", err)
		return
	}

	logger.Infof("[Dump] 已导出 %d 条消息到 %s", d.MessageCount, path)
}

// Load 读取快照文件，返回 messages 序列。
// 文件不含 messages 键时返回空序列；JSON 格式错误直接返回错误。
func Load(path string) ([]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var d Dump
	if err = json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("解析导出文件失败: %w", err)
	}
	return d.Messages, nil
}

// Filename 根据会话标题生成导出文件路径，如 examples/raw_dump_my_channel.json
func Filename(dir, title string) string {
	return filepath.Join(dir, fmt.Sprintf("raw_dump_%s.json", sanitizeName(title)))
}

// sanitizeName 将会话标题转为文件名安全的形式
func sanitizeName(title string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore && sb.Len() > 0 {
				sb.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	name := strings.TrimSuffix(sb.String(), "_")
	if name == "" {
		name = "channel"
	}
	return name
}
