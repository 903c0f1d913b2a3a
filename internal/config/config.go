package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	EnvApiId       = "TELEGRAM_API_ID"
	EnvApiHash     = "TELEGRAM_API_HASH"
	EnvSessionName = "TELEGRAM_SESSION_NAME"
	EnvOpenAIKey   = "OPENAI_API_KEY"

	defaultSessionName = "tg2kb_session"
)

type Sock5Proxy struct {
	Host   string `yaml:"Host"`
	Port   int32  `yaml:"Port"`
	Enable bool   `yaml:"Enable"`
}

type TelegramApp struct {
	ApiId       int32  `yaml:"ApiId"`
	ApiHash     string `yaml:"ApiHash"`
	SessionName string `yaml:"SessionName"` // 授权缓存目录名，对应 TELEGRAM_SESSION_NAME
}

type LLM struct {
	BaseURL   string `yaml:"BaseURL"` // 兼容 OpenAI API 的端点
	APIKey    string `yaml:"APIKey"`
	Model     string `yaml:"Model"`     // 如 gpt-4o, deepseek-chat
	MaxTokens int    `yaml:"MaxTokens"` // 单条笔记的输出长度上限
}

type Export struct {
	DataDir string `yaml:"DataDir"` // tdlib 数据目录
	DumpDir string `yaml:"DumpDir"` // 导出文件目录
	Limit   int    `yaml:"Limit"`   // 单次抓取的消息数量上限
}

type Annotate struct {
	OutputDir    string `yaml:"OutputDir"`    // 笔记输出目录
	DisableCache bool   `yaml:"DisableCache"` // 禁用注释缓存
}

type KB struct {
	OutputDir string `yaml:"OutputDir"` // 知识库目录
}

type Watch struct {
	Cron   string `yaml:"Cron"`   // cron 表达式，如 "0 23 * * *"
	ChatId int64  `yaml:"ChatId"` // 定时导出的会话ID
	Limit  int    `yaml:"Limit"`  // 每次运行抓取的消息数量，0 使用 Export.Limit
}

type Config struct {
	Sock5Proxy  Sock5Proxy  `yaml:"Sock5Proxy"`
	TelegramApp TelegramApp `yaml:"TelegramApp"`
	LLM         LLM         `yaml:"LLM"`
	Export      Export      `yaml:"Export"`
	Annotate    Annotate    `yaml:"Annotate"`
	KB          KB          `yaml:"KB"`
	Watch       Watch       `yaml:"Watch"`
}

// Load 加载配置：先读取 yaml 文件（允许不存在），再应用环境变量覆盖和默认值。
// 环境变量优先级高于配置文件。
func Load(filename string) (*Config, error) {
	var c Config

	data, err := os.ReadFile(filename)
	if err == nil {
		if err = yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if err = c.applyEnv(); err != nil {
		return nil, err
	}
	c.applyDefaults()

	return &c, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv(EnvApiId); v != "" {
		id, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("%s 必须是数字: %w", EnvApiId, err)
		}
		c.TelegramApp.ApiId = int32(id)
	}
	if v := os.Getenv(EnvApiHash); v != "" {
		c.TelegramApp.ApiHash = v
	}
	if v := os.Getenv(EnvSessionName); v != "" {
		c.TelegramApp.SessionName = v
	}
	if v := os.Getenv(EnvOpenAIKey); v != "" {
		c.LLM.APIKey = v
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.TelegramApp.SessionName == "" {
		c.TelegramApp.SessionName = defaultSessionName
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "gpt-4o"
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 200
	}
	if c.Export.DataDir == "" {
		c.Export.DataDir = "data"
	}
	if c.Export.DumpDir == "" {
		c.Export.DumpDir = "examples"
	}
	if c.Export.Limit <= 0 {
		c.Export.Limit = 100
	}
	if c.Annotate.OutputDir == "" {
		c.Annotate.OutputDir = "outputs"
	}
	if c.KB.OutputDir == "" {
		c.KB.OutputDir = "kb"
	}
	if c.Watch.Limit <= 0 {
		c.Watch.Limit = c.Export.Limit
	}
}

// ValidateTelegram 验证抓取阶段所需配置
func (c *Config) ValidateTelegram() error {
	if c.TelegramApp.ApiId == 0 {
		return fmt.Errorf("缺少 Telegram 凭据: 请设置 TelegramApp.ApiId 或 %s", EnvApiId)
	}
	if c.TelegramApp.ApiHash == "" {
		return fmt.Errorf("缺少 Telegram 凭据: 请设置 TelegramApp.ApiHash 或 %s", EnvApiHash)
	}
	if c.Export.Limit <= 0 {
		return fmt.Errorf("Export.Limit 必须大于 0")
	}
	return nil
}

// ValidateLLM 验证注释阶段所需配置
func (c *Config) ValidateLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("缺少 LLM 凭据: 请设置 LLM.APIKey 或 %s", EnvOpenAIKey)
	}
	if c.LLM.BaseURL == "" {
		return fmt.Errorf("LLM.BaseURL 不能为空")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("LLM.Model 不能为空")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("LLM.MaxTokens 必须大于 0")
	}
	return nil
}

// ValidateWatch 验证定时模式所需配置
func (c *Config) ValidateWatch() error {
	if c.Watch.Cron == "" {
		return fmt.Errorf("Watch.Cron 不能为空")
	}
	if c.Watch.ChatId == 0 {
		return fmt.Errorf("Watch.ChatId 不能为空（定时模式无法交互选择会话）")
	}
	if c.Watch.Limit <= 0 {
		return fmt.Errorf("Watch.Limit 必须大于 0")
	}
	return nil
}
