//go:build linux
// +build linux

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/fachebot/tg2kb/internal/dump"
	"github.com/fachebot/tg2kb/internal/kb"
	"github.com/fachebot/tg2kb/internal/logger"
	"github.com/fachebot/tg2kb/internal/processor"
	"github.com/fachebot/tg2kb/internal/scheduler"
	"github.com/fachebot/tg2kb/internal/selector"
	"github.com/fachebot/tg2kb/internal/svc"
	"github.com/fachebot/tg2kb/internal/teleapp"

	"github.com/urfave/cli/v2"
	"github.com/zelenin/go-tdlib/client"
)

func loadConfig(cCtx *cli.Context) (*config.Config, error) {
	return config.Load(cCtx.String("config"))
}

// newTeleApp 校验凭据、创建数据目录并完成登录
func newTeleApp(c *config.Config) (*teleapp.TeleApp, error) {
	if err := c.ValidateTelegram(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.Export.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}

	options := make([]client.Option, 0)
	if c.Sock5Proxy.Enable {
		options = append(options, client.WithProxy(&client.AddProxyRequest{
			Server: c.Sock5Proxy.Host,
			Port:   c.Sock5Proxy.Port,
			Enable: c.Sock5Proxy.Enable,
			Type:   &client.ProxyTypeSocks5{},
		}))
	}

	app := teleapp.NewApp(c.TelegramApp.ApiId, c.TelegramApp.ApiHash, c.Export.DataDir, c.TelegramApp.SessionName)
	user, err := app.Login(options...)
	if err != nil {
		return nil, fmt.Errorf("用户登录失败: %w", err)
	}
	logger.Infof("[TeleApp] 用户 <%s %s>(%d) 登录成功", user.FirstName, user.LastName, user.Id)
	return app, nil
}

// closeTeleApp 断开连接，失败只在调试日志中记录
func closeTeleApp(app *teleapp.TeleApp) {
	if err := app.Close(); err != nil {
		logger.Debugf("[TeleApp] 关闭失败, %v", err)
	}
}

// chooseConversation 确定导出目标会话：指定了 chatID 时直接使用，否则交互选择
func chooseConversation(app *teleapp.TeleApp, chatID int64) (teleapp.Conversation, bool) {
	conversations := app.ListConversations()

	if chatID != 0 {
		for _, conv := range conversations {
			if conv.ChatID == chatID {
				return conv, true
			}
		}
		// 列表获取失败或不含该会话时，退化为用ID命名
		return teleapp.Conversation{ChatID: chatID, Title: fmt.Sprintf("chat_%d", chatID)}, true
	}

	if len(conversations) == 0 {
		logger.Warnf("未找到任何频道或群组会话")
		return teleapp.Conversation{}, false
	}

	fmt.Println("\n可用会话:")
	for i, conv := range conversations {
		fmt.Printf("%d. %s [%s, %d 成员]\n", i+1, conv.Title, conv.Kind, conv.MemberCount)
	}
	index, err := selector.Prompt(os.Stdin, os.Stdout, "请选择会话", len(conversations))
	if err != nil {
		logger.Errorf("读取选择失败: %v", err)
		return teleapp.Conversation{}, false
	}
	return conversations[index], true
}

// chooseJSONFile 从目录中选择一个 JSON 文件：dir 下没有文件时返回 false
func chooseJSONFile(dir string) (string, bool) {
	files, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(files) == 0 {
		logger.Warnf("目录 %s 下没有 JSON 文件", dir)
		return "", false
	}
	sort.Strings(files)

	fmt.Println("\n可用文件:")
	for i, file := range files {
		fmt.Printf("%d. %s\n", i+1, filepath.Base(file))
	}
	index, err := selector.Prompt(os.Stdin, os.Stdout, "请选择文件", len(files))
	if err != nil {
		logger.Errorf("读取选择失败: %v", err)
		return "", false
	}
	return files[index], true
}

// doExport 抓取消息并写入导出文件，返回文件路径；没有抓到消息时返回空串
func doExport(c *config.Config, app *teleapp.TeleApp, conv teleapp.Conversation, limit int) string {
	messages := app.FetchMessages(conv.ChatID, limit)
	if len(messages) == 0 {
		logger.Warnf("未抓取到任何消息, 会话: %s", conv.Title)
		return ""
	}

	d := dump.New(conv.Title, messages)
	path := dump.Filename(c.Export.DumpDir, conv.Title)
	dump.Save(d, path)
	return path
}

// doAnnotate 读取导出文件、逐条注释并写出笔记文件，返回笔记文件路径
func doAnnotate(ctx context.Context, c *config.Config, svcCtx *svc.ServiceContext, dumpPath string) (string, error) {
	messages, err := dump.Load(dumpPath)
	if err != nil {
		return "", err
	}
	if len(messages) == 0 {
		logger.Warnf("文件 %s 中没有消息", dumpPath)
		return "", nil
	}

	logger.Infof("开始处理 %d 条消息, 模型: %s", len(messages), c.LLM.Model)
	p := processor.NewProcessor(svcCtx.LLMClient, svcCtx.NoteCacheModel)
	results := p.ProcessDump(ctx, messages)

	outPath := processor.OutputFilename(dumpPath, c.Annotate.OutputDir)
	if err = processor.SaveNotes(results, outPath); err != nil {
		return "", fmt.Errorf("保存笔记失败: %w", err)
	}
	logger.Infof("所有笔记已保存到 %s", outPath)
	return outPath, nil
}

// doGenerate 从笔记文件生成 Markdown 知识库
func doGenerate(c *config.Config, notesPath string) error {
	notes, err := processor.LoadNotes(notesPath)
	if err != nil {
		return fmt.Errorf("读取笔记文件失败: %w", err)
	}

	_, err = kb.NewGenerator(c.KB.OutputDir).Generate(notes)
	return err
}

func channelsCommand() *cli.Command {
	return &cli.Command{
		Name:  "channels",
		Usage: "列出当前账号可见的频道和群组",
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}

			app, err := newTeleApp(c)
			if err != nil {
				return err
			}
			defer closeTeleApp(app)

			conversations := app.ListConversations()
			if len(conversations) == 0 {
				logger.Warnf("未找到任何频道或群组会话")
				return nil
			}
			for i, conv := range conversations {
				fmt.Printf("%d. %s [id: %d, %s, %d 成员]\n", i+1, conv.Title, conv.ChatID, conv.Kind, conv.MemberCount)
			}
			return nil
		},
	}
}

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "从一个会话抓取消息并写入导出文件",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "chat", Usage: "会话ID，不指定则交互选择"},
			&cli.IntFlag{Name: "limit", Usage: "抓取的消息数量上限，默认取配置"},
		},
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}
			limit := cCtx.Int("limit")
			if limit <= 0 {
				limit = c.Export.Limit
			}

			app, err := newTeleApp(c)
			if err != nil {
				return err
			}
			defer closeTeleApp(app)

			conv, ok := chooseConversation(app, cCtx.Int64("chat"))
			if !ok {
				return nil
			}
			doExport(c, app, conv, limit)
			return nil
		},
	}
}

func annotateCommand() *cli.Command {
	return &cli.Command{
		Name:  "annotate",
		Usage: "将导出文件中的消息逐条转换为 Zettelkasten 笔记",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Usage: "导出文件路径，不指定则交互选择"},
		},
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}
			if err = c.ValidateLLM(); err != nil {
				return err
			}

			path := cCtx.String("file")
			if path == "" {
				var ok bool
				if path, ok = chooseJSONFile(c.Export.DumpDir); !ok {
					return nil
				}
			}

			svcCtx := svc.NewServiceContext(c)
			defer svcCtx.Close()

			_, err = doAnnotate(context.Background(), c, svcCtx, path)
			return err
		},
	}
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "从笔记文件生成 Markdown 知识库",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "notes", Usage: "笔记文件路径，不指定则交互选择"},
		},
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}

			path := cCtx.String("notes")
			if path == "" {
				var ok bool
				if path, ok = chooseJSONFile(c.Annotate.OutputDir); !ok {
					return nil
				}
			}
			return doGenerate(c, path)
		},
	}
}

func runCommand() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "依次执行导出、注释、生成",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "chat", Usage: "会话ID，不指定则交互选择"},
			&cli.IntFlag{Name: "limit", Usage: "抓取的消息数量上限，默认取配置"},
		},
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}
			if err = c.ValidateLLM(); err != nil {
				return err
			}
			limit := cCtx.Int("limit")
			if limit <= 0 {
				limit = c.Export.Limit
			}

			app, err := newTeleApp(c)
			if err != nil {
				return err
			}
			defer closeTeleApp(app)

			svcCtx := svc.NewServiceContext(c)
			defer svcCtx.Close()

			conv, ok := chooseConversation(app, cCtx.Int64("chat"))
			if !ok {
				return nil
			}
			dumpPath := doExport(c, app, conv, limit)
			if dumpPath == "" {
				return nil
			}

			notesPath, err := doAnnotate(context.Background(), c, svcCtx, dumpPath)
			if err != nil || notesPath == "" {
				return err
			}
			return doGenerate(c, notesPath)
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "按 cron 计划定时执行完整流程",
		Action: func(cCtx *cli.Context) error {
			c, err := loadConfig(cCtx)
			if err != nil {
				return err
			}
			if err = c.ValidateWatch(); err != nil {
				return err
			}
			if err = c.ValidateLLM(); err != nil {
				return err
			}

			app, err := newTeleApp(c)
			if err != nil {
				return err
			}
			defer closeTeleApp(app)

			svcCtx := svc.NewServiceContext(c)
			defer svcCtx.Close()

			conv, _ := chooseConversation(app, c.Watch.ChatId)

			pipeline := func(ctx context.Context) error {
				dumpPath := doExport(c, app, conv, c.Watch.Limit)
				if dumpPath == "" {
					return nil
				}
				notesPath, err := doAnnotate(ctx, c, svcCtx, dumpPath)
				if err != nil || notesPath == "" {
					return err
				}
				return doGenerate(c, notesPath)
			}

			schedulerInstance := scheduler.NewScheduler(pipeline, &c.Watch)
			if err = schedulerInstance.Start(); err != nil {
				return err
			}

			// 等待程序退出
			ch := make(chan os.Signal, 2)
			signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
			<-ch

			logger.Infof("正在关闭服务...")
			schedulerInstance.Stop()
			logger.Infof("服务已停止")
			return nil
		},
	}
}
