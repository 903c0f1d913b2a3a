//go:build linux
// +build linux

package main

import (
	"os"

	"github.com/fachebot/tg2kb/internal/logger"

	"github.com/urfave/cli/v2"
)

func newApp() *cli.App {
	return &cli.App{
		Name:  "tg2kb",
		Usage: "将 Telegram 频道消息转换为 Markdown 知识库",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"f"},
				Value:   "etc/config.yaml",
				Usage:   "配置文件路径",
			},
		},
		Commands: []*cli.Command{
			channelsCommand(),
			exportCommand(),
			annotateCommand(),
			generateCommand(),
			runCommand(),
			watchCommand(),
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		logger.Fatalf("%s", err)
	}
}
