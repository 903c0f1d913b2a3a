package svc

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/fachebot/tg2kb/internal/llm"
	"github.com/fachebot/tg2kb/internal/logger"
	"github.com/fachebot/tg2kb/internal/model"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/net/proxy"
)

type ServiceContext struct {
	Config         *config.Config
	DbClient       *sql.DB
	TransportProxy *http.Transport
	NoteCacheModel *model.NoteCacheModel // 缓存禁用时为 nil
	LLMClient      *llm.Client
}

func NewServiceContext(c *config.Config) *ServiceContext {
	// 创建SOCKS5代理
	var transportProxy *http.Transport
	if c.Sock5Proxy.Enable {
		socks5Proxy := fmt.Sprintf("%s:%d", c.Sock5Proxy.Host, c.Sock5Proxy.Port)
		dialer, err := proxy.SOCKS5("tcp", socks5Proxy, nil, proxy.Direct)
		if err != nil {
			logger.Fatalf("创建SOCKS5代理失败, %v", err)
		}

		transportProxy = &http.Transport{
			Dial:            dialer.Dial,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	// 创建注释缓存
	var dbClient *sql.DB
	var cacheModel *model.NoteCacheModel
	if !c.Annotate.DisableCache {
		if err := os.MkdirAll(c.Export.DataDir, 0755); err != nil {
			logger.Fatalf("创建数据目录失败, %v", err)
		}

		dbPath := filepath.Join(c.Export.DataDir, "cache.db")
		db, err := sql.Open("sqlite3", "file:"+dbPath+"?mode=rwc&_journal_mode=WAL")
		if err != nil {
			logger.Fatalf("打开数据库失败, %v", err)
		}
		cacheModel = model.NewNoteCacheModel(db)
		if err := cacheModel.Init(context.Background()); err != nil {
			logger.Fatalf("创建数据库Schema失败, %v", err)
		}
		dbClient = db
	}

	return &ServiceContext{
		Config:         c,
		DbClient:       dbClient,
		TransportProxy: transportProxy,
		NoteCacheModel: cacheModel,
		LLMClient:      llm.NewClient(&c.LLM, transportProxy),
	}
}

func (svcCtx *ServiceContext) Close() {
	if svcCtx.DbClient == nil {
		return
	}
	if err := svcCtx.DbClient.Close(); err != nil {
		logger.Errorf("关闭数据库失败, %v", err)
	}
}
