package svc

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fachebot/tg2kb/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceContext_CreatesDataDir(t *testing.T) {
	// annotate 流程可能在 export 之前运行，数据目录此时尚不存在
	dataDir := filepath.Join(t.TempDir(), "nested", "data")
	c := &config.Config{
		LLM:    config.LLM{BaseURL: "http://127.0.0.1/v1", Model: "test", MaxTokens: 10},
		Export: config.Export{DataDir: dataDir},
	}

	svcCtx := NewServiceContext(c)
	defer svcCtx.Close()

	require.NotNil(t, svcCtx.NoteCacheModel)
	_, err := os.Stat(filepath.Join(dataDir, "cache.db"))
	assert.NoError(t, err)
}

func TestNewServiceContext_DisableCache(t *testing.T) {
	c := &config.Config{
		LLM:      config.LLM{BaseURL: "http://127.0.0.1/v1", Model: "test", MaxTokens: 10},
		Export:   config.Export{DataDir: filepath.Join(t.TempDir(), "data")},
		Annotate: config.Annotate{DisableCache: true},
	}

	svcCtx := NewServiceContext(c)
	defer svcCtx.Close()

	assert.Nil(t, svcCtx.NoteCacheModel)
	assert.Nil(t, svcCtx.DbClient)
	assert.NotNil(t, svcCtx.LLMClient)
}
