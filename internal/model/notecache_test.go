package model

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T) *NoteCacheModel {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "cache.db")+"?mode=rwc")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m := NewNoteCacheModel(db)
	require.NoError(t, m.Init(context.Background()))
	return m
}

func TestNoteCache_GetMiss(t *testing.T) {
	m := newTestModel(t)

	_, ok, err := m.Get(context.Background(), 1, TextHash("текст"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNoteCache_PutAndGet(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	hash := TextHash("важный факт")

	require.NoError(t, m.Put(ctx, 42, hash, "## Zettel"))

	summary, ok, err := m.Get(ctx, 42, hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "## Zettel", summary)
}

func TestNoteCache_PutOverwrites(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()
	hash := TextHash("текст")

	require.NoError(t, m.Put(ctx, 1, hash, "旧值"))
	require.NoError(t, m.Put(ctx, 1, hash, "新值"))

	summary, ok, err := m.Get(ctx, 1, hash)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "新值", summary)
}

func TestNoteCache_TextChangeInvalidates(t *testing.T) {
	m := newTestModel(t)
	ctx := context.Background()

	require.NoError(t, m.Put(ctx, 1, TextHash("原文"), "summary"))

	_, ok, err := m.Get(ctx, 1, TextHash("修改后的原文"))
	require.NoError(t, err)
	assert.False(t, ok, "文本变化后应视为未命中")
}

func TestTextHash(t *testing.T) {
	assert.Equal(t, TextHash("a"), TextHash("a"))
	assert.NotEqual(t, TextHash("a"), TextHash("b"))
	assert.Len(t, TextHash(""), 64)
}
