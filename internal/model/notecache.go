package model

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// NoteCacheModel 注释结果缓存，避免对同一条消息重复调用 LLM。
// 以 (message_id, text_hash) 为键：消息文本变化后缓存自动失效。
type NoteCacheModel struct {
	db *sql.DB
}

const noteCacheSchema = `
CREATE TABLE IF NOT EXISTS note_cache (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	text_hash TEXT NOT NULL,
	summary TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE(message_id, text_hash)
);`

func NewNoteCacheModel(db *sql.DB) *NoteCacheModel {
	return &NoteCacheModel{db: db}
}

// Init 初始化表结构
func (m *NoteCacheModel) Init(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, noteCacheSchema)
	return err
}

// Get 查询缓存，未命中时 ok 为 false
func (m *NoteCacheModel) Get(ctx context.Context, messageID int64, textHash string) (summary string, ok bool, err error) {
	row := m.db.QueryRowContext(ctx,
		`SELECT summary FROM note_cache WHERE message_id = ? AND text_hash = ?`,
		messageID, textHash)
	if err = row.Scan(&summary); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return summary, true, nil
}

// Put 写入缓存，键冲突时覆盖旧值
func (m *NoteCacheModel) Put(ctx context.Context, messageID int64, textHash, summary string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT INTO note_cache (message_id, text_hash, summary, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(message_id, text_hash) DO UPDATE SET summary = excluded.summary`,
		messageID, textHash, summary, time.Now().UTC())
	return err
}

// TextHash 计算消息文本的缓存键
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
