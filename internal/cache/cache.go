// Package cache 把合成好的语音 PCM 存在本地 SQLite 中，重复朗读同一段文字时不再请求引擎。
// 只缓存音频，不保存任何播放状态。
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "modernc.org/sqlite"

	"github.com/iabetor/threadreader/internal/audio"
	"github.com/iabetor/threadreader/internal/logger"
)

// DefaultMaxEntries 默认最多保留的条目数。
const DefaultMaxEntries = 500

// Store 是语音缓存。
type Store struct {
	db         *sql.DB
	path       string
	maxEntries int
}

// Open 打开或创建缓存数据库并完成建表。maxEntries <= 0 时使用默认值。
func Open(path string, maxEntries int) (*Store, error) {
	if path == "" {
		return nil, errors.New("缓存路径为空")
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("创建缓存目录失败: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("打开缓存数据库失败: %w", err)
	}
	// modernc 驱动不支持同一文件上的并发写
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("设置 WAL 模式失败: %w", err)
	}

	s := &Store{db: db, path: path, maxEntries: maxEntries}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logger.Infof("[cache] 缓存已打开: %s (上限 %d 条)", path, maxEntries)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS utterance_audio (
			key TEXT PRIMARY KEY,
			engine TEXT NOT NULL,
			voice TEXT NOT NULL,
			sample_rate INTEGER NOT NULL,
			pcm BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			last_used INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_utterance_audio_last_used ON utterance_audio(last_used)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("缓存建表失败: %w", err)
		}
	}
	return nil
}

// Path 返回数据库文件路径。
func (s *Store) Path() string { return s.path }

// Key 计算缓存键。同一引擎、音色、语速下的同一段文字得到相同的键。
func Key(engine, voice string, rate float64, text string) string {
	h := sha256.New()
	for _, part := range []string{engine, voice, strconv.FormatFloat(rate, 'f', -1, 64), text} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get 查找缓存，未命中时 ok 为 false。
func (s *Store) Get(ctx context.Context, key string) (samples []float32, sampleRate int, ok bool, err error) {
	var pcm []byte
	row := s.db.QueryRowContext(ctx, `SELECT sample_rate, pcm FROM utterance_audio WHERE key = ?`, key)
	if err := row.Scan(&sampleRate, &pcm); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, false, nil
		}
		return nil, 0, false, fmt.Errorf("读取缓存失败: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `UPDATE utterance_audio SET last_used = ? WHERE key = ?`, time.Now().UnixNano(), key); err != nil {
		logger.Warnf("[cache] 更新使用时间失败: %v", err)
	}
	return audio.BytesToFloat32(pcm), sampleRate, true, nil
}

// Put 写入缓存，已存在时覆盖，然后按上限淘汰最久未使用的条目。
func (s *Store) Put(ctx context.Context, key, engine, voice string, samples []float32, sampleRate int) error {
	now := time.Now().UnixNano()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO utterance_audio (key, engine, voice, sample_rate, pcm, created_at, last_used)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET sample_rate = excluded.sample_rate, pcm = excluded.pcm, last_used = excluded.last_used`,
		key, engine, voice, sampleRate, audio.Float32ToBytes(samples), now, now)
	if err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return s.evict(ctx)
}

// Len 返回缓存条目数。
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM utterance_audio`).Scan(&n); err != nil {
		return 0, fmt.Errorf("统计缓存失败: %w", err)
	}
	return n, nil
}

// evict 超出上限时删除最久未使用的条目。
func (s *Store) evict(ctx context.Context) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM utterance_audio WHERE key IN (
			SELECT key FROM utterance_audio ORDER BY last_used DESC LIMIT -1 OFFSET ?
		)`, s.maxEntries)
	if err != nil {
		return fmt.Errorf("淘汰缓存失败: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Debugf("[cache] LRU 淘汰 %d 条", n)
	}
	return nil
}

// Close 关闭数据库。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
