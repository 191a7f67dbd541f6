// Package session 持有当前加载的帖子、音色分配和播放器，对外提供全部操作。
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/iabetor/threadreader/internal/config"
	"github.com/iabetor/threadreader/internal/discourse"
	"github.com/iabetor/threadreader/internal/logger"
	"github.com/iabetor/threadreader/internal/playback"
	"github.com/iabetor/threadreader/internal/thread"
	"github.com/iabetor/threadreader/internal/voice"
)

// Fetcher 获取帖子原始数据，*discourse.Fetcher 实现了它。
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*discourse.Topic, error)
}

// Options 会话参数。
type Options struct {
	MaxPosts    int           // 只朗读前 N 条，0 表示全部
	PaletteSize int           // 音色槽位数量
	Gap         time.Duration // 帖子之间的停顿
	Rate        float64       // 初始语速
}

// OptionsFromConfig 从配置生成会话参数。
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		MaxPosts:    cfg.Fetch.MaxPosts,
		PaletteSize: cfg.Voice.PaletteSize,
		Gap:         time.Duration(cfg.Playback.GapMs) * time.Millisecond,
		Rate:        cfg.Playback.Rate,
	}
}

// Session 一次朗读会话。加载失败时保留之前的帖子和播放状态。
type Session struct {
	fetcher  Fetcher
	opts     Options
	seq      *playback.Sequencer
	controls *playback.Controls

	loadMu sync.Mutex // 串行化加载，保证帖子与播放内容一致

	mu         sync.RWMutex
	thread     *thread.Thread
	assignment voice.Assignment
	load       uint64 // thread 对应的 Sequencer 加载序号
}

// New 创建会话。
func New(fetcher Fetcher, synth playback.Synthesizer, opts Options) *Session {
	seqOpts := []playback.Option{playback.WithRate(opts.Rate)}
	if opts.Gap > 0 {
		seqOpts = append(seqOpts, playback.WithGap(opts.Gap))
	}
	seq := playback.NewSequencer(synth, seqOpts...)
	return &Session{
		fetcher:  fetcher,
		opts:     opts,
		seq:      seq,
		controls: playback.NewControls(seq),
	}
}

// LoadThread 获取并加载帖子：规范化内容、分配音色、重置播放器到第一条。
func (s *Session) LoadThread(ctx context.Context, rawURL string) (*thread.Thread, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	topic, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	t, err := thread.Build(topic, s.opts.MaxPosts)
	if err != nil {
		return nil, fmt.Errorf("加载帖子失败: %w", err)
	}
	assignment := voice.Assign(t.Posts, s.opts.PaletteSize)

	items := make([]playback.Item, len(t.Posts))
	for i, p := range t.Posts {
		items[i] = playback.Item{Text: p.Narration(), Slot: assignment.Slot(p.Username)}
	}

	n := s.seq.Load(items)
	s.mu.Lock()
	s.thread = t
	s.assignment = assignment
	s.load = n
	s.mu.Unlock()

	logger.Infof("[session] 已加载帖子 %d「%s」: %d 条回复，%d 位作者", t.ID, t.Title, t.Len(), len(assignment.Ranking))
	return t, nil
}

// Thread 返回当前帖子，未加载时为 nil。
func (s *Session) Thread() *thread.Thread {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.thread
}

// Assignment 返回当前音色分配。
func (s *Session) Assignment() voice.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assignment
}

// Roster 返回作者列表，未加载时为空。
func (s *Session) Roster() []voice.RosterEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.thread == nil {
		return nil
	}
	return s.assignment.Roster(s.thread)
}

// Current 返回光标所在的帖子和位置。帖子切换过程中播放状态与帖子不一致时返回 false。
func (s *Session) Current() (thread.Post, int, bool) {
	s.mu.RLock()
	t, load := s.thread, s.load
	s.mu.RUnlock()
	if t == nil {
		return thread.Post{}, 0, false
	}
	st := s.seq.State()
	if st.Load != load {
		return thread.Post{}, 0, false
	}
	idx := st.Index
	if idx < 0 || idx >= len(t.Posts) {
		return thread.Post{}, 0, false
	}
	return t.Posts[idx], idx, true
}

// State 返回播放状态快照。
func (s *Session) State() playback.State { return s.seq.State() }

// Controls 返回控制层，用于查询按钮可用性。
func (s *Session) Controls() *playback.Controls { return s.controls }

// OnChange 注册播放状态变化回调。
func (s *Session) OnChange(fn func(playback.State)) { s.seq.OnChange(fn) }

func (s *Session) TogglePlayback() playback.Status { return s.controls.Toggle() }
func (s *Session) Play()                           { s.seq.Play() }
func (s *Session) Pause()                          { s.seq.Pause() }
func (s *Session) Resume()                         { s.seq.Resume() }
func (s *Session) Stop()                           { s.controls.Stop() }
func (s *Session) Next()                           { s.controls.Next() }
func (s *Session) Prev()                           { s.controls.Prev() }
func (s *Session) SetRate(rate float64) bool       { return s.controls.SetRate(rate) }
func (s *Session) SpeedUp() float64                { return s.controls.SpeedUp() }
func (s *Session) SpeedDown() float64              { return s.controls.SpeedDown() }
