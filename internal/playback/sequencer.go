// Package playback 按顺序朗读帖子，并提供播放、暂停、停止、切换等控制。
package playback

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/threadreader/internal/logger"
)

// DefaultGap 两条帖子之间的停顿。
const DefaultGap = 500 * time.Millisecond

// Item 一条待朗读的内容。
type Item struct {
	Text string
	Slot int // 音色槽位
}

// Utterance 一次语音合成请求。
type Utterance struct {
	ID   string
	Text string
	Slot int
	Rate float64
}

// Synthesizer 是外部语音合成能力。
//
// Speak 立即返回，朗读结束（正常结束、出错或被取消）时向返回的 channel 发送一次结果。
// Pause/Resume 作用于正在朗读的语句；Cancel 取消它，并让其完成信号尽快触发。
type Synthesizer interface {
	Speak(ctx context.Context, u Utterance) <-chan error
	Pause()
	Resume()
	Cancel()
}

// Sequencer 是播放状态机，同一时间最多只有一个朗读循环和一个进行中的语句。
//
// 每次取代（停止、暂停于停顿期、切换帖子、重新加载）都会递增 gen 并取消旧循环的 ctx，
// 旧语句迟到的完成信号因 gen 不匹配而被丢弃，不会修改 index。
type Sequencer struct {
	synth Synthesizer
	gap   time.Duration

	mu       sync.Mutex
	items    []Item
	status   Status
	index    int
	rate     float64
	gen      uint64
	stopLoop context.CancelFunc

	inFlight bool // 当前代的语句已发出且未结束
	spoken   bool // index 对应的帖子已读完，正处于停顿期
	rewind   bool // 从 Completed 停止后，下次播放从头开始
	loads    uint64

	onChange func(State)
}

// Option 配置 Sequencer。
type Option func(*Sequencer)

// WithGap 设置帖子之间的停顿。
func WithGap(d time.Duration) Option {
	return func(s *Sequencer) {
		if d >= 0 {
			s.gap = d
		}
	}
}

// WithRate 设置初始语速。
func WithRate(rate float64) Option {
	return func(s *Sequencer) {
		if validRate(rate) {
			s.rate = rate
		}
	}
}

// NewSequencer 创建播放器，初始状态为 Idle。
func NewSequencer(synth Synthesizer, opts ...Option) *Sequencer {
	s := &Sequencer{
		synth:  synth,
		gap:    DefaultGap,
		rate:   1.0,
		status: StatusIdle,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange 注册状态变化回调。回调在锁外调用，可以安全地查询 Sequencer。
func (s *Sequencer) OnChange(fn func(State)) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Load 替换播放内容：取消进行中的朗读，位置归零，状态回到 Idle。语速保留。
// 返回本次加载的序号，与 State.Load 对应。
func (s *Sequencer) Load(items []Item) uint64 {
	s.mu.Lock()
	s.supersedeLocked()
	s.items = items
	s.index = 0
	s.spoken = false
	s.rewind = false
	s.loads++
	n := s.loads
	s.setStatusLocked(StatusIdle)
	s.unlockAndNotify()
	return n
}

// State 返回当前状态快照。
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Status 返回当前状态。
func (s *Sequencer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Current 返回当前位置的内容。
func (s *Sequencer) Current() (Item, int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return Item{}, 0, false
	}
	return s.items[s.index], s.index, true
}

// Play 从当前位置开始或继续朗读。
// Completed 时从头开始；Paused 且语句仍挂起时继续该语句而不是重读。
func (s *Sequencer) Play() {
	s.mu.Lock()
	if len(s.items) == 0 {
		s.mu.Unlock()
		return
	}

	switch s.status {
	case StatusPlaying:
		s.mu.Unlock()
		return
	case StatusCompleted:
		s.index = 0
		s.spoken = false
	case StatusPaused:
		if s.inFlight {
			s.setStatusLocked(StatusPlaying)
			s.synth.Resume()
			s.unlockAndNotify()
			return
		}
		if s.spoken {
			// 暂停发生在停顿期，当前帖子已读完
			s.spoken = false
			if s.index >= len(s.items)-1 {
				s.setStatusLocked(StatusCompleted)
				s.unlockAndNotify()
				return
			}
			s.index++
		}
	case StatusIdle:
		if s.rewind {
			s.index = 0
		}
		s.spoken = false
	}
	s.rewind = false

	s.setStatusLocked(StatusPlaying)
	s.startLoopLocked()
	s.unlockAndNotify()
}

// Resume 仅在 Paused 时等同于 Play。
func (s *Sequencer) Resume() {
	if s.Status() == StatusPaused {
		s.Play()
	}
}

// Pause 暂停朗读，位置保持在当前帖子。
func (s *Sequencer) Pause() {
	s.mu.Lock()
	if s.status != StatusPlaying {
		s.mu.Unlock()
		return
	}
	s.setStatusLocked(StatusPaused)
	if s.inFlight {
		s.synth.Pause()
	} else {
		// 停顿期或两条之间，没有挂起的语句，直接结束循环
		s.supersedeLocked()
	}
	s.unlockAndNotify()
}

// Stop 取消朗读并回到 Idle，位置保留。
func (s *Sequencer) Stop() {
	s.mu.Lock()
	if s.status == StatusCompleted {
		s.rewind = true
	}
	s.supersedeLocked()
	s.spoken = false
	s.setStatusLocked(StatusIdle)
	s.unlockAndNotify()
}

// Next 切换到下一条，已在最后一条时不做任何事。
func (s *Sequencer) Next() { s.step(1) }

// Prev 切换到上一条，已在第一条时不做任何事。
func (s *Sequencer) Prev() { s.step(-1) }

func (s *Sequencer) step(delta int) {
	s.mu.Lock()
	target := s.index + delta
	if target < 0 || target >= len(s.items) {
		s.mu.Unlock()
		return
	}

	wasPlaying := s.status == StatusPlaying
	s.supersedeLocked()
	s.index = target
	s.spoken = false
	s.rewind = false
	if s.status == StatusCompleted {
		s.setStatusLocked(StatusIdle)
	}
	if wasPlaying {
		s.startLoopLocked()
	}
	s.unlockAndNotify()
}

// SetRate 设置语速，只影响之后发出的语句。非正数被忽略。
func (s *Sequencer) SetRate(rate float64) bool {
	if !validRate(rate) {
		return false
	}
	s.mu.Lock()
	s.rate = rate
	s.unlockAndNotify()
	return true
}

// Rate 返回当前语速。
func (s *Sequencer) Rate() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rate
}

func validRate(rate float64) bool {
	return rate > 0 && !math.IsInf(rate, 0) && !math.IsNaN(rate)
}

// supersedeLocked 使当前循环和语句失效。
func (s *Sequencer) supersedeLocked() {
	s.gen++
	if s.stopLoop != nil {
		s.stopLoop()
		s.stopLoop = nil
	}
	if s.inFlight {
		s.inFlight = false
		s.synth.Cancel()
	}
}

// startLoopLocked 以新的 gen 启动朗读循环。
func (s *Sequencer) startLoopLocked() {
	s.supersedeLocked()
	ctx, cancel := context.WithCancel(context.Background())
	s.stopLoop = cancel
	go s.run(ctx, cancel, s.gen)
}

// run 是朗读循环：朗读当前帖子，等待结束，停顿后前进。
// 任何时候发现 gen 已变化就立即退出，不修改状态。
func (s *Sequencer) run(ctx context.Context, cancel context.CancelFunc, gen uint64) {
	defer cancel()

	for {
		s.mu.Lock()
		if s.gen != gen || s.status != StatusPlaying {
			s.mu.Unlock()
			return
		}
		item := s.items[s.index]
		u := Utterance{ID: uuid.NewString(), Text: item.Text, Slot: item.Slot, Rate: s.rate}
		s.inFlight = true
		done := s.synth.Speak(ctx, u)
		logger.Debugf("[playback] 朗读第 %d/%d 条 (slot=%d, rate=%.2f, id=%s)", s.index+1, len(s.items), u.Slot, u.Rate, u.ID)
		s.unlockAndNotify()

		var err error
		select {
		case err = <-done:
		case <-ctx.Done():
			return
		}

		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.inFlight = false
		if err != nil {
			// 合成失败与正常结束一样处理，避免卡住整个会话
			logger.Warnf("[playback] 第 %d 条朗读失败，继续下一条: %v", s.index+1, err)
		}
		if s.status != StatusPlaying {
			// 刚好在读完时被暂停
			s.spoken = true
			s.stopLoop = nil
			s.mu.Unlock()
			return
		}
		if s.index >= len(s.items)-1 {
			s.stopLoop = nil
			s.setStatusLocked(StatusCompleted)
			s.unlockAndNotify()
			return
		}
		s.spoken = true
		s.mu.Unlock()

		timer := time.NewTimer(s.gap)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return
		}

		s.mu.Lock()
		if s.gen != gen || s.status != StatusPlaying {
			s.mu.Unlock()
			return
		}
		s.index++
		s.spoken = false
		s.mu.Unlock()
	}
}

// setStatusLocked 切换状态，非法转换只记录日志。
func (s *Sequencer) setStatusLocked(to Status) {
	from := s.status
	if from == to {
		return
	}
	if !validTransition(from, to) {
		logger.Warnf("[playback] 非法转换 %s → %s", from, to)
		return
	}
	s.status = to
	logger.Debugf("[playback] %s → %s", from, to)
}

func (s *Sequencer) snapshotLocked() State {
	return State{Status: s.status, Index: s.index, Total: len(s.items), Rate: s.rate, Load: s.loads}
}

// unlockAndNotify 释放锁后通知观察者。
func (s *Sequencer) unlockAndNotify() {
	st := s.snapshotLocked()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn(st)
	}
}
