// Package audio 负责把合成的 PCM 样本送到扬声器。
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gen2brain/malgo"

	"github.com/iabetor/threadreader/internal/logger"
)

// ErrClosed 播放器已关闭。
var ErrClosed = errors.New("播放器已关闭")

// Player 使用 malgo (miniaudio) 播放单声道样本，支持暂停和继续。
// 同一时间只播放一段音频，暂停期间设备输出静音且不推进播放位置。
type Player struct {
	ctx      *malgo.AllocatedContext
	channels int

	mu     sync.Mutex
	closed bool

	paused atomic.Bool
}

// NewPlayer 创建播放器，channels 为输出声道数，单声道样本会复制到每个声道。
func NewPlayer(channels int) (*Player, error) {
	if channels <= 0 {
		channels = 1
	}
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("初始化播放上下文失败: %w", err)
	}
	return &Player{ctx: ctx, channels: channels}, nil
}

// Pause 暂停当前播放，对之后的 Play 同样生效，直到 Resume。
func (p *Player) Pause() { p.paused.Store(true) }

// Resume 继续播放。
func (p *Player) Resume() { p.paused.Store(false) }

// Paused 返回是否处于暂停。
func (p *Player) Paused() bool { return p.paused.Load() }

// Play 以 sampleRate 播放样本，阻塞直到播完或 ctx 被取消。
func (p *Player) Play(ctx context.Context, samples []float32, sampleRate int) error {
	if len(samples) == 0 {
		return nil
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.mu.Unlock()

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = uint32(p.channels)
	cfg.SampleRate = uint32(sampleRate)
	cfg.PeriodSizeInFrames = 512
	cfg.Periods = 2

	src := newPCMSource(Float32ToBytes(Interleave(samples, p.channels)), int(cfg.Periods), &p.paused)
	frameBytes := p.channels * 2
	done := make(chan struct{}, 1)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			need := int(frameCount) * frameBytes
			if need > len(out) {
				need = len(out)
			}
			if src.fill(out[:need]) {
				select {
				case done <- struct{}{}:
				default:
				}
			}
		},
	}

	device, err := malgo.InitDevice(p.ctx.Context, cfg, callbacks)
	if err != nil {
		return fmt.Errorf("初始化播放设备失败: %w", err)
	}
	defer device.Uninit()

	if err := device.Start(); err != nil {
		return fmt.Errorf("启动播放设备失败: %w", err)
	}
	defer device.Stop()

	logger.Debugf("[audio] 开始播放 %v (%d Hz)", Duration(len(samples), sampleRate), sampleRate)
	select {
	case <-ctx.Done():
		logger.Debugf("[audio] 播放被取消")
		return ctx.Err()
	case <-done:
		return nil
	}
}

// pcmSource 在设备回调中按顺序输出 PCM。
// 数据写完后再输出 drain 个周期的静音才算播完，避免 Stop 截掉设备缓冲区里的尾音。
type pcmSource struct {
	pcm    []byte
	pos    int
	tail   int
	drain  int
	paused *atomic.Bool
}

func newPCMSource(pcm []byte, drain int, paused *atomic.Bool) *pcmSource {
	if drain < 1 {
		drain = 1
	}
	return &pcmSource{pcm: pcm, drain: drain, paused: paused}
}

// fill 填充一个周期，返回是否已经播完。暂停时输出静音且不推进位置。
func (s *pcmSource) fill(out []byte) bool {
	if s.paused.Load() {
		clear(out)
		return false
	}
	if s.pos >= len(s.pcm) {
		clear(out)
		s.tail++
		return s.tail >= s.drain
	}
	n := copy(out, s.pcm[s.pos:])
	clear(out[n:])
	s.pos += n
	return false
}

// Close 释放播放上下文。
func (p *Player) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	if p.ctx != nil {
		_ = p.ctx.Uninit()
		p.ctx.Free()
		p.ctx = nil
	}
}
