package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/iabetor/threadreader/internal/logger"
	"github.com/iabetor/threadreader/internal/playback"
)

// ErrNoVoices 引擎没有任何可用音色。
var ErrNoVoices = errors.New("没有可用的音色")

// Output 是音频输出设备，*audio.Player 实现了它。
type Output interface {
	Play(ctx context.Context, samples []float32, sampleRate int) error
	Pause()
	Resume()
}

// AudioCache 是合成结果缓存，*cache.Store 实现了它。
type AudioCache interface {
	Get(ctx context.Context, key string) ([]float32, int, bool, error)
	Put(ctx context.Context, key, engine, voice string, samples []float32, sampleRate int) error
}

// KeyFunc 计算缓存键。
type KeyFunc func(engine, voice string, rate float64, text string) string

// Speaker 把合成引擎和音频输出组合成播放器使用的 Synthesizer。
// 同一时间只朗读一条语句，新的 Speak 会取消仍在进行的旧语句。
type Speaker struct {
	engine Engine
	out    Output
	cache  AudioCache
	key    KeyFunc
	lang   string

	rosterMu sync.Mutex
	roster   []Voice

	mu      sync.Mutex
	cancel  context.CancelFunc
	current string
}

var _ playback.Synthesizer = (*Speaker)(nil)

// SpeakerOption 配置 Speaker。
type SpeakerOption func(*Speaker)

// WithCache 启用合成结果缓存。
func WithCache(c AudioCache, key KeyFunc) SpeakerOption {
	return func(s *Speaker) {
		s.cache = c
		s.key = key
	}
}

// WithLanguage 设置音色的语言族，默认 en。
func WithLanguage(lang string) SpeakerOption {
	return func(s *Speaker) {
		if lang != "" {
			s.lang = lang
		}
	}
}

// NewSpeaker 创建 Speaker。
func NewSpeaker(engine Engine, out Output, opts ...SpeakerOption) *Speaker {
	s := &Speaker{engine: engine, out: out, lang: DefaultLanguage}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ready 等待引擎的音色列表就绪。成功后结果被保留，之后不再查询引擎；失败时下次调用重试。
func (s *Speaker) Ready(ctx context.Context) ([]Voice, error) {
	s.rosterMu.Lock()
	defer s.rosterMu.Unlock()
	if s.roster != nil {
		return s.roster, nil
	}

	voices, err := s.engine.Voices(ctx)
	if err != nil {
		return nil, fmt.Errorf("[tts] 获取 %s 音色列表失败: %w", s.engine.Name(), err)
	}
	if len(voices) == 0 {
		return nil, ErrNoVoices
	}
	s.roster = voices
	logger.Infof("[tts] %s 音色已就绪，共 %d 个", s.engine.Name(), len(voices))
	return voices, nil
}

// VoiceFor 返回音色槽位实际使用的音色。
func (s *Speaker) VoiceFor(ctx context.Context, slot int) (Voice, error) {
	roster, err := s.Ready(ctx)
	if err != nil {
		return Voice{}, err
	}
	v, ok := SelectVoice(roster, slot, s.lang)
	if !ok {
		return Voice{}, ErrNoVoices
	}
	return v, nil
}

// Speak 开始朗读，结束（播完、出错或被取消）时向返回的 channel 发送一次结果。
func (s *Speaker) Speak(ctx context.Context, u playback.Utterance) <-chan error {
	done := make(chan error, 1)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.current = u.ID
	s.mu.Unlock()

	s.out.Resume()

	go func() {
		err := s.speak(ctx, u)
		cancel()

		s.mu.Lock()
		if s.current == u.ID {
			s.cancel = nil
			s.current = ""
		}
		s.mu.Unlock()

		done <- err
	}()
	return done
}

func (s *Speaker) speak(ctx context.Context, u playback.Utterance) error {
	voice, err := s.VoiceFor(ctx, u.Slot)
	if err != nil {
		return err
	}
	samples, sampleRate, err := s.synthesize(ctx, u.Text, voice, u.Rate)
	if err != nil {
		return err
	}
	return s.out.Play(ctx, samples, sampleRate)
}

// synthesize 优先读缓存，未命中时调用引擎并写回缓存。缓存故障只记录日志。
func (s *Speaker) synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error) {
	var key string
	if s.cache != nil {
		key = s.key(s.engine.Name(), voice.ID, rate, text)
		samples, sampleRate, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warnf("[tts] 读取缓存失败: %v", err)
		} else if ok {
			logger.Debugf("[tts] 命中缓存 (voice=%s)", voice.ID)
			return samples, sampleRate, nil
		}
	}

	samples, sampleRate, err := s.engine.Synthesize(ctx, text, voice, rate)
	if err != nil {
		return nil, 0, err
	}

	if s.cache != nil {
		if err := s.cache.Put(ctx, key, s.engine.Name(), voice.ID, samples, sampleRate); err != nil {
			logger.Warnf("[tts] 写入缓存失败: %v", err)
		}
	}
	return samples, sampleRate, nil
}

func (s *Speaker) Pause()  { s.out.Pause() }
func (s *Speaker) Resume() { s.out.Resume() }

// Cancel 取消正在进行的语句。
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
		s.current = ""
	}
}
