package tts

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	sherpa "github.com/k2-fsa/sherpa-onnx-go/sherpa_onnx"

	"github.com/iabetor/threadreader/internal/logger"
)

// SherpaConfig 离线 VITS 模型配置。
type SherpaConfig struct {
	Model      string
	Tokens     string
	Lexicon    string
	DataDir    string // espeak-ng-data 目录，piper 系列英文模型需要
	NumThreads int
	Speakers   int // 说话人数量，每个说话人对应一个音色
	Lang       string
}

// SherpaEngine 使用 sherpa-onnx 离线 VITS 模型合成语音，不依赖网络。
// 多说话人模型的每个说话人编号作为一个音色。
type SherpaEngine struct {
	mu     sync.Mutex // OfflineTts 不能并发调用
	tts    *sherpa.OfflineTts
	voices []Voice
}

// NewSherpaEngine 加载模型。
func NewSherpaEngine(cfg SherpaConfig) (*SherpaEngine, error) {
	if cfg.Model == "" || cfg.Tokens == "" {
		return nil, fmt.Errorf("[tts] sherpa-onnx 需要 model 和 tokens")
	}
	if cfg.NumThreads <= 0 {
		cfg.NumThreads = 2
	}
	if cfg.Speakers <= 0 {
		cfg.Speakers = 1
	}
	if cfg.Lang == "" {
		cfg.Lang = "en-US"
	}

	config := sherpa.OfflineTtsConfig{}
	config.Model.Vits.Model = cfg.Model
	config.Model.Vits.Tokens = cfg.Tokens
	config.Model.Vits.Lexicon = cfg.Lexicon
	config.Model.Vits.DataDir = cfg.DataDir
	config.Model.Vits.NoiseScale = 0.667
	config.Model.Vits.NoiseScaleW = 0.8
	config.Model.Vits.LengthScale = 1.0
	config.Model.NumThreads = cfg.NumThreads
	config.Model.Provider = "cpu"
	config.MaxNumSentences = 1

	impl := sherpa.NewOfflineTts(&config)
	if impl == nil {
		return nil, fmt.Errorf("[tts] 创建离线 TTS 失败，模型路径: %s", cfg.Model)
	}

	voices := make([]Voice, cfg.Speakers)
	for i := range voices {
		id := strconv.Itoa(i)
		voices[i] = Voice{ID: id, Name: "speaker-" + id, Lang: cfg.Lang, Speaker: i}
	}

	logger.Infof("[tts] sherpa-onnx 引擎已初始化 (model=%s, speakers=%d, threads=%d)", cfg.Model, cfg.Speakers, cfg.NumThreads)
	return &SherpaEngine{tts: impl, voices: voices}, nil
}

func (e *SherpaEngine) Name() string { return "sherpa" }

func (e *SherpaEngine) Voices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out, nil
}

// Synthesize 合成文本，rate 直接作为模型的 speed 参数。
// 模型推理不可中断，结束后再检查 ctx。
func (e *SherpaEngine) Synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error) {
	if rate <= 0 {
		rate = 1
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts == nil {
		return nil, 0, fmt.Errorf("[tts] sherpa-onnx 引擎已关闭")
	}

	logger.Debugf("[tts] sherpa-onnx: 正在合成 %d 个字符，说话人=%d", len([]rune(text)), voice.Speaker)
	generated := e.tts.Generate(text, voice.Speaker, float32(rate))
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if generated == nil || len(generated.Samples) == 0 {
		return nil, 0, fmt.Errorf("[tts] sherpa-onnx: 未生成音频")
	}
	return generated.Samples, generated.SampleRate, nil
}

// Close 释放模型。
func (e *SherpaEngine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tts != nil {
		sherpa.DeleteOfflineTts(e.tts)
		e.tts = nil
		logger.Info("[tts] sherpa-onnx 引擎已关闭")
	}
}
