// Package tts 把帖子文本合成为语音，并实现播放器需要的 Synthesizer。
package tts

import (
	"context"
	"strings"
)

// Voice 是引擎提供的一个音色。
type Voice struct {
	ID      string // 引擎内部标识，如 en-US-AriaNeural、1051、sherpa 说话人编号
	Name    string
	Lang    string // BCP-47 语言标签，如 en-US
	Speaker int    // 多说话人离线模型的说话人编号
}

// Engine 定义语音合成后端接口。
type Engine interface {
	// Name 返回引擎名称，用于日志和缓存键。
	Name() string
	// Voices 返回引擎可用的音色列表，顺序固定。
	Voices(ctx context.Context) ([]Voice, error)
	// Synthesize 用指定音色和语速合成文本，返回单声道 float32 样本和采样率。
	Synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error)
}

// langFromVoiceName 从 Edge 风格的音色名（en-US-AriaNeural）中取出语言标签。
func langFromVoiceName(name string) string {
	parts := strings.SplitN(name, "-", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[0] + "-" + parts[1]
}
