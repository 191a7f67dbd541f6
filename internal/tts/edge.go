package tts

import (
	"bytes"
	"context"
	"fmt"
	"math"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"

	"github.com/iabetor/threadreader/internal/audio"
	"github.com/iabetor/threadreader/internal/logger"
)

// EdgeEngine 使用微软 Edge TTS 合成语音，
// 通过 edge-tts-go 获取 MP3 音频，再用 go-mp3 解码为 PCM。
type EdgeEngine struct {
	voices []Voice
}

// NewEdgeEngine 用配置的音色名列表创建引擎，语言标签从音色名中解析。
func NewEdgeEngine(voiceNames []string) (*EdgeEngine, error) {
	if len(voiceNames) == 0 {
		return nil, fmt.Errorf("[tts] edge-tts 至少需要一个音色")
	}
	voices := make([]Voice, 0, len(voiceNames))
	for _, name := range voiceNames {
		voices = append(voices, Voice{ID: name, Name: name, Lang: langFromVoiceName(name)})
	}
	return &EdgeEngine{voices: voices}, nil
}

func (e *EdgeEngine) Name() string { return "edge" }

// Voices 返回配置的音色，Edge 服务端不提供无需鉴权的音色列表。
func (e *EdgeEngine) Voices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out, nil
}

// Synthesize 合成文本，语速由服务端 prosody rate 控制。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error) {
	logger.Debugf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), voice.ID)

	comm, err := edge.NewCommunicate(text, edge.WithVoice(voice.ID), edge.WithRate(edgeRate(rate)))
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] edge-tts 创建实例失败: %w", err)
	}
	ch, err := comm.Stream()
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] edge-tts 开始流式合成失败: %w", err)
	}

	// Stream() 返回的 map 中 type=="audio" 的条目包含 MP3 数据
	var mp3Buf bytes.Buffer
	for msg := range ch {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}
	if mp3Buf.Len() == 0 {
		return nil, 0, fmt.Errorf("[tts] edge-tts: 未收到音频数据")
	}

	samples, sampleRate, err := audio.DecodeMP3(mp3Buf.Bytes())
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] edge-tts: %w", err)
	}
	logger.Debugf("[tts] edge-tts: 生成 %d 个样本，采样率 %d Hz", len(samples), sampleRate)
	return samples, sampleRate, nil
}

// edgeRate 把倍速转换为 Edge 的相对语速，例如 1.5 -> "+50%"。
func edgeRate(rate float64) string {
	if rate <= 0 {
		rate = 1
	}
	return fmt.Sprintf("%+d%%", int(math.Round((rate-1)*100)))
}
