package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/iabetor/threadreader/internal/audio"
	"github.com/iabetor/threadreader/internal/logger"
)

// DefaultTencentVoiceTypes 腾讯云英文音色：WeRose、WeJack 及其精品版。
var DefaultTencentVoiceTypes = []int64{1051, 1050, 101051, 101050}

// 腾讯云语速档位与实际倍速的对应关系
var tencentSpeeds = []struct {
	level      float64
	multiplier float64
}{
	{-2, 0.6}, {-1, 0.8}, {0, 1.0}, {1, 1.2}, {2, 1.5}, {6, 2.5},
}

// TencentEngine 使用腾讯云 TTS 合成英文语音。
type TencentEngine struct {
	client *tts.Client
	voices []Voice
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID   string
	SecretKey  string
	Region     string
	VoiceTypes []int64
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}
	if len(cfg.VoiceTypes) == 0 {
		cfg.VoiceTypes = DefaultTencentVoiceTypes
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	voices := make([]Voice, 0, len(cfg.VoiceTypes))
	for _, vt := range cfg.VoiceTypes {
		id := strconv.FormatInt(vt, 10)
		voices = append(voices, Voice{ID: id, Name: "tencent-" + id, Lang: "en-US"})
	}

	logger.Infof("[tts] 腾讯云 TTS 引擎已初始化 (voices=%v, region=%s)", cfg.VoiceTypes, cfg.Region)
	return &TencentEngine{client: client, voices: voices}, nil
}

func (e *TencentEngine) Name() string { return "tencent" }

func (e *TencentEngine) Voices(ctx context.Context) ([]Voice, error) {
	out := make([]Voice, len(e.voices))
	copy(out, e.voices)
	return out, nil
}

// Synthesize 合成文本，腾讯云返回 Base64 编码的 MP3。
func (e *TencentEngine) Synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error) {
	voiceType, err := strconv.ParseInt(voice.ID, 10, 64)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] 腾讯云音色 %q 无效: %w", voice.ID, err)
	}
	logger.Debugf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(voiceType)
	request.PrimaryLanguage = common.Int64Ptr(2) // 英文
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(tencentSpeed(rate))
	request.Volume = common.Float64Ptr(5.0)

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] 腾讯云 TTS 合成失败: %w", err)
	}
	if response.Response == nil || response.Response.Audio == nil {
		return nil, 0, fmt.Errorf("[tts] 腾讯云 TTS: 未返回音频数据")
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] Base64 解码失败: %w", err)
	}
	samples, sampleRate, err := audio.DecodeMP3(mp3Data)
	if err != nil {
		return nil, 0, fmt.Errorf("[tts] 腾讯云 TTS: %w", err)
	}
	logger.Debugf("[tts] 腾讯云 TTS: 生成 %d 个样本，采样率 %d Hz", len(samples), sampleRate)
	return samples, sampleRate, nil
}

// tencentSpeed 在相邻档位之间线性插值，把倍速换算为腾讯云语速，保留两位小数。
func tencentSpeed(rate float64) float64 {
	first, last := tencentSpeeds[0], tencentSpeeds[len(tencentSpeeds)-1]
	if rate <= first.multiplier {
		return first.level
	}
	if rate >= last.multiplier {
		return last.level
	}
	for i := 1; i < len(tencentSpeeds); i++ {
		lo, hi := tencentSpeeds[i-1], tencentSpeeds[i]
		if rate <= hi.multiplier {
			level := lo.level + (rate-lo.multiplier)/(hi.multiplier-lo.multiplier)*(hi.level-lo.level)
			return math.Round(level*100) / 100
		}
	}
	return last.level
}
