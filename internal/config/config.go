package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 threadreader 的顶层配置结构。
type Config struct {
	Fetch    FetchConfig    `yaml:"fetch"`
	Voice    VoiceConfig    `yaml:"voice"`
	Playback PlaybackConfig `yaml:"playback"`
	TTS      TTSConfig      `yaml:"tts"`
	Audio    AudioConfig    `yaml:"audio"`
	Cache    CacheConfig    `yaml:"cache"`
	Log      LogConfig      `yaml:"log"`
}

// FetchConfig 帖子抓取配置。
type FetchConfig struct {
	UserAgent string `yaml:"user_agent"`
	// MaxPosts 只朗读前 N 个帖子，0 表示全部。
	MaxPosts int `yaml:"max_posts"`
	// Strategies 按顺序尝试的抓取方式。
	Strategies []StrategyConfig `yaml:"strategies"`
}

// StrategyConfig 单个抓取方式。
// Kind 取值 direct / relay / feed；relay 的 Template 中 {url} 会被替换为转义后的目标地址。
type StrategyConfig struct {
	Name     string `yaml:"name"`
	Kind     string `yaml:"kind"`
	Template string `yaml:"template"`
}

// VoiceConfig 音色分配配置。
type VoiceConfig struct {
	PaletteSize int    `yaml:"palette_size"`
	Language    string `yaml:"language"` // 语言前缀，如 "en"
}

// PlaybackConfig 播放配置。
type PlaybackConfig struct {
	Rate  float64 `yaml:"rate"`
	GapMs int     `yaml:"gap_ms"` // 帖子之间的停顿
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Engine  string        `yaml:"engine"` // edge / tencent / sherpa
	Edge    EdgeConfig    `yaml:"edge"`
	Tencent TencentConfig `yaml:"tencent"`
	Sherpa  SherpaConfig  `yaml:"sherpa"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voices []string `yaml:"voices"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID   string  `yaml:"secret_id"`
	SecretKey  string  `yaml:"secret_key"`
	Region     string  `yaml:"region"`
	VoiceTypes []int64 `yaml:"voice_types"`
}

// SherpaConfig sherpa-onnx 离线 VITS 配置。
type SherpaConfig struct {
	Model      string `yaml:"model"`
	Tokens     string `yaml:"tokens"`
	Lexicon    string `yaml:"lexicon"`
	DataDir    string `yaml:"data_dir"`
	NumThreads int    `yaml:"num_threads"`
	// Speakers 多说话人模型的说话人数量，每个说话人作为一个音色。
	Speakers int `yaml:"speakers"`
}

// AudioConfig 音频播放配置。
type AudioConfig struct {
	Channels int `yaml:"channels"`
}

// CacheConfig 合成音频缓存配置。
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// MaxEntries 超出后按最近使用时间淘汰，0 表示使用默认值。
	MaxEntries int `yaml:"max_entries"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DefaultStrategies 默认抓取链：先直连，再依次走两个中转代理。
func DefaultStrategies() []StrategyConfig {
	return []StrategyConfig{
		{Name: "direct", Kind: "direct"},
		{Name: "corsproxy", Kind: "relay", Template: "https://corsproxy.io/?{url}"},
		{Name: "allorigins", Kind: "relay", Template: "https://api.allorigins.win/raw?url={url}"},
	}
}

// DefaultEdgeVoices 默认 Edge 英文音色，数量与音色槽位一致。
func DefaultEdgeVoices() []string {
	return []string{
		"en-US-AriaNeural",
		"en-US-GuyNeural",
		"en-GB-SoniaNeural",
		"en-GB-RyanNeural",
		"en-US-JennyNeural",
		"en-AU-WilliamNeural",
		"en-US-MichelleNeural",
		"en-IE-ConnorNeural",
		"en-AU-NatashaNeural",
		"en-US-ChristopherNeural",
	}
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}
	return Parse(data)
}

// Parse 解析 YAML 配置内容。
func Parse(data []byte) (*Config, error) {
	expanded := os.Expand(string(data), os.Getenv)

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	setDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回不读文件时使用的默认配置。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "threadreader/1.0"
	}
	if len(cfg.Fetch.Strategies) == 0 {
		cfg.Fetch.Strategies = DefaultStrategies()
	}
	if cfg.Voice.PaletteSize == 0 {
		cfg.Voice.PaletteSize = 10
	}
	if cfg.Voice.Language == "" {
		cfg.Voice.Language = "en"
	}
	if cfg.Playback.Rate == 0 {
		cfg.Playback.Rate = 1.0
	}
	if cfg.Playback.GapMs == 0 {
		cfg.Playback.GapMs = 500
	}
	if cfg.TTS.Engine == "" {
		cfg.TTS.Engine = "edge"
	}
	if len(cfg.TTS.Edge.Voices) == 0 {
		cfg.TTS.Edge.Voices = DefaultEdgeVoices()
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.TTS.Sherpa.NumThreads == 0 {
		cfg.TTS.Sherpa.NumThreads = 2
	}
	if cfg.TTS.Sherpa.Speakers == 0 {
		cfg.TTS.Sherpa.Speakers = 1
	}
	if cfg.Audio.Channels == 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Cache.Path == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Cache.Path = home + "/.threadreader/cache.db"
		} else {
			cfg.Cache.Path = "./.threadreader/cache.db"
		}
	} else if strings.HasPrefix(cfg.Cache.Path, "~/") {
		home, _ := os.UserHomeDir()
		if home != "" {
			cfg.Cache.Path = home + cfg.Cache.Path[1:]
		}
	}
	if cfg.Cache.MaxEntries == 0 {
		cfg.Cache.MaxEntries = 500
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 环境变量展开后常带空白
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

func validate(cfg *Config) error {
	if cfg.Playback.Rate < 0 {
		return fmt.Errorf("playback.rate 必须为正数: %v", cfg.Playback.Rate)
	}
	if cfg.Voice.PaletteSize < 0 {
		return fmt.Errorf("voice.palette_size 必须为正数: %d", cfg.Voice.PaletteSize)
	}
	for i, s := range cfg.Fetch.Strategies {
		switch s.Kind {
		case "direct", "feed":
		case "relay":
			if !strings.Contains(s.Template, "{url}") {
				return fmt.Errorf("fetch.strategies[%d] (%s) 的 template 缺少 {url}", i, s.Name)
			}
		default:
			return fmt.Errorf("fetch.strategies[%d] 未知类型: %q", i, s.Kind)
		}
	}
	switch cfg.TTS.Engine {
	case "edge", "tencent", "sherpa":
	default:
		return fmt.Errorf("未知的 TTS 引擎: %s", cfg.TTS.Engine)
	}
	return nil
}
