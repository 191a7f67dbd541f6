package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Fetch.UserAgent", cfg.Fetch.UserAgent, "threadreader/1.0"},
		{"Voice.PaletteSize", cfg.Voice.PaletteSize, 10},
		{"Voice.Language", cfg.Voice.Language, "en"},
		{"Playback.Rate", cfg.Playback.Rate, 1.0},
		{"Playback.GapMs", cfg.Playback.GapMs, 500},
		{"TTS.Engine", cfg.TTS.Engine, "edge"},
		{"TTS.Tencent.Region", cfg.TTS.Tencent.Region, "ap-guangzhou"},
		{"Audio.Channels", cfg.Audio.Channels, 1},
		{"Cache.MaxEntries", cfg.Cache.MaxEntries, 500},
		{"Log.Level", cfg.Log.Level, "info"},
	}

	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s: got %v, want %v", c.name, c.got, c.want)
		}
	}

	if len(cfg.Fetch.Strategies) != 3 {
		t.Fatalf("默认应有 3 个抓取方式，得到 %d", len(cfg.Fetch.Strategies))
	}
	if cfg.Fetch.Strategies[0].Kind != "direct" {
		t.Errorf("第一个抓取方式应为 direct，得到 %s", cfg.Fetch.Strategies[0].Kind)
	}
	if len(cfg.TTS.Edge.Voices) != cfg.Voice.PaletteSize {
		t.Errorf("默认 Edge 音色数量 %d 与槽位数 %d 不一致", len(cfg.TTS.Edge.Voices), cfg.Voice.PaletteSize)
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		Fetch:    FetchConfig{UserAgent: "custom", Strategies: []StrategyConfig{{Name: "only", Kind: "direct"}}},
		Voice:    VoiceConfig{PaletteSize: 4, Language: "en-GB"},
		Playback: PlaybackConfig{Rate: 1.5, GapMs: 100},
		TTS:      TTSConfig{Engine: "sherpa"},
		Log:      LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.Fetch.UserAgent != "custom" {
		t.Errorf("UserAgent 不应被覆盖: %s", cfg.Fetch.UserAgent)
	}
	if len(cfg.Fetch.Strategies) != 1 {
		t.Errorf("Strategies 不应被覆盖: %d", len(cfg.Fetch.Strategies))
	}
	if cfg.Voice.PaletteSize != 4 || cfg.Voice.Language != "en-GB" {
		t.Errorf("Voice 不应被覆盖: %+v", cfg.Voice)
	}
	if cfg.Playback.Rate != 1.5 || cfg.Playback.GapMs != 100 {
		t.Errorf("Playback 不应被覆盖: %+v", cfg.Playback)
	}
	if cfg.TTS.Engine != "sherpa" {
		t.Errorf("Engine 不应被覆盖: %s", cfg.TTS.Engine)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("THREADREADER_TEST_KEY", "  secret  ")

	path := filepath.Join(t.TempDir(), "reader.yaml")
	content := `
tts:
  engine: tencent
  tencent:
    secret_id: ${THREADREADER_TEST_KEY}
    secret_key: key
    voice_types: [1050, 1051]
fetch:
  max_posts: 20
  strategies:
    - name: direct
      kind: direct
    - name: mirror
      kind: relay
      template: "https://relay.example/?u={url}"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 失败: %v", err)
	}
	if cfg.TTS.Tencent.SecretID != "secret" {
		t.Errorf("环境变量展开后应去除空白，得到 %q", cfg.TTS.Tencent.SecretID)
	}
	if len(cfg.TTS.Tencent.VoiceTypes) != 2 || cfg.TTS.Tencent.VoiceTypes[1] != 1051 {
		t.Errorf("VoiceTypes 解析错误: %v", cfg.TTS.Tencent.VoiceTypes)
	}
	if cfg.Fetch.MaxPosts != 20 {
		t.Errorf("MaxPosts = %d, want 20", cfg.Fetch.MaxPosts)
	}
	if len(cfg.Fetch.Strategies) != 2 || cfg.Fetch.Strategies[1].Name != "mirror" {
		t.Errorf("Strategies 解析错误: %+v", cfg.Fetch.Strategies)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"relay without placeholder", "fetch:\n  strategies:\n    - {name: bad, kind: relay, template: \"https://x\"}\n"},
		{"unknown strategy kind", "fetch:\n  strategies:\n    - {name: bad, kind: carrier-pigeon}\n"},
		{"unknown engine", "tts:\n  engine: espeak\n"},
		{"negative rate", "playback:\n  rate: -1\n"},
		{"broken yaml", "fetch: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Errorf("期望解析失败")
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("期望文件不存在时返回错误")
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Setenv("TENCENT_SECRET_ID", " id ")
	t.Setenv("TENCENT_SECRET_KEY", "key")

	cfg, err := Load(filepath.Join("..", "..", "configs", "threadreader.yaml"))
	if err != nil {
		t.Fatalf("示例配置加载失败: %v", err)
	}
	if cfg.TTS.Tencent.SecretID != "id" || cfg.TTS.Tencent.SecretKey != "key" {
		t.Errorf("密钥未正确展开: %q %q", cfg.TTS.Tencent.SecretID, cfg.TTS.Tencent.SecretKey)
	}
	if len(cfg.Fetch.Strategies) != 3 || cfg.Fetch.Strategies[2].Name != "allorigins" {
		t.Errorf("抓取方式不正确: %+v", cfg.Fetch.Strategies)
	}
	if cfg.TTS.Sherpa.Speakers != 10 || cfg.Cache.MaxEntries != 500 || !cfg.Cache.Enabled {
		t.Errorf("sherpa/cache 配置不正确: %+v %+v", cfg.TTS.Sherpa, cfg.Cache)
	}
	if home, _ := os.UserHomeDir(); home != "" && cfg.Cache.Path != filepath.Join(home, ".threadreader", "cache.db") {
		t.Errorf("~ 未展开: %s", cfg.Cache.Path)
	}
}
