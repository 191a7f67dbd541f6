package main

import (
	"fmt"

	"github.com/iabetor/threadreader/internal/audio"
	"github.com/iabetor/threadreader/internal/cache"
	"github.com/iabetor/threadreader/internal/config"
	"github.com/iabetor/threadreader/internal/discourse"
	"github.com/iabetor/threadreader/internal/logger"
	"github.com/iabetor/threadreader/internal/session"
	"github.com/iabetor/threadreader/internal/tts"
)

// app 组装会话用到的全部组件。
type app struct {
	sess    *session.Session
	speaker *tts.Speaker
	player  *audio.Player
	store   *cache.Store
	closers []func()
}

func newApp(cfg *config.Config) (*app, error) {
	a := &app{}

	fetcher, err := discourse.NewFetcherFromConfig(cfg.Fetch, nil)
	if err != nil {
		return nil, err
	}
	logger.Infof("[main] 获取方式: %v", fetcher.Strategies())

	engine, err := newEngine(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	if c, ok := engine.(interface{ Close() }); ok {
		a.closers = append(a.closers, c.Close)
	}

	a.player, err = audio.NewPlayer(cfg.Audio.Channels)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, a.player.Close)

	opts := []tts.SpeakerOption{tts.WithLanguage(cfg.Voice.Language)}
	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.Cache.Path, cfg.Cache.MaxEntries)
		if err != nil {
			logger.Warnf("[main] 缓存不可用，继续运行: %v", err)
		} else {
			a.store = store
			a.closers = append(a.closers, func() { store.Close() })
			opts = append(opts, tts.WithCache(store, cache.Key))
		}
	}

	a.speaker = tts.NewSpeaker(engine, a.player, opts...)
	a.sess = session.New(fetcher, a.speaker, session.OptionsFromConfig(cfg))
	return a, nil
}

// newEngine 按配置创建合成引擎。
func newEngine(cfg *config.Config) (tts.Engine, error) {
	switch cfg.TTS.Engine {
	case "edge":
		return tts.NewEdgeEngine(cfg.TTS.Edge.Voices)
	case "tencent":
		return tts.NewTencentEngine(tts.TencentConfig{
			SecretID:   cfg.TTS.Tencent.SecretID,
			SecretKey:  cfg.TTS.Tencent.SecretKey,
			Region:     cfg.TTS.Tencent.Region,
			VoiceTypes: cfg.TTS.Tencent.VoiceTypes,
		})
	case "sherpa":
		return tts.NewSherpaEngine(tts.SherpaConfig{
			Model:      cfg.TTS.Sherpa.Model,
			Tokens:     cfg.TTS.Sherpa.Tokens,
			Lexicon:    cfg.TTS.Sherpa.Lexicon,
			DataDir:    cfg.TTS.Sherpa.DataDir,
			NumThreads: cfg.TTS.Sherpa.NumThreads,
			Speakers:   cfg.TTS.Sherpa.Speakers,
			Lang:       cfg.Voice.Language,
		})
	}
	return nil, fmt.Errorf("未知的 TTS 引擎: %s", cfg.TTS.Engine)
}

// Close 按创建的逆序释放资源。
func (a *app) Close() {
	if a.sess != nil {
		a.sess.Stop()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
