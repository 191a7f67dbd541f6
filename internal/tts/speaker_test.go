package tts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/iabetor/threadreader/internal/playback"
)

type fakeEngine struct {
	mu         sync.Mutex
	voices     []Voice
	voicesErr  error
	voiceCalls int
	synthCalls int
	lastVoice  Voice
	lastRate   float64
	synthErr   error
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Voices(ctx context.Context) ([]Voice, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.voiceCalls++
	return e.voices, e.voicesErr
}

func (e *fakeEngine) Synthesize(ctx context.Context, text string, voice Voice, rate float64) ([]float32, int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.synthCalls++
	e.lastVoice = voice
	e.lastRate = rate
	if e.synthErr != nil {
		return nil, 0, e.synthErr
	}
	return []float32{0.1, 0.2}, 16000, nil
}

// fakeOutput 的 Play 阻塞到 release 或 ctx 取消。
type fakeOutput struct {
	mu      sync.Mutex
	played  int
	paused  bool
	resumes int
	playing chan struct{}
	release chan struct{}
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{playing: make(chan struct{}, 8), release: make(chan struct{}, 8)}
}

func (o *fakeOutput) Play(ctx context.Context, samples []float32, sampleRate int) error {
	o.mu.Lock()
	o.played++
	o.mu.Unlock()
	o.playing <- struct{}{}
	select {
	case <-o.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *fakeOutput) Pause() {
	o.mu.Lock()
	o.paused = true
	o.mu.Unlock()
}

func (o *fakeOutput) Resume() {
	o.mu.Lock()
	o.paused = false
	o.resumes++
	o.mu.Unlock()
}

func (o *fakeOutput) isPaused() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.paused
}

type memCache struct {
	mu    sync.Mutex
	items map[string][]float32
	puts  int
}

func (c *memCache) Get(ctx context.Context, key string) ([]float32, int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.items[key]
	return s, 16000, ok, nil
}

func (c *memCache) Put(ctx context.Context, key, engine, voice string, samples []float32, sampleRate int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = samples
	c.puts++
	return nil
}

func testVoices() []Voice {
	return []Voice{
		{ID: "aria", Lang: "en-US"},
		{ID: "denise", Lang: "fr-FR"},
		{ID: "guy", Lang: "en-US"},
	}
}

func waitPlaying(t *testing.T, o *fakeOutput) {
	t.Helper()
	select {
	case <-o.playing:
	case <-time.After(2 * time.Second):
		t.Fatal("等待播放超时")
	}
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("等待朗读结束超时")
	}
	return nil
}

func TestSpeaker_SpeakSelectsVoiceBySlot(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)

	done := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "bob says: hi", Slot: 1, Rate: 1.25})
	waitPlaying(t, out)
	out.release <- struct{}{}
	if err := waitDone(t, done); err != nil {
		t.Fatalf("朗读失败: %v", err)
	}

	if eng.lastVoice.ID != "guy" {
		t.Errorf("槽位 1 应使用第二个英文音色 guy，得到 %s", eng.lastVoice.ID)
	}
	if eng.lastRate != 1.25 {
		t.Errorf("语速 = %v", eng.lastRate)
	}
}

func TestSpeaker_ReadyQueriesOnce(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)

	for i := 0; i < 3; i++ {
		done := sp.Speak(context.Background(), playback.Utterance{ID: fmt.Sprint(i), Text: "x", Slot: i})
		waitPlaying(t, out)
		out.release <- struct{}{}
		waitDone(t, done)
	}
	if eng.voiceCalls != 1 {
		t.Errorf("音色列表应只查询一次，实际 %d 次", eng.voiceCalls)
	}
}

func TestSpeaker_ReadyRetriesAfterError(t *testing.T) {
	eng := &fakeEngine{voicesErr: errors.New("offline")}
	sp := NewSpeaker(eng, newFakeOutput())

	if _, err := sp.Ready(context.Background()); err == nil {
		t.Fatal("应返回错误")
	}
	eng.voicesErr = nil
	eng.voices = testVoices()
	if _, err := sp.Ready(context.Background()); err != nil {
		t.Fatalf("恢复后应成功: %v", err)
	}
	if eng.voiceCalls != 2 {
		t.Errorf("voiceCalls = %d, want 2", eng.voiceCalls)
	}
}

func TestSpeaker_NoVoices(t *testing.T) {
	eng := &fakeEngine{}
	sp := NewSpeaker(eng, newFakeOutput())
	done := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "x"})
	if err := waitDone(t, done); !errors.Is(err, ErrNoVoices) {
		t.Fatalf("期望 ErrNoVoices，得到 %v", err)
	}
}

func TestSpeaker_SynthesisErrorReported(t *testing.T) {
	eng := &fakeEngine{voices: testVoices(), synthErr: errors.New("quota")}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)
	done := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "x"})
	if err := waitDone(t, done); err == nil {
		t.Fatal("合成失败应通过 channel 报告")
	}
	if out.played != 0 {
		t.Error("合成失败时不应播放")
	}
}

func TestSpeaker_Cancel(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)

	done := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "x"})
	waitPlaying(t, out)
	sp.Cancel()
	if err := waitDone(t, done); !errors.Is(err, context.Canceled) {
		t.Fatalf("期望 context.Canceled，得到 %v", err)
	}
	sp.Cancel() // 没有进行中的语句时无副作用
}

func TestSpeaker_NewSpeakSupersedesOld(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)

	first := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "one"})
	waitPlaying(t, out)
	second := sp.Speak(context.Background(), playback.Utterance{ID: "2", Text: "two"})

	if err := waitDone(t, first); !errors.Is(err, context.Canceled) {
		t.Fatalf("旧语句应被取消，得到 %v", err)
	}
	waitPlaying(t, out)
	out.release <- struct{}{}
	if err := waitDone(t, second); err != nil {
		t.Fatalf("新语句应正常结束: %v", err)
	}
}

func TestSpeaker_PauseResume(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	sp := NewSpeaker(eng, out)

	done := sp.Speak(context.Background(), playback.Utterance{ID: "1", Text: "x"})
	waitPlaying(t, out)
	sp.Pause()
	if !out.isPaused() {
		t.Error("Pause 应暂停输出")
	}
	sp.Resume()
	if out.isPaused() {
		t.Error("Resume 应恢复输出")
	}
	out.release <- struct{}{}
	waitDone(t, done)

	// 新语句总是从非暂停状态开始
	sp.Pause()
	done = sp.Speak(context.Background(), playback.Utterance{ID: "2", Text: "y"})
	waitPlaying(t, out)
	if out.isPaused() {
		t.Error("新语句开始时输出不应处于暂停")
	}
	out.release <- struct{}{}
	waitDone(t, done)
}

func TestSpeaker_UsesCache(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	out := newFakeOutput()
	c := &memCache{items: make(map[string][]float32)}
	key := func(engine, voice string, rate float64, text string) string {
		return fmt.Sprintf("%s|%s|%v|%s", engine, voice, rate, text)
	}
	sp := NewSpeaker(eng, out, WithCache(c, key))

	speak := func(id, text string, rate float64) {
		done := sp.Speak(context.Background(), playback.Utterance{ID: id, Text: text, Rate: rate})
		waitPlaying(t, out)
		out.release <- struct{}{}
		if err := waitDone(t, done); err != nil {
			t.Fatalf("朗读失败: %v", err)
		}
	}

	speak("1", "alice says: hi", 1)
	speak("2", "alice says: hi", 1)
	if eng.synthCalls != 1 {
		t.Errorf("相同内容第二次应命中缓存，synthCalls = %d", eng.synthCalls)
	}
	speak("3", "alice says: hi", 1.5)
	if eng.synthCalls != 2 {
		t.Errorf("语速不同不应命中缓存，synthCalls = %d", eng.synthCalls)
	}
	if c.puts != 2 {
		t.Errorf("puts = %d, want 2", c.puts)
	}
	if _, ok := c.items["fake|aria|1|alice says: hi"]; !ok {
		t.Errorf("缓存键不正确: %v", c.items)
	}
}

func TestSpeaker_WithLanguage(t *testing.T) {
	eng := &fakeEngine{voices: testVoices()}
	sp := NewSpeaker(eng, newFakeOutput(), WithLanguage("fr"))
	v, err := sp.VoiceFor(context.Background(), 4)
	if err != nil || v.ID != "denise" {
		t.Errorf("VoiceFor = %v, %v", v.ID, err)
	}
}
