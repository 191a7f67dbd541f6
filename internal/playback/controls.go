package playback

// SpeedSteps 可选语速，SpeedUp/SpeedDown 在其中逐级切换。
var SpeedSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 2.0}

// ControlState 各控制按钮当前是否可用。
type ControlState struct {
	Play        bool
	PlayLabel   string // Play / Pause / Resume
	Stop        bool
	Prev        bool
	Next        bool
	SkipBack    bool
	SkipForward bool
}

// Controls 把用户操作翻译为 Sequencer 调用，本身不持有状态。
type Controls struct {
	seq *Sequencer
}

// NewControls 创建控制层。
func NewControls(seq *Sequencer) *Controls {
	return &Controls{seq: seq}
}

// Toggle 播放/暂停切换，返回操作后的状态。
func (c *Controls) Toggle() Status {
	switch c.seq.Status() {
	case StatusPlaying:
		c.seq.Pause()
	case StatusPaused:
		c.seq.Resume()
	default:
		c.seq.Play()
	}
	return c.seq.Status()
}

func (c *Controls) Stop() { c.seq.Stop() }
func (c *Controls) Next() { c.seq.Next() }
func (c *Controls) Prev() { c.seq.Prev() }

// SetRate 设置语速，非正数返回 false。
func (c *Controls) SetRate(rate float64) bool { return c.seq.SetRate(rate) }

// SpeedUp 切换到下一档更快的语速，已是最快时不变。
func (c *Controls) SpeedUp() float64 {
	rate := c.seq.Rate()
	for _, r := range SpeedSteps {
		if r > rate {
			c.seq.SetRate(r)
			return r
		}
	}
	return rate
}

// SpeedDown 切换到下一档更慢的语速，已是最慢时不变。
func (c *Controls) SpeedDown() float64 {
	rate := c.seq.Rate()
	for i := len(SpeedSteps) - 1; i >= 0; i-- {
		if SpeedSteps[i] < rate {
			c.seq.SetRate(SpeedSteps[i])
			return SpeedSteps[i]
		}
	}
	return rate
}

// Enabled 根据当前状态计算按钮可用性。
// 播放中禁用上一条/下一条，只允许快进/快退；未加载内容时全部禁用。
func (c *Controls) Enabled() ControlState {
	st := c.seq.State()
	if st.Total == 0 {
		return ControlState{PlayLabel: "Play"}
	}

	playing := st.Status == StatusPlaying
	cs := ControlState{
		Play:        true,
		PlayLabel:   "Play",
		Stop:        playing || st.Status == StatusPaused,
		Prev:        !playing && st.Index > 0,
		Next:        !playing && st.Index < st.Total-1,
		SkipBack:    playing,
		SkipForward: playing,
	}
	switch st.Status {
	case StatusPlaying:
		cs.PlayLabel = "Pause"
	case StatusPaused:
		cs.PlayLabel = "Resume"
	}
	return cs
}
