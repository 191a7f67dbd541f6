package playback

// Status 表示播放器的当前状态。
type Status int

const (
	// StatusIdle 未开始或已停止。
	StatusIdle Status = iota
	// StatusPlaying 正在逐条朗读。
	StatusPlaying
	// StatusPaused 暂停在当前帖子，可继续。
	StatusPaused
	// StatusCompleted 已读完最后一条。
	StatusCompleted
)

var statusNames = [...]string{
	"Idle",
	"Playing",
	"Paused",
	"Completed",
}

func (s Status) String() string {
	if int(s) >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "Unknown"
}

// State 是播放器状态快照。
type State struct {
	Status Status
	Index  int // 当前帖子下标，未加载时为 0
	Total  int
	Rate   float64
	Load   uint64 // 第几次 Load，0 表示尚未加载
}

// Position 返回从 1 开始的序号，便于展示 "Post 3/10"。
func (s State) Position() int {
	if s.Total == 0 {
		return 0
	}
	return s.Index + 1
}

// validTransition 检查状态转换是否合法：
//
//	Idle/Paused/Completed → Playing   （play）
//	Playing               → Paused    （pause）
//	Playing/Paused        → Completed （读完最后一条）
//	任意                   → Idle      （stop、加载新帖子、从 Completed 切换帖子）
func validTransition(from, to Status) bool {
	if to == StatusIdle {
		return true
	}
	switch to {
	case StatusPlaying:
		return from == StatusIdle || from == StatusPaused || from == StatusCompleted
	case StatusPaused:
		return from == StatusPlaying
	case StatusCompleted:
		return from == StatusPlaying || from == StatusPaused
	}
	return false
}
