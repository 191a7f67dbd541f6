package audio

import (
	"sync/atomic"
	"testing"
)

func TestPCMSource_DrainsBeforeDone(t *testing.T) {
	var paused atomic.Bool
	src := newPCMSource([]byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, 2, &paused)
	out := make([]byte, 4)

	// 10 字节数据需要 3 个周期，之后再输出 2 个静音周期
	want := []bool{false, false, false, false, true}
	for i, w := range want {
		if got := src.fill(out); got != w {
			t.Fatalf("第 %d 个周期 fill = %v, want %v", i, got, w)
		}
		if i == 2 && (out[0] != 9 || out[1] != 10 || out[2] != 0 || out[3] != 0) {
			t.Errorf("最后一个数据周期 = %v", out)
		}
	}
}

func TestPCMSource_PauseHoldsPosition(t *testing.T) {
	var paused atomic.Bool
	src := newPCMSource([]byte{1, 2, 3, 4}, 1, &paused)
	out := make([]byte, 2)

	src.fill(out)
	paused.Store(true)
	for i := 0; i < 3; i++ {
		if src.fill(out) {
			t.Fatal("暂停期间不应结束")
		}
		if out[0] != 0 || out[1] != 0 {
			t.Errorf("暂停期间应输出静音，得到 %v", out)
		}
	}
	paused.Store(false)
	src.fill(out)
	if out[0] != 3 || out[1] != 4 {
		t.Errorf("继续后应从暂停位置播放，得到 %v", out)
	}
	if !src.fill(out) {
		t.Error("静音周期之后应结束")
	}
}
