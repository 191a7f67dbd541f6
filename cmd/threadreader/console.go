package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/iabetor/threadreader/internal/playback"
	"github.com/iabetor/threadreader/internal/session"
)

// errQuit 用户输入 q 退出。
var errQuit = errors.New("quit")

type action int

const (
	actStatus action = iota
	actToggle
	actStop
	actNext
	actPrev
	actFaster
	actSlower
	actRate
	actLoad
	actRoster
	actHelp
	actQuit
)

type command struct {
	action action
	rate   float64
	url    string
}

// parseCommand 解析一行输入。单独的空格表示播放/暂停，空行显示当前状态。
func parseCommand(line string) (command, error) {
	raw := strings.TrimRight(line, "\r\n")
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		if raw != "" {
			return command{action: actToggle}, nil
		}
		return command{action: actStatus}, nil
	}

	key, arg, _ := strings.Cut(trimmed, " ")
	arg = strings.TrimSpace(arg)
	switch strings.ToLower(key) {
	case "p", "play", "pause":
		return command{action: actToggle}, nil
	case "s", "stop":
		return command{action: actStop}, nil
	case "n", "next":
		return command{action: actNext}, nil
	case "b", "prev":
		return command{action: actPrev}, nil
	case "+":
		return command{action: actFaster}, nil
	case "-":
		return command{action: actSlower}, nil
	case "r", "rate":
		rate, err := strconv.ParseFloat(arg, 64)
		if err != nil || rate <= 0 {
			return command{}, fmt.Errorf("语速必须为正数: %q", arg)
		}
		return command{action: actRate, rate: rate}, nil
	case "l", "load":
		if arg == "" {
			return command{}, errors.New("用法: l <帖子地址>")
		}
		return command{action: actLoad, url: arg}, nil
	case "a", "authors":
		return command{action: actRoster}, nil
	case "h", "?", "help":
		return command{action: actHelp}, nil
	case "q", "quit", "exit":
		return command{action: actQuit}, nil
	}
	return command{}, fmt.Errorf("未知命令: %s（输入 h 查看帮助）", key)
}

// console 是终端前端，只负责把输入转成会话操作并打印状态。
type console struct {
	sess *session.Session
	mu   sync.Mutex
	out  io.Writer
}

func newConsole(sess *session.Session, out io.Writer) *console {
	return &console{sess: sess, out: out}
}

// loop 逐行执行命令，直到 q、输入结束或 ctx 取消。
func (c *console) loop(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			cmd, err := parseCommand(line)
			if err != nil {
				c.printf("%v\n", err)
				continue
			}
			if cmd.action == actQuit {
				return errQuit
			}
			c.execute(ctx, cmd)
		}
	}
}

func (c *console) execute(ctx context.Context, cmd command) {
	switch cmd.action {
	case actStatus:
		c.printState(c.sess.State())
	case actToggle:
		c.sess.TogglePlayback()
	case actStop:
		c.sess.Stop()
	case actNext:
		c.sess.Next()
	case actPrev:
		c.sess.Prev()
	case actFaster:
		c.printf("语速 %.2fx\n", c.sess.SpeedUp())
	case actSlower:
		c.printf("语速 %.2fx\n", c.sess.SpeedDown())
	case actRate:
		c.sess.SetRate(cmd.rate)
		c.printf("语速 %.2fx\n", cmd.rate)
	case actLoad:
		c.load(ctx, cmd.url)
	case actRoster:
		c.printRoster()
	case actHelp:
		c.printHelp()
	}
}

// load 加载帖子并打印作者列表，失败时原帖子继续可用。
func (c *console) load(ctx context.Context, url string) {
	c.printf("正在加载 %s ...\n", url)
	t, err := c.sess.LoadThread(ctx, url)
	if err != nil {
		c.printf("加载失败: %v\n", err)
		return
	}
	c.printf("《%s》共 %d 条回复\n", t.Title, t.Len())
	c.printRoster()
}

func (c *console) printRoster() {
	roster := c.sess.Roster()
	if len(roster) == 0 {
		c.printf("尚未加载帖子\n")
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range roster {
		fmt.Fprintf(c.out, "  %-24s %3d 条  %s\n", r.Author, r.Count, r.SlotName)
	}
}

// printState 打印播放进度，作为 Sequencer 的状态回调。
func (c *console) printState(st playback.State) {
	if st.Total == 0 {
		return
	}
	line := fmt.Sprintf("[%s] %d/%d  %.2fx", st.Status, st.Position(), st.Total, st.Rate)
	if post, _, ok := c.sess.Current(); ok {
		line += "  " + post.Author
	}
	c.printf("%s\n", line)
}

func (c *console) printHelp() {
	c.printf(`命令:
  空格 / p     播放、暂停、继续
  s            停止
  n / b        下一条 / 上一条
  + / -        加速 / 减速
  r <倍速>     设置语速，如 r 1.5
  l <地址>     加载帖子
  a            作者列表
  q            退出
`)
}

func (c *console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}
