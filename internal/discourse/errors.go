package discourse

import (
	"fmt"
	"strings"
)

// InvalidURLError 表示输入的帖子地址无法识别，用户可自行修正。
type InvalidURLError struct {
	URL    string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("无效的帖子地址 %q: %s", e.URL, e.Reason)
}

// AttemptError 记录某个抓取方式的一次失败。
type AttemptError struct {
	Strategy string
	Err      error
}

func (e AttemptError) Error() string {
	return e.Strategy + ": " + e.Err.Error()
}

func (e AttemptError) Unwrap() error { return e.Err }

// ThreadUnavailableError 表示所有抓取方式都失败了。
// Unwrap 返回最后一次失败的原因。
type ThreadUnavailableError struct {
	URL      string
	Attempts []AttemptError
}

func (e *ThreadUnavailableError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return fmt.Sprintf("无法获取帖子 %s（共尝试 %d 种方式）: %s", e.URL, len(e.Attempts), strings.Join(parts, "; "))
}

func (e *ThreadUnavailableError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// StatusError 表示服务端返回了非 2xx 状态码。
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}
