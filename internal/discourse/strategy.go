package discourse

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Strategy 是一种获取帖子 JSON 的方式。
type Strategy interface {
	Name() string
	// Attempt 通过该方式请求 target（帖子 JSON 地址）并解析。
	Attempt(ctx context.Context, target string) (*Topic, error)
}

// Doer 是 *http.Client 的最小接口，便于测试替换。
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Direct 直接请求目标地址。
type Direct struct {
	Client    Doer
	UserAgent string
}

func (d *Direct) Name() string { return "direct" }

func (d *Direct) Attempt(ctx context.Context, target string) (*Topic, error) {
	return getTopic(ctx, d.Client, target, d.UserAgent)
}

// Relay 通过中转代理请求，Template 中的 {url} 会被替换为转义后的目标地址。
type Relay struct {
	Label     string
	Template  string
	Client    Doer
	UserAgent string
}

func (r *Relay) Name() string { return r.Label }

// Wrap 返回经过代理包装后的请求地址。
func (r *Relay) Wrap(target string) string {
	return strings.ReplaceAll(r.Template, "{url}", url.QueryEscape(target))
}

func (r *Relay) Attempt(ctx context.Context, target string) (*Topic, error) {
	return getTopic(ctx, r.Client, r.Wrap(target), r.UserAgent)
}

// getTopic 发起 GET 请求并把响应体解析为 Topic。
// 非 2xx、网络错误、非 JSON 内容都返回错误，由调用方决定是否换下一种方式。
func getTopic(ctx context.Context, client Doer, target, userAgent string) (*Topic, error) {
	resp, err := get(ctx, client, target, userAgent, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	topic := &Topic{}
	if err := json.Unmarshal(body, topic); err != nil {
		return nil, fmt.Errorf("解析 JSON 失败: %w", err)
	}
	return topic, nil
}

func get(ctx context.Context, client Doer, target, userAgent, accept string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, &StatusError{Code: resp.StatusCode}
	}
	return resp, nil
}
