package discourse

import (
	"net/url"
	"regexp"
)

var (
	// /t/<slug>/<id>，优先取数字 ID
	topicWithIDRe = regexp.MustCompile(`/t/[^/]+/(\d+)`)
	// /t/<slug>
	topicSlugRe = regexp.MustCompile(`/t/([^/]+)`)
)

// Target 是解析后的帖子地址。
type Target struct {
	Base       string // 如 https://discuss.python.org
	Identifier string // 数字 ID 或 slug
}

// JSONURL 返回帖子的 JSON 接口地址。
func (t Target) JSONURL() string {
	return t.Base + "/t/" + t.Identifier + ".json"
}

// FeedURL 返回帖子的 RSS 地址。
func (t Target) FeedURL() string {
	return t.Base + "/t/" + t.Identifier + ".rss"
}

// ParseURL 从论坛帖子地址中解析出站点根地址和帖子标识。
func ParseURL(raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, &InvalidURLError{URL: raw, Reason: err.Error()}
	}
	if u.Scheme == "" || u.Host == "" {
		return Target{}, &InvalidURLError{URL: raw, Reason: "缺少协议或主机名"}
	}

	base := u.Scheme + "://" + u.Host
	if m := topicWithIDRe.FindStringSubmatch(u.Path); m != nil {
		return Target{Base: base, Identifier: m[1]}, nil
	}
	if m := topicSlugRe.FindStringSubmatch(u.Path); m != nil {
		return Target{Base: base, Identifier: m[1]}, nil
	}
	return Target{}, &InvalidURLError{URL: raw, Reason: "不是 /t/<slug> 或 /t/<slug>/<id> 形式"}
}
