package discourse

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/iabetor/threadreader/internal/config"
	"github.com/iabetor/threadreader/internal/logger"
)

// Fetcher 按固定顺序尝试各抓取方式，第一个成功的结果即返回。
// 每种方式只尝试一次，不重试、不退避；也不设超时，只能通过 ctx 取消。
type Fetcher struct {
	strategies []Strategy
}

// NewFetcher 使用给定的抓取方式列表创建 Fetcher。
func NewFetcher(strategies ...Strategy) *Fetcher {
	if len(strategies) == 0 {
		panic("discourse: 至少需要一种抓取方式")
	}
	return &Fetcher{strategies: strategies}
}

// NewFetcherFromConfig 根据配置构建抓取链。client 为 nil 时使用不带超时的默认客户端。
func NewFetcherFromConfig(cfg config.FetchConfig, client Doer) (*Fetcher, error) {
	if client == nil {
		client = &http.Client{}
	}
	configured := cfg.Strategies
	if len(configured) == 0 {
		configured = config.DefaultStrategies()
	}

	strategies := make([]Strategy, 0, len(configured))
	for _, s := range configured {
		switch s.Kind {
		case "direct":
			strategies = append(strategies, &Direct{Client: client, UserAgent: cfg.UserAgent})
		case "relay":
			if !strings.Contains(s.Template, "{url}") {
				return nil, fmt.Errorf("中转方式 %s 的模板缺少 {url}", s.Name)
			}
			strategies = append(strategies, &Relay{Label: s.Name, Template: s.Template, Client: client, UserAgent: cfg.UserAgent})
		case "feed":
			strategies = append(strategies, &Feed{Client: client, UserAgent: cfg.UserAgent})
		default:
			return nil, fmt.Errorf("未知的抓取方式类型: %s", s.Kind)
		}
	}
	return NewFetcher(strategies...), nil
}

// Strategies 返回抓取方式名称，按尝试顺序。
func (f *Fetcher) Strategies() []string {
	names := make([]string, len(f.strategies))
	for i, s := range f.strategies {
		names[i] = s.Name()
	}
	return names
}

// Fetch 解析帖子地址并获取原始数据。
// 地址无法识别返回 *InvalidURLError；所有方式都失败返回 *ThreadUnavailableError。
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Topic, error) {
	target, err := ParseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, err
	}
	jsonURL := target.JSONURL()

	unavailable := &ThreadUnavailableError{URL: jsonURL}
	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			unavailable.Attempts = append(unavailable.Attempts, AttemptError{Strategy: s.Name(), Err: err})
			break
		}

		topic, err := s.Attempt(ctx, jsonURL)
		if err != nil {
			logger.Warnf("[fetch] %s 获取失败，尝试下一种方式: %v", s.Name(), err)
			unavailable.Attempts = append(unavailable.Attempts, AttemptError{Strategy: s.Name(), Err: err})
			continue
		}

		logger.Infof("[fetch] 通过 %s 获取帖子 %s（%d 条回复）", s.Name(), target.Identifier, len(topic.PostStream.Posts))
		return topic, nil
	}

	logger.Errorf("[fetch] 所有抓取方式均失败: %s", jsonURL)
	return nil, unavailable
}
