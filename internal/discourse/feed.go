package discourse

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

// Feed 通过帖子的 RSS 输出获取内容，作为 JSON 接口不可用时的备用方式。
// RSS 中没有昵称，作者统一使用用户名。
type Feed struct {
	Client    Doer
	UserAgent string
	parser    *gofeed.Parser
}

func (f *Feed) Name() string { return "feed" }

// Attempt 的 target 仍是 JSON 地址，这里换成同路径的 .rss。
func (f *Feed) Attempt(ctx context.Context, target string) (*Topic, error) {
	feedURL := strings.TrimSuffix(target, ".json") + ".rss"

	resp, err := get(ctx, f.Client, feedURL, f.UserAgent, "application/rss+xml, application/xml")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if f.parser == nil {
		f.parser = gofeed.NewParser()
	}
	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析 RSS 失败: %w", err)
	}
	return topicFromFeed(feed, target), nil
}

// topicFromFeed 把 RSS 条目转换为与 JSON 接口一致的结构，按楼层号排序。
func topicFromFeed(feed *gofeed.Feed, target string) *Topic {
	topic := &Topic{Title: feed.Title}
	if id, err := strconv.ParseInt(strings.TrimSuffix(path.Base(target), ".json"), 10, 64); err == nil {
		topic.ID = id
	}

	posts := make([]RawPost, 0, len(feed.Items))
	for i, item := range feed.Items {
		number := postNumberFromLink(item.Link)
		if number == 0 {
			number = i + 1
		}
		username := feedAuthor(item)
		cooked := item.Content
		if cooked == "" {
			cooked = item.Description
		}
		var created time.Time
		if item.PublishedParsed != nil {
			created = *item.PublishedParsed
		}
		posts = append(posts, RawPost{
			ID:         int64(number),
			PostNumber: number,
			Username:   username,
			Cooked:     cooked,
			CreatedAt:  created,
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PostNumber < posts[j].PostNumber
	})
	topic.PostStream.Posts = posts
	return topic
}

func feedAuthor(item *gofeed.Item) string {
	if item.Author != nil && item.Author.Name != "" {
		return strings.TrimPrefix(item.Author.Name, "@")
	}
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Creator) > 0 {
		return strings.TrimPrefix(item.DublinCoreExt.Creator[0], "@")
	}
	return "unknown"
}

// postNumberFromLink 从 /t/<slug>/<id>/<n> 形式的链接中取楼层号，取不到返回 0。
func postNumberFromLink(link string) int {
	u, err := url.Parse(link)
	if err != nil {
		return 0
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, p := range parts {
		if p != "t" || i+3 >= len(parts) {
			continue
		}
		if n, err := strconv.Atoi(parts[i+3]); err == nil {
			return n
		}
	}
	return 0
}
