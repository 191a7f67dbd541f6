// Package thread 定义朗读使用的帖子模型。
package thread

import (
	"fmt"
	"time"

	"github.com/iabetor/threadreader/internal/content"
	"github.com/iabetor/threadreader/internal/discourse"
)

// Thread 一个已加载的帖子，构建后不再修改。
type Thread struct {
	ID    int64
	Title string
	Posts []Post
}

// Post 一条可朗读的回复，按接口返回的楼层顺序排列。
type Post struct {
	ID        int64
	Number    int
	Author    string // 显示名
	Username  string // 稳定标识，用于分配音色
	Content   string // 已规范化的纯文本
	CreatedAt time.Time
}

// Narration 返回朗读文本 "<author> says: <content>"。
func (p Post) Narration() string {
	return p.Author + " says: " + p.Content
}

// Build 把原始数据转换为 Thread，maxPosts > 0 时只保留前 maxPosts 条。
func Build(topic *discourse.Topic, maxPosts int) (*Thread, error) {
	if topic == nil {
		return nil, fmt.Errorf("帖子数据为空")
	}

	raw := topic.PostStream.Posts
	if maxPosts > 0 && len(raw) > maxPosts {
		raw = raw[:maxPosts]
	}

	posts := make([]Post, 0, len(raw))
	for _, p := range raw {
		posts = append(posts, Post{
			ID:        p.ID,
			Number:    p.PostNumber,
			Author:    p.DisplayName(),
			Username:  p.Username,
			Content:   content.Normalize(p.Cooked),
			CreatedAt: p.CreatedAt,
		})
	}
	if len(posts) == 0 {
		return nil, fmt.Errorf("帖子 %d 没有任何回复", topic.ID)
	}

	return &Thread{ID: topic.ID, Title: topic.Title, Posts: posts}, nil
}

// Len 返回回复数量。
func (t *Thread) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Posts)
}

// Author 按用户名查找显示名，找不到时返回用户名本身。
func (t *Thread) Author(username string) string {
	for _, p := range t.Posts {
		if p.Username == username {
			return p.Author
		}
	}
	return username
}
