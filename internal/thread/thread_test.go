package thread

import (
	"testing"

	"github.com/iabetor/threadreader/internal/discourse"
)

func sampleTopic() *discourse.Topic {
	return &discourse.Topic{
		ID:    42,
		Title: "GIL",
		PostStream: discourse.PostStream{Posts: []discourse.RawPost{
			{ID: 1, PostNumber: 1, Name: "Alice", Username: "alice", Cooked: "<p>Hello  <em>all</em></p>"},
			{ID: 2, PostNumber: 2, Username: "bob", Cooked: `<aside class="quote"><blockquote>Hello all</blockquote></aside><p>Hi Alice</p>`},
			{ID: 3, PostNumber: 3, Name: "Alice", Username: "alice", Cooked: "<p>Bye</p>"},
		}},
	}
}

func TestBuild(t *testing.T) {
	th, err := Build(sampleTopic(), 0)
	if err != nil {
		t.Fatalf("Build 失败: %v", err)
	}
	if th.ID != 42 || th.Title != "GIL" || th.Len() != 3 {
		t.Fatalf("Thread 不正确: %+v", th)
	}

	want := []struct {
		number   int
		author   string
		username string
		content  string
	}{
		{1, "Alice", "alice", "Hello all"},
		{2, "bob", "bob", "Hi Alice"},
		{3, "Alice", "alice", "Bye"},
	}
	for i, w := range want {
		p := th.Posts[i]
		if p.Number != w.number || p.Author != w.author || p.Username != w.username || p.Content != w.content {
			t.Errorf("Posts[%d] = %+v, want %+v", i, p, w)
		}
	}
	if got := th.Posts[1].Narration(); got != "bob says: Hi Alice" {
		t.Errorf("Narration = %q", got)
	}
}

func TestBuild_MaxPosts(t *testing.T) {
	th, err := Build(sampleTopic(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if th.Len() != 2 {
		t.Errorf("maxPosts=2 时应保留 2 条，得到 %d", th.Len())
	}
}

func TestBuild_Empty(t *testing.T) {
	if _, err := Build(&discourse.Topic{ID: 1}, 0); err == nil {
		t.Error("没有回复时应返回错误")
	}
	if _, err := Build(nil, 0); err == nil {
		t.Error("nil 应返回错误")
	}
}

func TestThread_Author(t *testing.T) {
	th, _ := Build(sampleTopic(), 0)
	if got := th.Author("alice"); got != "Alice" {
		t.Errorf("Author(alice) = %s", got)
	}
	if got := th.Author("ghost"); got != "ghost" {
		t.Errorf("未知用户应返回用户名，得到 %s", got)
	}
}
