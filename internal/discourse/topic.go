package discourse

import "time"

// Topic 是帖子接口返回的原始数据，只保留朗读需要的字段。
type Topic struct {
	ID         int64      `json:"id"`
	Title      string     `json:"title"`
	PostStream PostStream `json:"post_stream"`
}

// PostStream 帖子列表。
type PostStream struct {
	Posts []RawPost `json:"posts"`
}

// RawPost 单条回复，Cooked 是服务端渲染后的 HTML。
type RawPost struct {
	ID         int64     `json:"id"`
	PostNumber int       `json:"post_number"`
	Name       string    `json:"name"`
	Username   string    `json:"username"`
	Cooked     string    `json:"cooked"`
	CreatedAt  time.Time `json:"created_at"`
}

// DisplayName 优先使用昵称，没有时用用户名。
func (p RawPost) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}
