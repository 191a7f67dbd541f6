// Package content 把帖子的 HTML 转换为适合朗读的纯文本。
package content

import (
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/iabetor/threadreader/internal/logger"
)

// MalformedContentError 表示 HTML 无法按文档结构解析。
// 不会返回给调用方，Normalize 遇到时改用逐词元提取。
type MalformedContentError struct {
	Err error
}

func (e *MalformedContentError) Error() string {
	return fmt.Sprintf("HTML 解析失败: %v", e.Err)
}

func (e *MalformedContentError) Unwrap() error { return e.Err }

// 重新解析时会被当作标签或实体的字符序列
var markupLikeRe = regexp.MustCompile(`([<&])([A-Za-z#/!?])`)

// 前后需要补空格的块级元素，避免相邻段落的文字粘在一起
var blockElements = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Li: true, atom.Ul: true, atom.Ol: true,
	atom.Blockquote: true, atom.Pre: true, atom.Aside: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Tr: true, atom.Td: true, atom.Th: true, atom.Table: true,
}

// Normalize 去掉引用块（含嵌套引用），提取文字，合并连续空白并去除首尾空白。
// 幂等：对输出再次调用返回相同结果。永不失败。
func Normalize(s string) string {
	text, err := extract(s)
	if err != nil {
		logger.Debugf("[content] %v，改用逐词元提取", err)
		text = extractTokens(s)
	}
	return stabilize(text)
}

// stabilize 保证输出再次作为 HTML 解析时不变。
// 只有确实会被二次解析改变时才在 < 或 & 后插入空格，普通文本原样返回。
func stabilize(text string) string {
	again, err := extract(text)
	if err == nil && again == text {
		return text
	}
	return collapse(markupLikeRe.ReplaceAllString(text, "$1 $2"))
}

// extract 按 HTML 片段解析并提取文字。
func extract(s string) (string, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return "", &MalformedContentError{Err: err}
	}

	var b strings.Builder
	for _, n := range nodes {
		writeText(&b, n)
	}
	return collapse(b.String()), nil
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if isQuote(n) || n.DataAtom == atom.Script || n.DataAtom == atom.Style {
			return
		}
	case html.CommentNode, html.DoctypeNode:
		return
	}

	block := n.Type == html.ElementNode && blockElements[n.DataAtom]
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

// isQuote 判断是否为引用回复块 <aside class="quote">。
func isQuote(n *html.Node) bool {
	if n.DataAtom != atom.Aside {
		return false
	}
	for _, a := range n.Attr {
		if a.Key == "class" && hasClass(a.Val, "quote") {
			return true
		}
	}
	return false
}

func hasClass(classAttr, name string) bool {
	for _, c := range strings.Fields(classAttr) {
		if c == name {
			return true
		}
	}
	return false
}

// extractTokens 逐词元提取文字，引用块按嵌套深度跳过。
func extractTokens(s string) string {
	z := html.NewTokenizer(strings.NewReader(s))
	var b strings.Builder
	skipDepth := 0 // >0 表示处于引用块内，数值为 aside 嵌套层数
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				logger.Debugf("[content] 词元解析中断: %v", z.Err())
			}
			return collapse(b.String())
		case html.StartTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Aside {
				if skipDepth > 0 || tokenIsQuote(tok) {
					skipDepth++
				}
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte(' ')
			}
		case html.SelfClosingTagToken:
			if blockElements[z.Token().DataAtom] {
				b.WriteByte(' ')
			}
		case html.EndTagToken:
			tok := z.Token()
			if tok.DataAtom == atom.Aside && skipDepth > 0 {
				skipDepth--
			}
			if blockElements[tok.DataAtom] {
				b.WriteByte(' ')
			}
		case html.TextToken:
			if skipDepth == 0 {
				b.Write(z.Text())
			}
		}
	}
}

func tokenIsQuote(tok html.Token) bool {
	for _, a := range tok.Attr {
		if a.Key == "class" && hasClass(a.Val, "quote") {
			return true
		}
	}
	return false
}

// collapse 合并连续空白为单个空格并去除首尾空白。
func collapse(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.Join(strings.Fields(s), " ")
}
