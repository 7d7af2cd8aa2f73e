// Package textutil 提供纯文本处理的小工具：剥离 HTML、按字符截断。
package textutil

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// 遇到块级标签时补一个空格，避免相邻段落的文字粘在一起。
var blockTags = map[string]bool{
	"p": true, "br": true, "div": true, "li": true, "ul": true, "ol": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"tr": true, "td": true, "th": true, "blockquote": true, "figure": true,
	"figcaption": true, "section": true, "article": true, "hr": true,
}

// PlainText 剥离 HTML 标签并解码实体，合并连续空白。
// script/style 内容整体丢弃。
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			// io.EOF 之外的错误也返回已解析的部分
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				switch tt {
				case html.StartTagToken:
					skip++
				case html.EndTagToken:
					if skip > 0 {
						skip--
					}
				}
				continue
			}
			if blockTags[tag] {
				b.WriteByte(' ')
			}
		}
	}
}

// Truncate 截断到最多 maxLen 个字符（按 UTF-8 字符计算），不追加省略号。
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}
