// Package post 渲染并写入 Markdown 文章，每个 slug 只写一次。
package post

import (
	"bytes"
	"fmt"
	"time"

	"github.com/iabetor/haberbot/internal/textutil"
	"gopkg.in/yaml.v3"
)

// MaxExcerptLen 是摘录的最大字符数。
const MaxExcerptLen = 200

// dateLayout 与静态站点解析的 ISO-8601 格式一致（UTC，毫秒）。
const dateLayout = "2006-01-02T15:04:05.000Z"

// Post 一篇待写入的文章。
type Post struct {
	Slug        string
	Title       string
	Date        time.Time // 生成时间，不是原文发布时间
	Image       string    // 为空时写 null
	Source      string
	SourceTitle string
	Excerpt     string
	Body        string
	Placeholder bool // 兜底占位文章
}

// Excerpt 取摘要前 MaxExcerptLen 个字符作为摘录。
func Excerpt(summary string) string {
	return textutil.Truncate(summary, MaxExcerptLen)
}

// FormatDate 格式化 front-matter 中的 date 字段。
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

// Render 生成完整的 Markdown 文档：front-matter、空行、正文。
func (p Post) Render() ([]byte, error) {
	fm := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		fm.Content = append(fm.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: key}, value)
	}

	add("title", quoted(p.Title))
	add("date", quoted(FormatDate(p.Date)))
	if p.Image == "" {
		add("image", &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"})
	} else {
		add("image", quoted(p.Image))
	}
	add("source", quoted(p.Source))
	add("source_title", quoted(p.SourceTitle))
	add("excerpt", quoted(Excerpt(p.Excerpt)))

	var buf bytes.Buffer
	buf.WriteString("---\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(fm); err != nil {
		return nil, fmt.Errorf("编码 front-matter 失败: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("编码 front-matter 失败: %w", err)
	}
	buf.WriteString("---\n\n")
	buf.WriteString(p.Body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// quoted 生成双引号字符串节点，引号和控制字符由 YAML 转义。
func quoted(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Style: yaml.DoubleQuotedStyle, Value: s}
}
