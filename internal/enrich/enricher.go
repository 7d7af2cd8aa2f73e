package enrich

import (
	"context"

	"github.com/iabetor/haberbot/internal/textutil"
	"golang.org/x/sync/errgroup"
)

// TextSummarizer 生成摘要，实现方自行处理失败。
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) string
}

// ImageSearcher 查找配图，找不到时返回空字符串。
type ImageSearcher interface {
	Find(ctx context.Context, query string) string
}

// Result 单个条目的补充信息。Image 为空表示没有配图。
type Result struct {
	Summary string
	Image   string
}

// Enricher 组合摘要和配图两个步骤。
type Enricher struct {
	summarizer TextSummarizer
	images     ImageSearcher
}

// New 创建 Enricher。images 可以为 nil。
func New(summarizer TextSummarizer, images ImageSearcher) *Enricher {
	return &Enricher{summarizer: summarizer, images: images}
}

// SummaryInput 拼接摘要输入："{标题}. {去掉标签的正文}"。
func SummaryInput(title, rawContent string) string {
	return title + ". " + textutil.PlainText(rawContent)
}

// Enrich 并行生成摘要和查找配图，两者互不影响。
func (e *Enricher) Enrich(ctx context.Context, title, rawContent string) Result {
	var res Result
	var g errgroup.Group

	g.Go(func() error {
		res.Summary = e.summarizer.Summarize(ctx, SummaryInput(title, rawContent))
		return nil
	})
	if e.images != nil {
		g.Go(func() error {
			res.Image = e.images.Find(ctx, title)
			return nil
		})
	}
	_ = g.Wait()

	return res
}
