// Package pipeline 串联一次完整的运行：抓取、挑选、补充、写入、兜底。
package pipeline

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iabetor/haberbot/internal/config"
	"github.com/iabetor/haberbot/internal/database"
	"github.com/iabetor/haberbot/internal/enrich"
	"github.com/iabetor/haberbot/internal/logger"
	"github.com/iabetor/haberbot/internal/post"
	"github.com/iabetor/haberbot/internal/rss"
	"github.com/iabetor/haberbot/internal/slug"
)

// DefaultTitle 是条目没有标题时使用的标题。
const DefaultTitle = "Yeni Yazı"

// Report 汇总一次运行的结果。
type Report struct {
	RunID       string
	FeedsOK     int
	FeedsFailed int
	Candidates  int // 合并后的条目数
	Selected    int
	Created     int
	Skipped     int
	ItemErrors  int
	Fallback    bool // 是否写入了占位文章
}

// Pipeline 是主编排器，将所有组件串联在一起。
type Pipeline struct {
	cfg *config.Config

	fetcher  *rss.Fetcher
	enricher *enrich.Enricher
	writer   *post.Writer

	// 可选的 SQLite 台账
	db *database.DB

	state *StateMachine
	now   func() time.Time
}

// New 根据配置创建 Pipeline。输出目录或台账无法打开时返回错误。
func New(cfg *config.Config) (*Pipeline, error) {
	p := &Pipeline{
		cfg:   cfg,
		state: NewStateMachine(),
		now:   time.Now,
	}

	p.fetcher = rss.NewFetcher(
		time.Duration(cfg.Fetch.Timeout)*time.Second,
		cfg.Fetch.Concurrency,
		cfg.Fetch.UserAgent,
	)

	summarizer := enrich.NewSummarizer(enrich.SummarizerConfig{
		APIURL:            cfg.Summarizer.APIURL,
		Model:             cfg.Summarizer.Model,
		Token:             cfg.Summarizer.Token,
		Timeout:           time.Duration(cfg.Summarizer.Timeout) * time.Second,
		MaxInput:          cfg.Summarizer.MaxInput,
		RequestsPerMinute: cfg.Summarizer.RequestsPerMinute,
	})
	if !summarizer.Enabled() {
		logger.Info("[pipeline] 未配置摘要服务凭据，使用本地摘要")
	}
	images := enrich.NewImageFinder(enrich.ImageConfig{
		APIURL:            cfg.Image.APIURL,
		APIKey:            cfg.Image.APIKey,
		Orientation:       cfg.Image.Orientation,
		Timeout:           time.Duration(cfg.Image.Timeout) * time.Second,
		RequestsPerMinute: cfg.Image.RequestsPerMinute,
	})
	if !images.Enabled() {
		logger.Info("[pipeline] 未配置图片服务 API Key，文章不带配图")
	}
	p.enricher = enrich.New(summarizer, images)

	var index post.Index
	if cfg.Ledger.Path != "" {
		db, err := database.Open(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("打开台账失败: %w", err)
		}
		p.db = db
		index = database.NewLedger(db)
	}

	writer, err := post.NewWriter(cfg.OutputDir, index)
	if err != nil {
		p.Close()
		return nil, err
	}
	p.writer = writer

	return p, nil
}

// State 返回当前运行状态。
func (p *Pipeline) State() State {
	return p.state.Current()
}

// Run 执行一次完整运行。只有兜底写入失败这类无法恢复的错误才会返回 error。
// 每个 Pipeline 只应运行一次。
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if p.state.Current() != StateStart {
		return nil, fmt.Errorf("流水线已运行过，当前状态 %s", p.state.Current())
	}
	report := &Report{RunID: strings.ReplaceAll(uuid.NewString(), "-", "")[:12]}
	logger.With("run", report.RunID)
	logger.Infof("[pipeline] 开始运行 %s，订阅源 %d 个，最多 %d 篇",
		report.RunID, len(p.cfg.Feeds), p.cfg.MaxPosts)

	p.state.Transition(StateFetching)
	results := p.fetcher.FetchAll(ctx, p.cfg.Feeds)
	for _, r := range results {
		if r.Err != nil {
			report.FeedsFailed++
		} else {
			report.FeedsOK++
		}
	}

	p.state.Transition(StateSelecting)
	items := rss.Merge(results)
	selected := rss.Select(items, p.cfg.MaxPosts)
	report.Candidates = len(items)
	report.Selected = len(selected)
	logger.Infof("[pipeline] 订阅源成功 %d 个，失败 %d 个；候选 %d 条，选中 %d 条",
		report.FeedsOK, report.FeedsFailed, report.Candidates, report.Selected)

	for i, item := range selected {
		created, err := p.processItem(ctx, item)
		switch {
		case err != nil:
			report.ItemErrors++
			logger.Errorf("[pipeline] 第 %d 条 %q 处理失败: %v", i+1, item.Title, err)
		case created:
			report.Created++
		default:
			report.Skipped++
		}
	}

	p.state.Transition(StateFallbackCheck)
	wrote, err := p.writer.EnsureNonEmpty(ctx, p.now())
	if err != nil {
		p.state.Transition(StateFailed)
		return report, err
	}
	if wrote {
		report.Fallback = true
		report.Created++
	}

	p.state.Transition(StateDone)
	logger.Infof("[pipeline] 运行 %s 结束：新建 %d，跳过 %d，失败 %d，占位 %v",
		report.RunID, report.Created, report.Skipped, report.ItemErrors, report.Fallback)
	return report, nil
}

// processItem 处理单个条目：生成 slug、补充摘要和配图、写入文章。
// 条目内的错误和 panic 都在这里截住，不影响其他条目。
func (p *Pipeline) processItem(ctx context.Context, item rss.FeedItem) (created bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
			created = false
		}
		// 无论成败都结束本条目，回到可以开始下一条的状态
		if p.state.Current() == StateEnriching {
			p.state.Transition(StateWriting)
		}
	}()

	p.state.Transition(StateEnriching)

	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = DefaultTitle
	}
	s := slug.Make(title)

	// 已处理过的条目不再调用外部服务
	exists, err := p.writer.Exists(ctx, s)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Infof("[post] 跳过已存在: %s", s)
		return false, nil
	}

	res := p.enricher.Enrich(ctx, title, item.RawContent)

	p.state.Transition(StateWriting)
	return p.writer.Write(ctx, post.Post{
		Slug:        s,
		Title:       title,
		Date:        p.now(),
		Image:       res.Image,
		Source:      item.Link,
		SourceTitle: item.Title,
		Excerpt:     post.Excerpt(res.Summary),
		Body:        res.Summary,
	})
}

// Close 释放资源。
func (p *Pipeline) Close() {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			logger.Warnf("[pipeline] 关闭台账失败: %v", err)
		}
		p.db = nil
	}
}
