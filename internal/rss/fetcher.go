package rss

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/iabetor/haberbot/internal/logger"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"
)

const (
	defaultFetchTimeout = 20 * time.Second
	defaultConcurrency  = 8
)

// Fetcher 负责抓取和解析订阅源。
type Fetcher struct {
	client      *http.Client
	userAgent   string
	concurrency int
}

// NewFetcher 创建订阅源抓取器。timeout 作用于单个订阅源的请求。
func NewFetcher(timeout time.Duration, concurrency int, userAgent string) *Fetcher {
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Fetcher{
		client:      &http.Client{Timeout: timeout},
		userAgent:   userAgent,
		concurrency: concurrency,
	}
}

// FetchAll 并发抓取所有订阅源，等待全部完成后按输入顺序返回每个源的结果。
// 单个源失败只记录日志，不会中断其他源。
func (f *Fetcher) FetchAll(ctx context.Context, urls []string) []FeedResult {
	results := make([]FeedResult, len(urls))

	var g errgroup.Group
	g.SetLimit(f.concurrency)
	for i, u := range urls {
		i, u := i, u
		g.Go(func() error {
			items, err := f.Fetch(ctx, u)
			results[i] = FeedResult{URL: u, Items: items, Err: err}
			if err != nil {
				logger.Warnf("[rss] 抓取 %s 失败: %v", u, err)
			} else {
				logger.Debugf("[rss] 抓取 %s 成功，共 %d 条", u, len(items))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Fetch 抓取并解析单个订阅源。
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]FeedItem, error) {
	feed, err := f.parseFeed(ctx, url)
	if err != nil {
		return nil, err
	}
	return convertItems(feed, url), nil
}

// parseFeed 请求并解析 Feed URL。gofeed.Parser 解析时持有状态，每次新建。
func (f *Fetcher) parseFeed(ctx context.Context, url string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("解析订阅源失败: %w", err)
	}
	return feed, nil
}

// convertItems 将 gofeed 条目转换为 FeedItem。
func convertItems(feed *gofeed.Feed, feedURL string) []FeedItem {
	items := make([]FeedItem, 0, len(feed.Items))
	for _, gItem := range feed.Items {
		if gItem == nil {
			continue
		}

		// 摘要输入以 description 摘要为准，没有时才用全文
		content := gItem.Description
		if strings.TrimSpace(content) == "" {
			content = gItem.Content
		}

		items = append(items, FeedItem{
			Title:       gItem.Title,
			Link:        gItem.Link,
			PublishedAt: effectiveTime(gItem),
			RawContent:  content,
			FeedURL:     feedURL,
		})
	}
	return items
}

// effectiveTime 返回条目用于排序的时间：
// 结构化发布时间优先，其次宽松解析原始 pubDate 字符串，最后是更新时间。
func effectiveTime(it *gofeed.Item) *time.Time {
	if it.PublishedParsed != nil {
		t := *it.PublishedParsed
		return &t
	}
	if raw := strings.TrimSpace(it.Published); raw != "" {
		if t, err := dateparse.ParseAny(raw); err == nil {
			return &t
		}
	}
	if it.UpdatedParsed != nil {
		t := *it.UpdatedParsed
		return &t
	}
	return nil
}
