// Package rss 负责并发抓取 RSS/Atom 订阅源，并按发布时间挑选最新条目。
package rss

import "time"

// FeedItem 订阅源中的一个条目，只在单次运行内存在。
type FeedItem struct {
	Title       string
	Link        string
	PublishedAt *time.Time // 无法解析日期时为 nil
	RawContent  string     // HTML 或纯文本
	FeedURL     string
}

// FeedResult 单个订阅源的抓取结果，Err 非空时 Items 为空。
type FeedResult struct {
	URL   string
	Items []FeedItem
	Err   error
}
