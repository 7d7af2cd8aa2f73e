package rss

import "sort"

// Merge 合并所有抓取成功的订阅源条目，失败的源被丢弃。
func Merge(results []FeedResult) []FeedItem {
	var all []FeedItem
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		all = append(all, r.Items...)
	}
	return all
}

// Select 按发布时间倒序排序并取前 k 条。
// 没有日期的条目排在最后；时间相同或都没有日期时保持原有顺序。
// 不做跨源去重，重复内容由后续的 slug 冲突处理。
func Select(items []FeedItem, k int) []FeedItem {
	sorted := make([]FeedItem, len(items))
	copy(sorted, items)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].PublishedAt, sorted[j].PublishedAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	if k >= 0 && len(sorted) > k {
		sorted = sorted[:k]
	}
	return sorted
}
