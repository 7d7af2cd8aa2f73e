package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Test Blog</title>
    <link>https://example.com</link>
    <description>A test RSS feed</description>
    <item>
      <title>First post</title>
      <link>https://example.com/post/1</link>
      <description>Short teaser</description>
      <content:encoded><![CDATA[<p>Full <b>HTML</b> body.</p>]]></content:encoded>
      <pubDate>Thu, 19 Feb 2026 08:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Second post</title>
      <link>https://example.com/post/2</link>
      <description>Only a description</description>
      <pubDate>Thu, 19 Feb 2026 07:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Third post</title>
      <link>https://example.com/post/3</link>
      <content:encoded><![CDATA[<p>Only full content.</p>]]></content:encoded>
      <pubDate>Thu, 19 Feb 2026 06:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.com/atom/1"/>
    <summary>Atom summary</summary>
    <updated>2026-02-19T09:00:00Z</updated>
  </entry>
</feed>`

func setupTestServer(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, content)
	}))
}

// singleItemFeed 生成只含一个条目的 RSS，用于排序测试。
func singleItemFeed(title string, published time.Time) string {
	return fmt.Sprintf(`<?xml version="1.0"?>
<rss version="2.0"><channel><title>%s feed</title>
<item><title>%s</title><link>https://example.com/%s</link><description>body</description>
<pubDate>%s</pubDate></item></channel></rss>`, title, title, title, published.Format(time.RFC1123Z))
}

func TestFetch(t *testing.T) {
	srv := setupTestServer(testRSSFeed)
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 2, "haberbot-test")
	items, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch 失败: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("期望 3 条，得到 %d 条", len(items))
	}

	first := items[0]
	if first.Title != "First post" || first.Link != "https://example.com/post/1" {
		t.Errorf("第一条不匹配: %+v", first)
	}
	if first.RawContent != "Short teaser" {
		t.Errorf("应优先使用 description，实际: %q", first.RawContent)
	}
	if items[1].RawContent != "Only a description" {
		t.Errorf("只有 description 时应使用它，实际: %q", items[1].RawContent)
	}
	if items[2].RawContent != "<p>Only full content.</p>" {
		t.Errorf("没有 description 时应使用 content:encoded，实际: %q", items[2].RawContent)
	}
	if first.PublishedAt == nil {
		t.Fatal("PublishedAt 不应为空")
	}
	want := time.Date(2026, 2, 19, 8, 0, 0, 0, time.UTC)
	if !first.PublishedAt.Equal(want) {
		t.Errorf("PublishedAt = %v, 期望 %v", first.PublishedAt, want)
	}
	if first.FeedURL != srv.URL {
		t.Errorf("FeedURL = %s", first.FeedURL)
	}
}

func TestFetchSendsUserAgent(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		fmt.Fprint(w, testAtomFeed)
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 1, "haberbot-test/1.0")
	if _, err := fetcher.Fetch(context.Background(), srv.URL); err != nil {
		t.Fatalf("Fetch 失败: %v", err)
	}
	if gotUA != "haberbot-test/1.0" {
		t.Errorf("User-Agent = %q", gotUA)
	}
}

func TestFetchAtom(t *testing.T) {
	srv := setupTestServer(testAtomFeed)
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 1, "")
	items, err := fetcher.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch Atom 失败: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("期望 1 条，得到 %d 条", len(items))
	}
	if items[0].Link != "https://example.com/atom/1" {
		t.Errorf("Link 不匹配: %s", items[0].Link)
	}
	if items[0].PublishedAt == nil {
		t.Error("Atom 的 updated 应作为排序时间")
	}
}

func TestFetchInvalid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "not xml")
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 1, "")
	if _, err := fetcher.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("期望无效 Feed 返回错误")
	}
}

func TestFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	fetcher := NewFetcher(5*time.Second, 1, "")
	if _, err := fetcher.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("期望 HTTP 502 返回错误")
	}
}

func TestFetchTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	fetcher := NewFetcher(50*time.Millisecond, 1, "")
	if _, err := fetcher.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("期望超时返回错误")
	}
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	base := time.Date(2026, 2, 19, 12, 0, 0, 0, time.UTC)

	var servers []*httptest.Server
	var urls []string
	for i, name := range []string{"a", "b", "c", "d"} {
		srv := setupTestServer(singleItemFeed(name, base.Add(time.Duration(i)*time.Hour)))
		servers = append(servers, srv)
		urls = append(urls, srv.URL)
	}
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	servers = append(servers, broken)
	urls = append([]string{broken.URL}, urls...)
	defer func() {
		for _, s := range servers {
			s.Close()
		}
	}()

	fetcher := NewFetcher(5*time.Second, 2, "")
	results := fetcher.FetchAll(context.Background(), urls)
	if len(results) != 5 {
		t.Fatalf("期望 5 个结果，得到 %d 个", len(results))
	}
	if results[0].Err == nil {
		t.Error("失败的订阅源应返回错误")
	}
	for _, r := range results[1:] {
		if r.Err != nil {
			t.Errorf("%s 不应失败: %v", r.URL, r.Err)
		}
	}

	selected := Select(Merge(results), 3)
	if len(selected) != 3 {
		t.Fatalf("期望选出 3 条，得到 %d 条", len(selected))
	}
	wantOrder := []string{"d", "c", "b"}
	for i, w := range wantOrder {
		if selected[i].Title != w {
			t.Errorf("selected[%d] = %s, 期望 %s", i, selected[i].Title, w)
		}
	}
}

func TestFetchAllEmpty(t *testing.T) {
	fetcher := NewFetcher(time.Second, 1, "")
	if results := fetcher.FetchAll(context.Background(), nil); len(results) != 0 {
		t.Fatalf("没有订阅源时应返回空结果，得到 %d", len(results))
	}
}

func TestEffectiveTime(t *testing.T) {
	published := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	updated := time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		item gofeed.Item
		want *time.Time
	}{
		{"structured date wins", gofeed.Item{PublishedParsed: &published, UpdatedParsed: &updated, Published: "garbage"}, &published},
		{"raw pubDate fallback", gofeed.Item{Published: "2026-01-02 03:04:05"}, &published},
		{"updated fallback", gofeed.Item{Published: "not a date", UpdatedParsed: &updated}, &updated},
		{"nothing", gofeed.Item{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := effectiveTime(&tt.item)
			switch {
			case tt.want == nil && got != nil:
				t.Errorf("期望 nil，得到 %v", got)
			case tt.want != nil && got == nil:
				t.Errorf("期望 %v，得到 nil", tt.want)
			case tt.want != nil && !got.Equal(*tt.want):
				t.Errorf("期望 %v，得到 %v", tt.want, got)
			}
		})
	}
}
