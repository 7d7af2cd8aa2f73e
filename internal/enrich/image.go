package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/iabetor/haberbot/internal/logger"
	"golang.org/x/time/rate"
)

const defaultImageTimeout = 30 * time.Second

// ImageConfig 图片搜索配置。
type ImageConfig struct {
	APIURL            string
	APIKey            string // 为空则不查找图片
	Orientation       string
	Timeout           time.Duration
	RequestsPerMinute int
}

// ImageFinder 通过图库搜索接口为标题找一张横幅图片。
type ImageFinder struct {
	apiURL      string
	apiKey      string
	orientation string
	client      *http.Client
	limiter     *rate.Limiter
}

// NewImageFinder 创建图片查找器。
func NewImageFinder(cfg ImageConfig) *ImageFinder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultImageTimeout
	}
	orientation := cfg.Orientation
	if orientation == "" {
		orientation = "landscape"
	}
	return &ImageFinder{
		apiURL:      cfg.APIURL,
		apiKey:      cfg.APIKey,
		orientation: orientation,
		client:      &http.Client{Timeout: timeout},
		limiter:     newLimiter(cfg.RequestsPerMinute),
	}
}

// Enabled 表示是否配置了 API Key。
func (f *ImageFinder) Enabled() bool {
	return f != nil && f.apiKey != ""
}

// searchResponse 图片搜索响应中用到的字段。
type searchResponse struct {
	Photos []struct {
		Src struct {
			Large string `json:"large"`
		} `json:"src"`
	} `json:"photos"`
}

// Find 返回第一张结果的大图地址；未配置、无结果或出错时返回空字符串。
func (f *ImageFinder) Find(ctx context.Context, query string) string {
	if !f.Enabled() {
		return ""
	}
	image, err := f.search(ctx, query)
	if err != nil {
		logger.Warnf("[enrich] 图片搜索 %q 失败: %v", query, err)
		return ""
	}
	if image == "" {
		logger.Debugf("[enrich] 图片搜索 %q 无结果", query)
	}
	return image
}

func (f *ImageFinder) search(ctx context.Context, query string) (string, error) {
	if err := wait(ctx, f.limiter); err != nil {
		return "", err
	}

	u, err := url.Parse(f.apiURL)
	if err != nil {
		return "", fmt.Errorf("无效的接口地址: %w", err)
	}
	q := u.Query()
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", f.orientation)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Authorization", f.apiKey)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API 返回状态码 %d", resp.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&sr); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if len(sr.Photos) == 0 {
		return "", nil
	}
	return sr.Photos[0].Src.Large, nil
}
