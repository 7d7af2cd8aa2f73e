// Package enrich 为每个条目生成摘要并查找配图。
// 两个外部调用都是尽力而为：失败时退回到确定性的本地结果，不影响文章写入。
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iabetor/haberbot/internal/logger"
	"github.com/iabetor/haberbot/internal/textutil"
	"golang.org/x/time/rate"
)

const (
	defaultSummaryTimeout = 60 * time.Second
	defaultMaxInput       = 4000
	fallbackSentences     = 3
	maxResponseBytes      = 1 << 20
)

// SummarizerConfig 摘要服务配置。
type SummarizerConfig struct {
	APIURL            string // 模型地址前缀，如 https://api-inference.huggingface.co/models
	Model             string
	Token             string // 为空则只使用本地摘要
	Timeout           time.Duration
	MaxInput          int
	RequestsPerMinute int // 0 表示不限速
}

// Summarizer 调用托管的摘要模型，失败时退回到截取前几句。
type Summarizer struct {
	endpoint string
	token    string
	maxInput int
	client   *http.Client
	limiter  *rate.Limiter
}

// NewSummarizer 创建摘要器。
func NewSummarizer(cfg SummarizerConfig) *Summarizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSummaryTimeout
	}
	maxInput := cfg.MaxInput
	if maxInput <= 0 {
		maxInput = defaultMaxInput
	}
	return &Summarizer{
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + strings.TrimLeft(cfg.Model, "/"),
		token:    cfg.Token,
		maxInput: maxInput,
		client:   &http.Client{Timeout: timeout},
		limiter:  newLimiter(cfg.RequestsPerMinute),
	}
}

// Enabled 表示是否配置了远程服务凭据。
func (s *Summarizer) Enabled() bool {
	return s != nil && s.token != ""
}

// Summarize 返回文本摘要，永不失败。
func (s *Summarizer) Summarize(ctx context.Context, text string) string {
	if !s.Enabled() {
		return FallbackSummary(text)
	}

	summary, err := s.summarizeRemote(ctx, textutil.Truncate(text, s.maxInput))
	if err != nil {
		logger.Warnf("[enrich] 远程摘要失败，使用本地摘要: %v", err)
		return FallbackSummary(text)
	}
	return summary
}

// inferenceRequest 是摘要接口的请求体。
type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// summarizeRemote 调用远程摘要接口。
func (s *Summarizer) summarizeRemote(ctx context.Context, input string) (string, error) {
	if err := wait(ctx, s.limiter); err != nil {
		return "", err
	}

	body, err := json.Marshal(inferenceRequest{Inputs: input})
	if err != nil {
		return "", fmt.Errorf("序列化请求体失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("请求失败: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("API 返回状态码 %d: %s", resp.StatusCode, textutil.Truncate(string(data), 200))
	}

	summary, kind := decodeSummary(data)
	if kind == responseUnrecognized {
		return "", errors.New("无法识别的响应格式")
	}
	logger.Debugf("[enrich] 远程摘要成功 (%s)", kind)
	return summary, nil
}

// responseKind 区分摘要接口的几种响应格式。
type responseKind int

const (
	responseUnrecognized responseKind = iota
	responseStructured                // [{"summary_text": "..."}]
	responsePlain                     // "..."
)

func (k responseKind) String() string {
	switch k {
	case responseStructured:
		return "structured"
	case responsePlain:
		return "plain"
	default:
		return "unrecognized"
	}
}

// decodeSummary 解析不同模型返回的响应。空摘要视为无法识别。
func decodeSummary(data []byte) (string, responseKind) {
	var structured []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(data, &structured); err == nil && len(structured) > 0 {
		if text := textutil.PlainText(structured[0].SummaryText); text != "" {
			return text, responseStructured
		}
		return "", responseUnrecognized
	}

	var plain string
	if err := json.Unmarshal(data, &plain); err == nil {
		if text := textutil.PlainText(plain); text != "" {
			return text, responsePlain
		}
	}
	return "", responseUnrecognized
}

// FallbackSummary 按句号切分，保留前三段并追加省略号。
func FallbackSummary(text string) string {
	parts := strings.Split(text, ".")
	if len(parts) > fallbackSentences {
		parts = parts[:fallbackSentences]
	}
	return strings.Join(parts, ".") + "..."
}

// newLimiter 按每分钟请求数创建限速器，rpm <= 0 时返回 nil。
func newLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

func wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	if err := l.Wait(ctx); err != nil {
		return fmt.Errorf("等待限速失败: %w", err)
	}
	return nil
}
