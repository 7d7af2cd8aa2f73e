package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultFeeds 是未配置 feeds 时使用的订阅源列表。
var DefaultFeeds = []string{
	"https://techcrunch.com/feed/",
	"https://www.theverge.com/rss/index.xml",
	"https://www.engadget.com/rss.xml",
	"https://www.wired.com/feed/rss",
	"https://arstechnica.com/feed/",
	"https://thenextweb.com/feed",
	"https://www.cnet.com/rss/news/",
	"https://feeds.feedburner.com/Gizmodo",
	"https://mashable.com/feeds/rss/all",
	"https://www.webtekno.com/rss",
	"https://shiftdelete.net/feed",
	"https://www.trthaber.com/xml_mobile.php?kat=bilim_teknoloji",
}

// Config 是 haberbot 的顶层配置结构。
type Config struct {
	Feeds      []string         `yaml:"feeds"`
	MaxPosts   int              `yaml:"max_posts"`
	OutputDir  string           `yaml:"output_dir"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Summarizer SummarizerConfig `yaml:"summarizer"`
	Image      ImageConfig      `yaml:"image"`
	Ledger     LedgerConfig     `yaml:"ledger"`
	Log        LogConfig        `yaml:"log"`
}

// FetchConfig 订阅源抓取配置。
type FetchConfig struct {
	Timeout     int    `yaml:"timeout"`     // 单个订阅源超时（秒）
	Concurrency int    `yaml:"concurrency"` // 同时抓取的订阅源数量上限
	UserAgent   string `yaml:"user_agent"`
}

// SummarizerConfig 摘要服务配置。
// Token 为空时不调用远程服务，只使用本地截句摘要。
type SummarizerConfig struct {
	APIURL            string `yaml:"api_url"`
	Model             string `yaml:"model"`
	Token             string `yaml:"token"`
	Timeout           int    `yaml:"timeout"`   // 秒
	MaxInput          int    `yaml:"max_input"` // 提交前截断到的最大字符数
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// ImageConfig 图片搜索配置。APIKey 为空时跳过图片查找。
type ImageConfig struct {
	APIURL            string `yaml:"api_url"`
	APIKey            string `yaml:"api_key"`
	Orientation       string `yaml:"orientation"`
	Timeout           int    `yaml:"timeout"` // 秒
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// LedgerConfig 已写入文章的 SQLite 记录。Path 为空则不启用。
type LedgerConfig struct {
	Path string `yaml:"path"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSize    int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age_days"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开；文件不存在时只使用默认值和环境变量。
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// 没有配置文件时完全依赖环境变量
		case err != nil:
			return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
		default:
			expanded := os.Expand(string(data), os.Getenv)
			if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
				return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
			}
		}
	}

	if err := applyEnv(cfg, os.Getenv); err != nil {
		return nil, err
	}
	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv 用环境变量覆盖配置项，变量名与定时任务里使用的保持一致。
func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := strings.TrimSpace(getenv("MAX_POSTS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("MAX_POSTS 不是整数: %q", v)
		}
		if n < 1 {
			return fmt.Errorf("MAX_POSTS 必须大于 0，当前为 %d", n)
		}
		cfg.MaxPosts = n
	}
	if v := getenv("HF_MODEL"); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := getenv("HUGGINGFACE_TOKEN"); v != "" {
		cfg.Summarizer.Token = v
	}
	if v := getenv("PEXELS_API_KEY"); v != "" {
		cfg.Image.APIKey = v
	}
	if v := getenv("POSTS_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return nil
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if len(cfg.Feeds) == 0 {
		cfg.Feeds = append([]string(nil), DefaultFeeds...)
	}
	if cfg.MaxPosts == 0 {
		cfg.MaxPosts = 3
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "posts"
	}

	if cfg.Fetch.Timeout == 0 {
		cfg.Fetch.Timeout = 20
	}
	if cfg.Fetch.Concurrency == 0 {
		cfg.Fetch.Concurrency = 8
	}
	if cfg.Fetch.UserAgent == "" {
		cfg.Fetch.UserAgent = "haberbot/1.0 (+rss)"
	}

	if cfg.Summarizer.APIURL == "" {
		cfg.Summarizer.APIURL = "https://api-inference.huggingface.co/models"
	}
	if cfg.Summarizer.Model == "" {
		cfg.Summarizer.Model = "facebook/bart-large-cnn"
	}
	if cfg.Summarizer.Timeout == 0 {
		cfg.Summarizer.Timeout = 60
	}
	if cfg.Summarizer.MaxInput == 0 {
		cfg.Summarizer.MaxInput = 4000
	}

	if cfg.Image.APIURL == "" {
		cfg.Image.APIURL = "https://api.pexels.com/v1/search"
	}
	if cfg.Image.Orientation == "" {
		cfg.Image.Orientation = "landscape"
	}
	if cfg.Image.Timeout == 0 {
		cfg.Image.Timeout = 30
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	// 环境变量展开后常见首尾空白
	cfg.Summarizer.Token = strings.TrimSpace(cfg.Summarizer.Token)
	cfg.Image.APIKey = strings.TrimSpace(cfg.Image.APIKey)
}

// Validate 检查配置是否可用。
func (c *Config) Validate() error {
	if c.MaxPosts < 1 {
		return fmt.Errorf("max_posts 必须大于 0，当前为 %d", c.MaxPosts)
	}
	if c.Fetch.Concurrency < 1 {
		return fmt.Errorf("fetch.concurrency 必须大于 0，当前为 %d", c.Fetch.Concurrency)
	}
	for i, f := range c.Feeds {
		if !strings.HasPrefix(f, "http://") && !strings.HasPrefix(f, "https://") {
			return fmt.Errorf("feeds[%d] 不是 http(s) 地址: %q", i, f)
		}
	}
	return nil
}
