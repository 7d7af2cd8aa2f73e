package post

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/iabetor/haberbot/internal/logger"
)

// PlaceholderPrefix 是兜底占位文章 slug 的固定前缀。
const PlaceholderPrefix = "otomatik-bilgi"

const (
	placeholderTitle = "Bugün yeni içerik bulunamadı"
	placeholderBody  = "Bu yazı otomatik olarak oluşturuldu. Bu çalıştırmada kaynak akışlarda yeni bir içerik bulunamadı ya da bulunan içeriklerin tamamı daha önce yayımlanmıştı. Yeni haberler bir sonraki güncellemede eklenecek."
)

// PlaceholderSlug 生成基于时间的唯一 slug，附加随机后缀避免同一秒内重复。
func PlaceholderSlug(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%s-%s", PlaceholderPrefix, now.UTC().Format("20060102-150405"), suffix)
}

// Placeholder 构造兜底占位文章：无配图、无来源。
func Placeholder(now time.Time) Post {
	return Post{
		Slug:        PlaceholderSlug(now),
		Title:       placeholderTitle,
		Date:        now,
		Excerpt:     Excerpt(placeholderBody),
		Body:        placeholderBody,
		Placeholder: true,
	}
}

// EnsureNonEmpty 本次运行没有新建任何文章时写入一篇占位文章。
// 返回是否写入了占位文章；写入失败是致命错误。
func (w *Writer) EnsureNonEmpty(ctx context.Context, now time.Time) (bool, error) {
	if w.created > 0 {
		return false, nil
	}

	p := Placeholder(now)
	created, err := w.Write(ctx, p)
	if err != nil {
		return false, fmt.Errorf("写入占位文章失败: %w", err)
	}
	if !created {
		return false, fmt.Errorf("写入占位文章失败: %s %w", p.Slug, ErrExists)
	}
	logger.Infof("[post] 本次没有新文章，已写入占位文章: %s", p.Slug)
	return true, nil
}
