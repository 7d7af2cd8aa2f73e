package post

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/iabetor/haberbot/internal/logger"
)

// ErrExists 表示同名文章已存在，写入被跳过。
var ErrExists = errors.New("文章已存在")

// Index 是已处理 slug 的外部记录，例如 SQLite 台账。
type Index interface {
	Has(ctx context.Context, slug string) (bool, error)
	Record(ctx context.Context, p Post) error
}

// Writer 把文章写入输出目录，同一 slug 只写一次。
// 不支持多个进程同时写同一目录。
type Writer struct {
	dir     string
	index   Index
	created int
}

// NewWriter 创建写入器并确保输出目录存在。index 可以为 nil。
func NewWriter(dir string, index Index) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建输出目录 %s 失败: %w", dir, err)
	}
	return &Writer{dir: dir, index: index}, nil
}

// Created 返回本次运行新建的文章数。
func (w *Writer) Created() int { return w.created }

// Path 返回 slug 对应的文件路径。
func (w *Writer) Path(slug string) string {
	return filepath.Join(w.dir, slug+".md")
}

// Exists 判断 slug 是否已处理过：文件存在，或台账中有记录。
func (w *Writer) Exists(ctx context.Context, slug string) (bool, error) {
	_, err := os.Stat(w.Path(slug))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("检查文件失败: %w", err)
	}
	if w.index == nil {
		return false, nil
	}
	return w.index.Has(ctx, slug)
}

// Write 写入文章，已存在时跳过并返回 false。
func (w *Writer) Write(ctx context.Context, p Post) (bool, error) {
	if p.Slug == "" || strings.ContainsAny(p.Slug, `/\`) || strings.HasPrefix(p.Slug, ".") {
		return false, fmt.Errorf("非法 slug: %q", p.Slug)
	}

	exists, err := w.Exists(ctx, p.Slug)
	if err != nil {
		return false, err
	}
	if exists {
		logger.Infof("[post] 跳过已存在: %s", p.Slug)
		return false, nil
	}

	data, err := p.Render()
	if err != nil {
		return false, err
	}

	path := w.Path(p.Slug)
	if err := writeExclusive(path, data); err != nil {
		if errors.Is(err, ErrExists) {
			logger.Infof("[post] 跳过已存在: %s", p.Slug)
			return false, nil
		}
		return false, err
	}
	w.created++
	logger.Infof("[post] 已创建: %s", path)

	if w.index != nil {
		// 文件已经落盘，台账失败只记录日志
		if err := w.index.Record(ctx, p); err != nil {
			logger.Warnf("[post] 记录台账失败 %s: %v", p.Slug, err)
		}
	}
	return true, nil
}

// writeExclusive 先写同目录临时文件并落盘，再硬链接到目标路径。
// 目标已存在时返回 ErrExists，不会覆盖；因此存在的文件一定是完整的。
func writeExclusive(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入临时文件失败: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		return fmt.Errorf("设置文件权限失败: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("同步临时文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("关闭临时文件失败: %w", err)
	}

	err = os.Link(tmpName, path)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) {
		return ErrExists
	}

	// 不支持硬链接的文件系统退回到 rename
	if _, statErr := os.Stat(path); statErr == nil {
		return ErrExists
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("重命名临时文件失败: %w", err)
	}
	return nil
}
