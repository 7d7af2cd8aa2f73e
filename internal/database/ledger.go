package database

import (
	"context"
	"fmt"
	"time"

	"github.com/iabetor/haberbot/internal/post"
)

// Entry 台账中的一条记录。
type Entry struct {
	Slug        string
	Title       string
	Source      string
	SourceTitle string
	Image       string
	Placeholder bool
	CreatedAt   time.Time
}

// Ledger 记录已写入的文章，实现 post.Index。
type Ledger struct {
	db *DB
}

// NewLedger 基于已打开的数据库创建台账。
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// Has 判断 slug 是否已记录。
func (l *Ledger) Has(ctx context.Context, slug string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts WHERE slug = ?`, slug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("查询台账失败: %w", err)
	}
	return n > 0, nil
}

// Record 记录一篇已写入的文章，重复记录会被忽略。
func (l *Ledger) Record(ctx context.Context, p post.Post) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO posts (slug, title, source, source_title, image, placeholder, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Slug, p.Title, p.Source, p.SourceTitle, p.Image, p.Placeholder, p.Date.UTC(),
	)
	if err != nil {
		return fmt.Errorf("写入台账失败: %w", err)
	}
	return nil
}

// Recent 按创建时间倒序返回最近的 limit 条记录。
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT slug, title, source, source_title, image, placeholder, created_at
		 FROM posts ORDER BY created_at DESC, slug ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询台账失败: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Slug, &e.Title, &e.Source, &e.SourceTitle, &e.Image, &e.Placeholder, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("读取台账失败: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count 返回记录总数。
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("查询台账失败: %w", err)
	}
	return n, nil
}
