package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/iabetor/haberbot/internal/config"
	"github.com/iabetor/haberbot/internal/database"
)

func main() {
	configPath := flag.String("config", "configs/haberbot.yaml", "配置文件路径")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if cfg.Ledger.Path == "" {
		fmt.Fprintln(os.Stderr, "台账未启用，请在配置文件中设置 ledger.path")
		os.Exit(1)
	}

	db, err := database.Open(cfg.Ledger.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "打开台账失败: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	ledger := database.NewLedger(db)

	switch args[0] {
	case "list":
		fs := flag.NewFlagSet("list", flag.ExitOnError)
		n := fs.Int("n", 20, "显示最近的条数")
		fs.Parse(args[1:])
		cmdList(ledger, *n)
	case "count":
		cmdCount(ledger, db.Path())
	default:
		fmt.Fprintf(os.Stderr, "未知命令: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "haberbot 文章台账查看工具")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "用法: haberbot-ledger [-config <path>] <command> [args]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "命令:")
	fmt.Fprintln(os.Stderr, "  list [-n N]  列出最近写入的文章")
	fmt.Fprintln(os.Stderr, "  count        显示已记录的文章总数")
}

func cmdList(ledger *database.Ledger, n int) {
	entries, err := ledger.Recent(context.Background(), n)
	if err != nil {
		fmt.Fprintf(os.Stderr, "查询失败: %v\n", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Println("台账为空")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "时间\tSLUG\t标题\t来源")
	for _, e := range entries {
		title := e.Title
		if e.Placeholder {
			title += " (占位)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.CreatedAt.Local().Format("2006-01-02 15:04"), e.Slug, title, e.Source)
	}
	w.Flush()
}

func cmdCount(ledger *database.Ledger, path string) {
	n, err := ledger.Count(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "查询失败: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("%s: 已记录 %d 篇文章\n", path, n)
}
