package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/iabetor/haberbot/internal/config"
	"github.com/iabetor/haberbot/internal/logger"
	"github.com/iabetor/haberbot/internal/pipeline"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "configs/haberbot.yaml", "配置文件路径")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer logger.Sync()

	logger.Infof("[main] haberbot 启动 (output_dir=%s, max_posts=%d)", cfg.OutputDir, cfg.MaxPosts)

	// 收到信号时取消进行中的网络请求，已选条目照常降级处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p, err := pipeline.New(cfg)
	if err != nil {
		logger.Errorf("[main] 创建流水线失败: %v", err)
		fmt.Fprintf(os.Stderr, "创建流水线失败: %v\n", err)
		return 1
	}
	defer p.Close()

	report, err := p.Run(ctx)
	if err != nil {
		logger.Errorf("[main] 运行失败: %v", err)
		fmt.Fprintf(os.Stderr, "运行失败: %v\n", err)
		return 1
	}

	logger.Infof("[main] 完成：新建 %d 篇，跳过 %d 篇", report.Created, report.Skipped)
	return 0
}
