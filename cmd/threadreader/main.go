package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/iabetor/threadreader/internal/config"
	"github.com/iabetor/threadreader/internal/logger"
)

const defaultConfigPath = "configs/threadreader.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "配置文件路径")
	threadURL := flag.String("url", "", "启动后立即加载的帖子地址")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Infof("[main] threadreader 启动中 (tts=%s, log_level=%s)", cfg.TTS.Engine, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化失败: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	con := newConsole(a.sess, os.Stdout)
	a.sess.OnChange(con.printState)
	con.printHelp()

	g, ctx := errgroup.WithContext(ctx)

	// 预先拉取音色列表，首次朗读时不必等待
	g.Go(func() error {
		if _, err := a.speaker.Ready(ctx); err != nil {
			logger.Warnf("[main] 音色列表暂不可用: %v", err)
		}
		return nil
	})

	if *threadURL != "" {
		g.Go(func() error {
			con.load(ctx, *threadURL)
			return nil
		})
	}

	g.Go(func() error {
		return con.loop(ctx, readLines(os.Stdin))
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "运行出错: %v\n", err)
		os.Exit(1)
	}
	logger.Info("[main] threadreader 已停止")
}

// loadConfig 读取配置文件。未显式指定且默认文件不存在时使用内置默认值。
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// readLines 在后台读取标准输入，EOF 时关闭 channel。
func readLines(f *os.File) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			lines <- sc.Text()
		}
	}()
	return lines
}
