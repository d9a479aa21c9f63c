package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/config"
	"github.com/dewei/StockScreener/pkg/database"
	"github.com/dewei/StockScreener/pkg/directory"
	"github.com/dewei/StockScreener/pkg/logger"
	"github.com/dewei/StockScreener/pkg/messaging"
	"github.com/dewei/StockScreener/pkg/model"
	"github.com/dewei/StockScreener/pkg/repository"
)

func main() {
	cfg, err := config.LoadConfig(config.GetDefaultConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	logger.SetGlobalLogger(log)

	if err := run(cfg, log); err != nil {
		log.Error().Err(err).Msg("加载代码目录失败")
		os.Exit(1)
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("启动代码目录加载...")

	var mirror directory.Mirror
	if cfg.Database.Postgres.Enabled() {
		pg, err := database.NewPostgres(cfg.Database.Postgres, log)
		if err != nil {
			log.Warn().Err(err).Msg("连接数据库失败，跳过目录镜像")
		} else {
			defer pg.Close()
			mirror = pg.Directory()
		}
	}

	loader := directory.NewLoader(directory.LoaderConfig{
		FeedURL: cfg.Directory.FeedURL,
		Timeout: cfg.Directory.Timeout,
		Artifacts: directory.Artifacts{
			Dir:         cfg.Directory.DataDir,
			StocksFile:  cfg.Directory.StocksFile,
			SymbolsFile: cfg.Directory.SymbolsFile,
		},
	}, mirror, log)

	result, err := loader.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Total stocks: %d\n", result.Summary.Total)
	fmt.Printf("Stocks: %d, ETFs: %d\n", result.Summary.Stocks, result.Summary.ETFs)

	if cfg.NATS.URL != "" {
		notify(ctx, cfg.NATS.URL, result, log)
	}
	return nil
}

// notify 通知正在运行的 API 进程重新加载目录，失败不影响退出码
func notify(ctx context.Context, url string, result *directory.ParseResult, log zerolog.Logger) {
	client, err := messaging.NewNATSClient(url, log)
	if err != nil {
		log.Warn().Err(err).Msg("连接NATS失败，跳过目录刷新通知")
		return
	}
	defer client.Close()

	evt := model.DirectoryRefreshedEvent{
		Total:       result.Summary.Total,
		Stocks:      result.Summary.Stocks,
		ETFs:        result.Summary.ETFs,
		ByExchange:  result.Summary.ByExchange,
		Source:      repository.SourceArtifacts,
		RefreshedAt: time.Now(),
	}
	if err := client.Publish(ctx, messaging.SubjectDirectoryRefreshed, evt); err != nil {
		log.Warn().Err(err).Msg("发布目录刷新事件失败")
	}
}
