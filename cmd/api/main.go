package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/api"
	"github.com/dewei/StockScreener/pkg/cache"
	"github.com/dewei/StockScreener/pkg/collector"
	"github.com/dewei/StockScreener/pkg/config"
	"github.com/dewei/StockScreener/pkg/database"
	"github.com/dewei/StockScreener/pkg/directory"
	"github.com/dewei/StockScreener/pkg/engine"
	"github.com/dewei/StockScreener/pkg/fundamentals"
	"github.com/dewei/StockScreener/pkg/logger"
	"github.com/dewei/StockScreener/pkg/marketdata"
	"github.com/dewei/StockScreener/pkg/messaging"
	"github.com/dewei/StockScreener/pkg/model"
	"github.com/dewei/StockScreener/pkg/monitor"
	"github.com/dewei/StockScreener/pkg/repository"
	"github.com/dewei/StockScreener/pkg/scheduler"
	"github.com/dewei/StockScreener/pkg/search"
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
		log.Fatal().Err(err).Msg("API服务异常退出")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Str("env", cfg.App.Env).Msg("启动API服务...")

	artifacts := directory.Artifacts{
		Dir:         cfg.Directory.DataDir,
		StocksFile:  cfg.Directory.StocksFile,
		SymbolsFile: cfg.Directory.SymbolsFile,
	}

	mon := monitor.NewMonitor(log)

	// 数据库镜像是可选的
	var (
		mirrorSource repository.MirrorSource
		loaderMirror directory.Mirror
		mirrorStats  api.DirectoryStats
	)
	if cfg.Database.Postgres.Enabled() {
		pg, err := database.NewPostgres(cfg.Database.Postgres, log)
		if err != nil {
			log.Warn().Err(err).Msg("连接数据库失败，不使用目录镜像")
		} else {
			defer pg.Close()
			mirrorSource = pg.Directory()
			loaderMirror = pg.Directory()
			mirrorStats = pg.Directory()
			mon.RegisterComponent("database", pg.Ping)
		}
	}

	universe := repository.NewUniverse()
	repository.Bootstrap(ctx, universe, artifacts, mirrorSource, log)

	index, err := search.NewIndex(log)
	if err != nil {
		return fmt.Errorf("创建搜索索引失败: %w", err)
	}
	defer index.Close()
	if err := index.Rebuild(universe.Entries()); err != nil {
		log.Warn().Err(err).Msg("构建搜索索引失败")
	}

	// 事件发布，未配置 NATS 时不发布
	var publisher messaging.Publisher = messaging.NopPublisher{}
	if cfg.NATS.URL != "" {
		natsClient, err := messaging.NewNATSClient(cfg.NATS.URL, log)
		if err != nil {
			log.Warn().Err(err).Msg("连接NATS失败，不发布事件")
		} else {
			defer natsClient.Close()
			publisher = natsClient
			mon.RegisterComponent("nats", func(context.Context) error {
				if !natsClient.IsConnected() {
					return errors.New("NATS连接已断开")
				}
				return nil
			})

			reload := directoryReloader(artifacts, universe, index, log)
			if err := natsClient.Subscribe("api-directory", messaging.SubjectDirectoryRefreshed, reload); err != nil {
				log.Warn().Err(err).Msg("订阅目录刷新事件失败")
			}
		}
	}

	// 行情
	fetcher := collector.NewYahooAdapter(collector.YahooConfig{
		QuoteURL:      cfg.MarketData.QuoteURL,
		ChartURL:      cfg.MarketData.ChartURL,
		UserAgent:     cfg.MarketData.UserAgent,
		BatchTimeout:  cfg.MarketData.BatchTimeout,
		SingleTimeout: cfg.MarketData.SingleTimeout,
	}, collector.NewOffsetApproximation(nil), universe.Name, log)

	market := marketdata.NewService(
		fetcher,
		cache.NewQuoteCache(cfg.Cache.TTL),
		collector.NewFallbackGenerator(nil, universe.Name),
		log,
		marketdata.WithDirectory(universe),
		marketdata.WithConcurrency(cfg.MarketData.Concurrency),
	)

	screener := engine.NewScreener(market, universe, publisher, cfg.Screener.BatchSize, log)

	fund := fundamentals.NewService(fundamentals.Config{
		BaseURL: cfg.Fundamentals.BaseURL,
		APIKey:  cfg.Fundamentals.APIKey,
		Timeout: cfg.Fundamentals.Timeout,
	}, nil, log)

	// 定时刷新代码目录
	if cfg.Directory.RefreshCron != "" {
		loader := directory.NewLoader(directory.LoaderConfig{
			FeedURL:   cfg.Directory.FeedURL,
			Timeout:   cfg.Directory.Timeout,
			Artifacts: artifacts,
		}, loaderMirror, log)

		refresh := scheduler.NewDirectoryRefresh(loader, universe, index, publisher, log)
		sched := scheduler.NewScheduler(log)
		if err := sched.AddJob(cfg.Directory.RefreshCron, "directory_refresh", refresh.Run); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	server := api.NewServer(api.ServerConfig{
		Port:           cfg.API.Port,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		AllowedOrigins: cfg.API.AllowedOrigins,
	}, log)
	server.SetupRoutes(api.NewHandlers(api.Deps{
		Market:       market,
		Screener:     screener,
		Universe:     universe,
		Fundamentals: fund,
		Search:       index,
		Publisher:    publisher,
		Monitor:      mon,
		Directory:    mirrorStats,
		Log:          log,
	}))

	return server.Run(ctx)
}

// directoryReloader 其他进程刷新目录后重新加载产物文件
func directoryReloader(artifacts directory.Artifacts, universe *repository.Universe, index *search.Index, log zerolog.Logger) messaging.MessageHandler {
	return func(data []byte) error {
		var evt model.DirectoryRefreshedEvent
		if err := json.Unmarshal(data, &evt); err != nil {
			return fmt.Errorf("解析目录刷新事件失败: %w", err)
		}

		entries, err := artifacts.Load()
		if err != nil {
			return fmt.Errorf("重新加载目录失败: %w", err)
		}
		universe.Replace(entries, repository.SourceArtifacts)
		if err := index.Rebuild(entries); err != nil {
			log.Warn().Err(err).Msg("重建搜索索引失败")
		}

		log.Info().
			Int("total", universe.Size()).
			Str("path", artifacts.StocksPath()).
			Time("refreshed_at", evt.RefreshedAt).
			Msg("已重新加载代码目录")
		return nil
	}
}
