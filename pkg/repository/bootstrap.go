package repository

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/model"
)

// ArtifactSource 目录产物
type ArtifactSource interface {
	Load() ([]model.DirectoryEntry, error)
}

// MirrorSource 数据库中的目录镜像
type MirrorSource interface {
	LoadEntries(ctx context.Context) ([]model.DirectoryEntry, error)
}

// Bootstrap 启动时加载代码全集：依次尝试目录产物、数据库镜像，都不可用时使用内置列表
//
// 任何来源失败都不会导致启动失败。mirror 可以为 nil。返回最终使用的来源。
func Bootstrap(ctx context.Context, u *Universe, artifacts ArtifactSource, mirror MirrorSource, log zerolog.Logger) string {
	entries, err := artifacts.Load()
	if err == nil && len(entries) > 0 {
		u.Replace(entries, SourceArtifacts)
		logLoaded(log, u, entries)
		return SourceArtifacts
	}
	log.Warn().Err(err).Msg("未找到代码目录文件")

	if mirror != nil {
		entries, err := mirror.LoadEntries(ctx)
		if err == nil && len(entries) > 0 {
			u.Replace(entries, SourceDatabase)
			logLoaded(log, u, entries)
			return SourceDatabase
		}
		log.Warn().Err(err).Msg("数据库目录镜像不可用")
	}

	u.Replace(nil, SourceStatic)
	log.Warn().Int("symbols", len(u.ScreeningSymbols())).Msg("使用内置股票列表")
	return SourceStatic
}

func logLoaded(log zerolog.Logger, u *Universe, entries []model.DirectoryEntry) {
	etfs := 0
	for _, e := range entries {
		if e.IsETF {
			etfs++
		}
	}
	log.Info().
		Str("source", u.Source()).
		Int("total", u.Size()).
		Int("stocks", u.Size()-etfs).
		Int("etfs", etfs).
		Msg("已加载代码目录")
}
