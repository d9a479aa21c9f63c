package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/directory"
	"github.com/dewei/StockScreener/pkg/messaging"
	"github.com/dewei/StockScreener/pkg/model"
	"github.com/dewei/StockScreener/pkg/repository"
)

// DirectoryLoader 目录加载接口
type DirectoryLoader interface {
	Run(ctx context.Context) (*directory.ParseResult, error)
}

// UniverseReplacer 可整体替换的代码全集
type UniverseReplacer interface {
	Replace(entries []model.DirectoryEntry, source string)
}

// IndexRebuilder 可重建的搜索索引
type IndexRebuilder interface {
	Rebuild(entries []model.DirectoryEntry) error
}

// DirectoryRefresh 定时刷新代码目录
//
// 加载失败时保留原有目录。
type DirectoryRefresh struct {
	loader    DirectoryLoader
	universe  UniverseReplacer
	index     IndexRebuilder
	publisher messaging.Publisher
	log       zerolog.Logger
}

// NewDirectoryRefresh 创建目录刷新任务，index 和 publisher 可以为 nil
func NewDirectoryRefresh(loader DirectoryLoader, universe UniverseReplacer, index IndexRebuilder, publisher messaging.Publisher, log zerolog.Logger) *DirectoryRefresh {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &DirectoryRefresh{
		loader:    loader,
		universe:  universe,
		index:     index,
		publisher: publisher,
		log:       log.With().Str("job", "directory_refresh").Logger(),
	}
}

// Run 执行一次刷新
func (d *DirectoryRefresh) Run(ctx context.Context) error {
	result, err := d.loader.Run(ctx)
	if err != nil {
		return fmt.Errorf("刷新代码目录失败: %w", err)
	}

	d.universe.Replace(result.Entries, repository.SourceArtifacts)
	if d.index != nil {
		if err := d.index.Rebuild(result.Entries); err != nil {
			d.log.Warn().Err(err).Msg("重建搜索索引失败")
		}
	}

	evt := model.DirectoryRefreshedEvent{
		Total:       result.Summary.Total,
		Stocks:      result.Summary.Stocks,
		ETFs:        result.Summary.ETFs,
		ByExchange:  result.Summary.ByExchange,
		Source:      repository.SourceArtifacts,
		RefreshedAt: time.Now(),
	}
	if err := d.publisher.Publish(ctx, messaging.SubjectDirectoryRefreshed, evt); err != nil {
		d.log.Warn().Err(err).Msg("发布目录刷新事件失败")
	}
	return nil
}
