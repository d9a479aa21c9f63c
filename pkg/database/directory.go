package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dewei/StockScreener/pkg/model"
)

const saveBatchSize = 500

// DirectoryDB 代码目录镜像表
type DirectoryDB struct {
	db  *gorm.DB
	log zerolog.Logger
}

// upsert 按代码冲突时更新全部字段
func upsert() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}},
		UpdateAll: true,
	}
}

// SaveEntries 批量写入目录，已存在的代码覆盖更新
func (d *DirectoryDB) SaveEntries(ctx context.Context, entries []model.DirectoryEntry) error {
	if len(entries) == 0 {
		return nil
	}

	now := time.Now()
	rows := make([]model.DirectoryEntry, len(entries))
	for i, e := range entries {
		e.UpdatedAt = now
		rows[i] = e
	}

	err := d.db.WithContext(ctx).Clauses(upsert()).CreateInBatches(rows, saveBatchSize).Error
	if err != nil {
		return fmt.Errorf("保存代码目录失败: %w", err)
	}
	d.log.Debug().Int("count", len(rows)).Msg("代码目录已写入")
	return nil
}

// LoadEntries 读取全部目录，按代码排序
func (d *DirectoryDB) LoadEntries(ctx context.Context) ([]model.DirectoryEntry, error) {
	var entries []model.DirectoryEntry
	if err := d.db.WithContext(ctx).Order("symbol").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("读取代码目录失败: %w", err)
	}
	return entries, nil
}

// CountByExchange 按交易所统计代码数
func (d *DirectoryDB) CountByExchange(ctx context.Context) (map[string]int, error) {
	var rows []struct {
		Exchange string
		Count    int
	}
	err := d.db.WithContext(ctx).Model(&model.DirectoryEntry{}).
		Select("exchange, count(*) as count").
		Group("exchange").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("统计交易所失败: %w", err)
	}

	out := make(map[string]int, len(rows))
	for _, r := range rows {
		out[r.Exchange] = r.Count
	}
	return out, nil
}
