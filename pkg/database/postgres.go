package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dewei/StockScreener/pkg/config"
	"github.com/dewei/StockScreener/pkg/model"
)

// Postgres Postgres 数据库连接
type Postgres struct {
	db  *gorm.DB
	log zerolog.Logger
}

// NewPostgres 连接数据库并迁移目录镜像表
func NewPostgres(cfg config.PostgresConfig, log zerolog.Logger) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&model.DirectoryEntry{}); err != nil {
		return nil, fmt.Errorf("迁移数据表失败: %w", err)
	}

	return newPostgres(db, log), nil
}

func newPostgres(db *gorm.DB, log zerolog.Logger) *Postgres {
	return &Postgres{db: db, log: log.With().Str("component", "postgres").Logger()}
}

// Directory 目录镜像访问
func (p *Postgres) Directory() *DirectoryDB {
	return &DirectoryDB{db: p.db, log: p.log}
}

// Close 关闭数据库连接
func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping 检查数据库连通性
func (p *Postgres) Ping(ctx context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库连接池失败: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
