package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/model"
)

const (
	DefaultFeedURL   = "https://www.nasdaqtrader.com/dynamic/symdir/nasdaqtraded.txt"
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	DefaultTimeout   = 60 * time.Second

	// DefaultMaxBytes 目录文件大小上限
	DefaultMaxBytes = 64 << 20
)

var (
	// ErrFeedTooLarge 目录文件超过大小上限
	ErrFeedTooLarge = errors.New("代码目录超过大小上限")
	// ErrNoEntries 目录文件没有任何有效条目
	ErrNoEntries = errors.New("代码目录没有有效条目")
)

// Mirror 目录镜像存储
type Mirror interface {
	SaveEntries(ctx context.Context, entries []model.DirectoryEntry) error
}

// LoaderConfig 目录加载配置
type LoaderConfig struct {
	FeedURL   string
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	Artifacts Artifacts
}

// Loader 代码目录加载器：下载、解析、写入产物，可选写入数据库镜像
type Loader struct {
	cfg    LoaderConfig
	client *http.Client
	mirror Mirror
	log    zerolog.Logger
}

// NewLoader 创建目录加载器，mirror 可以为 nil
func NewLoader(cfg LoaderConfig, mirror Mirror, log zerolog.Logger) *Loader {
	if cfg.FeedURL == "" {
		cfg.FeedURL = DefaultFeedURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	return &Loader{
		cfg:    cfg,
		client: &http.Client{},
		mirror: mirror,
		log:    log.With().Str("component", "directory").Logger(),
	}
}

// Run 执行一次完整加载；下载、解析或写入失败时返回错误，不保留部分结果
//
// 超过大小上限或没有有效条目的目录视为失败，已有产物保持不变。数据库镜像失败只记录日志。
func (l *Loader) Run(ctx context.Context) (*ParseResult, error) {
	l.log.Info().Str("url", l.cfg.FeedURL).Msg("开始下载代码目录")

	body, err := l.download(ctx)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	// 多读一个字节用于判断是否超限
	limited := &io.LimitedReader{R: body, N: l.cfg.MaxBytes + 1}
	result, err := Parse(limited)
	if limited.N == 0 {
		return nil, fmt.Errorf("%w: %d 字节", ErrFeedTooLarge, l.cfg.MaxBytes)
	}
	if err != nil {
		return nil, fmt.Errorf("解析代码目录失败: %w", err)
	}
	if len(result.Entries) == 0 {
		return nil, fmt.Errorf("%w: 共 %d 行，跳过 %d 行", ErrNoEntries, result.Summary.Lines, result.Summary.Skipped)
	}

	if err := l.cfg.Artifacts.Write(result.Entries); err != nil {
		return nil, fmt.Errorf("写入目录产物失败: %w", err)
	}

	l.log.Info().
		Int("lines", result.Summary.Lines).
		Int("total", result.Summary.Total).
		Int("stocks", result.Summary.Stocks).
		Int("etfs", result.Summary.ETFs).
		Int("skipped", result.Summary.Skipped).
		Str("stocks_file", l.cfg.Artifacts.StocksPath()).
		Str("symbols_file", l.cfg.Artifacts.SymbolsPath()).
		Msg("代码目录已保存")
	for exchange, count := range result.Summary.ByExchange {
		l.log.Info().Str("exchange", exchange).Int("count", count).Msg("交易所统计")
	}

	if l.mirror != nil {
		if err := l.mirror.SaveEntries(ctx, result.Entries); err != nil {
			l.log.Warn().Err(err).Msg("写入目录镜像失败")
		} else {
			l.log.Info().Int("count", len(result.Entries)).Msg("目录镜像已更新")
		}
	}

	return result, nil
}

// download 下载目录文件，调用方负责关闭返回的 body
func (l *Loader) download(ctx context.Context) (io.ReadCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.FeedURL, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("User-Agent", l.cfg.UserAgent)

	resp, err := l.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("下载代码目录失败: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("下载代码目录失败: 状态码 %d", resp.StatusCode)
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

// cancelOnClose 关闭 body 时释放请求的 context
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
