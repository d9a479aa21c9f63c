package marketdata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dewei/StockScreener/pkg/cache"
	"github.com/dewei/StockScreener/pkg/collector"
	"github.com/dewei/StockScreener/pkg/model"
)

// DefaultConcurrency 浏览接口逐只请求时的最大并发数
const DefaultConcurrency = 10

// Directory 代码目录查询接口
type Directory interface {
	Lookup(symbol string) (model.DirectoryEntry, bool)
}

// BatchResult 一个批次的解析结果
type BatchResult struct {
	Records       []model.StockRecord
	CacheHits     int
	Fetched       int
	Fallbacks     int
	UpstreamCalls int
}

// Service 行情服务：缓存优先，未命中时请求上游，失败时使用兜底数据
//
// 每条通过上游或兜底得到的记录都会写入缓存。
type Service struct {
	fetcher     collector.QuoteFetcher
	cache       *cache.QuoteCache
	fallback    *collector.FallbackGenerator
	dir         Directory
	concurrency int
	log         zerolog.Logger
	now         func() time.Time
}

// Option 服务可选配置
type Option func(*Service)

// WithDirectory 使用代码目录补全交易所和 ETF 标记
func WithDirectory(dir Directory) Option {
	return func(s *Service) { s.dir = dir }
}

// WithConcurrency 设置逐只请求的并发上限
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithClock 替换时钟，测试使用
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建行情服务
func NewService(fetcher collector.QuoteFetcher, quoteCache *cache.QuoteCache, fallback *collector.FallbackGenerator, log zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		fetcher:     fetcher,
		cache:       quoteCache,
		fallback:    fallback,
		concurrency: DefaultConcurrency,
		log:         log.With().Str("component", "marketdata").Logger(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache 返回底层缓存
func (s *Service) Cache() *cache.QuoteCache {
	return s.cache
}

// Get 获取单只股票行情，不会失败：上游出错时返回兜底记录
//
// 上游请求不随 ctx 取消，只受适配器自身的超时约束；调用方取消不会被当作上游失败写入缓存。
func (s *Service) Get(ctx context.Context, symbol string) model.StockRecord {
	if record, ok := s.cache.Get(symbol); ok {
		return record
	}

	record, err := s.fetcher.FetchChart(context.WithoutCancel(ctx), symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("获取行情失败，使用兜底数据")
		record = s.fallback.Generate(symbol, s.now())
	} else {
		s.log.Debug().Str("symbol", symbol).Float64("price", record.Price).Msg("获取行情成功")
	}

	record = s.enrich(record)
	s.cache.Put(symbol, record)
	return record
}

// GetMany 并发获取多只股票行情，结果顺序与输入一致
func (s *Service) GetMany(ctx context.Context, symbols []string) []model.StockRecord {
	records := make([]model.StockRecord, len(symbols))

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, symbol := range symbols {
		i, symbol := i, symbol
		g.Go(func() error {
			records[i] = s.Get(ctx, symbol)
			return nil
		})
	}
	_ = g.Wait()

	return records
}

// ResolveBatch 解析一个批次：缓存命中直接使用，其余符号合并为一次上游请求
//
// 上游请求失败时整批使用兜底数据；响应中缺失的符号也使用兜底数据。
// 与 Get 相同，上游请求不随 ctx 取消。返回的记录顺序与输入一致。
func (s *Service) ResolveBatch(ctx context.Context, symbols []string) BatchResult {
	result := BatchResult{Records: make([]model.StockRecord, len(symbols))}

	pending := make(map[string][]int)
	toFetch := make([]string, 0, len(symbols))
	for i, symbol := range symbols {
		if record, ok := s.cache.Get(symbol); ok {
			result.Records[i] = record
			result.CacheHits++
			continue
		}
		if _, seen := pending[symbol]; !seen {
			toFetch = append(toFetch, symbol)
		}
		pending[symbol] = append(pending[symbol], i)
	}

	if len(toFetch) == 0 {
		return result
	}

	fetched := make(map[string]model.StockRecord, len(toFetch))
	result.UpstreamCalls++
	quotes, err := s.fetcher.FetchQuotes(context.WithoutCancel(ctx), toFetch)
	if err != nil {
		s.log.Warn().Err(err).Int("symbols", len(toFetch)).Msg("批量获取行情失败，整批使用兜底数据")
	} else {
		for _, q := range quotes {
			fetched[q.Symbol] = q
		}
	}

	now := s.now()
	for _, symbol := range toFetch {
		record, ok := fetched[symbol]
		if ok {
			result.Fetched++
		} else {
			record = s.fallback.Generate(symbol, now)
			result.Fallbacks++
		}

		record = s.enrich(record)
		s.cache.Put(symbol, record)
		for _, i := range pending[symbol] {
			result.Records[i] = record
		}
	}

	return result
}

// enrich 用代码目录补全交易所和 ETF 标记
func (s *Service) enrich(record model.StockRecord) model.StockRecord {
	if s.dir == nil {
		return record
	}
	entry, ok := s.dir.Lookup(record.Symbol)
	if !ok {
		return record
	}
	if record.Exchange == "" {
		record.Exchange = entry.Exchange
	}
	if entry.IsETF {
		record.IsETF = true
	}
	return record
}
