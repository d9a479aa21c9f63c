package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dewei/StockScreener/pkg/marketdata"
	"github.com/dewei/StockScreener/pkg/messaging"
	"github.com/dewei/StockScreener/pkg/model"
)

// DefaultBatchSize 每个上游批量请求的符号数
const DefaultBatchSize = 100

// BatchResolver 批次解析接口
type BatchResolver interface {
	ResolveBatch(ctx context.Context, symbols []string) marketdata.BatchResult
}

// Universe 筛选范围
type Universe interface {
	ScreeningSymbols() []string
}

// ScreenReport 一次筛选的统计
type ScreenReport struct {
	RunID         string
	Unfiltered    bool
	Scanned       int
	Matched       int
	Batches       int
	CacheHits     int
	Fallbacks     int
	UpstreamCalls int
	Duration      time.Duration
}

// Screener 全市场筛选引擎
//
// 批次严格顺序执行；单个批次失败时由解析器换成兜底数据，不会中断整次筛选。
type Screener struct {
	resolver  BatchResolver
	universe  Universe
	publisher messaging.Publisher
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

// NewScreener 创建筛选引擎
func NewScreener(resolver BatchResolver, universe Universe, publisher messaging.Publisher, batchSize int, log zerolog.Logger) *Screener {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Screener{
		resolver:  resolver,
		universe:  universe,
		publisher: publisher,
		batchSize: batchSize,
		log:       log.With().Str("component", "screener").Logger(),
		now:       time.Now,
	}
}

// Screen 对整个筛选范围执行条件筛选，返回全部匹配记录（不分页）
//
// 只在 ctx 被取消时返回错误，已匹配的结果仍会返回。
func (s *Screener) Screen(ctx context.Context, criteria model.FilterCriteria) ([]model.StockRecord, *ScreenReport, error) {
	start := s.now()
	symbols := s.universe.ScreeningSymbols()
	report := &ScreenReport{RunID: uuid.New().String(), Unfiltered: criteria.IsEmpty()}

	logger := s.log.With().Str("run_id", report.RunID).Logger()
	logger.Info().
		Int("universe", len(symbols)).
		Strs("rules", ActiveRules(criteria)).
		Bool("unfiltered", report.Unfiltered).
		Msg("开始筛选")

	results := make([]model.StockRecord, 0)
	for _, batch := range Chunk(symbols, s.batchSize) {
		if err := ctx.Err(); err != nil {
			report.Duration = s.now().Sub(start)
			return results, report, fmt.Errorf("筛选被取消: %w", err)
		}

		res := s.resolver.ResolveBatch(ctx, batch)
		report.Batches++
		report.Scanned += len(res.Records)
		report.CacheHits += res.CacheHits
		report.Fallbacks += res.Fallbacks
		report.UpstreamCalls += res.UpstreamCalls

		for _, record := range res.Records {
			if Matches(record, criteria) {
				results = append(results, record)
			}
		}

		logger.Debug().
			Int("batch", report.Batches).
			Int("size", len(batch)).
			Int("matched", len(results)).
			Msg("批次完成")
	}

	report.Matched = len(results)
	report.Duration = s.now().Sub(start)

	logger.Info().
		Int("scanned", report.Scanned).
		Int("matched", report.Matched).
		Int("upstream_calls", report.UpstreamCalls).
		Int("fallbacks", report.Fallbacks).
		Dur("duration", report.Duration).
		Msg("筛选完成")

	s.publishCompleted(ctx, criteria, report)
	return results, report, nil
}

// publishCompleted 发布筛选完成事件，失败只记录日志
func (s *Screener) publishCompleted(ctx context.Context, criteria model.FilterCriteria, report *ScreenReport) {
	evt := model.ScreenCompletedEvent{
		RunID:         report.RunID,
		Criteria:      criteria,
		Scanned:       report.Scanned,
		Matched:       report.Matched,
		CacheHits:     report.CacheHits,
		Fallbacks:     report.Fallbacks,
		UpstreamCalls: report.UpstreamCalls,
		DurationMs:    report.Duration.Milliseconds(),
		FinishedAt:    s.now(),
	}
	if err := s.publisher.Publish(ctx, messaging.SubjectScreenCompleted, evt); err != nil {
		s.log.Warn().Err(err).Str("run_id", report.RunID).Msg("发布筛选完成事件失败")
	}
}

// Chunk 将符号列表按 size 切分为批次
func Chunk(symbols []string, size int) [][]string {
	if size <= 0 {
		size = DefaultBatchSize
	}
	batches := make([][]string, 0, (len(symbols)+size-1)/size)
	for i := 0; i < len(symbols); i += size {
		end := min(i+size, len(symbols))
		batches = append(batches, symbols[i:end])
	}
	return batches
}
