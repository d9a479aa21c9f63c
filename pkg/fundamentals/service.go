package fundamentals

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dewei/StockScreener/pkg/collector"
	"github.com/dewei/StockScreener/pkg/model"
)

const (
	DefaultBaseURL = "https://www.alphavantage.co/query"
	DefaultAPIKey  = "demo"
	DefaultTimeout = 10 * time.Second

	quartersPerYear = 4
)

// Config Alpha Vantage 配置
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Service 基本面服务
//
// 概况来自 Alpha Vantage OVERVIEW 接口，失败时只记录日志；
// 季度数据是按固定区间生成的合成值。
type Service struct {
	cfg    Config
	client *http.Client
	rnd    collector.RandSource
	log    zerolog.Logger
	now    func() time.Time
}

// NewService 创建基本面服务，rnd 为 nil 时使用默认随机源
func NewService(cfg Config, rnd collector.RandSource, log zerolog.Logger) *Service {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIKey == "" {
		cfg.APIKey = DefaultAPIKey
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if rnd == nil {
		rnd = collector.DefaultRand
	}
	return &Service{
		cfg:    cfg,
		client: &http.Client{},
		rnd:    rnd,
		log:    log.With().Str("component", "fundamentals").Logger(),
		now:    time.Now,
	}
}

// Get 返回 symbol 的基本面数据，不会因上游失败而失败
func (s *Service) Get(ctx context.Context, symbol string) model.Fundamentals {
	overview, err := s.fetchOverview(ctx, symbol)
	if err != nil {
		s.log.Warn().Err(err).Str("symbol", symbol).Msg("获取公司概况失败")
	}

	return model.Fundamentals{
		Symbol:        symbol,
		QuarterlyData: s.quarters(),
		Overview:      overview,
	}
}

// quarters 生成上一年度四个季度的合成数据
func (s *Service) quarters() []model.QuarterlyEntry {
	year := s.now().Year() - 1
	out := make([]model.QuarterlyEntry, 0, quartersPerYear)
	for q := 1; q <= quartersPerYear; q++ {
		out = append(out, model.QuarterlyEntry{
			Quarter:         fmt.Sprintf("Q%d %d", q, year),
			EPS:             round(s.rnd()*5+1, 2),
			Sales:           round(s.rnd()*100+50, 2),
			GrossMargin:     round(s.rnd()*30+40, 1),
			OperatingMargin: round(s.rnd()*20+20, 1),
			NetMargin:       round(s.rnd()*15+15, 1),
		})
	}
	return out
}

// fetchOverview 调用 OVERVIEW 接口，没有有效内容时返回 nil
func (s *Service) fetchOverview(ctx context.Context, symbol string) (*model.CompanyOverview, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	params := url.Values{}
	params.Set("function", "OVERVIEW")
	params.Set("symbol", symbol)
	params.Set("apikey", s.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", collector.ErrUpstreamStatus, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	overview := &model.CompanyOverview{
		Name:      stringField(raw, "Name"),
		Exchange:  stringField(raw, "Exchange"),
		Sector:    stringField(raw, "Sector"),
		Industry:  stringField(raw, "Industry"),
		MarketCap: stringField(raw, "MarketCapitalization"),
	}
	if *overview == (model.CompanyOverview{}) {
		// demo key 或限流时返回 {"Information": "..."}
		return nil, nil
	}
	return overview, nil
}

func stringField(m map[string]interface{}, key string) string {
	if s, ok := m[key].(string); ok && s != "None" {
		return s
	}
	return ""
}

// round 按小数位四舍五入
func round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}
